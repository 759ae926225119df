package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/aaditya8979/syncy-v3/internal/core"
	"github.com/aaditya8979/syncy-v3/internal/domain"
	"github.com/aaditya8979/syncy-v3/internal/protocol"
)

const writeWait = 5 * time.Second

// pongWait leaves the peer one full ping interval plus slack before the
// read deadline expires and the connection takes the departure path.
func (ctl *Controller) pongWait() time.Duration {
	return ctl.cfg.PingPeriod * 10 / 9
}

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, cid domain.ConnID, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("readPump closing")
		ctl.Router.Disconnect(cid)
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("readPump read error")
				return
			}
			ctl.handleFrame(cid, c, data)
		}
	}
}

// handleFrame picks a handler by envelope type. Anything that fails to
// parse or names no known event is dropped without a reply.
func (ctl *Controller) handleFrame(cid domain.ConnID, c *WsConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case protocol.EvJoin:
		ctl.handleJoin(cid, c, data)
	case protocol.EvLeave:
		ctl.handleLeave(cid, data)
	case protocol.EvRequestState:
		ctl.handleRequestState(cid, c, data)
	case protocol.EvPlay:
		ctl.handlePlay(cid, data)
	case protocol.EvPause:
		ctl.handlePause(cid, data)
	case protocol.EvSyncPosition:
		ctl.handleSyncPosition(cid, data)
	case protocol.EvSongChange:
		ctl.handleSongChange(cid, data)
	case protocol.EvNextSong:
		ctl.handleNextSong(cid, data)
	case protocol.EvVote:
		ctl.handleVote(cid, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

// decode unmarshals and shape-checks an inbound payload. A payload missing
// a required field is dropped silently per the fire-and-forget contract.
func (ctl *Controller) decode(data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad payload")
		return false
	}
	if err := ctl.validate.Struct(v); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("payload failed validation")
		return false
	}
	return true
}

func (ctl *Controller) handleJoin(cid domain.ConnID, c *WsConn, data []byte) {
	var p protocol.Join
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.Join(cid, c, p)
}

func (ctl *Controller) handleLeave(cid domain.ConnID, data []byte) {
	var p protocol.RoomRef
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.Leave(cid, p)
}

func (ctl *Controller) handleRequestState(cid domain.ConnID, c *WsConn, data []byte) {
	var p protocol.RoomRef
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.RequestState(cid, c, p)
}

func (ctl *Controller) handlePlay(cid domain.ConnID, data []byte) {
	var p protocol.Transport
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.Play(cid, p)
}

func (ctl *Controller) handlePause(cid domain.ConnID, data []byte) {
	var p protocol.Transport
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.Pause(cid, p)
}

func (ctl *Controller) handleSyncPosition(cid domain.ConnID, data []byte) {
	var p protocol.Sync
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.SyncPosition(cid, p)
}

func (ctl *Controller) handleSongChange(cid domain.ConnID, data []byte) {
	var p protocol.SongChange
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.SongChange(cid, p)
}

func (ctl *Controller) handleNextSong(cid domain.ConnID, data []byte) {
	var p protocol.RoomRef
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.NextSong(cid, p)
}

// handleVote shape-checks the ballot, then relays the original bytes so
// the payload reaches the room untouched.
func (ctl *Controller) handleVote(cid domain.ConnID, data []byte) {
	var p protocol.Vote
	if !ctl.decode(data, &p) {
		return
	}
	ctl.Router.Vote(cid, core.Frame(data))
}
