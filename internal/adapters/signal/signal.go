package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/aaditya8979/syncy-v3/internal/app"
	"github.com/aaditya8979/syncy-v3/internal/config"
	"github.com/aaditya8979/syncy-v3/internal/core"
	"github.com/aaditya8979/syncy-v3/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the WebSocket side of the sync protocol: it upgrades
// connections, runs their pumps and feeds decoded events into the router.
type Controller struct {
	Router *app.Router

	cfg      *config.Config
	upgrader websocket.Upgrader
	validate *validator.Validate
}

func NewController(router *app.Router, cfg *config.Config) *Controller {
	return &Controller{
		Router:   router,
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(cfg.Origins())},
		validate: validator.New(),
	}
}

// originChecker builds the upgrader's cross-origin policy from the
// configured allow-list. Requests without an Origin header (non-browser
// clients) are always allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// WsConn adapts a gorilla connection to core.Conn. Writes go through a
// bounded channel; a full channel means the frame is dropped so one slow
// client never stalls a room broadcast.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSync upgrades the request and starts the connection's pumps. Each
// connection gets a fresh id; identity only attaches once a join arrives.
func (ctl *Controller) HandleSync(ctx context.Context, c *gin.Context) {
	cid := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(cid)).
		Str("sid", c.GetString("client_token")).Msg("new WS connection")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctl.Router.Connect(cid)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, cid, conn)
}
