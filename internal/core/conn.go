package core

// Frame is a marshaled wire message ready to be written to a transport.
type Frame []byte

// Conn abstracts the messaging transport of one connection.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to the router.
type PublishResult struct {
	SentTo  int
	Dropped int
}
