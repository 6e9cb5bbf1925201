package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	errConnClosed    = errors.New("connection closed")
	errSendQueueFull = errors.New("send queue full")
)

// wsConn implements hub.Conn. Outbound frames go through a bounded queue
// drained by the connection's write loop; Send never touches the socket.
type wsConn struct {
	id          string
	participant string // from a verified token, may be empty
	conn        *websocket.Conn

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(id string, c *websocket.Conn, queueSize int) *wsConn {
	return &wsConn{
		id:     id,
		conn:   c,
		send:   make(chan []byte, queueSize),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send queues a frame. A full queue means the peer cannot keep up; the
// connection is closed and reaped by the read loop.
func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		_ = c.Close()
		return errSendQueueFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}
