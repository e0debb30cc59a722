package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// ErrOutboxFull is returned by Push when the client is not keeping up.
var ErrOutboxFull = errors.New("websocket outbox full")

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}

// Outbox is the single writer of a connection. Session snapshots arrive
// from other goroutines, and gorilla connections allow one writer at a time.
type Outbox struct {
	conn *websocket.Conn
	send chan interface{}

	once sync.Once
	done chan struct{}
}

// NewOutbox creates an Outbox buffering up to size messages.
func NewOutbox(conn *websocket.Conn, size int) *Outbox {
	return &Outbox{
		conn: conn,
		send: make(chan interface{}, size),
		done: make(chan struct{}),
	}
}

// Push queues v without blocking.
func (o *Outbox) Push(v interface{}) error {
	select {
	case <-o.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case o.send <- v:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Error queues an ErrorResponse.
func (o *Outbox) Error(code, msg string) error {
	return o.Push(ErrorResponse{Event: EventError, Code: code, Error: msg})
}

// Run writes queued messages until Close or a write error.
func (o *Outbox) Run() error {
	for {
		select {
		case <-o.done:
			return nil
		case v := <-o.send:
			if err := WriteTyped(o.conn, v); err != nil {
				o.Close()
				return err
			}
		}
	}
}

// Close stops Run. It is safe to call more than once.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}
