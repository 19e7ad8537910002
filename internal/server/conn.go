package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

// Conn is the delivery gateway for one websocket: a buffered send channel
// drained by a single writer goroutine, so sends from concurrent fan-out
// jobs stay ordered per connection. Sends to a closed or backed-up
// connection are dropped, not raised; the registry snapshot that produced
// them may already be stale.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *Conn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("marshal outbound message")
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- payload:
	default:
		log.Warn().Str("module", "server").Msg("dropping message, send buffer full")
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return c.ws.Close()
}

// WritePump is the connection's single writer. It exits when Close drains
// the channel or the peer goes away.
func (c *Conn) WritePump() {
	for payload := range c.send {
		if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
