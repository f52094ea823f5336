package sessions

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Transport is the session-facing view of one websocket connection.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Conn serializes writes to one websocket. Gorilla connections allow a
// single concurrent writer, and a session has several duties writing.
type Conn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func NewConn(c *websocket.Conn) *Conn {
	return &Conn{c: c}
}

func (c *Conn) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.c.WriteMessage(websocket.TextMessage, b)
}

func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.c.ReadMessage()
	return data, err
}

func (c *Conn) Close() error {
	return c.c.Close()
}
