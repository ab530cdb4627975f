// network/connection.go
package network

import (
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when writing to a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Connection is a bidirectional stream of text lines.
type Connection interface {
	// ReadLine blocks for the next line, without its terminator.
	ReadLine() (string, error)
	// WriteLines writes and flushes lines in order, atomically with respect
	// to other writers.
	WriteLines(lines ...string) error
	Close() error
	RemoteAddr() net.Addr
}

// WSConnection carries one line per WebSocket text message.
type WSConnection struct {
	conn         *websocket.Conn
	sendMutex    sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
	closed       bool
	closeErr     error
}

// NewWSConnection limits inbound messages to MaxLineLength bytes; a larger
// message fails ReadLine with websocket.ErrReadLimit and closes the socket.
func NewWSConnection(conn *websocket.Conn, writeTimeout time.Duration) *WSConnection {
	conn.SetReadLimit(MaxLineLength)
	return &WSConnection{conn: conn, writeTimeout: writeTimeout}
}

func (c *WSConnection) ReadLine() (string, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *WSConnection) WriteLines(lines ...string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}

	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	for _, line := range lines {
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return err
		}
	}
	return nil
}

// Close sends a close frame and drops the socket. Safe to call repeatedly.
func (c *WSConnection) Close() error {
	c.closeOnce.Do(func() {
		c.sendMutex.Lock()
		c.closed = true
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.sendMutex.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// IsNormalClose reports whether err is the peer hanging up cleanly.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
