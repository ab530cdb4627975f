package network

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// MaxLineLength caps one inbound line, terminator included.
const MaxLineLength = 8192

// ErrLineTooLong is returned by ReadLine when a client sends more than
// MaxLineLength bytes without a newline. The stream cannot be resynced
// afterwards, so callers should drop the connection.
var ErrLineTooLong = errors.New("line too long")

// TCPConnection reads and writes newline-terminated lines on a net.Conn.
type TCPConnection struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func NewTCPConnection(conn net.Conn, writeTimeout time.Duration) *TCPConnection {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineLength)
	return &TCPConnection{
		conn:         conn,
		scanner:      scanner,
		writeTimeout: writeTimeout,
	}
}

// ReadLine accepts "\n" or "\r\n" endings. A final unterminated line is
// returned before io.EOF.
func (c *TCPConnection) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return c.scanner.Text(), nil
	}
	err := c.scanner.Err()
	switch {
	case err == nil:
		return "", io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return "", fmt.Errorf("%w: over %d bytes", ErrLineTooLong, MaxLineLength)
	}
	return "", err
}

func (c *TCPConnection) WriteLines(lines ...string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := io.WriteString(c.conn, b.String())
	return err
}

// Close is idempotent.
func (c *TCPConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *TCPConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
