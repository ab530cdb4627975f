package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// DialTCP connects to a line server over TCP.
func DialTCP(ctx context.Context, addr string, writeTimeout time.Duration) (*TCPConnection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewTCPConnection(conn, writeTimeout), nil
}

// DialWS connects to a line server's WebSocket endpoint, e.g. ws://host:8080/ws.
func DialWS(ctx context.Context, url string, writeTimeout time.Duration) (*WSConnection, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWSConnection(conn, writeTimeout), nil
}
