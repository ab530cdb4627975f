package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/wfunc/dungeonserver/network"
	"github.com/wfunc/dungeonserver/protocol"
)

// Client relays typed commands to the server and hands every server event
// to a Presenter. It asks for a fresh look whenever the view may have
// changed.
type Client struct {
	conn      network.Connection
	presenter Presenter
}

func NewClient(conn network.Connection, p Presenter) *Client {
	return &Client{conn: conn, presenter: p}
}

// Run sends each line of input until input ends, the user types quit, the
// server hangs up or ctx is cancelled.
func (c *Client) Run(ctx context.Context, input io.Reader) error {
	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop() }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case err := <-readErr:
			c.conn.Close()
			return err
		case <-ctx.Done():
			c.quit()
			<-readErr
			return nil
		case line, ok := <-lines:
			line = strings.TrimSpace(line)
			if !ok || strings.EqualFold(line, "quit") {
				c.quit()
				return <-readErr
			}
			if line == "" {
				continue
			}
			if err := c.conn.WriteLines(line); err != nil {
				c.conn.Close()
				<-readErr
				return err
			}
		}
	}
}

// quit sends the empty line that tells the server we are leaving.
func (c *Client) quit() {
	c.conn.WriteLines("")
	c.conn.Close()
}

func (c *Client) readLoop() error {
	for {
		ev, err := protocol.ReadEvent(c.conn)
		if err != nil {
			if isHangup(err) {
				return nil
			}
			return err
		}
		c.presenter.Present(ev)

		switch ev.(type) {
		case protocol.Goal, protocol.Changed, protocol.Success:
			if err := c.conn.WriteLines(protocol.Look{}.Line()); err != nil {
				if isHangup(err) {
					return nil
				}
				return err
			}
		}
	}
}

func isHangup(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, network.ErrConnectionClosed) ||
		network.IsNormalClose(err)
}
