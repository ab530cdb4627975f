package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/dungeonserver/network"
	"github.com/wfunc/dungeonserver/protocol"
)

type recordingPresenter struct {
	mutex  sync.Mutex
	events []protocol.Event
}

func (r *recordingPresenter) Present(ev protocol.Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, ev)
}

func readLine(t *testing.T, c network.Connection, want string) {
	t.Helper()
	got, err := c.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestClient_Session(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	server := network.NewTCPConnection(serverSide, time.Second)
	defer server.Close()

	rec := &recordingPresenter{}
	client := NewClient(network.NewTCPConnection(clientSide, time.Second), rec)
	input, typing := io.Pipe()

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background(), input) }()

	// The goal announcement triggers a look.
	server.WriteLines("GOLD 2")
	readLine(t, server, "LOOK")
	server.WriteLines("LOOKREPLY", "X.X", "...", "X.X", "")

	io.WriteString(typing, "move n\n")
	readLine(t, server, "move n")

	// A success triggers another look.
	server.WriteLines("SUCCESS")
	readLine(t, server, "LOOK")

	typing.Close()
	readLine(t, server, "")

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after input ended")
	}

	want := []protocol.Event{
		protocol.Goal{Amount: 2},
		protocol.LookReply{Rows: []string{"X.X", "...", "X.X"}},
		protocol.Success{},
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("expected %#v, got %#v", want, rec.events)
	}
}

func TestClient_ServerHangsUp(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	rec := &recordingPresenter{}
	client := NewClient(network.NewTCPConnection(clientSide, time.Second), rec)
	input, typing := io.Pipe()
	defer typing.Close()

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background(), input) }()

	server := network.NewTCPConnection(serverSide, time.Second)
	server.WriteLines("MESSAGE Server shutting down")
	server.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("a hangup should end the client cleanly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the server hung up")
	}
	if len(rec.events) != 1 || rec.events[0] != (protocol.Message{Text: "Server shutting down"}) {
		t.Errorf("unexpected events %#v", rec.events)
	}
}

func TestClient_FramingErrorIsFatal(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	client := NewClient(network.NewTCPConnection(clientSide, time.Second), &recordingPresenter{})
	input, typing := io.Pipe()
	defer typing.Close()

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background(), input) }()

	server := network.NewTCPConnection(serverSide, time.Second)
	defer server.Close()
	server.WriteLines("LOOKREPLY", "X.X", "..", "X.X", "")

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected a framing error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after a framing error")
	}
}

func TestConsolePresenter(t *testing.T) {
	var out bytes.Buffer
	p := NewConsolePresenter(&out)
	p.Present(protocol.Goal{Amount: 3})
	p.Present(protocol.LookReply{Rows: []string{"#.#"}})
	p.Present(protocol.HealthChanged{Delta: -1})
	p.Present(protocol.Fail{Reason: "not your turn"})

	want := "Collect 3 gold and find the exit.\n#.#\nHealth -1\nFailed: not your turn\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}
