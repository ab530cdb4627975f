package server

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/dungeonserver/config"
	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/models"
	"github.com/wfunc/dungeonserver/monitor"
	"github.com/wfunc/dungeonserver/network"
	"github.com/wfunc/dungeonserver/protocol"
	"github.com/wfunc/dungeonserver/room"
	"github.com/wfunc/dungeonserver/session"
	"github.com/wfunc/dungeonserver/world"
)

type firstTile struct{}

func (firstTile) Intn(int) int { return 0 }

type fakeRecorder struct {
	mutex   sync.Mutex
	records []models.SessionRecord
}

func (f *fakeRecorder) RecordSession(rec *models.SessionRecord) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.records = append(f.records, *rec)
}

func expect(t *testing.T, who string, c network.Connection, want protocol.Event) {
	t.Helper()
	got, err := protocol.ReadEvent(c)
	if err != nil {
		t.Fatalf("%s: ReadEvent: %v", who, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("%s: expected %#v, got %#v", who, want, got)
	}
}

func send(t *testing.T, c network.Connection, line string) {
	t.Helper()
	if err := c.WriteLines(line); err != nil {
		t.Fatalf("WriteLines %q: %v", line, err)
	}
}

func TestGameServer_Loopback(t *testing.T) {
	m, err := world.ParseRows("Corridor", []string{
		"#######",
		"#..G..#",
		"#######",
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := game.NewEngine(m, game.WithRand(firstTile{}))
	if err != nil {
		t.Fatal(err)
	}
	r := room.NewRoom("main", "Corridor", engine)
	defer r.Close()

	sessions := session.NewManager()
	recorder := &fakeRecorder{}
	mon := monitor.NewMonitor("test")
	srv := NewGameServer(config.ServerConfig{
		TCPAddress:   "127.0.0.1:0",
		WSAddress:    "127.0.0.1:0",
		PollInterval: 20 * time.Millisecond,
		WriteTimeout: time.Second,
	}, r, sessions, WithMonitor(mon), WithRecorder(recorder))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	alice, err := network.DialTCP(ctx, srv.TCPAddr().String(), time.Second)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer alice.Close()
	expect(t, "alice", alice, protocol.Goal{Amount: 1})
	expect(t, "alice", alice, protocol.TurnStarted{})

	send(t, alice, "HELLO  Alice ")
	expect(t, "alice", alice, protocol.Greeting{Name: "Alice"})

	bob, err := network.DialWS(ctx, "ws://"+srv.WSAddr().String()+"/ws", time.Second)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer bob.Close()
	expect(t, "bob", bob, protocol.Goal{Amount: 1})
	expect(t, "alice", alice, protocol.Changed{})

	send(t, bob, "MOVE E")
	expect(t, "bob", bob, protocol.Fail{Reason: game.ErrNotYourTurn.Error()})
	send(t, bob, "MOVE UP")
	got, err := protocol.ReadEvent(bob)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(protocol.Fail); !ok {
		t.Fatalf("malformed command should fail, got %#v", got)
	}

	send(t, alice, "look")
	got, err = protocol.ReadEvent(alice)
	if err != nil {
		t.Fatal(err)
	}
	look, ok := got.(protocol.LookReply)
	if !ok || len(look.Rows) != 5 {
		t.Fatalf("expected a 5x5 look reply, got %#v", got)
	}
	if look.Rows[2][2] != '.' || look.Rows[2][3] != 'P' {
		t.Errorf("expected bob east of alice, got %q", look.Rows)
	}

	send(t, alice, "DANCE")
	send(t, alice, "ENDTURN")
	expect(t, "alice", alice, protocol.TurnEnded{})
	expect(t, "alice", alice, protocol.Success{})
	expect(t, "bob", bob, protocol.TurnStarted{})

	// Bob quits on his own turn: alice sees him go and gets the turn back.
	send(t, bob, "")
	expect(t, "alice", alice, protocol.Changed{})
	expect(t, "alice", alice, protocol.TurnStarted{})

	cancel()
	expect(t, "alice", alice, protocol.Message{Text: ShutdownMessage})
	if _, err := alice.ReadLine(); err == nil {
		t.Error("expected the connection to be closed after shutdown")
	}

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if sessions.Count() != 0 {
		t.Errorf("expected no sessions left, got %d", sessions.Count())
	}
	if n := mon.RequestCount(); n != 4 {
		t.Errorf("expected 4 counted commands, got %d", n)
	}

	reasons := map[string]models.SessionRecord{}
	for _, rec := range recorder.records {
		reasons[rec.Transport] = rec
	}
	if rec := reasons[TransportWS]; rec.Reason != models.ReasonQuit || rec.PlayerID != 1 || rec.Commands != 1 {
		t.Errorf("unexpected ws record %+v", rec)
	}
	if rec := reasons[TransportTCP]; rec.Reason != models.ReasonShutdown || rec.PlayerName != "Alice" || rec.Commands != 3 {
		t.Errorf("unexpected tcp record %+v", rec)
	}
}

func TestGameServer_ServeStopsWithoutClients(t *testing.T) {
	m, err := world.ParseRows("Tiny", []string{"#G#"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := game.NewEngine(m)
	if err != nil {
		t.Fatal(err)
	}
	r := room.NewRoom("main", "Tiny", engine)
	defer r.Close()

	srv := NewGameServer(config.ServerConfig{TCPAddress: "127.0.0.1:0", PollInterval: 10 * time.Millisecond}, r, session.NewManager())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := srv.Run(ctx); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestGameServer_StopListeningKeepsClients(t *testing.T) {
	m, err := world.ParseRows("Tiny", []string{"#..G#"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := game.NewEngine(m, game.WithRand(firstTile{}))
	if err != nil {
		t.Fatal(err)
	}
	r := room.NewRoom("main", "Tiny", engine)
	defer r.Close()

	srv := NewGameServer(config.ServerConfig{TCPAddress: "127.0.0.1:0", PollInterval: 10 * time.Millisecond}, r, session.NewManager())
	if err := srv.Listen(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	addr := srv.TCPAddr().String()
	conn, err := network.DialTCP(ctx, addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	expect(t, "player", conn, protocol.Goal{Amount: 1})
	expect(t, "player", conn, protocol.TurnStarted{})

	if err := srv.StopListening(); err != nil {
		t.Fatalf("StopListening: %v", err)
	}
	if late, err := network.DialTCP(ctx, addr, time.Second); err == nil {
		late.Close()
		t.Error("expected new connections to be refused")
	}

	send(t, conn, "MOVE E")
	expect(t, "player", conn, protocol.Success{})

	cancel()
	if err := <-served; err != nil {
		t.Errorf("Serve: %v", err)
	}
}

func TestGameServer_CurrentPlayerHangsUp(t *testing.T) {
	m, err := world.ParseRows("Corridor", []string{
		"#######",
		"#..G..#",
		"#######",
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := game.NewEngine(m, game.WithRand(firstTile{}))
	if err != nil {
		t.Fatal(err)
	}
	r := room.NewRoom("main", "Corridor", engine)
	defer r.Close()

	recorder := &fakeRecorder{}
	srv := NewGameServer(config.ServerConfig{
		TCPAddress:   "127.0.0.1:0",
		PollInterval: 20 * time.Millisecond,
		WriteTimeout: time.Second,
	}, r, session.NewManager(), WithRecorder(recorder))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	addr := srv.TCPAddr().String()
	alice, err := network.DialTCP(ctx, addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	expect(t, "alice", alice, protocol.Goal{Amount: 1})
	expect(t, "alice", alice, protocol.TurnStarted{})

	bob, err := network.DialTCP(ctx, addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer bob.Close()
	expect(t, "bob", bob, protocol.Goal{Amount: 1})
	expect(t, "alice", alice, protocol.Changed{})

	// Alice drops the connection mid-turn without sending the empty quit line.
	alice.Close()
	expect(t, "bob", bob, protocol.Changed{})
	expect(t, "bob", bob, protocol.TurnStarted{})

	// Bob is the only one left, so ending his turn hands it straight back.
	send(t, bob, "ENDTURN")
	expect(t, "bob", bob, protocol.TurnEnded{})
	expect(t, "bob", bob, protocol.TurnStarted{})
	expect(t, "bob", bob, protocol.Success{})

	deadline := time.Now().Add(2 * time.Second)
	var left *models.SessionRecord
	for left == nil && time.Now().Before(deadline) {
		recorder.mutex.Lock()
		for i := range recorder.records {
			if recorder.records[i].PlayerID == 0 {
				rec := recorder.records[i]
				left = &rec
			}
		}
		recorder.mutex.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	if left == nil {
		t.Fatal("no session record for the player who hung up")
	}
	if left.Reason != models.ReasonError || left.Commands != 0 {
		t.Errorf("unexpected record %+v", *left)
	}

	cancel()
	if err := <-served; err != nil {
		t.Errorf("Serve: %v", err)
	}
}
