package rpc

import (
	"context"
	"net"
	netrpc "net/rpc"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/dungeonserver/broadcast"
	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/models"
	"github.com/wfunc/dungeonserver/room"
	"github.com/wfunc/dungeonserver/session"
	"github.com/wfunc/dungeonserver/world"
)

type MockConnection struct {
	mutex   sync.Mutex
	written []string
}

func (m *MockConnection) ReadLine() (string, error) { return "", nil }
func (m *MockConnection) WriteLines(lines ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.written = append(m.written, lines...)
	return nil
}
func (m *MockConnection) Close() error         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr { return &net.TCPAddr{} }

func (m *MockConnection) lines() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.written...)
}

type fakeHistory struct {
	games []models.GameRecord
}

func (f *fakeHistory) History(_ context.Context, limit int) ([]models.GameRecord, error) {
	if limit > len(f.games) {
		limit = len(f.games)
	}
	return f.games[:limit], nil
}

type firstTile struct{}

func (firstTile) Intn(int) int { return 0 }

func startAdmin(t *testing.T) (*netrpc.Client, []*MockConnection) {
	t.Helper()
	m, err := world.ParseRows("Small", []string{
		"#####",
		"#..G#",
		"#####",
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := game.NewEngine(m, game.WithRand(firstTile{}))
	if err != nil {
		t.Fatal(err)
	}
	r := room.NewRoom("main", "Small", engine)
	t.Cleanup(r.Close)

	sessions := session.NewManager()
	conns := []*MockConnection{{}, {}}
	for _, c := range conns {
		sess := session.NewSession(c)
		id, err := room.Call(context.Background(), r, func(e *game.Engine) (int, error) {
			return e.AddPlayer(sess)
		})
		if err != nil {
			t.Fatal(err)
		}
		sess.SetPlayerID(id)
		sessions.Add(sess)
	}

	history := &fakeHistory{games: []models.GameRecord{{GameID: "g2"}, {GameID: "g1"}}}
	admin := NewAdmin(r, broadcast.NewSessionBroadcaster(sessions), history, sessions)
	srv, err := NewServer("127.0.0.1:0", admin)
	if err != nil {
		t.Fatal(err)
	}
	go srv.Start()
	t.Cleanup(func() { srv.Stop() })

	client, err := netrpc.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	return client, conns
}

func TestAdmin_Snapshot(t *testing.T) {
	client, _ := startAdmin(t)

	var reply SnapshotReply
	if err := client.Call("Admin.Snapshot", &SnapshotArgs{}, &reply); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := []string{"#####", "#PPG#", "#####"}
	for i := range want {
		if reply.Rows[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, reply.Rows[i], want[i])
		}
	}
	if reply.Map != "Small" || reply.Goal != 1 || reply.CurrentPlayer != 0 {
		t.Errorf("unexpected reply %+v", reply)
	}

	var bare SnapshotReply
	if err := client.Call("Admin.Snapshot", &SnapshotArgs{HidePlayers: true}, &bare); err != nil {
		t.Fatal(err)
	}
	if bare.Rows[1] != "#..G#" {
		t.Errorf("bare row = %q", bare.Rows[1])
	}
}

func TestAdmin_Roster(t *testing.T) {
	before := time.Now()
	client, _ := startAdmin(t)

	var reply RosterReply
	if err := client.Call("Admin.Roster", &RosterArgs{}, &reply); err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if len(reply.Players) != 2 || reply.Players[0].Name != "Player 0" || !reply.Players[1].Alive {
		t.Errorf("unexpected roster %+v", reply.Players)
	}
	if len(reply.LastActive) != 2 {
		t.Fatalf("expected activity for both players, got %v", reply.LastActive)
	}
	for id, at := range reply.LastActive {
		if at.Before(before) || at.After(time.Now()) {
			t.Errorf("player %d last active at %v, outside the test window", id, at)
		}
	}
}

func TestAdmin_Announce(t *testing.T) {
	client, conns := startAdmin(t)

	var reply AnnounceReply
	if err := client.Call("Admin.Announce", &AnnounceArgs{Text: "maintenance soon"}, &reply); err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if reply.Recipients != 2 {
		t.Errorf("expected 2 recipients, got %d", reply.Recipients)
	}
	for i, c := range conns {
		lines := c.lines()
		if len(lines) == 0 || lines[len(lines)-1] != "MESSAGE maintenance soon" {
			t.Errorf("conn %d got %q", i, lines)
		}
	}

	reply = AnnounceReply{}
	if err := client.Call("Admin.Announce", &AnnounceArgs{Text: "just you", PlayerIDs: []int{1}}, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Recipients != 1 {
		t.Errorf("expected 1 recipient, got %d", reply.Recipients)
	}
	if err := client.Call("Admin.Announce", &AnnounceArgs{}, &reply); err == nil {
		t.Error("expected an error for an empty announcement")
	}
}

func TestAdmin_History(t *testing.T) {
	client, _ := startAdmin(t)

	var reply HistoryReply
	if err := client.Call("Admin.History", &HistoryArgs{Limit: 1}, &reply); err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(reply.Games) != 1 || reply.Games[0].GameID != "g2" {
		t.Errorf("unexpected history %+v", reply.Games)
	}
}
