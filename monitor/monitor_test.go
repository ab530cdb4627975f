package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wfunc/dungeonserver/game"
)

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor("test")

	m.IncMessagesReceived("MOVE")
	m.IncMessagesReceived("MOVE")
	m.IncMessagesReceived("LOOK")
	m.IncCommandFailures()
	m.IncOnlinePlayers("tcp")
	m.IncOnlinePlayers("tcp")
	m.DecOnlinePlayers("tcp")
	m.ObserveMessageLatency(3 * time.Millisecond)

	mt := m.Metrics()
	if got := testutil.ToFloat64(mt.MessagesReceived.WithLabelValues("MOVE")); got != 2 {
		t.Errorf("Expected 2 MOVE messages, got %v", got)
	}
	if got := testutil.ToFloat64(mt.CommandFailures); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(mt.OnlinePlayers.WithLabelValues("tcp")); got != 1 {
		t.Errorf("Expected 1 online tcp player, got %v", got)
	}
	if got := testutil.CollectAndCount(mt.MessageLatency); got != 1 {
		t.Errorf("Expected one latency series, got %d", got)
	}
	if m.RequestCount() != 3 {
		t.Errorf("Expected request count 3, got %d", m.RequestCount())
	}
}

func TestMonitor_Observer(t *testing.T) {
	m := NewMonitor("test")
	var obs game.Observer = m

	obs.PlayerJoined(game.PlayerView{ID: 0})
	obs.PlayerJoined(game.PlayerView{ID: 1})
	obs.PlayerLeft(game.PlayerView{ID: 1})
	obs.GameWon(game.PlayerView{ID: 0}, nil)

	if got := testutil.ToFloat64(m.Metrics().LivingPlayers); got != 1 {
		t.Errorf("Expected 1 living player, got %v", got)
	}
	if got := testutil.ToFloat64(m.Metrics().GamesWon); got != 1 {
		t.Errorf("Expected 1 game won, got %v", got)
	}
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor("dungeon")
	m.IncMessagesReceived("HELLO")
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	for path, want := range map[string]string{
		"/healthz":    "ok",
		"/metrics":    `dungeon_messages_received_total{verb="HELLO"} 1`,
		"/debug/vars": `"uptime"`,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Errorf("GET %s: status %d, body missing %q", path, resp.StatusCode, want)
		}
	}
}
