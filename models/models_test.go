package models

import (
	"testing"
	"time"

	"github.com/wfunc/dungeonserver/game"
)

func TestNewGameRecord(t *testing.T) {
	winner := game.PlayerView{ID: 1, Name: "Alice", Gold: 2, Health: 3, Alive: true}
	roster := []game.PlayerView{
		{ID: 0, Name: "Bob", Gold: 1, Alive: false},
		winner,
	}
	rec := NewGameRecord("g1", "main", "Small", 2, time.Now().Add(-time.Minute), winner, roster)

	if rec.WinnerID != 1 || rec.WinnerName != "Alice" {
		t.Errorf("unexpected winner %d %q", rec.WinnerID, rec.WinnerName)
	}
	if len(rec.Players) != 2 || rec.Players[0].Outcome != OutcomeLose || rec.Players[1].Outcome != OutcomeWin {
		t.Errorf("unexpected roster %+v", rec.Players)
	}
	if !rec.FinishedAt.After(rec.StartedAt) {
		t.Error("finish must come after start")
	}
}

func TestGameRecord_GormConversion(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	rec := &GameRecord{GameID: "g2", Goal: 1, StartedAt: start, FinishedAt: start.Add(time.Second),
		Players: []PlayerInfo{{PlayerID: 0, Outcome: OutcomeWin}}}

	back := rec.ToGorm().ToRecord()
	if back.GameID != "g2" || !back.StartedAt.Equal(start) || !back.FinishedAt.Equal(rec.FinishedAt) {
		t.Errorf("conversion lost data: %+v", back)
	}
	if len(back.Players) != 1 || back.Players[0].Outcome != OutcomeWin {
		t.Errorf("players lost: %+v", back.Players)
	}
}
