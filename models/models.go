// models/models.go
package models

import (
	"time"

	"github.com/wfunc/dungeonserver/game"
)

// Outcomes of a player in a finished game.
const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
)

// Reasons a session ended.
const (
	ReasonQuit     = "quit"
	ReasonError    = "error"
	ReasonShutdown = "shutdown"
)

// GameRecord is the audit record of a finished game.
type GameRecord struct {
	GameID     string       `json:"game_id"`
	RoomID     string       `json:"room_id"`
	MapName    string       `json:"map_name"`
	Goal       int          `json:"goal"`
	WinnerID   int          `json:"winner_id"`
	WinnerName string       `json:"winner_name"`
	Players    []PlayerInfo `json:"players"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// PlayerInfo is one roster entry of a GameRecord.
type PlayerInfo struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Outcome  string `json:"outcome"`
	Gold     int    `json:"gold"`
	Health   int    `json:"health"`
	Alive    bool   `json:"alive"`
}

// SessionRecord is the audit record of one client connection.
type SessionRecord struct {
	SessionID      string    `json:"session_id"`
	RemoteAddr     string    `json:"remote_addr"`
	Transport      string    `json:"transport"`
	PlayerID       int       `json:"player_id"`
	PlayerName     string    `json:"player_name"`
	Commands       int       `json:"commands"`
	Reason         string    `json:"reason"`
	ConnectedAt    time.Time `json:"connected_at"`
	DisconnectedAt time.Time `json:"disconnected_at"`
}

// NewGameRecord builds the record of a game won by winner.
func NewGameRecord(gameID, roomID, mapName string, goal int, startedAt time.Time, winner game.PlayerView, roster []game.PlayerView) *GameRecord {
	rec := &GameRecord{
		GameID:     gameID,
		RoomID:     roomID,
		MapName:    mapName,
		Goal:       goal,
		WinnerID:   winner.ID,
		WinnerName: winner.Name,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Players:    make([]PlayerInfo, 0, len(roster)),
	}
	for _, p := range roster {
		outcome := OutcomeLose
		if p.ID == winner.ID {
			outcome = OutcomeWin
		}
		rec.Players = append(rec.Players, PlayerInfo{
			PlayerID: p.ID,
			Name:     p.Name,
			Outcome:  outcome,
			Gold:     p.Gold,
			Health:   p.Health,
			Alive:    p.Alive,
		})
	}
	return rec
}
