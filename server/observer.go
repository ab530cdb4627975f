package server

import (
	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/logger"
)

// LogObserver writes roster events to the operator log.
type LogObserver struct{}

func (LogObserver) PlayerJoined(p game.PlayerView) {
	logger.Log.Infow("player joined", "player", p.ID, "name", p.Name, "col", p.Col, "row", p.Row)
}

func (LogObserver) PlayerLeft(p game.PlayerView) {
	logger.Log.Infow("player left", "player", p.ID, "name", p.Name, "gold", p.Gold)
}

func (LogObserver) GameWon(winner game.PlayerView, roster []game.PlayerView) {
	logger.Log.Infow("game won", "player", winner.ID, "name", winner.Name, "gold", winner.Gold, "players", len(roster))
}
