package models

import "time"

func (r *GameRecord) ToGorm() *GormGameRecord {
	return &GormGameRecord{
		GameID:     r.GameID,
		RoomID:     r.RoomID,
		MapName:    r.MapName,
		Goal:       r.Goal,
		WinnerID:   r.WinnerID,
		WinnerName: r.WinnerName,
		Players:    r.Players,
		StartedAt:  r.StartedAt.UnixMilli(),
		FinishedAt: r.FinishedAt.UnixMilli(),
	}
}

func (g *GormGameRecord) ToRecord() GameRecord {
	return GameRecord{
		GameID:     g.GameID,
		RoomID:     g.RoomID,
		MapName:    g.MapName,
		Goal:       g.Goal,
		WinnerID:   g.WinnerID,
		WinnerName: g.WinnerName,
		Players:    g.Players,
		StartedAt:  time.UnixMilli(g.StartedAt),
		FinishedAt: time.UnixMilli(g.FinishedAt),
	}
}

func (r *SessionRecord) ToGorm() *GormSessionRecord {
	return &GormSessionRecord{
		SessionID:      r.SessionID,
		RemoteAddr:     r.RemoteAddr,
		Transport:      r.Transport,
		PlayerID:       r.PlayerID,
		PlayerName:     r.PlayerName,
		Commands:       r.Commands,
		Reason:         r.Reason,
		ConnectedAt:    r.ConnectedAt.UnixMilli(),
		DisconnectedAt: r.DisconnectedAt.UnixMilli(),
	}
}
