// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormGameRecord is the game_records table.
type GormGameRecord struct {
	gorm.Model
	GameID     string       `gorm:"uniqueIndex;not null"`
	RoomID     string       `gorm:"index;not null"`
	MapName    string       `gorm:"not null"`
	Goal       int          `gorm:"not null"`
	WinnerID   int          `gorm:"not null"`
	WinnerName string       `gorm:"not null"`
	Players    []PlayerInfo `gorm:"serializer:json;type:jsonb;not null"`
	StartedAt  int64        `gorm:"not null"` // unix millis
	FinishedAt int64        `gorm:"index;not null"`
}

func (GormGameRecord) TableName() string { return "game_records" }

// GormSessionRecord is the session_records table.
type GormSessionRecord struct {
	gorm.Model
	SessionID      string `gorm:"uniqueIndex;not null"`
	RemoteAddr     string
	Transport      string `gorm:"not null"`
	PlayerID       int
	PlayerName     string
	Commands       int    `gorm:"default:0"`
	Reason         string `gorm:"not null"`
	ConnectedAt    int64  `gorm:"not null"`
	DisconnectedAt int64  `gorm:"index;not null"`
}

func (GormSessionRecord) TableName() string { return "session_records" }
