// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/dungeonserver/config"
	"github.com/wfunc/dungeonserver/models"
)

// Database stores match history. It is an audit trail: nothing is ever
// loaded back into a running game.
type Database interface {
	SaveGameRecord(ctx context.Context, rec *models.GameRecord) error
	SaveSessionRecord(ctx context.Context, rec *models.SessionRecord) error
	GameRecord(ctx context.Context, gameID string) (*models.GameRecord, error)
	// RecentGames returns up to limit games, newest first.
	RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error)
	Close() error
}

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownDriver  = errors.New("unknown recorder driver")
)

// Open builds the Database selected by cfg.Driver.
func Open(cfg config.RecorderConfig) (Database, error) {
	var (
		db  Database
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return NopDatabase{}, nil
	case "gorm":
		db, err = NewGormPostgreSQL(cfg.Postgres.DSN())
	case "postgres":
		db, err = NewPostgreSQL(cfg.Postgres.DSN())
	case "bolt":
		db, err = NewBoltStore(cfg.BoltPath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s recorder: %w", cfg.Driver, err)
	}
	return db, nil
}

// NopDatabase discards everything.
type NopDatabase struct{}

func (NopDatabase) SaveGameRecord(context.Context, *models.GameRecord) error       { return nil }
func (NopDatabase) SaveSessionRecord(context.Context, *models.SessionRecord) error { return nil }
func (NopDatabase) GameRecord(context.Context, string) (*models.GameRecord, error) {
	return nil, ErrRecordNotFound
}
func (NopDatabase) RecentGames(context.Context, int) ([]models.GameRecord, error) { return nil, nil }
func (NopDatabase) Close() error                                                { return nil }
