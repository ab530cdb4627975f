// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/wfunc/dungeonserver/models"
)

// PostgreSQL stores history with plain SQL over lib/pq.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgreSQL{db: db}, nil
}

func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            game_id VARCHAR(64) UNIQUE NOT NULL,
            room_id VARCHAR(255) NOT NULL,
            map_name VARCHAR(255) NOT NULL,
            goal INTEGER NOT NULL,
            winner_id INTEGER NOT NULL,
            winner_name VARCHAR(255) NOT NULL,
            players JSONB NOT NULL,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS session_records (
            id SERIAL PRIMARY KEY,
            session_id VARCHAR(64) UNIQUE NOT NULL,
            remote_addr VARCHAR(255),
            transport VARCHAR(16) NOT NULL,
            player_id INTEGER,
            player_name VARCHAR(255),
            commands INTEGER DEFAULT 0,
            reason VARCHAR(32) NOT NULL,
            connected_at TIMESTAMPTZ NOT NULL,
            disconnected_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_records_finished_at ON game_records(finished_at);
        CREATE INDEX IF NOT EXISTS idx_session_records_disconnected_at ON session_records(disconnected_at);
    `)
	return err
}

func (p *PostgreSQL) SaveGameRecord(ctx context.Context, rec *models.GameRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO game_records (game_id, room_id, map_name, goal, winner_id, winner_name, players, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, rec.GameID, rec.RoomID, rec.MapName, rec.Goal, rec.WinnerID, rec.WinnerName, players, rec.StartedAt, rec.FinishedAt)
	return err
}

func (p *PostgreSQL) SaveSessionRecord(ctx context.Context, rec *models.SessionRecord) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO session_records (session_id, remote_addr, transport, player_id, player_name, commands, reason, connected_at, disconnected_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, rec.SessionID, rec.RemoteAddr, rec.Transport, rec.PlayerID, rec.PlayerName, rec.Commands, rec.Reason, rec.ConnectedAt, rec.DisconnectedAt)
	return err
}

const gameColumns = `game_id, room_id, map_name, goal, winner_id, winner_name, players, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (models.GameRecord, error) {
	var (
		rec     models.GameRecord
		players []byte
	)
	err := row.Scan(&rec.GameID, &rec.RoomID, &rec.MapName, &rec.Goal, &rec.WinnerID, &rec.WinnerName,
		&players, &rec.StartedAt, &rec.FinishedAt)
	if err != nil {
		return rec, err
	}
	return rec, json.Unmarshal(players, &rec.Players)
}

func (p *PostgreSQL) GameRecord(ctx context.Context, gameID string) (*models.GameRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM game_records WHERE game_id = $1`, gameID)
	rec, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (p *PostgreSQL) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM game_records ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
