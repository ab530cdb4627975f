// services/record_service.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/logger"
	"github.com/wfunc/dungeonserver/models"
	"github.com/wfunc/dungeonserver/persistence"
)

const (
	defaultQueueSize = 64
	saveTimeout      = 5 * time.Second
)

// GameInfo describes the game being recorded.
type GameInfo struct {
	RoomID  string
	MapName string
	Goal    int
}

// RecordService writes match history off the game loop. It implements
// game.Observer; every enqueue is non-blocking and a full queue drops the
// record with a warning.
type RecordService struct {
	db   persistence.Database
	info GameInfo

	mutex     sync.Mutex
	startedAt time.Time
	closed    bool

	queue chan func(ctx context.Context) error
	done  chan struct{}
}

func NewRecordService(db persistence.Database, info GameInfo) *RecordService {
	return NewRecordServiceSize(db, info, defaultQueueSize)
}

// NewRecordServiceSize is NewRecordService with an explicit queue size.
func NewRecordServiceSize(db persistence.Database, info GameInfo, size int) *RecordService {
	s := &RecordService{
		db:    db,
		info:  info,
		queue: make(chan func(ctx context.Context) error, size),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *RecordService) run() {
	defer close(s.done)
	for job := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := job(ctx); err != nil {
			logger.Log.Errorf("Failed to save history record: %v", err)
		}
		cancel()
	}
}

func (s *RecordService) enqueue(kind string, job func(ctx context.Context) error) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- job:
		return true
	default:
		logger.Log.Warnf("History queue full, dropping %s record", kind)
		return false
	}
}

// PlayerJoined marks the start of the game on the first join.
func (s *RecordService) PlayerJoined(game.PlayerView) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
}

func (s *RecordService) PlayerLeft(game.PlayerView) {}

func (s *RecordService) GameWon(winner game.PlayerView, roster []game.PlayerView) {
	s.mutex.Lock()
	startedAt := s.startedAt
	s.mutex.Unlock()

	rec := models.NewGameRecord(uuid.New().String(), s.info.RoomID, s.info.MapName, s.info.Goal,
		startedAt, winner, roster)
	s.enqueue("game", func(ctx context.Context) error {
		if err := s.db.SaveGameRecord(ctx, rec); err != nil {
			return err
		}
		logger.Log.Infof("Recorded game %s won by %s", rec.GameID, rec.WinnerName)
		return nil
	})
}

// RecordSession queues the audit record of a finished connection.
func (s *RecordService) RecordSession(rec *models.SessionRecord) {
	s.enqueue("session", func(ctx context.Context) error {
		return s.db.SaveSessionRecord(ctx, rec)
	})
}

// History returns up to limit finished games, newest first.
func (s *RecordService) History(ctx context.Context, limit int) ([]models.GameRecord, error) {
	return s.db.RecentGames(ctx, limit)
}

// Close stops accepting records and waits for queued ones to be written.
func (s *RecordService) Close() {
	s.mutex.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mutex.Unlock()
	<-s.done
}
