package persistence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bbolt "go.etcd.io/bbolt"

	"github.com/wfunc/dungeonserver/models"
)

var (
	bucketGames    = []byte("games")    // seq -> GameRecord JSON
	bucketGameIDs  = []byte("game_ids") // game id -> seq
	bucketSessions = []byte("sessions") // seq -> SessionRecord JSON
)

// BoltStore keeps history in a local bbolt file. Records are keyed by an
// insertion sequence, so cursor order is chronological.
type BoltStore struct {
	bolt *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketGames, bucketGameIDs, bucketSessions} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}
	return &BoltStore{bolt: db}, nil
}

func seqKey(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func (s *BoltStore) SaveGameRecord(_ context.Context, rec *models.GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("boltstore: encode game %s: %w", rec.GameID, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		games := tx.Bucket(bucketGames)
		seq, err := games.NextSequence()
		if err != nil {
			return err
		}
		key := seqKey(seq)
		if err := games.Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketGameIDs).Put([]byte(rec.GameID), key)
	})
}

func (s *BoltStore) SaveSessionRecord(_ context.Context, rec *models.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("boltstore: encode session %s: %w", rec.SessionID, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

func (s *BoltStore) GameRecord(_ context.Context, gameID string) (*models.GameRecord, error) {
	var rec models.GameRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketGameIDs).Get([]byte(gameID))
		if key == nil {
			return ErrRecordNotFound
		}
		data := tx.Bucket(bucketGames).Get(key)
		if data == nil {
			return ErrRecordNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltStore) RecentGames(_ context.Context, limit int) ([]models.GameRecord, error) {
	var out []models.GameRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketGames).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var rec models.GameRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("boltstore: decode game %x: %w", k, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// SessionCount reports how many session records are stored.
func (s *BoltStore) SessionCount() (int, error) {
	n := 0
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketSessions).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}
