// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/logger"
	"github.com/wfunc/dungeonserver/network"
	"github.com/wfunc/dungeonserver/protocol"
)

// NoPlayer is the PlayerID of a session that has not joined yet.
const NoPlayer = -1

// Session is one connected client. It is the game.Listener of its player, so
// engine notifications are written straight to the connection.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	lastActive time.Time
	playerID   int
	closed     bool
	closeOnce  sync.Once
	mutex      sync.RWMutex
}

func NewSession(conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		playerID:   NoPlayer,
	}
}

func (s *Session) PlayerID() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.playerID
}

func (s *Session) SetPlayerID(id int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.playerID = id
}

// LastActive is when the client last sent a line.
func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// Touch records client activity.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

// Send writes ev to the client. A failed write closes the session, which
// ends its read loop.
func (s *Session) Send(ev protocol.Event) error {
	if s.Closed() {
		return network.ErrConnectionClosed
	}
	if err := s.Conn.WriteLines(ev.Lines()...); err != nil {
		logger.Log.Debugw("write failed, closing session", "session", s.ID, "error", err)
		s.Close()
		return err
	}
	return nil
}

// Notify implements game.Listener.
func (s *Session) Notify(n game.Notification) {
	_ = s.Send(protocol.FromNotification(n))
}

func (s *Session) GetID() string {
	return s.ID
}

// Close closes the connection once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		s.mutex.Unlock()
		err = s.Conn.Close()
	})
	return err
}

func (s *Session) Closed() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.closed
}

// Manager tracks open sessions.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByPlayerID finds the session driving a player.
func (m *Manager) GetByPlayerID(playerID int) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, session := range m.sessions {
		if session.PlayerID() == playerID {
			return session, true
		}
	}
	return nil, false
}

// LastActive reports when the client driving playerID last sent a line.
func (m *Manager) LastActive(playerID int) (time.Time, bool) {
	session, ok := m.GetByPlayerID(playerID)
	if !ok {
		return time.Time{}, false
	}
	return session.LastActive(), true
}

// All returns a snapshot of the open sessions.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
