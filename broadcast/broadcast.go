// broadcast/broadcast.go
package broadcast

import (
	"go.uber.org/multierr"

	"github.com/wfunc/dungeonserver/protocol"
	"github.com/wfunc/dungeonserver/session"
)

// Broadcaster pushes an event to many connections at once, outside the game
// engine: operator announcements and shutdown notices.
type Broadcaster interface {
	BroadcastToAll(ev protocol.Event) (int, error)
	BroadcastToPlayers(playerIDs []int, ev protocol.Event) (int, error)
}

// SessionBroadcaster sends to the sessions of a session.Manager.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{sessionManager: sessionManager}
}

// BroadcastToAll reaches every open session, joined or not, and reports how
// many sends succeeded. Failed sends are combined into one error; the rest
// still go out.
func (b *SessionBroadcaster) BroadcastToAll(ev protocol.Event) (int, error) {
	return send(b.sessionManager.All(), ev)
}

func (b *SessionBroadcaster) BroadcastToPlayers(playerIDs []int, ev protocol.Event) (int, error) {
	targets := make([]*session.Session, 0, len(playerIDs))
	for _, id := range playerIDs {
		if s, ok := b.sessionManager.GetByPlayerID(id); ok {
			targets = append(targets, s)
		}
	}
	return send(targets, ev)
}

func send(targets []*session.Session, ev protocol.Event) (int, error) {
	var (
		sent int
		errs error
	)
	for _, s := range targets {
		if err := s.Send(ev); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		sent++
	}
	return sent, errs
}
