package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wfunc/dungeonserver/game"
)

// Outbound verbs.
const (
	VerbSuccess     = "SUCCESS"
	VerbFail        = "FAIL"
	VerbLookReply   = "LOOKREPLY"
	VerbChange      = "CHANGE"
	VerbMessage     = "MESSAGE"
	VerbStartTurn   = "STARTTURN"
	VerbWin         = "WIN"
	VerbLose        = "LOSE"
	VerbHitMod      = "HITMOD"
	VerbTreasureMod = "TREASUREMOD"
	VerbGold        = "GOLD"
	// ENDTURN and HELLO are shared with the inbound set.
)

// ErrFraming means the stream no longer follows the grammar. The connection
// cannot recover from it.
var ErrFraming = errors.New("protocol framing error")

// Event is one server message. The set of implementations is closed.
type Event interface {
	// Lines renders the event; only LookReply spans more than one line.
	Lines() []string
	event()
}

type (
	// Success acknowledges a command.
	Success struct{}
	// Fail rejects a command.
	Fail struct{ Reason string }
	// LookReply carries the square around the player.
	LookReply struct{ Rows []string }
	// Changed says something visible changed; look again.
	Changed struct{}
	// Message is free text.
	Message struct{ Text string }
	// TurnStarted says it is your turn.
	TurnStarted struct{}
	// TurnEnded says your turn is over.
	TurnEnded struct{}
	// Won says you won.
	Won struct{}
	// Lost says someone else won.
	Lost struct{}
	// HealthChanged carries a signed health delta.
	HealthChanged struct{ Delta int }
	// GoldChanged carries a signed gold delta.
	GoldChanged struct{ Delta int }
	// Goal announces the gold needed to win.
	Goal struct{ Amount int }
	// Greeting echoes the accepted name.
	Greeting struct{ Name string }
	// Unrecognized is any line a reader did not understand.
	Unrecognized struct{ Line string }
)

func (Success) event()       {}
func (Fail) event()          {}
func (LookReply) event()     {}
func (Changed) event()       {}
func (Message) event()       {}
func (TurnStarted) event()   {}
func (TurnEnded) event()     {}
func (Won) event()           {}
func (Lost) event()          {}
func (HealthChanged) event() {}
func (GoldChanged) event()   {}
func (Goal) event()          {}
func (Greeting) event()      {}
func (Unrecognized) event()  {}

func one(verb string) []string { return []string{verb} }

func withPayload(verb string, payload any) []string {
	return []string{fmt.Sprintf("%s %v", verb, payload)}
}

func (Success) Lines() []string         { return one(VerbSuccess) }
func (e Fail) Lines() []string          { return withPayload(VerbFail, e.Reason) }
func (Changed) Lines() []string         { return one(VerbChange) }
func (e Message) Lines() []string       { return withPayload(VerbMessage, e.Text) }
func (TurnStarted) Lines() []string     { return one(VerbStartTurn) }
func (TurnEnded) Lines() []string       { return one(VerbEndTurn) }
func (Won) Lines() []string             { return one(VerbWin) }
func (Lost) Lines() []string            { return one(VerbLose) }
func (e HealthChanged) Lines() []string { return withPayload(VerbHitMod, e.Delta) }
func (e GoldChanged) Lines() []string   { return withPayload(VerbTreasureMod, e.Delta) }
func (e Goal) Lines() []string          { return withPayload(VerbGold, e.Amount) }
func (e Greeting) Lines() []string      { return withPayload(VerbHello, e.Name) }
func (e Unrecognized) Lines() []string  { return one(e.Line) }

// Lines renders LOOKREPLY, the rows, and an empty sentinel line.
func (e LookReply) Lines() []string {
	out := make([]string, 0, len(e.Rows)+2)
	out = append(out, VerbLookReply)
	out = append(out, e.Rows...)
	return append(out, "")
}

// Encode renders ev as wire lines.
func Encode(ev Event) []string { return ev.Lines() }

// FromNotification maps an engine notification to its wire event.
func FromNotification(n game.Notification) Event {
	switch n.Kind {
	case game.NotifyChange:
		return Changed{}
	case game.NotifyMessage:
		return Message{Text: n.Text}
	case game.NotifyStartTurn:
		return TurnStarted{}
	case game.NotifyEndTurn:
		return TurnEnded{}
	case game.NotifyWin:
		return Won{}
	case game.NotifyLose:
		return Lost{}
	case game.NotifyHitMod:
		return HealthChanged{Delta: n.Delta}
	case game.NotifyTreasureMod:
		return GoldChanged{Delta: n.Delta}
	default:
		return Unrecognized{Line: n.Kind.String()}
	}
}

// LineReader yields lines without their terminators.
type LineReader interface {
	ReadLine() (string, error)
}

// ReadEvent reads one event, consuming the whole block for LOOKREPLY.
func ReadEvent(r LineReader) (Event, error) {
	line, err := r.ReadLine()
	if err != nil {
		return nil, err
	}
	verb, payload := splitVerb(strings.TrimRight(line, "\r"))
	switch verb {
	case VerbLookReply:
		rows, err := ReadLookReply(r)
		if err != nil {
			return nil, err
		}
		return LookReply{Rows: rows}, nil
	case VerbSuccess:
		return Success{}, nil
	case VerbFail:
		return Fail{Reason: payload}, nil
	case VerbChange:
		return Changed{}, nil
	case VerbMessage:
		return Message{Text: payload}, nil
	case VerbStartTurn:
		return TurnStarted{}, nil
	case VerbEndTurn:
		return TurnEnded{}, nil
	case VerbWin:
		return Won{}, nil
	case VerbLose:
		return Lost{}, nil
	case VerbHitMod, VerbTreasureMod, VerbGold:
		n, err := strconv.Atoi(strings.TrimSpace(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: %s with bad amount %q", ErrFraming, verb, payload)
		}
		switch verb {
		case VerbHitMod:
			return HealthChanged{Delta: n}, nil
		case VerbTreasureMod:
			return GoldChanged{Delta: n}, nil
		default:
			return Goal{Amount: n}, nil
		}
	case VerbHello:
		return Greeting{Name: payload}, nil
	default:
		return Unrecognized{Line: line}, nil
	}
}

// ReadLookReply reads the rows following a LOOKREPLY line. The first row's
// length N fixes the block: N rows of N characters, then an empty sentinel.
// Any deviation is ErrFraming.
func ReadLookReply(r LineReader) ([]string, error) {
	first, err := r.ReadLine()
	if err != nil {
		return nil, err
	}
	first = strings.TrimRight(first, "\r")
	n := len(first)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty look reply", ErrFraming)
	}
	rows := make([]string, 1, n)
	rows[0] = first
	for len(rows) < n {
		row, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		row = strings.TrimRight(row, "\r")
		if len(row) != n {
			return nil, fmt.Errorf("%w: look row %d has width %d, want %d", ErrFraming, len(rows), len(row), n)
		}
		rows = append(rows, row)
	}
	sentinel, err := r.ReadLine()
	if err != nil {
		return nil, err
	}
	if strings.TrimRight(sentinel, "\r") != "" {
		return nil, fmt.Errorf("%w: look reply not terminated by an empty line", ErrFraming)
	}
	return rows, nil
}
