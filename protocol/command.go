// Package protocol is the line grammar spoken between clients and the server.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wfunc/dungeonserver/world"
)

// Inbound verbs.
const (
	VerbHello        = "HELLO"
	VerbLook         = "LOOK"
	VerbMove         = "MOVE"
	VerbAttack       = "ATTACK"
	VerbPickup       = "PICKUP"
	VerbEndTurn      = "ENDTURN"
	VerbSetPlayerPos = "SETPLAYERPOS"
	VerbShout        = "SHOUT"
)

// ErrMalformed is returned for a known verb with a bad payload.
var ErrMalformed = errors.New("malformed command")

// Command is one decoded client line. The set of implementations is closed.
type Command interface {
	// Line renders the command as it goes on the wire.
	Line() string
	command()
}

type (
	// Hello sets the player's display name.
	Hello struct{ Name string }
	// Look asks for the area around the player.
	Look struct{}
	// Move walks one tile.
	Move struct{ Dir world.CompassDirection }
	// Attack strikes the adjacent tile.
	Attack struct{ Dir world.CompassDirection }
	// Pickup takes the item underfoot.
	Pickup struct{}
	// EndTurn gives up the rest of the turn.
	EndTurn struct{}
	// SetPlayerPos teleports the player; a debugging aid.
	SetPlayerPos struct{ Loc world.Location }
	// Shout messages every player.
	Shout struct{ Text string }
	// Quit is the empty line a client sends before hanging up.
	Quit struct{}
	// Unknown is any verb not listed above. It is ignored.
	Unknown struct{ Verb string }
)

func (Hello) command()        {}
func (Look) command()         {}
func (Move) command()         {}
func (Attack) command()       {}
func (Pickup) command()       {}
func (EndTurn) command()      {}
func (SetPlayerPos) command() {}
func (Shout) command()        {}
func (Quit) command()         {}
func (Unknown) command()      {}

func (c Hello) Line() string  { return VerbHello + " " + c.Name }
func (Look) Line() string     { return VerbLook }
func (c Move) Line() string   { return VerbMove + " " + c.Dir.String() }
func (c Attack) Line() string { return VerbAttack + " " + c.Dir.String() }
func (Pickup) Line() string   { return VerbPickup }
func (EndTurn) Line() string  { return VerbEndTurn }
func (c SetPlayerPos) Line() string {
	return fmt.Sprintf("%s %d %d", VerbSetPlayerPos, c.Loc.Col, c.Loc.Row)
}
func (c Shout) Line() string   { return VerbShout + " " + c.Text }
func (Quit) Line() string      { return "" }
func (c Unknown) Line() string { return c.Verb }

// splitVerb cuts a line at its first space.
func splitVerb(line string) (verb, payload string) {
	verb, payload, _ = strings.Cut(line, " ")
	return verb, payload
}

// DecodeCommand parses one client line. Verbs are case-insensitive; an empty
// line decodes to Quit and an unrecognised verb to Unknown.
func DecodeCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Quit{}, nil
	}
	verb, payload := splitVerb(line)
	switch strings.ToUpper(verb) {
	case VerbHello:
		name := strings.TrimSpace(payload)
		if name == "" {
			return nil, fmt.Errorf("%w: %s needs a name", ErrMalformed, VerbHello)
		}
		return Hello{Name: name}, nil
	case VerbLook:
		return Look{}, nil
	case VerbMove:
		dir, err := world.ParseCompassDirection(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Move{Dir: dir}, nil
	case VerbAttack:
		dir, err := world.ParseCompassDirection(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Attack{Dir: dir}, nil
	case VerbPickup:
		return Pickup{}, nil
	case VerbEndTurn:
		return EndTurn{}, nil
	case VerbSetPlayerPos:
		f := strings.Fields(payload)
		if len(f) != 2 {
			return nil, fmt.Errorf("%w: %s needs a column and a row", ErrMalformed, VerbSetPlayerPos)
		}
		col, err1 := strconv.Atoi(f[0])
		row, err2 := strconv.Atoi(f[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: bad position %q", ErrMalformed, payload)
		}
		return SetPlayerPos{Loc: world.Location{Col: col, Row: row}}, nil
	case VerbShout:
		if strings.TrimSpace(payload) == "" {
			return nil, fmt.Errorf("%w: %s needs some text", ErrMalformed, VerbShout)
		}
		return Shout{Text: payload}, nil
	default:
		return Unknown{Verb: verb}, nil
	}
}
