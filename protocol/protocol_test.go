package protocol

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/world"
)

// lineFeed replays canned lines, then io.EOF.
type lineFeed struct {
	lines []string
}

func (f *lineFeed) ReadLine() (string, error) {
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	l := f.lines[0]
	f.lines = f.lines[1:]
	return l, nil
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"HELLO Alice", Hello{Name: "Alice"}},
		{"hello  Bob Smith ", Hello{Name: "Bob Smith"}},
		{"LOOK", Look{}},
		{"MOVE N", Move{Dir: world.North}},
		{"move w", Move{Dir: world.West}},
		{"ATTACK E", Attack{Dir: world.East}},
		{"PICKUP", Pickup{}},
		{"ENDTURN", EndTurn{}},
		{"SETPLAYERPOS 3 4", SetPlayerPos{Loc: world.Location{Col: 3, Row: 4}}},
		{"SHOUT hi all", Shout{Text: "hi all"}},
		{"", Quit{}},
		{"\r", Quit{}},
		{"DANCE wildly", Unknown{Verb: "DANCE"}},
	}
	for _, tt := range tests {
		got, err := DecodeCommand(tt.line)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.line, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%q: expected %#v, got %#v", tt.line, tt.want, got)
		}
	}
}

func TestDecodeCommand_Malformed(t *testing.T) {
	for _, line := range []string{"HELLO", "MOVE", "MOVE NE", "ATTACK x", "SETPLAYERPOS 1", "SETPLAYERPOS a b", "SHOUT  "} {
		if _, err := DecodeCommand(line); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: expected ErrMalformed, got %v", line, err)
		}
	}
}

func TestCommand_LineDecodesBack(t *testing.T) {
	for _, c := range []Command{
		Hello{Name: "Zed"},
		Move{Dir: world.South},
		Attack{Dir: world.North},
		SetPlayerPos{Loc: world.Location{Col: 7, Row: 1}},
		Shout{Text: "boo"},
		EndTurn{},
	} {
		got, err := DecodeCommand(c.Line())
		if err != nil || !reflect.DeepEqual(got, c) {
			t.Errorf("%q decoded to %#v, %v", c.Line(), got, err)
		}
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		ev   Event
		want []string
	}{
		{Success{}, []string{"SUCCESS"}},
		{Fail{Reason: "not your turn"}, []string{"FAIL not your turn"}},
		{HealthChanged{Delta: -2}, []string{"HITMOD -2"}},
		{GoldChanged{Delta: 1}, []string{"TREASUREMOD 1"}},
		{Goal{Amount: 3}, []string{"GOLD 3"}},
		{Greeting{Name: "Alice"}, []string{"HELLO Alice"}},
		{TurnEnded{}, []string{"ENDTURN"}},
		{LookReply{Rows: []string{"X.X", "...", "X#X"}}, []string{"LOOKREPLY", "X.X", "...", "X#X", ""}},
	}
	for _, tt := range tests {
		if got := Encode(tt.ev); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%#v: expected %q, got %q", tt.ev, tt.want, got)
		}
	}
}

func TestLookReply_RoundTrip(t *testing.T) {
	grid := []string{"XX.XX", "X...X", "..P..", "X.#.X", "XXEXX"}
	feed := &lineFeed{lines: Encode(LookReply{Rows: grid})}

	ev, err := ReadEvent(feed)
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	lr, ok := ev.(LookReply)
	if !ok {
		t.Fatalf("expected LookReply, got %#v", ev)
	}
	if !reflect.DeepEqual(lr.Rows, grid) {
		t.Errorf("expected %q, got %q", grid, lr.Rows)
	}
	if len(feed.lines) != 0 {
		t.Errorf("sentinel not consumed, %d lines left", len(feed.lines))
	}
}

func TestReadLookReply_Framing(t *testing.T) {
	tests := map[string][]string{
		"short row":        {"...", "..", "...", ""},
		"missing sentinel": {"...", "...", "...", "SUCCESS"},
		"empty first row":  {""},
	}
	for name, lines := range tests {
		if _, err := ReadLookReply(&lineFeed{lines: lines}); !errors.Is(err, ErrFraming) {
			t.Errorf("%s: expected ErrFraming, got %v", name, err)
		}
	}
	if _, err := ReadLookReply(&lineFeed{lines: []string{"..", ".."}}); !errors.Is(err, io.EOF) {
		t.Errorf("truncated stream: expected io.EOF, got %v", err)
	}
}

func TestReadEvent(t *testing.T) {
	feed := &lineFeed{lines: []string{"FAIL can't move into a wall", "HITMOD -1", "GOLD 2", "CHANGE", "BOGUS", "TREASUREMOD x"}}
	want := []Event{Fail{Reason: "can't move into a wall"}, HealthChanged{Delta: -1}, Goal{Amount: 2}, Changed{}, Unrecognized{Line: "BOGUS"}}
	for _, w := range want {
		got, err := ReadEvent(feed)
		if err != nil || !reflect.DeepEqual(got, w) {
			t.Errorf("expected %#v, got %#v, %v", w, got, err)
		}
	}
	if _, err := ReadEvent(feed); !errors.Is(err, ErrFraming) {
		t.Errorf("expected ErrFraming for a bad amount, got %v", err)
	}
}

func TestFromNotification(t *testing.T) {
	tests := []struct {
		n    game.Notification
		want Event
	}{
		{game.Notification{Kind: game.NotifyChange}, Changed{}},
		{game.Notification{Kind: game.NotifyStartTurn}, TurnStarted{}},
		{game.Notification{Kind: game.NotifyWin}, Won{}},
		{game.Notification{Kind: game.NotifyLose}, Lost{}},
		{game.Notification{Kind: game.NotifyHitMod, Delta: -2}, HealthChanged{Delta: -2}},
		{game.Notification{Kind: game.NotifyTreasureMod, Delta: 1}, GoldChanged{Delta: 1}},
		{game.Notification{Kind: game.NotifyMessage, Text: game.DeathMessage}, Message{Text: game.DeathMessage}},
	}
	for _, tt := range tests {
		if got := FromNotification(tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%v: expected %#v, got %#v", tt.n.Kind, tt.want, got)
		}
	}
}
