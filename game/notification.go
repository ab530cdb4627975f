package game

// NotificationKind classifies what happened to a player.
type NotificationKind int

const (
	NotifyChange      NotificationKind = iota // something visible changed
	NotifyMessage                             // free text
	NotifyStartTurn                           // it is now your turn
	NotifyEndTurn                             // your turn is over
	NotifyWin                                 // you won
	NotifyLose                                // someone else won
	NotifyHitMod                              // health changed by Delta
	NotifyTreasureMod                         // gold changed by Delta
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyChange:
		return "change"
	case NotifyMessage:
		return "message"
	case NotifyStartTurn:
		return "start_turn"
	case NotifyEndTurn:
		return "end_turn"
	case NotifyWin:
		return "win"
	case NotifyLose:
		return "lose"
	case NotifyHitMod:
		return "hit_mod"
	case NotifyTreasureMod:
		return "treasure_mod"
	default:
		return "unknown"
	}
}

// Notification is an asynchronous event addressed to one player.
type Notification struct {
	Kind  NotificationKind
	Text  string
	Delta int
}

// Listener receives the notifications of one player. Notify is called from
// inside the engine and must not call back into it.
type Listener interface {
	Notify(n Notification)
}

// ListenerFunc adapts a func to Listener.
type ListenerFunc func(n Notification)

func (f ListenerFunc) Notify(n Notification) { f(n) }

// PlayerView is a read-only copy of a player's state.
type PlayerView struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Col    int      `json:"col"`
	Row    int      `json:"row"`
	Health int      `json:"health"`
	Gold   int      `json:"gold"`
	AP     int      `json:"ap"`
	Alive  bool     `json:"alive"`
	Won    bool     `json:"won"`
	Items  []string `json:"items"`
}

// Observer is told about roster-level events, for operators rather than
// players. Calls happen inside the engine and must not block.
type Observer interface {
	PlayerJoined(p PlayerView)
	PlayerLeft(p PlayerView)
	GameWon(winner PlayerView, roster []PlayerView)
}

// Observers fans out to several observers in order.
type Observers []Observer

func (o Observers) PlayerJoined(p PlayerView) {
	for _, ob := range o {
		ob.PlayerJoined(p)
	}
}

func (o Observers) PlayerLeft(p PlayerView) {
	for _, ob := range o {
		ob.PlayerLeft(p)
	}
}

func (o Observers) GameWon(winner PlayerView, roster []PlayerView) {
	for _, ob := range o {
		ob.GameWon(winner, roster)
	}
}
