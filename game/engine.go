package game

import (
	"fmt"
	"strings"

	"github.com/wfunc/dungeonserver/state"
	"github.com/wfunc/dungeonserver/world"
)

// TurnState is where a player stands in the turn cycle.
type TurnState int

const (
	Waiting TurnState = iota
	ActiveWithAP
	ActiveExhausted
)

func (s TurnState) String() string {
	switch s {
	case ActiveWithAP:
		return "active"
	case ActiveExhausted:
		return "exhausted"
	default:
		return "waiting"
	}
}

// DeathMessage is sent to a player killed in combat.
const DeathMessage = "How sad - you died..."

// Engine holds the map and the roster and applies the rules. It is not safe
// for concurrent use; callers serialize access (see package room).
type Engine struct {
	m        *world.Map
	rules    Rules
	rng      Rand
	observer Observer
	phases   *state.GamePhases

	players []*Player
	current int
	winner  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules overrides DefaultRules.
func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithRand injects the randomness used for spawning and combat.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithObserver registers an operator-facing observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates a game on m. It fails if the map cannot satisfy its goal.
func NewEngine(m *world.Map, opts ...Option) (*Engine, error) {
	if m == nil {
		return nil, ErrNilMap
	}
	if got := m.RemainingGold(); got < m.Goal() {
		return nil, fmt.Errorf("%w: have %d, goal %d", world.ErrInsufficientGold, got, m.Goal())
	}
	e := &Engine{
		m:       m,
		rules:   DefaultRules(),
		current: -1,
		winner:  -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = newDefaultRand()
	}
	if e.observer == nil {
		e.observer = Observers(nil)
	}
	e.phases = state.NewGamePhases(e.onPlaying, e.onWon)
	return e, nil
}

func (e *Engine) onPlaying() {
	e.current = 0
	e.players[0].startTurn()
}

func (e *Engine) onWon() {
	w := e.players[e.winner]
	w.won = true
	w.notify(Notification{Kind: NotifyWin})
	for _, p := range e.players {
		if p != w {
			p.notify(Notification{Kind: NotifyLose})
		}
	}
	e.observer.GameWon(w.View(), e.Players())
}

// Map returns the game's map.
func (e *Engine) Map() *world.Map { return e.m }

// Rules returns the rules in force.
func (e *Engine) Rules() Rules { return e.rules }

// Goal is the gold needed to win.
func (e *Engine) Goal() int { return e.m.Goal() }

// Won reports whether someone has won. Once true it stays true.
func (e *Engine) Won() bool { return e.phases.Is(state.PhaseWon) }

// Phase returns the id of the current game phase.
func (e *Engine) Phase() string { return e.phases.GetCurrentState().GetID() }

// CurrentPlayer is the index holding the turn, or -1 before anyone joined.
func (e *Engine) CurrentPlayer() int { return e.current }

// Winner returns the winner's id, or -1.
func (e *Engine) Winner() int { return e.winner }

// Player returns the player with id.
func (e *Engine) Player(id int) (*Player, error) {
	if id < 0 || id >= len(e.players) {
		return nil, ErrUnknownPlayer
	}
	return e.players[id], nil
}

// Players copies the roster in join order.
func (e *Engine) Players() []PlayerView {
	out := make([]PlayerView, len(e.players))
	for i, p := range e.players {
		out[i] = p.View()
	}
	return out
}

// TurnState reports where id stands in the turn cycle.
func (e *Engine) TurnState(id int) (TurnState, error) {
	p, err := e.Player(id)
	if err != nil {
		return Waiting, err
	}
	if e.current != id || !p.Alive() {
		return Waiting, nil
	}
	if p.AP() > 0 {
		return ActiveWithAP, nil
	}
	return ActiveExhausted, nil
}

// AddPlayer places a new player on a random free walkable tile and returns
// its id. The first player starts the game. If everyone else is dead and
// nobody has won, the newcomer gets the turn.
func (e *Engine) AddPlayer(l Listener) (int, error) {
	loc, err := e.spawnLocation()
	if err != nil {
		return -1, err
	}

	allDead := true
	for _, p := range e.players {
		if p.Alive() {
			allDead = false
			p.notify(Notification{Kind: NotifyChange})
		}
	}

	id := len(e.players)
	p := newPlayer(id, fmt.Sprintf("Player %d", id), loc, l, e.rules)
	e.players = append(e.players, p)
	e.observer.PlayerJoined(p.View())

	switch {
	case id == 0:
		if err := e.phases.ChangeState(e.phases.Playing); err != nil {
			return id, err
		}
	case allDead && !e.Won():
		e.current = id
		p.startTurn()
	}
	return id, nil
}

func (e *Engine) spawnLocation() (world.Location, error) {
	walkable := e.m.WalkableLocations()
	if len(walkable) == 0 {
		return world.Location{}, ErrNoWalkableTile
	}
	free := walkable[:0:0]
	for _, loc := range walkable {
		if e.livingPlayerAt(loc, -1) == nil {
			free = append(free, loc)
		}
	}
	if len(free) == 0 {
		return world.Location{}, ErrNoFreeTile
	}
	return free[e.rng.Intn(len(free))], nil
}

// RemovePlayer marks id dead. If it held the turn the turn moves on; silent
// skips telling the player its turn ended.
func (e *Engine) RemovePlayer(id int, silent bool) error {
	p, err := e.Player(id)
	if err != nil {
		return err
	}
	if !p.Alive() {
		return nil
	}
	p.dead = true
	e.observer.PlayerLeft(p.View())
	if e.current == id {
		e.advanceTurn(id, silent)
	}
	return nil
}

// SetName renames id.
func (e *Engine) SetName(id int, name string) error {
	p, err := e.Player(id)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	p.name = name
	return nil
}

// Look returns the square around id, 2*LookDistance+1 on each side. Cells
// outside the field of view are X, cells off the map are #, cells holding
// another living player are P.
func (e *Engine) Look(id int) ([]string, error) {
	p, err := e.Player(id)
	if err != nil {
		return nil, err
	}
	d := p.LookDistance()
	rows := make([]string, 0, 2*d+1)
	line := make([]byte, 2*d+1)
	for dr := -d; dr <= d; dr++ {
		for dc := -d; dc <= d; dc++ {
			loc := p.loc.AtOffset(dc, dr)
			var c byte
			switch {
			case !p.CanSeeOffset(dc, dr):
				c = world.UnknownMarker
			case !e.m.Inside(loc):
				c = world.WallMarker
			case e.livingPlayerAt(loc, id) != nil:
				c = world.PlayerMarker
			default:
				c = e.m.Tile(loc).Char()
			}
			line[dc+d] = c
		}
		rows = append(rows, string(line))
	}
	return rows, nil
}

// Move walks id one tile in dir.
func (e *Engine) Move(id int, dir world.CompassDirection) error {
	p, err := e.actor(id)
	if err != nil {
		return err
	}
	dest := p.loc.AtCompassDirection(dir)
	if !e.m.Inside(dest) || !e.m.Tile(dest).IsWalkable() {
		return ErrWallInTheWay
	}
	if e.livingPlayerAt(dest, id) != nil {
		return ErrPlayerInTheWay
	}
	p.spendAP()
	p.loc = dest
	e.advanceTurn(id, false)
	return nil
}

// Attack strikes the living player one tile away in dir. Attacking spends
// all remaining AP whether or not it hits. A miss is reported as ErrMissed
// after the turn has moved on.
func (e *Engine) Attack(id int, dir world.CompassDirection) error {
	p, err := e.actor(id)
	if err != nil {
		return err
	}
	target := e.livingPlayerAt(p.loc.AtCompassDirection(dir), id)
	if target == nil {
		return fmt.Errorf("%w (%s)", ErrNoTarget, dir)
	}

	p.ap = 0
	if e.rng.Intn(4) == 0 {
		e.advanceTurn(id, false)
		return ErrMissed
	}

	damage := 1
	if p.HasItem(world.Sword) {
		damage++
	}
	if target.HasItem(world.Armour) {
		damage--
	}
	e.advanceTurn(id, false)
	target.damage(damage)
	if target.health <= 0 {
		target.notify(Notification{Kind: NotifyMessage, Text: DeathMessage})
		return e.RemovePlayer(target.id, false)
	}
	return nil
}

// Pickup takes the item on id's tile. Gold and health are consumed at once;
// other items go to the inventory, at most one of each kind.
func (e *Engine) Pickup(id int) error {
	p, err := e.actor(id)
	if err != nil {
		return err
	}
	tile := e.m.Tile(p.loc)
	if !tile.HasItem() {
		return ErrNothingToPickUp
	}
	if tile.Item.Retainable() && p.HasItem(tile.Item) {
		return ErrAlreadyHaveItem
	}

	p.spendAP()
	switch it := e.m.TakeItem(p.loc); it {
	case world.Gold:
		p.addGold(1)
	case world.Health:
		p.heal(1)
	default:
		p.give(it)
	}
	e.advanceTurn(id, false)
	return nil
}

// EndTurn gives up the rest of id's turn.
func (e *Engine) EndTurn(id int, silent bool) error {
	p, err := e.Player(id)
	if err != nil {
		return err
	}
	if e.Won() {
		return ErrGameOver
	}
	if e.current != id || !p.Alive() {
		return ErrNotYourTurn
	}
	e.endTurn(id, silent)
	return nil
}

// SetPlayerPosition teleports id, ignoring turn order and AP.
func (e *Engine) SetPlayerPosition(id int, loc world.Location) error {
	p, err := e.Player(id)
	if err != nil {
		return err
	}
	if !e.m.Inside(loc) {
		return ErrInvalidPosition
	}
	if !e.m.Tile(loc).IsWalkable() {
		return ErrNotWalkable
	}
	p.loc = loc
	return nil
}

// Shout sends text to every player.
func (e *Engine) Shout(text string) {
	for _, p := range e.players {
		p.notify(Notification{Kind: NotifyMessage, Text: text})
	}
}

// Snapshot renders the whole map with living players drawn as P.
func (e *Engine) Snapshot() [][]byte {
	grid := e.m.View()
	for _, p := range e.players {
		if p.Alive() {
			grid[p.loc.Row][p.loc.Col] = world.PlayerMarker
		}
	}
	return grid
}

// actor checks that id may act right now.
func (e *Engine) actor(id int) (*Player, error) {
	p, err := e.Player(id)
	if err != nil {
		return nil, err
	}
	if e.Won() {
		return nil, ErrGameOver
	}
	if e.current != id || !p.Alive() {
		return nil, ErrNotYourTurn
	}
	if p.AP() <= 0 {
		return nil, ErrNoActionPoints
	}
	return p, nil
}

func (e *Engine) livingPlayerAt(loc world.Location, except int) *Player {
	for _, p := range e.players {
		if p.id != except && p.Alive() && p.loc == loc {
			return p
		}
	}
	return nil
}

// advanceTurn runs after every action of id: tell onlookers, check for a
// win, then end the turn if id is out of AP or dead.
func (e *Engine) advanceTurn(id int, silent bool) {
	p := e.players[id]
	for _, other := range e.players {
		if other != p && other.Alive() && other.CanSee(p.loc) {
			other.notify(Notification{Kind: NotifyChange})
		}
	}

	if e.Won() {
		return
	}
	if p.Alive() && p.gold >= e.m.Goal() && e.m.Tile(p.loc).IsExit() {
		e.winner = id
		// Playing -> Won is the only legal transition here.
		_ = e.phases.ChangeState(e.phases.Won)
		return
	}

	if p.ap == 0 || !p.Alive() {
		e.endTurn(id, silent)
	}
}

// endTurn hands the turn to the next living player in roster order. When
// everyone is dead the index stays where it is.
func (e *Engine) endTurn(id int, silent bool) {
	if !silent {
		e.players[id].endTurn()
	}
	start := e.current
	for {
		e.current = (e.current + 1) % len(e.players)
		if e.current == start && !e.players[start].Alive() {
			return
		}
		if e.players[e.current].Alive() {
			break
		}
	}
	e.players[e.current].startTurn()
}
