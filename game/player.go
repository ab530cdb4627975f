package game

import (
	"sort"

	"github.com/wfunc/dungeonserver/world"
)

// Player is one participant. Only the engine mutates it.
type Player struct {
	id       int
	name     string
	loc      world.Location
	health   int
	gold     int
	ap       int
	items    map[world.Item]bool
	dead     bool
	won      bool
	listener Listener
	rules    Rules
}

func newPlayer(id int, name string, loc world.Location, l Listener, rules Rules) *Player {
	if l == nil {
		l = ListenerFunc(func(Notification) {})
	}
	return &Player{
		id:       id,
		name:     name,
		loc:      loc,
		health:   rules.MaxHealth,
		items:    make(map[world.Item]bool),
		listener: l,
		rules:    rules,
	}
}

func (p *Player) ID() int                  { return p.id }
func (p *Player) Name() string             { return p.name }
func (p *Player) Location() world.Location { return p.loc }
func (p *Player) Health() int              { return p.health }
func (p *Player) Gold() int                { return p.gold }
func (p *Player) AP() int                  { return p.ap }
func (p *Player) Alive() bool              { return !p.dead }
func (p *Player) Won() bool                { return p.won }

// HasItem reports whether the player carries it.
func (p *Player) HasItem(it world.Item) bool { return p.items[it] }

// LookDistance is the base radius, one further with a lantern.
func (p *Player) LookDistance() int {
	d := p.rules.LookDistance
	if p.items[world.Lantern] {
		d++
	}
	return d
}

// CanSeeOffset reports whether a tile dc columns and dr rows away is inside
// the player's diamond-shaped field of view.
func (p *Player) CanSeeOffset(dc, dr int) bool {
	return abs(dc)+abs(dr) <= p.LookDistance()+1
}

// CanSee reports whether loc is inside the player's field of view.
func (p *Player) CanSee(loc world.Location) bool {
	return p.CanSeeOffset(loc.Col-p.loc.Col, loc.Row-p.loc.Row)
}

func (p *Player) notify(n Notification) {
	p.listener.Notify(n)
}

func (p *Player) startTurn() {
	p.ap = p.rules.MaxAP
	p.notify(Notification{Kind: NotifyStartTurn})
}

func (p *Player) endTurn() {
	p.ap = 0
	p.notify(Notification{Kind: NotifyEndTurn})
}

func (p *Player) spendAP() {
	if p.ap > 0 {
		p.ap--
	}
}

// damage lowers health by n, never below zero, and reports the change.
func (p *Player) damage(n int) {
	if n > p.health {
		n = p.health
	}
	if n <= 0 {
		return
	}
	p.health -= n
	p.notify(Notification{Kind: NotifyHitMod, Delta: -n})
}

// heal raises health by n, capped at MaxHealth, and reports the actual gain.
func (p *Player) heal(n int) {
	if p.health+n > p.rules.MaxHealth {
		n = p.rules.MaxHealth - p.health
	}
	if n <= 0 {
		return
	}
	p.health += n
	p.notify(Notification{Kind: NotifyHitMod, Delta: n})
}

func (p *Player) addGold(n int) {
	p.gold += n
	p.notify(Notification{Kind: NotifyTreasureMod, Delta: n})
}

func (p *Player) give(it world.Item) {
	p.items[it] = true
}

// View copies the player's state.
func (p *Player) View() PlayerView {
	items := make([]string, 0, len(p.items))
	for it := range p.items {
		items = append(items, it.String())
	}
	sort.Strings(items)
	return PlayerView{
		ID:     p.id,
		Name:   p.name,
		Col:    p.loc.Col,
		Row:    p.loc.Row,
		Health: p.health,
		Gold:   p.gold,
		AP:     p.ap,
		Alive:  !p.dead,
		Won:    p.won,
		Items:  items,
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
