package world

// Item identifies a kind of object lying on a tile or carried by a player.
// Two items are the same iff they are the same kind.
type Item int

const (
	NoItem Item = iota
	Gold
	Sword
	Armour
	Lantern
	Health
)

// Char returns the map glyph for the item.
func (i Item) Char() byte {
	switch i {
	case Gold:
		return 'G'
	case Sword:
		return 'S'
	case Armour:
		return 'A'
	case Lantern:
		return 'L'
	case Health:
		return 'H'
	default:
		return '.'
	}
}

// Retainable reports whether the item goes to the inventory when picked up.
// Gold and health potions are consumed on pickup instead.
func (i Item) Retainable() bool {
	switch i {
	case Sword, Armour, Lantern:
		return true
	default:
		return false
	}
}

func (i Item) String() string {
	switch i {
	case Gold:
		return "gold"
	case Sword:
		return "sword"
	case Armour:
		return "armour"
	case Lantern:
		return "lantern"
	case Health:
		return "health"
	default:
		return "none"
	}
}

func itemFromChar(c byte) (Item, bool) {
	switch c {
	case 'G':
		return Gold, true
	case 'S':
		return Sword, true
	case 'A':
		return Armour, true
	case 'L':
		return Lantern, true
	case 'H':
		return Health, true
	default:
		return NoItem, false
	}
}
