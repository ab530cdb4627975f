package world

// Terrain is the fixed ground kind of a tile.
type Terrain int

const (
	Floor Terrain = iota
	Wall
	Exit
)

// Glyphs used by look replies and snapshots for things that are not map tiles.
const (
	UnknownMarker = 'X'
	WallMarker    = '#'
	PlayerMarker  = 'P'
)

// Tile is one map cell: a terrain kind plus at most one item.
type Tile struct {
	Terrain Terrain
	Item    Item
}

func (t Tile) IsWalkable() bool {
	return t.Terrain != Wall
}

func (t Tile) IsExit() bool {
	return t.Terrain == Exit
}

func (t Tile) HasItem() bool {
	return t.Item != NoItem
}

// Char returns the glyph for the tile, items taking precedence over terrain.
func (t Tile) Char() byte {
	if t.HasItem() {
		return t.Item.Char()
	}
	switch t.Terrain {
	case Wall:
		return WallMarker
	case Exit:
		return 'E'
	default:
		return '.'
	}
}

// TileFromChar parses a map glyph.
func TileFromChar(c byte) (Tile, bool) {
	switch c {
	case '.':
		return Tile{Terrain: Floor}, true
	case '#':
		return Tile{Terrain: Wall}, true
	case 'E':
		return Tile{Terrain: Exit}, true
	}
	if it, ok := itemFromChar(c); ok {
		return Tile{Terrain: Floor, Item: it}, true
	}
	return Tile{}, false
}
