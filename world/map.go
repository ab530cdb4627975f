package world

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientGold is returned when a map holds less gold than its goal.
	ErrInsufficientGold = errors.New("not enough gold on the map to reach the goal")
	ErrEmptyMap         = errors.New("map has no tiles")
	ErrRaggedMap        = errors.New("map rows differ in width")
)

// Map is a fixed rectangular grid of tiles. Only the items on it change after
// construction, as players pick them up.
type Map struct {
	name   string
	width  int
	height int
	goal   int
	tiles  [][]Tile // [row][col]
}

// NewMap builds a map from rows of tiles. It fails if the rows are not
// rectangular or if the gold on the grid cannot cover goal.
func NewMap(name string, rows [][]Tile, goal int) (*Map, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyMap
	}
	width := len(rows[0])
	tiles := make([][]Tile, len(rows))
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d: %w", r, ErrRaggedMap)
		}
		tiles[r] = append([]Tile(nil), row...)
	}

	m := &Map{
		name:   name,
		width:  width,
		height: len(rows),
		goal:   goal,
		tiles:  tiles,
	}
	if got := m.RemainingGold(); got < goal {
		return nil, fmt.Errorf("%w: have %d, goal %d", ErrInsufficientGold, got, goal)
	}
	return m, nil
}

// ParseRows builds a map from text rows using the tile glyphs.
func ParseRows(name string, rows []string, goal int) (*Map, error) {
	grid := make([][]Tile, len(rows))
	for r, line := range rows {
		grid[r] = make([]Tile, len(line))
		for c := 0; c < len(line); c++ {
			t, ok := TileFromChar(line[c])
			if !ok {
				return nil, fmt.Errorf("row %d col %d: unknown tile %q", r, c, line[c])
			}
			grid[r][c] = t
		}
	}
	return NewMap(name, grid, goal)
}

func (m *Map) Name() string { return m.name }
func (m *Map) Width() int   { return m.width }
func (m *Map) Height() int  { return m.height }
func (m *Map) Goal() int    { return m.goal }

// Inside reports whether loc lies on the grid.
func (m *Map) Inside(loc Location) bool {
	return loc.Col >= 0 && loc.Col < m.width && loc.Row >= 0 && loc.Row < m.height
}

// Tile returns the tile at loc. The caller must check Inside first.
func (m *Map) Tile(loc Location) Tile {
	return m.tiles[loc.Row][loc.Col]
}

// TakeItem removes and returns the item at loc.
func (m *Map) TakeItem(loc Location) Item {
	it := m.tiles[loc.Row][loc.Col].Item
	m.tiles[loc.Row][loc.Col].Item = NoItem
	return it
}

// RemainingGold counts the gold still lying on the map.
func (m *Map) RemainingGold() int {
	n := 0
	for _, row := range m.tiles {
		for _, t := range row {
			if t.Item == Gold {
				n++
			}
		}
	}
	return n
}

// WalkableLocations lists every non-wall location in row-major order.
func (m *Map) WalkableLocations() []Location {
	var out []Location
	for r, row := range m.tiles {
		for c, t := range row {
			if t.IsWalkable() {
				out = append(out, Location{Col: c, Row: r})
			}
		}
	}
	return out
}

// View returns a copy of the grid as glyph rows.
func (m *Map) View() [][]byte {
	out := make([][]byte, m.height)
	for r, row := range m.tiles {
		out[r] = make([]byte, m.width)
		for c, t := range row {
			out[r][c] = t.Char()
		}
	}
	return out
}
