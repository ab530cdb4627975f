// Package world holds the static dungeon: locations, tiles, items and the map grid.
package world

import (
	"fmt"
	"strings"
)

// Location is a (column, row) position. Rows grow southwards.
type Location struct {
	Col int
	Row int
}

// AtOffset returns the location shifted by dx columns and dy rows.
// No bounds checking is done here; see Map.Inside.
func (l Location) AtOffset(dx, dy int) Location {
	return Location{Col: l.Col + dx, Row: l.Row + dy}
}

// AtCompassDirection returns the neighbouring location one step in dir.
func (l Location) AtCompassDirection(dir CompassDirection) Location {
	dx, dy := dir.Offset()
	return l.AtOffset(dx, dy)
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.Col, l.Row)
}

// CompassDirection is one of the four cardinal directions.
type CompassDirection int

const (
	North CompassDirection = iota
	East
	South
	West
)

// Offset returns the unit (dx, dy) step for the direction.
func (d CompassDirection) Offset() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}

func (d CompassDirection) String() string {
	switch d {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return "?"
	}
}

// ParseCompassDirection accepts N, E, S or W in any case.
func ParseCompassDirection(s string) (CompassDirection, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N":
		return North, nil
	case "E":
		return East, nil
	case "S":
		return South, nil
	case "W":
		return West, nil
	default:
		return 0, fmt.Errorf("invalid direction %q", s)
	}
}
