// Package game defines the positions, actions and state query interface the
// policies are written against.
package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIllegalAction indicates an action outside the legal set for the tick.
	ErrIllegalAction = errors.New("illegal action")
	// ErrNoLegalActions indicates the engine supplied an empty legal set.
	ErrNoLegalActions = errors.New("no legal actions")
)

// Position is a grid coordinate. Y grows northwards.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add offsets p by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Manhattan returns |a.X-b.X| + |a.Y-b.Y|.
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Action is one of the five moves the controlled character can make.
type Action string

const (
	North Action = "North"
	South Action = "South"
	East  Action = "East"
	West  Action = "West"
	Stop  Action = "Stop"
)

// Directions lists the four moving actions in engine order.
var Directions = []Action{North, South, East, West}

var reverse = map[Action]Action{
	North: South,
	South: North,
	East:  West,
	West:  East,
	Stop:  Stop,
}

var vectors = map[Action]Position{
	North: {X: 0, Y: 1},
	South: {X: 0, Y: -1},
	East:  {X: 1, Y: 0},
	West:  {X: -1, Y: 0},
}

// Reverse returns the opposite direction. Stop and unknown actions map to
// themselves.
func (a Action) Reverse() Action {
	if r, ok := reverse[a]; ok {
		return r
	}
	return a
}

// Vector returns the unit offset of a, or the zero offset for Stop and
// unknown actions.
func (a Action) Vector() Position {
	return vectors[a]
}

// Valid reports whether a is one of the five known actions.
func (a Action) Valid() bool {
	_, ok := reverse[a]
	return ok
}

// NextPosition is the position reached from pos by taking a, ignoring walls.
func NextPosition(pos Position, a Action) Position {
	return pos.Add(a.Vector())
}

// ParseAction accepts the canonical names case-insensitively.
func ParseAction(s string) (Action, error) {
	for a := range reverse {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}
