package game

import "fmt"

// State is the read-only view of the world a policy sees for one tick.
// Implementations return slices the caller may keep; policies never modify
// the underlying world through them.
type State interface {
	LegalActions() []Action
	WhereAmI() Position
	Ghosts() []Position
	Food() []Position
	Capsules() []Position
	Walls() []Position
	Corners() []Position
}

// Snapshot is a JSON friendly State. Engines that live outside this process
// post one per tick to the policy server.
type Snapshot struct {
	Legal        []Action   `json:"legal"`
	Pacman       Position   `json:"pacman"`
	GhostCells   []Position `json:"ghosts,omitempty"`
	FoodCells    []Position `json:"food,omitempty"`
	CapsuleCells []Position `json:"capsules,omitempty"`
	WallCells    []Position `json:"walls,omitempty"`
	CornerCells  []Position `json:"corners,omitempty"`
}

var _ State = Snapshot{}

func (s Snapshot) LegalActions() []Action { return append([]Action(nil), s.Legal...) }
func (s Snapshot) WhereAmI() Position     { return s.Pacman }
func (s Snapshot) Ghosts() []Position     { return clonePositions(s.GhostCells) }
func (s Snapshot) Food() []Position       { return clonePositions(s.FoodCells) }
func (s Snapshot) Capsules() []Position   { return clonePositions(s.CapsuleCells) }
func (s Snapshot) Walls() []Position      { return clonePositions(s.WallCells) }
func (s Snapshot) Corners() []Position    { return clonePositions(s.CornerCells) }

// Validate checks the snapshot is usable for a decision.
func (s Snapshot) Validate() error {
	if len(s.Legal) == 0 {
		return ErrNoLegalActions
	}
	for _, a := range s.Legal {
		if !a.Valid() {
			return fmt.Errorf("unknown action %q in legal set", a)
		}
	}
	return nil
}

func clonePositions(ps []Position) []Position {
	if len(ps) == 0 {
		return nil
	}
	return append([]Position(nil), ps...)
}

// MakeMove validates that action belongs to legal. Policies route every
// decision through it so an illegal choice never leaves the package.
func MakeMove(action Action, legal []Action) (Action, error) {
	if len(legal) == 0 {
		return "", ErrNoLegalActions
	}
	if !Contains(legal, action) {
		return "", fmt.Errorf("%w: %s not in %v", ErrIllegalAction, action, legal)
	}
	return action, nil
}

// Contains reports whether a is in actions.
func Contains(actions []Action, a Action) bool {
	for _, candidate := range actions {
		if candidate == a {
			return true
		}
	}
	return false
}

// Without returns actions minus every occurrence of a, unless that would
// leave nothing, in which case actions is returned unchanged.
func Without(actions []Action, a Action) []Action {
	out := make([]Action, 0, len(actions))
	for _, candidate := range actions {
		if candidate != a {
			out = append(out, candidate)
		}
	}
	if len(out) == 0 {
		return actions
	}
	return out
}

// WithoutStop drops Stop while at least one other action remains.
func WithoutStop(actions []Action) []Action {
	return Without(actions, Stop)
}

// Nearest returns the first target at minimum Manhattan distance from from.
func Nearest(from Position, targets []Position) (Position, bool) {
	if len(targets) == 0 {
		return Position{}, false
	}
	best, bestDist := targets[0], Manhattan(from, targets[0])
	for _, t := range targets[1:] {
		if d := Manhattan(from, t); d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, true
}

// ClosestMove returns the first action whose next position is at minimum
// distance to target.
func ClosestMove(from Position, actions []Action, target Position) (Action, bool) {
	if len(actions) == 0 {
		return "", false
	}
	best := actions[0]
	bestDist := Manhattan(NextPosition(from, best), target)
	for _, a := range actions[1:] {
		if d := Manhattan(NextPosition(from, a), target); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, true
}
