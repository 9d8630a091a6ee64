package policy

import (
	"sort"

	"github.com/vertwheel/pacman-p2/internal/game"
)

// CornerSeeker tours the maze corners in random order, detours to the
// nearest visible food, and never immediately reverses its last move unless
// forced to. The lap refills as soon as its last corner has been popped, so
// that corner is only a target for the tick it is popped on. The food
// detour target sticks once set and is only replaced by newer visible food.
//
// With avoidGhosts set, any visible ghost switches it into evasion mode for
// the tick. Evasion ranks moves by the distance from the current position
// to the nearest ghost, so every candidate scores the same and the first
// candidate wins. The target ranking is not consulted in that mode.
// TODO: score evasion from the post-move position, as SurvivalPolicy does.
type CornerSeeker struct {
	rng         Rand
	avoidGhosts bool

	unvisited []game.Position
	target    game.Position
	hasTarget bool

	food    game.Position
	hasFood bool

	last game.Action
}

// NewCornerSeeker creates a corner touring policy.
func NewCornerSeeker(rng Rand, avoidGhosts bool) *CornerSeeker {
	return &CornerSeeker{rng: rng, avoidGhosts: avoidGhosts}
}

// GetAction implements Policy interface
func (c *CornerSeeker) GetAction(state game.State) (game.Action, error) {
	legal, err := legalActions(state)
	if err != nil {
		return "", err
	}
	pos := state.WhereAmI()

	if len(c.unvisited) == 0 {
		c.startLap(state.Corners())
	}
	if c.hasTarget && pos == c.target && len(c.unvisited) > 0 {
		c.target = c.pop()
	}

	if nearest, ok := game.Nearest(pos, state.Food()); ok {
		c.food, c.hasFood = nearest, true
	}

	candidates := game.WithoutStop(legal)
	if c.last != "" {
		candidates = game.Without(candidates, c.last.Reverse())
	}

	if ghosts := state.Ghosts(); c.avoidGhosts && len(ghosts) > 0 {
		best, bestDist := candidates[0], -1
		for _, a := range candidates {
			if d := nearestDistance(pos, ghosts); d > bestDist {
				best, bestDist = a, d
			}
		}
		return game.MakeMove(best, legal)
	}

	target, ok := c.effectiveTarget()
	if !ok {
		pick := choose(c.rng, candidates)
		c.last = pick
		return game.MakeMove(pick, legal)
	}

	ranked := append([]game.Action(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return game.Manhattan(game.NextPosition(pos, ranked[i]), target) <
			game.Manhattan(game.NextPosition(pos, ranked[j]), target)
	})
	c.last = ranked[0]
	return game.MakeMove(ranked[0], legal)
}

func (c *CornerSeeker) startLap(corners []game.Position) {
	c.unvisited = append(c.unvisited[:0], corners...)
	c.rng.Shuffle(len(c.unvisited), func(i, j int) {
		c.unvisited[i], c.unvisited[j] = c.unvisited[j], c.unvisited[i]
	})
	c.hasTarget = len(c.unvisited) > 0
	if c.hasTarget {
		c.target = c.pop()
	}
}

func (c *CornerSeeker) pop() game.Position {
	last := len(c.unvisited) - 1
	p := c.unvisited[last]
	c.unvisited = c.unvisited[:last]
	return p
}

func (c *CornerSeeker) effectiveTarget() (game.Position, bool) {
	if c.hasFood {
		return c.food, true
	}
	return c.target, c.hasTarget
}

// Target returns the corner currently being toured towards.
func (c *CornerSeeker) Target() (game.Position, bool) {
	return c.target, c.hasTarget
}

// Unvisited returns the corners left in the current lap.
func (c *CornerSeeker) Unvisited() []game.Position {
	return append([]game.Position(nil), c.unvisited...)
}

// DefaultStuckThreshold is the number of repeated identical greedy choices
// CornerTour tolerates before substituting a random move.
const DefaultStuckThreshold = 10

// CornerTour visits each corner once in the engine's list order, ignoring
// food. Repeating the same greedy move more than threshold times in a row
// triggers one random move to escape walls the heuristic cannot see.
type CornerTour struct {
	rng       Rand
	threshold int

	corners   []game.Position
	captured  bool
	visited   map[game.Position]bool
	target    game.Position
	hasTarget bool

	last     game.Action
	attempts int
}

// NewCornerTour creates a food-blind corner touring policy.
func NewCornerTour(rng Rand, threshold int) *CornerTour {
	return &CornerTour{
		rng:       rng,
		threshold: threshold,
		visited:   make(map[game.Position]bool),
	}
}

// GetAction implements Policy interface
func (c *CornerTour) GetAction(state game.State) (game.Action, error) {
	legal, err := legalActions(state)
	if err != nil {
		return "", err
	}
	if !c.captured {
		c.corners = state.Corners()
		c.captured = true
	}
	pos := state.WhereAmI()

	if c.hasTarget && pos == c.target {
		c.visited[c.target] = true
		c.corners = removePosition(c.corners, c.target)
		c.hasTarget = false
		c.attempts = 0
	}
	if !c.hasTarget {
		for _, corner := range c.corners {
			if !c.visited[corner] {
				c.target, c.hasTarget = corner, true
				break
			}
		}
	}

	candidates := game.WithoutStop(legal)
	if !c.hasTarget {
		return game.MakeMove(choose(c.rng, candidates), legal)
	}

	best, _ := game.ClosestMove(pos, candidates, c.target)
	if best == c.last {
		c.attempts++
	} else {
		c.attempts = 0
	}
	c.last = best

	if c.attempts > c.threshold {
		c.attempts = 0
		return game.MakeMove(choose(c.rng, candidates), legal)
	}
	return game.MakeMove(best, legal)
}

// Visited reports whether corner has been reached.
func (c *CornerTour) Visited(corner game.Position) bool {
	return c.visited[corner]
}

// Target returns the corner currently being toured towards.
func (c *CornerTour) Target() (game.Position, bool) {
	return c.target, c.hasTarget
}

func removePosition(ps []game.Position, p game.Position) []game.Position {
	out := ps[:0]
	for _, candidate := range ps {
		if candidate != p {
			out = append(out, candidate)
		}
	}
	return out
}
