package policy

import (
	"github.com/vertwheel/pacman-p2/internal/game"
)

// HungryPolicy heads for the nearest food, one greedy step at a time.
type HungryPolicy struct {
	rng Rand
}

// NewHungry creates a greedy food-seeking policy. rng is only used when no
// food is visible.
func NewHungry(rng Rand) *HungryPolicy {
	return &HungryPolicy{rng: rng}
}

// GetAction implements Policy interface
func (p *HungryPolicy) GetAction(state game.State) (game.Action, error) {
	legal, err := legalActions(state)
	if err != nil {
		return "", err
	}
	pos := state.WhereAmI()
	target, ok := game.Nearest(pos, state.Food())
	if !ok {
		return game.MakeMove(choose(p.rng, legal), legal)
	}
	best, _ := game.ClosestMove(pos, game.WithoutStop(legal), target)
	return game.MakeMove(best, legal)
}

// SurvivalPolicy moves away from the nearest ghost.
type SurvivalPolicy struct {
	rng Rand
}

// NewSurvival creates a ghost-avoiding policy.
func NewSurvival(rng Rand) *SurvivalPolicy {
	return &SurvivalPolicy{rng: rng}
}

// GetAction implements Policy interface
func (p *SurvivalPolicy) GetAction(state game.State) (game.Action, error) {
	legal, err := legalActions(state)
	if err != nil {
		return "", err
	}
	legal = game.WithoutStop(legal)
	ghosts := state.Ghosts()
	if len(ghosts) == 0 {
		return game.MakeMove(choose(p.rng, legal), legal)
	}

	pos := state.WhereAmI()
	best, bestDist := legal[0], -1
	for _, a := range legal {
		next := game.NextPosition(pos, a)
		if d := nearestDistance(next, ghosts); d > bestDist {
			best, bestDist = a, d
		}
	}
	return game.MakeMove(best, legal)
}

// nearestDistance is the Manhattan distance from pos to the closest of
// others, which must be non-empty.
func nearestDistance(pos game.Position, others []game.Position) int {
	closest, _ := game.Nearest(pos, others)
	return game.Manhattan(pos, closest)
}
