package policy

import (
	"github.com/vertwheel/pacman-p2/internal/game"
)

// CorridorPolicy prefers one direction, then either of two fallbacks, then
// anything legal.
type CorridorPolicy struct {
	rng       Rand
	primary   game.Action
	secondary [2]game.Action
}

// NewCorridor creates a corridor-biased policy.
func NewCorridor(rng Rand, primary, second, third game.Action) *CorridorPolicy {
	return &CorridorPolicy{
		rng:       rng,
		primary:   primary,
		secondary: [2]game.Action{second, third},
	}
}

// NewWest prefers West, then North or South.
func NewWest(rng Rand) *CorridorPolicy {
	return NewCorridor(rng, game.West, game.North, game.South)
}

// GetAction implements Policy interface
func (p *CorridorPolicy) GetAction(state game.State) (game.Action, error) {
	legal, err := legalActions(state)
	if err != nil {
		return "", err
	}
	legal = game.WithoutStop(legal)
	if game.Contains(legal, p.primary) {
		return game.MakeMove(p.primary, legal)
	}

	var fallbacks []game.Action
	for _, a := range p.secondary {
		if game.Contains(legal, a) {
			fallbacks = append(fallbacks, a)
		}
	}
	if len(fallbacks) > 0 {
		return game.MakeMove(choose(p.rng, fallbacks), legal)
	}
	return game.MakeMove(choose(p.rng, legal), legal)
}
