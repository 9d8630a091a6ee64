package policy

import (
	"github.com/vertwheel/pacman-p2/internal/game"
)

// RandomPolicy selects a uniformly random legal action, avoiding Stop
// whenever something else is possible.
type RandomPolicy struct {
	rng Rand
}

// NewRandom creates a new random policy drawing from rng.
func NewRandom(rng Rand) *RandomPolicy {
	return &RandomPolicy{rng: rng}
}

// GetAction implements Policy interface
func (p *RandomPolicy) GetAction(state game.State) (game.Action, error) {
	legal, err := legalActions(state)
	if err != nil {
		return "", err
	}
	legal = game.WithoutStop(legal)
	return game.MakeMove(choose(p.rng, legal), legal)
}

// RandomishPolicy keeps going in one direction until it is blocked, then
// picks a new random direction.
type RandomishPolicy struct {
	rng  Rand
	last game.Action
}

// NewRandomish creates a persistence-biased random policy.
func NewRandomish(rng Rand) *RandomishPolicy {
	return &RandomishPolicy{rng: rng, last: game.Stop}
}

// GetAction implements Policy interface
func (p *RandomishPolicy) GetAction(state game.State) (game.Action, error) {
	legal, err := legalActions(state)
	if err != nil {
		return "", err
	}
	legal = game.WithoutStop(legal)
	if game.Contains(legal, p.last) {
		return game.MakeMove(p.last, legal)
	}
	pick := choose(p.rng, legal)
	p.last = pick
	return game.MakeMove(pick, legal)
}
