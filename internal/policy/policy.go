// Package policy provides action selection strategies for the controlled
// character. Every policy picks exactly one legal action per tick.
package policy

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vertwheel/pacman-p2/internal/game"
)

// ErrUnknownPolicy is returned by New for an unregistered name.
var ErrUnknownPolicy = errors.New("unknown policy")

// Policy interface for action selection
type Policy interface {
	// GetAction chooses an action given the current state. The returned
	// action is always a member of state.LegalActions().
	GetAction(state game.State) (game.Action, error)
}

// Rand is the random source policies draw from. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Options carries the collaborators a policy may need.
type Options struct {
	Rand   Rand
	Logger zerolog.Logger
}

type constructor func(Options) Policy

var registry = map[string]constructor{
	"random":              func(o Options) Policy { return NewRandom(o.Rand) },
	"randomish":           func(o Options) Policy { return NewRandomish(o.Rand) },
	"hungry":              func(o Options) Policy { return NewHungry(o.Rand) },
	"survival":            func(o Options) Policy { return NewSurvival(o.Rand) },
	"corners":             func(o Options) Policy { return NewCornerSeeker(o.Rand, false) },
	"corners-avoid-ghost": func(o Options) Policy { return NewCornerSeeker(o.Rand, true) },
	"corners-no-food":     func(o Options) Policy { return NewCornerTour(o.Rand, DefaultStuckThreshold) },
	"west":                func(o Options) Policy { return NewWest(o.Rand) },
	"sensing":             func(o Options) Policy { return NewSensing(o.Logger) },
}

// New creates a fresh policy instance by name. Each call returns an
// instance with its own memory.
func New(name string, opts Options) (Policy, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return build(opts), nil
}

// Names lists the registered policy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is registered.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// choose picks uniformly from actions, which must be non-empty.
func choose(rng Rand, actions []game.Action) game.Action {
	return actions[rng.Intn(len(actions))]
}

// legalActions fetches the legal set and rejects an empty one.
func legalActions(state game.State) ([]game.Action, error) {
	legal := state.LegalActions()
	if len(legal) == 0 {
		return nil, game.ErrNoLegalActions
	}
	return legal, nil
}
