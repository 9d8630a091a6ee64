package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertwheel/pacman-p2/internal/game"
)

func TestHungryPolicy_MovesTowardFood(t *testing.T) {
	p := NewHungry(seeded(1))

	state := snapshot(game.Position{X: 0, Y: 0}, game.East, game.West)
	state.FoodCells = []game.Position{{X: 3, Y: 0}}

	a, err := p.GetAction(state)
	require.NoError(t, err)
	assert.Equal(t, game.East, a)
}

func TestHungryPolicy_AdjacentFoodInEachDirection(t *testing.T) {
	origin := game.Position{X: 5, Y: 5}
	for _, dir := range game.Directions {
		state := snapshot(origin, allMoves...)
		state.FoodCells = []game.Position{game.NextPosition(origin, dir)}

		a, err := NewHungry(seeded(1)).GetAction(state)
		require.NoError(t, err)
		assert.Equal(t, dir, a)
	}
}

func TestHungryPolicy_NearestFoodFirstInIterationOrder(t *testing.T) {
	state := snapshot(game.Position{X: 0, Y: 0}, game.North, game.South, game.East, game.West)
	state.FoodCells = []game.Position{{X: 0, Y: 5}, {X: 0, Y: -2}, {X: 2, Y: 0}}

	a, err := NewHungry(seeded(1)).GetAction(state)
	require.NoError(t, err)
	assert.Equal(t, game.South, a)
}

func TestHungryPolicy_TiedMovesPickFirstLegal(t *testing.T) {
	state := snapshot(game.Position{X: 0, Y: 0}, game.East, game.North)
	state.FoodCells = []game.Position{{X: 2, Y: 2}}

	a, err := NewHungry(seeded(1)).GetAction(state)
	require.NoError(t, err)
	assert.Equal(t, game.East, a)
}

func TestHungryPolicy_NoFoodFallsBackToRandom(t *testing.T) {
	rng := &scriptedRand{picks: []int{2}}
	state := snapshot(game.Position{}, game.North, game.East, game.Stop)

	a, err := NewHungry(rng).GetAction(state)
	require.NoError(t, err)
	assert.Equal(t, game.Stop, a)
	assert.Equal(t, 1, rng.calls)
}

func TestSurvivalPolicy_MovesAwayFromGhost(t *testing.T) {
	state := snapshot(game.Position{X: 2, Y: 2}, game.East, game.West, game.Stop)
	state.GhostCells = []game.Position{{X: 4, Y: 2}, {X: 9, Y: 9}}

	a, err := NewSurvival(seeded(1)).GetAction(state)
	require.NoError(t, err)
	assert.Equal(t, game.West, a)
}

func TestSurvivalPolicy_NoGhostsIsRandom(t *testing.T) {
	rng := &scriptedRand{picks: []int{1}}
	state := snapshot(game.Position{}, game.North, game.Stop, game.East)

	a, err := NewSurvival(rng).GetAction(state)
	require.NoError(t, err)
	assert.Equal(t, game.East, a)
}
