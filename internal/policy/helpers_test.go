package policy

import (
	"math/rand"

	"github.com/vertwheel/pacman-p2/internal/game"
)

// scriptedRand returns the scripted picks in order (modulo n) and leaves
// shuffled slices untouched.
type scriptedRand struct {
	picks []int
	calls int
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.picks) == 0 {
		r.calls++
		return 0
	}
	v := r.picks[r.calls%len(r.picks)] % n
	r.calls++
	return v
}

func (r *scriptedRand) Shuffle(int, func(i, j int)) {}

func seeded(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func snapshot(pos game.Position, legal ...game.Action) game.Snapshot {
	return game.Snapshot{Pacman: pos, Legal: legal}
}

var allMoves = []game.Action{game.North, game.South, game.East, game.West, game.Stop}
