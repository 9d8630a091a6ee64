// Package engine is a small grid simulation used to run policies locally.
// It models walls, food, capsules and ghosts that wander at random; there is
// no ghost scaring and no multi-agent scheduling.
package engine

import (
	"errors"
	"fmt"

	"github.com/vertwheel/pacman-p2/internal/game"
)

// ErrGameOver is returned by Step once the game has ended.
var ErrGameOver = errors.New("game over")

// Scoring mirrors the classic rules minus ghost eating.
const (
	TimePenalty = -1
	FoodReward  = 10
	WinReward   = 500
	LosePenalty = -500
)

// Rand is the random source ghosts draw from.
type Rand interface {
	Intn(n int) int
}

// Outcome of a finished game.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// StepResult reports what a single Step did.
type StepResult struct {
	Reward  int     `json:"reward"`
	Done    bool    `json:"done"`
	Outcome Outcome `json:"outcome,omitempty"`
}

// Game is one running episode on a layout.
type Game struct {
	layout   *Layout
	rng      Rand
	pacman   game.Position
	ghosts   []game.Position
	food     map[game.Position]bool
	capsules map[game.Position]bool
	score    int
	steps    int
	outcome  Outcome
}

// New starts a game on layout.
func New(layout *Layout, rng Rand) *Game {
	g := &Game{
		layout:   layout,
		rng:      rng,
		pacman:   layout.Pacman,
		ghosts:   append([]game.Position(nil), layout.Ghosts...),
		food:     make(map[game.Position]bool, len(layout.Food)),
		capsules: make(map[game.Position]bool, len(layout.Capsules)),
	}
	for _, f := range layout.Food {
		g.food[f] = true
	}
	for _, c := range layout.Capsules {
		g.capsules[c] = true
	}
	return g
}

// Snapshot returns the read-only view a policy decides on.
func (g *Game) Snapshot() game.Snapshot {
	return game.Snapshot{
		Legal:        g.layout.LegalActions(g.pacman),
		Pacman:       g.pacman,
		GhostCells:   append([]game.Position(nil), g.ghosts...),
		FoodCells:    g.remaining(g.layout.Food, g.food),
		CapsuleCells: g.remaining(g.layout.Capsules, g.capsules),
		WallCells:    g.layout.Walls(),
		CornerCells:  g.layout.Corners(),
	}
}

// remaining keeps layout order so policies see a stable iteration order.
func (g *Game) remaining(all []game.Position, present map[game.Position]bool) []game.Position {
	var out []game.Position
	for _, p := range all {
		if present[p] {
			out = append(out, p)
		}
	}
	return out
}

// Step applies action for pacman, then moves every ghost.
func (g *Game) Step(action game.Action) (StepResult, error) {
	if g.Done() {
		return StepResult{}, ErrGameOver
	}
	if _, err := game.MakeMove(action, g.layout.LegalActions(g.pacman)); err != nil {
		return StepResult{}, fmt.Errorf("step %d: %w", g.steps, err)
	}

	g.steps++
	reward := TimePenalty
	from := g.pacman
	g.pacman = game.NextPosition(g.pacman, action)

	if g.food[g.pacman] {
		delete(g.food, g.pacman)
		reward += FoodReward
	}
	delete(g.capsules, g.pacman)

	if len(g.food) == 0 {
		reward += WinReward
		g.outcome = OutcomeWin
		return g.finish(reward), nil
	}
	if g.touchesGhost(from, nil) {
		reward += LosePenalty
		g.outcome = OutcomeLoss
		return g.finish(reward), nil
	}

	previous := append([]game.Position(nil), g.ghosts...)
	for i, ghost := range g.ghosts {
		moves := game.WithoutStop(g.layout.LegalActions(ghost))
		g.ghosts[i] = game.NextPosition(ghost, moves[g.rng.Intn(len(moves))])
	}
	if g.touchesGhost(from, previous) {
		reward += LosePenalty
		g.outcome = OutcomeLoss
	}
	return g.finish(reward), nil
}

// touchesGhost reports a collision, including pacman and a ghost swapping
// cells in the same tick.
func (g *Game) touchesGhost(pacmanFrom game.Position, ghostsFrom []game.Position) bool {
	for i, ghost := range g.ghosts {
		if ghost == g.pacman {
			return true
		}
		if ghostsFrom != nil && ghostsFrom[i] == g.pacman && ghost == pacmanFrom {
			return true
		}
	}
	return false
}

func (g *Game) finish(reward int) StepResult {
	g.score += reward
	return StepResult{Reward: reward, Done: g.Done(), Outcome: g.outcome}
}

// Done reports whether the game has been won or lost.
func (g *Game) Done() bool { return g.outcome != OutcomeNone }

// Outcome reports how the game ended, if it has.
func (g *Game) Outcome() Outcome { return g.outcome }

// Score is the running total of step rewards.
func (g *Game) Score() int { return g.score }

// Steps counts applied actions.
func (g *Game) Steps() int { return g.steps }

// FoodLeft counts uneaten food.
func (g *Game) FoodLeft() int { return len(g.food) }

// Layout returns the layout the game runs on.
func (g *Game) Layout() *Layout { return g.layout }
