package policy

import (
	"github.com/rs/zerolog"

	"github.com/vertwheel/pacman-p2/internal/game"
)

// SensingPolicy never moves. It logs everything the state exposes, which
// makes it handy for checking an engine integration.
type SensingPolicy struct {
	logger zerolog.Logger
}

// NewSensing creates a diagnostic policy reporting to logger.
func NewSensing(logger zerolog.Logger) *SensingPolicy {
	return &SensingPolicy{logger: logger}
}

// GetAction implements Policy interface
func (p *SensingPolicy) GetAction(state game.State) (game.Action, error) {
	legal, err := legalActions(state)
	if err != nil {
		return "", err
	}
	pacman := state.WhereAmI()
	ghosts := state.Ghosts()
	distances := make([]int, len(ghosts))
	for i, g := range ghosts {
		distances[i] = game.Manhattan(pacman, g)
	}

	p.logger.Info().
		Interface("legal", legal).
		Stringer("pacman", pacman).
		Interface("ghosts", ghosts).
		Ints("ghost_distances", distances).
		Interface("capsules", state.Capsules()).
		Interface("food", state.Food()).
		Interface("walls", state.Walls()).
		Msg("Sensed state")

	if !game.Contains(legal, game.Stop) {
		return game.MakeMove(legal[0], legal)
	}
	return game.MakeMove(game.Stop, legal)
}
