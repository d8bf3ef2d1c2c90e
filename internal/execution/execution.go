// Package execution hands engine actions to an order venue.
package execution

import (
	"context"

	"github.com/rs/zerolog"

	"TickSentinel/internal/model"
)

// Submitter places the order described by an action.
type Submitter interface {
	Submit(ctx context.Context, a model.Action) error
}

// LogSubmitter only logs actions. Used for dry runs and paper tournaments.
type LogSubmitter struct{ log zerolog.Logger }

func NewLogSubmitter(log zerolog.Logger) *LogSubmitter { return &LogSubmitter{log: log} }

func (s *LogSubmitter) Submit(_ context.Context, a model.Action) error {
	s.log.Info().
		Str("id", a.ID).
		Str("agent", a.Agent).
		Str("sym", a.Symbol).
		Str("side", string(a.Side)).
		Str("intent", string(a.Intent)).
		Float64("qty", a.Amount).
		Float64("px", a.Price).
		Strs("reason", a.Reasons).
		Msg("submit order (dry run)")
	return nil
}
