package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// GameStore applies a validated action's effects to persistent game
// state. Implementations must be atomic per call: either the whole
// effect lands or none of it does.
type GameStore interface {
	// ApplyDelivery removes the load, credits the payment, and replaces
	// the fulfilled demand card with a fresh draw.
	ApplyDelivery(ctx context.Context, gameID, playerID string, load railgame.Load, payment, cardIndex int) error
	// ApplyPickup adds the load to the train and decrements availability.
	ApplyPickup(ctx context.Context, gameID, playerID string, load railgame.Load, city string) error
	// ApplyTrackBuild appends segments and debits the cost. majorCity is
	// set when the build connects a major city.
	ApplyTrackBuild(ctx context.Context, gameID, playerID string, segments []railgame.TrackSegment, cost int, majorCity string) error
	// ApplyTrainUpgrade swaps the train type and debits the cost.
	ApplyTrainUpgrade(ctx context.Context, gameID, playerID string, to railgame.TrainType, cost int) error
	// ApplyPass records that the bot took no productive action.
	ApplyPass(ctx context.Context, gameID, playerID string, turnNumber int) error
	// UpdateTrainPosition persists the initial placement.
	UpdateTrainPosition(ctx context.Context, gameID, playerID string, row, col, pixelX, pixelY int) error
}

// Executor applies a plan's effects through the game store and reports
// outcome and timing.
type Executor struct {
	store GameStore
}

// NewExecutor creates an Executor over a game store.
func NewExecutor(store GameStore) *Executor {
	return &Executor{store: store}
}

// Execute applies the plan's single action. On failure the store has
// left state unmodified and the result carries a descriptive error.
func (e *Executor) Execute(ctx context.Context, plan *TurnPlan, snap *WorldSnapshot) ExecutionResult {
	start := time.Now()

	fail := func(err error) ExecutionResult {
		return ExecutionResult{
			Success:         false,
			ActionsExecuted: 0,
			Error:           err.Error(),
			DurationMs:      time.Since(start).Milliseconds(),
		}
	}

	if plan == nil || len(plan.Actions) != 1 {
		return fail(fmt.Errorf("%w: expected exactly one action", ErrMalformedPlan))
	}

	action := plan.Actions[0]
	var err error
	switch p := action.Params.(type) {
	case DeliverLoadParams:
		err = e.store.ApplyDelivery(ctx, snap.GameID, snap.PlayerID, p.Load, p.Payment, p.CardIndex)
	case PickupAndDeliverParams:
		err = e.store.ApplyPickup(ctx, snap.GameID, snap.PlayerID, p.Load, p.PickupCity)
	case BuildTrackParams:
		err = e.store.ApplyTrackBuild(ctx, snap.GameID, snap.PlayerID, p.Segments, p.TotalCost, "")
	case BuildTowardMajorCityParams:
		err = e.store.ApplyTrackBuild(ctx, snap.GameID, snap.PlayerID, p.Segments, p.TotalCost, p.City)
	case UpgradeTrainParams:
		err = e.store.ApplyTrainUpgrade(ctx, snap.GameID, snap.PlayerID, p.To, p.Cost)
	case PassTurnParams:
		err = e.store.ApplyPass(ctx, snap.GameID, snap.PlayerID, snap.TurnNumber)
	default:
		err = fmt.Errorf("no executor for action params %T", action.Params)
	}
	if err != nil {
		return fail(fmt.Errorf("execute %s: %w", action.Type, err))
	}

	return ExecutionResult{
		Success:         true,
		ActionsExecuted: 1,
		DurationMs:      time.Since(start).Milliseconds(),
	}
}
