package bot

import (
	"errors"
	"fmt"

	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// ErrMalformedPlan is returned for plans the validator cannot even
// inspect; ordinary validation failures come back as ValidationResult
// errors instead.
var ErrMalformedPlan = errors.New("malformed plan")

// ValidationResult is the structured outcome of a late re-check.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validator re-checks a proposed plan against the snapshot immediately
// before execution. The generator's feasibility check and the moment of
// execution are not atomic with respect to the rest of the game, so
// this is the authoritative last look.
type Validator struct{}

// Validate checks the plan's single action. It returns an error only
// when the plan itself is malformed.
func (Validator) Validate(plan *TurnPlan, snap *WorldSnapshot) (ValidationResult, error) {
	if plan == nil || len(plan.Actions) != 1 {
		return ValidationResult{}, fmt.Errorf("%w: expected exactly one action", ErrMalformedPlan)
	}

	action := plan.Actions[0]
	var errs []string

	switch p := action.Params.(type) {
	case DeliverLoadParams:
		errs = validateDeliver(p, snap)
	case PickupAndDeliverParams:
		errs = validatePickup(p, snap)
	case BuildTrackParams:
		errs = validateSpend(p.TotalCost, snap)
	case BuildTowardMajorCityParams:
		errs = validateSpend(p.TotalCost, snap)
	case UpgradeTrainParams:
		errs = validateUpgrade(p, snap)
	case PassTurnParams:
		// Always legal by definition.
	default:
		return ValidationResult{}, fmt.Errorf("%w: unknown action params %T", ErrMalformedPlan, action.Params)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}, nil
}

func validateDeliver(p DeliverLoadParams, snap *WorldSnapshot) []string {
	var errs []string
	if !snap.HasLoad(p.Load) {
		errs = append(errs, fmt.Sprintf("load %s no longer carried", p.Load))
	}
	if !demandStillHeld(snap, p.CardIndex, p.DemandIndex, p.Load, p.City) {
		errs = append(errs, fmt.Sprintf("demand card for %s to %s no longer held", p.Load, p.City))
	}
	errs = append(errs, validateReachable(snap, p.City)...)
	return errs
}

func validatePickup(p PickupAndDeliverParams, snap *WorldSnapshot) []string {
	var errs []string
	if snap.CarriedCount() >= snap.Capacity() {
		errs = append(errs, fmt.Sprintf("train at capacity (%d/%d)", snap.CarriedCount(), snap.Capacity()))
	}
	if snap.LoadAvailability[p.Load] <= 0 {
		errs = append(errs, fmt.Sprintf("no %s left to pick up", p.Load))
	}
	if !demandStillHeld(snap, p.CardIndex, p.DemandIndex, p.Load, p.DeliverCity) {
		errs = append(errs, fmt.Sprintf("demand card for %s to %s no longer held", p.Load, p.DeliverCity))
	}
	errs = append(errs, validateReachable(snap, p.PickupCity)...)
	return errs
}

func validateSpend(cost int, snap *WorldSnapshot) []string {
	if snap.Cash < cost {
		return []string{fmt.Sprintf("insufficient cash: need %d, have %d", cost, snap.Cash)}
	}
	return nil
}

func validateUpgrade(p UpgradeTrainParams, snap *WorldSnapshot) []string {
	var errs []string
	if snap.Cash < p.Cost {
		errs = append(errs, fmt.Sprintf("insufficient cash: need %d, have %d", p.Cost, snap.Cash))
	}
	if snap.TrainType == p.To {
		errs = append(errs, fmt.Sprintf("already running a %s", p.To))
	}
	return errs
}

func validateReachable(snap *WorldSnapshot, city string) []string {
	if snap.TrainPos == nil {
		return []string{"train not placed"}
	}
	point, ok := snap.MapPoints[city]
	if !ok {
		return []string{fmt.Sprintf("%s is not on the map", city)}
	}
	if !railgame.NewTrackGraph(snap.Track).Connected(*snap.TrainPos, point.Pos) {
		return []string{fmt.Sprintf("%s no longer reachable over built track", city)}
	}
	return nil
}

func demandStillHeld(snap *WorldSnapshot, cardIndex, demandIndex int, load railgame.Load, city string) bool {
	if cardIndex < 0 || cardIndex >= len(snap.DemandCards) {
		return false
	}
	if demandIndex < 0 || demandIndex >= len(snap.DemandCards[cardIndex].Demands) {
		return false
	}
	d := snap.DemandCards[cardIndex].Demands[demandIndex]
	return d.Load == load && d.City == city
}
