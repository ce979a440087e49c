package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// Scoring normalization constants. Values feed dimensions clamped to
// [0,1], so these set what "excellent" looks like on each axis.
const (
	// typicalIncomePerHex is a very good payment-to-distance ratio.
	typicalIncomePerHex = 5.0
	// typicalLoadAvailability is the stock level above which a load is
	// not considered scarce.
	typicalLoadAvailability = 8.0
	// comfortableCashReserve is the bank balance at which spending is
	// considered risk-free.
	comfortableCashReserve = 50.0
	// pickupDiscount reflects that pickup-then-deliver takes materially
	// longer than delivering a load already on board.
	pickupDiscount = 0.6
	// speedGainPerTier normalizes speed gains (one upgrade tier).
	speedGainPerTier = 3.0
	// passTurnRiskCredit keeps pass-turn sorting deterministically last
	// among useful actions: not spending money is itself low-risk.
	passTurnRiskCredit = 0.05
)

// Scorer assigns a score and rationale to each feasible option using
// the weighted twelve-dimension model.
type Scorer struct{}

// Score evaluates and ranks options. The result is sorted descending by
// score; ties keep generator order (stable sort). Given identical
// inputs the output is deterministic.
func (Scorer) Score(options []FeasibleOption, snap *WorldSnapshot, cfg Config) []ScoredOption {
	skill := SkillProfileFor(cfg.Skill)
	archetype := ArchetypeProfileFor(cfg.Archetype)

	var weights Weights
	for d := range weights {
		weights[d] = skill.BaseWeights[d] * archetype.Multipliers[d]
	}

	scored := make([]ScoredOption, 0, len(options))
	for _, opt := range options {
		values := evaluate(opt, snap)
		values.clamp()

		score := 0.0
		for d := range weights {
			score += weights[d] * values[d]
		}
		scored = append(scored, ScoredOption{
			FeasibleOption: opt,
			Score:          score,
			Rationale:      rationale(weights, values),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// rationale names the top three dimension contributions above a small
// threshold, or a fixed marker when nothing registers.
func rationale(weights Weights, values Values) string {
	type contribution struct {
		dim   Dimension
		value float64
	}
	var contribs []contribution
	for d := range weights {
		c := weights[d] * values[d]
		if c > 0.01 {
			contribs = append(contribs, contribution{Dimension(d), c})
		}
	}
	if len(contribs) == 0 {
		return "minimal scoring signal"
	}
	sort.SliceStable(contribs, func(i, j int) bool { return contribs[i].value > contribs[j].value })
	if len(contribs) > 3 {
		contribs = contribs[:3]
	}
	parts := make([]string, len(contribs))
	for i, c := range contribs {
		parts[i] = fmt.Sprintf("%s:%.2f", c.dim, c.value)
	}
	return strings.Join(parts, ", ")
}

// evaluator computes the raw dimension values for one action type.
type evaluator func(FeasibleOption, *WorldSnapshot) Values

// evaluators dispatches on action type. Adding an action type means
// adding exactly one entry here; scoring falls through to zeros (and a
// "minimal scoring signal" rationale) for anything unmapped.
var evaluators = map[ActionType]evaluator{
	ActionDeliverLoad:          evaluateDeliver,
	ActionPickupAndDeliver:     evaluatePickup,
	ActionBuildTrack:           evaluateBuildTrack,
	ActionBuildTowardMajorCity: evaluateBuildMajorCity,
	ActionUpgradeTrain:         evaluateUpgrade,
	ActionPassTurn:             evaluatePass,
}

func evaluate(opt FeasibleOption, snap *WorldSnapshot) Values {
	if eval, ok := evaluators[opt.Type]; ok {
		return eval(opt, snap)
	}
	return Values{}
}

func evaluateDeliver(opt FeasibleOption, snap *WorldSnapshot) Values {
	p, ok := opt.Params.(DeliverLoadParams)
	if !ok {
		return Values{}
	}
	var v Values
	payment := float64(p.Payment)
	v[DimImmediateIncome] = payment / railgame.MaxDeliveryPayment

	steps := p.PathLength
	if steps < 1 {
		steps = 1
	}
	v[DimIncomePerDistance] = payment / float64(steps) / typicalIncomePerHex

	remaining := snap.CarriedCount() - 1
	capacity := float64(snap.Capacity())
	v[DimMultiDelivery] = float64(remaining) / capacity
	// Fewer loads still at risk after the delivery is a good thing.
	v[DimRiskExposure] = 1 - float64(remaining)/capacity

	v[DimVictoryProgress] = float64(snap.Cash+p.Payment) / railgame.CashVictoryThreshold
	v[DimLoadScarcity] = 1 - float64(snap.LoadAvailability[p.Load])/typicalLoadAvailability
	return v
}

func evaluatePickup(opt FeasibleOption, snap *WorldSnapshot) Values {
	p, ok := opt.Params.(PickupAndDeliverParams)
	if !ok {
		return Values{}
	}
	var v Values
	payment := float64(p.Payment)
	v[DimImmediateIncome] = pickupDiscount * payment / railgame.MaxDeliveryPayment

	steps := p.PathLength
	if steps < 1 {
		steps = 1
	}
	v[DimIncomePerDistance] = pickupDiscount * payment / float64(steps) / typicalIncomePerHex
	v[DimVictoryProgress] = pickupDiscount * float64(snap.Cash+p.Payment) / railgame.CashVictoryThreshold

	carriedAfter := snap.CarriedCount() + 1
	capacity := float64(snap.Capacity())
	v[DimMultiDelivery] = (capacity - float64(carriedAfter)) / capacity
	// More loads on board means more to lose to derailment events.
	v[DimRiskExposure] = 1 - float64(carriedAfter)/capacity

	v[DimLoadScarcity] = 1 - float64(snap.LoadAvailability[p.Load])/typicalLoadAvailability
	v[DimLoadCombination] = float64(demandsWanting(snap, p.Load, p.CardIndex)) / 3
	return v
}

// demandsWanting counts demands on other held cards for the same load.
func demandsWanting(snap *WorldSnapshot, load railgame.Load, excludeCard int) int {
	count := 0
	for ci, card := range snap.DemandCards {
		if ci == excludeCard {
			continue
		}
		for _, d := range card.Demands {
			if d.Load == load {
				count++
			}
		}
	}
	return count
}

func evaluateBuildTrack(opt FeasibleOption, snap *WorldSnapshot) Values {
	p, ok := opt.Params.(BuildTrackParams)
	if !ok {
		return Values{}
	}
	return buildValues(snap, len(p.Segments), p.TotalCost, false)
}

func evaluateBuildMajorCity(opt FeasibleOption, snap *WorldSnapshot) Values {
	p, ok := opt.Params.(BuildTowardMajorCityParams)
	if !ok {
		return Values{}
	}
	v := buildValues(snap, len(p.Segments), p.TotalCost, true)
	v[DimMajorCityProximity] = 0.8
	v[DimVictoryProgress] = float64(snap.ConnectedMajorCities+1) / railgame.MajorCityVictoryThreshold
	return v
}

func buildValues(snap *WorldSnapshot, segments, cost int, towardMajor bool) Values {
	var v Values
	v[DimNetworkExpansion] = float64(segments) / 10

	if segments > 0 {
		avgCost := float64(cost) / float64(segments)
		// Cheap per-segment building means the route follows good ground.
		v[DimBackboneAlignment] = 1 - (avgCost-1)/4
	}
	v[DimRiskExposure] = float64(snap.Cash-cost) / comfortableCashReserve
	if !towardMajor {
		// Track is indirect progress; a small credit only.
		v[DimVictoryProgress] = 0.25 * float64(snap.ConnectedMajorCities) / railgame.MajorCityVictoryThreshold
	}
	return v
}

func evaluateUpgrade(opt FeasibleOption, snap *WorldSnapshot) Values {
	p, ok := opt.Params.(UpgradeTrainParams)
	if !ok {
		return Values{}
	}
	var v Values
	normalizedSpeed := float64(p.SpeedGain) / speedGainPerTier
	v[DimUpgradeROI] = (normalizedSpeed + float64(p.CapacityGain)) / (float64(p.Cost) / 10)
	if p.CapacityGain > 0 {
		v[DimMultiDelivery] = 0.9
	}
	if p.SpeedGain > 0 {
		v[DimIncomePerDistance] = 0.7
	}
	v[DimRiskExposure] = float64(snap.Cash-p.Cost) / comfortableCashReserve
	return v
}

func evaluatePass(FeasibleOption, *WorldSnapshot) Values {
	var v Values
	v[DimRiskExposure] = passTurnRiskCredit
	return v
}
