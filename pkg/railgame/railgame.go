// Package railgame holds the shared domain model for the rail logistics
// board game: the hex grid, map points, trains, loads, demand cards, and
// track. It contains no game rules beyond pure geometry and connectivity;
// rule adjudication lives behind the server's repositories.
package railgame

// Load is a commodity type that can be picked up and delivered.
type Load string

// TrainType identifies a train model. Trains differ in speed (hexes per
// turn) and capacity (loads carried).
type TrainType string

const (
	Freight      TrainType = "freight"
	FastFreight  TrainType = "fast_freight"
	HeavyFreight TrainType = "heavy_freight"
	Superfreight TrainType = "superfreight"
)

// TrainSpec describes a train model's movement and carrying stats.
type TrainSpec struct {
	Speed    int `json:"speed"`
	Capacity int `json:"capacity"`
}

// TrainSpecs maps every train type to its stats.
var TrainSpecs = map[TrainType]TrainSpec{
	Freight:      {Speed: 9, Capacity: 2},
	FastFreight:  {Speed: 12, Capacity: 2},
	HeavyFreight: {Speed: 9, Capacity: 3},
	Superfreight: {Speed: 12, Capacity: 3},
}

// Spec returns the stats for a train type, falling back to the base
// Freight spec for unknown types.
func (t TrainType) Spec() TrainSpec {
	if s, ok := TrainSpecs[t]; ok {
		return s
	}
	return TrainSpecs[Freight]
}

// Upgrade costs. A full upgrade buys the next tier, improving one of
// speed or capacity; a crossgrade trades one for the other at the
// same tier.
const (
	FullUpgradeCost = 20
	CrossgradeCost  = 5
)

// Victory thresholds.
const (
	CashVictoryThreshold      = 250
	MajorCityVictoryThreshold = 6
)

// MaxDeliveryPayment is the payment on the richest demand in the deck,
// used to normalize income scoring.
const MaxDeliveryPayment = 25

// BuildBudgetPerTurn caps track spending in a single turn.
const BuildBudgetPerTurn = 20

// StartingCash is each player's bank balance at game start.
const StartingCash = 50

// DemandCardsPerPlayer is the hand size dealt at game start and
// maintained after each delivery.
const DemandCardsPerPlayer = 3
