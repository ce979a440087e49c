package bot

// Dimension is one of the twelve fixed axes an action is scored on.
type Dimension int

const (
	DimImmediateIncome Dimension = iota
	DimIncomePerDistance
	DimMultiDelivery
	DimNetworkExpansion
	DimVictoryProgress
	DimCompetitorBlocking
	DimRiskExposure
	DimLoadScarcity
	DimUpgradeROI
	DimBackboneAlignment
	DimLoadCombination
	DimMajorCityProximity

	numDimensions
)

var dimensionNames = [numDimensions]string{
	"immediate_income",
	"income_per_distance",
	"multi_delivery",
	"network_expansion",
	"victory_progress",
	"competitor_blocking",
	"risk_exposure",
	"load_scarcity",
	"upgrade_roi",
	"backbone_alignment",
	"load_combination",
	"major_city_proximity",
}

func (d Dimension) String() string {
	if d < 0 || d >= numDimensions {
		return "unknown"
	}
	return dimensionNames[d]
}

// Weights is a total mapping from every dimension to a weight or
// multiplier. Dimensions an action type does not use are simply zero.
type Weights [numDimensions]float64

// Values is one option's raw per-dimension evaluation, each entry in
// [0,1] after clamping.
type Values [numDimensions]float64

// clamp bounds every entry to [0,1].
func (v *Values) clamp() {
	for i := range v {
		if v[i] < 0 {
			v[i] = 0
		} else if v[i] > 1 {
			v[i] = 1
		}
	}
}
