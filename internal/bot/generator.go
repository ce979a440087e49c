package bot

import (
	"fmt"
	"sort"

	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// Generator enumerates every action the bot could attempt this turn.
// It is a pure function of the snapshot: no side effects, no errors for
// ordinary "no good moves" situations. The feasible list always contains
// at least the pass-turn option.
type Generator struct{}

// Generate splits candidates into feasible options (with parameters)
// and infeasible ones (with a specific rejection reason, kept for the
// audit only).
func (Generator) Generate(snap *WorldSnapshot) ([]FeasibleOption, []InfeasibleOption) {
	var feasible []FeasibleOption
	var infeasible []InfeasibleOption

	collect := func(f []FeasibleOption, inf []InfeasibleOption) {
		feasible = append(feasible, f...)
		infeasible = append(infeasible, inf...)
	}

	collect(generateDeliveries(snap))
	collect(generatePickups(snap))
	collect(generateTrackBuilds(snap))
	collect(generateMajorCityBuilds(snap))
	collect(generateUpgrades(snap))

	feasible = append(feasible, PassTurnOption())
	return feasible, infeasible
}

// generateDeliveries matches carried loads against held demand cards.
func generateDeliveries(snap *WorldSnapshot) ([]FeasibleOption, []InfeasibleOption) {
	if snap.TrainPos == nil {
		return nil, []InfeasibleOption{{Type: ActionDeliverLoad, Reason: "train not yet placed"}}
	}
	if len(snap.Loads) == 0 {
		return nil, []InfeasibleOption{{Type: ActionDeliverLoad, Reason: "no loads carried"}}
	}

	graph := railgame.NewTrackGraph(snap.Track)
	var feasible []FeasibleOption
	var infeasible []InfeasibleOption

	for ci, card := range snap.DemandCards {
		for di, demand := range card.Demands {
			if !snap.HasLoad(demand.Load) {
				continue
			}
			point, ok := snap.MapPoints[demand.City]
			if !ok {
				infeasible = append(infeasible, InfeasibleOption{
					Type:   ActionDeliverLoad,
					Reason: fmt.Sprintf("destination %s is not on the map", demand.City),
				})
				continue
			}
			if !graph.Connected(*snap.TrainPos, point.Pos) {
				infeasible = append(infeasible, InfeasibleOption{
					Type:   ActionDeliverLoad,
					Reason: fmt.Sprintf("%s not reachable from train over built track", demand.City),
				})
				continue
			}
			feasible = append(feasible, FeasibleOption{
				Type:        ActionDeliverLoad,
				Description: fmt.Sprintf("deliver %s to %s for %d", demand.Load, demand.City, demand.Payment),
				Params: DeliverLoadParams{
					Load:        demand.Load,
					City:        demand.City,
					Payment:     demand.Payment,
					CardIndex:   ci,
					DemandIndex: di,
					PathLength:  railgame.HexDistance(*snap.TrainPos, point.Pos),
				},
			})
		}
	}
	return feasible, infeasible
}

// generatePickups proposes collecting a demanded load the bot does not
// yet carry, to deliver on a later turn.
func generatePickups(snap *WorldSnapshot) ([]FeasibleOption, []InfeasibleOption) {
	if snap.TrainPos == nil {
		return nil, []InfeasibleOption{{Type: ActionPickupAndDeliver, Reason: "train not yet placed"}}
	}
	if snap.CarriedCount() >= snap.Capacity() {
		return nil, []InfeasibleOption{{
			Type:   ActionPickupAndDeliver,
			Reason: fmt.Sprintf("train at capacity (%d/%d loads)", snap.CarriedCount(), snap.Capacity()),
		}}
	}

	graph := railgame.NewTrackGraph(snap.Track)
	var feasible []FeasibleOption
	var infeasible []InfeasibleOption

	for ci, card := range snap.DemandCards {
		for di, demand := range card.Demands {
			if snap.HasLoad(demand.Load) {
				continue // covered by a delivery candidate
			}
			if snap.LoadAvailability[demand.Load] <= 0 {
				infeasible = append(infeasible, InfeasibleOption{
					Type:   ActionPickupAndDeliver,
					Reason: fmt.Sprintf("no %s available anywhere", demand.Load),
				})
				continue
			}
			dest, ok := snap.MapPoints[demand.City]
			if !ok {
				infeasible = append(infeasible, InfeasibleOption{
					Type:   ActionPickupAndDeliver,
					Reason: fmt.Sprintf("destination %s is not on the map", demand.City),
				})
				continue
			}
			source, ok := nearestSource(snap, graph, demand.Load)
			if !ok {
				infeasible = append(infeasible, InfeasibleOption{
					Type:   ActionPickupAndDeliver,
					Reason: fmt.Sprintf("no reachable source city supplies %s", demand.Load),
				})
				continue
			}
			if !graph.Connected(source.Pos, dest.Pos) {
				infeasible = append(infeasible, InfeasibleOption{
					Type:   ActionPickupAndDeliver,
					Reason: fmt.Sprintf("%s not reachable from %s over built track", demand.City, source.Name),
				})
				continue
			}
			feasible = append(feasible, FeasibleOption{
				Type: ActionPickupAndDeliver,
				Description: fmt.Sprintf("pick up %s at %s and deliver to %s for %d",
					demand.Load, source.Name, demand.City, demand.Payment),
				Params: PickupAndDeliverParams{
					Load:        demand.Load,
					PickupCity:  source.Name,
					DeliverCity: demand.City,
					Payment:     demand.Payment,
					CardIndex:   ci,
					DemandIndex: di,
					PathLength: railgame.HexDistance(*snap.TrainPos, source.Pos) +
						railgame.HexDistance(source.Pos, dest.Pos),
				},
			})
		}
	}
	return feasible, infeasible
}

// nearestSource finds the closest map point that supplies the load and
// is reachable from the train. Ties and ordering are deterministic: map
// points are scanned in name order.
func nearestSource(snap *WorldSnapshot, graph *railgame.TrackGraph, load railgame.Load) (railgame.MapPoint, bool) {
	names := make([]string, 0, len(snap.MapPoints))
	for name := range snap.MapPoints {
		names = append(names, name)
	}
	sort.Strings(names)

	var best railgame.MapPoint
	bestDist := -1
	for _, name := range names {
		point := snap.MapPoints[name]
		if !supplies(point, load) {
			continue
		}
		if !graph.Connected(*snap.TrainPos, point.Pos) {
			continue
		}
		d := railgame.HexDistance(*snap.TrainPos, point.Pos)
		if bestDist == -1 || d < bestDist {
			best = point
			bestDist = d
		}
	}
	return best, bestDist != -1
}

func supplies(p railgame.MapPoint, load railgame.Load) bool {
	for _, l := range p.Loads {
		if l == load {
			return true
		}
	}
	return false
}

// generateTrackBuilds proposes extending the network toward the nearest
// demand city the bot cannot yet reach.
func generateTrackBuilds(snap *WorldSnapshot) ([]FeasibleOption, []InfeasibleOption) {
	if snap.Cash < railgame.TerrainClear.BuildCost() {
		return nil, []InfeasibleOption{{
			Type:   ActionBuildTrack,
			Reason: fmt.Sprintf("insufficient cash to build track (have %d)", snap.Cash),
		}}
	}
	start, ok := buildStart(snap)
	if !ok {
		return nil, []InfeasibleOption{{Type: ActionBuildTrack, Reason: "no track or train position to build from"}}
	}

	graph := railgame.NewTrackGraph(snap.Track)
	target, ok := nearestUnconnectedDemandCity(snap, graph, start)
	if !ok {
		return nil, []InfeasibleOption{{Type: ActionBuildTrack, Reason: "all demand destinations already connected"}}
	}

	segments, cost := sketchSegments(start, target.Pos, buildBudget(snap))
	if len(segments) == 0 {
		return nil, []InfeasibleOption{{
			Type:   ActionBuildTrack,
			Reason: fmt.Sprintf("cannot afford a segment toward %s", target.Name),
		}}
	}
	return []FeasibleOption{{
		Type:        ActionBuildTrack,
		Description: fmt.Sprintf("build %d segments toward %s for %d", len(segments), target.Name, cost),
		Params:      BuildTrackParams{Segments: segments, TotalCost: cost, Toward: target.Name},
	}}, nil
}

// generateMajorCityBuilds proposes building to connect another major
// city, the deliberate path to victory-by-cities.
func generateMajorCityBuilds(snap *WorldSnapshot) ([]FeasibleOption, []InfeasibleOption) {
	if snap.Cash < railgame.TerrainClear.BuildCost() {
		return nil, []InfeasibleOption{{
			Type:   ActionBuildTowardMajorCity,
			Reason: fmt.Sprintf("insufficient cash to build track (have %d)", snap.Cash),
		}}
	}
	start, ok := buildStart(snap)
	if !ok {
		return nil, []InfeasibleOption{{Type: ActionBuildTowardMajorCity, Reason: "no track or train position to build from"}}
	}

	graph := railgame.NewTrackGraph(snap.Track)
	target, ok := nearestUnconnectedMajorCity(snap, graph, start)
	if !ok {
		return nil, []InfeasibleOption{{Type: ActionBuildTowardMajorCity, Reason: "every major city already connected"}}
	}

	segments, cost := sketchSegments(start, target.Pos, buildBudget(snap))
	if len(segments) == 0 {
		return nil, []InfeasibleOption{{
			Type:   ActionBuildTowardMajorCity,
			Reason: fmt.Sprintf("cannot afford a segment toward %s", target.Name),
		}}
	}
	return []FeasibleOption{{
		Type:        ActionBuildTowardMajorCity,
		Description: fmt.Sprintf("build %d segments toward major city %s for %d", len(segments), target.Name, cost),
		Params:      BuildTowardMajorCityParams{City: target.Name, Segments: segments, TotalCost: cost},
	}}, nil
}

// upgradePaths maps each train type to its purchasable successors.
// The first entry is the full upgrade, the second (if any) the cheaper
// crossgrade at the same tier.
var upgradePaths = map[railgame.TrainType][]struct {
	To   railgame.TrainType
	Cost int
}{
	railgame.Freight: {
		{To: railgame.FastFreight, Cost: railgame.FullUpgradeCost},
		{To: railgame.HeavyFreight, Cost: railgame.FullUpgradeCost},
	},
	railgame.FastFreight: {
		{To: railgame.Superfreight, Cost: railgame.FullUpgradeCost},
		{To: railgame.HeavyFreight, Cost: railgame.CrossgradeCost},
	},
	railgame.HeavyFreight: {
		{To: railgame.Superfreight, Cost: railgame.FullUpgradeCost},
		{To: railgame.FastFreight, Cost: railgame.CrossgradeCost},
	},
	railgame.Superfreight: nil,
}

func generateUpgrades(snap *WorldSnapshot) ([]FeasibleOption, []InfeasibleOption) {
	paths := upgradePaths[snap.TrainType]
	if len(paths) == 0 {
		return nil, []InfeasibleOption{{Type: ActionUpgradeTrain, Reason: "already running the best train"}}
	}

	current := snap.TrainType.Spec()
	var feasible []FeasibleOption
	var infeasible []InfeasibleOption
	for _, path := range paths {
		if snap.Cash < path.Cost {
			infeasible = append(infeasible, InfeasibleOption{
				Type:   ActionUpgradeTrain,
				Reason: fmt.Sprintf("insufficient cash for %s (need %d, have %d)", path.To, path.Cost, snap.Cash),
			})
			continue
		}
		next := path.To.Spec()
		feasible = append(feasible, FeasibleOption{
			Type:        ActionUpgradeTrain,
			Description: fmt.Sprintf("upgrade train to %s for %d", path.To, path.Cost),
			Params: UpgradeTrainParams{
				To:           path.To,
				Cost:         path.Cost,
				SpeedGain:    next.Speed - current.Speed,
				CapacityGain: next.Capacity - current.Capacity,
			},
		})
	}
	return feasible, infeasible
}

// buildStart picks where new track grows from: the train position when
// placed, otherwise any existing network endpoint.
func buildStart(snap *WorldSnapshot) (railgame.GridPos, bool) {
	if snap.TrainPos != nil {
		return *snap.TrainPos, true
	}
	if len(snap.Track) > 0 {
		return snap.Track[0].From, true
	}
	return railgame.GridPos{}, false
}

func buildBudget(snap *WorldSnapshot) int {
	if snap.Cash < railgame.BuildBudgetPerTurn {
		return snap.Cash
	}
	return railgame.BuildBudgetPerTurn
}

// sketchSegments lays out candidate segments along a rough line from
// start toward target, stopping when the budget runs out. Costs use
// clear terrain; the validator and rules service reprice on execution.
func sketchSegments(start, target railgame.GridPos, budget int) ([]railgame.TrackSegment, int) {
	perSegment := railgame.TerrainClear.BuildCost()
	var segments []railgame.TrackSegment
	total := 0
	prev := start
	for _, step := range railgame.LinePath(start, target) {
		if total+perSegment > budget {
			break
		}
		segments = append(segments, railgame.TrackSegment{From: prev, To: step, Cost: perSegment})
		total += perSegment
		prev = step
	}
	return segments, total
}

// nearestUnconnectedDemandCity scans held demand cards for the closest
// destination the network does not reach yet.
func nearestUnconnectedDemandCity(snap *WorldSnapshot, graph *railgame.TrackGraph, from railgame.GridPos) (railgame.MapPoint, bool) {
	var best railgame.MapPoint
	bestDist := -1
	for _, card := range snap.DemandCards {
		for _, demand := range card.Demands {
			point, ok := snap.MapPoints[demand.City]
			if !ok || graph.Connected(from, point.Pos) {
				continue
			}
			d := railgame.HexDistance(from, point.Pos)
			if bestDist == -1 || d < bestDist {
				best = point
				bestDist = d
			}
		}
	}
	return best, bestDist != -1
}

// nearestUnconnectedMajorCity returns the closest major city not yet on
// the bot's network. Name order breaks distance ties.
func nearestUnconnectedMajorCity(snap *WorldSnapshot, graph *railgame.TrackGraph, from railgame.GridPos) (railgame.MapPoint, bool) {
	names := make([]string, 0, len(snap.MapPoints))
	for name := range snap.MapPoints {
		names = append(names, name)
	}
	sort.Strings(names)

	var best railgame.MapPoint
	bestDist := -1
	for _, name := range names {
		point := snap.MapPoints[name]
		if !point.IsMajorCity || graph.Connected(from, point.Pos) {
			continue
		}
		d := railgame.HexDistance(from, point.Pos)
		if bestDist == -1 || d < bestDist {
			best = point
			bestDist = d
		}
	}
	return best, bestDist != -1
}
