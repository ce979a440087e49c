package railgame

// Builtin starter map: a compact continent with six major cities, a ring
// of towns that source the loads, and enough terrain variety to make
// route choice matter. Games can supply their own world document; this
// one exists so a game is playable with zero configuration.

// DefaultMap returns the starter map with its initial load stock.
func DefaultMap() WorldState {
	points := []MapPoint{
		{Name: "Atlanta", Pos: GridPos{Row: 14, Col: 12}, PixelX: 620, PixelY: 700, IsMajorCity: true},
		{Name: "Boston", Pos: GridPos{Row: 2, Col: 18}, PixelX: 900, PixelY: 110, IsMajorCity: true},
		{Name: "Chicago", Pos: GridPos{Row: 5, Col: 9}, PixelX: 460, PixelY: 260, IsMajorCity: true},
		{Name: "Denver", Pos: GridPos{Row: 9, Col: 3}, PixelX: 160, PixelY: 460, Terrain: TerrainMountain, IsMajorCity: true},
		{Name: "Houston", Pos: GridPos{Row: 16, Col: 6}, PixelX: 320, PixelY: 810, IsMajorCity: true},
		{Name: "New York", Pos: GridPos{Row: 4, Col: 16}, PixelX: 810, PixelY: 210, IsMajorCity: true},

		{Name: "Billings", Pos: GridPos{Row: 4, Col: 2}, PixelX: 120, PixelY: 210, Terrain: TerrainMountain, Loads: []Load{"cattle", "coal"}},
		{Name: "Duluth", Pos: GridPos{Row: 2, Col: 8}, PixelX: 410, PixelY: 110, Loads: []Load{"iron", "lumber"}},
		{Name: "Kansas City", Pos: GridPos{Row: 9, Col: 8}, PixelX: 410, PixelY: 460, Loads: []Load{"grain", "cattle"}},
		{Name: "Memphis", Pos: GridPos{Row: 12, Col: 10}, PixelX: 510, PixelY: 610, Loads: []Load{"cotton", "lumber"}},
		{Name: "Pittsburgh", Pos: GridPos{Row: 5, Col: 13}, PixelX: 660, PixelY: 260, Loads: []Load{"steel", "coal"}},
		{Name: "Tampa", Pos: GridPos{Row: 18, Col: 14}, PixelX: 720, PixelY: 900, Terrain: TerrainWater, Loads: []Load{"oranges"}},
		{Name: "Tucson", Pos: GridPos{Row: 14, Col: 2}, PixelX: 120, PixelY: 700, Terrain: TerrainAlpine, Loads: []Load{"copper"}},
	}

	mapPoints := make(map[string]MapPoint, len(points))
	for _, p := range points {
		mapPoints[p.Name] = p
	}
	return WorldState{
		MapPoints: mapPoints,
		LoadAvailability: map[Load]int{
			"cattle":  6,
			"coal":    8,
			"copper":  4,
			"cotton":  6,
			"grain":   8,
			"iron":    6,
			"lumber":  8,
			"oranges": 4,
			"steel":   6,
		},
	}
}

// StandardDeck returns the demand deck for the starter map, in a fixed
// order. Callers shuffle before dealing.
func StandardDeck() []DemandCard {
	return []DemandCard{
		{Demands: [3]Demand{{"Boston", "grain", 14}, {"Atlanta", "steel", 12}, {"Denver", "oranges", 22}}},
		{Demands: [3]Demand{{"Chicago", "cotton", 11}, {"Houston", "iron", 16}, {"New York", "cattle", 13}}},
		{Demands: [3]Demand{{"Denver", "lumber", 9}, {"Boston", "copper", 20}, {"Atlanta", "coal", 8}}},
		{Demands: [3]Demand{{"New York", "oranges", 18}, {"Chicago", "cattle", 10}, {"Houston", "steel", 15}}},
		{Demands: [3]Demand{{"Atlanta", "grain", 12}, {"Denver", "cotton", 17}, {"Boston", "lumber", 10}}},
		{Demands: [3]Demand{{"Houston", "copper", 14}, {"New York", "coal", 9}, {"Chicago", "iron", 11}}},
		{Demands: [3]Demand{{"Boston", "cattle", 15}, {"Atlanta", "oranges", 13}, {"Denver", "steel", 19}}},
		{Demands: [3]Demand{{"Chicago", "coal", 7}, {"Houston", "lumber", 12}, {"New York", "cotton", 14}}},
		{Demands: [3]Demand{{"Denver", "iron", 16}, {"Boston", "grain", 13}, {"Atlanta", "copper", 18}}},
		{Demands: [3]Demand{{"New York", "steel", 10}, {"Chicago", "oranges", 21}, {"Houston", "cattle", 12}}},
		{Demands: [3]Demand{{"Atlanta", "lumber", 8}, {"Denver", "coal", 11}, {"Boston", "cotton", 16}}},
		{Demands: [3]Demand{{"Houston", "grain", 10}, {"New York", "iron", 14}, {"Chicago", "copper", 17}}},
		{Demands: [3]Demand{{"Boston", "steel", 11}, {"Atlanta", "cattle", 14}, {"Denver", "grain", 12}}},
		{Demands: [3]Demand{{"Chicago", "lumber", 9}, {"Houston", "oranges", 19}, {"New York", "copper", 25}}},
		{Demands: [3]Demand{{"Denver", "cattle", 13}, {"Boston", "coal", 10}, {"Atlanta", "iron", 15}}},
		{Demands: [3]Demand{{"New York", "grain", 12}, {"Chicago", "steel", 9}, {"Houston", "cotton", 13}}},
		{Demands: [3]Demand{{"Atlanta", "cotton", 10}, {"Denver", "copper", 16}, {"Boston", "oranges", 23}}},
		{Demands: [3]Demand{{"Houston", "coal", 9}, {"New York", "lumber", 11}, {"Chicago", "grain", 10}}},
	}
}
