package railgame

// Terrain classifies a hex for construction cost purposes.
type Terrain string

const (
	TerrainClear    Terrain = "clear"
	TerrainMountain Terrain = "mountain"
	TerrainAlpine   Terrain = "alpine"
	TerrainWater    Terrain = "water"
)

// BuildCost returns the cost of building one track segment into a hex of
// this terrain. Water crossings are priced by the rules service and show
// up here only as the most expensive class.
func (t Terrain) BuildCost() int {
	switch t {
	case TerrainMountain:
		return 2
	case TerrainAlpine:
		return 5
	case TerrainWater:
		return 3
	default:
		return 1
	}
}

// MapPoint is a named location on the map: a city, town, or load source.
type MapPoint struct {
	Name        string  `json:"name"`
	Pos         GridPos `json:"pos"`
	PixelX      int     `json:"pixel_x"`
	PixelY      int     `json:"pixel_y"`
	Terrain     Terrain `json:"terrain,omitempty"`
	IsMajorCity bool    `json:"is_major_city,omitempty"`
	// Loads available for pickup at this point.
	Loads []Load `json:"loads,omitempty"`
}

// Demand is one destination/load/payment triple on a demand card.
type Demand struct {
	City    string `json:"city"`
	Load    Load   `json:"load"`
	Payment int    `json:"payment"`
}

// DemandCard carries three alternative demands; fulfilling any one of
// them discards the card.
type DemandCard struct {
	Demands [3]Demand `json:"demands"`
}

// WorldState is the live, shared view of a game kept in the cache: the
// map, remaining load availability, and the current turn counter.
// Per-player state (cash, loads, track) lives in the player records.
type WorldState struct {
	MapPoints        map[string]MapPoint `json:"map_points"`
	LoadAvailability map[Load]int        `json:"load_availability"`
	TurnNumber       int                 `json:"turn_number"`
}

// MajorCities returns the major city points. Map iteration order is not
// stable; callers needing determinism should sort by name.
func (w *WorldState) MajorCities() []MapPoint {
	var cities []MapPoint
	for _, p := range w.MapPoints {
		if p.IsMajorCity {
			cities = append(cities, p)
		}
	}
	return cities
}
