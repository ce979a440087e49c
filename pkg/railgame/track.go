package railgame

// TrackSegment is one built rail link between two adjacent hexes.
type TrackSegment struct {
	From GridPos `json:"from"`
	To   GridPos `json:"to"`
	Cost int     `json:"cost"`
}

// TrackGraph answers connectivity questions over a set of built segments.
type TrackGraph struct {
	adj map[GridPos][]GridPos
}

// NewTrackGraph builds an undirected adjacency index over segments.
func NewTrackGraph(segments []TrackSegment) *TrackGraph {
	g := &TrackGraph{adj: make(map[GridPos][]GridPos, len(segments)*2)}
	for _, s := range segments {
		g.adj[s.From] = append(g.adj[s.From], s.To)
		g.adj[s.To] = append(g.adj[s.To], s.From)
	}
	return g
}

// Connected reports whether to is reachable from from over built track.
// A position is trivially connected to itself.
func (g *TrackGraph) Connected(from, to GridPos) bool {
	if from == to {
		return true
	}
	visited := map[GridPos]bool{from: true}
	queue := []GridPos{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adj[cur] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// OnNetwork reports whether a position touches any built segment.
func (g *TrackGraph) OnNetwork(p GridPos) bool {
	return len(g.adj[p]) > 0
}

// Endpoints returns every position touched by at least one segment.
func (g *TrackGraph) Endpoints() []GridPos {
	points := make([]GridPos, 0, len(g.adj))
	for p := range g.adj {
		points = append(points, p)
	}
	return points
}

// LinePath returns the hexes stepped through when walking roughly
// straight from a toward b, excluding a, including b. It moves one hex
// per step, reducing row distance first, then column distance. Used to
// sketch candidate track extensions; the rules service decides actual
// legality and cost.
func LinePath(a, b GridPos) []GridPos {
	var path []GridPos
	cur := a
	for cur != b {
		switch {
		case cur.Row < b.Row:
			cur.Row++
		case cur.Row > b.Row:
			cur.Row--
		case cur.Col < b.Col:
			cur.Col++
		default:
			cur.Col--
		}
		path = append(path, cur)
	}
	return path
}
