package railgame

// GridPos is a position on the hex map in odd-row offset coordinates.
type GridPos struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// cube converts odd-row offset coordinates to cube coordinates.
func (p GridPos) cube() (x, y, z int) {
	x = p.Col - (p.Row-(p.Row&1))/2
	z = p.Row
	y = -x - z
	return
}

// HexDistance returns the number of hex steps between two grid positions.
func HexDistance(a, b GridPos) int {
	ax, ay, az := a.cube()
	bx, by, bz := b.cube()
	return (abs(ax-bx) + abs(ay-by) + abs(az-bz)) / 2
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
