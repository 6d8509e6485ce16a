package pose

// Point is a 2D joint position used to author skeletons by hand.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromJoints builds a raw 33-landmark frame from the given joints. Listed
// joints are fully visible; every other index is a zero placeholder.
func FromJoints(joints map[int]Point) []Landmark {
	out := make([]Landmark, NumLandmarks)
	for idx, p := range joints {
		if idx < 0 || idx >= NumLandmarks {
			continue
		}
		out[idx] = Landmark{X: p.X, Y: p.Y, Visibility: 1}
	}
	return out
}

// Transform returns a copy of raw scaled by factor around the origin and
// then shifted by (dx, dy). Z scales with X and Y.
func Transform(raw []Landmark, factor, dx, dy float64) []Landmark {
	out := make([]Landmark, len(raw))
	for i, l := range raw {
		out[i] = Landmark{
			X:          l.X*factor + dx,
			Y:          l.Y*factor + dy,
			Z:          l.Z * factor,
			Visibility: l.Visibility,
		}
	}
	return out
}
