package pose

// DefaultSmoothing is the weight given to the newest sample.
const DefaultSmoothing = 0.7

// Smoother damps per-frame estimator jitter with an exponential moving
// average over raw landmarks. It holds the previous frame and is owned by a
// single goroutine.
type Smoother struct {
	alpha float64
	prev  []Landmark
}

// NewSmoother creates a Smoother. An alpha outside (0,1] falls back to
// DefaultSmoothing.
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothing
	}
	return &Smoother{alpha: alpha}
}

// Apply returns the smoothed frame. A nil or empty frame means tracking was
// lost: the history is dropped and nil is returned. Visibility always takes
// the newest value. The input slice is not modified.
func (s *Smoother) Apply(frame []Landmark) []Landmark {
	if len(frame) == 0 {
		s.Reset()
		return nil
	}

	out := make([]Landmark, len(frame))
	copy(out, frame)

	if len(s.prev) != len(frame) {
		s.prev = out
		return cloneLandmarks(out)
	}

	for i := range out {
		p := s.prev[i]
		c := out[i]
		// Do not carry garbage forward from either side.
		if !p.Finite() || !isFinite(p.Z) || !c.Finite() || !isFinite(c.Z) {
			continue
		}
		out[i].X = s.alpha*c.X + (1-s.alpha)*p.X
		out[i].Y = s.alpha*c.Y + (1-s.alpha)*p.Y
		out[i].Z = s.alpha*c.Z + (1-s.alpha)*p.Z
	}

	s.prev = out
	return cloneLandmarks(out)
}

// Reset drops the smoothing history.
func (s *Smoother) Reset() {
	s.prev = nil
}

func cloneLandmarks(in []Landmark) []Landmark {
	out := make([]Landmark, len(in))
	copy(out, in)
	return out
}
