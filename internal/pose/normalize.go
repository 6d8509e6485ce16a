package pose

import (
	"errors"
	"math"
)

// Normalization constants.
const (
	// BoxVisibility is the visibility a landmark needs to count toward the
	// bounding box.
	BoxVisibility = 0.5
	// MinScale floors the bounding box extent so near-degenerate poses
	// cannot blow up.
	MinScale = 0.01
)

var (
	// ErrNoLandmarks is returned when the estimator produced no points.
	ErrNoLandmarks = errors.New("no landmarks")
	// ErrNoFinitePoints is returned when no landmark has finite coordinates.
	ErrNoFinitePoints = errors.New("no finite landmarks")
)

// Normalize centers a raw pose on its bounding box and scales it so the
// larger box dimension has unit extent. The box covers landmarks with
// visibility above BoxVisibility, or every finite landmark when none
// qualify. Malformed entries become zero placeholders. The input is not
// modified.
func Normalize(raw []Landmark) (*Pose, error) {
	if len(raw) == 0 {
		return nil, ErrNoLandmarks
	}

	n := len(raw)
	if n > NumLandmarks {
		n = NumLandmarks
	}

	valid := make([]bool, n)
	anyValid, anyVisible := false, false
	for i := 0; i < n; i++ {
		l := raw[i]
		if !l.Finite() || !isFinite(l.Visibility) {
			continue
		}
		valid[i] = true
		anyValid = true
		if l.Visibility > BoxVisibility {
			anyVisible = true
		}
	}
	if !anyValid {
		return nil, ErrNoFinitePoints
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i < n; i++ {
		if !valid[i] {
			continue
		}
		l := raw[i]
		if anyVisible && l.Visibility <= BoxVisibility {
			continue
		}
		minX = math.Min(minX, l.X)
		maxX = math.Max(maxX, l.X)
		minY = math.Min(minY, l.Y)
		maxY = math.Max(maxY, l.Y)
	}

	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2
	scale := math.Max(maxX-minX, maxY-minY)
	if !isFinite(scale) {
		return nil, ErrNoFinitePoints
	}
	if scale < MinScale {
		scale = MinScale
	}

	var out Pose
	for i := 0; i < n; i++ {
		if !valid[i] {
			continue
		}
		l := raw[i]
		z := l.Z
		if !isFinite(z) {
			z = 0
		}
		out[i] = Landmark{
			X:          (l.X - cx) / scale,
			Y:          (l.Y - cy) / scale,
			Z:          z / scale,
			Visibility: clamp01(l.Visibility),
		}
	}

	return &out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
