// Package pose provides body landmark types, normalization and smoothing.
package pose

import (
	"math"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Body landmark indices following the MediaPipe BlazePose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Landmark is a single tracked body point. X and Y are image-plane
// coordinates before normalization, Z is relative depth and Visibility is
// the estimator's confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// UnmarshalJSON decodes a landmark, defaulting Visibility to 1 when the
// field is absent.
func (l *Landmark) UnmarshalJSON(data []byte) error {
	var wire struct {
		X          float64  `json:"x"`
		Y          float64  `json:"y"`
		Z          float64  `json:"z"`
		Visibility *float64 `json:"visibility"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	l.X, l.Y, l.Z = wire.X, wire.Y, wire.Z
	l.Visibility = 1
	if wire.Visibility != nil {
		l.Visibility = *wire.Visibility
	}
	return nil
}

// Finite reports whether the landmark's X and Y are usable numbers.
func (l Landmark) Finite() bool {
	return isFinite(l.X) && isFinite(l.Y)
}

// Pose is a full 33-point body snapshot. Missing points are zero-valued
// placeholders so that index identity is always preserved.
type Pose [NumLandmarks]Landmark

// Landmarks returns the pose as a slice, e.g. for JSON responses.
func (p *Pose) Landmarks() []Landmark {
	if p == nil {
		return nil
	}
	out := make([]Landmark, NumLandmarks)
	copy(out, p[:])
	return out
}

// Distance returns the 2D Euclidean distance between two landmarks.
func Distance(a, b Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
