package scoring

import (
	"math"

	"github.com/ayusman/posewall/internal/pose"
)

// degenerateLength is the vector length below which an angle is undefined.
const degenerateLength = 1e-9

type category int

const (
	catArmAngle category = iota
	catLegAngle
	catArmBone
	catLegBone
	catPosition
	numCategories
)

// triple is an angle measured at B between BA and BC.
type triple struct {
	cat     category
	a, b, c int
}

// pair is a bone segment.
type pair struct {
	cat  category
	a, b int
}

var angleTriples = []triple{
	{catArmAngle, pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
	{catArmAngle, pose.RightShoulder, pose.RightElbow, pose.RightWrist},
	{catArmAngle, pose.LeftHip, pose.LeftShoulder, pose.LeftElbow},
	{catArmAngle, pose.RightHip, pose.RightShoulder, pose.RightElbow},
	{catLegAngle, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
	{catLegAngle, pose.RightHip, pose.RightKnee, pose.RightAnkle},
	{catLegAngle, pose.LeftShoulder, pose.LeftHip, pose.LeftKnee},
	{catLegAngle, pose.RightShoulder, pose.RightHip, pose.RightKnee},
}

var bonePairs = []pair{
	{catArmBone, pose.LeftShoulder, pose.LeftElbow},
	{catArmBone, pose.RightShoulder, pose.RightElbow},
	{catArmBone, pose.LeftElbow, pose.LeftWrist},
	{catArmBone, pose.RightElbow, pose.RightWrist},
	{catArmBone, pose.LeftShoulder, pose.RightShoulder},
	{catLegBone, pose.LeftHip, pose.LeftKnee},
	{catLegBone, pose.RightHip, pose.RightKnee},
	{catLegBone, pose.LeftKnee, pose.LeftAnkle},
	{catLegBone, pose.RightKnee, pose.RightAnkle},
	{catLegBone, pose.LeftHip, pose.RightHip},
}

// positionJoints are compared point to point.
var positionJoints = []int{
	pose.Nose,
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftElbow, pose.RightElbow,
	pose.LeftWrist, pose.RightWrist,
	pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee,
	pose.LeftAnkle, pose.RightAnkle,
}

// standingJoints are used for the quick standing check.
var standingJoints = []int{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee,
	pose.LeftAnkle, pose.RightAnkle,
}

// jointAngle returns the angle at b in degrees, in [0,180]. A zero-length
// arm yields a neutral 180.
func jointAngle(a, b, c pose.Landmark) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 < degenerateLength || n2 < degenerateLength {
		return 180
	}
	cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// angleDiff is the circular distance between two angles folded to [0,180].
func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	d = math.Min(d, 360-d)
	return math.Min(d, 180)
}

// lengthRatio returns min/max of two lengths, or false when both are zero.
func lengthRatio(x, y float64) (float64, bool) {
	hi := math.Max(x, y)
	if hi < degenerateLength || math.IsNaN(hi) {
		return 0, false
	}
	return math.Min(x, y) / hi, true
}

// angleSimilarity maps an angular difference to [0,1]. It is 1 up to
// AngleFullCredit, 0 from AngleCutoff and falls off as a power curve between.
func (t *Tuning) angleSimilarity(diff float64) float64 {
	if diff <= t.AngleFullCredit {
		return 1
	}
	if diff >= t.AngleCutoff {
		return 0
	}
	x := (diff - t.AngleFullCredit) / (t.AngleCutoff - t.AngleFullCredit)
	return 1 - math.Pow(x, t.AngleExponent)
}

// boneSimilarity maps a length ratio in [0,1] to a similarity. Above the
// threshold credit stays within BoneHighPenalty of 1; below it drops off
// faster than linearly.
func (t *Tuning) boneSimilarity(ratio float64) float64 {
	if ratio >= t.BoneRatioThreshold {
		return 1 - (1-ratio)/(1-t.BoneRatioThreshold)*t.BoneHighPenalty
	}
	return (1 - t.BoneHighPenalty) * math.Pow(ratio/t.BoneRatioThreshold, t.BoneExponent)
}

// distanceSimilarity is linear from 1 at zero distance to 0 at cutoff.
func distanceSimilarity(d, cutoff float64) float64 {
	return math.Max(0, 1-d/cutoff)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
