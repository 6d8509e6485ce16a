package target

import "github.com/ayusman/posewall/internal/pose"

// Template names in the built-in catalog.
const (
	Standing        = "standing"
	ArmsUp          = "arms_up"
	TPose           = "t_pose"
	OneArmUp        = "one_arm_up"
	HandsOnHipsWide = "hands_on_hips_wide"
	LegOut          = "leg_out"
	ArmsUpWide      = "arms_up_wide"
	Squat           = "squat"
	Star            = "star"
	Lunge           = "lunge"
)

// nosePosition is shared by every template.
var nosePosition = pose.Point{X: 0, Y: -0.4}

// mirrored places a joint pair symmetrically about the vertical axis.
func mirrored(joints map[int]pose.Point, left, right int, x, y float64) {
	joints[left] = pose.Point{X: -x, Y: y}
	joints[right] = pose.Point{X: x, Y: y}
}

// body describes a template by its per-side joint offsets. Zero-valued
// fields inherit from the standing body.
type body struct {
	shoulders, elbows, wrists, hips, knees, ankles pose.Point
}

var standingBody = body{
	shoulders: pose.Point{X: 0.15, Y: -0.3},
	elbows:    pose.Point{X: 0.17, Y: -0.05},
	wrists:    pose.Point{X: 0.18, Y: 0.15},
	hips:      pose.Point{X: 0.1, Y: 0.1},
	knees:     pose.Point{X: 0.1, Y: 0.3},
	ankles:    pose.Point{X: 0.1, Y: 0.5},
}

func (b body) joints() map[int]pose.Point {
	fill := func(p, def pose.Point) pose.Point {
		if p == (pose.Point{}) {
			return def
		}
		return p
	}
	j := map[int]pose.Point{pose.Nose: nosePosition}
	s := fill(b.shoulders, standingBody.shoulders)
	e := fill(b.elbows, standingBody.elbows)
	w := fill(b.wrists, standingBody.wrists)
	h := fill(b.hips, standingBody.hips)
	k := fill(b.knees, standingBody.knees)
	a := fill(b.ankles, standingBody.ankles)
	mirrored(j, pose.LeftShoulder, pose.RightShoulder, s.X, s.Y)
	mirrored(j, pose.LeftElbow, pose.RightElbow, e.X, e.Y)
	mirrored(j, pose.LeftWrist, pose.RightWrist, w.X, w.Y)
	mirrored(j, pose.LeftHip, pose.RightHip, h.X, h.Y)
	mirrored(j, pose.LeftKnee, pose.RightKnee, k.X, k.Y)
	mirrored(j, pose.LeftAnkle, pose.RightAnkle, a.X, a.Y)
	return j
}

// with overrides individual joints after the symmetric layout.
func with(j map[int]pose.Point, overrides map[int]pose.Point) map[int]pose.Point {
	for idx, p := range overrides {
		j[idx] = p
	}
	return j
}

// builtinJoints is the hand-authored catalog in raw skeleton space: x grows
// to the image right, y grows downward, nose above the shoulders.
var builtinJoints = []struct {
	name   string
	joints map[int]pose.Point
}{
	{Standing, standingBody.joints()},
	{ArmsUp, body{
		elbows: pose.Point{X: 0.2, Y: -0.5},
		wrists: pose.Point{X: 0.2, Y: -0.7},
	}.joints()},
	{TPose, body{
		shoulders: pose.Point{X: 0.3, Y: -0.3},
		elbows:    pose.Point{X: 0.4, Y: -0.3},
		wrists:    pose.Point{X: 0.5, Y: -0.3},
	}.joints()},
	{OneArmUp, with(standingBody.joints(), map[int]pose.Point{
		pose.LeftElbow: {X: -0.2, Y: -0.5},
		pose.LeftWrist: {X: -0.2, Y: -0.7},
	})},
	{HandsOnHipsWide, body{
		elbows: pose.Point{X: 0.3, Y: -0.1},
		wrists: pose.Point{X: 0.13, Y: 0.08},
		hips:   pose.Point{X: 0.15, Y: 0.1},
		knees:  pose.Point{X: 0.2, Y: 0.3},
		ankles: pose.Point{X: 0.25, Y: 0.5},
	}.joints()},
	{LegOut, with(body{
		elbows: pose.Point{X: 0.2, Y: -0.4},
		wrists: pose.Point{X: 0.2, Y: -0.5},
	}.joints(), map[int]pose.Point{
		pose.RightKnee:  {X: 0.22, Y: 0.27},
		pose.RightAnkle: {X: 0.34, Y: 0.42},
	})},
	{ArmsUpWide, body{
		elbows: pose.Point{X: 0.25, Y: -0.5},
		wrists: pose.Point{X: 0.3, Y: -0.7},
		hips:   pose.Point{X: 0.12, Y: 0.1},
		knees:  pose.Point{X: 0.22, Y: 0.3},
		ankles: pose.Point{X: 0.3, Y: 0.5},
	}.joints()},
	{Squat, body{
		shoulders: pose.Point{X: 0.15, Y: -0.1},
		elbows:    pose.Point{X: 0.3, Y: -0.1},
		wrists:    pose.Point{X: 0.45, Y: -0.1},
		hips:      pose.Point{X: 0.1, Y: 0.25},
		knees:     pose.Point{X: 0.25, Y: 0.3},
		ankles:    pose.Point{X: 0.15, Y: 0.5},
	}.joints()},
	{Star, body{
		elbows: pose.Point{X: 0.4, Y: -0.42},
		wrists: pose.Point{X: 0.6, Y: -0.55},
		knees:  pose.Point{X: 0.25, Y: 0.3},
		ankles: pose.Point{X: 0.4, Y: 0.5},
	}.joints()},
	{Lunge, with(body{
		shoulders: pose.Point{X: 0.15, Y: -0.35},
		elbows:    pose.Point{X: 0.25, Y: -0.15},
		wrists:    pose.Point{X: 0.2, Y: 0},
		hips:      pose.Point{X: 0.1, Y: 0.05},
	}.joints(), map[int]pose.Point{
		pose.LeftKnee:   {X: -0.3, Y: 0.25},
		pose.LeftAnkle:  {X: -0.3, Y: 0.5},
		pose.RightKnee:  {X: 0.15, Y: 0.3},
		pose.RightAnkle: {X: 0.35, Y: 0.45},
	})},
}
