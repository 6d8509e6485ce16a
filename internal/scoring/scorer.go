package scoring

import (
	"math"

	"github.com/ayusman/posewall/internal/pose"
)

// Reason explains how a score was reached.
type Reason string

const (
	// ReasonScored means the full weighted comparison ran.
	ReasonScored Reason = "scored"
	// ReasonMissingPose means the current or target pose was absent.
	ReasonMissingPose Reason = "missing_pose"
	// ReasonStanding means the player was judged to be standing still.
	ReasonStanding Reason = "standing"
	// ReasonNoRelevantJoints means the target does not differ from standing.
	ReasonNoRelevantJoints Reason = "no_relevant_joints"
	// ReasonNoEvidence means no comparison had visible landmarks.
	ReasonNoEvidence Reason = "no_evidence"
)

// CategoryResult summarizes one comparison category.
type CategoryResult struct {
	// Expected is the number of relevant comparisons the target offers.
	Expected int `json:"expected"`
	// Qualifying is how many of those had visible landmarks in the current pose.
	Qualifying int     `json:"qualifying"`
	Average    float64 `json:"average"`
	Weight     float64 `json:"weight"`
	Shortfall  bool    `json:"shortfall"`
}

// Breakdown is the diagnostic detail behind a score.
type Breakdown struct {
	Score              int                       `json:"score"`
	Reason             Reason                    `json:"reason"`
	StandingSimilarity float64                   `json:"standing_similarity"`
	Partial            float64                   `json:"partial"`
	Categories         map[string]CategoryResult `json:"categories,omitempty"`
}

var categoryNames = [numCategories]string{
	catArmAngle: "arm_angle",
	catLegAngle: "leg_angle",
	catArmBone:  "arm_bone",
	catLegBone:  "leg_bone",
	catPosition: "position",
}

// Scorer compares poses. It is stateless after construction and safe for
// concurrent use.
type Scorer struct {
	tuning   Tuning
	standing pose.Pose
	weights  [numCategories]float64

	// Per-joint values of the standing reference, computed once.
	standingAngles  []float64
	standingLengths []float64
	standingTorso   float64
}

// NewScorer creates a Scorer with the given tuning and normalized standing
// reference pose.
func NewScorer(t Tuning, standing pose.Pose) *Scorer {
	s := &Scorer{
		tuning:   t,
		standing: standing,
	}
	s.weights[catArmAngle] = t.Weights.ArmAngle
	s.weights[catLegAngle] = t.Weights.LegAngle
	s.weights[catArmBone] = t.Weights.ArmBone
	s.weights[catLegBone] = t.Weights.LegBone
	s.weights[catPosition] = t.Weights.Position

	s.standingAngles = make([]float64, len(angleTriples))
	for i, tr := range angleTriples {
		s.standingAngles[i] = jointAngle(standing[tr.a], standing[tr.b], standing[tr.c])
	}
	s.standingLengths = make([]float64, len(bonePairs))
	for i, bp := range bonePairs {
		s.standingLengths[i] = pose.Distance(standing[bp.a], standing[bp.b])
	}
	s.standingTorso, _ = s.torso(&standing)
	return s
}

// Tuning returns the scorer's tuning.
func (s *Scorer) Tuning() Tuning {
	return s.tuning
}

// Score returns the similarity of current to target as an integer in
// [0,100]. Either pose being nil yields 0.
func (s *Scorer) Score(current, target *pose.Pose) int {
	return s.Explain(current, target).Score
}

// StandingSimilarity returns how close p is to the standing reference, in
// [0,1], over the visible shoulders, hips, knees and ankles.
func (s *Scorer) StandingSimilarity(p *pose.Pose) float64 {
	if p == nil {
		return 0
	}
	sum, n := 0.0, 0
	for _, j := range standingJoints {
		if !s.usable(p[j]) {
			continue
		}
		sum += distanceSimilarity(pose.Distance(p[j], s.standing[j]), s.tuning.StandingCutoff)
		n++
	}
	if n == 0 {
		return 0
	}
	return finiteOrZero(sum / float64(n))
}

// StandingCoverage returns how many of the joints used by the standing
// check are usable in p, and how many there are.
func (s *Scorer) StandingCoverage(p *pose.Pose) (usable, total int) {
	total = len(standingJoints)
	if p == nil {
		return 0, total
	}
	for _, j := range standingJoints {
		if s.usable(p[j]) {
			usable++
		}
	}
	return usable, total
}

// IsStanding reports whether p would trigger standing suppression.
func (s *Scorer) IsStanding(p *pose.Pose) bool {
	return s.StandingSimilarity(p) >= s.tuning.StandingThreshold
}

type tally struct {
	expected   int
	qualifying int
	sum        float64
}

// Explain scores current against target and reports how the score was
// reached.
func (s *Scorer) Explain(current, target *pose.Pose) Breakdown {
	if current == nil || target == nil {
		return Breakdown{Reason: ReasonMissingPose}
	}

	t := &s.tuning
	ss := s.StandingSimilarity(current)
	b := Breakdown{StandingSimilarity: ss}

	if ss >= t.StandingThreshold {
		b.Reason = ReasonStanding
		b.Score = toPercent(ss * t.StandingCap)
		return b
	}

	var tallies [numCategories]tally
	relevant := 0

	for i, tr := range angleTriples {
		if !s.usable(target[tr.a]) || !s.usable(target[tr.b]) || !s.usable(target[tr.c]) {
			continue
		}
		want := jointAngle(target[tr.a], target[tr.b], target[tr.c])
		if angleDiff(want, s.standingAngles[i]) < t.RelevantAngle {
			continue
		}
		relevant++
		tl := &tallies[tr.cat]
		tl.expected++
		if !s.usable(current[tr.a]) || !s.usable(current[tr.b]) || !s.usable(current[tr.c]) {
			continue
		}
		got := jointAngle(current[tr.a], current[tr.b], current[tr.c])
		tl.qualifying++
		tl.sum += finiteOrZero(t.angleSimilarity(angleDiff(got, want)))
	}

	// Bone relevance is judged relative to torso length, so a target that
	// widens the bounding box does not make unchanged limbs look shorter.
	targetTorso, torsoOK := s.torso(target)
	torsoOK = torsoOK && s.standingTorso >= degenerateLength
	for i, bp := range bonePairs {
		if !s.usable(target[bp.a]) || !s.usable(target[bp.b]) {
			continue
		}
		want := pose.Distance(target[bp.a], target[bp.b])
		var r float64
		var ok bool
		if torsoOK {
			r, ok = lengthRatio(want/targetTorso, s.standingLengths[i]/s.standingTorso)
		} else {
			r, ok = lengthRatio(want, s.standingLengths[i])
		}
		if !ok || r >= t.RelevantBoneRatio {
			continue
		}
		relevant++
		tl := &tallies[bp.cat]
		tl.expected++
		if !s.usable(current[bp.a]) || !s.usable(current[bp.b]) {
			continue
		}
		r, ok = lengthRatio(pose.Distance(current[bp.a], current[bp.b]), want)
		if !ok {
			continue
		}
		tl.qualifying++
		tl.sum += finiteOrZero(t.boneSimilarity(r))
	}

	if relevant == 0 {
		b.Reason = ReasonNoRelevantJoints
		b.Score = toPercent(ss * t.FallbackFactor)
		return b
	}

	pos := &tallies[catPosition]
	for _, j := range positionJoints {
		if !s.usable(target[j]) {
			continue
		}
		pos.expected++
		if !s.usable(current[j]) {
			continue
		}
		pos.qualifying++
		d := pose.Distance(current[j], target[j])
		pos.sum += finiteOrZero(distanceSimilarity(d, t.PositionCutoff))
	}

	b.Categories = make(map[string]CategoryResult, numCategories)
	num, den, penalty := 0.0, 0.0, 1.0
	for c := category(0); c < numCategories; c++ {
		tl := tallies[c]
		if tl.expected == 0 {
			continue
		}
		res := CategoryResult{
			Expected:   tl.expected,
			Qualifying: tl.qualifying,
			Weight:     s.weights[c],
		}
		if float64(tl.qualifying) < float64(tl.expected)*t.ShortfallRatio {
			res.Shortfall = true
			penalty *= t.ShortfallPenalty
		}
		if tl.qualifying > 0 {
			res.Average = tl.sum / float64(tl.qualifying)
			num += s.weights[c] * res.Average
			den += s.weights[c]
		}
		b.Categories[categoryNames[c]] = res
	}

	if den == 0 {
		b.Reason = ReasonNoEvidence
		b.Score = toPercent(ss * t.FallbackFactor)
		return b
	}

	partial := finiteOrZero(num / den * penalty)
	if partial >= t.BonusThreshold {
		partial *= t.BonusMultiplier
	}
	b.Partial = partial
	b.Reason = ReasonScored
	b.Score = toPercent(partial)
	return b
}

// torso returns the distance from the shoulder midpoint to the hip
// midpoint, or false when a torso joint is unusable or the torso is
// degenerate.
func (s *Scorer) torso(p *pose.Pose) (float64, bool) {
	for _, j := range []int{pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip} {
		if !s.usable(p[j]) {
			return 0, false
		}
	}
	sx := (p[pose.LeftShoulder].X + p[pose.RightShoulder].X) / 2
	sy := (p[pose.LeftShoulder].Y + p[pose.RightShoulder].Y) / 2
	hx := (p[pose.LeftHip].X + p[pose.RightHip].X) / 2
	hy := (p[pose.LeftHip].Y + p[pose.RightHip].Y) / 2
	d := math.Hypot(sx-hx, sy-hy)
	if d < degenerateLength || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}

// usable reports whether a landmark may take part in a comparison.
func (s *Scorer) usable(l pose.Landmark) bool {
	return l.Finite() && l.Visibility >= s.tuning.VisibilityThreshold
}

// toPercent clamps v to [0,1] and rounds it to an integer percentage.
// Non-finite input yields 0.
func toPercent(v float64) int {
	v = finiteOrZero(v)
	v = math.Max(0, math.Min(1, v))
	return int(math.Floor(v*100 + 0.5))
}
