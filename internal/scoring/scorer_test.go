package scoring

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/target"
)

func newTestScorer() *Scorer {
	return NewScorer(DefaultTuning(), target.StandingPose())
}

func mustTemplate(t *testing.T, name string) pose.Pose {
	t.Helper()
	tpl, err := target.NewCatalog().Get(name)
	if err != nil {
		t.Fatalf("template %s: %v", name, err)
	}
	return tpl.Pose
}

// bend places the landmark at c so that the angle at b between b->a and
// b->c equals deg, keeping the segment length |bc|.
func bend(p *pose.Pose, a, b, c int, deg float64) {
	r := pose.Distance(p[b], p[c])
	ux, uy := p[a].X-p[b].X, p[a].Y-p[b].Y
	n := math.Hypot(ux, uy)
	ux, uy = ux/n, uy/n
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	p[c].X = p[b].X + r*(ux*cos-uy*sin)
	p[c].Y = p[b].Y + r*(ux*sin+uy*cos)
}

func TestScore_Range(t *testing.T) {
	s := newTestScorer()
	star := mustTemplate(t, target.Star)

	adversarial := map[string]func() pose.Pose{
		"all NaN": func() pose.Pose {
			var p pose.Pose
			for i := range p {
				p[i] = pose.Landmark{X: math.NaN(), Y: math.NaN(), Z: math.NaN(), Visibility: math.NaN()}
			}
			return p
		},
		"infinite coordinates": func() pose.Pose {
			p := star
			for i := range p {
				p[i].X = math.Inf(1)
				p[i].Visibility = 1
			}
			return p
		},
		"huge coordinates": func() pose.Pose {
			p := star
			for i := range p {
				p[i].X *= 1e300
				p[i].Y *= 1e300
			}
			return p
		},
		"identical points": func() pose.Pose {
			var p pose.Pose
			for i := range p {
				p[i] = pose.Landmark{X: 0.1, Y: 0.1, Visibility: 1}
			}
			return p
		},
		"zero visibility": func() pose.Pose {
			p := star
			for i := range p {
				p[i].Visibility = 0
			}
			return p
		},
		"negative visibility": func() pose.Pose {
			p := star
			for i := range p {
				p[i].Visibility = -5
			}
			return p
		},
		"zero value": func() pose.Pose {
			return pose.Pose{}
		},
	}

	targets := []pose.Pose{star, mustTemplate(t, target.Squat), adversarial["identical points"](), adversarial["all NaN"]()}

	for name, build := range adversarial {
		t.Run(name, func(t *testing.T) {
			current := build()
			for _, tgt := range targets {
				tgt := tgt
				for _, pair := range [][2]*pose.Pose{{&current, &tgt}, {&tgt, &current}} {
					got := s.Score(pair[0], pair[1])
					if got < 0 || got > 100 {
						t.Fatalf("score out of range: %d", got)
					}
				}
			}
		})
	}

	t.Run("random noise", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 500; i++ {
			var a, b pose.Pose
			for j := range a {
				a[j] = pose.Landmark{X: rng.NormFloat64(), Y: rng.NormFloat64(), Visibility: rng.Float64()}
				b[j] = pose.Landmark{X: rng.NormFloat64(), Y: rng.NormFloat64(), Visibility: rng.Float64()}
			}
			if got := s.Score(&a, &b); got < 0 || got > 100 {
				t.Fatalf("score out of range: %d", got)
			}
		}
	})
}

func TestScore_MissingPose(t *testing.T) {
	s := newTestScorer()
	p := mustTemplate(t, target.ArmsUp)

	if got := s.Score(nil, &p); got != 0 {
		t.Errorf("expected 0 for nil current, got %d", got)
	}
	if got := s.Score(&p, nil); got != 0 {
		t.Errorf("expected 0 for nil target, got %d", got)
	}
	if b := s.Explain(nil, nil); b.Reason != ReasonMissingPose {
		t.Errorf("expected ReasonMissingPose, got %s", b.Reason)
	}
}

func TestScore_SelfMatch(t *testing.T) {
	s := newTestScorer()

	for _, tpl := range target.NewCatalog().List() {
		t.Run(tpl.Name, func(t *testing.T) {
			p := tpl.Pose
			if got := s.Score(&p, &p); got <= 90 {
				t.Errorf("expected self score > 90, got %d", got)
			}
		})
	}

	t.Run("arms up wide stance", func(t *testing.T) {
		p := mustTemplate(t, target.ArmsUpWide)
		b := s.Explain(&p, &p)
		if b.Score < 90 {
			t.Errorf("expected >= 90, got %d", b.Score)
		}
		if b.Reason != ReasonScored {
			t.Errorf("expected no suppression, got %s", b.Reason)
		}
	})
}

func TestScore_StandingSuppression(t *testing.T) {
	s := newTestScorer()
	standing := target.StandingPose()

	t.Run("standing against every target", func(t *testing.T) {
		for _, tpl := range target.NewCatalog().List() {
			tgt := tpl.Pose
			b := s.Explain(&standing, &tgt)
			if b.Score > 30 {
				t.Errorf("%s: expected standing capped at 30, got %d", tpl.Name, b.Score)
			}
			if b.Reason != ReasonStanding {
				t.Errorf("%s: expected ReasonStanding, got %s", tpl.Name, b.Reason)
			}
		}
	})

	t.Run("standing against standing", func(t *testing.T) {
		b := s.Explain(&standing, &standing)
		if b.StandingSimilarity < 0.9 {
			t.Errorf("expected near-perfect standing similarity, got %f", b.StandingSimilarity)
		}
		if b.Score > 30 {
			t.Errorf("expected cap to win, got %d", b.Score)
		}
	})

	t.Run("raw standing skeleton at another scale", func(t *testing.T) {
		p, err := pose.Normalize(pose.Transform(target.StandingRaw(), 480, 320, 40))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		star := mustTemplate(t, target.Star)
		if got := s.Score(p, &star); got > 30 {
			t.Errorf("expected standing capped, got %d", got)
		}
	})

	t.Run("catalog templates are not standing", func(t *testing.T) {
		for _, tpl := range target.NewCatalog().List() {
			p := tpl.Pose
			if s.IsStanding(&p) {
				t.Errorf("%s should not read as standing", tpl.Name)
			}
		}
	})
}

func TestScore_NoRelevantJoints(t *testing.T) {
	s := newTestScorer()
	standing := target.StandingPose()
	squat := mustTemplate(t, target.Squat)

	b := s.Explain(&squat, &standing)
	if b.Reason != ReasonNoRelevantJoints {
		t.Fatalf("expected ReasonNoRelevantJoints, got %s", b.Reason)
	}
	if b.Score > 30 {
		t.Errorf("expected low fallback score, got %d", b.Score)
	}
}

func TestScore_BoneRelevanceIgnoresScale(t *testing.T) {
	s := newTestScorer()

	// Raised arms stretch the bounding box; the unchanged legs must not
	// read as shorter than standing.
	armsUp := mustTemplate(t, target.ArmsUp)
	b := s.Explain(&armsUp, &armsUp)
	if _, ok := b.Categories["leg_bone"]; ok {
		t.Errorf("arms_up legs match standing, got leg_bone %+v", b.Categories["leg_bone"])
	}
	if _, ok := b.Categories["arm_bone"]; !ok {
		t.Error("expected arm bones to stay relevant for arms_up")
	}

	star := mustTemplate(t, target.Star)
	b = s.Explain(&star, &star)
	if _, ok := b.Categories["leg_bone"]; !ok {
		t.Error("expected spread legs to make leg bones relevant")
	}
}

func TestScore_Visibility(t *testing.T) {
	s := newTestScorer()
	tgt := mustTemplate(t, target.Star)

	t.Run("all hidden scores low", func(t *testing.T) {
		cur := tgt
		for i := range cur {
			cur[i].Visibility = 0
		}
		b := s.Explain(&cur, &tgt)
		if b.Score > 30 {
			t.Errorf("expected low score, got %d", b.Score)
		}
		if b.Reason != ReasonNoEvidence {
			t.Errorf("expected ReasonNoEvidence, got %s", b.Reason)
		}
	})

	t.Run("hidden legs score below full visibility", func(t *testing.T) {
		full := s.Score(&tgt, &tgt)

		cur := tgt
		for _, j := range []int{pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle} {
			cur[j].Visibility = 0.1
		}
		b := s.Explain(&cur, &tgt)
		if b.Score >= full {
			t.Errorf("expected partial evidence (%d) below full evidence (%d)", b.Score, full)
		}
		if !b.Categories["leg_angle"].Shortfall {
			t.Error("expected leg angle shortfall")
		}
	})

	t.Run("low visibility is excluded not zero-filled", func(t *testing.T) {
		lunge := mustTemplate(t, target.Lunge)
		// A hidden stray ankle must not count against the player.
		cur := lunge
		cur[pose.LeftAnkle] = pose.Landmark{X: 5, Y: 5, Visibility: 0.1}
		moved := lunge
		moved[pose.LeftAnkle] = pose.Landmark{X: 5, Y: 5, Visibility: 1}

		hidden := s.Score(&cur, &lunge)
		visible := s.Score(&moved, &lunge)
		if hidden <= visible {
			t.Errorf("hidden ankle (%d) should score above a visible wrong ankle (%d)", hidden, visible)
		}
	})
}

func TestScore_Monotonic(t *testing.T) {
	s := newTestScorer()

	cases := []struct {
		template string
		a, b, c  int
	}{
		{target.Squat, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		{target.Lunge, pose.RightHip, pose.RightKnee, pose.RightAnkle},
		{target.HandsOnHipsWide, pose.RightHip, pose.RightKnee, pose.RightAnkle},
		{target.Star, pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
		{target.TPose, pose.RightShoulder, pose.RightElbow, pose.RightWrist},
	}

	for _, tc := range cases {
		t.Run(tc.template, func(t *testing.T) {
			tgt := mustTemplate(t, tc.template)
			bend(&tgt, tc.a, tc.b, tc.c, 90)

			for _, dir := range []float64{1, -1} {
				prev := 101
				first, last := 0, 0
				for step := 0; step <= 45; step++ {
					cur := tgt
					bend(&cur, tc.a, tc.b, tc.c, 90+dir*float64(step)*2)
					got := s.Score(&cur, &tgt)
					if got > prev {
						t.Fatalf("score rose from %d to %d at %d degrees off", prev, got, step*2)
					}
					if step == 0 {
						first = got
					}
					prev, last = got, got
				}
				if last >= first {
					t.Errorf("expected a 90 degree error to cost points: %d -> %d", first, last)
				}
			}
		})
	}
}

func TestScore_CrossTemplate(t *testing.T) {
	s := newTestScorer()
	c := target.NewCatalog()

	// Very different poses must not pass one another.
	pairs := [][2]string{
		{target.Squat, target.ArmsUp},
		{target.TPose, target.Squat},
		{target.Lunge, target.TPose},
	}
	for _, p := range pairs {
		a, _ := c.Get(p[0])
		b, _ := c.Get(p[1])
		if got := s.Score(&a.Pose, &b.Pose); got >= 70 {
			t.Errorf("%s vs %s: expected below pass threshold, got %d", p[0], p[1], got)
		}
	}
}

func TestScore_TransformInvariance(t *testing.T) {
	s := newTestScorer()
	curRaw, _ := target.Raw(target.LegOut)
	tgtRaw, _ := target.Raw(target.Star)

	cur, _ := pose.Normalize(curRaw)
	tgt, _ := pose.Normalize(tgtRaw)
	want := s.Score(cur, tgt)

	for _, f := range []float64{0.5, 2, 640} {
		c2, _ := pose.Normalize(pose.Transform(curRaw, f, 3, -7))
		t2, _ := pose.Normalize(pose.Transform(tgtRaw, f, -1, 2))
		if got := s.Score(c2, t2); got != want {
			t.Errorf("factor %v: expected %d, got %d", f, want, got)
		}
	}
}

func TestCurves(t *testing.T) {
	tu := DefaultTuning()

	t.Run("angle curve endpoints and monotonicity", func(t *testing.T) {
		if tu.angleSimilarity(0) != 1 {
			t.Error("0 degrees should map to 1")
		}
		if tu.angleSimilarity(tu.AngleCutoff) != 0 {
			t.Error("cutoff should map to 0")
		}
		prev := 2.0
		for d := 0.0; d <= 180; d += 0.5 {
			v := tu.angleSimilarity(d)
			if v > prev || v < 0 || v > 1 {
				t.Fatalf("angle curve misbehaves at %f: %f", d, v)
			}
			prev = v
		}
	})

	t.Run("bone curve is monotonic in ratio", func(t *testing.T) {
		prev := -1.0
		for r := 0.0; r <= 1.0; r += 0.01 {
			v := tu.boneSimilarity(r)
			if v < prev {
				t.Fatalf("bone curve decreased at %f", r)
			}
			prev = v
		}
		if math.Abs(tu.boneSimilarity(1)-1) > 1e-12 {
			t.Error("equal lengths should map to 1")
		}
		if tu.boneSimilarity(tu.BoneRatioThreshold) < 1-tu.BoneHighPenalty-1e-12 {
			t.Error("threshold should keep near-full credit")
		}
	})

	t.Run("angle difference is circular", func(t *testing.T) {
		if got := angleDiff(350, 10); math.Abs(got-20) > 1e-9 {
			t.Errorf("expected 20, got %f", got)
		}
		if got := angleDiff(0, 180); got != 180 {
			t.Errorf("expected 180, got %f", got)
		}
	})

	t.Run("degenerate angle is neutral", func(t *testing.T) {
		p := pose.Landmark{X: 1, Y: 1}
		if got := jointAngle(p, p, pose.Landmark{X: 2, Y: 1}); got != 180 {
			t.Errorf("expected 180, got %f", got)
		}
	})
}

func TestTuning_Validate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("default tuning should be valid: %v", err)
	}

	bad := map[string]func(*Tuning){
		"full credit above cutoff": func(tu *Tuning) { tu.AngleFullCredit = 90 },
		"visibility above 1":       func(tu *Tuning) { tu.VisibilityThreshold = 1.5 },
		"bonus too large":          func(tu *Tuning) { tu.BonusMultiplier = 2 },
		"negative weight":          func(tu *Tuning) { tu.Weights.LegAngle = -1 },
		"zero weights":             func(tu *Tuning) { tu.Weights = Weights{} },
		"standing cap too high":    func(tu *Tuning) { tu.StandingCap = 0.9 },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			tu := DefaultTuning()
			mutate(&tu)
			if err := tu.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
