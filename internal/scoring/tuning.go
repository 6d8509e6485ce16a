// Package scoring compares a player's normalized pose against a target pose
// and produces a 0-100 similarity score.
package scoring

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Weights are the relative importance of each comparison category. Leg
// categories dominate because leg posture is the hardest to fake.
type Weights struct {
	LegAngle float64 `json:"leg_angle" validate:"gte=0"`
	LegBone  float64 `json:"leg_bone" validate:"gte=0"`
	ArmAngle float64 `json:"arm_angle" validate:"gte=0"`
	ArmBone  float64 `json:"arm_bone" validate:"gte=0"`
	Position float64 `json:"position" validate:"gte=0"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.LegAngle + w.LegBone + w.ArmAngle + w.ArmBone + w.Position
}

// Tuning holds every threshold, cutoff and multiplier used by the Scorer.
// Angles are in degrees; distances are in normalized pose units.
type Tuning struct {
	// VisibilityThreshold is the minimum visibility for a landmark to take
	// part in any comparison.
	VisibilityThreshold float64 `json:"visibility_threshold" validate:"gte=0,lte=1"`

	// AngleFullCredit is the difference at or below which an angle scores 1.
	AngleFullCredit float64 `json:"angle_full_credit" validate:"gte=0,ltfield=AngleCutoff"`
	// AngleCutoff is the difference at or above which an angle scores 0.
	AngleCutoff float64 `json:"angle_cutoff" validate:"gt=0,lte=180"`
	// AngleExponent shapes the falloff between full credit and cutoff.
	AngleExponent float64 `json:"angle_exponent" validate:"gt=0"`

	BoneRatioThreshold float64 `json:"bone_ratio_threshold" validate:"gt=0,lt=1"`
	BoneHighPenalty    float64 `json:"bone_high_penalty" validate:"gte=0,lt=1"`
	BoneExponent       float64 `json:"bone_exponent" validate:"gte=1"`

	PositionCutoff float64 `json:"position_cutoff" validate:"gt=0"`

	StandingCutoff    float64 `json:"standing_cutoff" validate:"gt=0"`
	StandingThreshold float64 `json:"standing_threshold" validate:"gt=0,lte=1"`
	// StandingCap scales the standing similarity into the capped score.
	StandingCap float64 `json:"standing_cap" validate:"gte=0,lte=0.3"`

	RelevantAngle     float64 `json:"relevant_angle" validate:"gte=0,lt=180"`
	RelevantBoneRatio float64 `json:"relevant_bone_ratio" validate:"gt=0,lte=1"`
	FallbackFactor    float64 `json:"fallback_factor" validate:"gte=0,lte=1"`

	ShortfallRatio   float64 `json:"shortfall_ratio" validate:"gte=0,lte=1"`
	ShortfallPenalty float64 `json:"shortfall_penalty" validate:"gt=0,lte=1"`

	BonusThreshold  float64 `json:"bonus_threshold" validate:"gt=0,lte=1"`
	BonusMultiplier float64 `json:"bonus_multiplier" validate:"gte=1,lte=1.1"`

	Weights Weights `json:"weights"`
}

// DefaultTuning returns the reference calibration.
func DefaultTuning() Tuning {
	return Tuning{
		VisibilityThreshold: 0.3,

		AngleFullCredit: 8,
		AngleCutoff:     75,
		AngleExponent:   1.3,

		BoneRatioThreshold: 0.85,
		BoneHighPenalty:    0.1,
		BoneExponent:       2,

		PositionCutoff: 0.25,

		StandingCutoff:    0.2,
		StandingThreshold: 0.88,
		StandingCap:       0.2,

		RelevantAngle:     12,
		RelevantBoneRatio: 0.88,
		FallbackFactor:    0.3,

		ShortfallRatio:   0.5,
		ShortfallPenalty: 0.75,

		BonusThreshold:  0.85,
		BonusMultiplier: 1.05,

		Weights: Weights{
			LegAngle: 0.38,
			LegBone:  0.24,
			ArmAngle: 0.15,
			ArmBone:  0.11,
			Position: 0.12,
		},
	}
}

var validate = validator.New()

// Validate reports whether the tuning values are usable.
func (t Tuning) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid tuning: %w", err)
	}
	if t.Weights.Sum() <= 0 {
		return fmt.Errorf("invalid tuning: weights sum to zero")
	}
	return nil
}
