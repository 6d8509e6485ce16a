// Package game implements the round, life and wall-timer state machine that
// drives a pose matching game.
package game

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default game settings.
const (
	DefaultLives         = 3
	DefaultPassThreshold = 70
	DefaultBaseWall      = 5 * time.Second
	DefaultWallSpeedup   = 200 * time.Millisecond
	DefaultMinWall       = 2 * time.Second
	DefaultPassPause     = 2 * time.Second
	DefaultFailPause     = 2500 * time.Millisecond
	DefaultCountdown     = 3 * time.Second
)

// Config holds the tunable rules of a game.
type Config struct {
	// Lives is the number of failed rounds allowed before the game ends.
	Lives int `json:"lives" validate:"gte=1,lte=99"`
	// PassThreshold is the minimum similarity needed to pass a round.
	PassThreshold int `json:"pass_threshold" validate:"gte=1,lte=100"`
	// BaseWall is the wall duration of the first round.
	BaseWall time.Duration `json:"base_wall" validate:"gt=0"`
	// WallSpeedup is subtracted from the wall duration each round.
	WallSpeedup time.Duration `json:"wall_speedup" validate:"gte=0"`
	// MinWall is the shortest wall duration.
	MinWall   time.Duration `json:"min_wall" validate:"gt=0,ltefield=BaseWall"`
	PassPause time.Duration `json:"pass_pause" validate:"gte=0"`
	FailPause time.Duration `json:"fail_pause" validate:"gte=0"`
	Countdown time.Duration `json:"countdown" validate:"gte=0"`
}

// DefaultConfig returns the standard game rules.
func DefaultConfig() Config {
	return Config{
		Lives:         DefaultLives,
		PassThreshold: DefaultPassThreshold,
		BaseWall:      DefaultBaseWall,
		WallSpeedup:   DefaultWallSpeedup,
		MinWall:       DefaultMinWall,
		PassPause:     DefaultPassPause,
		FailPause:     DefaultFailPause,
		Countdown:     DefaultCountdown,
	}
}

var validate = validator.New()

// Validate reports whether the config is playable.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid game config: %w", err)
	}
	return nil
}

// WallDuration returns how long the wall takes in the given 1-based round.
func (c Config) WallDuration(round int) time.Duration {
	if round < 1 {
		round = 1
	}
	d := c.BaseWall - time.Duration(round-1)*c.WallSpeedup
	if d < c.MinWall {
		d = c.MinWall
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
