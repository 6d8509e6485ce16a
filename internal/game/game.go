package game

import (
	"math"
	"time"

	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/scoring"
	"github.com/ayusman/posewall/internal/target"
)

// Phase is the game's current stage.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseCountdown
	PhaseRound
	PhaseIntermission
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCountdown:
		return "countdown"
	case PhaseRound:
		return "round"
	case PhaseIntermission:
		return "intermission"
	case PhaseOver:
		return "over"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// EventType names a game event.
type EventType string

const (
	EventCountdown    EventType = "countdown"
	EventRoundStarted EventType = "round_started"
	EventRoundPassed  EventType = "round_passed"
	EventRoundFailed  EventType = "round_failed"
	EventGameOver     EventType = "game_over"
)

// Event is emitted on every state transition. Round is the round the event
// belongs to; Score and Lives are the totals after the transition.
type Event struct {
	Type       EventType       `json:"type"`
	Round      int             `json:"round"`
	Score      int             `json:"score"`
	Lives      int             `json:"lives"`
	Similarity int             `json:"similarity"`
	Template   string          `json:"template,omitempty"`
	WallMs     int64           `json:"wall_ms,omitempty"`
	Target     []pose.Landmark `json:"target,omitempty"`
	At         time.Time       `json:"at"`
}

// Snapshot is the externally visible game state at an instant.
type Snapshot struct {
	Phase      Phase  `json:"phase"`
	Round      int    `json:"round"`
	Score      int    `json:"score"`
	Lives      int    `json:"lives"`
	Similarity int    `json:"similarity"`
	Threshold  int    `json:"threshold"`
	Template   string `json:"template,omitempty"`
	// Progress is the elapsed fraction of the current wall or pause.
	Progress float64 `json:"progress"`
	// Remaining is the whole seconds left, rounded up.
	Remaining int  `json:"remaining"`
	Tracking  bool `json:"tracking"`
}

// Game owns the current pose, the target pose and the round bookkeeping.
// A Game must be driven from a single goroutine.
type Game struct {
	cfg      Config
	scorer   *scoring.Scorer
	gen      *target.Generator
	smoother *pose.Smoother
	listener func(Event)

	phase      Phase
	lives      int
	score      int
	round      int
	target     *target.Template
	current    *pose.Pose
	phaseStart time.Time
	phaseEnd   time.Time
}

// New creates a Game in the idle phase.
func New(cfg Config, scorer *scoring.Scorer, gen *target.Generator) *Game {
	g := &Game{
		cfg:      cfg,
		scorer:   scorer,
		gen:      gen,
		smoother: pose.NewSmoother(pose.DefaultSmoothing),
	}
	g.Reset()
	return g
}

// OnEvent registers the listener for game events. It is called
// synchronously from Start and Tick.
func (g *Game) OnEvent(fn func(Event)) {
	g.listener = fn
}

// Config returns the game's rules.
func (g *Game) Config() Config {
	return g.cfg
}

// Phase returns the current phase.
func (g *Game) Phase() Phase {
	return g.phase
}

// Playing reports whether a game is in progress.
func (g *Game) Playing() bool {
	switch g.phase {
	case PhaseCountdown, PhaseRound, PhaseIntermission:
		return true
	}
	return false
}

// Target returns the current target template, or nil between games.
func (g *Game) Target() *target.Template {
	return g.target
}

// Current returns the latest normalized player pose, or nil when no body
// is tracked.
func (g *Game) Current() *pose.Pose {
	return g.current
}

// OnFrame accepts one estimator frame. A nil or empty frame means no body
// was detected: the current pose is cleared and smoothing restarts.
func (g *Game) OnFrame(raw []pose.Landmark) error {
	if len(raw) == 0 {
		g.current = nil
		g.smoother.Reset()
		return nil
	}

	p, err := pose.Normalize(g.smoother.Apply(raw))
	if err != nil {
		g.current = nil
		g.smoother.Reset()
		return err
	}
	g.current = p
	return nil
}

// Similarity scores the current pose against the target.
func (g *Game) Similarity() int {
	if g.target == nil {
		return 0
	}
	return g.scorer.Score(g.current, &g.target.Pose)
}

// Start begins a new game, resetting lives, score and round. The tracked
// pose is kept.
func (g *Game) Start(now time.Time) {
	g.resetCounters()
	g.phase = PhaseCountdown
	g.phaseStart = now
	g.phaseEnd = now.Add(g.cfg.Countdown)
	g.emit(Event{Type: EventCountdown, WallMs: g.cfg.Countdown.Milliseconds(), At: now})
	g.Tick(now)
}

// Tick advances timers. When a wall reaches its deadline the round is
// judged on the current pose.
func (g *Game) Tick(now time.Time) {
	for {
		if !g.Playing() || now.Before(g.phaseEnd) {
			return
		}
		switch g.phase {
		case PhaseCountdown, PhaseIntermission:
			g.startRound(now)
		case PhaseRound:
			g.endRound(now)
		}
	}
}

func (g *Game) startRound(now time.Time) {
	tpl := g.gen.Generate()
	g.target = &tpl
	wall := g.cfg.WallDuration(g.round)
	g.phase = PhaseRound
	g.phaseStart = now
	g.phaseEnd = now.Add(wall)

	g.emit(Event{
		Type:     EventRoundStarted,
		Template: tpl.Name,
		WallMs:   wall.Milliseconds(),
		Target:   tpl.Pose.Landmarks(),
		At:       now,
	})
}

func (g *Game) endRound(now time.Time) {
	similarity := g.Similarity()
	wall := g.phaseEnd.Sub(g.phaseStart)
	ev := Event{
		Round:      g.round,
		Similarity: similarity,
		Template:   g.target.Name,
		WallMs:     wall.Milliseconds(),
		At:         now,
	}

	if similarity >= g.cfg.PassThreshold {
		g.score++
		g.round++
		ev.Type = EventRoundPassed
		g.enterIntermission(now, g.cfg.PassPause)
		g.emit(ev)
		return
	}

	g.lives--
	ev.Type = EventRoundFailed
	if g.lives <= 0 {
		g.lives = 0
		g.phase = PhaseOver
		g.emit(ev)
		g.emit(Event{Type: EventGameOver, Round: ev.Round, At: now})
		return
	}
	g.enterIntermission(now, g.cfg.FailPause)
	g.emit(ev)
}

func (g *Game) enterIntermission(now time.Time, pause time.Duration) {
	g.phase = PhaseIntermission
	g.phaseStart = now
	g.phaseEnd = now.Add(pause)
}

// Stop ends the game without judging the current round.
func (g *Game) Stop() {
	if g.Playing() {
		g.phase = PhaseIdle
	}
}

// Reset stops the game and restores the starting lives, score and round.
func (g *Game) Reset() {
	g.resetCounters()
	g.current = nil
	g.smoother.Reset()
}

func (g *Game) resetCounters() {
	g.phase = PhaseIdle
	g.lives = g.cfg.Lives
	g.score = 0
	g.round = 1
	g.target = nil
}

// Snapshot returns the game state at now.
func (g *Game) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Phase:     g.phase,
		Round:     g.round,
		Score:     g.score,
		Lives:     g.lives,
		Threshold: g.cfg.PassThreshold,
		Tracking:  g.current != nil,
	}
	if g.target != nil {
		s.Template = g.target.Name
	}
	if g.phase == PhaseRound {
		s.Similarity = g.Similarity()
	}
	if g.Playing() {
		total := g.phaseEnd.Sub(g.phaseStart)
		left := g.phaseEnd.Sub(now)
		if left < 0 {
			left = 0
		}
		if total > 0 {
			s.Progress = math.Min(1, math.Max(0, 1-float64(left)/float64(total)))
		} else {
			s.Progress = 1
		}
		s.Remaining = int(math.Ceil(left.Seconds()))
	}
	return s
}

func (g *Game) emit(ev Event) {
	if ev.Round == 0 {
		ev.Round = g.round
	}
	ev.Score = g.score
	ev.Lives = g.lives
	if g.listener != nil {
		g.listener(ev)
	}
}
