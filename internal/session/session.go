// Package session runs one player's game and records it in the store.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/posewall/internal/game"
	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/store"
)

// Session owns a game.Game and persists its rounds and final result.
// Like the Game it wraps, a Session is driven from a single goroutine.
type Session struct {
	game   *game.Game
	store  *store.Store
	log    logrus.FieldLogger
	id     string
	player string
	played int
	events []game.Event
	hooks  []func(game.Event)
}

// New wraps g. st may be nil, in which case nothing is persisted.
func New(g *game.Game, st *store.Store, log logrus.FieldLogger) *Session {
	s := &Session{
		game:  g,
		store: st,
		log:   log,
	}
	g.OnEvent(s.handle)
	return s
}

// OnEvent adds a hook called for every game event after it is recorded.
func (s *Session) OnEvent(fn func(game.Event)) {
	s.hooks = append(s.hooks, fn)
}

// ID returns the stored id of the current game, or "" before the first Start.
func (s *Session) ID() string {
	return s.id
}

// Game returns the wrapped game.
func (s *Session) Game() *game.Game {
	return s.game
}

// Start begins a new game for player. A game still in progress is recorded
// as abandoned first.
func (s *Session) Start(now time.Time, player string) {
	s.abandon()

	s.id = uuid.New().String()
	s.player = player
	s.played = 0

	if s.store != nil {
		rec := &store.Session{
			ID:        s.id,
			Player:    player,
			Lives:     s.game.Config().Lives,
			StartedAt: now,
		}
		if err := s.store.Sessions().Create(rec); err != nil {
			s.log.WithError(err).WithField("session", s.id).Error("failed to record session")
		}
	}

	s.log.WithFields(logrus.Fields{"session": s.id, "player": player}).Info("game started")
	s.game.Start(now)
}

// Frame feeds one estimator frame to the game.
func (s *Session) Frame(raw []pose.Landmark) error {
	return s.game.OnFrame(raw)
}

// Tick advances the game and returns the events raised since the last call,
// including those raised by Start.
func (s *Session) Tick(now time.Time) []game.Event {
	s.game.Tick(now)
	events := s.events
	s.events = nil
	return events
}

// Snapshot returns the game state at now.
func (s *Session) Snapshot(now time.Time) game.Snapshot {
	return s.game.Snapshot(now)
}

// Stop ends the current game without judging the running round and records
// it as abandoned.
func (s *Session) Stop() {
	s.abandon()
	s.game.Stop()
}

func (s *Session) abandon() {
	if s.id == "" || !s.game.Playing() {
		return
	}
	snap := s.game.Snapshot(time.Now())
	s.finish(store.SessionAbandoned, snap.Score, snap.Lives)
}

func (s *Session) finish(status store.SessionStatus, score, lives int) {
	fields := logrus.Fields{"session": s.id, "score": score, "rounds": s.played, "status": status}
	s.log.WithFields(fields).Info("game finished")

	if s.store == nil {
		return
	}
	if err := s.store.Sessions().Finish(s.id, status, score, s.played, lives); err != nil {
		s.log.WithError(err).WithFields(fields).Error("failed to record result")
	}
}

func (s *Session) handle(ev game.Event) {
	switch ev.Type {
	case game.EventRoundPassed, game.EventRoundFailed:
		s.played++
		s.recordRound(ev)
	case game.EventGameOver:
		s.finish(store.SessionFinished, ev.Score, ev.Lives)
	}

	s.events = append(s.events, ev)
	for _, fn := range s.hooks {
		fn(ev)
	}
}

func (s *Session) recordRound(ev game.Event) {
	passed := ev.Type == game.EventRoundPassed
	s.log.WithFields(logrus.Fields{
		"session":    s.id,
		"round":      ev.Round,
		"template":   ev.Template,
		"similarity": ev.Similarity,
		"passed":     passed,
	}).Debug("round judged")

	if s.store == nil {
		return
	}
	rd := &store.Round{
		SessionID:  s.id,
		Round:      ev.Round,
		Template:   ev.Template,
		Similarity: ev.Similarity,
		Passed:     passed,
		WallMs:     ev.WallMs,
		CreatedAt:  ev.At,
	}
	if err := s.store.Rounds().Create(rd); err != nil {
		s.log.WithError(err).WithField("session", s.id).Error("failed to record round")
	}
}
