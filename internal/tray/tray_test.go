package tray

import (
	"testing"

	"github.com/ayusman/posewall/internal/game"
)

func TestLabels(t *testing.T) {
	tests := []struct {
		name  string
		snap  game.Snapshot
		round string
		score string
		lives string
	}{
		{"idle", game.Snapshot{Phase: game.PhaseIdle}, "Round: -", "Score: -", "Lives: -"},
		{"round", game.Snapshot{Phase: game.PhaseRound, Round: 3, Score: 2, Lives: 1}, "Round: 3", "Score: 2", "Lives: 1"},
		{"over", game.Snapshot{Phase: game.PhaseOver, Round: 5, Score: 4}, "Game over", "Score: 4", "Lives: 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			round, score, lives := Labels(tt.snap)
			if round != tt.round || score != tt.score || lives != tt.lives {
				t.Errorf("Labels() = %q, %q, %q", round, score, lives)
			}
		})
	}
}

func TestUpdate_BeforeReady(t *testing.T) {
	tr := New()
	// Menu items do not exist until Run; Update must only record state.
	tr.Update(game.Snapshot{Phase: game.PhaseRound, Round: 1, Lives: 3})
	if tr.last.Round != 1 {
		t.Errorf("expected state to be recorded, got %+v", tr.last)
	}
	if tr.IsPaused() {
		t.Error("expected a new tray to be running")
	}
}
