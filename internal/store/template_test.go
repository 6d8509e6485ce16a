package store

import (
	"errors"
	"testing"

	"github.com/ayusman/posewall/internal/pose"
)

func TestTemplateRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	tpl := &Template{ID: "tpl-1", Name: "crane"}
	if err := repo.Create(tpl); err != nil {
		t.Fatalf("failed to create template: %v", err)
	}
	if tpl.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	if err := repo.Create(&Template{ID: "tpl-2", Name: "crane"}); err == nil {
		t.Error("duplicate name should be rejected")
	}

	byName, err := repo.GetByName("crane")
	if err != nil {
		t.Fatalf("failed to get template by name: %v", err)
	}
	if byName.ID != "tpl-1" {
		t.Errorf("ID mismatch: got %q, want %q", byName.ID, "tpl-1")
	}

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByName("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list templates: %v", err)
	}
	if len(list) != 1 || list[0].Name != "crane" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestTemplateRepository_Landmarks(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	if err := repo.Create(&Template{ID: "tpl-1", Name: "crane"}); err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	landmarks := make([]pose.Landmark, pose.NumLandmarks)
	for i := range landmarks {
		landmarks[i] = pose.Landmark{X: float64(i) / 100, Y: -float64(i) / 50, Z: 0.01, Visibility: 0.9}
	}

	if err := repo.SetLandmarks("tpl-1", landmarks); err != nil {
		t.Fatalf("failed to set landmarks: %v", err)
	}
	// A second write replaces the first.
	landmarks[pose.LeftWrist].Y = -0.5
	if err := repo.SetLandmarks("tpl-1", landmarks); err != nil {
		t.Fatalf("failed to replace landmarks: %v", err)
	}

	got, err := repo.GetLandmarks("tpl-1")
	if err != nil {
		t.Fatalf("failed to get landmarks: %v", err)
	}
	if len(got) != pose.NumLandmarks {
		t.Fatalf("expected %d landmarks, got %d", pose.NumLandmarks, len(got))
	}
	for i := range got {
		if got[i] != landmarks[i] {
			t.Errorf("landmark %d mismatch: got %+v, want %+v", i, got[i], landmarks[i])
		}
	}

	if err := repo.Delete("tpl-1"); err != nil {
		t.Fatalf("failed to delete template: %v", err)
	}
	if err := repo.Delete("tpl-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, err = repo.GetLandmarks("tpl-1")
	if err != nil {
		t.Fatalf("failed to get landmarks: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("landmarks should cascade on delete, got %d", len(got))
	}
}
