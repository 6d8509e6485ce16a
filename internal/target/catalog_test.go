package target

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ayusman/posewall/internal/pose"
)

func TestCatalog_Builtins(t *testing.T) {
	c := NewCatalog()

	t.Run("is non-empty and excludes standing", func(t *testing.T) {
		if c.Len() != 9 {
			t.Fatalf("expected 9 built-in templates, got %d", c.Len())
		}
		if _, err := c.Get(Standing); !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("standing reference should not be drawable, got %v", err)
		}
	})

	t.Run("names are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, tpl := range c.List() {
			if seen[tpl.Name] {
				t.Errorf("duplicate template %s", tpl.Name)
			}
			seen[tpl.Name] = true
			if !tpl.Builtin {
				t.Errorf("template %s should be built-in", tpl.Name)
			}
		}
	})

	t.Run("templates are normalized", func(t *testing.T) {
		for _, tpl := range append(c.List(), Template{Name: Standing, Pose: StandingPose()}) {
			minX, minY := math.Inf(1), math.Inf(1)
			maxX, maxY := math.Inf(-1), math.Inf(-1)
			for _, l := range tpl.Pose {
				if l.Visibility <= pose.BoxVisibility {
					continue
				}
				minX, maxX = math.Min(minX, l.X), math.Max(maxX, l.X)
				minY, maxY = math.Min(minY, l.Y), math.Max(maxY, l.Y)
			}
			if math.Abs(minX+maxX) > 1e-9 || math.Abs(minY+maxY) > 1e-9 {
				t.Errorf("%s: not centered", tpl.Name)
			}
			if math.Abs(math.Max(maxX-minX, maxY-minY)-1) > 1e-9 {
				t.Errorf("%s: not unit scale", tpl.Name)
			}
		}
	})

	t.Run("raw skeletons are available", func(t *testing.T) {
		raw, ok := Raw(Squat)
		if !ok || len(raw) != pose.NumLandmarks {
			t.Fatalf("expected squat skeleton, got %v", ok)
		}
		if raw[pose.LeftKnee].Visibility != 1 {
			t.Error("expected visible knee")
		}
		if _, ok := Raw("moonwalk"); ok {
			t.Error("expected unknown template to be missing")
		}
	})
}

func TestCatalog_Custom(t *testing.T) {
	c := NewCatalog()
	custom := Template{Name: "crane", Pose: StandingPose(), Builtin: true}

	if err := c.Add(custom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 10 {
		t.Errorf("expected 10 templates, got %d", c.Len())
	}

	got, err := c.Get("crane")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Builtin {
		t.Error("custom template must not be marked built-in")
	}

	if err := c.Add(custom); !errors.Is(err, ErrTemplateExists) {
		t.Errorf("expected ErrTemplateExists, got %v", err)
	}
	if err := c.Remove(Squat); !errors.Is(err, ErrBuiltinTemplate) {
		t.Errorf("expected ErrBuiltinTemplate, got %v", err)
	}
	if err := c.Remove("crane"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := c.Remove("crane"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestCatalog_At(t *testing.T) {
	c := NewCatalog()
	n := c.Len()

	if c.At(0).Name != c.At(n).Name {
		t.Error("At should wrap around")
	}
	if c.At(-1).Name != c.At(n-1).Name {
		t.Error("At should accept negative indices")
	}
}

func TestGenerator(t *testing.T) {
	t.Run("deterministic for a seed", func(t *testing.T) {
		c := NewCatalog()
		a := NewGenerator(c, rand.New(rand.NewSource(42)))
		b := NewGenerator(c, rand.New(rand.NewSource(42)))
		for i := 0; i < 20; i++ {
			if a.Generate().Name != b.Generate().Name {
				t.Fatal("same seed should give the same sequence")
			}
		}
	})

	t.Run("draws every template", func(t *testing.T) {
		c := NewCatalog()
		g := NewGenerator(c, rand.New(rand.NewSource(7)))
		counts := make(map[string]int)
		draws := 9000
		for i := 0; i < draws; i++ {
			counts[g.Generate().Name]++
		}
		if len(counts) != c.Len() {
			t.Fatalf("expected %d distinct templates, got %d", c.Len(), len(counts))
		}
		expected := draws / c.Len()
		for name, n := range counts {
			if n < expected/2 || n > expected*3/2 {
				t.Errorf("template %s drawn %d times, expected about %d", name, n, expected)
			}
		}
	})

	t.Run("nil rng is seeded", func(t *testing.T) {
		g := NewGenerator(NewCatalog(), nil)
		if g.Generate().Name == "" {
			t.Error("expected a template")
		}
	})
}
