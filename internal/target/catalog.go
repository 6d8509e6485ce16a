// Package target provides the catalog of target poses a player must match
// and a generator that draws from it.
package target

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ayusman/posewall/internal/pose"
)

var (
	// ErrTemplateExists is returned when adding a template whose name is taken.
	ErrTemplateExists = errors.New("template already exists")
	// ErrTemplateNotFound is returned for an unknown template name.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrBuiltinTemplate is returned when removing a built-in template.
	ErrBuiltinTemplate = errors.New("built-in templates cannot be removed")
)

// Template is a named, normalized target pose.
type Template struct {
	Name    string
	Pose    pose.Pose
	Builtin bool
}

var (
	standingPose pose.Pose
	builtins     []Template
)

func init() {
	for _, b := range builtinJoints {
		p, err := pose.Normalize(pose.FromJoints(b.joints))
		if err != nil {
			panic(fmt.Sprintf("target: template %s: %v", b.name, err))
		}
		if b.name == Standing {
			standingPose = *p
			continue
		}
		builtins = append(builtins, Template{Name: b.name, Pose: *p, Builtin: true})
	}
}

// StandingPose returns the normalized neutral standing reference.
func StandingPose() pose.Pose {
	return standingPose
}

// StandingRaw returns the standing skeleton in raw space, for fixtures.
func StandingRaw() []pose.Landmark {
	return pose.FromJoints(builtinJoints[0].joints)
}

// Raw returns a built-in template's skeleton in raw space.
func Raw(name string) ([]pose.Landmark, bool) {
	for _, b := range builtinJoints {
		if b.name == name {
			return pose.FromJoints(b.joints), true
		}
	}
	return nil, false
}

// Catalog is the set of templates a round can draw from. It always holds
// the built-ins; custom templates can be added and removed at runtime.
// Catalog is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	templates []Template
}

// NewCatalog creates a catalog containing the built-in templates.
func NewCatalog() *Catalog {
	c := &Catalog{templates: make([]Template, len(builtins))}
	copy(c.templates, builtins)
	return c
}

// Add appends a custom template.
func (c *Catalog) Add(t Template) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.templates {
		if existing.Name == t.Name {
			return ErrTemplateExists
		}
	}
	t.Builtin = false
	c.templates = append(c.templates, t)
	return nil
}

// Remove deletes a custom template by name.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.templates {
		if t.Name != name {
			continue
		}
		if t.Builtin {
			return ErrBuiltinTemplate
		}
		c.templates = append(c.templates[:i], c.templates[i+1:]...)
		return nil
	}
	return ErrTemplateNotFound
}

// Get returns a template by name.
func (c *Catalog) Get(name string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return Template{}, ErrTemplateNotFound
}

// At returns the template at index i modulo the catalog size.
func (c *Catalog) At(i int) Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := len(c.templates)
	i %= n
	if i < 0 {
		i += n
	}
	return c.templates[i]
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// List returns a copy of all templates in catalog order.
func (c *Catalog) List() []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Generator draws target templates uniformly at random. A Generator is
// owned by one game and is not safe for concurrent use.
type Generator struct {
	catalog *Catalog
	rng     *rand.Rand
}

// NewGenerator creates a Generator over catalog. A nil rng is seeded from
// the clock.
func NewGenerator(catalog *Catalog, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{catalog: catalog, rng: rng}
}

// Generate returns a uniformly chosen template.
func (g *Generator) Generate() Template {
	return g.catalog.At(g.rng.Intn(g.catalog.Len()))
}
