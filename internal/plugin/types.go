// Package plugin runs external feedback hooks (sounds, lights, overlays) on
// game events.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name        string   `json:"name" validate:"required"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable" validate:"required"`
	Events      []string `json:"events" validate:"min=1,dive,required"`
	// Config is passed verbatim to the plugin with every request.
	Config json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the plugin subscribed to event. "*" matches all.
func (m Manifest) Handles(event string) bool {
	for _, e := range m.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// Request is written as JSON to a plugin's stdin.
type Request struct {
	Event      string          `json:"event"`
	Round      int             `json:"round"`
	Score      int             `json:"score"`
	Lives      int             `json:"lives"`
	Similarity int             `json:"similarity"`
	Template   string          `json:"template,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Response is read as JSON from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
