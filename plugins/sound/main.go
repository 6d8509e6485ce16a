// Package main provides a sound plugin.
// It plays a short system sound for game events via afplay on macOS or
// paplay on Linux.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event      string              `json:"event"`
	Round      int                 `json:"round"`
	Score      int                 `json:"score"`
	Lives      int                 `json:"lives"`
	Similarity int                 `json:"similarity"`
	Template   string              `json:"template"`
	Config     jsoniter.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// Config is the plugin section of plugin.json. Sounds maps an event to a
// system sound name or a file path.
type Config struct {
	DryRun bool              `json:"dry_run"`
	Sounds map[string]string `json:"sounds"`
}

var defaultSounds = map[string]string{
	"countdown":    "Tink",
	"round_passed": "Glass",
	"round_failed": "Basso",
	"game_over":    "Funk",
}

func main() {
	var req Request
	if err := jsoniter.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg := Config{}
	if len(req.Config) > 0 {
		if err := jsoniter.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	name := cfg.Sounds[req.Event]
	if name == "" {
		name = defaultSounds[req.Event]
	}
	if name == "" {
		writeErrorResponse(fmt.Sprintf("no sound for event: %s", req.Event))
		return
	}

	file := resolveSound(runtime.GOOS, name)
	if !cfg.DryRun {
		if err := play(file); err != nil {
			writeErrorResponse(fmt.Sprintf("event %s failed: %v", req.Event, err))
			return
		}
	}

	writeSuccessResponse(map[string]any{"sound": file, "played": !cfg.DryRun})
}

// resolveSound maps a bare sound name to the platform's system sound file.
// Paths are returned unchanged.
func resolveSound(goos, name string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	switch goos {
	case "darwin":
		return filepath.Join("/System/Library/Sounds", name+".aiff")
	default:
		return filepath.Join("/usr/share/sounds/freedesktop/stereo", linuxSound(name)+".oga")
	}
}

// linuxSound picks the closest freedesktop sound for a macOS sound name.
func linuxSound(name string) string {
	switch name {
	case "Glass":
		return "complete"
	case "Basso":
		return "dialog-error"
	case "Funk":
		return "suspend-error"
	default:
		return "bell"
	}
}

func play(file string) error {
	player := "paplay"
	if runtime.GOOS == "darwin" {
		player = "afplay"
	}
	output, err := exec.Command(player, file).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", player, err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	jsoniter.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data any) {
	resp := Response{Success: true}
	if raw, err := jsoniter.Marshal(data); err == nil {
		resp.Data = raw
	}
	jsoniter.NewEncoder(os.Stdout).Encode(resp)
}
