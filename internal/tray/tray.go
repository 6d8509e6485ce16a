// Package tray provides a system tray menu for posewall in native mode.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/posewall/internal/game"
)

// Tray represents the system tray application.
type Tray struct {
	onPause   func(paused bool)
	onNewGame func()
	onOpen    func()
	onQuit    func()
	paused    bool
	last      game.Snapshot
	mu        sync.RWMutex

	menuPause *systray.MenuItem
	menuRound *systray.MenuItem
	menuScore *systray.MenuItem
	menuLives *systray.MenuItem
}

// New creates a new Tray in the running state.
func New() *Tray {
	return &Tray{}
}

// OnPause sets the callback for the Pause/Resume item.
func (t *Tray) OnPause(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPause = fn
}

// OnNewGame sets the callback for the New Game item.
func (t *Tray) OnNewGame(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onNewGame = fn
}

// OnOpen sets the callback for the Open in Browser item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the Quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

func (t *Tray) onReady() {
	systray.SetTitle("Posewall")
	systray.SetTooltip("Posewall - strike the pose before the wall hits")

	menuNewGame := systray.AddMenuItem("New Game", "Start a new game")
	t.menuPause = systray.AddMenuItem("Pause", "Pause the camera pipeline")
	systray.AddSeparator()

	t.mu.Lock()
	t.menuRound = systray.AddMenuItem("", "Current round")
	t.menuScore = systray.AddMenuItem("", "Rounds passed")
	t.menuLives = systray.AddMenuItem("", "Lives left")
	t.menuRound.Disable()
	t.menuScore.Disable()
	t.menuLives.Disable()
	t.render()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in Browser", "Open the game page")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Posewall")

	go func() {
		for {
			select {
			case <-menuNewGame.ClickedCh:
				t.call(func() func() { return t.onNewGame })
			case <-t.menuPause.ClickedCh:
				t.handlePause()
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// call runs the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

func (t *Tray) handlePause() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused
	if paused {
		t.menuPause.SetTitle("Resume")
	} else {
		t.menuPause.SetTitle("Pause")
	}
	callback := t.onPause
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(paused)
	}
}

// Update shows the game state in the menu. Unchanged state is skipped.
func (t *Tray) Update(s game.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s.Round == t.last.Round && s.Score == t.last.Score && s.Lives == t.last.Lives && s.Phase == t.last.Phase {
		return
	}
	t.last = s
	if t.menuRound != nil {
		t.render()
	}
}

func (t *Tray) render() {
	round, score, lives := Labels(t.last)
	t.menuRound.SetTitle(round)
	t.menuScore.SetTitle(score)
	t.menuLives.SetTitle(lives)
}

// Labels returns the round, score and lives menu titles for s.
func Labels(s game.Snapshot) (round, score, lives string) {
	if s.Phase == game.PhaseIdle {
		return "Round: -", "Score: -", "Lives: -"
	}
	round = fmt.Sprintf("Round: %d", s.Round)
	if s.Phase == game.PhaseOver {
		round = "Game over"
	}
	return round, fmt.Sprintf("Score: %d", s.Score), fmt.Sprintf("Lives: %d", s.Lives)
}

// IsPaused returns whether the tray is in the paused state.
func (t *Tray) IsPaused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}
