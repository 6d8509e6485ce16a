package app

import (
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posewall/internal/capture"
)

// runPipeline is the main loop. It owns the game and processes frames from
// the camera.
//
// Pipeline logic:
//  1. Start in idle mode at IdleFPS.
//  2. While no game runs, motion switches to active mode at the configured
//     FPS and pose detection runs. After IdleTimeoutMs without motion the
//     pipeline drops back to idle and detection stops.
//  3. While a game runs every frame is active.
//  4. Each frame advances the game and publishes its state.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	activeFPS := a.config.Camera.FPS
	activeMode := false
	lastMotionTime := time.Now()

	ticker := time.NewTicker(time.Second / time.Duration(IdleFPS))
	defer ticker.Stop()

	setMode := func(active bool) {
		if active == activeMode {
			return
		}
		activeMode = active
		fps := IdleFPS
		if active {
			fps = activeFPS
		}
		a.camera.SetFPS(fps)
		ticker.Reset(time.Second / time.Duration(fps))
		a.log.WithField("fps", fps).Debug("pipeline mode changed")
	}

	for {
		select {
		case <-stopCh:
			return

		case cmd := <-a.cmds:
			now := time.Now()
			switch cmd.kind {
			case cmdStartGame:
				if a.IsPaused() {
					a.log.Warn("ignoring new game while paused")
					continue
				}
				a.session.Start(now, cmd.player)
				setMode(true)
			case cmdStopGame:
				a.session.Stop()
			}
			a.session.Tick(now)
			a.publish(a.session.Snapshot(now))

		case now := <-ticker.C:
			if a.IsPaused() {
				continue
			}

			playing := a.session.Game().Playing()
			frame, err := a.camera.ReadFrame()
			if err != nil {
				if !errors.Is(err, capture.ErrEmptyFrame) {
					a.log.WithError(err).Debug("error reading frame")
				}
			} else {
				a.keepFrame(frame)

				motion, _ := a.motion.Detect(frame)
				if motion || playing {
					lastMotionTime = now
					setMode(true)
				} else if activeMode && now.Sub(lastMotionTime) > IdleTimeoutMs*time.Millisecond {
					setMode(false)
					a.session.Frame(nil)
				}

				if activeMode {
					a.detect(frame)
				}
				frame.Close()
			}

			a.session.Tick(now)
			a.publish(a.session.Snapshot(now))
		}
	}
}

// detect runs pose detection on frame and feeds the result to the game.
// A detector error counts as no body in view.
func (a *App) detect(frame *gocv.Mat) {
	d := a.Detector()
	if d == nil {
		return
	}

	landmarks, err := d.Detect(frame)
	if err != nil {
		a.log.WithError(err).Debug("pose detection failed")
		landmarks = nil
	}
	if err := a.session.Frame(landmarks); err != nil {
		a.log.WithError(err).Debug("unusable pose frame")
	}
}
