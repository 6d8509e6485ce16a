// Package app runs posewall in native mode: the camera, the pose detector
// and the game all live in this process.
package app

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/posewall/internal/capture"
	"github.com/ayusman/posewall/internal/detector"
	"github.com/ayusman/posewall/internal/game"
	"github.com/ayusman/posewall/internal/logging"
	"github.com/ayusman/posewall/internal/plugin"
	"github.com/ayusman/posewall/internal/scoring"
	"github.com/ayusman/posewall/internal/session"
	"github.com/ayusman/posewall/internal/store"
	"github.com/ayusman/posewall/internal/target"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while nobody is moving and no game runs.
	IdleFPS = 5
	// IdleTimeoutMs is how long without motion before dropping to IdleFPS.
	IdleTimeoutMs = 2000
)

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	Catalog   *target.Catalog
	Scorer    *scoring.Scorer
	Game      game.Config
	PluginDir string
	Camera    capture.Options
	// MotionThreshold is the percentage of changed pixels that wakes the
	// pipeline from idle.
	MotionThreshold float64
	Log             logrus.FieldLogger
}

type commandKind int

const (
	cmdStartGame commandKind = iota
	cmdStopGame
)

type command struct {
	kind   commandKind
	player string
}

// App is the native mode game loop. The pipeline goroutine owns the game;
// other goroutines reach it through StartGame and StopGame.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	detector   detector.Detector
	session    *session.Session
	pluginMgr  *plugin.Manager
	dispatcher *plugin.Dispatcher
	log        logrus.FieldLogger

	mu         sync.RWMutex
	paused     bool
	stopCh     chan struct{}
	done       chan struct{}
	cancel     context.CancelFunc
	cmds       chan command
	onSnapshot []func(game.Snapshot)
	onEvent    []func(game.Event)

	frameMu  sync.Mutex
	latest   gocv.Mat
	hasFrame bool
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Log == nil {
		config.Log = logging.Discard()
	}
	if config.Catalog == nil {
		config.Catalog = target.NewCatalog()
	}
	if config.Scorer == nil {
		config.Scorer = scoring.NewScorer(scoring.DefaultTuning(), target.StandingPose())
	}
	if config.Game == (game.Config{}) {
		config.Game = game.DefaultConfig()
	}
	if config.Camera.FPS <= 0 {
		config.Camera.FPS = capture.DefaultFPS
	}

	g := game.New(config.Game, config.Scorer, target.NewGenerator(config.Catalog, nil))
	a := &App{
		config:    config,
		camera:    capture.NewCamera(config.Camera),
		motion:    capture.NewMotionDetector(config.MotionThreshold),
		session:   session.New(g, config.Store, config.Log),
		pluginMgr: plugin.NewManager(config.PluginDir, config.Log),
		log:       config.Log,
		cmds:      make(chan command, 4),
		latest:    gocv.NewMat(),
	}
	a.dispatcher = plugin.NewDispatcher(a.pluginMgr, plugin.NewExecutor(plugin.DefaultTimeout), config.Log, plugin.DefaultQueueSize)
	a.session.OnEvent(a.handleEvent)

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		a.log.Info("using MediaPipe pose detection")
	} else {
		a.log.WithError(err).Warn("MediaPipe not available, using mock detector")
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetCamera replaces the camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetDetector sets the pose detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// OnSnapshot registers a subscriber for the state published every frame.
// Subscribers run on the pipeline goroutine and must not block.
func (a *App) OnSnapshot(fn func(game.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSnapshot = append(a.onSnapshot, fn)
}

// OnEvent registers a subscriber for game events.
// Subscribers run on the pipeline goroutine and must not block.
func (a *App) OnEvent(fn func(game.Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onEvent = append(a.onEvent, fn)
}

// SetPaused pauses or resumes the pipeline. Pausing abandons a running game.
func (a *App) SetPaused(paused bool) {
	a.mu.Lock()
	a.paused = paused
	a.mu.Unlock()

	if paused {
		a.StopGame()
	}
	a.log.WithField("paused", paused).Info("pipeline pause toggled")
}

// IsPaused returns whether the pipeline is paused.
func (a *App) IsPaused() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paused
}

// StartGame asks the pipeline to begin a new game for player.
func (a *App) StartGame(player string) {
	a.send(command{kind: cmdStartGame, player: player})
}

// StopGame asks the pipeline to abandon the running game.
func (a *App) StopGame() {
	a.send(command{kind: cmdStopGame})
}

func (a *App) send(cmd command) {
	a.mu.RLock()
	stopCh := a.stopCh
	a.mu.RUnlock()
	if stopCh == nil {
		return
	}
	select {
	case a.cmds <- cmd:
	case <-stopCh:
	}
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.dispatcher.Run(ctx)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	a.log.WithField("plugins", len(a.pluginMgr.List())).Info("pipeline started")
	return nil
}

// Stop halts the pipeline, abandons a running game and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
		a.session.Stop()
		a.dispatcher.Close()
		a.cancel()
	}

	if err := a.camera.Close(); err != nil {
		a.log.WithError(err).Warn("error closing camera")
	}
	a.motion.Close()
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.WithError(err).Warn("error closing detector")
		}
	}

	a.frameMu.Lock()
	a.latest.Close()
	a.latest = gocv.NewMat()
	a.hasFrame = false
	a.frameMu.Unlock()

	a.log.Info("pipeline stopped")
}

// Frame returns a copy of the latest camera frame for the MJPEG stream.
// The caller closes it.
func (a *App) Frame() (gocv.Mat, bool) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	if !a.hasFrame {
		return gocv.Mat{}, false
	}
	return a.latest.Clone(), true
}

func (a *App) keepFrame(frame *gocv.Mat) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	frame.CopyTo(&a.latest)
	a.hasFrame = true
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

func (a *App) handleEvent(ev game.Event) {
	a.dispatcher.Dispatch(ev)

	a.mu.RLock()
	subs := a.onEvent
	a.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (a *App) publish(s game.Snapshot) {
	a.mu.RLock()
	subs := a.onSnapshot
	a.mu.RUnlock()
	for _, fn := range subs {
		fn(s)
	}
}
