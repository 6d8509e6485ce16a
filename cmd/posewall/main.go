package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/posewall/internal/app"
	"github.com/ayusman/posewall/internal/capture"
	"github.com/ayusman/posewall/internal/config"
	"github.com/ayusman/posewall/internal/game"
	"github.com/ayusman/posewall/internal/logging"
	"github.com/ayusman/posewall/internal/scoring"
	"github.com/ayusman/posewall/internal/server"
	"github.com/ayusman/posewall/internal/server/api"
	"github.com/ayusman/posewall/internal/store"
	"github.com/ayusman/posewall/internal/target"
	"github.com/ayusman/posewall/internal/tray"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		logrus.Fatalf("failed to create logger: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close()

	catalog := target.NewCatalog()
	if n, err := api.LoadTemplates(st, catalog, log); err != nil {
		log.WithError(err).Warn("failed to load custom templates")
	} else if n > 0 {
		log.WithField("count", n).Info("loaded custom templates")
	}
	scorer := scoring.NewScorer(scoring.DefaultTuning(), target.StandingPose())

	rules := game.DefaultConfig()
	rules.Lives = cfg.Lives
	rules.PassThreshold = cfg.PassThreshold
	if err := rules.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.WithField("dir", webDir).Info("serving static files")
	}

	srvCfg := server.Config{
		WebDir:  webDir,
		Store:   st,
		Catalog: catalog,
		Scorer:  scorer,
		Game:    rules,
		Log:     log,
	}

	var native *app.App
	if cfg.Native {
		native = app.New(app.Config{
			Store:     st,
			Catalog:   catalog,
			Scorer:    scorer,
			Game:      rules,
			PluginDir: cfg.PluginDir,
			Camera: capture.Options{
				DeviceID: cfg.CameraID,
				FPS:      cfg.FrameRate,
				Mirror:   cfg.Mirror,
			},
			Log: log,
		})
		if err := native.DiscoverPlugins(); err != nil {
			log.WithError(err).Warn("failed to discover plugins")
		}

		hub := server.NewHub(log)
		native.OnSnapshot(func(s game.Snapshot) { hub.Publish(server.MsgState, s) })
		native.OnEvent(func(ev game.Event) { hub.Publish(server.MsgEvent, ev) })
		srvCfg.Hub = hub
		srvCfg.Frames = native

		if err := native.Start(); err != nil {
			log.Fatalf("failed to start camera pipeline: %v", err)
		}
	}

	srv := server.New(srvCfg)
	go func() {
		if err := srv.ListenAndServe(cfg.Addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("server shutdown failed")
		}
		if native != nil {
			native.Stop()
		}
	}

	if native != nil && cfg.Tray {
		runTray(native, browserURL(cfg.Addr), log)
		shutdown()
		return
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.WithField("signal", s.String()).Info("shutting down")
	shutdown()
}

// runTray blocks on the tray menu until Quit or a signal.
func runTray(a *app.App, url string, log logrus.FieldLogger) {
	t := tray.New()
	t.OnNewGame(func() { a.StartGame("") })
	t.OnPause(a.SetPaused)
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.WithError(err).Warn("failed to open browser")
		}
	})
	a.OnSnapshot(t.Update)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		t.Quit()
	}()
	t.Run()
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks "web", "../web", "../../web" and the data directory.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	dataWeb := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWeb); err == nil && info.IsDir() {
		return dataWeb
	}
	return ""
}
