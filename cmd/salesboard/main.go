package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/salesboard/internal/api"
	"github.com/dgnsrekt/salesboard/internal/browser"
	"github.com/dgnsrekt/salesboard/internal/cdpsurface"
	"github.com/dgnsrekt/salesboard/internal/config"
	"github.com/dgnsrekt/salesboard/internal/controller"
	"github.com/dgnsrekt/salesboard/internal/fetch"
	"github.com/dgnsrekt/salesboard/internal/inputs"
	"github.com/dgnsrekt/salesboard/internal/journal"
	"github.com/dgnsrekt/salesboard/internal/netutil"
	"github.com/dgnsrekt/salesboard/internal/notify"
	"github.com/dgnsrekt/salesboard/internal/page"
	"github.com/dgnsrekt/salesboard/internal/pngsurface"
	"github.com/dgnsrekt/salesboard/internal/relay"
	"github.com/dgnsrekt/salesboard/internal/render"
	"github.com/dgnsrekt/salesboard/internal/snapshot"
	"gopkg.in/natefinch/lumberjack.v2"
)

// surface bundles what the controller needs from the active rendering backend.
type surface interface {
	render.Surface
	controller.Capturer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("salesboard config loaded",
		"backend_url", cfg.BackendURL,
		"bind_addr", cfg.BindAddr,
		"surface", cfg.Surface,
		"charts", len(cfg.Charts),
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
		"snapshot_dir", cfg.SnapshotDir,
		"journal_dir", cfg.JournalDir,
		"notify", cfg.NotifyURL != "",
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, netutil.Candidates(cfg.BindAddr, cfg.PortCandidates), cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	snapStore, err := snapshot.NewStore(cfg.SnapshotDir)
	if err != nil {
		slog.Error("failed to create snapshot store", "dir", cfg.SnapshotDir, "error", err)
		os.Exit(1)
	}
	broker := relay.NewBroker()
	events := controller.Publishers{broker}

	var cycleJournal *journal.Writer
	if cfg.JournalEnabled {
		cycleJournal = journal.NewWriter(cfg.JournalDir, 256, cfg.JournalMaxMB)
		events = append(events, cycleJournal)
	}
	if cfg.NotifyURL != "" {
		events = append(events, notify.NewNotifier(cfg.NotifyURL, nil))
	}

	var (
		surf      surface
		source    controller.InputSource
		values    func(context.Context) map[string]string
		cdpClient *cdpsurface.Client
	)
	switch cfg.Surface {
	case config.SurfacePNG:
		pngSurf, err := pngsurface.New(cfg.PNGDir, cfg.PNGWidth, cfg.PNGHeight)
		if err != nil {
			slog.Error("failed to create png surface", "dir", cfg.PNGDir, "error", err)
			os.Exit(1)
		}
		static := inputs.NewStatic(cfg.Inputs)
		surf, source = pngSurf, static
		values = func(context.Context) map[string]string { return static.Values() }
	default:
		cdpClient = cdpsurface.NewClient(cfg.CDPURL(), cfg.PageURL(bindAddr), time.Duration(cfg.EvalTimeoutMS)*time.Millisecond)
		surf, source = cdpClient, cdpClient
		values = func(context.Context) map[string]string { return cfg.Inputs }
	}

	svc, err := controller.NewService(controller.Options{
		Charts:    cfg.Charts,
		Fetcher:   fetch.NewClient(cfg.BackendURL, nil),
		Renderer:  render.NewRenderer(surf),
		Inputs:    source,
		Capturer:  surf,
		Snapshots: snapStore,
		Events:    events,
	})
	if err != nil {
		slog.Error("failed to create controller", "error", err)
		os.Exit(1)
	}

	dashboard := page.New(page.Options{
		Charts:    cfg.Charts,
		Companies: cfg.Companies,
		Static:    cfg.Surface == config.SurfacePNG,
		Values:    values,
	})
	srv := &http.Server{Addr: bindAddr, Handler: api.NewServer(svc, api.Options{Page: dashboard, Broker: broker})}

	go func() {
		slog.Info("salesboard listening", "addr", bindAddr, "page", cfg.PageURL(bindAddr), "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("salesboard server failed", "error", err)
			os.Exit(1)
		}
	}()

	var launcher *browser.Launcher
	if cdpClient != nil {
		if cfg.LaunchBrowser {
			launcher = browser.NewLauncher(browser.Config{
				CDPAddress: cfg.CDPAddress,
				CDPPort:    cfg.CDPPort,
				ProfileDir: cfg.ProfileDir,
				Headless:   cfg.Headless,
			})
			if err := launcher.Launch(context.Background()); err != nil {
				slog.Error("failed to launch browser", "error", err)
				os.Exit(1)
			}
		}
		if err := cdpClient.Connect(context.Background()); err != nil {
			slog.Error("failed to connect browser surface", "cdp_url", cfg.CDPURL(), "error", err)
			if launcher != nil {
				launcher.Stop()
			}
			os.Exit(1)
		}
		if probe, err := cdpClient.Probe(context.Background()); err != nil || !probe.Plotly {
			slog.Warn("browser surface plotting engine not ready", "plotly", probe.Plotly, "error", err)
		} else {
			slog.Info("browser surface ready", "plotly_version", probe.Version, "launched", launcher != nil && launcher.Running())
		}
	}

	bootCtx, bootCancel := context.WithCancel(context.Background())
	go func() {
		if _, err := svc.Bootstrap(bootCtx); err != nil {
			slog.Warn("controller bootstrap error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	bootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("salesboard shutdown failed", "error", err)
	}
	if cdpClient != nil {
		if err := cdpClient.Close(); err != nil {
			slog.Debug("browser surface close failed", "error", err)
		}
	}
	if launcher != nil {
		launcher.Stop()
	}
	if cycleJournal != nil {
		if err := cycleJournal.Close(); err != nil {
			slog.Debug("journal close failed", "error", err)
		}
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
