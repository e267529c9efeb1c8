// Package daemonrun boots the daemon process: logging, preflight, queue
// store, workflow stages, scheduler, and the HTTP API, then blocks until the
// process receives a shutdown signal.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/preflight"
	"clipforge/internal/publish"
	"clipforge/internal/queue"
	"clipforge/internal/render"
	"clipforge/internal/scheduler"
	"clipforge/internal/scrape"
	"clipforge/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the clipforge daemon runtime loop. It returns once the context
// is cancelled or the process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "clipforged.log")
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Tee recent records into the ring the API's /logs endpoint serves.
	ring := logging.NewRing(cfg.Logging.BufferLines, slog.LevelDebug)
	logger = logging.TeeLogger(logger, ring)

	if failed := preflight.Failures(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
		for _, result := range failed {
			logger.Error("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
		}
		return fmt.Errorf("preflight failed: %s", preflight.Summarize(failed))
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "clipforged.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	if err := registerStages(manager, cfg, store, logger, notifier); err != nil {
		store.Close()
		return err
	}

	sched, err := scheduler.New(cfg, store, logger, notifier)
	if err != nil {
		store.Close()
		return fmt.Errorf("configure scheduler: %w", err)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Bind:      cfg.API.Bind,
		Store:     store,
		Workflow:  manager,
		Scheduler: sched,
		Ring:      ring,
		Notifier:  notifier,
		Logger:    logger,
		StartTime: time.Now(),
	})

	d, err := daemon.New(cfg, store, logger, manager, sched, apiServer)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("clipforge daemon shutting down")
	return nil
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) error {
	scraper, err := scrape.NewStage(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("configure scrape stage: %w", err)
	}
	mgr.ConfigureStages(workflow.StageSet{
		Scraper:   scraper,
		Renderer:  render.NewStage(cfg, store, logger, notifier),
		Publisher: publish.NewStage(cfg, store, logger, notifier),
	})
	return nil
}

// writePIDFile records the daemon pid. Stale files from crashed runs are
// overwritten; the flock, not the pid file, enforces single-instance.
func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
