// Command tasksyncd runs the local stand-in for the Closerbase task
// API, for development against the sync client without the real
// backend.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/closerbase/tasksync/config"
	"github.com/closerbase/tasksync/internal/version"
	"github.com/closerbase/tasksync/server"
	"github.com/closerbase/tasksync/task"
)

var (
	configPath = flag.String("config", "", "path to YAML config file")
	demo       = flag.Bool("demo", false, "seed demo call summaries for the sync endpoint")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}

	store := server.NewStore()
	if *demo {
		seedDemo(store)
	}

	srv := server.New(cfg.Server, store, logger)

	logger.Info("starting tasksyncd",
		"version", version.Version,
		"commit", version.Commit,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case <-sigCh:
		logger.Info("shutting down")
		if err := srv.Stop(context.Background()); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}
}

// seedDemo queues a few next-step lines so POST /api/user/tasks/sync
// has something to ingest.
func seedDemo(store *server.Store) {
	store.QueueSummary(server.Summary{
		Line:       "Angebot für Erweiterungslizenz nachfassen",
		SourceType: task.SourceCall,
		SourceID:   "call-demo-1",
		Contact:    "M. Weber",
	})
	store.QueueSummary(server.Summary{
		Line:       "Demo-Termin für das Vertriebsteam vereinbaren",
		SourceType: task.SourceCall,
		SourceID:   "call-demo-2",
		Contact:    "S. Brandt",
	})
	store.QueueSummary(server.Summary{
		Line:       "Preisliste im Team-Space teilen",
		SourceType: task.SourceSpace,
		SourceID:   "space-demo-1",
	})
}
