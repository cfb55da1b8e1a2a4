package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/index"
	"github.com/lazypower/recall/internal/ingest"
	"github.com/lazypower/recall/internal/query"
	"github.com/lazypower/recall/internal/server"
	"github.com/lazypower/recall/internal/store"
	"github.com/lazypower/recall/internal/vision"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

// openEngine wires the storage, graph, and index stack shared by the
// serve, query, list, and cleanup commands.
func openEngine(cfg config.Config) (*store.Store, *index.Index, *graph.Graph, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		var err error
		dir, err = store.DefaultDataDir()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolve data dir: %w", err)
		}
	}

	s, err := store.Open(dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	g := graph.New()
	g.Load(graphPath(s))

	return s, index.Open(s), g, nil
}

func graphPath(s *store.Store) string {
	return filepath.Join(s.Dir, "temporal_graph.json")
}

// visionClient builds the inference client, or nil when no API key is
// configured. Everything that depends on it degrades rather than fails.
func visionClient(cfg config.Config) vision.Client {
	if cfg.Vision.APIKey == "" {
		return nil
	}
	return vision.NewGemini(cfg.Vision.APIKey, cfg.Vision.Model)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	s, x, g, err := openEngine(cfg)
	if err != nil {
		return err
	}

	vc := visionClient(cfg)
	if vc == nil {
		fmt.Fprintln(os.Stderr, "warning: no API key configured, scene analysis and VQA disabled")
	} else {
		fmt.Fprintf(os.Stderr, "  vision: %s\n", cfg.Vision.Model)
	}

	pipe := ingest.New(s, x, g, vc, ingest.Options{
		ConfidenceFloor: cfg.Ingest.ConfidenceFloor,
		MaxRecords:      cfg.Storage.MaxRecords,
		CheckpointEvery: cfg.Ingest.CheckpointEvery,
		AttachTimeout:   cfg.AttachTimeout(),
		Announce: ingest.AnnounceConfig{
			Enabled:  cfg.Ingest.AnnounceEnabled,
			Objects:  cfg.Ingest.AnnounceObjects,
			Cooldown: cfg.AnnounceCooldown(),
		},
	}, nil)
	defer pipe.Close()

	srv := server.New(server.Options{
		Store:         s,
		Index:         x,
		Graph:         g,
		Pipeline:      pipe,
		Dispatcher:    &query.Dispatcher{Store: s, Index: x, Graph: g, Vision: vc},
		ReloadOnQuery: cfg.Server.ReloadOnQuery,
		Version:       VersionString(),
	})
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "recall serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  data: %s (%d memories)\n", s.Dir, x.Len())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
