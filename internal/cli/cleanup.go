package cli

import (
	"fmt"

	"github.com/lazypower/recall/internal/config"
	"github.com/spf13/cobra"
)

var (
	cleanupMax  int
	cleanupFIFO bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Evict low-retention memories down to the storage bound",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupMax, "max", 0, "Keep at most this many memories (default: configured max_records)")
	cleanupCmd.Flags().BoolVar(&cleanupFIFO, "fifo", false, "Evict oldest-first instead of by retention score")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	s, x, g, err := openEngine(cfg)
	if err != nil {
		return err
	}

	maxRecords := cleanupMax
	if maxRecords <= 0 {
		maxRecords = cfg.Storage.MaxRecords
	}

	evict := x.Cleanup
	if cleanupFIFO {
		evict = x.CleanupFIFO
	}
	evicted, err := evict(maxRecords)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	if err := x.Save(); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := g.Save(graphPath(s)); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}

	fmt.Printf("Forgot %d memories; %d remain.\n", evicted, x.Len())
	return nil
}
