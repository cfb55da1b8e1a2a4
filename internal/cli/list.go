package cli

import (
	"fmt"

	"github.com/lazypower/recall/internal/config"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent memories",
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum number of memories to show")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	s, x, _, err := openEngine(cfg)
	if err != nil {
		return err
	}

	ids, err := s.ListIDs()
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No memories yet.")
		return nil
	}

	fmt.Printf("%d memories (showing newest %d):\n", len(ids), min(listLimit, len(ids)))
	shown := 0
	for i := len(ids) - 1; i >= 0 && shown < listLimit; i-- {
		entry, ok := x.GetEntry(ids[i])
		if !ok {
			rec, err := s.LoadRecord(ids[i])
			if err != nil || rec == nil {
				continue
			}
			fmt.Printf("  %s  %-12s %s\n", rec.Timestamp, rec.Location, rec.Description)
			shown++
			continue
		}
		line := entry.Objects
		if entry.People != "" {
			line += " (with " + entry.People + ")"
		}
		fmt.Printf("  %s  %-12s %s\n", ids[i], entry.Location, line)
		shown++
	}
	return nil
}
