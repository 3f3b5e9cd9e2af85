package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/comigor/azoai-go/internal/config"
	"github.com/comigor/azoai-go/internal/history"
)

var (
	historyCommand string
	historySession string
	historyLimit   int
	historyFull    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store := history.Open(cmd.Context(), cfg.History.DBPath)
		defer store.Close()

		entries, err := store.List(cmd.Context(), history.Filter{
			Command:   historyCommand,
			SessionID: historySession,
			Limit:     historyLimit,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyFull {
			for _, e := range entries {
				fmt.Fprintf(out, "#%d %s %s [%s]\n%s\n", e.ID, e.CreatedAt.Format(time.RFC3339), e.Command, e.Status, e.Content)
			}
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tWHEN\tCOMMAND\tSTATUS\tOUTPUT")
		for _, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.CreatedAt.Format(time.RFC3339), e.Command, e.Status, firstLine(e.Content, 60))
		}
		return tw.Flush()
	},
}

func firstLine(s string, n int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	historyCmd.Flags().StringVar(&historyCommand, "command", "", "only runs of this command, e.g. \"azoai chat\"")
	historyCmd.Flags().StringVar(&historySession, "session", "", "only runs of this session id")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyFull, "full", false, "print the whole transcript of each run")
	rootCmd.AddCommand(historyCmd)
}
