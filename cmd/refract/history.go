package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/refract/internal/config"
	"github.com/dshills/refract/internal/history"
)

var historyOpts struct {
	limit  int
	asJSON bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent refactoring outcomes",
	Long: `Show the journal of recent refactoring invocations: what was attempted,
where, and how it ended. Applied entries are marked with *.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyOpts.limit, "limit", 20, "maximum entries to show (0 = all)")
	f.BoolVar(&historyOpts.asJSON, "json", false, "emit entries as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := rootOpts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return exitf(exitUsage, "%v", err)
	}
	if cfg.History.Disabled {
		fmt.Fprintln(cmd.OutOrStdout(), "history is disabled in the config")
		return nil
	}

	journal, err := history.Open(cfg.History.Path)
	if err != nil {
		return exitf(exitUsage, "%v", err)
	}
	entries := journal.List(historyOpts.limit)

	if historyOpts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no refactorings recorded")
		return nil
	}
	for _, e := range entries {
		mark := " "
		if e.Applied {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s  %-24s %-20s %s:%d\n",
			mark,
			e.Time.Local().Format("2006-01-02 15:04"),
			e.Kind,
			e.Outcome,
			e.File, e.Offset)
		for _, msg := range e.Fatals {
			fmt.Fprintf(out, "    blocked: %s\n", msg)
		}
	}
	return nil
}
