package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/app"
	"github.com/dshills/refract/internal/refactor"
)

var kindsOpts struct {
	file       string
	offset     int
	length     int
	at         string
	server     string
	serverArgs []string
}

var kindsCmd = &cobra.Command{
	Use:   "kinds --file FILE [--at LINE:COL[+LEN] | --offset N [--length N]]",
	Short: "List the refactorings available at a position",
	Long: `Ask the analysis server which refactorings it offers at a position,
then validate each one there and report what would block it.`,
	Args: cobra.NoArgs,
	RunE: runKinds,
}

func init() {
	f := kindsCmd.Flags()
	f.StringVarP(&kindsOpts.file, "file", "f", "", "file to inspect (required)")
	f.IntVar(&kindsOpts.offset, "offset", 0, "byte offset of the selection")
	f.IntVar(&kindsOpts.length, "length", 0, "byte length of the selection")
	f.StringVar(&kindsOpts.at, "at", "", "selection as LINE:COL[+LENGTH], 1-based")
	f.StringVar(&kindsOpts.server, "server", "", "analysis server command (overrides config and manifest)")
	f.StringSliceVar(&kindsOpts.serverArgs, "server-arg", nil, "argument for the analysis server (repeatable)")

	_ = kindsCmd.MarkFlagRequired("file")
}

func runKinds(cmd *cobra.Command, args []string) error {
	if kindsOpts.at != "" && cmd.Flags().Changed("offset") {
		return exitf(exitUsage, "--at and --offset are mutually exclusive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := newApp(ctx, app.Options{
		ConfigPath:    rootOpts.configPath,
		TargetFile:    kindsOpts.file,
		ServerCommand: kindsOpts.server,
		ServerArgs:    kindsOpts.serverArgs,
		LogLevel:      rootOpts.logLevel,
		NoColor:       rootOpts.noColor,
	})
	if err != nil {
		return err
	}
	defer application.Close()

	offset, length := kindsOpts.offset, kindsOpts.length
	if kindsOpts.at != "" {
		offset, length, err = resolveAt(application, kindsOpts.file, kindsOpts.at)
		if err != nil {
			return exitf(exitUsage, "%v", err)
		}
	}

	file, err := filepath.Abs(kindsOpts.file)
	if err != nil {
		return exitf(exitUsage, "%v", err)
	}

	kinds, err := application.Edits().AvailableKinds(ctx, file, offset, length)
	if err != nil {
		return &exitError{code: exitServer, message: err.Error()}
	}
	if len(kinds) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no refactorings available here")
		return nil
	}

	// Validation is read-only, so the kinds can be probed in parallel.
	notes := make([]string, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			resp, err := application.Edits().GetRefactoring(gctx, kind, file, offset, length, true, nil)
			if err != nil {
				return err
			}
			notes[i] = describeProblems(resp.AllProblems())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &exitError{code: exitServer, message: err.Error()}
	}

	out := cmd.OutOrStdout()
	for i, kind := range kinds {
		fmt.Fprintf(out, "%-28s %s\n", kind, notes[i])
	}
	return nil
}

// describeProblems renders one status cell for a probed kind.
func describeProblems(problems []analysis.Problem) string {
	fatals, actionable := refactor.Partition(problems)
	switch {
	case len(fatals) > 0:
		return "blocked: " + fatals[0].Message
	case len(actionable) > 0:
		msgs := refactor.DedupMessages(actionable)
		if len(msgs) == 1 {
			return "warning: " + msgs[0]
		}
		return fmt.Sprintf("warnings: %d", len(msgs))
	default:
		return "ok"
	}
}
