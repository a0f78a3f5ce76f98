package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Process exit codes. Scripts can tell "applied" (0) from "declined or
// blocked" (1) from "bad invocation" (2) from "server trouble" (3).
const (
	exitOK      = 0
	exitAborted = 1
	exitUsage   = 2
	exitServer  = 3
)

// exitError carries a specific exit code out of a command. An empty
// message means the flow already told the user everything.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string { return e.message }

func exitf(code int, format string, args ...any) *exitError {
	return &exitError{code: code, message: fmt.Sprintf(format, args...)}
}

var rootOpts struct {
	configPath string
	logLevel   string
	noColor    bool
}

var rootCmd = &cobra.Command{
	Use:   "refract",
	Short: "Apply analysis-server refactorings from the command line",
	Long: `Refract drives an analysis server's refactorings over files on disk or
buffers in a running Neovim instance: validate a refactoring at a
position, surface what blocks it, confirm past warnings, and apply the
resulting edits atomically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootOpts.configPath, "config", "c", "", "path to config file")
	pf.StringVar(&rootOpts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.BoolVar(&rootOpts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(refactorCmd)
	rootCmd.AddCommand(kindsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
