package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rbshaffer/constitute-tools/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

type globalFlags struct {
	dir     string
	logJSON bool
	verbose bool
}

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "constitute",
		Short: "Segment constitutional texts into tabulated sections",
		Long: `Constitute splits constitutional and legal texts into a hierarchy of
titled sections using ordered header patterns, reattaches lists, checks the
result against the source and resolves topic tags onto sections.

Work happens in a Constitute/ directory tree:
  Raw_Texts        source documents
  Cleaned_Texts    layout-cleaned text
  Article_Numbers  tag files, one CSV per document
  Tabulated_Texts  one CSV of rows per document
  Reports          outline skeletons and unmatched tags`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.dir, "dir", cfg.Home, "directory holding the Constitute/ tree")
	rootCmd.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log debug detail")

	rootCmd.AddCommand(initCmd(g))
	rootCmd.AddCommand(cleanCmd(g, cfg))
	rootCmd.AddCommand(tabulateCmd(g, cfg))
	rootCmd.AddCommand(serveCmd(g, cfg))
	rootCmd.AddCommand(profilesCmd(g, cfg))
	return rootCmd
}

// logger writes to stderr so command output on stdout stays clean.
func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if g.logJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
