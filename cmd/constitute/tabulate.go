package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbshaffer/constitute-tools/internal/config"
	"github.com/rbshaffer/constitute-tools/internal/pipeline"
	"github.com/rbshaffer/constitute-tools/internal/tabulate"
	"github.com/rbshaffer/constitute-tools/internal/workspace"
	"github.com/spf13/cobra"
)

type tabulateFlags struct {
	profile       string
	headers       []string
	preambleLevel int
	caseSensitive bool
	format        string
	tags          string
	watch         bool
}

func tabulateCmd(g *globalFlags, cfg config.Config) *cobra.Command {
	f := &tabulateFlags{}
	cmd := &cobra.Command{
		Use:   "tabulate <file>...",
		Short: "Segment documents and write their rows and reports",
		Long: `Tabulate segments each document with the header patterns of a profile,
or with patterns given on the command line, and writes:

  Tabulated_Texts/<name>.csv        one row per section and body line
  Reports/<name>_skeleton.txt       the patterns and the section outline
  Reports/<name>_failed_tags.csv    tags that matched no single section

Tags are read from Article_Numbers/<name>.csv unless --tags is given.

Example:
  constitute tabulate Constitute/Raw_Texts/Kenya.txt
  constitute tabulate --header 'Chapter \d+' --header 'Article \d+' --preamble-level 0 Kenya.txt
  constitute tabulate --watch Kenya.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := g.logger(cmd.ErrOrStderr())
			ws, err := workspace.Open(g.dir)
			if err != nil {
				return err
			}
			profiles, err := config.LoadProfiles(cfg.ProfileDir, log)
			if err != nil {
				return err
			}
			profile, err := profiles.Get(f.profile)
			if err != nil {
				return err
			}
			opts, err := f.options(cmd, profile, cfg)
			if err != nil {
				return err
			}
			if f.watch && len(args) != 1 {
				return fmt.Errorf("--watch takes exactly one file")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			run := func() error {
				return runTabulate(ctx, out, ws, cfg, log, profile.Name, opts, f.tags, args)
			}
			if err := run(); err != nil {
				if !f.watch {
					return err
				}
				printWarning(out, err.Error())
			}
			if !f.watch {
				return nil
			}

			printWatching(out, args[0])
			return workspace.WatchFile(ctx, args[0], log, func() {
				if err := run(); err != nil {
					printWarning(out, err.Error())
				}
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.profile, "profile", "p", config.DefaultProfileName, "segmentation profile")
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "header pattern, outermost first (repeatable)")
	flags.IntVar(&f.preambleLevel, "preamble-level", 0, "index of the pattern that ends the preamble, or -1 for none")
	flags.BoolVar(&f.caseSensitive, "case-sensitive", false, "match headers and tags case-sensitively")
	flags.StringVarP(&f.format, "format", "f", string(tabulate.FormatCCP), "row format (ccp, ccp-multilingual)")
	flags.StringVar(&f.tags, "tags", "", "tag file (default Article_Numbers/<name>.csv)")
	flags.BoolVarP(&f.watch, "watch", "w", false, "tabulate again whenever the file changes")
	return cmd
}

// options starts from the profile and applies only the flags that were set.
func (f *tabulateFlags) options(cmd *cobra.Command, profile *config.Profile, cfg config.Config) (tabulate.Options, error) {
	opts := profile.Options()
	opts.MatchTimeout = cfg.MatchTimeout

	flags := cmd.Flags()
	if flags.Changed("header") {
		opts.HeaderPatterns = f.headers
		if opts.PreambleLevel >= len(f.headers) {
			opts.PreambleLevel = 0
		}
	}
	if flags.Changed("preamble-level") {
		opts.PreambleLevel = f.preambleLevel
	}
	if flags.Changed("case-sensitive") {
		opts.CaseSensitive = f.caseSensitive
	}
	if flags.Changed("format") {
		format, err := tabulate.ParseFormat(f.format)
		if err != nil {
			return opts, err
		}
		opts.Format = format
	}
	return opts, opts.Validate()
}

// runTabulate pushes every file through a worker pool and writes the
// outputs of those that succeed.
func runTabulate(ctx context.Context, w io.Writer, ws *workspace.Workspace, cfg config.Config, log *slog.Logger,
	profile string, opts tabulate.Options, tagsPath string, files []string) error {
	cfg.MaxQueueSize = max(cfg.MaxQueueSize, len(files))
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(ctx)
	defer orch.Stop()

	jobs := make([]*pipeline.Job, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		records, from, err := ws.LoadTags(workspace.DocName(path), tagsPath)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if from != "" {
			log.Debug("tags loaded", "file", path, "tags", from, "count", len(records))
		}
		job := pipeline.NewJob(path, profile, data, opts, records)
		if err := orch.Submit(job); err != nil {
			return err
		}
		jobs = append(jobs, job)
	}
	if err := orch.Wait(ctx, jobs...); err != nil {
		return err
	}

	failed := 0
	for _, job := range jobs {
		snap := job.Snapshot()
		if snap.Status != pipeline.StatusCompleted {
			failed++
			printFailure(w, snap)
			continue
		}
		name := workspace.DocName(job.Filename)
		res := job.Result()
		written, err := ws.WriteResult(name, opts.HeaderPatterns, res)
		if err != nil {
			return err
		}
		printSummary(w, name, snap, res, written)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(jobs))
	}
	return nil
}
