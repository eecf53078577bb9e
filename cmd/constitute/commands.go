package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rbshaffer/constitute-tools/internal/config"
	"github.com/rbshaffer/constitute-tools/internal/markup"
	"github.com/rbshaffer/constitute-tools/internal/parser"
	"github.com/rbshaffer/constitute-tools/internal/workspace"
	"github.com/spf13/cobra"
)

func initCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create the Constitute/ directory tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := g.dir
			if len(args) > 0 {
				dir = args[0]
			}
			ws, err := workspace.Init(dir)
			if err != nil {
				return err
			}
			printInit(cmd.OutOrStdout(), ws)
			return nil
		},
	}
}

func cleanCmd(g *globalFlags, cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clean <file>...",
		Short: "Remove layout whitespace from extracted texts",
		Long: `Clean collapses blank runs, rejoins hard-wrapped lines and drops blank
lines, writing the result to Cleaned_Texts/<name>.txt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := workspace.Open(g.dir)
			if err != nil {
				return err
			}
			opts := parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}
			for _, path := range args {
				text, err := loadText(path, opts)
				if err != nil {
					return err
				}
				cleaned, err := markup.Clean(text)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				out, err := ws.WriteCleaned(workspace.DocName(path), cleaned)
				if err != nil {
					return err
				}
				printWritten(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
}

func loadText(path string, opts parser.Options) (string, error) {
	p, err := parser.ForFile(path, opts)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	src, err := p.Parse(bytes.NewReader(data), path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return src.Text, nil
}

func profilesCmd(g *globalFlags, cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the segmentation profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := config.LoadProfiles(cfg.ProfileDir, g.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			printProfiles(cmd.OutOrStdout(), profiles.List())
			return nil
		},
	}
}
