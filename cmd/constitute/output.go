package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rbshaffer/constitute-tools/internal/config"
	"github.com/rbshaffer/constitute-tools/internal/pipeline"
	"github.com/rbshaffer/constitute-tools/internal/tabulate"
	"github.com/rbshaffer/constitute-tools/internal/tagging"
	"github.com/rbshaffer/constitute-tools/internal/workspace"
)

// outlinePreview caps how many outline lines a summary shows.
const outlinePreview = 12

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// boxStyle frames the per-document summary.
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

func printInit(w io.Writer, ws *workspace.Workspace) {
	root := filepath.Join(ws.Dir, workspace.Root)
	fmt.Fprintf(w, "%s %s\n", successStyle.Render("Initialized"), root)
	for _, sub := range []string{
		workspace.RawTexts, workspace.CleanedTexts, workspace.ArticleNumbers,
		workspace.TabulatedTexts, workspace.Reports,
	} {
		fmt.Fprintf(w, "  %s\n", dimStyle.Render(sub+"/"))
	}
}

func printWritten(w io.Writer, path string) {
	fmt.Fprintf(w, "%s %s\n", successStyle.Render("wrote"), path)
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render("warning: ")+msg)
}

func printWatching(w io.Writer, path string) {
	fmt.Fprintf(w, "%s %s %s\n", dimStyle.Render("watching"), path, dimStyle.Render("(ctrl-c to stop)"))
}

func printFailure(w io.Writer, snap pipeline.JobSnapshot) {
	msg := strings.Join(snap.Progress.Errors, "; ")
	fmt.Fprintf(w, "%s %s %s %s\n", errorStyle.Render("FAILED"), snap.Filename, dimStyle.Render(snap.Phase+":"), msg)
}

// printSummary renders one document's summary box followed by the start of
// its outline.
func printSummary(w io.Writer, name string, snap pipeline.JobSnapshot, res *tabulate.Result, written workspace.Written) {
	lines := []string{
		titleStyle.Render(name) + "  " + dimStyle.Render("profile "+snap.Profile),
		fmt.Sprintf("%s %d  %s %d", dimStyle.Render("Sections:"), len(res.Outline), dimStyle.Render("Rows:"), len(res.Rows)),
	}

	switch {
	case res.Report == nil:
		lines = append(lines, dimStyle.Render("No tags supplied."))
	case len(res.Report) == 0:
		lines = append(lines, successStyle.Render(tagging.Summary(res.Report, snap.Progress.TotalTags)))
	default:
		lines = append(lines, warnStyle.Render(tagging.Summary(res.Report, snap.Progress.TotalTags)))
	}
	if res.Desync != nil {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("Desync at offset %d", res.Desync.Offset)))
	}
	if len(res.DanglingLists) > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("Unplaced lists: %v", res.DanglingLists)))
	}

	lines = append(lines, dimStyle.Render("Rows:     ")+written.Rows)
	lines = append(lines, dimStyle.Render("Skeleton: ")+written.Skeleton)
	if written.FailedTags != "" {
		lines = append(lines, dimStyle.Render("Failed:   ")+written.FailedTags)
	}

	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
	printOutline(w, res.Outline)
}

func printOutline(w io.Writer, outline []string) {
	for i, line := range outline {
		if i == outlinePreview {
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  ... %d more", len(outline)-outlinePreview)))
			return
		}
		fmt.Fprintln(w, "  "+strings.ReplaceAll(line, "\t", "  "))
	}
}

func printProfiles(w io.Writer, profiles []*config.Profile) {
	for _, p := range profiles {
		fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(p.Name), dimStyle.Render(p.Description))
		for i, pattern := range p.HeaderRegex {
			marker := " "
			if i == p.PreambleLevel {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %d  %s\n", marker, i, pattern)
		}
	}
}
