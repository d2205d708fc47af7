// package ui renders operator-facing terminal output with [lipgloss] styles.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rmzi/crate/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// RenderSummary formats the end-of-run accounting. The review queue size is
// surfaced prominently: it is the operator's primary actionable output.
func RenderSummary(stats models.RunStats, reviewCount int, dryRun bool) string {
	var b strings.Builder

	title := "Enrichment complete"
	if dryRun {
		title += "  [DRY RUN]"
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("  Total tracks:     %d\n", stats.Total))
	b.WriteString(fmt.Sprintf("  Processed:        %d\n", stats.Processed))
	if stats.FromCache > 0 {
		b.WriteString(fmt.Sprintf("  From cache:       %d (via dry-run report)\n", stats.FromCache))
	}
	b.WriteString(fmt.Sprintf("  Skipped (resume): %d\n", stats.SkippedResume))
	b.WriteString("  " + styles.ok.Render(fmt.Sprintf("Auto-accepted:    %d", stats.AutoAccepted)) + "\n")
	b.WriteString("  " + styles.warn.Render(fmt.Sprintf("Flagged review:   %d", stats.Flagged)) + "\n")
	b.WriteString(fmt.Sprintf("  No match:         %d\n", stats.NoMatch))
	if stats.Skipped > 0 {
		b.WriteString(fmt.Sprintf("  Skipped:          %d\n", stats.Skipped))
	}

	if reviewCount > 0 {
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("%d tracks need review", reviewCount)) + "\n")
		b.WriteString(styles.help.Render("run `crate review list` to inspect the queue") + "\n")
	}

	return b.String()
}
