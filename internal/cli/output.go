package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

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

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// printWarnings lists malformed lines skipped while parsing source.
func printWarnings(w io.Writer, source string, warnings []error) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "%s %s: %s\n", warnStyle.Render("warning"), source, warn)
	}
}

// column is one cell of the batch summary table.
type column struct {
	title string
	width int
}

var summaryColumns = []column{
	{"FILE", 28},
	{"STATUS", 8},
	{"NAME", 12},
	{"WARN", 5},
	{"MISSING", 24},
	{"TIME", 8},
}

func renderRow(cells []string, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		width := summaryColumns[i].width
		parts[i] = style.Width(width).MaxWidth(width).Render(c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// formatSummary renders the batch results table and the totals box.
func formatSummary(w io.Writer, results []fileResult) {
	header := make([]string, len(summaryColumns))
	for i, c := range summaryColumns {
		header[i] = c.title
	}
	fmt.Fprintln(w, renderRow(header, titleStyle.PaddingRight(1)))

	var ok, invalid, failed int
	for _, r := range results {
		status := r.status()
		switch status {
		case statusOK:
			ok++
		case statusInvalid:
			invalid++
		default:
			failed++
		}

		name, warnings := "", ""
		if r.Result != nil {
			if s, isStr := r.Result.Record["name"].(string); isStr {
				name = s
			}
			warnings = fmt.Sprintf("%d", len(r.Result.Warnings))
		}
		cells := []string{
			filepath.Base(r.Path),
			statusStyle(status).Render(string(status)),
			name,
			warnings,
			strings.Join(r.missingFields(), ","),
			fmt.Sprintf("%dms", r.Elapsed.Milliseconds()),
		}
		fmt.Fprintln(w, renderRow(cells, lipgloss.NewStyle().PaddingRight(1)))
	}

	totals := fmt.Sprintf("%s %d  %s %s  %s %s  %s %s",
		dimStyle.Render("Files:"), len(results),
		dimStyle.Render("OK:"), successStyle.Render(fmt.Sprint(ok)),
		dimStyle.Render("Invalid:"), warnStyle.Render(fmt.Sprint(invalid)),
		dimStyle.Render("Failed:"), errorStyle.Render(fmt.Sprint(failed)),
	)
	fmt.Fprintln(w, boxStyle.Render(totals))
}

func statusStyle(s resultStatus) lipgloss.Style {
	switch s {
	case statusOK:
		return successStyle
	case statusInvalid:
		return warnStyle
	default:
		return errorStyle
	}
}
