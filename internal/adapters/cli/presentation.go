package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/docker/go-units"

	"github.com/melih/lighthouse/internal/core/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// missing is shown for values the runtime did not report.
const missing = "-"

func cliWriteLine(out io.Writer, msg string) error {
	_, err := fmt.Fprintln(out, msg)
	return err
}

func cliWritef(out io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(out, format, args...)
	return err
}

func cliRenderTitle(msg string) string   { return titleStyle.Render(msg) }
func cliRenderMuted(msg string) string   { return mutedStyle.Render(msg) }
func cliRenderSuccess(msg string) string { return successStyle.Render(msg) }

func cliRenderMeta(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func orMissing(s *string) string {
	if s == nil || *s == "" {
		return missing
	}
	return *s
}

func stateText(s *domain.ContainerState) string {
	if s == nil {
		return missing
	}
	return string(*s)
}

func listText(values []string) string {
	if len(values) == 0 {
		return missing
	}
	return strings.Join(values, ", ")
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	if id == "" {
		return missing
	}
	return id
}

func formatSize(size int64) string {
	if size <= 0 {
		return missing
	}
	return units.HumanSize(float64(size))
}

func formatProgress(ev domain.PullProgressEvent) string {
	var b strings.Builder
	if ev.ID != nil {
		b.WriteString(*ev.ID)
		b.WriteString(": ")
	}
	b.WriteString(ev.Status)
	if p := ev.ProgressDetail; p != nil {
		if p.Total > 0 {
			fmt.Fprintf(&b, " %s/%s", units.HumanSize(float64(p.Current)), units.HumanSize(float64(p.Total)))
		} else {
			fmt.Fprintf(&b, " %s", units.HumanSize(float64(p.Current)))
		}
	}
	return b.String()
}
