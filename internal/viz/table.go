package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/san-kum/quadsim/internal/experiment"
	"github.com/san-kum/quadsim/internal/storage"
)

// Tracking thresholds (m) for coloring rmse_pos.
const (
	rmseGood = 0.05
	rmseBad  = 0.3
)

func formatMetric(name string, v float64) string {
	if math.IsNaN(v) {
		return Status("nan", v, 0, 0)
	}
	s := fmt.Sprintf("%.4g", v)
	if name == "rmse_pos" {
		return Status(s, v, rmseGood, rmseBad)
	}
	return s
}

// MetricsTable renders one row per case with the named metric columns.
// With no names, every metric present in rows is shown.
func MetricsTable(rows []experiment.Row, names []string) string {
	if len(names) == 0 {
		names = experiment.MetricNames(rows)
	}
	headers := append([]string{"EXP", "CTRL"}, upper(names)...)

	body := make([][]string, len(rows))
	for i, r := range rows {
		cells := []string{r.Exp, r.Controller}
		for _, name := range names {
			v, ok := r.Metrics[name]
			if !ok {
				cells = append(cells, "-")
				continue
			}
			cells = append(cells, formatMetric(name, v))
		}
		body[i] = cells
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Secondary).Padding(0, 1)
	cell := lipgloss.NewStyle().Foreground(CurrentTheme.Text).Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(CurrentTheme.Border)).
		Headers(headers...).
		Rows(body...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col < 2 {
				return cell.Foreground(CurrentTheme.Primary)
			}
			return cell
		})
	return t.String()
}

// RunSummary renders a run's metadata and metrics in a titled box.
func RunSummary(meta *storage.RunMetadata, errNorms []float64, width int) string {
	var b strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", metricLabel().Render(fmt.Sprintf("%-18s", label)), metricValue().Render(value))
	}
	line("scenario", meta.Scenario)
	line("controller", meta.Controller)
	line("seed", fmt.Sprintf("%d", meta.Seed))
	line("disturbance level", fmt.Sprintf("%d", meta.DisturbanceLevel))
	line("dt / duration", fmt.Sprintf("%g s / %g s", meta.Dt, meta.Duration))
	line("samples", fmt.Sprintf("%d", meta.Samples))
	b.WriteString(Separator(width-4) + "\n")

	for _, name := range experiment.MetricNames([]experiment.Row{{Metrics: meta.Metrics}}) {
		fmt.Fprintf(&b, "%s %s\n", metricLabel().Render(fmt.Sprintf("%-18s", name)), formatMetric(name, meta.Metrics[name]))
	}
	if len(errNorms) > 0 {
		fmt.Fprintf(&b, "%s %s", metricLabel().Render(fmt.Sprintf("%-18s", "|e_p| over time")), SparklineChart(errNorms, width-26))
	}
	return BoxWithTitle(meta.ID, strings.TrimRight(b.String(), "\n"), width)
}

func upper(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(n)
	}
	return out
}
