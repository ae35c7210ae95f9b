package viz

import (
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

const chartHeight = 10

func plotMany(series [][]float64, width int, caption string, colors ...asciigraph.AnsiColor) string {
	opts := []asciigraph.Option{
		asciigraph.Height(chartHeight),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	}
	if len(colors) > 0 {
		opts = append(opts, asciigraph.SeriesColors(colors...))
	}
	return asciigraph.PlotMany(series, opts...)
}

// PositionErrors returns ‖p − p_ref‖ for every sample.
func PositionErrors(res *dynamo.Result) []float64 {
	out := make([]float64, res.Len())
	for k := range out {
		out[k] = r3.Norm(r3.Sub(res.States[k].Position(), res.RefPositions[k]))
	}
	return out
}

// RunCharts plots a run: each position axis against its reference, the
// tracking error norm, thrust and rotor speeds.
func RunCharts(res *dynamo.Result, width int) string {
	if res.Len() == 0 {
		return "no data to plot\n"
	}
	n := res.Len()
	axes := []string{"x", "y", "z"}

	var b strings.Builder
	for i, axis := range axes {
		actual := make([]float64, n)
		ref := make([]float64, n)
		for k := 0; k < n; k++ {
			p := res.States[k].Position()
			r := res.RefPositions[k]
			actual[k] = [3]float64{p.X, p.Y, p.Z}[i]
			ref[k] = [3]float64{r.X, r.Y, r.Z}[i]
		}
		b.WriteString(plotMany([][]float64{ref, actual}, width, axis+" (m): ref, actual", asciigraph.Yellow, asciigraph.Blue))
		b.WriteString("\n\n")
	}

	b.WriteString(plotMany([][]float64{PositionErrors(res)}, width, "|p - p_ref| (m)", asciigraph.Red))
	b.WriteString("\n\n")

	thrust := make([]float64, n)
	for k := 0; k < n; k++ {
		thrust[k] = res.Wrenches[k].Thrust
	}
	b.WriteString(plotMany([][]float64{thrust}, width, "thrust (N)", asciigraph.Green))
	b.WriteString("\n\n")

	rotors := make([][]float64, dynamo.NumRotors)
	for i := range rotors {
		rotors[i] = make([]float64, n)
		for k := 0; k < n; k++ {
			rotors[i][k] = res.Rotors[k][i]
		}
	}
	b.WriteString(plotMany(rotors, width, "rotor speeds (rad/s)", asciigraph.Blue, asciigraph.Green, asciigraph.Yellow, asciigraph.Red))
	b.WriteString("\n")
	return b.String()
}
