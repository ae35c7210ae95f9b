// Package plotting renders stored runs as PNG figures.
package plotting

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	widthIn  = 8.0
	heightIn = 6.0
	dpi      = 200
)

type series struct {
	label  string
	xs, ys []float64
	dashed bool
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)

	p.X.Label.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.TextStyle.Font.Size = vg.Points(13)
	p.X.Label.Padding = vg.Points(6)
	p.Y.Label.Padding = vg.Points(6)

	p.X.Tick.Label.Font.Size = vg.Points(11)
	p.Y.Tick.Label.Font.Size = vg.Points(11)

	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(10)
	p.Add(plotter.NewGrid())
}

func linePlot(title, xlabel, ylabel string, lines []series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	stylePlot(p)

	for i, s := range lines {
		if len(s.xs) != len(s.ys) || len(s.xs) == 0 {
			return nil, fmt.Errorf("plot data invalid: %s", s.label)
		}
		pts := make(plotter.XYs, len(s.xs))
		for k := range s.xs {
			pts[k].X = s.xs[k]
			pts[k].Y = s.ys[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		if s.dashed {
			line.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		}
		p.Add(line)
		p.Legend.Add(s.label, line)
	}
	return p, nil
}

func savePNG(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

func column(res *dynamo.Result, f func(k int) float64) []float64 {
	out := make([]float64, res.Len())
	for k := range out {
		out[k] = f(k)
	}
	return out
}

// HoverError plots the position error components against time.
func HoverError(res *dynamo.Result, dir, tag string) (string, error) {
	t := res.Times
	ex := column(res, func(k int) float64 { return res.States[k].Position().X - res.RefPositions[k].X })
	ey := column(res, func(k int) float64 { return res.States[k].Position().Y - res.RefPositions[k].Y })
	ez := column(res, func(k int) float64 { return res.States[k].Position().Z - res.RefPositions[k].Z })

	p, err := linePlot("Position Error", "Time (s)", "Position error (m)", []series{
		{label: "e_x", xs: t, ys: ex},
		{label: "e_y", xs: t, ys: ey},
		{label: "e_z", xs: t, ys: ez},
	})
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("Fig_HoverError__%s.png", tag))
	return path, savePNG(p, path)
}

// TrajXY overlays the flown horizontal path on the reference with equal
// axis scales.
func TrajXY(res *dynamo.Result, dir, tag, title string) (string, error) {
	rx := column(res, func(k int) float64 { return res.RefPositions[k].X })
	ry := column(res, func(k int) float64 { return res.RefPositions[k].Y })
	x := column(res, func(k int) float64 { return res.States[k].Position().X })
	y := column(res, func(k int) float64 { return res.States[k].Position().Y })

	p, err := linePlot(title, "x (m)", "y (m)", []series{
		{label: "ref", xs: rx, ys: ry, dashed: true},
		{label: "actual", xs: x, ys: y},
	})
	if err != nil {
		return "", err
	}
	equalAxes(p)
	path := filepath.Join(dir, fmt.Sprintf("Fig_TrajXY__%s.png", tag))
	return path, savePNG(p, path)
}

func equalAxes(p *plot.Plot) {
	xr := p.X.Max - p.X.Min
	yr := p.Y.Max - p.Y.Min
	span := math.Max(xr, yr)
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return
	}
	xc := (p.X.Max + p.X.Min) / 2
	yc := (p.Y.Max + p.Y.Min) / 2
	p.X.Min, p.X.Max = xc-span/2, xc+span/2
	p.Y.Min, p.Y.Max = yc-span/2, yc+span/2
}

// Inputs plots the commanded wrench.
func Inputs(res *dynamo.Result, dir, tag string) (string, error) {
	lines := make([]series, 4)
	for i, label := range []string{"T", "tau_x", "tau_y", "tau_z"} {
		lines[i] = series{label: label, xs: res.Times, ys: column(res, func(k int) float64 { return res.Wrenches[k].Vector()[i] })}
	}
	p, err := linePlot("Desired Wrench", "Time (s)", "Desired wrench", lines)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("Fig_Inputs__%s.png", tag))
	return path, savePNG(p, path)
}

// MotorSpeeds plots rotor speeds (solid) against their commands (dashed).
func MotorSpeeds(res *dynamo.Result, dir, tag string) (string, error) {
	lines := make([]series, 0, 2*dynamo.NumRotors)
	for i := 0; i < dynamo.NumRotors; i++ {
		lines = append(lines, series{
			label: fmt.Sprintf("omega%d", i+1),
			xs:    res.Times,
			ys:    column(res, func(k int) float64 { return res.Rotors[k][i] }),
		})
	}
	for i := 0; i < dynamo.NumRotors; i++ {
		lines = append(lines, series{
			label:  fmt.Sprintf("omega%d_cmd", i+1),
			xs:     res.Times,
			ys:     column(res, func(k int) float64 { return res.Commands[k][i] }),
			dashed: true,
		})
	}
	p, err := linePlot("Motor Speeds", "Time (s)", "Motor speed (rad/s)", lines)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("Fig_MotorSpeeds__%s.png", tag))
	return path, savePNG(p, path)
}

// ForRun writes the figure set for one run: the error plot for hover, the
// XY plot otherwise, then wrench and motor speeds. It returns the paths
// written.
func ForRun(res *dynamo.Result, dir, tag, scenarioName string) ([]string, error) {
	if res.Len() == 0 {
		return nil, fmt.Errorf("plot data invalid: %s has no samples", tag)
	}
	var paths []string
	var (
		path string
		err  error
	)
	if scenarioName == "hover" {
		path, err = HoverError(res, dir, tag)
	} else {
		path, err = TrajXY(res, dir, tag, fmt.Sprintf("%s Tracking (XY)", titleCase(scenarioName)))
	}
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	for _, fig := range []func(*dynamo.Result, string, string) (string, error){Inputs, MotorSpeeds} {
		path, err := fig(res, dir, tag)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
