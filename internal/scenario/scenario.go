// Package scenario provides the reference trajectories flown by the
// simulator. Every reference is a pure function of time.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrUnknownScenario = errors.New("scenario: unknown scenario")

const (
	NameHover  = "hover"
	NameLine   = "line"
	NameCircle = "circle"
)

// Scenario pairs a reference with the horizon it is flown for.
type Scenario struct {
	Name     string
	Ref      dynamo.ReferenceFunc
	Duration float64
}

// Hover holds the point (0, 0, hover_z).
func Hover(traj config.Traj) dynamo.ReferenceFunc {
	p := r3.Vec{Z: traj.HoverZ}
	return func(t float64) dynamo.Reference {
		return dynamo.Reference{Position: p}
	}
}

// Line flies along +x at line_v and altitude hover_z.
func Line(traj config.Traj) dynamo.ReferenceFunc {
	v := traj.LineV
	z := traj.HoverZ
	return func(t float64) dynamo.Reference {
		return dynamo.Reference{
			Position: r3.Vec{X: v * t, Z: z},
			Velocity: r3.Vec{X: v},
		}
	}
}

// Circle flies a horizontal circle of radius circle_r at angular rate
// circle_omega, with the exact centripetal feed-forward.
func Circle(traj config.Traj) dynamo.ReferenceFunc {
	r := traj.CircleR
	w := traj.CircleOmega
	z := traj.CircleZ
	return func(t float64) dynamo.Reference {
		c, s := math.Cos(w*t), math.Sin(w*t)
		return dynamo.Reference{
			Position:     r3.Vec{X: r * c, Y: r * s, Z: z},
			Velocity:     r3.Vec{X: -r * w * s, Y: r * w * c},
			Acceleration: r3.Vec{X: -r * w * w * c, Y: -r * w * w * s},
		}
	}
}

func Names() []string {
	return []string{NameHover, NameLine, NameCircle}
}

// ByName builds a scenario with its configured horizon. Names are matched
// case-insensitively.
func ByName(name string, cfg *config.Config) (Scenario, error) {
	switch strings.ToLower(name) {
	case NameHover:
		return Scenario{Name: NameHover, Ref: Hover(cfg.Traj), Duration: cfg.Sim.THover}, nil
	case NameLine:
		return Scenario{Name: NameLine, Ref: Line(cfg.Traj), Duration: cfg.Sim.TLine}, nil
	case NameCircle:
		return Scenario{Name: NameCircle, Ref: Circle(cfg.Traj), Duration: cfg.Sim.TCircle}, nil
	}
	return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}
