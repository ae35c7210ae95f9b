// Package storage persists runs as a directory holding metadata.json and a
// compressed trajectory.npz bundle.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.npz"
	timestampFmt   = "20060102_150405"
)

// Trajectory keys, one row per simulation sample.
var trajectoryKeys = []string{"t", "X", "U", "omega", "omega_cmd", "p_ref", "v_ref"}

// Row width of each trajectory key.
var trajectoryWidths = map[string]int{
	"t":         1,
	"X":         dynamo.StateDim,
	"U":         4,
	"omega":     4,
	"omega_cmd": 4,
	"p_ref":     3,
	"v_ref":     3,
}

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID               string             `json:"id"`
	Case             string             `json:"case,omitempty"`
	Scenario         string             `json:"scenario"`
	Controller       string             `json:"controller"`
	Timestamp        time.Time          `json:"timestamp"`
	Seed             int64              `json:"seed"`
	Dt               float64            `json:"dt"`
	Duration         float64            `json:"duration"`
	DisturbanceLevel int                `json:"disturbance_level"`
	Integrator       string             `json:"integrator"`
	Samples          int                `json:"samples"`
	Metrics          map[string]float64 `json:"metrics"`
}

// Save writes result under <case>__<controller>_<YYYYMMDD_HHMMSS>,
// filling in ID, Timestamp and Samples, and returns the run ID. The
// scenario name stands in for the case when none is given.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	meta.Timestamp = s.now()
	if meta.Case == "" {
		meta.Case = meta.Scenario
	}
	meta.ID = fmt.Sprintf("%s__%s_%s", meta.Case, meta.Controller, meta.Timestamp.Format(timestampFmt))
	meta.Samples = result.Len()
	if meta.Integrator == "" {
		meta.Integrator = "rk4"
	}
	if meta.Metrics == nil {
		meta.Metrics = result.Metrics
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := WriteNpz(filepath.Join(runDir, trajectoryFile), trajectoryKeys, trajectoryArrays(result)); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	// metadata.json goes last: List only reports runs that carry it.
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func trajectoryArrays(res *dynamo.Result) map[string]Array {
	n := res.Len()
	x := make([][]float64, n)
	u := make([][]float64, n)
	om := make([][]float64, n)
	cmd := make([][]float64, n)
	pref := make([][]float64, n)
	vref := make([][]float64, n)
	for k := 0; k < n; k++ {
		x[k] = res.States[k]
		w := res.Wrenches[k].Vector()
		u[k] = w[:]
		rot, c := res.Rotors[k], res.Commands[k]
		om[k] = rot[:]
		cmd[k] = c[:]
		pref[k] = vec3(res.RefPositions[k])
		vref[k] = vec3(res.RefVelocities[k])
	}
	return map[string]Array{
		"t":         Vector(res.Times),
		"X":         Matrix(x),
		"U":         Matrix(u),
		"omega":     Matrix(om),
		"omega_cmd": Matrix(cmd),
		"p_ref":     Matrix(pref),
		"v_ref":     Matrix(vref),
	}
}

func vec3(v r3.Vec) []float64 { return []float64{v.X, v.Y, v.Z} }

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrajectory rebuilds the logged result of a run.
func (s *Store) LoadTrajectory(runID string) (*dynamo.Result, error) {
	arrays, err := ReadNpz(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	if err := checkTrajectory(arrays); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}

	t := arrays["t"]
	n := t.Rows()
	res := dynamo.NewResult(n)
	for k := 0; k < n; k++ {
		var rot, cmd dynamo.Control
		copy(rot[:], arrays["omega"].Row(k))
		copy(cmd[:], arrays["omega_cmd"].Row(k))
		u := arrays["U"].Row(k)
		p := arrays["p_ref"].Row(k)
		v := arrays["v_ref"].Row(k)

		res.Append(dynamo.Sample{
			Time:     t.Data[k],
			State:    dynamo.State(arrays["X"].Row(k)).Clone(),
			Wrench:   dynamo.Wrench{Thrust: u[0], Torque: r3.Vec{X: u[1], Y: u[2], Z: u[3]}},
			Rotors:   rot,
			Commands: cmd,
			Ref: dynamo.Reference{
				Position: r3.Vec{X: p[0], Y: p[1], Z: p[2]},
				Velocity: r3.Vec{X: v[0], Y: v[1], Z: v[2]},
			},
		})
	}
	if n > 0 {
		res.StepsTaken = n - 1
	}
	return res, nil
}

// checkTrajectory verifies every key is present with one row per time
// sample and the expected width.
func checkTrajectory(arrays map[string]Array) error {
	t, ok := arrays["t"]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrBadArray, "t")
	}
	if len(t.Shape) != 1 {
		return fmt.Errorf("%w: t has shape %v", ErrBadArray, t.Shape)
	}
	n := t.Rows()
	for _, key := range trajectoryKeys[1:] {
		a, ok := arrays[key]
		if !ok {
			return fmt.Errorf("%w: missing %q", ErrBadArray, key)
		}
		if len(a.Shape) != 2 {
			return fmt.Errorf("%w: %s has shape %v, want 2-D", ErrBadArray, key, a.Shape)
		}
		// An empty run is written as a 0x0 matrix.
		if n == 0 && a.Rows() == 0 {
			continue
		}
		if a.Rows() != n || a.Cols() != trajectoryWidths[key] {
			return fmt.Errorf("%w: %s has shape %v, want (%d, %d)", ErrBadArray, key, a.Shape, n, trajectoryWidths[key])
		}
	}
	return nil
}

// ExportCSV writes one row per sample: time, state, wrench, commands.
func (s *Store) ExportCSV(runID, path string) error {
	res, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time",
		"px", "py", "pz", "vx", "vy", "vz", "qw", "qx", "qy", "qz", "wx", "wy", "wz",
		"w1", "w2", "w3", "w4",
		"thrust", "tau_x", "tau_y", "tau_z",
		"w1_cmd", "w2_cmd", "w3_cmd", "w4_cmd",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for k := 0; k < res.Len(); k++ {
		row := []string{format(res.Times[k])}
		for _, v := range res.States[k] {
			row = append(row, format(v))
		}
		for _, v := range res.Wrenches[k].Vector() {
			row = append(row, format(v))
		}
		for _, v := range res.Commands[k] {
			row = append(row, format(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
