package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/rotation"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	frameRate       = 30
	historyCapacity = 600
	maxPending      = 256
	mapWidth        = 41
	mapHeight       = 19
	minSpeed        = 0.125
	maxSpeed        = 64
)

// Feed is a simulator observer that hands every sample to a LiveModel.
// OnStep blocks until the view takes the sample, which paces the run to
// the playback rate. Cancelling ctx unblocks it.
type Feed struct {
	ctx context.Context
	ch  chan dynamo.Sample
}

func NewFeed(ctx context.Context) *Feed {
	return &Feed{ctx: ctx, ch: make(chan dynamo.Sample)}
}

func (f *Feed) OnStep(s dynamo.Sample) {
	select {
	case f.ch <- s:
	case <-f.ctx.Done():
	}
}

// Close ends the stream once the simulator has returned.
func (f *Feed) Close() { close(f.ch) }

func (f *Feed) Frames() <-chan dynamo.Sample { return f.ch }

// Replay streams a stored run through a Feed.
func Replay(ctx context.Context, res *dynamo.Result) *Feed {
	f := NewFeed(ctx)
	go func() {
		defer f.Close()
		for k := 0; k < res.Len(); k++ {
			if ctx.Err() != nil {
				return
			}
			f.OnStep(res.Sample(k))
		}
	}()
	return f
}

type tickMsg time.Time

type frameMsg dynamo.Sample

type feedDoneMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitFrame(ch <-chan dynamo.Sample) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return feedDoneMsg{}
		}
		return frameMsg(s)
	}
}

// LiveModel plays samples against the wall clock at a chosen speed. A
// sample is shown once the playback clock reaches its time.
type LiveModel struct {
	title    string
	frames   <-chan dynamo.Sample
	waiting  bool
	closed   bool
	pending  []dynamo.Sample
	history  []dynamo.Sample
	clock    float64
	lastTick time.Time
	speed    float64
	paused   bool
	width    int
	showHelp bool
}

func NewLiveModel(title string, frames <-chan dynamo.Sample, speed float64) LiveModel {
	if speed <= 0 {
		speed = 1
	}
	return LiveModel{
		title:   title,
		frames:  frames,
		waiting: true,
		pending: make([]dynamo.Sample, 0, maxPending),
		history: make([]dynamo.Sample, 0, historyCapacity),
		speed:   math.Min(math.Max(speed, minSpeed), maxSpeed),
		width:   100,
	}
}

func (m LiveModel) Init() tea.Cmd {
	return tea.Batch(tick(), waitFrame(m.frames))
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "+", "=":
			m.speed = math.Min(m.speed*2, maxSpeed)
		case "-", "_":
			m.speed = math.Max(m.speed/2, minSpeed)
		case "f":
			m.clock = math.Inf(1)
			m.advance()
			cmd := m.request()
			return m, cmd
		case "t":
			names := ThemeNames()
			for i, name := range names {
				if name == CurrentTheme.Name {
					SetTheme(names[(i+1)%len(names)])
					break
				}
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case frameMsg:
		m.waiting = false
		m.pending = append(m.pending, dynamo.Sample(msg))
		m.advance()
		cmd := m.request()
		return m, cmd
	case feedDoneMsg:
		m.waiting = false
		m.closed = true
	case tickMsg:
		now := time.Time(msg)
		if !m.lastTick.IsZero() && !m.paused {
			m.clock += now.Sub(m.lastTick).Seconds() * m.speed
		}
		m.lastTick = now
		m.advance()
		cmd := m.request()
		return m, tea.Batch(tick(), cmd)
	}
	return m, nil
}

// request asks the feed for another sample unless one is already on the
// way or enough are buffered.
func (m *LiveModel) request() tea.Cmd {
	if m.waiting || m.closed || len(m.pending) >= maxPending {
		return nil
	}
	m.waiting = true
	return waitFrame(m.frames)
}

// advance moves every pending sample that is due into the history.
func (m *LiveModel) advance() {
	if m.paused {
		return
	}
	due := 0
	for due < len(m.pending) && m.pending[due].Time <= m.clock {
		due++
	}
	if due == 0 {
		return
	}
	m.history = append(m.history, m.pending[:due]...)
	if over := len(m.history) - historyCapacity; over > 0 {
		m.history = append(m.history[:0], m.history[over:]...)
	}
	m.pending = append(m.pending[:0], m.pending[due:]...)
}

// Done reports whether the feed has ended and every sample was shown.
func (m LiveModel) Done() bool { return m.closed && len(m.pending) == 0 }

// Shown returns the samples on screen, oldest first.
func (m LiveModel) Shown() []dynamo.Sample { return m.history }

func (m LiveModel) status() string {
	switch {
	case m.Done():
		return Status("DONE", 0, 1, 2)
	case m.paused:
		return Status("PAUSED", 1.5, 1, 2)
	case len(m.history) == 0:
		return subtle().Render("WAITING")
	}
	return Status(fmt.Sprintf("PLAYING x%g", m.speed), 0, 1, 2)
}

func (m LiveModel) View() string {
	header := titleStyle().Render(strings.ToUpper(m.title)) + "  " + m.status()
	if len(m.history) == 0 {
		return header + "\n\n" + subtle().Render("waiting for the first sample...") + "\n"
	}
	cur := m.history[len(m.history)-1]

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		BoxWithTitle("TOP VIEW (x right, y up)", m.topView(), mapWidth),
		"  ",
		BoxWithTitle("STATE", m.stats(cur), 44),
	)

	errs := make([]float64, len(m.history))
	for k, s := range m.history {
		errs[k] = r3.Norm(r3.Sub(s.State.Position(), s.Ref.Position))
	}
	var b strings.Builder
	b.WriteString(header + "\n\n")
	b.WriteString(top + "\n")
	if len(errs) > 1 {
		chart := asciigraph.Plot(errs,
			asciigraph.Height(5),
			asciigraph.Width(max(m.width-14, 20)),
			asciigraph.Caption("|p - p_ref| (m)"),
			asciigraph.SeriesColors(asciigraph.Red))
		b.WriteString("\n" + chart + "\n")
	}
	if m.showHelp {
		b.WriteString("\n" + subtle().Render("space pause  +/- speed  f skip to end  t theme  q quit"))
	} else {
		b.WriteString("\n" + subtle().Render("? help  q quit"))
	}
	return b.String()
}

// eulerDeg returns roll, pitch and yaw in degrees for a ZYX rotation.
func eulerDeg(x dynamo.State) (roll, pitch, yaw float64) {
	r := rotation.ToRotationMatrix(x.Attitude())
	deg := 180 / math.Pi
	roll = math.Atan2(r[2][1], r[2][2]) * deg
	pitch = -math.Asin(math.Max(-1, math.Min(1, r[2][0]))) * deg
	yaw = math.Atan2(r[1][0], r[0][0]) * deg
	return roll, pitch, yaw
}

func (m LiveModel) stats(s dynamo.Sample) string {
	label := metricLabel().Width(10)
	value := metricValue()
	vec := func(v r3.Vec) string { return fmt.Sprintf("%+.3f %+.3f %+.3f", v.X, v.Y, v.Z) }

	p := s.State.Position()
	e := r3.Norm(r3.Sub(p, s.Ref.Position))
	roll, pitch, yaw := eulerDeg(s.State)

	var b strings.Builder
	row := func(name, v string) { b.WriteString(label.Render(name) + v + "\n") }
	row("time", value.Render(fmt.Sprintf("%.2f s", s.Time)))
	row("position", value.Render(vec(p)))
	row("reference", value.Render(vec(s.Ref.Position)))
	row("error", Status(fmt.Sprintf("%.4f m", e), e, 0.05, 0.25))
	row("rpy (deg)", value.Render(fmt.Sprintf("%+.1f %+.1f %+.1f", roll, pitch, yaw)))
	row("thrust", value.Render(fmt.Sprintf("%.3f N", s.Wrench.Thrust)))

	peak := 1.0
	for _, h := range m.history {
		for i := 0; i < dynamo.NumRotors; i++ {
			peak = math.Max(peak, math.Max(h.Rotors[i], h.Commands[i]))
		}
	}
	const barWidth = 16
	for i := 0; i < dynamo.NumRotors; i++ {
		filled := int(math.Round(s.Rotors[i] / peak * barWidth))
		filled = min(max(filled, 0), barWidth)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		row(fmt.Sprintf("rotor %d", i+1), lipgloss.NewStyle().Foreground(CurrentTheme.Accent).Render(bar)+fmt.Sprintf(" %4.0f", s.Rotors[i]))
	}
	return strings.TrimRight(b.String(), "\n")
}

// topView draws the reference path, the flown trail and the vehicle on
// a character grid fitted to everything shown so far.
func (m LiveModel) topView() string {
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, s := range m.history {
		for _, v := range []r3.Vec{s.State.Position(), s.Ref.Position} {
			lo.X, lo.Y = math.Min(lo.X, v.X), math.Min(lo.Y, v.Y)
			hi.X, hi.Y = math.Max(hi.X, v.X), math.Max(hi.Y, v.Y)
		}
	}
	// One scale for both axes; terminal cells are about twice as tall as wide.
	span := math.Max(math.Max(hi.X-lo.X, 2*(hi.Y-lo.Y)), 0.5)
	cx, cy := (lo.X+hi.X)/2, (lo.Y+hi.Y)/2
	cell := func(v r3.Vec) (int, int, bool) {
		col := int(math.Round((v.X-cx)/span*float64(mapWidth-3))) + mapWidth/2
		row := mapHeight/2 - int(math.Round((v.Y-cy)/span*float64(mapWidth-3)/2))
		return col, row, col >= 0 && col < mapWidth && row >= 0 && row < mapHeight
	}

	grid := make([][]rune, mapHeight)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", mapWidth))
	}
	for _, s := range m.history {
		if c, r, ok := cell(s.Ref.Position); ok {
			grid[r][c] = '·'
		}
	}
	for _, s := range m.history {
		if c, r, ok := cell(s.State.Position()); ok {
			grid[r][c] = '•'
		}
	}
	cur := m.history[len(m.history)-1]
	if c, r, ok := cell(cur.Ref.Position); ok {
		grid[r][c] = '+'
	}
	if c, r, ok := cell(cur.State.Position()); ok {
		grid[r][c] = 'X'
	}

	lines := make([]string, mapHeight)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}
