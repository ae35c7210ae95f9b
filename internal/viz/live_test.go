package viz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/scenario"
	"github.com/san-kum/quadsim/internal/sim"
)

func send(m LiveModel, msgs ...tea.Msg) LiveModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(LiveModel)
	}
	return m
}

func key(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func frames(res *dynamo.Result) []tea.Msg {
	out := make([]tea.Msg, res.Len())
	for k := range out {
		out[k] = frameMsg(res.Sample(k))
	}
	return out
}

func TestLiveModel_PacesToWallClock(t *testing.T) {
	m := NewLiveModel("line / LQR", nil, 2)
	if !strings.Contains(m.View(), "LINE / LQR") {
		t.Errorf("expected the title while waiting:\n%s", m.View())
	}

	m = send(m, frames(lineResult(11))...)
	if got := len(m.Shown()); got != 1 {
		t.Fatalf("expected only the t=0 sample before the clock starts, got %d", got)
	}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m = send(m, tickMsg(t0), tickMsg(t0.Add(250*time.Millisecond)))
	if got := len(m.Shown()); got != 6 {
		t.Errorf("expected samples up to t=0.5 at double speed, got %d", got)
	}

	m = send(m, key(' '), tickMsg(t0.Add(time.Second)))
	if got := len(m.Shown()); got != 6 {
		t.Errorf("paused view advanced to %d samples", got)
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("expected PAUSED status")
	}
}

func TestLiveModel_SkipAndFinish(t *testing.T) {
	res := lineResult(20)
	m := send(NewLiveModel("replay", nil, 1), frames(res)...)
	m = send(m, key('f'))
	if got := len(m.Shown()); got != res.Len() {
		t.Fatalf("expected all %d samples after skipping, got %d", res.Len(), got)
	}
	if m.Done() {
		t.Error("done before the feed closed")
	}

	m = send(m, feedDoneMsg{})
	if !m.Done() {
		t.Error("expected done once the feed closed and nothing is pending")
	}
	view := m.View()
	for _, want := range []string{"DONE", "TOP VIEW", "STATE", "rotor 4", "|p - p_ref|"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLiveModel_SpeedBounds(t *testing.T) {
	m := NewLiveModel("x", nil, 1000)
	if m.speed != maxSpeed {
		t.Errorf("expected speed clamped to %v, got %v", maxSpeed, m.speed)
	}
	for i := 0; i < 12; i++ {
		m = send(m, key('-'))
	}
	if m.speed != minSpeed {
		t.Errorf("expected speed floor %v, got %v", minSpeed, m.speed)
	}
}

func TestReplay(t *testing.T) {
	res := lineResult(7)
	feed := Replay(context.Background(), res)
	n := 0
	for s := range feed.Frames() {
		if s.Time != res.Times[n] {
			t.Errorf("sample %d: time %v, want %v", n, s.Time, res.Times[n])
		}
		n++
	}
	if n != res.Len() {
		t.Errorf("expected %d samples, got %d", res.Len(), n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range Replay(ctx, res).Frames() {
	}
}

func TestFeed_ObservesSimulator(t *testing.T) {
	cfg := config.GetPreset("calm")
	x0, err := sim.InitialState(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s, err := sim.Build(cfg, control.KindLQR)
	if err != nil {
		t.Fatal(err)
	}

	feed := NewFeed(context.Background())
	s.AddObserver(feed)
	go func() {
		defer feed.Close()
		s.Run(context.Background(), x0, scenario.Hover(cfg.Traj), dynamo.Config{Dt: 0.01, Duration: 0.2})
	}()

	n := 0
	for range feed.Frames() {
		n++
	}
	if n != 21 {
		t.Errorf("expected 21 samples, got %d", n)
	}
}

func TestFeed_CancelUnblocksRun(t *testing.T) {
	cfg := config.GetPreset("calm")
	x0, _ := sim.InitialState(cfg)
	s, err := sim.Build(cfg, control.KindLQR)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	feed := NewFeed(ctx)
	s.AddObserver(feed)
	errc := make(chan error, 1)
	go func() {
		defer feed.Close()
		_, err := s.Run(ctx, x0, scenario.Hover(cfg.Traj), dynamo.Config{Dt: 0.01, Duration: 5})
		errc <- err
	}()

	for i := 0; i < 3; i++ {
		<-feed.Frames()
	}
	cancel()
	for range feed.Frames() {
	}
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
