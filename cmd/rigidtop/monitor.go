package main

import (
	"fmt"
	"log"
	"rigid3d/internal/config"
	"rigid3d/internal/physics"
	"rigid3d/internal/scene"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
)

const (
	frameInterval = 16 * time.Millisecond // ~60 FPS
	smoothing     = 0.1
	barWidth      = 30
)

type monitor struct {
	screen   tcell.Screen
	settings config.Settings
	path     string
	world    *physics.World
	audio    *collisionTick

	paused   bool
	parallel bool

	// Smoothed stage times in microseconds
	stages [physics.DebugTypeCount]float64
	stepUs float64

	frameBegins int
	begins      int
	ends        int
	steps       int
	message     string
}

func newMonitor(settings config.Settings, scenePath string) (*monitor, error) {
	m := &monitor{
		settings: settings,
		path:     scenePath,
		parallel: settings.Threads.Multithread,
		audio:    newCollisionTick(),
	}
	if err := m.load(); err != nil {
		return nil, err
	}

	// Non-fatal, the monitor runs without sound
	if err := m.audio.init(); err != nil {
		log.Printf("Audio initialization failed: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err == nil {
		err = screen.Init()
	}
	if err != nil {
		m.audio.close()
		m.world.Close()
		return nil, err
	}
	m.screen = screen
	return m, nil
}

func (m *monitor) load() error {
	file, err := scene.Load(m.path)
	if err != nil {
		return err
	}
	w, err := physics.NewWorld(m.settings.WorldConfig())
	if err != nil {
		return err
	}
	if _, err := file.Build(w); err != nil {
		w.Close()
		return err
	}

	w.Events.BodiesBeginCollide.AddListener(func(_, _ *physics.Body) {
		m.frameBegins++
		m.begins++
	})
	w.Events.BodiesEndCollide.AddListener(func(_, _ *physics.Body) { m.ends++ })

	if m.world != nil {
		m.world.Close()
	}
	m.world = w
	m.stages = [physics.DebugTypeCount]float64{}
	m.begins, m.ends, m.steps = 0, 0, 0
	return nil
}

func (m *monitor) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			eventChan <- m.screen.PollEvent()
		}
	}()

	last := time.Now()
	for {
		select {
		case ev := <-eventChan:
			if !m.handleInput(ev) {
				return
			}

		case now := <-ticker.C:
			elapsed := float32(now.Sub(last).Seconds())
			last = now
			if !m.paused {
				m.step(elapsed)
			}
			m.draw()
		}
	}
}

func (m *monitor) step(elapsed float32) {
	m.frameBegins = 0
	start := time.Now()
	n, err := m.world.StepFixed(elapsed, m.parallel, m.settings.Timestep.Fixed, m.settings.Timestep.MaxSteps)
	if err != nil {
		m.message = fmt.Sprintf("Step failed: %v", err)
		m.paused = true
		return
	}
	if n == 0 {
		return
	}
	m.steps += n

	perStep := float64(time.Since(start).Microseconds()) / float64(n)
	m.stepUs = ema(m.stepUs, perStep)
	times := m.world.DebugTimes()
	for i, d := range times {
		m.stages[i] = ema(m.stages[i], float64(d.Microseconds()))
	}

	m.audio.play(m.frameBegins)
}

func (m *monitor) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			m.paused = !m.paused
		case 'p':
			m.parallel = !m.parallel
		case 'm':
			m.audio.muted = !m.audio.muted
		case 'd':
			m.world.SetAllowDeactivation(!m.world.AllowDeactivation())
		case '+', '-':
			m.adjustIterations(ev.Rune())
		case 'r':
			if err := m.load(); err != nil {
				m.message = fmt.Sprintf("Reload failed: %v", err)
			} else {
				m.message = "Reloaded " + m.path
			}
		}

	case *tcell.EventResize:
		m.screen.Sync()
	}
	return true
}

func (m *monitor) adjustIterations(r rune) {
	iterations, small := m.world.Iterations()
	if r == '+' {
		iterations++
	} else {
		iterations--
	}
	small = min(small, iterations)
	if err := m.world.SetIterations(iterations, small); err != nil {
		m.message = err.Error()
	}
}

func (m *monitor) draw() {
	m.screen.Clear()

	title := tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	muted := tcell.StyleDefault.Foreground(tcell.ColorGray)
	value := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	warn := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	state := "running"
	if m.paused {
		state = "paused"
	}
	y := 0
	m.text(0, y, title, fmt.Sprintf("rigidtop  %s  [%s]", m.path, state))
	y += 2

	s := m.world.Stats()
	iterations, small := m.world.Iterations()
	m.text(0, y, muted, fmt.Sprintf("bodies %d (%d awake)  arbiters %d  contacts %d  islands %d (%d awake)",
		s.Bodies, s.ActiveBodies, s.Arbiters, s.Contacts, s.Islands, s.ActiveIslands))
	y++
	m.text(0, y, muted, fmt.Sprintf("steps %d  begin %d  end %d  iterations %d/%d  parallel %v  deactivation %v  sound %v",
		m.steps, m.begins, m.ends, iterations, small, m.parallel, m.world.AllowDeactivation(), !m.audio.muted))
	y += 2

	var peak float64
	for _, us := range m.stages {
		peak = max(peak, us)
	}
	for i, us := range m.stages {
		m.text(0, y, muted, fmt.Sprintf("%-18s", physics.DebugType(i)))
		m.text(19, y, value, bar(us/peak, barWidth))
		m.text(20+barWidth, y, muted, fmt.Sprintf("%9.1f us", us))
		y++
	}
	y++
	m.text(0, y, title, fmt.Sprintf("%-18s %*s %9.1f us", "step", barWidth, "", m.stepUs))
	y += 2

	m.text(0, y, muted, "space pause  p parallel  d deactivation  +/- iterations  m mute  r reload  q quit")
	if m.message != "" {
		m.text(0, y+1, warn, m.message)
	}

	m.screen.Show()
}

func (m *monitor) text(x, y int, style tcell.Style, s string) {
	for i, r := range []rune(s) {
		m.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (m *monitor) cleanup() {
	m.audio.close()
	if m.screen != nil {
		m.screen.Fini()
	}
	if m.world != nil {
		m.world.Close()
	}
}

// bar renders frac of width as block characters. frac outside [0, 1] or NaN is clamped.
func bar(frac float64, width int) string {
	if !(frac > 0) {
		return ""
	}
	n := int(frac*float64(width) + 0.5)
	n = min(n, width)
	return strings.Repeat("█", n)
}

func ema(prev, sample float64) float64 {
	if prev == 0 {
		return sample
	}
	return prev + smoothing*(sample-prev)
}
