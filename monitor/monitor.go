// Copyright 2024 The sprt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package monitor implements a live terminal dashboard of the runner's
// broadcast state (its paths and values plus a status line); the pending
// controlled-transition queue and active async actions are not shown.
// It follows the tcell screen-draw style of
// examples/tcell-pick-and-place/sim/sim.go's service.view: clear, draw
// every line, Show, once per redraw.
package monitor

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-isatty"
	"github.com/symbolicsp/sprt"
)

// StateSource mirrors the same watch-channel shape messaging.StateSource
// depends on, so Monitor can observe a *runner.Runner without the
// monitor package importing runner.
type StateSource interface {
	State() *sprt.State
	Watch() <-chan struct{}
}

// Monitor draws StateSource's latest State, refreshing whenever it
// changes or a status line needs to tick (e.g. a "last updated" clock).
type Monitor struct {
	Source StateSource
	Screen tcell.Screen
}

// IsInteractive reports whether stdout is a real terminal, the same
// check (isatty.IsTerminal) used by cmd/graft's main.go to decide
// whether to enable ANSI output; `sprtctl run` uses it to fall back to a plain
// line-oriented dump when stdout is redirected or piped.
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// New constructs a Monitor over an initialized tcell.Screen. Callers own
// the Screen's Init/Fini lifecycle, matching
// examples/tcell-pick-and-place/main.go's screen setup.
func New(source StateSource, screen tcell.Screen) *Monitor {
	return &Monitor{Source: source, Screen: screen}
}

// Run redraws the dashboard on every state change and every tick of a
// slow clock (so the "last updated" line stays honest even between
// state changes), until quit is closed or the user presses 'q'/Ctrl-C.
func (m *Monitor) Run(quit <-chan struct{}) error {
	keys := make(chan *tcell.EventKey)
	go m.pollEvents(keys)

	redrawTick := time.NewTicker(time.Second)
	defer redrawTick.Stop()

	state := m.Source.State()
	changed := m.Source.Watch()
	lastDrawn := time.Now()
	m.draw(state, lastDrawn)

	for {
		select {
		case <-quit:
			return nil
		case key := <-keys:
			if key == nil {
				return nil
			}
			if key.Key() == tcell.KeyCtrlC || key.Rune() == 'q' {
				return nil
			}
		case <-changed:
			state = m.Source.State()
			changed = m.Source.Watch()
			lastDrawn = time.Now()
			m.draw(state, lastDrawn)
		case <-redrawTick.C:
			m.draw(state, lastDrawn)
		}
	}
}

func (m *Monitor) pollEvents(keys chan<- *tcell.EventKey) {
	for {
		switch ev := m.Screen.PollEvent().(type) {
		case *tcell.EventKey:
			keys <- ev
		case nil:
			close(keys)
			return
		}
	}
}

// draw renders one full frame: a sorted path/value table plus a status
// line, following sim.go's view's clear-draw-Show shape.
func (m *Monitor) draw(state *sprt.State, lastUpdated time.Time) {
	m.Screen.Clear()

	paths := state.Paths()
	sort.Slice(paths, func(i, j int) bool { return paths[i].Compare(paths[j]) < 0 })

	row := 0
	drawLine(m.Screen, row, "sprt monitor")
	row++
	drawLine(m.Screen, row, fmt.Sprintf("last update: %s", lastUpdated.Format(time.RFC3339)))
	row += 2

	for _, p := range paths {
		v, _ := state.Get(p)
		drawLine(m.Screen, row, fmt.Sprintf("%-32s %s", p.String(), v.String()))
		row++
	}

	drawLine(m.Screen, row+1, "press 'q' or Ctrl-C to quit")

	m.Screen.Show()
}

func drawLine(screen tcell.Screen, row int, text string) {
	for col, r := range []rune(text) {
		screen.SetContent(col, row, r, nil, tcell.StyleDefault)
	}
}

// PlainDump writes one line per path/value assignment to w, sorted by
// path, for non-interactive use (piped stdout, logfiles) where a
// full-screen tcell dashboard would not render sensibly.
func PlainDump(w io.Writer, state *sprt.State) error {
	paths := state.Paths()
	sort.Slice(paths, func(i, j int) bool { return paths[i].Compare(paths[j]) < 0 })
	for _, p := range paths {
		v, _ := state.Get(p)
		if _, err := fmt.Fprintf(w, "%-32s %s\n", p.String(), v.String()); err != nil {
			return err
		}
	}
	return nil
}
