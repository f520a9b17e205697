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

// Package ticker implements the deterministic synchronous evaluator at
// the heart of the runtime: uncontrolled saturation, a single
// controlled step per invocation, and the asynchronous action lifecycle
// that lets long-running side effects feed back into state.
package ticker

import (
	"time"

	"github.com/symbolicsp/sprt"
)

// MaxSaturationRounds bounds the uncontrolled fixed-point search. A
// model whose uncontrolled transitions form a firing cycle would
// otherwise saturate forever; N=10 is the protocol's fixed bound.
const MaxSaturationRounds = 10

// Ticker is the deterministic heart of the runtime. It owns the live
// State plus every Transition, NamedPredicate, and AsyncTransition of a
// single TransitionSystemModel, and advances them one tick at a time.
//
// A Ticker is not safe for concurrent use; the Runner confines it to a
// single goroutine, matching the cooperative single-producer scheduling
// model (see SPEC_FULL §6).
type Ticker struct {
	state *sprt.State

	controlled   []*sprt.Transition
	uncontrolled []*sprt.Transition
	predicates   []sprt.NamedPredicate
	async        []*AsyncTransition

	controlledQueue []sprt.Path

	active map[string]*activeAsync
	wake   chan<- struct{}

	now         func() time.Time
	diagnostics []error
}

// New constructs a Ticker over model's transitions (split by Kind, in
// declared order) and initial state. async declares the model's
// long-running side-effecting transitions, which are hidden from the
// planner and driven only by the live Ticker. wake, if non-nil, is
// notified (non-blocking) whenever an async action completes, so the
// Runner knows to re-tick without waiting for the next clock pulse.
func New(model *sprt.TransitionSystemModel, initial *sprt.State, async []*AsyncTransition, wake chan<- struct{}) *Ticker {
	t := &Ticker{
		state:  initial,
		async:  async,
		active: make(map[string]*activeAsync),
		wake:   wake,
		now:    time.Now,
	}
	for _, tr := range model.Transitions() {
		switch tr.Kind() {
		case sprt.Controlled:
			t.controlled = append(t.controlled, tr)
		default:
			t.uncontrolled = append(t.uncontrolled, tr)
		}
	}
	t.predicates = model.NamedPredicates()
	return t
}

// State returns the Ticker's current committed State.
func (t *Ticker) State() *sprt.State { return t.state }

// Diagnostics returns the non-fatal errors (async action failures)
// observed during the most recent Tick, for the Runner to log.
func (t *Ticker) Diagnostics() []error { return t.diagnostics }

// SetControlledQueue replaces the queue of planner-selected controlled
// transition paths awaiting dispatch, one per future tick. It
// corresponds to the Runner handling a NewPlan message.
func (t *Ticker) SetControlledQueue(paths []sprt.Path) {
	q := make([]sprt.Path, len(paths))
	copy(q, paths)
	t.controlledQueue = q
}

// ControlledQueue returns a copy of the pending controlled-transition
// queue.
func (t *Ticker) ControlledQueue() []sprt.Path {
	out := make([]sprt.Path, len(t.controlledQueue))
	copy(out, t.controlledQueue)
	return out
}

// Extend folds externally observed assignments (e.g. a merged
// StateChange from the messaging adapter) into the Ticker's State
// without running a tick, mirroring the Runner's StateChange handling
// prior to invoking Tick.
func (t *Ticker) Extend(assignments map[sprt.Path]sprt.Value) error {
	if len(assignments) == 0 {
		return nil
	}
	next, err := t.state.WithValues(assignments)
	if err != nil {
		return err
	}
	t.state = next
	t.updateStatePaths()
	return nil
}

// updateStatePaths runs the update_state_paths rebind pass (§4.4) over
// every predicate the Ticker owns — each NamedPredicate and every
// transition's guard — against the freshly committed State, so cached
// state-path handles are never resolved lazily on the next tick.
func (t *Ticker) updateStatePaths() {
	for _, np := range t.predicates {
		np.Predicate().UpdateStatePaths(t.state)
	}
	for _, tr := range t.controlled {
		tr.Guard().UpdateStatePaths(t.state)
	}
	for _, tr := range t.uncontrolled {
		tr.Guard().UpdateStatePaths(t.state)
	}
}

// Tick runs one full tick-protocol invocation: refresh derived state,
// saturate uncontrolled transitions, harvest and dispatch async
// actions, fire at most one controlled transition, and return the
// ordered sequence of fired transition Paths (§4.4).
func (t *Ticker) Tick() ([]sprt.Path, error) {
	now := t.now()
	var fired []sprt.Path

	if err := t.refreshPredicates(now); err != nil {
		return fired, err
	}

	satFired, err := t.saturate(now)
	fired = append(fired, satFired...)
	if err != nil {
		return fired, err
	}

	t.diagnostics = t.harvestAsync()
	t.dispatchAsync(now)

	if path, ok, err := t.stepControlled(now); err != nil {
		return fired, err
	} else if ok {
		fired = append(fired, path)
	}

	t.updateStatePaths()
	return fired, nil
}

// refreshPredicates projects every NamedPredicate into state, as step 1
// of the tick protocol.
func (t *Ticker) refreshPredicates(now time.Time) error {
	if len(t.predicates) == 0 {
		return nil
	}
	assignments := make(map[sprt.Path]sprt.Value, len(t.predicates))
	for _, np := range t.predicates {
		path, val, err := np.Refresh(t.state, now)
		if err != nil {
			// A predicate that cannot evaluate (missing support path)
			// degrades to false per §4.1 "missing paths yield false".
			assignments[np.Path()] = sprt.NewBool(false)
			continue
		}
		assignments[path] = val
	}
	next, err := t.state.WithValues(assignments)
	if err != nil {
		return err
	}
	t.state = next
	return nil
}

// saturate repeats step 2 of the tick protocol: in declared order, fire
// every enabled uncontrolled transition against the state as it stood
// at the start of the pass, commit the pass's assignments together,
// refresh derived state, and pass again until a pass fires nothing. A
// transition whose assignments would leave every target unchanged is
// not counted as fired. It fails with a *sprt.SaturationError after
// MaxSaturationRounds.
func (t *Ticker) saturate(now time.Time) ([]sprt.Path, error) {
	var fired []sprt.Path
	for round := 0; round < MaxSaturationRounds; round++ {
		// Every transition in this pass is evaluated against the state
		// as it stood at the start of the pass: per §4.4 "Ordering
		// guarantees", candidates within one pass never observe each
		// other's writes, so all of the pass's assignments are staged
		// here and committed together. A later pass does observe them.
		//
		// A path already written by an earlier transition in this same
		// pass has a pending next; per §4.2/§4.3 a transition whose
		// action would write to a path with a pending next is not
		// enabled for this pass, so only the first (in declared order)
		// transition targeting a given path actually fires.
		assignments := make(map[sprt.Path]sprt.Value)
		pending := make(map[string]bool)
		var roundFired []sprt.Path
		for _, tr := range t.uncontrolled {
			ok, err := tr.Enabled(t.state, now)
			if err != nil || !ok {
				// An evaluation-time error degrades the transition to
				// "not enabled" per §7 error policy; the diagnostic is
				// the caller's concern (the Runner logs it).
				continue
			}
			conflict := false
			for _, p := range tr.Modifies() {
				if pending[p.String()] {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}
			a, err := tr.Fire(t.state, now)
			if err != nil {
				continue
			}
			// A firing that writes back the values its targets already
			// hold changes nothing, so it does not keep saturation going.
			changes := false
			for p, v := range a {
				if cur, ok := t.state.Get(p); !ok || !cur.Equal(v) {
					changes = true
					break
				}
			}
			if !changes {
				continue
			}
			for p, v := range a {
				assignments[p] = v
				pending[p.String()] = true
			}
			roundFired = append(roundFired, tr.Path())
		}
		if len(roundFired) == 0 {
			return fired, nil
		}
		next, err := t.state.WithValues(assignments)
		if err != nil {
			return fired, err
		}
		t.state = next
		if err := t.refreshPredicates(now); err != nil {
			return fired, err
		}
		fired = append(fired, roundFired...)
	}
	return fired, &sprt.SaturationError{Rounds: MaxSaturationRounds}
}

// stepControlled fires at most one controlled transition per tick: the
// one named by the head of controlledQueue, if it is currently enabled.
func (t *Ticker) stepControlled(now time.Time) (sprt.Path, bool, error) {
	if len(t.controlledQueue) == 0 {
		return sprt.Path{}, false, nil
	}
	head := t.controlledQueue[0]
	tr := t.findControlled(head)
	if tr == nil {
		// The planner queued a path this Ticker has no transition for;
		// drop it rather than block forever on a dead entry.
		t.controlledQueue = t.controlledQueue[1:]
		return sprt.Path{}, false, nil
	}
	ok, err := tr.Enabled(t.state, now)
	if err != nil || !ok {
		return sprt.Path{}, false, nil
	}
	assignments, err := tr.Fire(t.state, now)
	if err != nil {
		return sprt.Path{}, false, nil
	}
	next, err := t.state.WithValues(assignments)
	if err != nil {
		return sprt.Path{}, false, err
	}
	t.state = next
	if err := t.refreshPredicates(now); err != nil {
		return sprt.Path{}, false, err
	}
	t.controlledQueue = t.controlledQueue[1:]
	return head, true, nil
}

func (t *Ticker) findControlled(path sprt.Path) *sprt.Transition {
	for _, tr := range t.controlled {
		if tr.Path().Equal(path) {
			return tr
		}
	}
	return nil
}
