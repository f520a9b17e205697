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

package sprt

import "time"

// TransitionKind distinguishes how the Ticker may fire a Transition.
type TransitionKind int

const (
	// Controlled transitions represent a choice the planner/controller
	// makes; the Ticker fires at most one per tick, after uncontrolled
	// saturation.
	Controlled TransitionKind = iota
	// Uncontrolled transitions represent environment/runtime reactions;
	// the Ticker fires every enabled one, repeatedly, until saturation.
	Uncontrolled
)

func (k TransitionKind) String() string {
	if k == Uncontrolled {
		return "uncontrolled"
	}
	return "controlled"
}

// Transition pairs a guard Predicate with a set of Actions that fire
// atomically when the guard holds and the transition is selected.
type Transition struct {
	path   Path
	kind   TransitionKind
	guard  *Predicate
	action []Action
	// hidden marks a transition generated for the running Ticker only
	// (e.g. an Operation's runner-side start/finish) that the planner's
	// encoder must not see, since it exists to drive the real actuators
	// rather than to be reasoned about abstractly.
	hidden bool
}

// NewTransition constructs a Transition. guard may be nil, equivalent to
// True().
func NewTransition(path Path, kind TransitionKind, guard *Predicate, actions ...Action) *Transition {
	if guard == nil {
		guard = True()
	}
	return &Transition{path: path, kind: kind, guard: guard, action: actions}
}

// Hidden reports whether the transition is excluded from planner
// encoding (runner-only).
func (t *Transition) Hidden() bool { return t.hidden }

// WithHidden returns a copy of t with its hidden flag set.
func (t *Transition) WithHidden(hidden bool) *Transition {
	cp := *t
	cp.hidden = hidden
	return &cp
}

// Path returns the transition's identifying path.
func (t *Transition) Path() Path { return t.path }

// Kind returns whether the transition is controlled or uncontrolled.
func (t *Transition) Kind() TransitionKind { return t.kind }

// Guard returns the transition's enabling predicate.
func (t *Transition) Guard() *Predicate { return t.guard }

// Actions returns the transition's action list.
func (t *Transition) Actions() []Action { return t.action }

// Modifies returns the deduplicated, sorted set of Paths the
// transition's actions may assign.
func (t *Transition) Modifies() []Path {
	seen := map[string]Path{}
	for _, a := range t.action {
		seen[a.Target().String()] = a.Target()
	}
	out := make([]Path, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sortPaths(out)
	return out
}

// Enabled reports whether the transition's guard holds in state at
// instant now.
func (t *Transition) Enabled(state *State, now time.Time) (bool, error) {
	return t.guard.Eval(state, now)
}

// Fire evaluates every action against state and returns the resulting
// assignment set without committing it, so the caller (the Ticker) can
// stage one or more transitions before committing a single new State.
// Fire fails if the guard does not hold, or if any action's Compute
// cannot be evaluated (e.g. a nondeterministic CAny reached outside the
// planner).
func (t *Transition) Fire(state *State, now time.Time) (map[Path]Value, error) {
	ok, err := t.Enabled(state, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &PathError{Op: "fire", Path: t.path, Detail: "guard not satisfied"}
	}
	assignments := make(map[Path]Value, len(t.action))
	for _, a := range t.action {
		v, err := a.Eval(state, now)
		if err != nil {
			return nil, err
		}
		assignments[a.Target()] = v
	}
	return assignments, nil
}
