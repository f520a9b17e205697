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

// NamedPredicate binds a Predicate to a Path so it can be projected into
// State as a derived boolean Variable (refreshed once per tick, before
// uncontrolled saturation) and referenced by other Predicates the same
// way any other boolean Variable would be.
type NamedPredicate struct {
	path      Path
	predicate *Predicate
}

// NewNamedPredicate binds predicate to path.
func NewNamedPredicate(path Path, predicate *Predicate) NamedPredicate {
	return NamedPredicate{path: path, predicate: predicate}
}

// Path returns the identifying path of the derived variable.
func (np NamedPredicate) Path() Path { return np.path }

// Predicate returns the underlying Predicate.
func (np NamedPredicate) Predicate() *Predicate { return np.predicate }

// Variable returns the Variable declaration for this derived boolean,
// for inclusion in a TransitionSystemModel.
func (np NamedPredicate) Variable() (*Variable, error) {
	return NewVariable(np.path, Bool, Estimated, nil, NewBool(false))
}

// Refresh evaluates the predicate against state at instant now and
// returns the assignment to fold into the next State, i.e. the
// projection step the Ticker performs at the start of every tick before
// uncontrolled saturation runs.
func (np NamedPredicate) Refresh(state *State, now time.Time) (Path, Value, error) {
	b, err := np.predicate.Eval(state, now)
	if err != nil {
		return np.path, Value{}, err
	}
	return np.path, NewBool(b), nil
}
