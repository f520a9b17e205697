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

import "fmt"

// TransitionSystemModel is the complete, validated description of a
// controllable system: its Variables (including those derived from
// Operations and NamedPredicates), its Transitions, and the global
// safety Invariant no reachable State may violate.
type TransitionSystemModel struct {
	variables       []*Variable
	transitions     []*Transition
	operations      []*Operation
	namedPredicates []NamedPredicate
	invariant       *Predicate
}

// Variables returns every declared Variable, including ones derived
// from Operations and NamedPredicates.
func (m *TransitionSystemModel) Variables() []*Variable {
	out := make([]*Variable, len(m.variables))
	copy(out, m.variables)
	return out
}

// Transitions returns every Transition, including the ones generated by
// each Operation.
func (m *TransitionSystemModel) Transitions() []*Transition {
	out := make([]*Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// Operations returns the model's declared Operations.
func (m *TransitionSystemModel) Operations() []*Operation {
	out := make([]*Operation, len(m.operations))
	copy(out, m.operations)
	return out
}

// NamedPredicates returns the model's derived boolean predicates.
func (m *TransitionSystemModel) NamedPredicates() []NamedPredicate {
	out := make([]NamedPredicate, len(m.namedPredicates))
	copy(out, m.namedPredicates)
	return out
}

// Invariant returns the model's global safety predicate: every State the
// Ticker produces must satisfy it.
func (m *TransitionSystemModel) Invariant() *Predicate { return m.invariant }

// BadState returns the negation of Invariant: a State satisfies BadState
// exactly when it violates the model's safety property. The planner's
// encoder does not use it; it encodes Invariant itself as an INVAR.
func (m *TransitionSystemModel) BadState() *Predicate {
	return Not(m.invariant)
}

// InitialState builds the model's initial State from every Variable's
// declared Initial value.
func (m *TransitionSystemModel) InitialState() *State {
	return NewStateFromVariables(m.variables)
}

// ModelBuilder incrementally assembles a TransitionSystemModel,
// mirroring a resource/operation builder: callers add Variables,
// Transitions, Operations and NamedPredicates in any order, and Build
// validates and merges them into one model.
type ModelBuilder struct {
	variables       []*Variable
	transitions     []*Transition
	operations      []*Operation
	namedPredicates []NamedPredicate
	invariants      []*Predicate
	err             error
}

// NewModelBuilder returns an empty ModelBuilder.
func NewModelBuilder() *ModelBuilder { return &ModelBuilder{} }

// AddVariable declares a plain Variable.
func (b *ModelBuilder) AddVariable(v *Variable) *ModelBuilder {
	b.variables = append(b.variables, v)
	return b
}

// AddTransition declares a plain Transition.
func (b *ModelBuilder) AddTransition(t *Transition) *ModelBuilder {
	b.transitions = append(b.transitions, t)
	return b
}

// AddOperation declares an Operation; its phase Variable and five
// lifecycle Transitions are folded in automatically at Build.
func (b *ModelBuilder) AddOperation(op *Operation) *ModelBuilder {
	b.operations = append(b.operations, op)
	return b
}

// AddNamedPredicate declares a derived boolean predicate; its Variable
// is folded in automatically at Build.
func (b *ModelBuilder) AddNamedPredicate(np NamedPredicate) *ModelBuilder {
	b.namedPredicates = append(b.namedPredicates, np)
	return b
}

// AddInvariant ANDs another safety predicate into the model's global
// Invariant.
func (b *ModelBuilder) AddInvariant(p *Predicate) *ModelBuilder {
	b.invariants = append(b.invariants, p)
	return b
}

// Build validates and assembles the accumulated declarations into a
// TransitionSystemModel. It fails if any two Variables (including those
// derived from Operations/NamedPredicates) declare the same Path, or if
// any Transition's guard references, or one of its actions assigns, a
// Path with no declared Variable.
func (b *ModelBuilder) Build() (*TransitionSystemModel, error) {
	m := &TransitionSystemModel{
		operations:      append([]*Operation(nil), b.operations...),
		namedPredicates: append([]NamedPredicate(nil), b.namedPredicates...),
	}

	seen := map[string]Path{}
	addVar := func(v *Variable) error {
		ks := v.Path().String()
		if _, dup := seen[ks]; dup {
			return fmt.Errorf("sprt: model builder: duplicate variable path %q", ks)
		}
		seen[ks] = v.Path()
		m.variables = append(m.variables, v)
		return nil
	}

	for _, v := range b.variables {
		if err := addVar(v); err != nil {
			return nil, err
		}
	}
	for _, op := range b.operations {
		v, err := op.Variable()
		if err != nil {
			return nil, err
		}
		if err := addVar(v); err != nil {
			return nil, err
		}
		m.transitions = append(m.transitions, op.Transitions()...)
	}
	for _, np := range b.namedPredicates {
		v, err := np.Variable()
		if err != nil {
			return nil, err
		}
		if err := addVar(v); err != nil {
			return nil, err
		}
	}
	m.transitions = append(m.transitions, b.transitions...)

	known := make([]Path, 0, len(seen))
	for _, p := range seen {
		known = append(known, p)
	}
	for _, t := range m.transitions {
		for _, ref := range t.Guard().Support() {
			if !containsPath(known, ref) {
				return nil, fmt.Errorf("sprt: model builder: transition %q guard references undeclared path %q", t.Path(), ref)
			}
		}
		for _, a := range t.Actions() {
			if !containsPath(known, a.Target()) {
				return nil, fmt.Errorf("sprt: model builder: transition %q assigns undeclared path %q", t.Path(), a.Target())
			}
		}
	}

	inv := True()
	if len(b.invariants) > 0 {
		inv = And(b.invariants...)
	}
	m.invariant = inv

	return m, nil
}

func containsPath(paths []Path, p Path) bool {
	for _, c := range paths {
		if c.Equal(p) {
			return true
		}
	}
	return false
}
