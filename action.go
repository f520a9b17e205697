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

import (
	"math/rand"
	"time"
)

// ComputeKind discriminates the variant of a Compute expression.
type ComputeKind int

const (
	// CLit assigns a fixed literal Value.
	CLit ComputeKind = iota
	// CPath copies the current Value held at another Path.
	CPath
	// CPredicateBool assigns the bool result of evaluating a Predicate.
	CPredicateBool
	// CConditional assigns the Compute of the first Case whose guard
	// evaluates true, or Default if none do.
	CConditional
	// CRandomInt assigns a uniformly chosen int32 in [Min, Max].
	CRandomInt
	// CNow assigns the current instant.
	CNow
	// CAny is nondeterministic: the runtime cannot evaluate it directly,
	// only the planner may choose a concrete value for it when
	// exploring reachable states.
	CAny
)

// ConditionalCase is one guarded branch of a CConditional Compute.
type ConditionalCase struct {
	If   *Predicate
	Then Compute
}

// Compute describes how an Action derives the next Value for its
// target Path.
type Compute struct {
	kind    ComputeKind
	lit     Value
	path    Path
	pred    *Predicate
	cases   []ConditionalCase
	deflt   *Compute
	min     int32
	max     int32
	anyType ValueType
	anySet  []Value
}

// ComputeLit returns a literal-valued Compute.
func ComputeLit(v Value) Compute { return Compute{kind: CLit, lit: v} }

// ComputePath returns a Compute that copies another Path's current
// Value.
func ComputePath(p Path) Compute { return Compute{kind: CPath, path: p} }

// ComputePredicate returns a Compute that assigns a Predicate's bool
// result.
func ComputePredicate(p *Predicate) Compute { return Compute{kind: CPredicateBool, pred: p} }

// ComputeConditional returns a Compute that evaluates cases in order,
// assigning the first whose guard holds, falling back to deflt.
func ComputeConditional(cases []ConditionalCase, deflt Compute) Compute {
	return Compute{kind: CConditional, cases: cases, deflt: &deflt}
}

// ComputeRandomInt returns a Compute assigning a uniform random int32 in
// [min, max].
func ComputeRandomInt(min, max int32) Compute { return Compute{kind: CRandomInt, min: min, max: max} }

// ComputeNow returns a Compute assigning the current instant.
func ComputeNow() Compute { return Compute{kind: CNow} }

// ComputeAny returns a nondeterministic Compute over the closed set of
// Values a planner may choose from.
func ComputeAny(set ...Value) Compute { return Compute{kind: CAny, anySet: set} }

// IsNondeterministic reports whether this Compute (or, for
// CConditional, any branch it can reach) requires planner choice rather
// than direct evaluation.
func (c Compute) IsNondeterministic() bool {
	switch c.kind {
	case CAny:
		return true
	case CConditional:
		for _, cs := range c.cases {
			if cs.Then.IsNondeterministic() {
				return true
			}
		}
		return c.deflt != nil && c.deflt.IsNondeterministic()
	default:
		return false
	}
}

// Eval evaluates c against state at instant now. It fails with a
// ComputeError if c is (or reduces to) CAny: the runtime ticker cannot
// resolve a nondeterministic choice, only the planner's encoder does,
// by emitting it as a free IVAR.
func (c Compute) Eval(state *State, now time.Time) (Value, error) {
	switch c.kind {
	case CLit:
		return c.lit, nil
	case CPath:
		v, ok := state.Get(c.path)
		if !ok {
			return Value{}, &ComputeError{Path: c.path, Reason: "referenced path not present in state"}
		}
		return v, nil
	case CPredicateBool:
		b, err := c.pred.Eval(state, now)
		if err != nil {
			return Value{}, err
		}
		return NewBool(b), nil
	case CConditional:
		for _, cs := range c.cases {
			ok, err := cs.If.Eval(state, now)
			if err != nil {
				return Value{}, err
			}
			if ok {
				return cs.Then.Eval(state, now)
			}
		}
		if c.deflt != nil {
			return c.deflt.Eval(state, now)
		}
		return Value{}, &ComputeError{Reason: "no conditional case matched and no default given"}
	case CRandomInt:
		if c.max < c.min {
			return Value{}, &ComputeError{Reason: "random_int: max < min"}
		}
		n := int32(rand.Int63n(int64(c.max)-int64(c.min)+1)) + c.min
		return NewInt32(n), nil
	case CNow:
		return NewTime(now), nil
	case CAny:
		return Value{}, &ComputeError{Reason: "cannot evaluate a nondeterministic Compute outside the planner"}
	default:
		return Value{}, &ComputeError{Reason: "unknown compute kind"}
	}
}

// Kind reports which ComputeKind variant c is, for callers (notably the
// planner's BMC encoder) that must walk the expression structurally.
func (c Compute) Kind() ComputeKind { return c.kind }

// Literal returns the literal Value of a CLit Compute.
func (c Compute) Literal() Value { return c.lit }

// Path returns the source Path of a CPath Compute.
func (c Compute) Path() Path { return c.path }

// PredicateExpr returns the Predicate of a CPredicateBool Compute.
func (c Compute) PredicateExpr() *Predicate { return c.pred }

// Cases returns the guarded branches of a CConditional Compute.
func (c Compute) Cases() []ConditionalCase { return c.cases }

// Default returns the fallback branch of a CConditional Compute, and
// whether one was set.
func (c Compute) Default() (Compute, bool) {
	if c.deflt == nil {
		return Compute{}, false
	}
	return *c.deflt, true
}

// RandomRange returns the inclusive [min, max] bounds of a CRandomInt
// Compute.
func (c Compute) RandomRange() (min, max int32) { return c.min, c.max }

// Domain returns the closed set of Values a CAny Compute ranges over,
// and whether c is in fact a CAny. Used by the encoder to emit the
// corresponding IVAR's type.
func (c Compute) Domain() ([]Value, bool) {
	if c.kind != CAny {
		return nil, false
	}
	out := make([]Value, len(c.anySet))
	copy(out, c.anySet)
	return out, true
}

// Action assigns the Value produced by a Compute to a target Path.
// Transitions bundle one or more Actions to apply atomically when they
// fire.
type Action struct {
	target  Path
	compute Compute
}

// NewAction pairs a target Path with the Compute that derives its next
// Value.
func NewAction(target Path, compute Compute) Action {
	return Action{target: target, compute: compute}
}

// Target returns the Path the action assigns.
func (a Action) Target() Path { return a.target }

// Compute returns the action's Compute expression.
func (a Action) Compute() Compute { return a.compute }

// Eval evaluates the action's Compute against state at instant now.
func (a Action) Eval(state *State, now time.Time) (Value, error) {
	return a.compute.Eval(state, now)
}

// IsNondeterministic reports whether the action's Compute requires
// planner choice.
func (a Action) IsNondeterministic() bool { return a.compute.IsNondeterministic() }
