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
	"fmt"
	"strings"
	"time"
)

// PredKind discriminates the variant of a Predicate node.
type PredKind int

const (
	PTrue PredKind = iota
	PFalse
	PAnd
	POr
	// PXor is satisfied when exactly one of its Sub predicates holds.
	PXor
	PNot
	PEq
	PNeq
	// PMember holds when the Left PredicateValue's resolved Value equals
	// any member of Set.
	PMember
	// PTon ("timer-on") holds once Sub[0] has evaluated true
	// continuously for at least Duration, as tracked by the timer
	// variable at TimerPath.
	PTon
	// PToff ("timer-off") is the dual of PTon for continuously-false.
	PToff
)

// PredicateValue is one side of an EQ/NEQ/MEMBER comparison: either a
// literal Value or a reference to the Value currently held at a Path.
// A path-referencing operand carries its own cached StatePath handle
// (§3 "State path (cached handle)"), so repeated Eval calls against the
// same owning Ticker's State generation resolve in O(1) rather than
// re-hashing the path string on every lookup.
type PredicateValue struct {
	lit    Value
	path   Path
	isPath bool
	handle *StatePath
}

// Lit wraps a literal Value.
func Lit(v Value) PredicateValue { return PredicateValue{lit: v} }

// PathRef wraps a reference to a Path's current Value, with its own
// cached state-path handle.
func PathRef(p Path) PredicateValue { return PredicateValue{path: p, isPath: true, handle: NewStatePath(p)} }

func (pv PredicateValue) resolve(s *State) (Value, error) {
	if !pv.isPath {
		return pv.lit, nil
	}
	if pv.handle != nil {
		v, ok := pv.handle.Resolve(s)
		if !ok {
			return Value{}, &PathError{Op: "resolve", Path: pv.path, Detail: "not present in state"}
		}
		return v, nil
	}
	v, ok := s.Get(pv.path)
	if !ok {
		return Value{}, &PathError{Op: "resolve", Path: pv.path, Detail: "not present in state"}
	}
	return v, nil
}

// refreshHandle eagerly rebinds pv's cached handle (if any) against s,
// the per-operand step of update_state_paths (§4.4).
func (pv PredicateValue) refreshHandle(s *State) {
	if pv.isPath && pv.handle != nil {
		pv.handle.Resolve(s)
	}
}

func (pv PredicateValue) support() []Path {
	if pv.isPath {
		return []Path{pv.path}
	}
	return nil
}

// IsPath reports whether pv references a Path rather than holding a
// literal Value.
func (pv PredicateValue) IsPath() bool { return pv.isPath }

// Path returns the referenced Path; only meaningful when IsPath is true.
func (pv PredicateValue) Path() Path { return pv.path }

// Literal returns the literal Value; only meaningful when IsPath is
// false.
func (pv PredicateValue) Literal() Value { return pv.lit }

func (pv PredicateValue) String() string {
	if pv.isPath {
		return "p:" + pv.path.String()
	}
	return pv.lit.String()
}

// Predicate is a boolean-valued expression over State, built from
// AND/OR/XOR/NOT connectives and EQ/NEQ/MEMBER/TON/TOFF leaves. Its
// tree shape is immutable, but path-referencing operands carry a
// mutable cached state-path handle (see PredicateValue), so a Predicate
// must only be Eval'd by the single goroutine that owns the Ticker
// driving it — the same confinement Ticker itself documents.
type Predicate struct {
	kind      PredKind
	sub       []*Predicate
	left      PredicateValue
	right     PredicateValue
	set       []Value
	timerPath Path
	duration  time.Duration
}

// True returns the always-satisfied predicate.
func True() *Predicate { return &Predicate{kind: PTrue} }

// False returns the never-satisfied predicate.
func False() *Predicate { return &Predicate{kind: PFalse} }

// And returns a predicate satisfied when every sub predicate holds. An
// empty argument list is the identity for AND and returns True.
func And(subs ...*Predicate) *Predicate {
	if len(subs) == 0 {
		return True()
	}
	return &Predicate{kind: PAnd, sub: subs}
}

// Or returns a predicate satisfied when any sub predicate holds. An
// empty argument list is the identity for OR and returns False.
func Or(subs ...*Predicate) *Predicate {
	if len(subs) == 0 {
		return False()
	}
	return &Predicate{kind: POr, sub: subs}
}

// Xor returns a predicate satisfied when exactly one sub predicate
// holds.
func Xor(subs ...*Predicate) *Predicate {
	return &Predicate{kind: PXor, sub: subs}
}

// Not returns the negation of p.
func Not(p *Predicate) *Predicate {
	return &Predicate{kind: PNot, sub: []*Predicate{p}}
}

// Eq returns a predicate satisfied when left and right resolve to equal
// Values.
func Eq(left, right PredicateValue) *Predicate {
	return &Predicate{kind: PEq, left: left, right: right}
}

// Neq returns the negation of Eq.
func Neq(left, right PredicateValue) *Predicate {
	return &Predicate{kind: PNeq, left: left, right: right}
}

// Member returns a predicate satisfied when left resolves to a Value
// equal to any element of set.
func Member(left PredicateValue, set ...Value) *Predicate {
	return &Predicate{kind: PMember, left: left, set: set}
}

// Ton returns a timer-on predicate: satisfied once cond has held true
// continuously for at least d, with the timer's start time tracked at
// timerPath in State (a Time-typed Variable the model must declare).
func Ton(cond *Predicate, timerPath Path, d time.Duration) *Predicate {
	return &Predicate{kind: PTon, sub: []*Predicate{cond}, timerPath: timerPath, duration: d}
}

// Toff returns a timer-off predicate: the dual of Ton for continuously
// false.
func Toff(cond *Predicate, timerPath Path, d time.Duration) *Predicate {
	return &Predicate{kind: PToff, sub: []*Predicate{cond}, timerPath: timerPath, duration: d}
}

// Eval evaluates p against state at instant now. now is required for
// PTon/PToff; it is ignored by every other kind.
func (p *Predicate) Eval(state *State, now time.Time) (bool, error) {
	switch p.kind {
	case PTrue:
		return true, nil
	case PFalse:
		return false, nil
	case PAnd:
		for _, s := range p.sub {
			ok, err := s.Eval(state, now)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case POr:
		for _, s := range p.sub {
			ok, err := s.Eval(state, now)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case PXor:
		count := 0
		for _, s := range p.sub {
			ok, err := s.Eval(state, now)
			if err != nil {
				return false, err
			}
			if ok {
				count++
			}
		}
		return count == 1, nil
	case PNot:
		ok, err := p.sub[0].Eval(state, now)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case PEq:
		lv, err := p.left.resolve(state)
		if err != nil {
			return false, err
		}
		rv, err := p.right.resolve(state)
		if err != nil {
			return false, err
		}
		return lv.Equal(rv), nil
	case PNeq:
		lv, err := p.left.resolve(state)
		if err != nil {
			return false, err
		}
		rv, err := p.right.resolve(state)
		if err != nil {
			return false, err
		}
		return !lv.Equal(rv), nil
	case PMember:
		lv, err := p.left.resolve(state)
		if err != nil {
			return false, err
		}
		for _, m := range p.set {
			if lv.Equal(m) {
				return true, nil
			}
		}
		return false, nil
	case PTon:
		return p.evalTimer(state, now, true)
	case PToff:
		return p.evalTimer(state, now, false)
	default:
		return false, fmt.Errorf("sprt: unknown predicate kind %d", p.kind)
	}
}

// evalTimer reads the timer's recorded start instant from timerPath
// (Unknown/absent means the condition has not been continuously true
// since any known time, so the timer has not fired) and compares it
// against now. wantTrue selects PTon (condition must hold) vs PToff
// (condition must not hold).
func (p *Predicate) evalTimer(state *State, now time.Time, wantTrue bool) (bool, error) {
	cond, err := p.sub[0].Eval(state, now)
	if err != nil {
		return false, err
	}
	if cond != wantTrue {
		return false, nil
	}
	startVal, ok := state.Get(p.timerPath)
	if !ok {
		return false, nil
	}
	start, ok := startVal.AsTime()
	if !ok {
		return false, nil
	}
	return now.Sub(start) >= p.duration, nil
}

// Kind reports which PredKind variant p is, for callers (notably the
// planner's BMC encoder) that must walk the tree structurally rather
// than through Eval.
func (p *Predicate) Kind() PredKind { return p.kind }

// Sub returns p's child predicates: every operand of AND/OR/XOR, or the
// single operand of NOT/TON/TOFF. Empty for leaf kinds.
func (p *Predicate) Sub() []*Predicate { return p.sub }

// Left returns the left-hand PredicateValue of an EQ/NEQ/MEMBER leaf.
func (p *Predicate) Left() PredicateValue { return p.left }

// Right returns the right-hand PredicateValue of an EQ/NEQ leaf.
func (p *Predicate) Right() PredicateValue { return p.right }

// Set returns the candidate Values of a MEMBER leaf.
func (p *Predicate) Set() []Value { return p.set }

// TimerPath returns the Path a TON/TOFF leaf reads its start instant
// from.
func (p *Predicate) TimerPath() Path { return p.timerPath }

// Duration returns the threshold duration of a TON/TOFF leaf.
func (p *Predicate) Duration() time.Duration { return p.duration }

// Support returns the deduplicated, sorted set of Paths the predicate
// reads: every PathRef operand plus every timer path.
func (p *Predicate) Support() []Path {
	seen := map[string]Path{}
	p.collectSupport(seen)
	out := make([]Path, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sortPaths(out)
	return out
}

func (p *Predicate) collectSupport(seen map[string]Path) {
	switch p.kind {
	case PAnd, POr, PXor:
		for _, s := range p.sub {
			s.collectSupport(seen)
		}
	case PNot:
		p.sub[0].collectSupport(seen)
	case PEq, PNeq:
		for _, ref := range append(p.left.support(), p.right.support()...) {
			seen[ref.String()] = ref
		}
	case PMember:
		for _, ref := range p.left.support() {
			seen[ref.String()] = ref
		}
	case PTon, PToff:
		p.sub[0].collectSupport(seen)
		seen[p.timerPath.String()] = p.timerPath
	}
}

func sortPaths(ps []Path) {
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && ps[j].Compare(ps[j-1]) < 0; j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
}

// UpdateStatePaths eagerly rebinds every cached state-path handle
// reachable from p against s: the update_state_paths rebind pass (§4.4),
// run after any structural change to State (a new path added) so that
// the next Eval resolves in O(1) rather than lazily detecting and
// repairing a stale handle mid-evaluation.
func (p *Predicate) UpdateStatePaths(s *State) {
	switch p.kind {
	case PAnd, POr, PXor:
		for _, sub := range p.sub {
			sub.UpdateStatePaths(s)
		}
	case PNot, PTon, PToff:
		p.sub[0].UpdateStatePaths(s)
	}
	p.left.refreshHandle(s)
	p.right.refreshHandle(s)
}

// KeepOnly returns a copy of p restricted to the given keep set, per
// §4.1's vanish/reduce algorithm: a leaf term whose support is not
// entirely contained in keep vanishes outright (rather than being
// replaced by True, which would silently change OR/XOR's meaning); an
// AND/OR/XOR left with no surviving children itself vanishes to its
// connective's identity (True for AND, False for OR/XOR); and a
// connective left with exactly one surviving child is reduced
// (unwrapped) to that child. It is used to project a model-wide
// invariant or goal predicate down to the paths a particular encoder
// pass or filtered State actually carries.
func (p *Predicate) KeepOnly(keep []Path) *Predicate {
	if kept, ok := p.keepOnly(keep); ok {
		return kept
	}
	switch p.kind {
	case POr, PXor:
		return False()
	default:
		return True()
	}
}

// keepOnly is the recursive step of KeepOnly; ok is false when p
// vanished entirely, in which case the returned Predicate is nil and
// the caller decides what (if anything) replaces it.
func (p *Predicate) keepOnly(keep []Path) (*Predicate, bool) {
	switch p.kind {
	case PTrue, PFalse:
		return p, true
	case PAnd, POr, PXor:
		var subs []*Predicate
		for _, s := range p.sub {
			if kept, ok := s.keepOnly(keep); ok {
				subs = append(subs, kept)
			}
		}
		if len(subs) == 0 {
			return nil, false
		}
		if len(subs) == 1 {
			return subs[0], true
		}
		switch p.kind {
		case PAnd:
			return And(subs...), true
		case POr:
			return Or(subs...), true
		default:
			return Xor(subs...), true
		}
	case PNot:
		kept, ok := p.sub[0].keepOnly(keep)
		if !ok {
			return nil, false
		}
		return Not(kept), true
	case PEq, PNeq, PMember, PTon, PToff:
		for _, ref := range p.Support() {
			if !ref.IsChildOfAny(keep) {
				return nil, false
			}
		}
		return p, true
	default:
		return p, true
	}
}

// String renders p in the "p:a.b && p:a.c -> p:k.l"-style surface
// syntax accepted by ParsePredicate, except TON and TOFF, which render
// as TON(...)/TOFF(...) forms that ParsePredicate does not accept.
func (p *Predicate) String() string {
	switch p.kind {
	case PTrue:
		return "TRUE"
	case PFalse:
		return "FALSE"
	case PNot:
		return "!" + parenIfNeeded(p.sub[0])
	case PAnd:
		return joinSub(p.sub, " && ")
	case POr:
		return joinSub(p.sub, " || ")
	case PXor:
		return joinSub(p.sub, " ^ ")
	case PEq:
		return p.left.String() + " == " + p.right.String()
	case PNeq:
		return p.left.String() + " != " + p.right.String()
	case PMember:
		parts := make([]string, len(p.set))
		for i, v := range p.set {
			parts[i] = v.String()
		}
		return p.left.String() + " in [" + strings.Join(parts, ", ") + "]"
	case PTon:
		return fmt.Sprintf("TON(%s, %s)", p.sub[0].String(), p.duration)
	case PToff:
		return fmt.Sprintf("TOFF(%s, %s)", p.sub[0].String(), p.duration)
	default:
		return "?"
	}
}

func joinSub(subs []*Predicate, op string) string {
	parts := make([]string, len(subs))
	for i, s := range subs {
		parts[i] = parenIfNeeded(s)
	}
	return strings.Join(parts, op)
}

func parenIfNeeded(p *Predicate) string {
	switch p.kind {
	case PAnd, POr, PXor:
		return "(" + p.String() + ")"
	default:
		return p.String()
	}
}
