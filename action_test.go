package sprt

import (
	"testing"
	"time"
)

func TestActionEvalLiteralAndPath(t *testing.T) {
	now := time.Now()
	src := PathFrom("src")
	dst := PathFrom("dst")
	s := NewState(map[Path]Value{src: NewInt32(42)})

	litAction := NewAction(dst, ComputeLit(NewInt32(7)))
	v, err := litAction.Eval(s, now)
	if err != nil || !v.Equal(NewInt32(7)) {
		t.Fatalf("literal action: got (%v, %v), want (7, nil)", v, err)
	}

	pathAction := NewAction(dst, ComputePath(src))
	v, err = pathAction.Eval(s, now)
	if err != nil || !v.Equal(NewInt32(42)) {
		t.Fatalf("path action: got (%v, %v), want (42, nil)", v, err)
	}

	missing := NewAction(dst, ComputePath(PathFrom("nope")))
	if _, err := missing.Eval(s, now); err == nil {
		t.Fatalf("expected an error referencing an unknown path")
	}
}

func TestActionPredicateBool(t *testing.T) {
	now := time.Now()
	p := PathFrom("a")
	s := NewState(map[Path]Value{p: NewInt32(5)})
	a := NewAction(PathFrom("flag"), ComputePredicate(Eq(PathRef(p), Lit(NewInt32(5)))))
	v, err := a.Eval(s, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, ok := v.AsBool(); !ok || !b {
		t.Fatalf("predicate action: got %v, want true", v)
	}
}

func TestActionConditional(t *testing.T) {
	now := time.Now()
	mode := PathFrom("mode")
	s := NewState(map[Path]Value{mode: NewString("fast")})

	compute := ComputeConditional([]ConditionalCase{
		{If: Eq(PathRef(mode), Lit(NewString("fast"))), Then: ComputeLit(NewInt32(100))},
		{If: Eq(PathRef(mode), Lit(NewString("slow"))), Then: ComputeLit(NewInt32(10))},
	}, ComputeLit(NewInt32(0)))

	a := NewAction(PathFrom("speed"), compute)
	v, err := a.Eval(s, now)
	if err != nil || !v.Equal(NewInt32(100)) {
		t.Fatalf("conditional action (first match): got (%v, %v), want (100, nil)", v, err)
	}

	s2, err := s.WithValue(mode, NewString("other"))
	if err != nil {
		t.Fatalf("WithValue: %v", err)
	}
	v, err = a.Eval(s2, now)
	if err != nil || !v.Equal(NewInt32(0)) {
		t.Fatalf("conditional action (default): got (%v, %v), want (0, nil)", v, err)
	}
}

func TestActionRandomIntBounds(t *testing.T) {
	now := time.Now()
	s := NewState(nil)
	a := NewAction(PathFrom("n"), ComputeRandomInt(5, 5))
	v, err := a.Eval(s, now)
	if err != nil || !v.Equal(NewInt32(5)) {
		t.Fatalf("random action with a single-value range: got (%v, %v), want (5, nil)", v, err)
	}
}

func TestActionNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	a := NewAction(PathFrom("t"), ComputeNow())
	v, err := a.Eval(NewState(nil), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := v.AsTime()
	if !ok || !got.Equal(now) {
		t.Fatalf("ComputeNow: got %v, want %v", got, now)
	}
}

func TestActionAnyIsUnevaluable(t *testing.T) {
	a := NewAction(PathFrom("choice"), ComputeAny(NewInt32(1), NewInt32(2)))
	if !a.IsNondeterministic() {
		t.Fatalf("ComputeAny action should report IsNondeterministic")
	}
	if _, err := a.Eval(NewState(nil), time.Now()); err == nil {
		t.Fatalf("expected an error evaluating a nondeterministic Compute outside the planner")
	}
	domain, ok := a.Compute().Domain()
	if !ok || len(domain) != 2 {
		t.Fatalf("Domain() = (%v, %v), want 2 values", domain, ok)
	}
}
