package sprt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// snapshot renders s as a plain map suitable for cmp.Diff, since State
// itself carries unexported bookkeeping (index, identity token) that
// isn't part of its observable content.
func snapshot(s *State) map[string]Value {
	out := make(map[string]Value, s.Len())
	for _, p := range s.Paths() {
		v, _ := s.Get(p)
		out[p.String()] = v
	}
	return out
}

func TestStateGetAndWithValue(t *testing.T) {
	p := PathFrom("a", "b")
	s := NewState(map[Path]Value{p: NewInt32(1)})
	if v, ok := s.Get(p); !ok || !v.Equal(NewInt32(1)) {
		t.Fatalf("Get() = (%v, %v), want (1, true)", v, ok)
	}
	next, err := s.WithValue(p, NewInt32(2))
	if err != nil {
		t.Fatalf("WithValue: %v", err)
	}
	if next.ID() != s.ID() {
		t.Errorf("WithValue to an existing path must keep the identity token (I3)")
	}
	if v, _ := s.Get(p); !v.Equal(NewInt32(1)) {
		t.Errorf("original state mutated; Get() = %v, want 1", v)
	}
	if v, _ := next.Get(p); !v.Equal(NewInt32(2)) {
		t.Errorf("new state did not take the update; Get() = %v, want 2", v)
	}

	grown, err := next.WithValue(PathFrom("a", "c"), NewInt32(3))
	if err != nil {
		t.Fatalf("WithValue: %v", err)
	}
	if grown.ID() == next.ID() {
		t.Errorf("WithValue that adds a new path must mint a new identity token (I3)")
	}
}

func TestStateWithValuesContentMatchesExpected(t *testing.T) {
	a, b := PathFrom("robot", "pos"), PathFrom("door", "open")
	s := NewState(map[Path]Value{a: NewInt32(0), b: NewBool(false)})
	next, err := s.WithValues(map[Path]Value{a: NewInt32(1)})
	if err != nil {
		t.Fatalf("WithValues: %v", err)
	}
	want := map[string]Value{a.String(): NewInt32(1), b.String(): NewBool(false)}
	if diff := cmp.Diff(want, snapshot(next)); diff != "" {
		t.Errorf("State content mismatch (-want +got):\n%s", diff)
	}
}

func TestStateWithValuesAtomic(t *testing.T) {
	a, b := PathFrom("a"), PathFrom("b")
	s := NewState(map[Path]Value{a: NewInt32(0), b: NewInt32(0)})
	next, err := s.WithValues(map[Path]Value{a: NewInt32(1), b: NewInt32(2)})
	if err != nil {
		t.Fatalf("WithValues: %v", err)
	}
	if next.ID() != s.ID() {
		t.Errorf("WithValues over an unchanged key-set must keep the identity token (I3)")
	}
	va, _ := next.Get(a)
	vb, _ := next.Get(b)
	if !va.Equal(NewInt32(1)) || !vb.Equal(NewInt32(2)) {
		t.Fatalf("WithValues did not apply both assignments: a=%v b=%v", va, vb)
	}
}

func TestStateEqualIgnoresIdentity(t *testing.T) {
	p := PathFrom("a")
	s1 := NewState(map[Path]Value{p: NewInt32(1)})
	s2 := NewState(map[Path]Value{p: NewInt32(1)})
	if s1.ID() == s2.ID() {
		t.Fatalf("two independently constructed states should not share an identity token")
	}
	if !s1.Equal(s2) {
		t.Fatalf("states with identical content should compare Equal regardless of identity")
	}
}

func TestStateFilterByPaths(t *testing.T) {
	s := NewState(map[Path]Value{
		PathFrom("robot", "pos"):   NewInt32(1),
		PathFrom("robot", "speed"): NewInt32(2),
		PathFrom("door", "open"):   NewBool(true),
	})
	filtered := s.FilterByPaths([]Path{PathFrom("robot")})
	if len(filtered) != 2 {
		t.Fatalf("FilterByPaths: got %d entries, want 2", len(filtered))
	}
	if _, ok := filtered[PathFrom("door", "open")]; ok {
		t.Fatalf("FilterByPaths leaked an unrelated path")
	}
}

func TestStateExtendCompatible(t *testing.T) {
	s := NewState(nil)
	p := PathFrom("sensor", "temp")
	folded, incompatible := s.Extend(map[Path]Value{p: NewInt32(10)}, nil)
	if len(incompatible) != 0 {
		t.Fatalf("expected no incompatibilities on first fold, got %v", incompatible)
	}
	folded2, incompatible2 := s.Extend(map[Path]Value{p: NewInt32(10)}, folded)
	if len(incompatible2) != 0 {
		t.Fatalf("agreeing repeat update should fold cleanly, got incompatible %v", incompatible2)
	}
	if v := folded2[p]; !v.Equal(NewInt32(10)) {
		t.Fatalf("folded value = %v, want 10", v)
	}
}

func TestStateExtendIncompatible(t *testing.T) {
	s := NewState(nil)
	p := PathFrom("sensor", "temp")
	folded, _ := s.Extend(map[Path]Value{p: NewInt32(10)}, nil)
	_, incompatible := s.Extend(map[Path]Value{p: NewInt32(20)}, folded)
	if v, ok := incompatible[p]; !ok || !v.Equal(NewInt32(20)) {
		t.Fatalf("conflicting update should be reported incompatible, got %v", incompatible)
	}
}

func TestStateExtendIgnoresTimestampLeaf(t *testing.T) {
	s := NewState(nil)
	p := PathFrom("sensor", "timestamp")
	folded, _ := s.Extend(map[Path]Value{p: NewInt32(1)}, nil)
	_, incompatible := s.Extend(map[Path]Value{p: NewInt32(2)}, folded)
	if len(incompatible) != 0 {
		t.Fatalf("timestamp leaf disagreement should not be treated as incompatible, got %v", incompatible)
	}
}

func TestStatePathResolveAndStaleness(t *testing.T) {
	p := PathFrom("a", "b")
	s1 := NewState(map[Path]Value{p: NewInt32(1)})
	handle := NewStatePath(p)

	v, ok := handle.Resolve(s1)
	if !ok || !v.Equal(NewInt32(1)) {
		t.Fatalf("Resolve(s1) = (%v, %v), want (1, true)", v, ok)
	}

	// A value-only write keeps the identity token (I3), so force a new
	// generation by also adding a path, to exercise the handle's
	// staleness detection against a genuinely different token.
	s2, err := s1.WithValues(map[Path]Value{p: NewInt32(2), PathFrom("a", "c"): NewInt32(9)})
	if err != nil {
		t.Fatalf("WithValues: %v", err)
	}
	v, ok = handle.Resolve(s2)
	if !ok || !v.Equal(NewInt32(2)) {
		t.Fatalf("Resolve(s2) after staleness = (%v, %v), want (2, true)", v, ok)
	}

	// Revisiting the original, now-stale generation should still resolve
	// correctly by falling back to a fresh lookup.
	v, ok = handle.Resolve(s1)
	if !ok || !v.Equal(NewInt32(1)) {
		t.Fatalf("Resolve(s1) after visiting s2 = (%v, %v), want (1, true)", v, ok)
	}
}
