package sprt

import (
	"testing"
	"time"
)

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"bool_eq", NewBool(true), NewBool(true), true},
		{"bool_neq", NewBool(true), NewBool(false), false},
		{"int32_eq", NewInt32(3), NewInt32(3), true},
		{"int32_neq", NewInt32(3), NewInt32(4), false},
		{"different_types", NewInt32(3), NewString("3"), false},
		{"unknown_eq", NewUnknown(), NewUnknown(), true},
		{"path_eq", NewPathValue(PathFrom("a", "b")), NewPathValue(PathFrom("a", "b")), true},
		{"path_neq", NewPathValue(PathFrom("a", "b")), NewPathValue(PathFrom("a", "c")), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Equal(c.b); got != c.want {
				t.Errorf("Equal() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestValueArrayEqual(t *testing.T) {
	a := NewArray([]Value{NewInt32(1), NewInt32(2)})
	b := NewArray([]Value{NewInt32(1), NewInt32(2)})
	c := NewArray([]Value{NewInt32(1), NewInt32(3)})
	if !a.Equal(b) {
		t.Errorf("expected equal arrays to compare equal")
	}
	if a.Equal(c) {
		t.Errorf("expected differing arrays to compare unequal")
	}
}

func TestValueAsAccessors(t *testing.T) {
	if _, ok := NewBool(true).AsInt32(); ok {
		t.Errorf("AsInt32 should fail on a Bool value")
	}
	if v, ok := NewInt32(7).AsInt32(); !ok || v != 7 {
		t.Errorf("AsInt32() = (%d, %v), want (7, true)", v, ok)
	}
	now := time.Now()
	if v, ok := NewTime(now).AsTime(); !ok || !v.Equal(now) {
		t.Errorf("AsTime() round trip failed")
	}
}

func TestSortValues(t *testing.T) {
	vs := []Value{NewInt32(3), NewInt32(1), NewInt32(2)}
	SortValues(vs)
	for i := 0; i < len(vs)-1; i++ {
		if !vs[i].Less(vs[i+1]) {
			t.Fatalf("values not sorted ascending: %v", vs)
		}
	}
}

func TestValueString(t *testing.T) {
	if got, want := NewBool(true).String(), "true"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := NewUnknown().String(), "UNKNOWN"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
