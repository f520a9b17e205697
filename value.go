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
	"sort"
	"time"
)

// ValueType tags the variant held by a Value.
type ValueType int

const (
	// Unknown marks a Value with no concrete content, distinct from any
	// zero value of the other variants.
	Unknown ValueType = iota
	Bool
	Int32
	Float32
	String
	Time
	PathValue
	Array
)

func (t ValueType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case String:
		return "string"
	case Time:
		return "time"
	case PathValue:
		return "path"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the concrete domains a Variable can take:
// bool, int32, float32, string, time.Time, Path, or a homogeneous array
// of Values, plus an explicit Unknown state. Value is comparable via
// Equal and orderable via Less so it can sit in sorted sets.
type Value struct {
	typ  ValueType
	b    bool
	i    int32
	f    float32
	s    string
	t    time.Time
	p    Path
	arr  []Value
}

// NewUnknown returns the Unknown value.
func NewUnknown() Value { return Value{typ: Unknown} }

// NewBool wraps a bool.
func NewBool(b bool) Value { return Value{typ: Bool, b: b} }

// NewInt32 wraps an int32.
func NewInt32(i int32) Value { return Value{typ: Int32, i: i} }

// NewFloat32 wraps a float32.
func NewFloat32(f float32) Value { return Value{typ: Float32, f: f} }

// NewString wraps a string.
func NewString(s string) Value { return Value{typ: String, s: s} }

// NewTime wraps a time.Time.
func NewTime(t time.Time) Value { return Value{typ: Time, t: t} }

// NewPathValue wraps a Path as a first-class value, used for enum-like
// "mode" variables whose domain is a finite set of path tokens.
func NewPathValue(p Path) Value { return Value{typ: PathValue, p: p} }

// NewArray wraps a homogeneous slice of Values. The slice is copied.
func NewArray(vs []Value) Value {
	out := make([]Value, len(vs))
	copy(out, vs)
	return Value{typ: Array, arr: out}
}

// Type reports the variant held.
func (v Value) Type() ValueType { return v.typ }

// IsUnknown reports whether v is the Unknown variant.
func (v Value) IsUnknown() bool { return v.typ == Unknown }

// AsBool returns the bool payload and whether v held a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.typ == Bool }

// AsInt32 returns the int32 payload and whether v held an Int32.
func (v Value) AsInt32() (int32, bool) { return v.i, v.typ == Int32 }

// AsFloat32 returns the float32 payload and whether v held a Float32.
func (v Value) AsFloat32() (float32, bool) { return v.f, v.typ == Float32 }

// AsString returns the string payload and whether v held a String.
func (v Value) AsString() (string, bool) { return v.s, v.typ == String }

// AsTime returns the time.Time payload and whether v held a Time.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.typ == Time }

// AsPath returns the Path payload and whether v held a PathValue.
func (v Value) AsPath() (Path, bool) { return v.p, v.typ == PathValue }

// AsArray returns a copy of the array payload and whether v held an
// Array.
func (v Value) AsArray() ([]Value, bool) {
	if v.typ != Array {
		return nil, false
	}
	out := make([]Value, len(v.arr))
	copy(out, v.arr)
	return out, true
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case Unknown:
		return true
	case Bool:
		return v.b == o.b
	case Int32:
		return v.i == o.i
	case Float32:
		return v.f == o.f
	case String:
		return v.s == o.s
	case Time:
		return v.t.Equal(o.t)
	case PathValue:
		return v.p.Equal(o.p)
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Less provides a total order over Values of the same type, used to
// canonicalize domains and array contents. Values of differing type are
// ordered by ValueType.
func (v Value) Less(o Value) bool {
	if v.typ != o.typ {
		return v.typ < o.typ
	}
	switch v.typ {
	case Bool:
		return !v.b && o.b
	case Int32:
		return v.i < o.i
	case Float32:
		return v.f < o.f
	case String:
		return v.s < o.s
	case Time:
		return v.t.Before(o.t)
	case PathValue:
		return v.p.Compare(o.p) < 0
	default:
		return false
	}
}

// String renders a human-readable form, used in log lines, predicate
// pretty-printing, and plan-cache keys. The nuXMV encoder renders its
// literals itself and does not use it.
func (v Value) String() string {
	switch v.typ {
	case Bool:
		return fmt.Sprintf("%t", v.b)
	case Int32:
		return fmt.Sprintf("%d", v.i)
	case Float32:
		return fmt.Sprintf("%g", v.f)
	case String:
		return v.s
	case Time:
		return v.t.Format(time.RFC3339Nano)
	case PathValue:
		return v.p.String()
	case Array:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return fmt.Sprintf("%v", parts)
	default:
		return "UNKNOWN"
	}
}

// SortValues sorts a slice of same-typed Values in place using Less,
// giving a canonical domain ordering for variables and encoder output.
func SortValues(vs []Value) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}
