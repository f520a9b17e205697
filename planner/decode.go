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

package planner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/symbolicsp/sprt"
)

// counterexampleMarker is the line nuXMV's show_traces -v prints
// introducing a satisfying counterexample trace.
const counterexampleMarker = "Trace Type: Counterexample"

// Frame is one step of a decoded Trace: the Transition fired to reach
// it (absent for the initial frame) and the complete state assignment
// nuXMV printed for it.
type Frame struct {
	Transition sprt.Path
	Fired      bool
	State      map[sprt.Path]sprt.Value
}

// Trace is an ordered sequence of Frames decoded from a BMC
// counterexample: applying each Frame's Transition in order to the
// initial State should reach a State satisfying every goal predicate.
type Trace struct {
	Frames []Frame
}

// Transitions returns the ordered sequence of fired transition Paths
// across the trace, skipping frames that fired nothing (e.g. the
// initial frame).
func (t *Trace) Transitions() []sprt.Path {
	var out []sprt.Path
	for _, f := range t.Frames {
		if f.Fired {
			out = append(out, f.Transition)
		}
	}
	return out
}

// DecodeTrace scans stdout for a "Trace Type: Counterexample" marker
// and, if present, decodes the frames that follow against model's
// variables and transitions. ok is false (with a nil *Trace and nil
// error) when stdout contains no counterexample: "no plan", not a
// failure.
func DecodeTrace(model *sprt.TransitionSystemModel, stdout string) (trace *Trace, ok bool, err error) {
	idx := strings.Index(stdout, counterexampleMarker)
	if idx < 0 {
		return nil, false, nil
	}
	body := stdout[idx:]

	varByName := make(map[string]*sprt.Variable)
	for _, v := range model.Variables() {
		varByName[varName(v.Path())] = v
	}
	transByName := make(map[string]sprt.Path)
	for _, t := range model.Transitions() {
		if t.Hidden() {
			continue
		}
		transByName[ivarName(t.Path())] = t.Path()
	}

	var frames []Frame
	var cur *Frame
	inputOpen := false
	flush := func() {
		if cur != nil {
			frames = append(frames, *cur)
		}
	}

	for _, raw := range strings.Split(body, "\n")[1:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-> State:") {
			if !inputOpen {
				flush()
				cur = &Frame{State: make(map[sprt.Path]sprt.Value)}
			}
			inputOpen = false
			continue
		}
		if strings.HasPrefix(line, "-> Input:") {
			// Input frames assign IVARs (transition firing flags) for the
			// step that follows; they share the accumulating Frame with
			// the next State block in nuXMV's show_traces -v layout.
			flush()
			cur = &Frame{State: make(map[sprt.Path]sprt.Value)}
			inputOpen = true
			continue
		}
		name, valStr, ok := splitAssignment(line)
		if !ok || cur == nil {
			continue
		}
		if tp, isTrans := transByName[name]; isTrans {
			if valStr != "TRUE" {
				continue
			}
			if cur.Fired {
				return nil, false, fmt.Errorf("planner: decode: frame fires more than one transition (%s and %s)", cur.Transition, tp)
			}
			cur.Transition = tp
			cur.Fired = true
			continue
		}
		if v, isVar := varByName[name]; isVar {
			val, err := decodeValue(v, valStr)
			if err != nil {
				return nil, false, err
			}
			cur.State[v.Path()] = val
		}
	}
	flush()

	return &Trace{Frames: frames}, true, nil
}

func splitAssignment(line string) (name, value string, ok bool) {
	i := strings.Index(line, "=")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// decodeValue parses valStr according to v's declared ValueType,
// matching against v's declared Domain for String/PathValue variables
// rather than trying to invert sanitizeIdent, which is lossy.
func decodeValue(v *sprt.Variable, valStr string) (sprt.Value, error) {
	switch v.Type() {
	case sprt.Bool:
		return sprt.NewBool(valStr == "TRUE"), nil
	case sprt.Int32:
		n, err := strconv.ParseInt(valStr, 10, 32)
		if err != nil {
			return sprt.Value{}, fmt.Errorf("planner: decode: %s: not an int32: %q", v.Path(), valStr)
		}
		return sprt.NewInt32(int32(n)), nil
	case sprt.Float32:
		f, err := strconv.ParseFloat(valStr, 32)
		if err != nil {
			return sprt.Value{}, fmt.Errorf("planner: decode: %s: not a float32: %q", v.Path(), valStr)
		}
		return sprt.NewFloat32(float32(f)), nil
	case sprt.String, sprt.PathValue:
		for _, d := range v.Domain() {
			enc, err := encodeValue(d)
			if err == nil && enc == valStr {
				return d, nil
			}
		}
		return sprt.Value{}, fmt.Errorf("planner: decode: %s: value %q not in declared domain", v.Path(), valStr)
	default:
		return sprt.Value{}, fmt.Errorf("planner: decode: %s: no decoder for type %s", v.Path(), v.Type())
	}
}
