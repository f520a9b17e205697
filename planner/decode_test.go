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
	"strings"
	"testing"

	"github.com/symbolicsp/sprt"
)

func TestDecodeTraceNoCounterexample(t *testing.T) {
	model := twoVarModel(t)
	trace, ok, err := DecodeTrace(model, "some unrelated nuXMV banner\nno counterexample found\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || trace != nil {
		t.Fatalf("expected ok=false, trace=nil for output with no counterexample marker")
	}
}

func TestDecodeTraceTwoStepPlan(t *testing.T) {
	model := twoVarModel(t)
	stdout := strings.Join([]string{
		"-- specification ... is false",
		"Trace Description: LTL Counterexample",
		"Trace Type: Counterexample",
		"-> State: 1.1 <-",
		"  var_x = FALSE",
		"  var_y = FALSE",
		"-> Input: 1.2 <-",
		"  ivar_mx = TRUE",
		"  ivar_my = FALSE",
		"-> State: 1.2 <-",
		"  var_x = TRUE",
		"  var_y = FALSE",
		"-> Input: 1.3 <-",
		"  ivar_mx = FALSE",
		"  ivar_my = TRUE",
		"-> State: 1.3 <-",
		"  var_x = TRUE",
		"  var_y = TRUE",
		"",
	}, "\n")

	trace, ok, err := DecodeTrace(model, stdout)
	if err != nil {
		t.Fatalf("DecodeTrace: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for a counterexample trace")
	}
	fired := trace.Transitions()
	if len(fired) != 2 || fired[0].String() != "mx" || fired[1].String() != "my" {
		t.Fatalf("fired = %v, want [mx my]", fired)
	}
	last := trace.Frames[len(trace.Frames)-1]
	xv, ok := last.State[sprt.PathFrom("x")]
	if !ok {
		t.Fatal("final frame missing x")
	}
	if b, _ := xv.AsBool(); !b {
		t.Errorf("final x = %v, want true", b)
	}
}
