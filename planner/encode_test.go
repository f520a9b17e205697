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

// S1 model: two booleans, two transitions, goal x && y.
func twoVarModel(t *testing.T) *sprt.TransitionSystemModel {
	t.Helper()
	x, y := sprt.PathFrom("x"), sprt.PathFrom("y")
	builder := sprt.NewModelBuilder()
	vx, err := sprt.NewVariable(x, sprt.Bool, sprt.Estimated, nil, sprt.NewBool(false))
	if err != nil {
		t.Fatal(err)
	}
	vy, err := sprt.NewVariable(y, sprt.Bool, sprt.Estimated, nil, sprt.NewBool(false))
	if err != nil {
		t.Fatal(err)
	}
	builder.AddVariable(vx).AddVariable(vy)
	mx := sprt.NewTransition(sprt.PathFrom("mx"), sprt.Controlled,
		sprt.Not(sprt.Eq(sprt.PathRef(x), sprt.Lit(sprt.NewBool(true)))),
		sprt.NewAction(x, sprt.ComputeLit(sprt.NewBool(true))))
	my := sprt.NewTransition(sprt.PathFrom("my"), sprt.Controlled,
		sprt.Not(sprt.Eq(sprt.PathRef(y), sprt.Lit(sprt.NewBool(true)))),
		sprt.NewAction(y, sprt.ComputeLit(sprt.NewBool(true))))
	builder.AddTransition(mx).AddTransition(my)
	model, err := builder.Build()
	if err != nil {
		t.Fatal(err)
	}
	return model
}

func TestEncodeOnlineContainsCoreSections(t *testing.T) {
	model := twoVarModel(t)
	goal := Goal{Predicate: sprt.And(
		sprt.Eq(sprt.PathRef(sprt.PathFrom("x")), sprt.Lit(sprt.NewBool(true))),
		sprt.Eq(sprt.PathRef(sprt.PathFrom("y")), sprt.Lit(sprt.NewBool(true))),
	)}
	out, err := Encode(model, model.InitialState(), []Goal{goal})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, want := range []string{"VAR\n", "IVAR\n", "TRANS\n", "INVAR\n", "ASSIGN\n", "LTLSPEC ! ("} {
		if !strings.Contains(out, want) {
			t.Errorf("encoded problem missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "INIT\n") {
		t.Errorf("online encoding should use ASSIGN init(...), not INIT:\n%s", out)
	}
}

func TestEncodeOfflineUsesInitSection(t *testing.T) {
	model := twoVarModel(t)
	init := sprt.And(
		sprt.Eq(sprt.PathRef(sprt.PathFrom("x")), sprt.Lit(sprt.NewBool(false))),
		sprt.Eq(sprt.PathRef(sprt.PathFrom("y")), sprt.Lit(sprt.NewBool(false))),
	)
	goal := Goal{Predicate: sprt.Eq(sprt.PathRef(sprt.PathFrom("x")), sprt.Lit(sprt.NewBool(true)))}
	out, err := EncodeOffline(model, init, []Goal{goal})
	if err != nil {
		t.Fatalf("EncodeOffline: %v", err)
	}
	if !strings.Contains(out, "INIT\n") {
		t.Errorf("offline encoding should use INIT:\n%s", out)
	}
	if strings.Contains(out, "ASSIGN\n") {
		t.Errorf("offline encoding should not use ASSIGN init:\n%s", out)
	}
}

func TestEncodeRejectsXor(t *testing.T) {
	model := twoVarModel(t)
	goal := Goal{Predicate: sprt.Xor(
		sprt.Eq(sprt.PathRef(sprt.PathFrom("x")), sprt.Lit(sprt.NewBool(true))),
		sprt.Eq(sprt.PathRef(sprt.PathFrom("y")), sprt.Lit(sprt.NewBool(true))),
	)}
	_, err := Encode(model, model.InitialState(), []Goal{goal})
	if err == nil {
		t.Fatal("expected an encoder error for XOR")
	}
	var encErr *EncoderError
	if ee, ok := err.(*EncoderError); ok {
		encErr = ee
	}
	if encErr == nil {
		t.Fatalf("err = %v (%T), want *EncoderError", err, err)
	}
}

func TestEncodeGoalKeepOnlyDropsOutOfModelPaths(t *testing.T) {
	model := twoVarModel(t)
	x, stray := sprt.PathFrom("x"), sprt.PathFrom("stray", "var")
	goal := Goal{
		Predicate: sprt.And(
			sprt.Eq(sprt.PathRef(x), sprt.Lit(sprt.NewBool(true))),
			sprt.Eq(sprt.PathRef(stray), sprt.Lit(sprt.NewBool(true))),
		),
	}
	out, err := Encode(model, model.InitialState(), []Goal{goal})
	if err != nil {
		t.Fatalf("Encode: %v (a goal referencing a path outside the model must be restricted by KeepOnly, not fail)", err)
	}
	if strings.Contains(out, "stray") {
		t.Errorf("encoded LTLSPEC should have KeepOnly-dropped the out-of-model term:\n%s", out)
	}
	if !strings.Contains(out, varName(x)) {
		t.Errorf("encoded LTLSPEC should still reference the in-model term:\n%s", out)
	}
}

func TestEncodeWithInvariantUsesUntil(t *testing.T) {
	model := twoVarModel(t)
	x := sprt.PathFrom("x")
	goal := Goal{
		Predicate: sprt.Eq(sprt.PathRef(x), sprt.Lit(sprt.NewBool(true))),
		Invariant: sprt.True(),
	}
	out, err := Encode(model, model.InitialState(), []Goal{goal})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(out, " U ") {
		t.Errorf("goal with invariant should encode as (inv U goal):\n%s", out)
	}
}
