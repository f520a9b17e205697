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

package runner

import (
	"context"
	"testing"
	"time"

	"github.com/symbolicsp/sprt"
	"github.com/symbolicsp/sprt/planner"
)

// buildFlagModel declares a single boolean "done" flag flipped once by
// an uncontrolled transition, so a single Tick is enough to observe the
// ticker task actually running inside Runner.Run.
func buildFlagModel(t *testing.T) (*sprt.TransitionSystemModel, sprt.Path) {
	t.Helper()
	done := sprt.PathFrom("done")
	builder := sprt.NewModelBuilder()
	v, err := sprt.NewVariable(done, sprt.Bool, sprt.Estimated, nil, sprt.NewBool(false))
	if err != nil {
		t.Fatal(err)
	}
	builder.AddVariable(v)
	flip := sprt.NewTransition(done.AddParent("set_done"), sprt.Uncontrolled,
		sprt.Not(sprt.Eq(sprt.PathRef(done), sprt.Lit(sprt.NewBool(true)))),
		sprt.NewAction(done, sprt.ComputeLit(sprt.NewBool(true))))
	builder.AddTransition(flip)
	model, err := builder.Build()
	if err != nil {
		t.Fatal(err)
	}
	return model, done
}

func TestRunnerAdvancesStateOnClockTick(t *testing.T) {
	model, done := buildFlagModel(t)
	goal := planner.Goal{Predicate: sprt.Eq(sprt.PathRef(done), sprt.Lit(sprt.NewBool(true)))}

	cfg := DefaultConfig()
	cfg.TickPeriod = 5 * time.Millisecond
	cfg.PlanCacheEnabled = false

	driver := &planner.Driver{BinaryPath: "/nonexistent/bmc-binary", FailedInputDir: t.TempDir()}

	r, err := New(cfg, model, model.InitialState(), nil, []planner.Goal{goal}, driver, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	deadline := time.After(500 * time.Millisecond)
	for {
		if v, ok := r.State().Get(done); ok {
			if b, _ := v.AsBool(); b {
				break
			}
		}
		select {
		case <-deadline:
			t.Fatal("runner never flipped the done flag via a clock tick")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-errCh; err != context.Canceled && err != context.DeadlineExceeded {
		t.Fatalf("Run returned %v, want context.Canceled or context.DeadlineExceeded", err)
	}
}

func TestRunnerAppliesExternalStateChange(t *testing.T) {
	model, done := buildFlagModel(t)
	goal := planner.Goal{Predicate: sprt.Eq(sprt.PathRef(done), sprt.Lit(sprt.NewBool(true)))}

	cfg := DefaultConfig()
	cfg.TickPeriod = time.Hour // effectively disable the clock for this test
	cfg.PlanCacheEnabled = false

	driver := &planner.Driver{BinaryPath: "/nonexistent/bmc-binary", FailedInputDir: t.TempDir()}
	r, err := New(cfg, model, model.InitialState(), nil, []planner.Goal{goal}, driver, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.merger.Push(map[sprt.Path]sprt.Value{done: sprt.NewBool(true)})

	deadline := time.After(500 * time.Millisecond)
	for {
		if v, ok := r.State().Get(done); ok {
			if b, _ := v.AsBool(); b {
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("external StateChange was never reflected in the broadcast state")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
