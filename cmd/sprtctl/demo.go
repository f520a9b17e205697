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

package main

import (
	"github.com/symbolicsp/sprt"
	"github.com/symbolicsp/sprt/planner"
)

// buildDemoModel assembles a small two-door resource: each door has a
// command variable the planner can set and a feedback variable that a
// plain uncontrolled "settle" transition drives, wrapped in an Operation
// lifecycle. It exists so sprtctl has a concrete model to run, dump,
// and plan against without requiring a model-authoring surface the
// spec itself does not define.
func buildDemoModel() (*sprt.TransitionSystemModel, error) {
	builder := sprt.NewModelBuilder()

	for _, name := range []string{"door_a", "door_b"} {
		cmdPath := sprt.PathFrom(name, "cmd")
		openCmd, err := sprt.NewVariable(cmdPath, sprt.String, sprt.Command,
			[]sprt.Value{sprt.NewString("open"), sprt.NewString("close")}, sprt.NewString("close"))
		if err != nil {
			return nil, err
		}
		feedbackPath := sprt.PathFrom(name, "feedback")
		feedback, err := sprt.NewVariable(feedbackPath, sprt.String, sprt.Estimated,
			[]sprt.Value{sprt.NewString("open"), sprt.NewString("close")}, sprt.NewString("close"))
		if err != nil {
			return nil, err
		}
		builder.AddVariable(openCmd).AddVariable(feedback)

		op := sprt.NewOperation(sprt.PathFrom(name, "op"),
			sprt.Eq(sprt.PathRef(feedbackPath), sprt.Lit(sprt.NewString("close"))),
			sprt.Eq(sprt.PathRef(feedbackPath), sprt.Lit(sprt.NewString("open"))),
			sprt.NewAction(cmdPath, sprt.ComputeLit(sprt.NewString("open"))))
		builder.AddOperation(op)

		// The runner-driven feedback transition: once the command says
		// "open", the door eventually reports itself open. A real
		// deployment replaces this with a hardware-backed AsyncTransition
		// in the ticker package; here it is a plain uncontrolled
		// transition so `sprtctl run` has something to observe ticking
		// without any external I/O.
		settle := sprt.NewTransition(sprt.PathFrom(name, "settle"), sprt.Uncontrolled,
			sprt.And(
				sprt.Eq(sprt.PathRef(cmdPath), sprt.Lit(sprt.NewString("open"))),
				sprt.Eq(sprt.PathRef(feedbackPath), sprt.Lit(sprt.NewString("close"))),
			),
			sprt.NewAction(feedbackPath, sprt.ComputeLit(sprt.NewString("open"))))
		builder.AddTransition(settle)
	}

	return builder.Build()
}

// demoGoals returns the goal both doors end up open, the canonical
// target for `sprtctl plan`'s default invocation.
func demoGoals() []planner.Goal {
	return []planner.Goal{{
		Predicate: sprt.And(
			sprt.Eq(sprt.PathRef(sprt.PathFrom("door_a", "op", "phase")), sprt.Lit(sprt.PhaseFinished)),
			sprt.Eq(sprt.PathRef(sprt.PathFrom("door_b", "op", "phase")), sprt.Lit(sprt.PhaseFinished)),
		),
	}}
}
