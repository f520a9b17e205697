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

// Operation phase values, held at an Operation's Phase path.
var (
	PhaseInitial   = NewString("i")
	PhaseExecuting = NewString("e")
	PhaseFinished  = NewString("f")
)

// Operation is the standard i -> e -> f lifecycle wrapped around a goal:
// a derived String variable ("phase") plus the five Transitions that
// drive it. The "formal" pair (Start, Finish) is what the planner
// reasons about: Start is available to the planner as a controlled
// choice once Precondition holds, and Finish is a controlled
// abstraction of completion once Postcondition holds, letting a plan
// treat the operation's effect as atomic. The "runner" pair
// (StartRunner, FinishRunner) are hidden, uncontrolled transitions that
// actually drive the lifecycle when the Ticker runs live: StartRunner
// fires the operation's real command Actions, and FinishRunner commits
// the phase to Finished only once Postcondition is empirically observed
// true, mirroring what the live system actually did rather than what
// the plan assumed it would do. A fifth hidden, uncontrolled transition
// (Reset) returns a Finished operation to Initial, closing the cycle.
type Operation struct {
	path          Path
	precondition  *Predicate
	postcondition *Predicate
	actions       []Action
}

// NewOperation declares an Operation at path, whose phase variable lives
// at path.AddChild("phase"). precondition gates starting; postcondition
// gates completion; actions are the side-effecting commands issued when
// the operation starts (e.g. assigning a Command-kind Variable).
func NewOperation(path Path, precondition, postcondition *Predicate, actions ...Action) *Operation {
	if precondition == nil {
		precondition = True()
	}
	if postcondition == nil {
		postcondition = True()
	}
	return &Operation{path: path, precondition: precondition, postcondition: postcondition, actions: actions}
}

// Path returns the operation's identifying path.
func (op *Operation) Path() Path { return op.path }

// PhasePath returns the path of the operation's derived phase variable.
func (op *Operation) PhasePath() Path { return op.path.AddChild("phase") }

// Variable returns the Variable declaration for the operation's phase,
// initialized to PhaseInitial, for inclusion in a TransitionSystemModel.
func (op *Operation) Variable() (*Variable, error) {
	return NewVariable(op.PhasePath(), String, Estimated,
		[]Value{PhaseInitial, PhaseExecuting, PhaseFinished}, PhaseInitial)
}

func (op *Operation) phaseEq(v Value) *Predicate {
	return Eq(PathRef(op.PhasePath()), Lit(v))
}

// Transitions returns the operation's five lifecycle transitions: Start
// and Finish (controlled, visible to the planner), then StartRunner and
// FinishRunner (uncontrolled, hidden from the planner, driving the
// live Ticker), then Reset (uncontrolled, hidden, Finished -> Initial).
func (op *Operation) Transitions() []*Transition {
	toExecuting := NewAction(op.PhasePath(), ComputeLit(PhaseExecuting))
	toFinished := NewAction(op.PhasePath(), ComputeLit(PhaseFinished))
	toInitial := NewAction(op.PhasePath(), ComputeLit(PhaseInitial))

	start := NewTransition(op.path.AddChild("start"), Controlled,
		And(op.phaseEq(PhaseInitial), op.precondition), toExecuting)

	finish := NewTransition(op.path.AddChild("finish"), Controlled,
		And(op.phaseEq(PhaseExecuting), op.postcondition), toFinished)

	runnerActions := append([]Action{toExecuting}, op.actions...)
	startRunner := NewTransition(op.path.AddChild("start_runner"), Uncontrolled,
		And(op.phaseEq(PhaseInitial), op.precondition), runnerActions...).WithHidden(true)

	finishRunner := NewTransition(op.path.AddChild("finish_runner"), Uncontrolled,
		And(op.phaseEq(PhaseExecuting), op.postcondition), toFinished).WithHidden(true)

	reset := NewTransition(op.path.AddChild("reset"), Uncontrolled,
		op.phaseEq(PhaseFinished), toInitial).WithHidden(true)

	return []*Transition{start, finish, startRunner, finishRunner, reset}
}
