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

// Package planner encodes a transition system model and goal set into
// the textual BMC dialect, drives the external BMC binary, and decodes
// its counterexample traces back into plans the Ticker can execute.
package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoder marks a model construct the BMC backend cannot express.
	ErrEncoder = errors.New("planner: encoder error")
	// ErrPlanner marks a subprocess or protocol failure talking to the
	// BMC backend.
	ErrPlanner = errors.New("planner: planner error")
)

// EncoderError reports a model construct the textual BMC encoder
// cannot express: TON, TOFF, MEMBER, and XOR predicates have no direct
// nuXMV LTL encoding and must be rejected rather than silently
// mistranslated.
type EncoderError struct {
	Construct string
	Detail    string
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("planner: encoder error: %s: %s", e.Construct, e.Detail)
}

func (e *EncoderError) Unwrap() error { return ErrEncoder }

// PlannerError reports a failure invoking or parsing the output of the
// external BMC process: an unresolvable binary, a failure writing its
// input file, non-zero exit, a syntax diagnostic in the generated
// input, or an undecodable trace. A search that runs out of time is not
// a PlannerError: Search reports it as "no plan".
type PlannerError struct {
	Reason string
	Line   int    // 1-based source line of the offending input, 0 if not applicable
	Source string // the generated BMC input; after a syntax diagnostic or failed run, the path it was persisted to ("" if that failed); empty for a decode failure
}

func (e *PlannerError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("planner: planner error at input line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("planner: planner error: %s", e.Reason)
}

func (e *PlannerError) Unwrap() error { return ErrPlanner }
