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

// VariableKind distinguishes the role a Variable plays in a model.
type VariableKind int

const (
	// Measured variables are written only by the environment/runner
	// (sensor-like) and read by predicates/guards.
	Measured VariableKind = iota
	// Estimated variables are written by the runtime's own transitions.
	Estimated
	// Command variables are written by the planner/controller and read
	// by the environment (actuator-like).
	Command
)

func (k VariableKind) String() string {
	switch k {
	case Measured:
		return "measured"
	case Command:
		return "command"
	default:
		return "estimated"
	}
}

// Variable declares one named, typed, domain-bounded slot of model
// state. Domain, when non-empty, is the closed set of Values the
// variable may take; an empty domain means "any value of Type is
// admissible" (e.g. unbounded int32 counters).
type Variable struct {
	path    Path
	typ     ValueType
	kind    VariableKind
	domain  []Value
	initial Value
}

// NewVariable constructs a Variable, validating that the initial value
// (if not Unknown) matches typ and, when domain is non-empty, is a
// member of it.
func NewVariable(path Path, typ ValueType, kind VariableKind, domain []Value, initial Value) (*Variable, error) {
	v := &Variable{path: path, typ: typ, kind: kind, initial: initial}
	if len(domain) > 0 {
		v.domain = make([]Value, len(domain))
		copy(v.domain, domain)
		SortValues(v.domain)
	}
	if !initial.IsUnknown() {
		if err := v.checkTag(initial); err != nil {
			return nil, err
		}
		if len(v.domain) > 0 && !v.inDomain(initial) {
			return nil, &PathError{Op: "new_variable", Path: path, Detail: "initial value not in domain: " + initial.String()}
		}
	}
	return v, nil
}

func (v *Variable) checkTag(val Value) error {
	if val.IsUnknown() {
		return nil
	}
	if val.Type() != v.typ {
		return &TagError{Path: v.path, Expected: v.typ, Actual: val.Type()}
	}
	return nil
}

func (v *Variable) inDomain(val Value) bool {
	for _, d := range v.domain {
		if d.Equal(val) {
			return true
		}
	}
	return false
}

// Path returns the variable's identifying path.
func (v *Variable) Path() Path { return v.path }

// Type returns the variable's declared ValueType.
func (v *Variable) Type() ValueType { return v.typ }

// Kind returns whether the variable is measured, estimated, or command.
func (v *Variable) Kind() VariableKind { return v.kind }

// Domain returns a copy of the variable's closed value set, or nil if
// unbounded.
func (v *Variable) Domain() []Value {
	if len(v.domain) == 0 {
		return nil
	}
	out := make([]Value, len(v.domain))
	copy(out, v.domain)
	return out
}

// Initial returns the variable's initial value.
func (v *Variable) Initial() Value { return v.initial }

// Validate reports whether val is an admissible assignment for v: tag
// matches (or val is Unknown), and, if a domain is declared, val is a
// member of it.
func (v *Variable) Validate(val Value) error {
	if val.IsUnknown() {
		return nil
	}
	if err := v.checkTag(val); err != nil {
		return err
	}
	if len(v.domain) > 0 && !v.inDomain(val) {
		return &PathError{Op: "validate", Path: v.path, Detail: "value not in domain: " + val.String()}
	}
	return nil
}
