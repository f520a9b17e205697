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

// Goal is one conjunct of the planner's objective: reach a State
// satisfying Predicate, optionally while Invariant holds at every
// intermediate State along the way (encoded "(Invariant U Predicate)"
// rather than the weaker "F(Predicate)").
type Goal struct {
	Predicate *sprt.Predicate
	Invariant *sprt.Predicate
}

// varName renders path as the nuXMV identifier for its state variable.
func varName(p sprt.Path) string { return "var_" + sanitizeIdent(p.String()) }

// ivarName renders path as the nuXMV identifier for a transition's
// per-step firing flag.
func ivarName(p sprt.Path) string { return "ivar_" + sanitizeIdent(p.String()) }

func sanitizeIdent(s string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(s)
}

// EncodeOffline serializes model plus an abstract initial-state
// predicate and goal set into a BMC problem using the INIT section
// (§9 open question (b), "offline" path): init is a Predicate rather
// than a concrete valuation, for planning over a family of starting
// states rather than one observed State.
func EncodeOffline(model *sprt.TransitionSystemModel, init *sprt.Predicate, goals []Goal) (string, error) {
	var sb strings.Builder
	sb.WriteString("MODULE main\n")
	if err := writeVars(&sb, model); err != nil {
		return "", err
	}
	if err := writeIvars(&sb, model); err != nil {
		return "", err
	}
	if err := writeDefines(&sb, model); err != nil {
		return "", err
	}
	if err := writeTrans(&sb, model); err != nil {
		return "", err
	}
	if err := writeInvar(&sb, model); err != nil {
		return "", err
	}
	initExpr, err := encodePredicate(init)
	if err != nil {
		return "", err
	}
	sb.WriteString("INIT\n  ")
	sb.WriteString(initExpr)
	sb.WriteString(";\n")
	if err := writeLTLSpec(&sb, model, goals); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Encode serializes model plus a concrete observed initial State and
// goal set into a BMC problem using the ASSIGN init(...) section
// (§9 open question (b), "online" path): every TSM Variable MUST have a
// value in initial.
func Encode(model *sprt.TransitionSystemModel, initial *sprt.State, goals []Goal) (string, error) {
	var sb strings.Builder
	sb.WriteString("MODULE main\n")
	if err := writeVars(&sb, model); err != nil {
		return "", err
	}
	if err := writeIvars(&sb, model); err != nil {
		return "", err
	}
	if err := writeDefines(&sb, model); err != nil {
		return "", err
	}
	if err := writeTrans(&sb, model); err != nil {
		return "", err
	}
	if err := writeInvar(&sb, model); err != nil {
		return "", err
	}
	sb.WriteString("ASSIGN\n")
	for _, v := range model.Variables() {
		val, ok := initial.Get(v.Path())
		if !ok {
			return "", &EncoderError{Construct: v.Path().String(), Detail: "no initial value supplied for online encoding"}
		}
		expr, err := encodeValue(val)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "  init(%s) := %s;\n", varName(v.Path()), expr)
	}
	if err := writeLTLSpec(&sb, model, goals); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeVars(sb *strings.Builder, model *sprt.TransitionSystemModel) error {
	sb.WriteString("VAR\n")
	for _, v := range model.Variables() {
		typ, err := varType(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "  %s : %s;\n", varName(v.Path()), typ)
	}
	return nil
}

func varType(v *sprt.Variable) (string, error) {
	if v.Type() == sprt.Bool {
		return "boolean", nil
	}
	domain := v.Domain()
	if len(domain) == 0 {
		switch v.Type() {
		case sprt.Int32:
			return "integer", nil
		default:
			return "", &EncoderError{Construct: v.Path().String(), Detail: "unbounded domain has no nuXMV type"}
		}
	}
	members := make([]string, len(domain))
	for i, d := range domain {
		s, err := encodeValue(d)
		if err != nil {
			return "", err
		}
		members[i] = s
	}
	return "{" + strings.Join(members, ", ") + "}", nil
}

func writeIvars(sb *strings.Builder, model *sprt.TransitionSystemModel) error {
	sb.WriteString("IVAR\n")
	for _, t := range model.Transitions() {
		if t.Hidden() {
			continue
		}
		fmt.Fprintf(sb, "  %s : boolean;\n", ivarName(t.Path()))
	}
	return nil
}

func writeDefines(sb *strings.Builder, model *sprt.TransitionSystemModel) error {
	nps := model.NamedPredicates()
	if len(nps) == 0 {
		return nil
	}
	sb.WriteString("DEFINE\n")
	for _, np := range nps {
		expr, err := encodePredicate(np.Predicate())
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "  %s := %s;\n", varName(np.Path()), expr)
	}
	return nil
}

func writeTrans(sb *strings.Builder, model *sprt.TransitionSystemModel) error {
	vars := model.Variables()
	var clauses []string
	for _, t := range model.Transitions() {
		if t.Hidden() {
			// Runner-only transitions (an Operation's start_runner,
			// finish_runner, reset) drive the live Ticker but are not a
			// choice the planner may reason about.
			continue
		}
		clause, err := encodeTransitionClause(t, vars)
		if err != nil {
			return err
		}
		clauses = append(clauses, clause)
	}
	sb.WriteString("TRANS\n  ")
	sb.WriteString(strings.Join(clauses, "\n  | "))
	sb.WriteString(";\n")
	return nil
}

func encodeTransitionClause(t *sprt.Transition, vars []*sprt.Variable) (string, error) {
	guardExpr, err := encodePredicate(t.Guard())
	if err != nil {
		return "", err
	}
	modifies := t.Modifies()

	var eqs []string
	for _, a := range t.Actions() {
		expr, constrained, err := encodeComputeExpr(a.Compute())
		if err != nil {
			return "", err
		}
		if !constrained {
			// Compute::Any (and any other Compute the encoder cannot fix
			// to a concrete expression) becomes an unconstrained next(p):
			// omit the equation entirely rather than over-constrain it.
			continue
		}
		eqs = append(eqs, fmt.Sprintf("next(%s) = %s", varName(a.Target()), expr))
	}
	for _, v := range vars {
		if v.Path().IsChildOfAny(modifies) {
			continue
		}
		eqs = append(eqs, fmt.Sprintf("next(%s) = %s", varName(v.Path()), varName(v.Path())))
	}

	clause := "(" + ivarName(t.Path()) + " & " + guardExpr
	for _, eq := range eqs {
		clause += " & " + eq
	}
	clause += ")"
	return clause, nil
}

func writeInvar(sb *strings.Builder, model *sprt.TransitionSystemModel) error {
	restricted := model.Invariant().KeepOnly(variablePaths(model))
	expr, err := encodePredicate(restricted)
	if err != nil {
		return err
	}
	sb.WriteString("INVAR\n  ")
	sb.WriteString(expr)
	sb.WriteString(";\n")
	return nil
}

// variablePaths returns every Path model declares a Variable at, the
// keep-set KeepOnly uses to drop goal/invariant terms that reference
// paths outside the model being encoded.
func variablePaths(model *sprt.TransitionSystemModel) []sprt.Path {
	vars := model.Variables()
	paths := make([]sprt.Path, len(vars))
	for i, v := range vars {
		paths[i] = v.Path()
	}
	return paths
}

func writeLTLSpec(sb *strings.Builder, model *sprt.TransitionSystemModel, goals []Goal) error {
	keep := variablePaths(model)
	phis := make([]string, len(goals))
	for i, g := range goals {
		goalExpr, err := encodePredicate(g.Predicate.KeepOnly(keep))
		if err != nil {
			return err
		}
		if g.Invariant != nil {
			invExpr, err := encodePredicate(g.Invariant.KeepOnly(keep))
			if err != nil {
				return err
			}
			phis[i] = fmt.Sprintf("(%s U %s)", invExpr, goalExpr)
		} else {
			phis[i] = fmt.Sprintf("F(%s)", goalExpr)
		}
	}
	sb.WriteString("LTLSPEC ! ( ")
	sb.WriteString(strings.Join(phis, " & "))
	sb.WriteString(" )\n")
	return nil
}

// encodePredicate renders p as a nuXMV boolean expression. TON, TOFF,
// MEMBER, and XOR have no direct encoding and are rejected (§4.6,
// §9 open question (c)).
func encodePredicate(p *sprt.Predicate) (string, error) {
	switch p.Kind() {
	case sprt.PTrue:
		return "TRUE", nil
	case sprt.PFalse:
		return "FALSE", nil
	case sprt.PAnd:
		return joinPredicates(p.Sub(), " & ")
	case sprt.POr:
		return joinPredicates(p.Sub(), " | ")
	case sprt.PNot:
		sub, err := encodePredicate(p.Sub()[0])
		if err != nil {
			return "", err
		}
		return "!(" + sub + ")", nil
	case sprt.PEq, sprt.PNeq:
		lv, err := encodePredicateValue(p.Left())
		if err != nil {
			return "", err
		}
		rv, err := encodePredicateValue(p.Right())
		if err != nil {
			return "", err
		}
		op := "="
		if p.Kind() == sprt.PNeq {
			op = "!="
		}
		return "(" + lv + " " + op + " " + rv + ")", nil
	case sprt.PXor:
		return "", &EncoderError{Construct: "XOR", Detail: "exactly-one has no direct nuXMV encoding; elaborate to AND/OR/NOT before encoding"}
	case sprt.PMember:
		return "", &EncoderError{Construct: "MEMBER", Detail: "set membership has no direct nuXMV encoding"}
	case sprt.PTon:
		return "", &EncoderError{Construct: "TON", Detail: "wall-clock timers have no direct nuXMV encoding"}
	case sprt.PToff:
		return "", &EncoderError{Construct: "TOFF", Detail: "wall-clock timers have no direct nuXMV encoding"}
	default:
		return "", &EncoderError{Construct: "unknown", Detail: "unrecognized predicate kind"}
	}
}

func joinPredicates(subs []*sprt.Predicate, op string) (string, error) {
	if len(subs) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, len(subs))
	for i, s := range subs {
		p, err := encodePredicate(s)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + p + ")"
	}
	return strings.Join(parts, op), nil
}

func encodePredicateValue(pv sprt.PredicateValue) (string, error) {
	if pv.IsPath() {
		return varName(pv.Path()), nil
	}
	return encodeValue(pv.Literal())
}

// encodeComputeExpr renders a Compute as a nuXMV expression. The second
// return value is false when the Compute has no fixed expression (a
// Compute::Any, a random draw, or a "now" timestamp): the encoder must
// leave the corresponding next(p) unconstrained rather than invent a
// value, letting the BMC search choose freely.
func encodeComputeExpr(c sprt.Compute) (string, bool, error) {
	switch c.Kind() {
	case sprt.CLit:
		s, err := encodeValue(c.Literal())
		return s, true, err
	case sprt.CPath:
		return varName(c.Path()), true, nil
	case sprt.CPredicateBool:
		s, err := encodePredicate(c.PredicateExpr())
		return s, true, err
	case sprt.CConditional:
		return encodeConditional(c)
	case sprt.CRandomInt, sprt.CNow, sprt.CAny:
		return "", false, nil
	default:
		return "", true, fmt.Errorf("planner: unknown compute kind %d", c.Kind())
	}
}

func encodeConditional(c sprt.Compute) (string, bool, error) {
	var sb strings.Builder
	sb.WriteString("case ")
	for _, cs := range c.Cases() {
		guard, err := encodePredicate(cs.If)
		if err != nil {
			return "", true, err
		}
		val, constrained, err := encodeComputeExpr(cs.Then)
		if err != nil {
			return "", true, err
		}
		if !constrained {
			return "", false, nil
		}
		fmt.Fprintf(&sb, "%s : %s; ", guard, val)
	}
	if deflt, ok := c.Default(); ok {
		val, constrained, err := encodeComputeExpr(deflt)
		if err != nil {
			return "", true, err
		}
		if !constrained {
			return "", false, nil
		}
		fmt.Fprintf(&sb, "TRUE : %s; ", val)
	}
	sb.WriteString("esac")
	return sb.String(), true, nil
}

// encodeValue renders a literal Value as a nuXMV literal/enum member.
func encodeValue(v sprt.Value) (string, error) {
	switch v.Type() {
	case sprt.Bool:
		b, _ := v.AsBool()
		if b {
			return "TRUE", nil
		}
		return "FALSE", nil
	case sprt.Int32:
		i, _ := v.AsInt32()
		return strconv.Itoa(int(i)), nil
	case sprt.Float32:
		f, _ := v.AsFloat32()
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case sprt.String:
		s, _ := v.AsString()
		return sanitizeIdent(s), nil
	case sprt.PathValue:
		p, _ := v.AsPath()
		return sanitizeIdent(p.String()), nil
	default:
		return "", &EncoderError{Construct: v.Type().String(), Detail: "value type has no nuXMV literal encoding"}
	}
}
