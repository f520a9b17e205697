package sprt

import (
	"testing"
	"time"
)

func TestParsePredicateBasic(t *testing.T) {
	now := time.Now()
	s := NewState(map[Path]Value{
		PathFrom("a", "b"): NewBool(true),
		PathFrom("a", "c"): NewInt32(3),
	})

	cases := []struct {
		name string
		expr string
		want bool
	}{
		{"true_literal", "TRUE", true},
		{"false_literal", "FALSE", false},
		{"path_as_bool", "p:a.b", true},
		{"not", "!p:a.b", false},
		{"and", "p:a.b && p:a.c == 3", true},
		{"or", "p:a.c == 4 || p:a.c == 3", true},
		{"implies", "p:a.b -> p:a.c == 3", true},
		{"implies_false_antecedent", "p:a.c == 4 -> FALSE", true},
		{"member", "p:a.c in [1, 2, 3]", true},
		{"member_miss", "p:a.c in [1, 2]", false},
		{"parens", "(p:a.b && FALSE) || TRUE", true},
		{"neq", "p:a.c != 4", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := ParsePredicate(c.expr)
			if err != nil {
				t.Fatalf("ParsePredicate(%q): unexpected error: %v", c.expr, err)
			}
			got, err := p.Eval(s, now)
			if err != nil {
				t.Fatalf("Eval(%q): unexpected error: %v", c.expr, err)
			}
			if got != c.want {
				t.Errorf("Eval(%q) = %v, want %v", c.expr, got, c.want)
			}
		})
	}
}

func TestParsePredicateErrors(t *testing.T) {
	cases := []string{
		"p:a.b &&",
		"(p:a.b",
		"p:a.c in [1",
		"p:a.b ==",
		"3 == 3 extra",
	}
	for _, expr := range cases {
		if _, err := ParsePredicate(expr); err == nil {
			t.Errorf("ParsePredicate(%q): expected an error", expr)
		}
	}
}

func TestParsePredicateRoundTripsThroughString(t *testing.T) {
	p, err := ParsePredicate("p:a.b && p:a.c == 3")
	if err != nil {
		t.Fatalf("ParsePredicate: unexpected error: %v", err)
	}
	s := p.String()
	if s == "" {
		t.Fatalf("String() should not be empty")
	}
	q, err := ParsePredicate(s)
	if err != nil {
		t.Fatalf("ParsePredicate(%q): unexpected error: %v", s, err)
	}
	if got := q.String(); got != s {
		t.Errorf("round trip: String() = %q, want %q", got, s)
	}
}
