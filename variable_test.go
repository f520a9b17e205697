package sprt

import "testing"

func TestNewVariableValidatesInitial(t *testing.T) {
	p := PathFrom("v")
	if _, err := NewVariable(p, Int32, Measured, nil, NewBool(true)); err == nil {
		t.Fatalf("expected a tag error for mismatched initial value")
	}

	domain := []Value{NewInt32(1), NewInt32(2)}
	if _, err := NewVariable(p, Int32, Measured, domain, NewInt32(3)); err == nil {
		t.Fatalf("expected an error for an initial value outside the domain")
	}

	v, err := NewVariable(p, Int32, Measured, domain, NewInt32(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.Initial(); !got.Equal(NewInt32(1)) {
		t.Errorf("Initial() = %v, want 1", got)
	}
}

func TestVariableValidate(t *testing.T) {
	domain := []Value{NewString("i"), NewString("e"), NewString("f")}
	v, err := NewVariable(PathFrom("op", "phase"), String, Estimated, domain, NewString("i"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Validate(NewString("e")); err != nil {
		t.Errorf("Validate(e): unexpected error: %v", err)
	}
	if err := v.Validate(NewString("bogus")); err == nil {
		t.Errorf("Validate(bogus): expected error for value outside domain")
	}
	if err := v.Validate(NewUnknown()); err != nil {
		t.Errorf("Validate(Unknown): unexpected error: %v", err)
	}
}
