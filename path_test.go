package sprt

import "testing"

func TestPathFromString(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"multi", "a.b.c", []string{"a", "b", "c"}},
		{"leading_trailing_dots", ".a.b.", []string{"a", "b"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := PathFromString(c.in).Segments()
			if len(got) != len(c.want) {
				t.Fatalf("segments = %v, want %v", got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("segments = %v, want %v", got, c.want)
				}
			}
		})
	}
}

func TestPathStringRoundTrip(t *testing.T) {
	p := PathFrom("a", "b", "c")
	if got, want := p.String(), "a.b.c"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if !PathFromString(p.String()).Equal(p) {
		t.Fatalf("round trip through string did not preserve path")
	}
}

func TestPathAddDrop(t *testing.T) {
	base := PathFrom("a", "b")
	child := base.AddChild("c")
	if want := "a.b.c"; child.String() != want {
		t.Fatalf("AddChild: got %q, want %q", child.String(), want)
	}
	parent := child.AddParent("root")
	if want := "root.a.b.c"; parent.String() != want {
		t.Fatalf("AddParent: got %q, want %q", parent.String(), want)
	}
	dropped, err := child.DropParent(base)
	if err != nil {
		t.Fatalf("DropParent: unexpected error: %v", err)
	}
	if want := "c"; dropped.String() != want {
		t.Fatalf("DropParent: got %q, want %q", dropped.String(), want)
	}
	if _, err := base.DropParent(child); err == nil {
		t.Fatalf("DropParent: expected error when parent is not a prefix")
	}
}

func TestPathIsChildOf(t *testing.T) {
	grandparent := PathFrom("a")
	parent := PathFrom("a", "b")
	child := PathFrom("a", "b", "c")
	other := PathFrom("x")

	if !child.IsChildOf(parent) {
		t.Errorf("expected %q to be a child of %q", child, parent)
	}
	if !child.IsChildOf(grandparent) {
		t.Errorf("expected %q to be a child of %q", child, grandparent)
	}
	if !child.IsChildOf(child) {
		t.Errorf("a path is considered a child of itself")
	}
	if child.IsChildOf(other) {
		t.Errorf("did not expect %q to be a child of %q", child, other)
	}
	if !child.IsChildOfAny([]Path{other, parent}) {
		t.Errorf("IsChildOfAny should match when any candidate qualifies")
	}
}

func TestPathLeafParentRoot(t *testing.T) {
	p := PathFrom("a", "b", "c")
	if got := p.Leaf(); got != "c" {
		t.Errorf("Leaf() = %q, want %q", got, "c")
	}
	if got := p.Root(); got != "a" {
		t.Errorf("Root() = %q, want %q", got, "a")
	}
	if got := p.Parent().String(); got != "a.b" {
		t.Errorf("Parent() = %q, want %q", got, "a.b")
	}
	if got := p.DropRoot().String(); got != "b.c" {
		t.Errorf("DropRoot() = %q, want %q", got, "b.c")
	}
}

func TestPathNextNodeInPath(t *testing.T) {
	p := PathFrom("a", "b", "c")
	next, ok := p.NextNodeInPath(PathFrom("a"))
	if !ok || next != "b" {
		t.Fatalf("NextNodeInPath = (%q, %v), want (%q, true)", next, ok, "b")
	}
	if _, ok := p.NextNodeInPath(p); ok {
		t.Fatalf("NextNodeInPath should fail when parent equals the path itself")
	}
}

func TestPathCompare(t *testing.T) {
	a := PathFrom("a", "b")
	b := PathFrom("a", "c")
	c := PathFrom("a", "b", "c")
	if a.Compare(b) >= 0 {
		t.Errorf("expected a.b < a.c")
	}
	if a.Compare(c) >= 0 {
		t.Errorf("expected a.b < a.b.c (shorter prefix sorts first)")
	}
	if a.Compare(a) != 0 {
		t.Errorf("expected equal paths to compare 0")
	}
}
