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

import "strings"

const pathSep = "."

// Path is the dotted hierarchical identifier of every entity in a model:
// variables, transitions, predicates, operations. Equality is structural.
type Path struct {
	segments []string
}

// NewPath returns the empty path.
func NewPath() Path { return Path{} }

// PathFromString parses a printable path, trimming leading/trailing
// separators before splitting on them. An empty string yields the empty
// path, not a path with one empty segment.
func PathFromString(s string) Path {
	s = strings.Trim(s, pathSep)
	if s == "" {
		return Path{}
	}
	parts := strings.Split(s, pathSep)
	segs := make([]string, len(parts))
	copy(segs, parts)
	return Path{segments: segs}
}

// PathFrom builds a path from an ordered list of non-empty segments.
func PathFrom(segments ...string) Path {
	if len(segments) == 0 {
		return Path{}
	}
	segs := make([]string, len(segments))
	copy(segs, segments)
	return Path{segments: segs}
}

// String returns the printable, dot-joined form of the path.
func (p Path) String() string { return strings.Join(p.segments, pathSep) }

// IsEmpty reports whether the path has no segments.
func (p Path) IsEmpty() bool { return len(p.segments) == 0 }

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }

// Segments returns a defensive copy of the path's segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Equal reports structural equality.
func (p Path) Equal(o Path) bool {
	if len(p.segments) != len(o.segments) {
		return false
	}
	for i, s := range p.segments {
		if s != o.segments[i] {
			return false
		}
	}
	return true
}

// Compare orders paths lexicographically by segment, then by length, for
// use in sorted path sets (support(), keep_only()).
func (p Path) Compare(o Path) int {
	for i := 0; i < len(p.segments) && i < len(o.segments); i++ {
		if p.segments[i] != o.segments[i] {
			if p.segments[i] < o.segments[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(p.segments) < len(o.segments):
		return -1
	case len(p.segments) > len(o.segments):
		return 1
	default:
		return 0
	}
}

// AddChild appends a single segment, returning a new path.
func (p Path) AddChild(sub string) Path {
	segs := make([]string, len(p.segments), len(p.segments)+1)
	copy(segs, p.segments)
	return Path{segments: append(segs, sub)}
}

// AddParent prepends a single segment, returning a new path.
func (p Path) AddParent(root string) Path {
	segs := make([]string, 0, len(p.segments)+1)
	segs = append(segs, root)
	segs = append(segs, p.segments...)
	return Path{segments: segs}
}

// AddChildPath appends all of sub's segments, returning a new path.
func (p Path) AddChildPath(sub Path) Path {
	segs := make([]string, len(p.segments), len(p.segments)+len(sub.segments))
	copy(segs, p.segments)
	return Path{segments: append(segs, sub.segments...)}
}

// AddParentPath prepends all of root's segments, returning a new path.
func (p Path) AddParentPath(root Path) Path {
	segs := make([]string, 0, len(p.segments)+len(root.segments))
	segs = append(segs, root.segments...)
	segs = append(segs, p.segments...)
	return Path{segments: segs}
}

// DropParent removes parent's segments as a prefix, returning the
// remainder. Fails with a PathError if parent is not a prefix of p.
func (p Path) DropParent(parent Path) (Path, error) {
	if !p.hasPrefix(parent) {
		return Path{}, &PathError{Op: "drop_parent", Path: p, Detail: "not a prefix: " + parent.String()}
	}
	segs := make([]string, len(p.segments)-len(parent.segments))
	copy(segs, p.segments[len(parent.segments):])
	return Path{segments: segs}, nil
}

func (p Path) hasPrefix(prefix Path) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, s := range prefix.segments {
		if p.segments[i] != s {
			return false
		}
	}
	return true
}

// IsChildOf reports whether other is an ancestor of (or equal to) p.
func (p Path) IsChildOf(other Path) bool {
	return len(p.segments) >= len(other.segments) && p.hasPrefix(other)
}

// IsChildOfAny reports whether any of others is an ancestor of (or equal
// to) p.
func (p Path) IsChildOfAny(others []Path) bool {
	for _, o := range others {
		if p.IsChildOf(o) {
			return true
		}
	}
	return false
}

// Root returns the first segment, or the empty string for an empty path.
func (p Path) Root() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[0]
}

// Parent returns the path with its leaf segment removed.
func (p Path) Parent() Path {
	if len(p.segments) <= 1 {
		return Path{}
	}
	segs := make([]string, len(p.segments)-1)
	copy(segs, p.segments[:len(p.segments)-1])
	return Path{segments: segs}
}

// DropRoot returns the path with its first segment removed.
func (p Path) DropRoot() Path {
	if len(p.segments) == 0 {
		return Path{}
	}
	segs := make([]string, len(p.segments)-1)
	copy(segs, p.segments[1:])
	return Path{segments: segs}
}

// Leaf returns the final segment, or the empty string for an empty path.
func (p Path) Leaf() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// LeafAsPath returns a single-segment path holding only the leaf.
func (p Path) LeafAsPath() Path {
	if len(p.segments) == 0 {
		return Path{segments: []string{""}}
	}
	return Path{segments: []string{p.segments[len(p.segments)-1]}}
}

// NextNodeInPath returns the segment of p immediately following parent,
// or false if parent is not a proper prefix of p.
func (p Path) NextNodeInPath(parent Path) (string, bool) {
	if p.IsChildOf(parent) && len(p.segments) > len(parent.segments) {
		return p.segments[len(parent.segments)], true
	}
	return "", false
}
