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

import (
	"crypto/rand"
	"encoding/binary"
	"sort"
)

// timestampLeaf is the reserved leaf segment that Extend ignores when
// comparing two assignments of the same path for compatibility: every
// measured update carries its own collection time on this leaf, and two
// updates agreeing on everything else should not be treated as
// conflicting just because they disagree on when they were taken.
const timestampLeaf = "timestamp"

// State is an immutable snapshot of every Variable's current Value,
// keyed by Path. Every mutating operation (WithValue, WithValues)
// returns a new *State rather than mutating the receiver in place,
// matching the stage-then-commit discipline the Ticker uses to
// keep a tick atomic. Per (I3), the identity token is only reminted
// when the key-set actually changes; a value-only write keeps the
// previous token so cached StatePath handles stay valid across it.
type State struct {
	id     uint64
	keys   []string             // path strings in stable, sorted order
	index  map[string]int       // path string -> index into keys/values
	values map[string]Value     // path string -> value
	tags   map[string]ValueType // path string -> tag of the first non-Unknown value ever inserted
}

func newToken() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is not survivable; identity tokens must be
		// unique, so surface this loudly rather than silently degrade to
		// a collidable scheme.
		panic("sprt: failed to mint state identity token: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// NewState builds a State from a map of initial assignments.
func NewState(assignments map[Path]Value) *State {
	s := &State{
		id:     newToken(),
		index:  make(map[string]int, len(assignments)),
		values: make(map[string]Value, len(assignments)),
		tags:   make(map[string]ValueType, len(assignments)),
	}
	keys := make([]string, 0, len(assignments))
	for p, v := range assignments {
		ks := p.String()
		s.values[ks] = v
		if !v.IsUnknown() {
			s.tags[ks] = v.Type()
		}
		keys = append(keys, ks)
	}
	sort.Strings(keys)
	s.keys = keys
	for i, k := range keys {
		s.index[k] = i
	}
	return s
}

// NewStateFromVariables builds the initial State of a model: every
// Variable contributes its declared Initial() (Unknown if none given).
func NewStateFromVariables(vars []*Variable) *State {
	assignments := make(map[Path]Value, len(vars))
	for _, v := range vars {
		assignments[v.Path()] = v.Initial()
	}
	return NewState(assignments)
}

// ID returns the state's identity token. A write that adds a path mints
// a fresh token, while a value-only write keeps the previous one (I3),
// so two States with different values can share a token; it exists purely to let StatePath detect whether its cached
// index is still valid for a given State value.
func (s *State) ID() uint64 { return s.id }

// Get resolves path against the state, returning its Value and whether
// the path is known. An unknown path returns the zero Value and false,
// not Unknown-and-true.
func (s *State) Get(path Path) (Value, bool) {
	v, ok := s.values[path.String()]
	return v, ok
}

// Paths returns every path the state assigns, in sorted order.
func (s *State) Paths() []Path {
	out := make([]Path, len(s.keys))
	for i, k := range s.keys {
		out[i] = PathFromString(k)
	}
	return out
}

// Len reports the number of assigned paths.
func (s *State) Len() int { return len(s.keys) }

// clone returns a shallow copy of the state's maps and slices, ready for
// a caller to mutate before freezing into a new identity.
func (s *State) clone() *State {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	index := make(map[string]int, len(s.index))
	for k, v := range s.index {
		index[k] = v
	}
	values := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	tags := make(map[string]ValueType, len(s.tags))
	for k, v := range s.tags {
		tags[k] = v
	}
	return &State{keys: keys, index: index, values: values, tags: tags}
}

// checkTagStable enforces (I2)/(P1): once a path has taken a
// non-Unknown value, every later value written under that path must
// share its ValueType. Unknown is exempt in both directions (it carries
// no tag of its own), so a Variable may still start Unknown and be
// populated later.
func (s *State) checkTagStable(ks string, val Value) error {
	if val.IsUnknown() {
		return nil
	}
	if tag, ok := s.tags[ks]; ok && tag != val.Type() {
		return &TagError{Path: PathFromString(ks), Expected: tag, Actual: val.Type()}
	}
	return nil
}

// WithValue returns a new State equal to s except path now holds val
// (path is added if previously unknown). Per (I3) the identity token is
// only reminted if path was not already a key of s; a value-only write
// to an existing path keeps s's token. Fails with a *TagError if val
// would violate (I2) tag stability for path.
func (s *State) WithValue(path Path, val Value) (*State, error) {
	ks := path.String()
	if err := s.checkTagStable(ks, val); err != nil {
		return nil, err
	}
	next := s.clone()
	_, existed := next.index[ks]
	if !existed {
		next.index[ks] = len(next.keys)
		next.keys = append(next.keys, ks)
		sort.Strings(next.keys)
		for i, k := range next.keys {
			next.index[k] = i
		}
	}
	next.values[ks] = val
	if !val.IsUnknown() {
		if _, ok := next.tags[ks]; !ok {
			next.tags[ks] = val.Type()
		}
	}
	if existed {
		next.id = s.id
	} else {
		next.id = newToken()
	}
	return next, nil
}

// WithValues applies a batch of assignments atomically, returning a
// single new State (and, per (I3), a single new identity token only if
// the key-set actually grows) rather than one intermediate state per
// assignment. Fails with a *TagError, without mutating, if any
// assignment would violate (I2) tag stability.
func (s *State) WithValues(assignments map[Path]Value) (*State, error) {
	if len(assignments) == 0 {
		frozen := s.clone()
		frozen.id = s.id
		return frozen, nil
	}
	for p, v := range assignments {
		if err := s.checkTagStable(p.String(), v); err != nil {
			return nil, err
		}
	}
	next := s.clone()
	dirty := false
	for p, v := range assignments {
		ks := p.String()
		if _, ok := next.index[ks]; !ok {
			next.keys = append(next.keys, ks)
			dirty = true
		}
		next.values[ks] = v
		if !v.IsUnknown() {
			if _, ok := next.tags[ks]; !ok {
				next.tags[ks] = v.Type()
			}
		}
	}
	if dirty {
		sort.Strings(next.keys)
		next.index = make(map[string]int, len(next.keys))
		for i, k := range next.keys {
			next.index[k] = i
		}
		next.id = newToken()
	} else {
		next.id = s.id
	}
	return next, nil
}

// FilterByPaths returns the sub-map of s restricted to paths that are,
// or are children of, any path in keep. Used to slice a State down to
// what a predicate, transition, or encoder invocation actually reads.
func (s *State) FilterByPaths(keep []Path) map[Path]Value {
	out := make(map[Path]Value)
	for i, k := range s.keys {
		_ = i
		p := PathFromString(k)
		if p.IsChildOfAny(keep) {
			out[p] = s.values[k]
		}
	}
	return out
}

// Equal reports whether s and o assign the same Values to the same set
// of Paths, ignoring identity tokens.
func (s *State) Equal(o *State) bool {
	if len(s.keys) != len(o.keys) {
		return false
	}
	for k, v := range s.values {
		ov, ok := o.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Extend folds a batch of externally observed partial-state updates
// onto alreadyFolded under the merger's compatible-extension rule; it
// reads neither s's fields nor changes s. The batch is folded in only
// if, for every path it shares with updates already folded this round,
// the values agree (the reserved "timestamp" leaf of each path is
// exempt from that comparison). A batch that conflicts with what's
// already folded is not folded at all: it is returned whole as
// incompatible, with folded a copy of alreadyFolded, so the caller (the
// Merger) can hold it for a later tick.
func (s *State) Extend(updates map[Path]Value, alreadyFolded map[Path]Value) (folded map[Path]Value, incompatible map[Path]Value) {
	folded = make(map[Path]Value, len(alreadyFolded)+len(updates))
	for p, v := range alreadyFolded {
		folded[p] = v
	}
	incompatible = make(map[Path]Value)
	for p, v := range updates {
		if existing, ok := alreadyFolded[p]; ok && !compatibleValue(p, existing, v) {
			for up, uv := range updates {
				incompatible[up] = uv
			}
			return folded, incompatible
		}
	}
	for p, v := range updates {
		folded[p] = v
	}
	return folded, incompatible
}

func compatibleValue(p Path, a, b Value) bool {
	if p.Leaf() == timestampLeaf {
		return true
	}
	return a.Equal(b)
}

// StatePath is a cached handle to a Path's position within a specific
// generation of State, letting repeated lookups against the same State
// value skip the map lookup in Get. The cache is validated against the
// State's identity token on every use: if the State passed to Resolve
// has a different ID than the one the handle was built for, Resolve
// re-resolves by path and refreshes the cache rather than returning a
// stale index.
type StatePath struct {
	path  Path
	forID uint64
	idx   int
	valid bool
}

// NewStatePath returns a handle bound to path, with no cached
// resolution yet.
func NewStatePath(path Path) *StatePath {
	return &StatePath{path: path}
}

// Path returns the path the handle resolves.
func (h *StatePath) Path() Path { return h.path }

// Resolve returns the Value path holds in s. If the handle's cached
// index was built against an earlier identity token than s.ID(), it
// re-resolves by path and updates the cache for s's token.
func (h *StatePath) Resolve(s *State) (Value, bool) {
	if h.valid && h.forID == s.id {
		if h.idx < 0 || h.idx >= len(s.keys) {
			h.valid = false
		} else if s.keys[h.idx] == h.path.String() {
			return s.values[s.keys[h.idx]], true
		}
	}
	ks := h.path.String()
	idx, ok := s.index[ks]
	if !ok {
		h.valid = false
		return Value{}, false
	}
	h.idx = idx
	h.forID = s.id
	h.valid = true
	return s.values[ks], true
}
