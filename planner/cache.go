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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/symbolicsp/sprt"
)

// PlanningResult is the outcome recorded for one cache key: either a
// Trace that realizes the goal, or Found=false recording that the
// backend proved (within budget) that no plan exists.
type PlanningResult struct {
	Found bool   `json:"found"`
	Trace *Trace `json:"trace,omitempty"`
}

// CacheKey hashes (serialized model, filtered state projected onto TSM
// vars, goal list, disabled transitions) into the store key described
// in §4.7. Serialization sorts the state entries and the disabled set
// first so that semantically identical inputs always hash identically
// regardless of iteration order; the goal list keeps its given order.
func CacheKey(modelText string, state map[sprt.Path]sprt.Value, goals []Goal, disabled []sprt.Path) (string, error) {
	var sb struct {
		Model    string   `json:"model"`
		State    []kv     `json:"state"`
		Goals    []string `json:"goals"`
		Disabled []string `json:"disabled"`
	}
	sb.Model = modelText

	paths := make([]sprt.Path, 0, len(state))
	for p := range state {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Compare(paths[j]) < 0 })
	for _, p := range paths {
		sb.State = append(sb.State, kv{Path: p.String(), Value: state[p].String()})
	}

	for _, g := range goals {
		goalStr := g.Predicate.String()
		if g.Invariant != nil {
			goalStr += " U " + g.Invariant.String()
		}
		sb.Goals = append(sb.Goals, goalStr)
	}

	disabledStrs := make([]string, len(disabled))
	for i, p := range disabled {
		disabledStrs[i] = p.String()
	}
	sort.Strings(disabledStrs)
	sb.Disabled = disabledStrs

	raw, err := json.Marshal(sb)
	if err != nil {
		return "", fmt.Errorf("planner: hashing cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

type kv struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

// Store is the disk-persisted plan cache: a single compressed JSON file
// per model, per §4.7/§6. A nil *PlanningResult stored against a key is
// the "currently computing" sentinel.
type Store struct {
	mu      sync.Mutex
	cache   map[string]*PlanningResult
	hits    int
	lookups int
	path    string
}

type storeFile struct {
	Cache   map[string]*PlanningResult `json:"cache"`
	Hits    int                        `json:"hits"`
	Lookups int                        `json:"lookups"`
}

// storeFileName is the well-known per-model cache file name, keyed by a
// hash of the model text (§6 "Plan cache file").
func storeFileName(dir, modelHash string) string {
	return filepath.Join(dir, "store-"+modelHash+".sz")
}

// LoadStore opens (or, on any failure, starts empty rather than
// failing) the plan cache file for a model identified by modelHash.
func LoadStore(dir, modelHash string) *Store {
	s := &Store{cache: make(map[string]*PlanningResult), path: storeFileName(dir, modelHash)}
	compressed, err := os.ReadFile(s.path)
	if err != nil {
		return s
	}
	raw, err := s2.Decode(nil, compressed)
	if err != nil {
		return s
	}
	var onDisk storeFile
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return s
	}
	if onDisk.Cache != nil {
		s.cache = onDisk.Cache
	}
	s.hits = onDisk.Hits
	s.lookups = onDisk.Lookups
	return s
}

// Save persists the store, compressed, to its file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(storeFile{Cache: s.cache, Hits: s.hits, Lookups: s.lookups})
	if err != nil {
		return fmt.Errorf("planner: marshaling plan cache: %w", err)
	}
	compressed := s2.Encode(nil, raw)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("planner: creating plan cache directory: %w", err)
	}
	return os.WriteFile(s.path, compressed, 0o644)
}

// Lookup reports the cached PlanningResult for key, if any, and whether
// it is currently being computed (a stored nil sentinel) rather than a
// finished result.
func (s *Store) Lookup(key string) (result *PlanningResult, computing bool, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	res, found := s.cache[key]
	if found {
		s.hits++
	}
	return res, found && res == nil, found
}

// MarkComputing records key as in-flight, so a concurrent caller for
// the same key does not duplicate the work.
func (s *Store) MarkComputing(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = nil
}

// Put records the finished PlanningResult for key.
func (s *Store) Put(key string, result *PlanningResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = result
}

// Stats returns the store's lifetime hit and lookup counters.
func (s *Store) Stats() (hits, lookups int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.lookups
}

// Cache is the planner-facing façade around a Store: it coordinates
// background computation so that a cache miss returns a heuristic
// result immediately while the full search runs on another goroutine,
// per §4.7.
type Cache struct {
	store *Store
}

// NewCache wraps store in the background-compute façade.
func NewCache(store *Store) *Cache { return &Cache{store: store} }

// PlanWithCache returns the cached PlanningResult for key if one is
// already finished (recording a hit). On a genuine miss, it marks key
// as computing, launches compute on a new goroutine (saving the store
// once compute finishes), and returns heuristic's result immediately
// without waiting. A key already marked "computing" by a concurrent
// caller also falls through to the heuristic rather than launching a
// second compute job for the same key.
func (c *Cache) PlanWithCache(key string, heuristic func() (*PlanningResult, error), compute func() (*PlanningResult, error)) (*PlanningResult, error) {
	if res, computing, found := c.store.Lookup(key); found && !computing {
		return res, nil
	} else if found && computing {
		return heuristic()
	}

	c.store.MarkComputing(key)
	go func() {
		result, err := compute()
		if err != nil {
			result = &PlanningResult{Found: false}
		}
		c.store.Put(key, result)
		_ = c.store.Save()
	}()

	return heuristic()
}
