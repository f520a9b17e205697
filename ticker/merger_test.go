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

package ticker

import (
	"testing"
	"time"

	"github.com/symbolicsp/sprt"
)

// S6 — Merger.
func TestMergerCoalescesCompatibleUpdates(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	m := NewMerger(done)
	go m.Run(done)

	a, b, c := sprt.PathFrom("a"), sprt.PathFrom("b"), sprt.PathFrom("c")
	m.Push(map[sprt.Path]sprt.Value{a: sprt.NewInt32(1)})
	m.Push(map[sprt.Path]sprt.Value{b: sprt.NewInt32(2)})
	m.Push(map[sprt.Path]sprt.Value{a: sprt.NewInt32(1), c: sprt.NewInt32(3)})

	select {
	case change := <-m.Out():
		if len(change.Assignments) != 3 {
			t.Fatalf("merged change has %d paths, want 3: %+v", len(change.Assignments), change.Assignments)
		}
		for p, want := range map[sprt.Path]int32{a: 1, b: 2, c: 3} {
			got, ok := change.Assignments[p]
			if !ok {
				t.Fatalf("merged change missing %s", p)
			}
			gv, _ := got.AsInt32()
			if gv != want {
				t.Errorf("%s = %d, want %d", p, gv, want)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for merged StateChange")
	}

	select {
	case extra := <-m.Out():
		t.Fatalf("unexpected second StateChange: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMergerSplitsIncompatibleUpdate(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	m := NewMerger(done)
	go m.Run(done)

	a := sprt.PathFrom("a")
	m.Push(map[sprt.Path]sprt.Value{a: sprt.NewInt32(1)})
	m.Push(map[sprt.Path]sprt.Value{a: sprt.NewInt32(5)})

	var changes []StateChange
	for i := 0; i < 2; i++ {
		select {
		case c := <-m.Out():
			changes = append(changes, c)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for StateChange %d", i)
		}
	}
	if len(changes) != 2 {
		t.Fatalf("got %d StateChanges, want 2", len(changes))
	}
	first, _ := changes[0].Assignments[a].AsInt32()
	second, _ := changes[1].Assignments[a].AsInt32()
	if first != 1 || second != 5 {
		t.Fatalf("changes = %v, %v; want a=1 then a=5", first, second)
	}
}
