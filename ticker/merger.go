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
	"sync"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/symbolicsp/sprt"
)

// StateChange is one coalesced batch of externally observed partial
// state updates, ready to be folded into a Ticker's State.
type StateChange struct {
	Assignments map[sprt.Path]sprt.Value
}

// Merger coalesces bursts of partial state updates arriving from one or
// more external sources (messaging adapters) into a minimal sequence of
// StateChange messages, per §4.5: updates are accumulated in a buffer,
// then on each signal drained and folded from the oldest, splitting the
// run wherever two updates disagree on a shared path.
type Merger struct {
	mu     sync.Mutex
	buffer []map[sprt.Path]sprt.Value
	signal chan struct{}
	out    chan StateChange
}

// NewMerger fans in every source channel (via channerics.Merge, so a
// single done close stops every upstream read) and starts the
// background goroutine that buffers their updates. Call Run to drive
// folding into the Out() channel; NewMerger only wires the plumbing.
func NewMerger(done <-chan struct{}, sources ...<-chan map[sprt.Path]sprt.Value) *Merger {
	m := &Merger{
		signal: make(chan struct{}, 1),
		out:    make(chan StateChange, 2),
	}
	if len(sources) > 0 {
		merged := channerics.Merge(done, sources...)
		go m.collect(done, merged)
	}
	return m
}

// Out returns the channel of coalesced StateChange messages, consumed
// by the Runner's ticker task.
func (m *Merger) Out() <-chan StateChange { return m.out }

// Push buffers a single partial update directly, bypassing the fan-in
// sources given to NewMerger; used by tests and by adapters that would
// rather call a method than own a channel.
func (m *Merger) Push(update map[sprt.Path]sprt.Value) {
	if len(update) == 0 {
		return
	}
	m.mu.Lock()
	m.buffer = append(m.buffer, update)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *Merger) collect(done <-chan struct{}, in <-chan map[sprt.Path]sprt.Value) {
	for {
		select {
		case <-done:
			return
		case update, ok := <-in:
			if !ok {
				return
			}
			m.Push(update)
		}
	}
}

// Run drives the drain-and-fold loop until done is closed. It is meant
// to run on its own goroutine, forming the Runner's "merger task"
// (§4.8).
func (m *Merger) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-m.signal:
			m.drain(done)
		}
	}
}

// drain pops every buffered update and folds it into as few StateChange
// messages as compatible extension allows, emitting each onto out. A
// drain that produces no output (buffer was empty) is a no-op.
func (m *Merger) drain(done <-chan struct{}) {
	m.mu.Lock()
	pending := m.buffer
	m.buffer = nil
	m.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	var folded map[sprt.Path]sprt.Value
	emit := func(batch map[sprt.Path]sprt.Value) {
		select {
		case m.out <- StateChange{Assignments: batch}:
		case <-done:
		}
	}
	for _, update := range pending {
		if folded == nil {
			folded = update
			continue
		}
		// State.Extend is a pure function of its two map arguments (it
		// never reads receiver fields), so reusing it here avoids a
		// second implementation of the compatible-extension rule the
		// Ticker itself commits with.
		merged, incompatible := (*sprt.State)(nil).Extend(update, folded)
		if len(incompatible) > 0 {
			emit(folded)
			folded = update
		} else {
			folded = merged
		}
	}
	if folded != nil {
		emit(folded)
	}
}
