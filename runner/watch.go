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

package runner

import (
	"sync"

	"github.com/symbolicsp/sprt"
)

// watch holds only the latest published State, mirroring
// tokio::sync::watch (see original_source/sp_runner/src/runner.rs
// launch_model's tx_runner_state): late readers skip every intermediate
// value and only ever observe the most recent one, per §5
// "the broadcast state channel holds only the latest value".
type watch struct {
	mu      sync.Mutex
	state   *sprt.State
	changed chan struct{}
}

func newWatch(initial *sprt.State) *watch {
	return &watch{state: initial, changed: make(chan struct{})}
}

// Set publishes a new State, waking every goroutine blocked on Changed.
func (w *watch) Set(s *sprt.State) {
	w.mu.Lock()
	w.state = s
	old := w.changed
	w.changed = make(chan struct{})
	w.mu.Unlock()
	close(old)
}

// Get returns the latest published State together with a channel that
// closes the next time Set is called, for a caller to select on.
func (w *watch) Get() (*sprt.State, <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.changed
}
