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
	"context"
	"time"

	"github.com/symbolicsp/sprt"
)

// AsyncFunc is a long-running side effect: given a snapshot of State
// taken at dispatch time, it returns the assignments to fold in upon
// completion. It must not retain or mutate the snapshot concurrently
// with the Ticker's own use of State; Ticker hands it the State current
// at dispatch, which later ticks replace rather than write through.
//
// The design mirrors §9 "Coroutines": an async action is a function
// taking a state snapshot and returning (pre_state, future-of-result),
// decomposed here into PreActions (the synchronous pre_state) and
// AsyncFunc (the future, represented as a blocking call run on its own
// goroutine and polled non-blockingly by harvestAsync).
type AsyncFunc func(ctx context.Context, snapshot *sprt.State) (map[sprt.Path]sprt.Value, error)

// AsyncTransition is an uncontrolled transition whose action is not
// evaluated synchronously within a tick: when its Guard holds and it is
// not already running, the Ticker applies PreActions immediately (e.g.
// an "in_progress" flag) and spawns Run in its own goroutine, harvesting
// the result on a later tick.
type AsyncTransition struct {
	Path       sprt.Path
	Guard      *sprt.Predicate
	PreActions []sprt.Action
	Run        AsyncFunc
}

type activeAsync struct {
	cancel context.CancelFunc
	result chan asyncResult
}

type asyncResult struct {
	assignments map[sprt.Path]sprt.Value
	err         error
}

// dispatchAsync is step 4 of the tick protocol: for every
// AsyncTransition whose guard holds and that is not already running,
// apply its synchronous pre-state and spawn its Run future.
func (t *Ticker) dispatchAsync(now time.Time) {
	for _, at := range t.async {
		key := at.Path.String()
		if _, running := t.active[key]; running {
			continue
		}
		guard := at.Guard
		if guard == nil {
			guard = sprt.True()
		}
		ok, err := guard.Eval(t.state, now)
		if err != nil || !ok {
			continue
		}
		assignments := make(map[sprt.Path]sprt.Value, len(at.PreActions))
		failed := false
		for _, a := range at.PreActions {
			v, err := a.Eval(t.state, now)
			if err != nil {
				failed = true
				break
			}
			assignments[a.Target()] = v
		}
		if failed {
			continue
		}
		next, err := t.state.WithValues(assignments)
		if err != nil {
			continue
		}
		t.state = next
		t.updateStatePaths()

		snapshot := t.state
		ctx, cancel := context.WithCancel(context.Background())
		resCh := make(chan asyncResult, 1)
		t.active[key] = &activeAsync{cancel: cancel, result: resCh}
		run := at.Run
		go func() {
			assignments, err := run(ctx, snapshot)
			resCh <- asyncResult{assignments: assignments, err: err}
			if t.wake != nil {
				select {
				case t.wake <- struct{}{}:
				default:
				}
			}
		}()
	}
}

// harvestAsync is step 3 of the tick protocol: poll every active async
// action non-blockingly; on completion, fold in its result (or, on
// error, drop the entry and surface a diagnostic to the caller via the
// returned slice).
func (t *Ticker) harvestAsync() []error {
	var diagnostics []error
	for key, active := range t.active {
		select {
		case res := <-active.result:
			delete(t.active, key)
			if res.err != nil {
				diagnostics = append(diagnostics, &sprt.ComputeError{Reason: "async action " + key + " failed: " + res.err.Error()})
				continue
			}
			if len(res.assignments) > 0 {
				next, err := t.state.WithValues(res.assignments)
				if err != nil {
					diagnostics = append(diagnostics, &sprt.ComputeError{Reason: "async action " + key + " result rejected: " + err.Error()})
					continue
				}
				t.state = next
				t.updateStatePaths()
			}
		default:
		}
	}
	return diagnostics
}

// Abort cancels every currently active async action's context and
// discards its eventual result, matching the Runner's cancellation
// contract: pending async completions are abandoned, not awaited.
func (t *Ticker) Abort() {
	for key, active := range t.active {
		active.cancel()
		delete(t.active, key)
	}
}

// ActiveAsyncPaths returns the paths of async transitions currently
// running, for diagnostics and the monitor.
func (t *Ticker) ActiveAsyncPaths() []sprt.Path {
	out := make([]sprt.Path, 0, len(t.active))
	for _, at := range t.async {
		if _, ok := t.active[at.Path.String()]; ok {
			out = append(out, at.Path)
		}
	}
	return out
}
