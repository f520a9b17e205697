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

// Package runner coordinates the Ticker, Merger, and Planner as the
// three async tasks of SPEC_FULL §5, wired over channels the way
// original_source/sp_runner/src/runner.rs's launch_model/runner/planner
// functions do, restructured onto goroutines, context.Context, and
// github.com/joeycumines/go-behaviortree's Ticker/Manager for the clock
// task the way examples/tcell-pick-and-place/main.go supervises its
// per-actor bt.Ticker instances.
package runner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/symbolicsp/sprt"
	"github.com/symbolicsp/sprt/planner"
	"github.com/symbolicsp/sprt/ticker"
)

// message is the SPRunnerInput sum type of the runner (§4.8): Tick,
// StateChange, or NewPlan, delivered to the single ticker task.
type message interface{ isRunnerMessage() }

type tickMessage struct{}

func (tickMessage) isRunnerMessage() {}

type stateChangeMessage struct{ change ticker.StateChange }

func (stateChangeMessage) isRunnerMessage() {}

type newPlanMessage struct{ paths []sprt.Path }

func (newPlanMessage) isRunnerMessage() {}

// Runner owns a Ticker and drives it from three concurrent tasks: a
// clock that sends Tick at a fixed period, a merger that folds external
// StateChange messages, and a planner that recomputes a plan whenever
// the broadcast state changes. All three only ever talk to the ticker
// task over channels (msgs, and the merger's Out channel); the Ticker
// itself is confined to the single goroutine running Run, matching the
// cooperative single-producer model of SPEC_FULL §6.
type Runner struct {
	cfg   Config
	model *sprt.TransitionSystemModel
	goals []planner.Goal

	tk     *ticker.Ticker
	merger *ticker.Merger
	driver *planner.Driver
	cache  *planner.Cache

	modelText string
	modelHash string

	msgs chan message
	wake chan struct{}

	state *watch

	manager *bt.Manager
}

// New assembles a Runner over model, starting from initial state, with
// async declaring the model's long-running side-effecting transitions
// and goals the predicates the planner task tries to satisfy. sources
// are external partial-state-update channels fed into the Merger (the
// messaging adapter's inbound side); pass none if there are none.
func New(cfg Config, model *sprt.TransitionSystemModel, initial *sprt.State, async []*ticker.AsyncTransition, goals []planner.Goal, driver *planner.Driver, cache *planner.Cache, done <-chan struct{}, sources ...<-chan map[sprt.Path]sprt.Value) (*Runner, error) {
	wake := make(chan struct{}, 1)
	r := &Runner{
		cfg:    cfg,
		model:  model,
		goals:  goals,
		tk:     ticker.New(model, initial, async, wake),
		merger: ticker.NewMerger(done, sources...),
		driver: driver,
		cache:  cache,
		msgs:   make(chan message, 2),
		wake:   wake,
		state:  newWatch(initial),
	}

	modelText, err := planner.EncodeOffline(model, sprt.True(), goals)
	if err != nil {
		return nil, err
	}
	r.modelText = modelText
	sum := sha256.Sum256([]byte(modelText))
	r.modelHash = hex.EncodeToString(sum[:])
	return r, nil
}

// ModelHash returns the hex SHA-256 digest identifying this Runner's
// model structure, the same hash planner.LoadStore uses to name its
// cache file on disk.
func (r *Runner) ModelHash() string { return r.modelHash }

// State returns the most recently broadcast State.
func (r *Runner) State() *sprt.State {
	s, _ := r.state.Get()
	return s
}

// Watch returns a channel that closes the next time the broadcast state
// changes, for external adapters (messaging, monitor) to select on
// alongside State.
func (r *Runner) Watch() <-chan struct{} {
	_, ch := r.state.Get()
	return ch
}

// Run starts the clock, merger, and planner tasks and then runs the
// ticker task until ctx is cancelled, at which point it aborts every
// pending async action (§5 "Cancellation": pending async
// completions are abandoned) and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	done := ctx.Done()
	go r.merger.Run(done)
	go r.plannerTask(ctx)

	r.manager = bt.NewManager()
	clock := bt.NewTicker(ctx, r.cfg.TickPeriod, bt.New(r.clockTick))
	if err := r.manager.Add(clock); err != nil {
		return err
	}
	defer r.manager.Stop()

	for {
		select {
		case <-ctx.Done():
			r.tk.Abort()
			return ctx.Err()
		case <-r.wake:
			r.handle(tickMessage{})
		case change := <-r.merger.Out():
			r.handle(stateChangeMessage{change: change})
		case m := <-r.msgs:
			r.handle(m)
		}
	}
}

// clockTick is the bt.Tick driving the clock task: it posts a Tick
// message without blocking, so a tick the ticker task hasn't yet
// consumed is skipped rather than queued (§4.8 "Clock task").
func (r *Runner) clockTick([]bt.Node) (bt.Status, error) {
	select {
	case r.msgs <- tickMessage{}:
	default:
	}
	return bt.Success, nil
}

// handle processes one SPRunnerInput message against the Ticker and
// broadcasts the resulting state, per §4.8's Ticker task
// description.
func (r *Runner) handle(m message) {
	switch v := m.(type) {
	case tickMessage:
		r.tick()
	case stateChangeMessage:
		r.applyStateChange(v.change)
	case newPlanMessage:
		r.tk.SetControlledQueue(v.paths)
	}
	for _, err := range r.tk.Diagnostics() {
		log.Printf("runner: tick diagnostic: %v\n", err)
	}
	r.state.Set(r.tk.State())
}

func (r *Runner) tick() {
	if _, err := r.tk.Tick(); err != nil {
		log.Printf("runner: tick error: %v\n", err)
	}
}

// applyStateChange implements §4.8's StateChange handling: a change
// that introduces no new assignments leaves the Ticker's state and
// handles untouched (handle then re-broadcasts the unchanged state),
// while a genuine change folds the update in and still runs a full tick
// so derived state and saturation observe it immediately.
func (r *Runner) applyStateChange(change ticker.StateChange) {
	current := r.tk.State()
	changed := false
	for p, v := range change.Assignments {
		if existing, ok := current.Get(p); !ok || !existing.Equal(v) {
			changed = true
			break
		}
	}
	if !changed {
		return
	}
	if err := r.tk.Extend(change.Assignments); err != nil {
		log.Printf("runner: state change rejected: %v\n", err)
		return
	}
	r.tick()
}

// plannerTask watches the broadcast state and, on every change, offloads
// a plan computation to the Cache (which itself returns a heuristic
// result immediately while the full BMC search runs in the background),
// sending NewPlan back to the ticker task on success.
func (r *Runner) plannerTask(ctx context.Context) {
	state, changed := r.state.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
		state, changed = r.state.Get()
		r.recomputePlan(ctx, state)
	}
}

func (r *Runner) recomputePlan(ctx context.Context, state *sprt.State) {
	paths := make([]sprt.Path, 0, len(r.model.Variables()))
	for _, v := range r.model.Variables() {
		paths = append(paths, v.Path())
	}
	filtered := state.FilterByPaths(paths)
	key, err := planner.CacheKey(r.modelText, filtered, r.goals, nil)
	if err != nil {
		log.Printf("runner: computing plan cache key: %v\n", err)
		return
	}

	heuristic := func() (*planner.PlanningResult, error) {
		return &planner.PlanningResult{Found: false}, nil
	}
	compute := func() (*planner.PlanningResult, error) {
		problem, err := planner.Encode(r.model, state, r.goals)
		if err != nil {
			return nil, err
		}
		trace, err := r.driver.Search(ctx, r.model, problem, r.cfg.BMCCutoff, r.cfg.BMCMaxTime)
		if err != nil {
			return nil, err
		}
		if trace == nil {
			return &planner.PlanningResult{Found: false}, nil
		}
		return &planner.PlanningResult{Found: true, Trace: trace}, nil
	}

	var result *planner.PlanningResult
	if r.cfg.PlanCacheEnabled && r.cache != nil {
		result, err = r.cache.PlanWithCache(key, heuristic, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Printf("runner: planner task: %v\n", err)
		return
	}
	if result == nil || !result.Found || result.Trace == nil {
		return
	}

	select {
	case r.msgs <- newPlanMessage{paths: result.Trace.Transitions()}:
	case <-ctx.Done():
	}
}
