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

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/symbolicsp/sprt"
	"github.com/symbolicsp/sprt/monitor"
	"github.com/symbolicsp/sprt/planner"
	"github.com/symbolicsp/sprt/runner"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the demo model's runner loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
}

// runDemo wires the demo model into a Runner, exactly the assembly a
// real deployment's main would do against its own model, and drives it
// until Ctrl-C, the tcell-pick-and-place main.go's signal-handling
// idiom.
func runDemo() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	model, err := buildDemoModel()
	if err != nil {
		return fmt.Errorf("building demo model: %w", err)
	}
	goals := demoGoals()
	initial := model.InitialState()

	modelText, err := planner.EncodeOffline(model, sprt.True(), goals)
	if err != nil {
		return fmt.Errorf("encoding offline model: %w", err)
	}
	sum := sha256.Sum256([]byte(modelText))
	modelHash := hex.EncodeToString(sum[:])

	var cache *planner.Cache
	if cfg.PlanCacheEnabled {
		cache = planner.NewCache(planner.LoadStore(cfg.PlanCacheDir, modelHash))
	}
	driver := &planner.Driver{BinaryPath: cfg.BMCBinaryPath, FailedInputDir: cfg.PlanCacheDir}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)
	go func() {
		<-signals
		cancel()
	}()

	r, err := runner.New(cfg, model, initial, nil, goals, driver, cache, ctx.Done())
	if err != nil {
		return fmt.Errorf("constructing runner: %w", err)
	}

	runErrs := make(chan error, 1)
	go func() { runErrs <- r.Run(ctx) }()

	if monitor.IsInteractive() {
		screen, err := tcell.NewScreen()
		if err == nil {
			err = screen.Init()
		}
		if err != nil {
			log.Printf("screen init error, falling back to plain output: %v\n", err)
			return plainWatch(ctx, r, runErrs)
		}
		defer screen.Fini()

		m := monitor.New(r, screen)
		if err := m.Run(ctx.Done()); err != nil {
			return err
		}
		cancel()
		return waitRunErr(runErrs)
	}

	return plainWatch(ctx, r, runErrs)
}

// plainWatch dumps the runner's state every time it changes, for
// non-interactive terminals (piped stdout, CI logs) where a full-screen
// tcell dashboard would not render sensibly.
func plainWatch(ctx context.Context, r *runner.Runner, runErrs chan error) error {
	changed := r.Watch()
	for {
		select {
		case <-ctx.Done():
			return waitRunErr(runErrs)
		case err := <-runErrs:
			return err
		case <-changed:
			changed = r.Watch()
			if err := monitor.PlainDump(os.Stdout, r.State()); err != nil {
				return err
			}
			fmt.Println("---")
		}
	}
}

func waitRunErr(runErrs chan error) error {
	err := <-runErrs
	if err == context.Canceled {
		return nil
	}
	return err
}
