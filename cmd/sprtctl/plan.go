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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/symbolicsp/sprt/planner"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Run the BMC planner once against the demo model's initial state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return planOnce()
		},
	}
}

// planOnce encodes the demo model and its goals, invokes the planner
// once (no cache, no background task — a direct, synchronous call
// suited to ad-hoc inspection), and prints the resulting trace.
func planOnce() error {
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

	problem, err := planner.Encode(model, initial, goals)
	if err != nil {
		return fmt.Errorf("encoding planning problem: %w", err)
	}

	driver := &planner.Driver{BinaryPath: cfg.BMCBinaryPath, FailedInputDir: cfg.PlanCacheDir}
	trace, err := driver.Search(context.Background(), model, problem, cfg.BMCCutoff, cfg.BMCMaxTime)
	if err != nil {
		return fmt.Errorf("planner search: %w", err)
	}
	if trace == nil {
		fmt.Println("no plan found within the configured cutoff/time budget")
		return nil
	}

	fmt.Println("plan found:")
	for i, p := range trace.Transitions() {
		fmt.Printf("  %d: %s\n", i+1, p)
	}
	return nil
}
