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
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/symbolicsp/sprt"
	"github.com/symbolicsp/sprt/planner"
)

func newCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "Report the demo model's plan cache hit/lookup counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cacheStats()
		},
	}
}

func cacheStats() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	model, err := buildDemoModel()
	if err != nil {
		return fmt.Errorf("building demo model: %w", err)
	}
	goals := demoGoals()

	modelText, err := planner.EncodeOffline(model, sprt.True(), goals)
	if err != nil {
		return fmt.Errorf("encoding offline model: %w", err)
	}
	sum := sha256.Sum256([]byte(modelText))
	modelHash := hex.EncodeToString(sum[:])

	store := planner.LoadStore(cfg.PlanCacheDir, modelHash)
	hits, lookups := store.Stats()
	fmt.Printf("plan cache dir:  %s\n", cfg.PlanCacheDir)
	fmt.Printf("model hash:      %s\n", modelHash)
	fmt.Printf("lookups:         %d\n", lookups)
	fmt.Printf("hits:            %d\n", hits)
	return nil
}
