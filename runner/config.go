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
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the options recognized by the runner (see SPEC_FULL §2).
type Config struct {
	TickPeriod       time.Duration `yaml:"tick_period"`
	BMCMaxSteps      int           `yaml:"bmc_max_steps"`
	BMCCutoff        int           `yaml:"bmc_cutoff"`
	BMCLookout       int           `yaml:"bmc_lookout"`
	BMCMaxTime       time.Duration `yaml:"bmc_max_time"`
	PlanCacheEnabled bool          `yaml:"plan_cache_enabled"`
	PlanCacheDir     string        `yaml:"plan_cache_dir"`
	BMCBinaryPath    string        `yaml:"bmc_binary_path"`
}

// DefaultConfig returns the config with the runner's built-in default
// for every option.
func DefaultConfig() Config {
	return Config{
		TickPeriod:       500 * time.Millisecond,
		BMCMaxSteps:      20,
		BMCCutoff:        20,
		BMCLookout:       3,
		BMCMaxTime:       5 * time.Second,
		PlanCacheEnabled: true,
		PlanCacheDir:     ".sprt-cache",
	}
}

// LoadConfig reads and decodes a YAML config file, seeding unset fields
// from DefaultConfig first so a partial file only overrides what it
// names.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("runner: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("runner: parsing config %s: %w", path, err)
	}
	return cfg, nil
}
