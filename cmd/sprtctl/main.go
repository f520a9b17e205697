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

// Command sprtctl drives the demo two-door model through the runner,
// planner, and messaging packages, in the spf13/cobra harness style of
// opal's cli/main.go and devcmd's runtime/cli/harness.go: one root
// command carrying persistent flags, subcommands doing the work.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/symbolicsp/sprt/runner"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sprtctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sprtctl",
		Short:         "Inspect and drive a symbolic control runtime model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a runner config file (defaults built in if omitted)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newCacheCmd())
	return root
}

func loadConfig() (runner.Config, error) {
	if configPath == "" {
		return runner.DefaultConfig(), nil
	}
	return runner.LoadConfig(configPath)
}
