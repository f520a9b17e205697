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
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/symbolicsp/sprt"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the demo model's variables and transitions as a tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := buildDemoModel()
			if err != nil {
				return fmt.Errorf("building demo model: %w", err)
			}
			fmt.Println(renderModel(model))
			return nil
		},
	}
}

// renderModel lays the model's variables and transitions out under
// their path prefixes, one treeprint branch per top-level resource.
func renderModel(model *sprt.TransitionSystemModel) string {
	root := treeprint.New()
	root.SetValue("model")

	variables := root.AddBranch("variables")
	vs := append([]*sprt.Variable(nil), model.Variables()...)
	sort.Slice(vs, func(i, j int) bool { return vs[i].Path().Compare(vs[j].Path()) < 0 })
	for _, v := range vs {
		variables.AddNode(fmt.Sprintf("%s  (%s, %s, initial=%s)", v.Path(), v.Kind(), v.Type(), v.Initial()))
	}

	transitions := root.AddBranch("transitions")
	ts := append([]*sprt.Transition(nil), model.Transitions()...)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Path().Compare(ts[j].Path()) < 0 })
	for _, t := range ts {
		transitions.AddNode(fmt.Sprintf("%s  (%s)  guard: %s", t.Path(), t.Kind(), t.Guard()))
	}

	return root.String()
}
