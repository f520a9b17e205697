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

package monitor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/symbolicsp/sprt"
)

func TestPlainDumpSortsByPath(t *testing.T) {
	v1, err := sprt.NewVariable(sprt.PathFrom("z"), sprt.Bool, sprt.Estimated, nil, sprt.NewBool(true))
	if err != nil {
		t.Fatal(err)
	}
	v2, err := sprt.NewVariable(sprt.PathFrom("a"), sprt.Bool, sprt.Estimated, nil, sprt.NewBool(false))
	if err != nil {
		t.Fatal(err)
	}
	state := sprt.NewStateFromVariables([]*sprt.Variable{v1, v2})

	var buf bytes.Buffer
	if err := PlainDump(&buf, state); err != nil {
		t.Fatalf("PlainDump: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "a") || !strings.HasPrefix(lines[1], "z") {
		t.Errorf("expected paths sorted a before z, got:\n%s", buf.String())
	}
}
