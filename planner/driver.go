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

package planner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/symbolicsp/sprt"
)

// Driver invokes the external BMC binary in interactive mode and
// decodes its output. The BMC backend itself, and the text-protocol
// details of its own command language, are outside the core's scope
// (§1); Driver only owns the script it issues and how it interprets
// stdout/stderr.
type Driver struct {
	// BinaryPath is the configured path to the BMC executable. Empty
	// means "resolve via the standard search" (§6 bmc_binary_path).
	BinaryPath string
	// FailedInputDir is the well-known directory failing BMC input is
	// persisted under for debugging (§4.7). Empty uses os.TempDir.
	FailedInputDir string
}

var syntaxErrorPattern = regexp.MustCompile(`(?m)^.*?:(\d+):\s*(.*(?i:error).*)$`)

// resolveBinary finds the BMC executable, honoring an explicit
// BinaryPath before falling back to PATH search (§6).
func (d *Driver) resolveBinary() (string, error) {
	if d.BinaryPath != "" {
		return d.BinaryPath, nil
	}
	for _, candidate := range []string{"nuXMV", "NuSMV"} {
		if p, err := exec.LookPath(candidate); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("planner: no bmc_binary_path configured and none of nuXMV, NuSMV found on PATH")
}

// RunOnce invokes the BMC binary once against problem, bounding
// check_ltlspec_bmc_inc to maxSteps, and decodes the resulting
// counterexample (if any) against model. A nil *Trace with a nil
// error means the BMC backend proved no counterexample
// exists within maxSteps (not a failure).
func (d *Driver) RunOnce(ctx context.Context, model *sprt.TransitionSystemModel, problem string, maxSteps int) (trace *Trace, err error) {
	bin, err := d.resolveBinary()
	if err != nil {
		return nil, &PlannerError{Reason: err.Error(), Source: problem}
	}

	input, err := os.CreateTemp("", "sprt-bmc-*.smv")
	if err != nil {
		return nil, &PlannerError{Reason: "creating bmc input file: " + err.Error(), Source: problem}
	}
	defer os.Remove(input.Name())
	if _, err := input.WriteString(problem); err != nil {
		input.Close()
		return nil, &PlannerError{Reason: "writing bmc input file: " + err.Error(), Source: problem}
	}
	if err := input.Close(); err != nil {
		return nil, &PlannerError{Reason: "closing bmc input file: " + err.Error(), Source: problem}
	}

	script := fmt.Sprintf("go_bmc\ncheck_ltlspec_bmc_inc -k %d\nshow_traces -v\nquit\n", maxSteps)

	cmd := exec.CommandContext(ctx, bin, "-int", input.Name())
	cmd.Stdin = bytes.NewBufferString(script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if line, msg, found := extractSyntaxDiagnostic(stderr.String()); found {
		persisted, _ := d.persistFailingInput(problem)
		return nil, &PlannerError{Reason: msg, Line: line, Source: persisted}
	}
	if runErr != nil {
		persisted, _ := d.persistFailingInput(problem)
		return nil, &PlannerError{Reason: "bmc process exited with an error: " + runErr.Error(), Source: persisted}
	}

	trace, ok, err := DecodeTrace(model, stdout.String())
	if err != nil {
		return nil, &PlannerError{Reason: "decoding bmc trace: " + err.Error()}
	}
	if !ok {
		return nil, nil
	}
	return trace, nil
}

// Search is the heuristic entry point (§4.7): it increases k from 1 to
// cutoff while elapsed < maxTime, returning the first successful trace.
// If no step count within that budget yields a counterexample, it
// returns (nil, nil): "no plan".
func (d *Driver) Search(ctx context.Context, model *sprt.TransitionSystemModel, problem string, cutoff int, maxTime time.Duration) (*Trace, error) {
	deadline := time.Now().Add(maxTime)
	for k := 1; k <= cutoff; k++ {
		if time.Now().After(deadline) {
			break
		}
		trace, err := d.RunOnce(ctx, model, problem, k)
		if err != nil {
			return nil, err
		}
		if trace != nil {
			// BMC search is monotonic in k: the first success at a given
			// bound is already the shortest counterexample nuXMV can
			// find at that bound, so there is no shorter one to keep
			// searching for.
			return trace, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	return nil, nil
}

func (d *Driver) persistFailingInput(problem string) (string, error) {
	dir := d.FailedInputDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "sprt-bmc-failed-input.smv")
	if err := os.WriteFile(path, []byte(problem), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// extractSyntaxDiagnostic scans stderr for a "<file>:<line>: ... error
// ..." style diagnostic, the shape nuXMV/NuSMV's parser emits for a
// malformed input file.
func extractSyntaxDiagnostic(stderr string) (line int, msg string, found bool) {
	m := syntaxErrorPattern.FindStringSubmatch(stderr)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, m[2], true
}
