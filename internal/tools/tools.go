// Package tools wraps the external command-line converters the pipeline
// depends on. Every invocation is blocking; a non-zero exit is surfaced as
// an error naming the tool and the offending input file so the run can abort
// with a usable diagnostic.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

var ErrToolNotFound = errors.New("external tool not found in PATH")

// Tool is an argv prefix for an external converter. The input path and
// `-o <output>` are appended on each invocation.
type Tool struct {
	Name string   // role of the tool in log output (e.g. "image_converter")
	Argv []string // command and fixed arguments
}

// NewTool builds a Tool from a configured argv prefix.
func NewTool(name string, argv []string) Tool {
	return Tool{Name: name, Argv: argv}
}

// Command returns the executable name.
func (t Tool) Command() string {
	if len(t.Argv) == 0 {
		return ""
	}
	return t.Argv[0]
}

// Check verifies the executable can be resolved via PATH. Absolute paths
// are accepted as-is by LookPath.
func (t Tool) Check() error {
	if t.Command() == "" {
		return fmt.Errorf("%s: empty command", t.Name)
	}
	if _, err := exec.LookPath(t.Command()); err != nil {
		return fmt.Errorf("%w: %s (%s)", ErrToolNotFound, t.Command(), t.Name)
	}
	return nil
}

// args assembles the full argument list for one invocation.
func (t Tool) args(input, output string) []string {
	args := make([]string, 0, len(t.Argv)+2)
	args = append(args, t.Argv[1:]...)
	args = append(args, input, "-o", output)
	return args
}

// Run invokes the tool on input, writing output. Stdout/stderr are captured
// and included in the error on failure.
func (t Tool) Run(ctx context.Context, input, output string) error {
	cmd := exec.CommandContext(ctx, t.Command(), t.args(input, output)...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	if err := cmd.Run(); err != nil {
		msg := bytes.TrimSpace(combined.Bytes())
		if len(msg) > 0 {
			return fmt.Errorf("%s (%s) failed on %s: %w: %s", t.Name, t.Command(), input, err, msg)
		}
		return fmt.Errorf("%s (%s) failed on %s: %w", t.Name, t.Command(), input, err)
	}
	return nil
}
