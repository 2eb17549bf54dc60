// Package shell provides the subprocess executor adapter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec. Commands are spawned
// with a fully qualified argv; nothing is passed through a shell.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// Run spawns argv[0] with argv[1:], capturing combined stdout+stderr. A
// non-zero exit returns the result alongside an error wrapping
// domain.ErrBuildFailed so callers can report the output.
func (e *Executor) Run(ctx context.Context, argv []string) (*ports.CommandResult, error) {
	if len(argv) == 0 {
		return nil, zerr.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // argv is assembled by the command builder

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	res := &ports.CommandResult{
		Argv:   argv,
		Output: buf.String(),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, zerr.With(zerr.With(domain.ErrBuildFailed,
			"tool", argv[0]), "exit_code", res.ExitCode)
	}

	// Spawn failure: the tool never ran.
	res.ExitCode = -1
	spawnErr := zerr.With(zerr.Wrap(err, "failed to spawn command"), "tool", argv[0])
	e.logger.Error(spawnErr)
	return res, spawnErr
}
