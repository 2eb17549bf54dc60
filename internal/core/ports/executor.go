// Package ports defines the core interfaces for the application.
package ports

import "context"

// CommandResult captures one finished tool invocation.
type CommandResult struct {
	Argv     []string
	Output   string // combined stdout+stderr
	ExitCode int
}

// Executor runs external commands.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Run spawns argv as a child process with no shell interpolation,
	// capturing combined stdout+stderr. A non-zero exit status returns both
	// the result (with its output and exit code) and an error wrapping
	// domain.ErrBuildFailed.
	Run(ctx context.Context, argv []string) (*CommandResult, error)
}
