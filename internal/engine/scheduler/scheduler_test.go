package scheduler_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
	"go.trai.ch/zerr"
)

// helloGraph builds the HelloWorld shape: two objects, one shared library,
// one executable.
func helloGraph(t *testing.T) (*domain.Graph, map[string]*domain.Target) {
	t.Helper()
	g := domain.NewGraph()

	targets := map[string]*domain.Target{}
	add := func(tg *domain.Target) {
		require.NoError(t, g.AddTarget(tg))
		targets[tg.Out.String()] = tg
	}

	add(&domain.Target{Out: domain.Intern("/src/planet.c"), Kind: domain.TargetSource})
	add(&domain.Target{Out: domain.Intern("/src/main.C"), Kind: domain.TargetSource})
	add(&domain.Target{
		Out: domain.Intern("/out/planet_debug.o"), Kind: domain.TargetObject,
		Lang: domain.LangC, Source: domain.Intern("/src/planet.c"),
	})
	add(&domain.Target{
		Out: domain.Intern("/out/main_debug.o"), Kind: domain.TargetObject,
		Lang: domain.LangCXX, Source: domain.Intern("/src/main.C"),
	})
	add(&domain.Target{
		Out: domain.Intern("/out/libPlanet_debug.so"), Kind: domain.TargetSharedLibrary,
		Name: "Planet", Lang: domain.LangC,
		Objects: []domain.InternedString{domain.Intern("/out/planet_debug.o")},
	})
	add(&domain.Target{
		Out: domain.Intern("/out/hello_debug"), Kind: domain.TargetExecutable,
		Name: "hello", Lang: domain.LangCXX,
		Objects: []domain.InternedString{domain.Intern("/out/main_debug.o")},
		Libs:    []domain.InternedString{domain.Intern("/out/libPlanet_debug.so")},
	})

	require.NoError(t, g.Validate())
	return g, targets
}

func items(targets map[string]*domain.Target, outs ...string) []*scheduler.Item {
	var list []*scheduler.Item
	for _, out := range outs {
		list = append(list, &scheduler.Item{Target: targets[out], Argv: []string{"tool", out}})
	}
	return list
}

// A target's command runs strictly after every stale predecessor's command
// has returned success.
func TestSchedulerRunOrdering(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, targets := helloGraph(t)

	var (
		mu    sync.Mutex
		order []string
	)
	mockExec := mocks.NewMockExecutor(ctrl)
	mockExec.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, argv []string) (*ports.CommandResult, error) {
			mu.Lock()
			order = append(order, argv[1])
			mu.Unlock()
			return &ports.CommandResult{Argv: argv}, nil
		}).Times(4)

	s := scheduler.NewScheduler(mockExec, mocks.NewMockLogger(ctrl))
	res, err := s.Run(context.Background(), g, items(targets,
		"/out/planet_debug.o", "/out/main_debug.o",
		"/out/libPlanet_debug.so", "/out/hello_debug",
	), 2)
	require.NoError(t, err)
	assert.Len(t, res.Built, 4)
	assert.Zero(t, s.Remaining())

	idx := func(out string) int { return slices.Index(order, out) }
	assert.Less(t, idx("/out/planet_debug.o"), idx("/out/libPlanet_debug.so"))
	assert.Less(t, idx("/out/libPlanet_debug.so"), idx("/out/hello_debug"))
	assert.Less(t, idx("/out/main_debug.o"), idx("/out/hello_debug"))

	for _, out := range order {
		assert.True(t, targets[out].Rebuilt, out)
	}
}

// A target whose predecessors are already up to date runs immediately; a
// predecessor inside the stale set gates its consumers.
func TestSchedulerRunPartialPlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, targets := helloGraph(t)

	var (
		mu    sync.Mutex
		order []string
	)
	mockExec := mocks.NewMockExecutor(ctrl)
	mockExec.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, argv []string) (*ports.CommandResult, error) {
			mu.Lock()
			order = append(order, argv[1])
			mu.Unlock()
			return &ports.CommandResult{Argv: argv}, nil
		}).Times(2)

	// Header-change shape: main.o rebuilds, the library does not, hello
	// relinks.
	s := scheduler.NewScheduler(mockExec, mocks.NewMockLogger(ctrl))
	res, err := s.Run(context.Background(), g, items(targets,
		"/out/main_debug.o", "/out/hello_debug",
	), 2)
	require.NoError(t, err)
	assert.Len(t, res.Built, 2)
	assert.Equal(t, []string{"/out/main_debug.o", "/out/hello_debug"}, order)
}

// After the first failure no new command starts and every worker exits in
// bounded time.
func TestSchedulerFailFast(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, targets := helloGraph(t)

	release := make(chan struct{})
	var started sync.Map

	mockExec := mocks.NewMockExecutor(ctrl)
	mockExec.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, argv []string) (*ports.CommandResult, error) {
			started.Store(argv[1], true)
			switch argv[1] {
			case "/out/planet_debug.o":
				return &ports.CommandResult{Argv: argv, ExitCode: 1, Output: "syntax error"},
					zerr.With(domain.ErrBuildFailed, "exit_code", 1)
			case "/out/main_debug.o":
				// In-flight sibling runs to completion; it is not killed.
				<-release
				return &ports.CommandResult{Argv: argv}, nil
			default:
				t.Errorf("command for %s must not start after failure", argv[1])
				return &ports.CommandResult{Argv: argv}, nil
			}
		}).AnyTimes()

	s := scheduler.NewScheduler(mockExec, mocks.NewMockLogger(ctrl))

	done := make(chan error, 1)
	var res *scheduler.Result
	go func() {
		var err error
		res, err = s.Run(context.Background(), g, items(targets,
			"/out/planet_debug.o", "/out/main_debug.o",
			"/out/libPlanet_debug.so", "/out/hello_debug",
		), 2)
		done <- err
	}()

	// Give the failure time to surface, then let the sibling finish.
	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not terminate after failure")
	}

	assert.Equal(t, "/out/planet_debug.o", res.Failed.String())
	require.NotNil(t, res.FailedResult)
	assert.Equal(t, 1, res.FailedResult.ExitCode)

	_, libStarted := started.Load("/out/libPlanet_debug.so")
	assert.False(t, libStarted)
	_, exeStarted := started.Load("/out/hello_debug")
	assert.False(t, exeStarted)
}

// Later failures are logged, not promoted over the first.
func TestSchedulerSecondFailureLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, targets := helloGraph(t)

	gate := make(chan struct{})
	running := make(chan struct{})
	mockExec := mocks.NewMockExecutor(ctrl)
	mockExec.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, argv []string) (*ports.CommandResult, error) {
			switch argv[1] {
			case "/out/planet_debug.o":
				// Fail only once the sibling command is in flight, so
				// fail-fast cannot keep it from starting.
				<-running
				close(gate)
				return nil, zerr.With(domain.ErrBuildFailed, "exit_code", 1)
			default:
				close(running)
				<-gate
				// Let the first failure win the race for the error slot.
				time.Sleep(20 * time.Millisecond)
				return nil, zerr.With(domain.ErrBuildFailed, "exit_code", 2)
			}
		}).Times(2)

	mockLog := mocks.NewMockLogger(ctrl)
	mockLog.EXPECT().Error(gomock.Any()).Times(1)

	s := scheduler.NewScheduler(mockExec, mockLog)
	res, err := s.Run(context.Background(), g, items(targets,
		"/out/planet_debug.o", "/out/main_debug.o",
	), 2)
	require.Error(t, err)
	assert.Equal(t, "/out/planet_debug.o", res.Failed.String())
}

// Two mutually-dependent stale libraries are valid input: the closing edge
// of a recorded link cycle carries no ordering constraint, so the pool
// drains instead of deadlocking.
func TestSchedulerLibraryCycleDrains(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g := domain.NewGraph()
	a := &domain.Target{
		Out:  domain.Intern("/out/libA_debug.so"),
		Kind: domain.TargetSharedLibrary,
		Name: "A",
		Lang: domain.LangC,
		Libs: []domain.InternedString{domain.Intern("/out/libB_debug.so")},
	}
	b := &domain.Target{
		Out:  domain.Intern("/out/libB_debug.so"),
		Kind: domain.TargetSharedLibrary,
		Name: "B",
		Lang: domain.LangC,
		Libs: []domain.InternedString{domain.Intern("/out/libA_debug.so")},
	}
	require.NoError(t, g.AddTarget(a))
	require.NoError(t, g.AddTarget(b))
	require.NoError(t, g.Validate())

	mockExec := mocks.NewMockExecutor(ctrl)
	mockExec.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&ports.CommandResult{}, nil).Times(2)

	s := scheduler.NewScheduler(mockExec, mocks.NewMockLogger(ctrl))

	done := make(chan error, 1)
	var res *scheduler.Result
	go func() {
		var err error
		res, err = s.Run(context.Background(), g, []*scheduler.Item{
			{Target: a, Argv: []string{"tool", a.Out.String()}},
			{Target: b, Argv: []string{"tool", b.Out.String()}},
		}, 2)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler deadlocked on a library cycle")
	}
	assert.Len(t, res.Built, 2)
}

func TestSchedulerEmptyPlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, _ := helloGraph(t)
	s := scheduler.NewScheduler(mocks.NewMockExecutor(ctrl), mocks.NewMockLogger(ctrl))
	res, err := s.Run(context.Background(), g, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, res.Built)
}
