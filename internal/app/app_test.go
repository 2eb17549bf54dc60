package app_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/adapters/store"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/discovery"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/forge/internal/ui/output"
	"go.uber.org/mock/gomock"
)

// buildFixture is the HelloWorld project on disk plus everything Build
// needs with the toolchain mocked out: the executor "creates" output files
// instead of running compilers.
type buildFixture struct {
	root    string
	opts    app.BuildOptions
	headerH string

	executor *mocks.MockExecutor
	scanner  *mocks.MockDepScanner
}

func newBuildFixture(t *testing.T, ctrl *gomock.Controller) *buildFixture {
	t.Helper()
	root := t.TempDir()
	writeSource(t, root, "src/planet.c")
	writeSource(t, root, "src/main.C")
	writeSource(t, root, "src/include/planet.h")

	return &buildFixture{
		root:    root,
		headerH: filepath.Join(root, "src", "include", "planet.h"),
		opts: app.BuildOptions{
			ProjectPath: filepath.Join(root, "forge.yaml"),
			SrcRoot:     root,
			ObjRoot:     filepath.Join(root, "out"),
			CC:          "/usr/bin/gcc",
			CXX:         "/usr/bin/g++",
			Jobs:        2,
			Build:       domain.BuildDebug,
			Link:        domain.LinkDynamic,
		},
		executor: mocks.NewMockExecutor(ctrl),
		scanner:  mocks.NewMockDepScanner(ctrl),
	}
}

// newApp assembles an App over the fixture's mocks and the real store,
// hasher, discovery, and scheduler.
func (f *buildFixture) newApp(t *testing.T, ctrl *gomock.Controller) *app.App {
	t.Helper()

	loader := mocks.NewMockProjectLoader(ctrl)
	loader.EXPECT().Load(f.opts.ProjectPath).Return(helloProject(), nil)

	prober := mocks.NewMockProber(ctrl)
	prober.EXPECT().Probe(gomock.Any(), "/usr/bin/gcc", "/usr/bin/g++").Return(&domain.Toolchain{
		CCPath:            "/usr/bin/gcc",
		CXXPath:           "/usr/bin/g++",
		ARPath:            "/usr/bin/ar",
		SystemIncludeDirs: []string{"/usr/include"},
		Cores:             2,
	}, nil)

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	hasher := fs.NewHasher()
	disc := discovery.New(f.scanner, hasher, logger)
	sched := scheduler.NewScheduler(f.executor, logger)

	return app.New(loader, prober, disc, sched, hasher, store.Open, logger, output.NewPrinterTo(io.Discard))
}

// expectScans wires the per-source header lists: main.C includes planet.h
// transitively, planet.c includes nothing of the user's.
func (f *buildFixture) expectScans(t *testing.T) {
	t.Helper()
	f.scanner.EXPECT().
		ScanIncludes(gomock.Any(), gomock.Any(), filepath.Join(f.root, "src", "planet.c"), gomock.Any()).
		Return([]string{"/usr/include/stdio.h"}, nil)
	f.scanner.EXPECT().
		ScanIncludes(gomock.Any(), gomock.Any(), filepath.Join(f.root, "src", "main.C"), gomock.Any()).
		Return([]string{f.headerH, "/usr/include/iostream"}, nil)
}

// expectCommands lets every spawned command succeed after touching its
// output path, mimicking the tool's effect on disk.
func (f *buildFixture) expectCommands(t *testing.T, times int) *[]string {
	t.Helper()
	var (
		mu  sync.Mutex
		ran []string
	)
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, argv []string) (*ports.CommandResult, error) {
			out := outputArg(argv)
			require.NotEmpty(t, out, "command has no output path: %v", argv)
			require.NoError(t, os.MkdirAll(filepath.Dir(out), 0o750))
			require.NoError(t, os.WriteFile(out, []byte("artifact"), 0o644))
			mu.Lock()
			ran = append(ran, out)
			mu.Unlock()
			return &ports.CommandResult{Argv: argv}, nil
		}).Times(times)
	return &ran
}

func outputArg(argv []string) string {
	for i, a := range argv {
		if a == "-o" && i+1 < len(argv) {
			return argv[i+1]
		}
	}
	if len(argv) >= 3 && argv[1] == "rcs" {
		return argv[2]
	}
	return ""
}

// First run: two compiles, one library link, one executable link. Second
// run with nothing changed: zero subprocesses, including the preprocessor.
func TestAppBuildAndIncrementalNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBuildFixture(t, ctrl)

	f.expectScans(t)
	ran := f.expectCommands(t, 4)
	require.NoError(t, f.newApp(t, ctrl).Build(context.Background(), f.opts))
	assert.Len(t, *ran, 4)

	// The cache has one record per produced target plus the global header.
	st, err := store.Open(filepath.Join(f.opts.ObjRoot, "dynamic_debug.db"))
	require.NoError(t, err)
	keys := 0
	require.NoError(t, st.Iterate(func(string, []byte) error { keys++; return nil }))
	require.NoError(t, st.Close())
	assert.Equal(t, 5, keys)

	// Re-run: no scans (discovery reuses cached results), no commands.
	require.NoError(t, f.newApp(t, ctrl).Build(context.Background(), f.opts))
}

// Touching a header transitively included by main.C rebuilds main.o and
// relinks hello; the library stays untouched.
func TestAppHeaderChangeRebuildsConsumersOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBuildFixture(t, ctrl)

	f.expectScans(t)
	f.expectCommands(t, 4)
	require.NoError(t, f.newApp(t, ctrl).Build(context.Background(), f.opts))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(f.headerH, future, future))

	ran := f.expectCommands(t, 2)
	require.NoError(t, f.newApp(t, ctrl).Build(context.Background(), f.opts))

	assert.Contains(t, *ran, filepath.Join(f.opts.ObjRoot, "main_debug.o"))
	assert.Contains(t, *ran, filepath.Join(f.opts.ObjRoot, "hello_debug"))
}

// Changing a global option set invalidates the entire cache: every target
// rebuilds.
func TestAppGlobalOptionChangeInvalidatesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newBuildFixture(t, ctrl)

	f.expectScans(t)
	f.expectCommands(t, 4)
	app1 := f.newApp(t, ctrl)
	require.NoError(t, app1.Build(context.Background(), f.opts))

	// Second invocation with a different compile set. The loader mock in
	// newApp returns the unmodified project, so rebuild the app by hand
	// with changed globals.
	changed := helloProject()
	changed.Globals[domain.ProcCC] = []string{"-O0", "-g", "-Wall"}

	loader := mocks.NewMockProjectLoader(ctrl)
	loader.EXPECT().Load(gomock.Any()).Return(changed, nil)
	prober := mocks.NewMockProber(ctrl)
	prober.EXPECT().Probe(gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Toolchain{
		CCPath:            "/usr/bin/gcc",
		CXXPath:           "/usr/bin/g++",
		ARPath:            "/usr/bin/ar",
		SystemIncludeDirs: []string{"/usr/include"},
		Cores:             2,
	}, nil)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	f.expectScans(t)
	ran := f.expectCommands(t, 4)

	hasher := fs.NewHasher()
	a := app.New(loader, prober,
		discovery.New(f.scanner, hasher, logger),
		scheduler.NewScheduler(f.executor, logger),
		hasher, store.Open, logger, output.NewPrinterTo(io.Discard))
	require.NoError(t, a.Build(context.Background(), f.opts))
	assert.Len(t, *ran, 4)
}
