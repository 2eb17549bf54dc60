package domain_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
)

func source(path string) *domain.Target {
	return &domain.Target{Out: domain.Intern(path), Kind: domain.TargetSource}
}

func object(out, src string) *domain.Target {
	return &domain.Target{
		Out:    domain.Intern(out),
		Kind:   domain.TargetObject,
		Lang:   domain.LangC,
		Source: domain.Intern(src),
	}
}

func TestGraphAddTargetCollision(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTarget(source("/src/planet.c")))

	err := g.AddTarget(source("/src/planet.c"))
	assert.True(t, errors.Is(err, domain.ErrTargetExists))
}

func TestGraphValidateOrder(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTarget(source("/src/planet.c")))
	require.NoError(t, g.AddTarget(object("/out/planet_debug.o", "/src/planet.c")))

	lib := &domain.Target{
		Out:     domain.Intern("/out/libPlanet_debug.so"),
		Kind:    domain.TargetSharedLibrary,
		Name:    "Planet",
		Lang:    domain.LangC,
		Objects: []domain.InternedString{domain.Intern("/out/planet_debug.o")},
	}
	require.NoError(t, g.AddTarget(lib))

	require.NoError(t, g.Validate())

	order := g.Order()
	idx := func(path string) int {
		return slices.Index(order, domain.Intern(path))
	}
	assert.Less(t, idx("/src/planet.c"), idx("/out/planet_debug.o"))
	assert.Less(t, idx("/out/planet_debug.o"), idx("/out/libPlanet_debug.so"))

	consumers := g.Consumers(domain.Intern("/out/planet_debug.o"))
	assert.Equal(t, []domain.InternedString{lib.Out}, consumers)
}

func TestGraphValidateMissingDependency(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTarget(object("/out/planet_debug.o", "/src/planet.c")))

	err := g.Validate()
	assert.True(t, errors.Is(err, domain.ErrTargetNotFound))
}

func TestGraphValidateExecutableDependency(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTarget(source("/src/main.C")))
	require.NoError(t, g.AddTarget(object("/out/main_debug.o", "/src/main.C")))

	exe := &domain.Target{
		Out:     domain.Intern("/out/hello_debug"),
		Kind:    domain.TargetExecutable,
		Name:    "hello",
		Lang:    domain.LangCXX,
		Objects: []domain.InternedString{domain.Intern("/out/main_debug.o")},
	}
	require.NoError(t, g.AddTarget(exe))

	offender := &domain.Target{
		Out:     domain.Intern("/out/libBad_debug.so"),
		Kind:    domain.TargetSharedLibrary,
		Name:    "Bad",
		Lang:    domain.LangC,
		Objects: []domain.InternedString{domain.Intern("/out/hello_debug")},
	}
	require.NoError(t, g.AddTarget(offender))

	err := g.Validate()
	assert.True(t, errors.Is(err, domain.ErrExecutableDependency))
}

// Cycles among libraries are recorded for the linker's multi-pass semantics
// rather than rejected; any other cycle is an error.
func TestGraphLibraryCycleRecorded(t *testing.T) {
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
	assert.Len(t, g.LinkCycles(), 1)
	assert.Len(t, g.Order(), 2)

	// The closing edge is recorded but carries no ordering constraint: it
	// appears neither in the consumer lists nor as a forward edge.
	aConsumesB := g.IsCycleEdge(a.Out, b.Out)
	bConsumesA := g.IsCycleEdge(b.Out, a.Out)
	assert.True(t, aConsumesB != bConsumesA, "exactly one edge closes the cycle")

	total := len(g.Consumers(a.Out)) + len(g.Consumers(b.Out))
	assert.Equal(t, 1, total, "only the tree edge contributes a consumer")
}

func TestGraphObjectCycleRejected(t *testing.T) {
	g := domain.NewGraph()
	a := object("/out/a_debug.o", "/src/a.c")
	a.Headers = []domain.InternedString{domain.Intern("/out/b_debug.o")}
	b := object("/out/b_debug.o", "/src/b.c")
	b.Headers = []domain.InternedString{domain.Intern("/out/a_debug.o")}
	require.NoError(t, g.AddTarget(a))
	require.NoError(t, g.AddTarget(b))
	require.NoError(t, g.AddTarget(source("/src/a.c")))
	require.NoError(t, g.AddTarget(source("/src/b.c")))

	err := g.Validate()
	assert.True(t, errors.Is(err, domain.ErrCycleDetected))
}

func TestGraphLookup(t *testing.T) {
	g := domain.NewGraph()
	lib := &domain.Target{
		Out:  domain.Intern("/out/libPlanet_debug.so"),
		Kind: domain.TargetSharedLibrary,
		Name: "Planet",
		Lang: domain.LangC,
	}
	require.NoError(t, g.AddTarget(lib))

	got, ok := g.Lookup("Planet")
	require.True(t, ok)
	assert.Equal(t, lib.Out, got.Out)

	_, ok = g.Lookup("Pluto")
	assert.False(t, ok)
}
