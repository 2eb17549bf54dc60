package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
)

func testToolchain() *domain.Toolchain {
	return &domain.Toolchain{
		CCPath:  "/usr/bin/gcc",
		CXXPath: "/usr/bin/g++",
		ARPath:  "/usr/bin/ar",
	}
}

func debugGroup(t *testing.T) *domain.OptionGroup {
	t.Helper()
	group := domain.NewOptionGroup(domain.BuildDebug)

	cpp, err := domain.OptionParser{Kind: domain.ProcCPP, Build: domain.BuildDebug}.Parse([]string{"-Iinclude"})
	require.NoError(t, err)
	require.NoError(t, group.Set(domain.ProcCPP).AddAll(cpp, false))

	cc, err := domain.OptionParser{Kind: domain.ProcCC, Build: domain.BuildDebug}.Parse([]string{"-O0", "-g", "-Wall"})
	require.NoError(t, err)
	require.NoError(t, group.Set(domain.ProcCC).AddAll(cc, false))

	return group
}

func TestCompileArgv(t *testing.T) {
	group := debugGroup(t)
	obj := &domain.Target{
		Out:    domain.Intern("/out/planet_debug.o"),
		Kind:   domain.TargetObject,
		Lang:   domain.LangC,
		Source: domain.Intern("/src/planet.c"),
	}

	argv := domain.CompileArgv(obj, group, testToolchain())
	assert.Equal(t, []string{
		"/usr/bin/gcc", "-Iinclude", "-O0", "-g", "-Wall",
		"-c", "-o", "/out/planet_debug.o", "/src/planet.c",
	}, argv)
}

// Two assemblies from identical inputs must be bitwise identical.
func TestCompileArgvDeterministic(t *testing.T) {
	obj := &domain.Target{
		Out:    domain.Intern("/out/planet_debug.o"),
		Kind:   domain.TargetObject,
		Lang:   domain.LangC,
		Source: domain.Intern("/src/planet.c"),
	}
	a := domain.CompileArgv(obj, debugGroup(t), testToolchain())
	b := domain.CompileArgv(obj, debugGroup(t), testToolchain())
	assert.Equal(t, a, b)
}

func TestArchiveArgv(t *testing.T) {
	lib := &domain.Target{
		Out:  domain.Intern("/out/libPlanet_debug.a"),
		Kind: domain.TargetStaticLibrary,
		Name: "Planet",
		Lang: domain.LangC,
		Objects: []domain.InternedString{
			domain.Intern("/out/planet_debug.o"),
			domain.Intern("/out/moon_debug.o"),
		},
	}
	argv := domain.ArchiveArgv(lib, testToolchain())
	assert.Equal(t, []string{
		"/usr/bin/ar", "rcs", "/out/libPlanet_debug.a",
		"/out/planet_debug.o", "/out/moon_debug.o",
	}, argv)
}

// Link steps list objects in declared order and -L/-l in declared relative
// order, with the linker set's pre sequence before the objects and the post
// sequence after the libraries.
func TestLinkArgvOrdering(t *testing.T) {
	build := domain.BuildDebug
	group := domain.NewOptionGroup(build)

	pre, err := domain.OptionParser{Kind: domain.ProcLinkCXXExe, Build: build}.Parse([]string{"-nostdlib"})
	require.NoError(t, err)
	require.NoError(t, group.Set(domain.ProcLinkCXXExe).AddAll(pre, false))
	post, err := domain.OptionParser{Kind: domain.ProcLinkCXXExe, Build: build}.Parse([]string{"-lm"})
	require.NoError(t, err)
	require.NoError(t, group.Set(domain.ProcLinkCXXExe).AddAll(post, false))

	g := domain.NewGraph()
	planet := &domain.Target{
		Out:  domain.Intern("/out/libPlanet_debug.so"),
		Kind: domain.TargetSharedLibrary,
		Name: "Planet",
		Lang: domain.LangC,
	}
	moon := &domain.Target{
		Out:  domain.Intern("/out/libMoon_debug.so"),
		Kind: domain.TargetSharedLibrary,
		Name: "Moon",
		Lang: domain.LangC,
	}
	require.NoError(t, g.AddTarget(planet))
	require.NoError(t, g.AddTarget(moon))

	exe := &domain.Target{
		Out:  domain.Intern("/out/hello_debug"),
		Kind: domain.TargetExecutable,
		Name: "hello",
		Lang: domain.LangCXX,
		Objects: []domain.InternedString{
			domain.Intern("/out/main_debug.o"),
			domain.Intern("/out/aux_debug.o"),
		},
		Libs: []domain.InternedString{planet.Out, moon.Out},
	}

	argv, err := domain.LinkArgv(exe, g, group, testToolchain())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/usr/bin/g++", "-nostdlib", "-o", "/out/hello_debug",
		"/out/main_debug.o", "/out/aux_debug.o",
		"-L/out", "-lPlanet_debug", "-lMoon_debug",
		"-lm",
	}, argv)
}

func TestGenerateArgv(t *testing.T) {
	gen := &domain.Target{
		Out:         domain.Intern("/out/tables.s"),
		Kind:        domain.TargetGeneratedSource,
		Interpreter: "perl",
		Script:      domain.Intern("/src/gen/tables.pl"),
		Inputs:      []domain.InternedString{domain.Intern("/src/gen/tables.dat")},
	}
	argv := domain.GenerateArgv(gen)
	assert.Equal(t, []string{"perl", "/src/gen/tables.pl", "/src/gen/tables.dat", "/out/tables.s"}, argv)
}

func TestCommandForSourceIsNil(t *testing.T) {
	src := &domain.Target{Out: domain.Intern("/src/planet.c"), Kind: domain.TargetSource}
	argv, err := domain.CommandFor(src, domain.NewGraph(), domain.NewOptionGroup(domain.BuildDebug), testToolchain())
	require.NoError(t, err)
	assert.Nil(t, argv)
}
