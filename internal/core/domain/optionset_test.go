package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
)

func parseOne(t *testing.T, kind domain.ProcessorKind, build domain.BuildType, tokens ...string) domain.Option {
	t.Helper()
	opts, err := domain.OptionParser{Kind: kind, Build: build}.Parse(tokens)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	return opts[0]
}

func TestOptionSetDuplicate(t *testing.T) {
	set := domain.NewOptionSet(domain.ProcCPP, domain.BuildDebug)
	opt := parseOne(t, domain.ProcCPP, domain.BuildDebug, "-DFOO=1")

	added, err := set.Add(opt, false)
	require.NoError(t, err)
	assert.True(t, added)

	// Without replace a duplicate is an error.
	_, err = set.Add(opt, false)
	assert.True(t, errors.Is(err, domain.ErrDuplicateOption))

	// With replace the existing option is kept; the caller may warn.
	added, err = set.Add(opt, true)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, set.Len())
}

func TestOptionSetDefineUndefineConflict(t *testing.T) {
	set := domain.NewOptionSet(domain.ProcCPP, domain.BuildDebug)
	def := parseOne(t, domain.ProcCPP, domain.BuildDebug, "-DFOO=1")
	undef := parseOne(t, domain.ProcCPP, domain.BuildDebug, "-UFOO")

	_, err := set.Add(def, false)
	require.NoError(t, err)

	_, err = set.Add(undef, false)
	assert.True(t, errors.Is(err, domain.ErrOptionConflict))

	// With replace the old polarity is evicted.
	added, err := set.Add(undef, true)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"-UFOO"}, set.Args())
}

func TestOptionSetWarningPolarityConflict(t *testing.T) {
	set := domain.NewOptionSet(domain.ProcCC, domain.BuildDebug)
	warn := parseOne(t, domain.ProcCC, domain.BuildDebug, "-Wshadow")
	noWarn := parseOne(t, domain.ProcCC, domain.BuildDebug, "-Wno-shadow")

	_, err := set.Add(warn, false)
	require.NoError(t, err)
	_, err = set.Add(noWarn, false)
	assert.True(t, errors.Is(err, domain.ErrOptionConflict))

	added, err := set.Add(noWarn, true)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"-Wno-shadow"}, set.Args())
}

func TestOptionSetSecondOptLevel(t *testing.T) {
	set := domain.NewOptionSet(domain.ProcCC, domain.BuildOptimized)
	o2 := parseOne(t, domain.ProcCC, domain.BuildOptimized, "-O2")
	o3 := parseOne(t, domain.ProcCC, domain.BuildOptimized, "-O3")

	_, err := set.Add(o2, false)
	require.NoError(t, err)
	_, err = set.Add(o3, false)
	assert.True(t, errors.Is(err, domain.ErrOptionConflict))

	added, err := set.Add(o3, true)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"-O3"}, set.Args())
}

func TestOptionSetSingleValuedMachine(t *testing.T) {
	set := domain.NewOptionSet(domain.ProcCC, domain.BuildDebug)
	m64 := parseOne(t, domain.ProcCC, domain.BuildDebug, "-m64")
	m32 := parseOne(t, domain.ProcCC, domain.BuildDebug, "-m32")

	_, err := set.Add(m64, false)
	require.NoError(t, err)
	_, err = set.Add(m32, false)
	assert.True(t, errors.Is(err, domain.ErrOptionConflict))
}

func TestOptionSetLinkerRouting(t *testing.T) {
	build := domain.BuildDebug
	set := domain.NewOptionSet(domain.ProcLinkCCExe, build)

	for _, tokens := range [][]string{
		{"-nostdlib"},
		{"-L/opt/lib"},
		{"-lm"},
		{"-Wl,--as-needed"},
	} {
		opt := parseOne(t, domain.ProcLinkCCExe, build, tokens...)
		_, err := set.Add(opt, false)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"-nostdlib"}, set.PreArgs())
	assert.Equal(t, []string{"-L/opt/lib", "-lm", "-Wl,--as-needed"}, set.PostArgs())
	assert.Equal(t, []string{"-nostdlib", "-L/opt/lib", "-lm", "-Wl,--as-needed"}, set.Args())
}

// Pass-throughs share a fixed name with the distinguishing text in the
// parameter; any number of them may coexist, in declared order.
func TestOptionSetPassThroughsDoNotConflict(t *testing.T) {
	build := domain.BuildDebug
	set := domain.NewOptionSet(domain.ProcLinkCCLib, build)

	for _, tokens := range [][]string{
		{"-Wl,--as-needed"},
		{"-Wl,-z,now"},
		{"-Wl,-rpath", "-Wl,/opt/lib"},
		{"-Wl,-rpath", "-Wl,/usr/local/lib"},
	} {
		opt := parseOne(t, domain.ProcLinkCCLib, build, tokens...)
		added, err := set.Add(opt, false)
		require.NoError(t, err)
		assert.True(t, added)
	}

	assert.Equal(t, []string{
		"-Wl,--as-needed", "-Wl,-z,now",
		"-Wl,-rpath", "-Wl,/opt/lib",
		"-Wl,-rpath", "-Wl,/usr/local/lib",
	}, set.PostArgs())
}

func TestOptionSetAsmPassThroughsDoNotConflict(t *testing.T) {
	build := domain.BuildDebug
	set := domain.NewOptionSet(domain.ProcAS, build)

	for _, token := range []string{"-Wa,--noexecstack", "-Wa,--fatal-warnings"} {
		opt := parseOne(t, domain.ProcAS, build, token)
		added, err := set.Add(opt, false)
		require.NoError(t, err)
		assert.True(t, added)
	}
	assert.Equal(t, []string{"-Wa,--noexecstack", "-Wa,--fatal-warnings"}, set.Args())
}

func TestOptionSetRPathPairRendersTwoTokens(t *testing.T) {
	build := domain.BuildDebug
	set := domain.NewOptionSet(domain.ProcLinkCCLib, build)

	pair := parseOne(t, domain.ProcLinkCCLib, build, "-Wl,-soname", "-Wl,libplanet.so.1")
	_, err := set.Add(pair, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"-Wl,-soname", "-Wl,libplanet.so.1"}, set.PostArgs())
}

func TestOptionSetEqualityAndHash(t *testing.T) {
	build := domain.BuildDebug
	mk := func() *domain.OptionSet {
		set := domain.NewOptionSet(domain.ProcCC, build)
		for _, tokens := range []string{"-Wall", "-Wshadow", "-g"} {
			opt := parseOne(t, domain.ProcCC, build, tokens)
			_, err := set.Add(opt, false)
			require.NoError(t, err)
		}
		return set
	}

	a, b := mk(), mk()
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	extra := parseOne(t, domain.ProcCC, build, "-Wundef")
	_, err := b.Add(extra, false)
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestOptionSetCloneIsIndependent(t *testing.T) {
	build := domain.BuildDebug
	set := domain.NewOptionSet(domain.ProcCC, build)
	_, err := set.Add(parseOne(t, domain.ProcCC, build, "-Wall"), false)
	require.NoError(t, err)

	clone := set.Clone()
	_, err = clone.Add(parseOne(t, domain.ProcCC, build, "-Wshadow"), false)
	require.NoError(t, err)

	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestOptionGroupCloneAndEqual(t *testing.T) {
	group := domain.NewOptionGroup(domain.BuildDebug)
	opt := parseOne(t, domain.ProcCC, domain.BuildDebug, "-Wall")
	_, err := group.Set(domain.ProcCC).Add(opt, false)
	require.NoError(t, err)

	clone := group.Clone()
	assert.True(t, group.Equal(clone))
	assert.Equal(t, group.Hash(), clone.Hash())

	other := parseOne(t, domain.ProcCC, domain.BuildDebug, "-Wundef")
	_, err = clone.Set(domain.ProcCC).Add(other, false)
	require.NoError(t, err)
	assert.False(t, group.Equal(clone))

	encoded := group.Encoded()
	assert.Len(t, encoded, 8)
	assert.Equal(t, []string{"-Wall"}, encoded["opt_compile_cc"])
}
