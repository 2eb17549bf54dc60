package domain

import (
	"path/filepath"

	"go.trai.ch/zerr"
)

// Command assembly. Every external tool invocation is a fully qualified
// argv with no shell interpolation; given identical inputs the argv is
// bitwise identical between runs.

// CommandFor returns the argv that produces t, or nil for terminal targets.
func CommandFor(t *Target, g *Graph, global *OptionGroup, tc *Toolchain) ([]string, error) {
	switch t.Kind {
	case TargetSource:
		return nil, nil
	case TargetGeneratedSource:
		return GenerateArgv(t), nil
	case TargetObject:
		return CompileArgv(t, global, tc), nil
	case TargetStaticLibrary:
		return ArchiveArgv(t, tc), nil
	case TargetSharedLibrary, TargetExecutable:
		return LinkArgv(t, g, global, tc)
	}
	return nil, zerr.With(zerr.New("target kind has no command"), "kind", string(t.Kind))
}

// CompileArgv assembles the compile command for an object: the driver for
// the object's language, the preprocessor set, the language's compile set,
// then -c -o out source.
func CompileArgv(t *Target, global *OptionGroup, tc *Toolchain) []string {
	group := t.EffectiveOptions(global)
	driver := tc.Driver(t.Lang)

	argv := []string{driver}
	argv = append(argv, group.Set(ProcCPP).Args()...)
	switch t.Lang {
	case LangCXX:
		argv = append(argv, group.Set(ProcCXX).Args()...)
	case LangAsm:
		argv = append(argv, group.Set(ProcAS).Args()...)
	default:
		argv = append(argv, group.Set(ProcCC).Args()...)
	}
	return append(argv, "-c", "-o", t.Out.String(), t.Source.String())
}

// ArchiveArgv assembles the archive command for a static library.
func ArchiveArgv(t *Target, tc *Toolchain) []string {
	argv := []string{tc.ARPath, "rcs", t.Out.String()}
	for _, obj := range t.Objects {
		argv = append(argv, obj.String())
	}
	return argv
}

// LinkArgv assembles the link command for a shared library or executable.
// The pre sequence of the linker set precedes the object list; objects
// appear in declared order; each dependency library contributes a -L for
// its directory (first appearance only) and a -l in declared order; the
// post sequence closes the argv.
func LinkArgv(t *Target, g *Graph, global *OptionGroup, tc *Toolchain) ([]string, error) {
	group := t.EffectiveOptions(global)
	set := group.Set(linkKind(t))

	argv := []string{tc.Driver(t.Lang)}
	argv = append(argv, set.PreArgs()...)
	argv = append(argv, "-o", t.Out.String())
	for _, obj := range t.Objects {
		argv = append(argv, obj.String())
	}

	seenDirs := make(map[string]bool)
	for _, lib := range t.Libs {
		dep, ok := g.Target(lib)
		if !ok {
			return nil, zerr.With(ErrTargetNotFound, "path", lib.String())
		}
		dir := filepath.Dir(dep.Out.String())
		if !seenDirs[dir] {
			seenDirs[dir] = true
			argv = append(argv, "-L"+dir)
		}
		argv = append(argv, "-l"+dep.Name+"_"+string(group.Build()))
	}

	return append(argv, set.PostArgs()...), nil
}

// linkKind selects the linker option set for a link target: the driver
// language crossed with library versus executable.
func linkKind(t *Target) ProcessorKind {
	if t.Kind == TargetExecutable {
		if t.Lang == LangCXX {
			return ProcLinkCXXExe
		}
		return ProcLinkCCExe
	}
	if t.Lang == LangCXX {
		return ProcLinkCXXLib
	}
	return ProcLinkCCLib
}

// GenerateArgv assembles the command for a generated source: the
// interpreter runs the script with the rule's inputs, writing the output
// path given as the final argument.
func GenerateArgv(t *Target) []string {
	argv := []string{t.Interpreter, t.Script.String()}
	for _, in := range t.Inputs {
		argv = append(argv, in.String())
	}
	return append(argv, t.Out.String())
}
