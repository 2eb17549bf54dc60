package domain

// TargetKind discriminates the node types of the build DAG.
type TargetKind string

const (
	TargetSource          TargetKind = "source"
	TargetGeneratedSource TargetKind = "generated-source"
	TargetObject          TargetKind = "object"
	TargetStaticLibrary   TargetKind = "static-library"
	TargetSharedLibrary   TargetKind = "shared-library"
	TargetExecutable      TargetKind = "executable"
)

// Target is one node in the build DAG: a file the system must produce or
// recognize. The zero fields of variants that do not apply stay empty; the
// Kind field decides which command, if any, produces the output.
type Target struct {
	// Out is the absolute output path. It doubles as the node id and as the
	// persistence key for the target's cache record.
	Out  InternedString
	Kind TargetKind

	// Name is the logical name of a library or executable as declared.
	Name string

	// Lang is the source language of an Object, or the driver language
	// (LangC/LangCXX) used to link a library or executable.
	Lang Language

	// Source is the single compilable input of an Object.
	Source InternedString

	// Headers are the discovered header dependencies of an Object, the
	// transitive closure reported by the preprocessor with system headers
	// excluded.
	Headers []InternedString

	// Objects and Libs are the link inputs of a library or executable, each
	// in declared order. Order is preserved into the argv.
	Objects []InternedString
	Libs    []InternedString

	// Script, Interpreter and Inputs describe a generated source: Interpreter
	// runs Script with Inputs to produce Out.
	Script      InternedString
	Interpreter string
	Inputs      []InternedString

	// Version is the X.Y.Z embedded in a version-bearing shared library.
	Version string

	// NoHeaderDeps marks an Object whose discovery is suppressed.
	NoHeaderDeps bool

	// Local holds the target's materialized OptionGroup override, nil when
	// the target builds with the global group.
	Local *OptionGroup

	// Rebuilt is cleared at the start of an invocation and set by the worker
	// that ran the target's command.
	Rebuilt bool
}

// Deps returns the target's dependency ids in order. For objects the
// compilable source comes first, then discovered headers; for link targets
// the objects precede the libraries, both in declared order.
func (t *Target) Deps() []InternedString {
	switch t.Kind {
	case TargetObject:
		deps := make([]InternedString, 0, 1+len(t.Headers))
		deps = append(deps, t.Source)
		return append(deps, t.Headers...)
	case TargetStaticLibrary, TargetSharedLibrary, TargetExecutable:
		deps := make([]InternedString, 0, len(t.Objects)+len(t.Libs))
		deps = append(deps, t.Objects...)
		return append(deps, t.Libs...)
	case TargetGeneratedSource:
		deps := make([]InternedString, 0, 1+len(t.Inputs))
		deps = append(deps, t.Script)
		return append(deps, t.Inputs...)
	}
	return nil
}

// Terminal reports whether the target has no build command of its own.
func (t *Target) Terminal() bool {
	return t.Kind == TargetSource
}

// IsLibrary reports whether the target is a static or shared library.
func (t *Target) IsLibrary() bool {
	return t.Kind == TargetStaticLibrary || t.Kind == TargetSharedLibrary
}

// EffectiveOptions returns the group the target builds with: its local
// override when one was materialized, the global group otherwise.
func (t *Target) EffectiveOptions(global *OptionGroup) *OptionGroup {
	if t.Local != nil {
		return t.Local
	}
	return global
}

// MaterializeOptions returns the target's local override, cloning the global
// group on first use.
func (t *Target) MaterializeOptions(global *OptionGroup) *OptionGroup {
	if t.Local == nil {
		t.Local = global.Clone()
	}
	return t.Local
}
