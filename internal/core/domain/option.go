package domain

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// OptionKind classifies which tool pass a flag belongs to.
type OptionKind string

const (
	OptPreprocessor OptionKind = "preprocessor"
	OptAssembler    OptionKind = "assembler"
	OptCompiler     OptionKind = "compiler"
	OptLinker       OptionKind = "linker"
	OptOther        OptionKind = "other"
)

// ParamKind describes whether an option carries a parameter.
type ParamKind uint8

const (
	ParamNone ParamKind = iota
	ParamRequired
	ParamOptional
)

// Separator is the token glue between an option name and its parameter.
type Separator string

const (
	SepNone   Separator = ""
	SepEquals Separator = "="
	SepSpace  Separator = " "
)

// ProcessorKind names one of the eight canonical option sets of a build.
type ProcessorKind string

const (
	ProcCPP        ProcessorKind = "cpp"
	ProcCC         ProcessorKind = "cc"
	ProcCXX        ProcessorKind = "cxx"
	ProcAS         ProcessorKind = "as"
	ProcLinkCCLib  ProcessorKind = "ld-cc-lib"
	ProcLinkCXXLib ProcessorKind = "ld-cxx-lib"
	ProcLinkCCExe  ProcessorKind = "ld-cc-exec"
	ProcLinkCXXExe ProcessorKind = "ld-cxx-exec"
)

// ProcessorKinds returns the canonical kinds in their fixed encoding order.
func ProcessorKinds() []ProcessorKind {
	return []ProcessorKind{
		ProcCPP, ProcAS, ProcCC, ProcCXX,
		ProcLinkCCLib, ProcLinkCXXLib, ProcLinkCCExe, ProcLinkCXXExe,
	}
}

// IsLinker reports whether the kind is one of the four linker sets.
func (k ProcessorKind) IsLinker() bool {
	switch k {
	case ProcLinkCCLib, ProcLinkCXXLib, ProcLinkCCExe, ProcLinkCXXExe:
		return true
	}
	return false
}

// StoreKey returns the persistence key under which the global set of this
// kind is recorded.
func (k ProcessorKind) StoreKey() string {
	switch k {
	case ProcCPP:
		return "opt_cpp"
	case ProcAS:
		return "opt_asm"
	case ProcCC:
		return "opt_compile_cc"
	case ProcCXX:
		return "opt_compile_cxx"
	case ProcLinkCCLib:
		return "opt_link_cc_lib"
	case ProcLinkCXXLib:
		return "opt_link_cxx_lib"
	case ProcLinkCCExe:
		return "opt_link_cc_exe"
	case ProcLinkCXXExe:
		return "opt_link_cxx_exe"
	}
	return "opt_" + string(k)
}

// Option is one typed compiler, assembler, or linker flag. It is a value
// object: two Options are the same flag iff all fields are equal, which makes
// the struct usable directly as a map key.
type Option struct {
	// Name is the canonical flag text including leading hyphens, with any
	// "no-" negation segment stripped (recorded in Negated instead).
	Name    string
	Kind    OptionKind
	Param   ParamKind
	Value   string
	Negated bool
	Sep     Separator
	// Key and Val carry the split parts of a k=v parameter (-DFOO=1, --param k=v).
	Key string
	Val string
}

// wlPair reports whether the option is one of the two-token linker
// pass-through pairs.
func (o Option) wlPair() bool {
	return o.Name == "-Wl,-rpath" || o.Name == "-Wl,-soname"
}

// postLink reports whether a linker option belongs after the object list.
func (o Option) postLink() bool {
	if o.Name == "-l" || o.Name == "-L" {
		return true
	}
	return strings.HasPrefix(o.Name, "-Wl,")
}

// Args renders the option as argv tokens. The rendering is deterministic
// given the option's fields.
func (o Option) Args() []string {
	name := o.Name
	if o.Negated {
		name = negatedName(name)
	}
	if o.Param == ParamNone || o.Value == "" {
		return []string{name}
	}
	if o.wlPair() {
		// -Wl,-rpath and -Wl,-soname render as two pass-through tokens.
		return []string{name, "-Wl," + o.Value}
	}
	switch o.Sep {
	case SepSpace:
		return []string{name, o.Value}
	case SepEquals:
		return []string{name + "=" + o.Value}
	default:
		return []string{name + o.Value}
	}
}

// Render returns the option's display form, argv tokens joined by spaces.
func (o Option) Render() string {
	return strings.Join(o.Args(), " ")
}

// Hash folds the option's fields into a stable 64-bit value.
func (o Option) Hash() uint64 {
	d := xxhash.New()
	writeHashField(d, o.Name)
	writeHashField(d, string(o.Kind))
	writeHashField(d, string([]byte{byte(o.Param)}))
	writeHashField(d, o.Value)
	if o.Negated {
		writeHashField(d, "no")
	}
	writeHashField(d, string(o.Sep))
	writeHashField(d, o.Key)
	writeHashField(d, o.Val)
	return d.Sum64()
}

func writeHashField(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.Write([]byte{0})
}

// negatedName inserts the "no-" segment after the flag's letter prefix:
// -Wshadow becomes -Wno-shadow, -fcommon becomes -fno-common.
func negatedName(name string) string {
	for _, prefix := range []string{"-W", "-f"} {
		if strings.HasPrefix(name, prefix) && !strings.HasPrefix(name, prefix+"no-") {
			return prefix + "no-" + name[len(prefix):]
		}
	}
	return name
}
