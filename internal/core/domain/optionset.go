package domain

import (
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// OptionSet is an ordered, validated sequence of Options bound to one
// processor kind. Linker sets keep two sequences, before and after the
// object-file list, because -L/-l/-Wl ordering relative to the objects
// matters. Compile sets use only the pre sequence.
type OptionSet struct {
	kind  ProcessorKind
	build BuildType
	pre   []Option
	post  []Option
}

// NewOptionSet creates an empty set for the given processor kind.
func NewOptionSet(kind ProcessorKind, build BuildType) *OptionSet {
	return &OptionSet{kind: kind, build: build}
}

// Kind returns the processor kind the set is bound to.
func (s *OptionSet) Kind() ProcessorKind { return s.kind }

// Build returns the build type the set was created for.
func (s *OptionSet) Build() BuildType { return s.build }

// Len returns the number of options across both sequences.
func (s *OptionSet) Len() int { return len(s.pre) + len(s.post) }

// Add inserts opt into the set, enforcing the conflict rules:
//
//   - an exact duplicate keeps the existing option when replace is true
//     (added=false, nil error) and errors otherwise;
//   - a polarity conflict (-D vs -U of one symbol, -W vs -Wno- of one
//     warning, -f vs -fno-), a second -O, or a second value for a
//     single-valued option evicts the old option when replace is true and
//     errors otherwise.
//
// Linker options route to the pre or post sequence by option class.
func (s *OptionSet) Add(opt Option, replace bool) (added bool, err error) {
	seq := s.seqFor(opt)

	for i, existing := range *seq {
		if existing == opt {
			if replace {
				return false, nil
			}
			return false, zerr.With(ErrDuplicateOption, "option", opt.Render())
		}
		if !conflicts(existing, opt) {
			continue
		}
		if !replace {
			return false, zerr.With(zerr.With(ErrOptionConflict,
				"option", opt.Render()), "existing", existing.Render())
		}
		(*seq)[i] = opt
		return true, nil
	}

	*seq = append(*seq, opt)
	return true, nil
}

// AddAll adds each option with the given replace policy, stopping on the
// first error.
func (s *OptionSet) AddAll(opts []Option, replace bool) error {
	for _, opt := range opts {
		if _, err := s.Add(opt, replace); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the first option equal to opt. It reports whether anything
// was removed.
func (s *OptionSet) Remove(opt Option) bool {
	for _, seq := range []*[]Option{&s.pre, &s.post} {
		for i, existing := range *seq {
			if existing == opt {
				*seq = slices.Delete(*seq, i, i+1)
				return true
			}
		}
	}
	return false
}

func (s *OptionSet) seqFor(opt Option) *[]Option {
	if s.kind.IsLinker() && opt.postLink() {
		return &s.post
	}
	return &s.pre
}

// conflicts reports whether two non-identical options cannot coexist.
func conflicts(a, b Option) bool {
	// Define vs undefine of the same symbol.
	if (a.Name == "-D" && b.Name == "-U" || a.Name == "-U" && b.Name == "-D") && a.Key == b.Key {
		return true
	}
	// Redefinition of one symbol with a different value.
	if a.Name == "-D" && b.Name == "-D" && a.Key == b.Key {
		return true
	}
	if a.Name != b.Name {
		return false
	}
	// -Wx vs -Wno-x, -fy vs -fno-y.
	if a.Negated != b.Negated {
		return true
	}
	// Two differing values of a single-valued option (-O levels, -m, -std,
	// shared-library identity options).
	if singleValued[a.Name] && a.Value != b.Value {
		return true
	}
	// Same warning with differing values (-Wstrict-overflow=2 vs =5).
	// Restricted to compiler warnings: -Wl,/-Wa, pass-throughs share a
	// fixed Name with the distinguishing text in Value, and any number of
	// them may coexist in one set.
	if a.Kind == OptCompiler && strings.HasPrefix(a.Name, "-W") && a.Value != b.Value {
		return true
	}
	return false
}

// PreArgs renders the sequence that precedes the object list.
func (s *OptionSet) PreArgs() []string { return renderSeq(s.pre) }

// PostArgs renders the sequence that follows the object list.
func (s *OptionSet) PostArgs() []string { return renderSeq(s.post) }

// Args renders the full set, pre sequence then post sequence, in declared
// order. The result is deterministic given the set's contents.
func (s *OptionSet) Args() []string {
	return append(s.PreArgs(), s.PostArgs()...)
}

func renderSeq(opts []Option) []string {
	args := make([]string, 0, len(opts))
	for _, o := range opts {
		args = append(args, o.Args()...)
	}
	return args
}

// Options returns a copy of the set's contents, pre sequence then post.
func (s *OptionSet) Options() []Option {
	out := make([]Option, 0, s.Len())
	out = append(out, s.pre...)
	return append(out, s.post...)
}

// Equal reports field-wise equality: kind, build type, and ordered contents.
// This is the contract persistence relies on for options-changed detection.
func (s *OptionSet) Equal(o *OptionSet) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.kind == o.kind && s.build == o.build &&
		slices.Equal(s.pre, o.pre) && slices.Equal(s.post, o.post)
}

// Hash folds the set's kind, build type, and ordered contents into a stable
// 64-bit value.
func (s *OptionSet) Hash() uint64 {
	d := xxhash.New()
	writeHashField(d, string(s.kind))
	writeHashField(d, string(s.build))
	for _, o := range s.pre {
		writeHashUint64(d, o.Hash())
	}
	writeHashField(d, "|")
	for _, o := range s.post {
		writeHashUint64(d, o.Hash())
	}
	return d.Sum64()
}

func writeHashUint64(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	_, _ = d.Write(buf[:])
}

// Clone returns a deep copy of the set.
func (s *OptionSet) Clone() *OptionSet {
	return &OptionSet{
		kind:  s.kind,
		build: s.build,
		pre:   slices.Clone(s.pre),
		post:  slices.Clone(s.post),
	}
}
