package domain

import "unique"

// InternedString wraps a unique.Handle[string]. Target ids are absolute
// output paths that recur in every dependency list, so interning keeps the
// graph small and makes id comparison a pointer compare.
type InternedString struct {
	h unique.Handle[string]
}

// Intern returns the interned form of s.
func Intern(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// InternAll interns a slice of strings.
func InternAll(ss []string) []InternedString {
	out := make([]InternedString, len(ss))
	for i, s := range ss {
		out[i] = Intern(s)
	}
	return out
}

// String returns the underlying string value.
func (is InternedString) String() string {
	var zero unique.Handle[string]
	if is.h == zero {
		return ""
	}
	return is.h.Value()
}

// MarshalText implements encoding.TextMarshaler.
func (is InternedString) MarshalText() ([]byte, error) {
	return []byte(is.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (is *InternedString) UnmarshalText(text []byte) error {
	is.h = unique.Make(string(text))
	return nil
}
