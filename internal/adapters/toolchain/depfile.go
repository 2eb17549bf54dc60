package toolchain

import (
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// ParseDepRule parses the make rule emitted by the preprocessor's -M mode:
//
//	target.o: src.c /usr/include/stdio.h \
//	  include/planet.h
//
// Backslash-newline continuations are joined and backslash-escaped spaces
// inside paths are honored. The returned list holds the prerequisites in
// emission order, duplicates removed.
func ParseDepRule(output string) ([]string, error) {
	colon := strings.IndexByte(output, ':')
	if colon < 0 {
		return nil, zerr.Wrap(domain.ErrDiscoveryFailed, "no rule separator in preprocessor output")
	}
	rest := output[colon+1:]

	var (
		prereqs []string
		seen    = make(map[string]bool)
		cur     strings.Builder
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		path := cur.String()
		cur.Reset()
		if !seen[path] {
			seen[path] = true
			prereqs = append(prereqs, path)
		}
	}

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch c {
		case '\\':
			if i+1 < len(rest) {
				next := rest[i+1]
				// Escaped space stays inside the current path; a
				// backslash-newline is a continuation.
				if next == ' ' {
					cur.WriteByte(' ')
					i++
					continue
				}
				if next == '\n' || next == '\r' {
					flush()
					i++
					continue
				}
			}
			cur.WriteByte(c)
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	if len(prereqs) == 0 {
		return nil, zerr.Wrap(domain.ErrDiscoveryFailed, "empty prerequisite list")
	}
	return prereqs, nil
}
