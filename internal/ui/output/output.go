// Package output renders user-facing build diagnostics and progress lines.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Printer writes single-line diagnostics and progress updates. It is safe
// for concurrent use; the scheduler reports transitions from its workers.
type Printer struct {
	mu  sync.Mutex
	out io.Writer

	header *color.Color
	fail   *color.Color
	note   *color.Color
}

// NewPrinter creates a Printer writing to stderr.
func NewPrinter() *Printer {
	return NewPrinterTo(os.Stderr)
}

// NewPrinterTo creates a Printer writing to w. Used by tests.
func NewPrinterTo(w io.Writer) *Printer {
	return &Printer{
		out:    w,
		header: color.New(color.FgCyan),
		fail:   color.New(color.FgRed, color.Bold),
		note:   color.New(color.FgYellow),
	}
}

// Progress prints one scheduler transition: [done/total] plus the target
// being produced.
func (p *Printer) Progress(done, total int, target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s\n", done, total, target)
}

// Stale explains why a target will be rebuilt.
func (p *Printer) Stale(target, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = p.note.Fprintf(p.out, "stale %s (%s)\n", target, reason)
}

// BuildError prints the single-line failure summary followed by the
// command's captured output.
func (p *Printer) BuildError(target, tool string, exitCode int, captured string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = p.fail.Fprintf(p.out, "%s: %s exited %d\n", target, tool, exitCode)
	if captured != "" {
		_, _ = fmt.Fprintln(p.out, strings.TrimRight(captured, "\n"))
	}
}

// Summary prints the end-of-build line.
func (p *Printer) Summary(built, upToDate int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = p.header.Fprintf(p.out, "built %d target(s), %d up to date\n", built, upToDate)
}
