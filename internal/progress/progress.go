// Package progress reports per-file batch progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Reporter receives batch progress. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Start(total int)
	Advance(path string)
	Finish()
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(int)      {}
func (Nop) Advance(string) {}
func (Nop) Finish()        {}

// Line redraws a single "[done/total] path" status line.
type Line struct {
	mu    sync.Mutex
	w     io.Writer
	total int
	done  int
	width int
}

// NewLine writes progress to w.
func NewLine(w io.Writer) *Line {
	return &Line{w: w}
}

// ForTerminal returns a Line on f when enabled and f is a terminal, and Nop otherwise.
func ForTerminal(f *os.File, enabled bool) Reporter {
	if !enabled || f == nil || !term.IsTerminal(int(f.Fd())) {
		return Nop{}
	}
	return NewLine(f)
}

func (l *Line) Start(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
	l.done = 0
}

func (l *Line) Advance(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done++
	status := fmt.Sprintf("[%d/%d] %s", l.done, l.total, path)
	pad := max(l.width-len(status), 0)
	l.width = len(status)
	_, _ = fmt.Fprintf(l.w, "\r%s%*s", status, pad, "")
}

func (l *Line) Finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done > 0 {
		_, _ = fmt.Fprintln(l.w)
	}
}
