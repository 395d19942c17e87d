package pipeline

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Progress receives batch progress. Start is called as each file begins,
// index runs from 1 to total. Done is called once after a successful batch.
type Progress interface {
	Start(index, total int, name string)
	Done()
}

type nopProgress struct{}

func (nopProgress) Start(int, int, string) {}
func (nopProgress) Done() {}

// ConsoleProgress rewrites a single terminal line per file and prints
// "done" at the end.
type ConsoleProgress struct {
	w    io.Writer
	last int
}

// NewConsoleProgress returns a console reporter writing to w.
func NewConsoleProgress(w io.Writer) *ConsoleProgress {
	return &ConsoleProgress{w: w}
}

// Start prints "\r<index> / <total> : <name>", padded over the previous line.
func (c *ConsoleProgress) Start(index, total int, name string) {
	line := fmt.Sprintf("%d / %d : %s", index, total, name)
	pad := ""
	if n := c.last - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	c.last = len(line)
	fmt.Fprintf(c.w, "\r%s%s", line, pad)
}

// Done ends the progress line.
func (c *ConsoleProgress) Done() {
	fmt.Fprintln(c.w, "\ndone")
}

// LogProgress reports progress through a zap logger at debug level.
type LogProgress struct {
	Log *zap.Logger
}

// Start logs the file about to be converted.
func (l LogProgress) Start(index, total int, name string) {
	l.Log.Debug("converting",
		zap.Int("index", index),
		zap.Int("total", total),
		zap.String("file", name))
}

// Done logs completion.
func (l LogProgress) Done() {
	l.Log.Debug("done")
}

// MultiProgress fans progress out to several reporters.
type MultiProgress []Progress

// Start forwards to each reporter.
func (m MultiProgress) Start(index, total int, name string) {
	for _, p := range m {
		p.Start(index, total, name)
	}
}

// Done forwards to each reporter.
func (m MultiProgress) Done() {
	for _, p := range m {
		p.Done()
	}
}
