package cfddns

import (
	"fmt"
	"strings"
)

// ChangeLog collects the report of a single pass.
//
// Lines are kept in the order they were appended.
// A log is marked notable when the pass changed a record or failed,
// which is what decides whether a notification is sent.
// It is not safe for concurrent use.
type ChangeLog struct {
	lines   []string
	notable bool
}

func (l *ChangeLog) Append(line string) {
	l.lines = append(l.lines, line)
}

func (l *ChangeLog) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

func (l *ChangeLog) MarkNotable() {
	l.notable = true
}

// Notable reports whether MarkNotable was called since the last Drain.
func (l *ChangeLog) Notable() bool {
	return l.notable
}

// Drain returns the newline-joined lines and the notable flag, then resets the log.
func (l *ChangeLog) Drain() (text string, notable bool) {
	text, notable = strings.Join(l.lines, "\n"), l.notable
	l.lines = nil
	l.notable = false
	return text, notable
}
