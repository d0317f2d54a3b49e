package programLogParser

// LogCursor yields the log lines of one transaction in emission order. It is
// consumed in a single forward pass and cannot be rewound; build a fresh
// cursor for every transaction.
type LogCursor struct {
	lines    []string
	position int
}

func NewLogCursor(lines []string) *LogCursor {
	return &LogCursor{
		lines: lines,
	}
}

// Next returns the next unread line. ok is false once the cursor is
// exhausted, and every later call keeps reporting false.
func (lc *LogCursor) Next() (line string, ok bool) {
	if lc.position >= len(lc.lines) {
		return "", false
	}
	line = lc.lines[lc.position]
	lc.position++
	return line, true
}
