// pattern: Functional Core

package logging

import (
	"bufio"
	"io"
)

// maxLineSize bounds a single JSON log line when reading a log file back.
const maxLineSize = 1024 * 1024

// ReadEntries decodes every JSON log line in r. Lines that are not valid
// JSON are skipped.
func ReadEntries(r io.Reader) ([]LogEntry, error) {
	var entries []LogEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		entry, err := parseEntry(scanner.Bytes())
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

var levelRank = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// AtLeast reports whether the entry's level is at or above min.
func (e LogEntry) AtLeast(min string) bool {
	return levelRank[ParseLevel(e.Level)] >= levelRank[ParseLevel(min)]
}
