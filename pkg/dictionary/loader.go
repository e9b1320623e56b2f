// Package dictionary reads weighted word lists in the bulk load format:
//
//	3
//	hello 120
//	help 300
//	helium 15
//
// The first line holds the entry count N, followed by N lines of a word and an
// integer weight separated by a space. Input is expected to be well formed, so
// any malformed line fails the whole load.
package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// ErrMalformed is wrapped by every parse error returned from this package.
var ErrMalformed = errors.New("malformed dictionary")

// Entry is one word and its weight.
type Entry struct {
	Word   string
	Weight int
}

// LoadStats describes the outcome of a load.
type LoadStats struct {
	Lines      int
	Entries    int
	Duplicates int
}

// ReadFile validates and reads a dictionary file.
func ReadFile(path string) ([]Entry, error) {
	if err := ValidateFileFormat(path, FormatText); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary %s: %w", path, err)
	}
	defer file.Close()

	entries, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}
	return entries, nil
}

// Read parses a complete dictionary from r.
func Read(r io.Reader) ([]Entry, error) {
	entries, _, err := ReadFrom(bufio.NewReader(r))
	return entries, err
}

// ReadFrom parses one dictionary block from br and leaves br positioned right
// after the last entry, so callers can keep reading the same stream.
// A word listed twice keeps its position and takes the later weight.
func ReadFrom(br *bufio.Reader) ([]Entry, LoadStats, error) {
	var stats LoadStats

	countLine, err := ReadLine(br)
	stats.Lines++
	if err != nil {
		return nil, stats, fmt.Errorf("%w: line %d: missing entry count: %w", ErrMalformed, stats.Lines, err)
	}
	count, err := ParseCount(countLine)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: line %d: %w", ErrMalformed, stats.Lines, err)
	}

	entries := make([]Entry, 0, count)
	seen := make(map[string]int, count)

	for i := 0; i < count; i++ {
		line, err := ReadLine(br)
		stats.Lines++
		if err != nil {
			return nil, stats, fmt.Errorf("%w: line %d: expected %d entries, found %d", ErrMalformed, stats.Lines, count, i)
		}
		entry, err := ParseEntry(line)
		if err != nil {
			return nil, stats, fmt.Errorf("%w: line %d: %w", ErrMalformed, stats.Lines, err)
		}

		if at, dup := seen[entry.Word]; dup {
			entries[at].Weight = entry.Weight
			stats.Duplicates++
			continue
		}
		seen[entry.Word] = len(entries)
		entries = append(entries, entry)
	}

	stats.Entries = len(entries)
	if stats.Duplicates > 0 {
		log.Debugf("Dictionary had %d duplicate words, later weights kept", stats.Duplicates)
	}
	log.Debugf("Loaded %d entries from %d lines", stats.Entries, stats.Lines)
	return entries, stats, nil
}

// ParseCount parses a count line such as the header of a dictionary or query batch.
func ParseCount(line string) (int, error) {
	count, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", line)
	}
	if count < 0 {
		return 0, fmt.Errorf("negative count %d", count)
	}
	return count, nil
}

// ParseEntry splits a "<word> <weight>" line. Tokens after the weight are ignored.
// Words must be valid UTF-8.
func ParseEntry(line string) (Entry, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return Entry{}, fmt.Errorf("expected '<word> <weight>', got %q", line)
	}
	if !utf8.ValidString(tokens[0]) {
		return Entry{}, fmt.Errorf("word %q is not valid UTF-8", tokens[0])
	}
	weight, err := strconv.Atoi(tokens[1])
	if err != nil {
		return Entry{}, fmt.Errorf("invalid weight %q for word %q", tokens[1], tokens[0])
	}
	return Entry{Word: tokens[0], Weight: weight}, nil
}

// ReadLine returns the next line without its terminator. A final line without
// a newline is returned as is; io.EOF is reported only when nothing was read.
func ReadLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
