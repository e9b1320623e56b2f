package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/bastiangx/wordtrie/pkg/dictionary"
	"github.com/bastiangx/wordtrie/pkg/suggest"
	"github.com/charmbracelet/log"
)

// DefaultBatchLimit is the number of completions printed per prefix in batch mode.
const DefaultBatchLimit = 10

// RunBatch answers a query batch: a count line M followed by M prefixes, one per line.
// Each prefix gets its completions one per line followed by a blank line, also when
// nothing matched. A batch cut short treats the missing lines as empty prefixes.
// It returns the number of prefixes answered.
func RunBatch(r *bufio.Reader, w io.Writer, completer suggest.Completer, limit int) (int, error) {
	header, err := dictionary.ReadLine(r)
	if errors.Is(err, io.EOF) {
		log.Debug("No query batch on input")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading query count: %w", err)
	}
	count, err := dictionary.ParseCount(header)
	if err != nil {
		return 0, fmt.Errorf("%w: query count: %w", dictionary.ErrMalformed, err)
	}

	out := bufio.NewWriter(w)
	for i := range count {
		prefix, err := dictionary.ReadLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			out.Flush()
			return i, fmt.Errorf("reading prefix %d: %w", i+1, err)
		}
		for _, word := range completer.Complete(prefix, limit) {
			out.WriteString(word)
			out.WriteByte('\n')
		}
		out.WriteByte('\n')
	}
	if err := out.Flush(); err != nil {
		return count, fmt.Errorf("writing results: %w", err)
	}
	log.Debugf("Answered %d prefixes", count)
	return count, nil
}
