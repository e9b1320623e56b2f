// Package cli drives completions from text input: the query batch format and an
// interactive prompt for debugging and testing.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/wordtrie/internal/utils"
	"github.com/bastiangx/wordtrie/pkg/suggest"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// weighted is implemented by completers that can report weights.
type weighted interface {
	Suggestions(prefix string, limit int) ([]suggest.Suggestion, error)
}

// InputHandler processes user input line by line, providing
// suggestions. Prefix length bounds and the result limit are fixed at creation.
type InputHandler struct {
	completer       suggest.Completer
	minPrefixLength int
	maxPrefixLength int
	suggestLimit    int
	requestCount    int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(completer suggest.Completer, minLength, maxLength, limit int) *InputHandler {
	return &InputHandler{
		completer:       completer,
		minPrefixLength: minLength,
		maxPrefixLength: maxLength,
		suggestLimit:    limit,
	}
}

// Start runs the prompt on stdin, printing to stderr.
func (h *InputHandler) Start() error {
	return h.Run(os.Stdin, os.Stderr, term.IsTerminal(int(os.Stdin.Fd())))
}

// Run reads prefixes from in until it ends and prints suggestions to out.
// The banner and prompt are only printed when interactive is set.
func (h *InputHandler) Run(in io.Reader, out io.Writer, interactive bool) error {
	printer := log.NewWithOptions(out, log.Options{ReportTimestamp: false})
	if interactive {
		printer.Print("wordtrie CLI")
		printer.Print("type something and press Enter to see the suggestions (Ctrl+C to exit):")
	}

	reader := bufio.NewReader(in)
	for {
		if interactive {
			printer.Print("> ")
		}
		prefix, err := reader.ReadString('\n')
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			h.handleInput(printer, prefix)
		}
		if err == io.EOF {
			log.Debugf("Input closed after %d requests", h.requestCount)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// handleInput validates the prefix length, asks the completer and prints the
// results with their weights when the completer knows them.
func (h *InputHandler) handleInput(printer *log.Logger, prefix string) {
	h.requestCount++

	length := utf8.RuneCountInString(prefix)
	if length < h.minPrefixLength {
		printer.Errorf("Prefix too short: %s", prefix)
		return
	}
	if h.maxPrefixLength > 0 && length > h.maxPrefixLength {
		printer.Errorf("Prefix too long: %s", prefix)
		return
	}

	start := time.Now()
	suggestions, weightsKnown := h.lookup(prefix)
	log.Debugf("Took [ %v ] for prefix '%s'", time.Since(start), prefix)

	if len(suggestions) == 0 {
		printer.Warnf("No suggestions found for prefix: '%s'", prefix)
		return
	}

	printer.Printf("Found %d suggestions for prefix '%s':", len(suggestions), prefix)
	for i, s := range suggestions {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Word)
		if !weightsKnown {
			printer.Printf("%2d. %s", i+1, clWord)
			continue
		}
		printer.Printf("%2d. %-40s (weight: %8s)", i+1, clWord, utils.FormatWithCommas(s.Weight))
	}
}

func (h *InputHandler) lookup(prefix string) ([]suggest.Suggestion, bool) {
	if w, ok := h.completer.(weighted); ok {
		suggestions, err := w.Suggestions(prefix, h.suggestLimit)
		if err == nil {
			return suggestions, true
		}
		log.Debugf("Weights unavailable: %v", err)
	}
	words := h.completer.Complete(prefix, h.suggestLimit)
	suggestions := make([]suggest.Suggestion, len(words))
	for i, w := range words {
		suggestions[i] = suggest.Suggestion{Word: w}
	}
	return suggestions, false
}
