/*
Package peer implements the plain text completion exchange used to delegate
lookups to another process over TCP.

A request is a single line:

	get <prefix>\n\r

The reply lists one completion per record, each followed by "\n\r", and ends
with one more "\n\r". An empty reply is therefore exactly "\n\r\n\r":

	hello\n\rhelp\n\r\n\r

Only the request line and the "\n\r\n\r" terminator are load-bearing; the
client also accepts a reply cut short by the server closing the stream.
*/
package peer

import (
	"errors"
	"strings"
)

const (
	// Delimiter separates records in both directions.
	Delimiter = "\n\r"
	// Terminator ends a reply.
	Terminator = Delimiter + Delimiter

	commandGet = "get"
)

// ErrPeerUnavailable wraps every connectivity failure on the client side.
var ErrPeerUnavailable = errors.New("peer unavailable")

// Completer is what a Server answers requests from.
type Completer interface {
	Complete(prefix string, limit int) []string
}

// EncodeRequest builds the request line for prefix.
func EncodeRequest(prefix string) string {
	return commandGet + " " + prefix + Delimiter
}

// EncodeReply builds a reply for the given completions.
func EncodeReply(words []string) string {
	if len(words) == 0 {
		return Terminator
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w)
		b.WriteString(Delimiter)
	}
	b.WriteString(Delimiter)
	return b.String()
}

// DecodeReply splits a raw reply into completions, dropping empty records.
func DecodeReply(raw string) []string {
	if i := strings.Index(raw, Terminator); i >= 0 {
		raw = raw[:i]
	}
	words := []string{}
	for _, s := range strings.Split(raw, Delimiter) {
		if s != "" {
			words = append(words, s)
		}
	}
	return words
}

// parseRequest extracts the prefix from a request line. ok is false for
// anything that is not a get command.
func parseRequest(line string) (prefix string, ok bool) {
	line = strings.Trim(line, "\r\n")
	if line == commandGet {
		return "", true
	}
	if rest, found := strings.CutPrefix(line, commandGet+" "); found {
		return rest, true
	}
	return "", false
}
