// Package suggest is the vocabulary layer between callers and the prefix tree:
// it owns the case policy, builds the tree from bulk entries and can hand lookups
// to a peer instead of answering locally.
package suggest

// Completer answers prefix completion requests, best first.
type Completer interface {
	// Complete returns at most limit words starting with prefix
	Complete(prefix string, limit int) []string
}

// Suggestion is a completed word with its weight.
type Suggestion struct {
	Word   string
	Weight int
}
