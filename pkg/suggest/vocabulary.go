package suggest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bastiangx/wordtrie/pkg/dictionary"
	"github.com/bastiangx/wordtrie/pkg/peer"
	"github.com/bastiangx/wordtrie/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTopK keeps every completion at every node, so results are never capped.
const DefaultTopK = trie.Unbounded

// ErrNoLocalTree is returned by lookups that need a local tree on a network vocabulary.
var ErrNoLocalTree = errors.New("vocabulary has no local tree")

// casers are not safe for concurrent use, so each lookup borrows one.
var lowerCasers = sync.Pool{
	New: func() any {
		c := cases.Lower(language.Und)
		return &c
	},
}

// Vocabulary answers completions either from a local prefix tree or from a peer.
type Vocabulary struct {
	tree  *trie.PrefixTree
	index *patricia.Trie
	opts  options

	remote       *peer.Client
	remoteErrors *xsync.Counter
}

// New builds a local vocabulary from entries. Words are lowercased unless
// WithCaseSensitive(true) is given; entries that fold to the same word keep the
// weight of the later one.
func New(entries []dictionary.Entry, opts ...Option) *Vocabulary {
	v := &Vocabulary{
		opts:         buildOptions(opts),
		index:        patricia.NewTrie(),
		remoteErrors: xsync.NewCounter(),
	}
	v.tree = trie.New(v.opts.topK, v.opts.lockTimeout)

	for _, e := range entries {
		if !utf8.ValidString(e.Word) {
			log.Warnf("Skipping word %q: not valid UTF-8", e.Word)
			continue
		}
		word := v.normalize(e.Word)
		if word == "" {
			continue
		}
		v.tree.Insert(word, e.Weight)
		v.index.Set(patricia.Prefix(word), e.Weight)
	}

	log.Debugf("Vocabulary built: %d words, top-k %d, case sensitive %v",
		v.tree.Len(), v.tree.K(), v.opts.caseSensitive)
	return v
}

// NewNetwork returns a vocabulary that forwards every lookup to the peer behind client.
// Only the case policy among opts applies.
func NewNetwork(client *peer.Client, opts ...Option) *Vocabulary {
	return &Vocabulary{
		opts:         buildOptions(opts),
		remote:       client,
		remoteErrors: xsync.NewCounter(),
	}
}

// Remote reports whether lookups go to a peer.
func (v *Vocabulary) Remote() bool {
	return v.remote != nil
}

// Len returns the number of local words, 0 for a network vocabulary.
func (v *Vocabulary) Len() int {
	if v.tree == nil {
		return 0
	}
	return v.tree.Len()
}

// Complete returns up to limit completions of prefix, best first.
// Local results are capped at the configured top-k. A failed peer lookup is
// logged and yields an empty result.
func (v *Vocabulary) Complete(prefix string, limit int) []string {
	words, err := v.TryComplete(context.Background(), prefix, limit)
	if err != nil {
		log.Warnf("Completion of %q failed: %v", prefix, err)
		return []string{}
	}
	return words
}

// TryComplete is Complete that surfaces lock timeouts and peer failures.
func (v *Vocabulary) TryComplete(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = v.normalize(prefix)
	if v.remote != nil {
		words, err := v.remote.Complete(ctx, prefix, limit)
		if err != nil {
			v.remoteErrors.Inc()
			return nil, err
		}
		return words, nil
	}
	return v.tree.TryQuery(ctx, prefix, limit)
}

// Suggestions returns the local completions of prefix with their weights.
func (v *Vocabulary) Suggestions(prefix string, limit int) ([]Suggestion, error) {
	if v.tree == nil {
		return nil, ErrNoLocalTree
	}
	completions, err := v.tree.TryCompletions(context.Background(), v.normalize(prefix), limit)
	if err != nil {
		return nil, err
	}
	result := make([]Suggestion, len(completions))
	for i, c := range completions {
		result[i] = Suggestion{Word: c.Word, Weight: c.Weight}
	}
	return result, nil
}

// Scan walks the whole subtree under prefix and returns up to limit words in
// rank order. Unlike Complete it is not capped at top-k, and it costs time
// proportional to the number of matches. A network vocabulary returns nil.
func (v *Vocabulary) Scan(prefix string, limit int) []string {
	if v.index == nil {
		return nil
	}
	if limit <= 0 {
		return []string{}
	}

	var matches []trie.Completion
	collect := func(p patricia.Prefix, item patricia.Item) error {
		matches = append(matches, trie.Completion{Word: string(p), Weight: item.(int)})
		return nil
	}

	prefix = v.normalize(prefix)
	var err error
	if strings.TrimSpace(prefix) == "" {
		err = v.index.Visit(collect)
	} else {
		err = v.index.VisitSubtree(patricia.Prefix(prefix), collect)
	}
	if err != nil {
		log.Errorf("Error visiting index subtree: %v", err)
		return []string{}
	}

	slices.SortFunc(matches, func(a, b trie.Completion) int {
		switch {
		case trie.Outranks(a, b):
			return -1
		case trie.Outranks(b, a):
			return 1
		}
		return 0
	})

	words := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches[:min(limit, len(matches))] {
		words = append(words, m.Word)
	}
	return words
}

// Stats returns counters describing the vocabulary.
func (v *Vocabulary) Stats() map[string]int {
	stats := map[string]int{
		"caseSensitive": boolToInt(v.opts.caseSensitive),
		"remote":        boolToInt(v.remote != nil),
		"remoteErrors":  int(v.remoteErrors.Value()),
	}
	if v.tree != nil {
		s := v.tree.Stats()
		stats["words"] = s.Words
		stats["nodes"] = s.Nodes
		stats["topK"] = s.TopK
		stats["queries"] = s.Queries
		stats["misses"] = s.Misses
		stats["queryTimeouts"] = s.QueryTimeouts
		stats["insertTimeouts"] = s.InsertTimeouts
	}
	return stats
}

func (v *Vocabulary) normalize(s string) string {
	if v.opts.caseSensitive {
		return s
	}
	c := lowerCasers.Get().(*cases.Caser)
	defer lowerCasers.Put(c)
	return c.String(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
