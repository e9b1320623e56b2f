/*
Package trie is the completion core: a prefix tree whose every node keeps the
best K terminal entries of its subtree, precomputed at insertion time.

Ordering work happens in Insert so that Query is a walk down the prefix plus a
copy of at most limit entries. Entries are ranked by weight (higher first) and
then by word (ascending).

	t := trie.New(10, 0)
	t.Insert("hello", 120)
	t.Insert("help", 300)
	t.Query("hel", 5) // [help hello]

# Capped results

With a finite K a node only remembers its K best completions, so Query never
returns more than K words even when limit is larger and the subtree holds more
matches. This is the trade-off that keeps lookups cheap. Use Unbounded when
every completion must be reachable.

# Concurrency

The whole tree sits behind one reader-writer guard. Queries share it, inserts
take it exclusively. Acquisition waits at most the configured lock timeout;
Insert and Query then degrade to "no effect" and "empty result". TryInsert and
TryQuery report that case as ErrLockTimeout instead.
*/
package trie

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/btree"
	"github.com/puzpuzpuz/xsync/v4"
)

// Unbounded disables the per-node cap: every node keeps all completions of its subtree.
const Unbounded = 0

// DefaultLockTimeout bounds guard acquisition when no timeout is configured.
const DefaultLockTimeout = 10 * time.Second

// ErrLockTimeout is returned by TryInsert and TryQuery when the guard could not be acquired in time.
var ErrLockTimeout = errors.New("trie: lock acquisition timed out")

// ErrInvalidWord is returned by TryInsert for words that are not valid UTF-8.
// Children are keyed by rune, so two such words could share a path.
var ErrInvalidWord = errors.New("trie: word is not valid UTF-8")

// Stats is a point-in-time snapshot of tree counters.
type Stats struct {
	Words          int
	Nodes          int
	TopK           int
	Queries        int
	Misses         int
	QueryTimeouts  int
	InsertTimeouts int
}

// PrefixTree is a weighted prefix tree with per-node top-K completion caches.
// It is safe for concurrent use.
type PrefixTree struct {
	nodes    []node
	k        int
	freelist *btree.FreeListG[int32]
	guard    *guard

	wordCount      *xsync.Counter
	nodeCount      *xsync.Counter
	queries        *xsync.Counter
	misses         *xsync.Counter
	queryTimeouts  *xsync.Counter
	insertTimeouts *xsync.Counter
}

// New creates an empty tree keeping the best k completions per node.
// k <= 0 means Unbounded. lockTimeout <= 0 selects DefaultLockTimeout.
func New(k int, lockTimeout time.Duration) *PrefixTree {
	if k < 0 {
		k = Unbounded
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	t := &PrefixTree{
		k:              k,
		freelist:       btree.NewFreeListG[int32](btree.DefaultFreeListSize),
		guard:          newGuard(lockTimeout),
		wordCount:      xsync.NewCounter(),
		nodeCount:      xsync.NewCounter(),
		queries:        xsync.NewCounter(),
		misses:         xsync.NewCounter(),
		queryTimeouts:  xsync.NewCounter(),
		insertTimeouts: xsync.NewCounter(),
	}
	t.newNode(rootLabel, noParent)
	return t
}

// K returns the per-node cap, or Unbounded.
func (t *PrefixTree) K() int {
	return t.k
}

// Len returns the number of distinct words stored.
func (t *PrefixTree) Len() int {
	return int(t.wordCount.Value())
}

// Stats returns the current counters. It does not take the guard.
func (t *PrefixTree) Stats() Stats {
	return Stats{
		Words:          int(t.wordCount.Value()),
		Nodes:          int(t.nodeCount.Value()),
		TopK:           t.k,
		Queries:        int(t.queries.Value()),
		Misses:         int(t.misses.Value()),
		QueryTimeouts:  int(t.queryTimeouts.Value()),
		InsertTimeouts: int(t.insertTimeouts.Value()),
	}
}

// Insert stores word with weight. Inserting an existing word replaces its weight.
// If the guard cannot be acquired in time, or word is not valid UTF-8, the
// insert is dropped without mutation.
func (t *PrefixTree) Insert(word string, weight int) {
	if err := t.TryInsert(context.Background(), word, weight); err != nil {
		log.Warnf("Insert of %q abandoned: %v", word, err)
	}
}

// TryInsert is Insert that reports a guard timeout or cancelled ctx as ErrLockTimeout
// and a malformed word as ErrInvalidWord.
func (t *PrefixTree) TryInsert(ctx context.Context, word string, weight int) error {
	if word == "" {
		log.Debug("Ignoring empty word")
		return nil
	}
	if !utf8.ValidString(word) {
		return ErrInvalidWord
	}
	if err := t.guard.lock(ctx); err != nil {
		t.insertTimeouts.Inc()
		return err
	}
	defer t.guard.unlock()

	t.insert(word, weight)
	return nil
}

// Query returns up to limit words starting with prefix, best first.
// An empty or whitespace-only prefix matches every word. Results are capped at K.
func (t *PrefixTree) Query(prefix string, limit int) []string {
	words, err := t.TryQuery(context.Background(), prefix, limit)
	if err != nil {
		log.Warnf("Query for %q degraded to empty result: %v", prefix, err)
		return []string{}
	}
	return words
}

// TryQuery is Query that reports a guard timeout or cancelled ctx as ErrLockTimeout.
func (t *PrefixTree) TryQuery(ctx context.Context, prefix string, limit int) ([]string, error) {
	completions, err := t.TryCompletions(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	words := make([]string, len(completions))
	for i, c := range completions {
		words[i] = c.Word
	}
	return words, nil
}

// Completions is Query returning words together with their weights.
func (t *PrefixTree) Completions(prefix string, limit int) []Completion {
	completions, err := t.TryCompletions(context.Background(), prefix, limit)
	if err != nil {
		log.Warnf("Completions for %q degraded to empty result: %v", prefix, err)
		return []Completion{}
	}
	return completions
}

// TryCompletions is Completions that reports a guard timeout or cancelled ctx as ErrLockTimeout.
func (t *PrefixTree) TryCompletions(ctx context.Context, prefix string, limit int) ([]Completion, error) {
	if err := t.guard.rlock(ctx); err != nil {
		t.queryTimeouts.Inc()
		return nil, err
	}
	defer t.guard.runlock()

	t.queries.Inc()
	return t.query(prefix, limit), nil
}

func (t *PrefixTree) insert(word string, weight int) {
	cur := rootIndex
	for _, ch := range word {
		cur = t.getOrCreateChild(cur, ch)
	}

	n := &t.nodes[cur]
	if n.terminal {
		if n.weight == weight {
			return
		}
		t.reweight(cur, weight)
		return
	}

	n.terminal = true
	n.word = word
	n.weight = weight
	t.wordCount.Inc()
	t.propagate(cur)
}

// propagate offers the terminal leaf to each ancestor, leaf first, root last.
// Once an ancestor rejects it, every higher ancestor would as well: their sets
// are at least as good as the rejecting one's.
func (t *PrefixTree) propagate(leaf int32) {
	for cur := leaf; cur != noParent; cur = t.nodes[cur].parent {
		if !t.offer(cur, leaf) {
			return
		}
	}
}

// offer merges candidate into the top set of at, evicting the worst entry when
// the set is full. It reports whether candidate was kept.
func (t *PrefixTree) offer(at, candidate int32) bool {
	top := t.nodes[at].top
	if t.k == Unbounded || top.Len() < t.k {
		top.ReplaceOrInsert(candidate)
		return true
	}
	worst, _ := top.Max()
	if !t.less(candidate, worst) {
		return false
	}
	top.DeleteMax()
	top.ReplaceOrInsert(candidate)
	return true
}

// reweight changes the weight of an existing terminal. The node is detached
// while its old weight still orders the sets, then every set on its path is
// rebuilt bottom-up from the children, which are unaffected by the change.
func (t *PrefixTree) reweight(idx int32, weight int) {
	for cur := idx; cur != noParent; cur = t.nodes[cur].parent {
		t.nodes[cur].top.Delete(idx)
	}
	t.nodes[idx].weight = weight
	for cur := idx; cur != noParent; cur = t.nodes[cur].parent {
		t.rebuild(cur)
	}
}

func (t *PrefixTree) rebuild(at int32) {
	n := &t.nodes[at]
	n.top.Clear(true)
	if n.terminal {
		t.offer(at, at)
	}
	for _, c := range n.children {
		t.nodes[c].top.Ascend(func(item int32) bool {
			return t.offer(at, item)
		})
	}
}

// lookup resolves prefix to a node. Blank prefixes resolve to the root and
// prefixes that are not valid UTF-8 match nothing.
func (t *PrefixTree) lookup(prefix string) (int32, bool) {
	if strings.TrimSpace(prefix) == "" {
		return rootIndex, true
	}
	if !utf8.ValidString(prefix) {
		return 0, false
	}
	cur := rootIndex
	for _, ch := range prefix {
		next, ok := t.child(cur, ch)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

func (t *PrefixTree) query(prefix string, limit int) []Completion {
	if limit <= 0 {
		return []Completion{}
	}
	idx, ok := t.lookup(prefix)
	if !ok {
		t.misses.Inc()
		return []Completion{}
	}

	top := t.nodes[idx].top
	result := make([]Completion, 0, min(limit, top.Len()))
	top.Ascend(func(item int32) bool {
		result = append(result, t.completion(item))
		return len(result) < limit
	})
	return result
}
