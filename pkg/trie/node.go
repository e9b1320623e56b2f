package trie

import "github.com/google/btree"

const (
	rootIndex int32 = 0
	noParent  int32 = -1

	// rootLabel is never compared against prefix characters.
	rootLabel rune = -1

	btreeDegree = 8
)

// node is a single trie vertex living in the tree's arena.
// Children and parent are arena indices, so the tree has no ownership cycles.
type node struct {
	label    rune
	parent   int32
	children map[rune]int32

	terminal bool
	word     string
	weight   int

	// top holds terminal indices of this subtree ordered by the ranking rule.
	top *btree.BTreeG[int32]
}

func (t *PrefixTree) newNode(label rune, parent int32) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{
		label:  label,
		parent: parent,
		top:    btree.NewWithFreeListG(btreeDegree, t.less, t.freelist),
	})
	t.nodeCount.Inc()
	return idx
}

// getOrCreateChild returns the child of idx labelled ch, creating and parenting it if needed.
func (t *PrefixTree) getOrCreateChild(idx int32, ch rune) int32 {
	if c, ok := t.nodes[idx].children[ch]; ok {
		return c
	}
	c := t.newNode(ch, idx)
	// newNode may have grown the arena, so index again.
	n := &t.nodes[idx]
	if n.children == nil {
		n.children = make(map[rune]int32, 1)
	}
	n.children[ch] = c
	return c
}

// child is the read-only lookup used during traversal.
func (t *PrefixTree) child(idx int32, ch rune) (int32, bool) {
	c, ok := t.nodes[idx].children[ch]
	return c, ok
}

func (t *PrefixTree) completion(idx int32) Completion {
	n := &t.nodes[idx]
	return Completion{Word: n.word, Weight: n.weight}
}
