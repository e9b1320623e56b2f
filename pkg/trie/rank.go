package trie

// Completion is a terminal entry as seen by callers: the stored word and its weight.
type Completion struct {
	Word   string
	Weight int
}

// Outranks reports whether a sorts before b under the ranking rule:
// higher weight first, then lexicographically ascending word.
// Entries with equal weight and equal word are equal, so neither outranks the other.
func Outranks(a, b Completion) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.Word < b.Word
}

// less is the ordering used by every per-node top set. Both indices must be terminal.
func (t *PrefixTree) less(a, b int32) bool {
	na, nb := &t.nodes[a], &t.nodes[b]
	if na.weight != nb.weight {
		return na.weight > nb.weight
	}
	return na.word < nb.word
}
