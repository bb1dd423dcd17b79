package textkit

import "sort"

// WordCount is one entry of a keyword frequency table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Frequencies counts occurrences per distinct token, preserving
// first-occurrence order so downstream tie-breaks are deterministic.
func Frequencies(tokens []string) []WordCount {
	index := make(map[string]int, len(tokens))
	var out []WordCount

	for _, tok := range tokens {
		if i, ok := index[tok]; ok {
			out[i].Count++
			continue
		}
		index[tok] = len(out)
		out = append(out, WordCount{Word: tok, Count: 1})
	}

	return out
}

// TopK selects the k highest-count entries, count descending, ties broken by
// first-occurrence order. The input slice is not modified.
func TopK(freqs []WordCount, k int) []WordCount {
	if k <= 0 {
		return nil
	}

	ranked := make([]WordCount, len(freqs))
	copy(ranked, freqs)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })

	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}
