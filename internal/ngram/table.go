package ngram

import (
	"cmp"
	"slices"
)

// Entry is a single sequence and its count.
type Entry struct {
	Seq   string
	Count int64
}

// Table holds the counts of every observed sequence of exactly N runes.
// Skipgram tables are indexed by skip distance and hold two-rune pairs, so
// their key width differs from N.
type Table struct {
	n      int
	width  int
	counts map[string]int64
}

// NewTable creates an empty table for sequences of length n.
func NewTable(n int) *Table {
	return newTable(n, n)
}

func newTable(n, width int) *Table {
	return &Table{
		n:      n,
		width:  width,
		counts: make(map[string]int64),
	}
}

// N returns the sequence length this table counts.
func (t *Table) N() int {
	return t.n
}

// Width returns the number of runes in every key.
func (t *Table) Width() int {
	return t.width
}

// Increment adds one occurrence of seq. The caller guarantees seq has N runes.
func (t *Table) Increment(seq string) {
	t.counts[seq]++
}

// Add adds count occurrences of seq. Non-positive counts are ignored.
func (t *Table) Add(seq string, count int64) {
	if count <= 0 {
		return
	}
	t.counts[seq] += count
}

// Count returns the count for seq, zero when absent.
func (t *Table) Count(seq string) int64 {
	return t.counts[seq]
}

// Len returns the number of distinct sequences.
func (t *Table) Len() int {
	return len(t.counts)
}

// Total returns the sum of all counts.
func (t *Table) Total() int64 {
	var total int64
	for _, c := range t.counts {
		total += c
	}
	return total
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	out := &Table{n: t.n, width: t.width, counts: make(map[string]int64, len(t.counts))}
	for seq, c := range t.counts {
		out.counts[seq] = c
	}
	return out
}

// Combine returns a new table whose counts are the per-sequence sums of t and
// other. Neither input is modified.
func (t *Table) Combine(other *Table) *Table {
	out := t.Clone()
	for seq, c := range other.counts {
		out.counts[seq] += c
	}
	return out
}

// Filter returns a copy of t without any sequence that contains a rune
// outside allow, together with a tally of the offending runes. Each removed
// sequence adds one to the tally of every distinct disallowed rune it holds.
func (t *Table) Filter(allow CharSet) (*Table, map[rune]int64) {
	kept := &Table{n: t.n, width: t.width, counts: make(map[string]int64, len(t.counts))}
	tally := make(map[rune]int64)
	for seq, c := range t.counts {
		offending := disallowedRunes(seq, allow)
		if len(offending) == 0 {
			kept.counts[seq] = c
			continue
		}
		for _, r := range offending {
			tally[r]++
		}
	}
	return kept, tally
}

// Frequencies normalizes the table by its total. An empty table yields an
// empty result.
func (t *Table) Frequencies() FrequencyTable {
	return fromTable(t)
}

// Entries returns the table ordered by count descending, ties broken by
// sequence in ascending code point order.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.counts))
	for seq, c := range t.counts {
		entries = append(entries, Entry{Seq: seq, Count: c})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return entries
}

// disallowedRunes returns the distinct runes of seq not in allow, in order of
// first appearance.
func disallowedRunes(seq string, allow CharSet) []rune {
	var out []rune
	for _, r := range seq {
		if allow.Contains(r) || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}
