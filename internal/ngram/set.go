package ngram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// Set is the full collection of n-gram tables for lengths 1..MaxN together
// with the tally of characters removed by filtering.
//
// A Set used for skipgrams indexes its tables by skip distance k instead of
// length; every key in those tables has two runes.
type Set struct {
	maxN     int
	skipgram bool
	tables   []*Table
	filtered map[rune]int64
}

const kindSkipgram = "skipgram"

// NewSet creates an empty set with one table per length 1..maxN.
func NewSet(maxN int) (*Set, error) {
	return newSet(maxN, false)
}

// NewSkipgramSet creates an empty set with one two-rune table per skip
// distance 1..maxK.
func NewSkipgramSet(maxK int) (*Set, error) {
	return newSet(maxK, true)
}

func newSet(maxN int, skipgram bool) (*Set, error) {
	if maxN < 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "max n must be at least 1, got %d", maxN)
	}
	s := &Set{
		maxN:     maxN,
		skipgram: skipgram,
		tables:   make([]*Table, maxN),
		filtered: make(map[rune]int64),
	}
	for i := range s.tables {
		width := i + 1
		if skipgram {
			width = 2
		}
		s.tables[i] = newTable(i+1, width)
	}
	return s, nil
}

// MaxN returns the longest length (or skip distance) the set holds.
func (s *Set) MaxN() int {
	return s.maxN
}

// Skipgram reports whether the set counts skipgram pairs.
func (s *Set) Skipgram() bool {
	return s.skipgram
}

// Table returns the table for length n, or nil when n is out of range.
func (s *Set) Table(n int) *Table {
	if n < 1 || n > s.maxN {
		return nil
	}
	return s.tables[n-1]
}

// FilteredChars returns a copy of the filtered-character tally.
func (s *Set) FilteredChars() map[rune]int64 {
	return maps.Clone(s.filtered)
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	out := &Set{
		maxN:     s.maxN,
		skipgram: s.skipgram,
		tables:   make([]*Table, s.maxN),
		filtered: maps.Clone(s.filtered),
	}
	for i, t := range s.tables {
		out.tables[i] = t.Clone()
	}
	return out
}

// Combine merges two sets with the same MaxN into a new set. Counts and
// filtered-character tallies are summed; neither input is modified.
func (s *Set) Combine(other *Set) (*Set, error) {
	if s.maxN != other.maxN {
		return nil, apperrors.Newf(apperrors.ErrConfigMismatch, 0,
			"cannot combine sets with max n %d and %d", s.maxN, other.maxN)
	}
	if s.skipgram != other.skipgram {
		return nil, apperrors.New(apperrors.ErrConfigMismatch, 0, "cannot combine an n-gram set with a skipgram set")
	}
	out := &Set{
		maxN:     s.maxN,
		skipgram: s.skipgram,
		tables:   make([]*Table, s.maxN),
		filtered: maps.Clone(s.filtered),
	}
	for i := range s.tables {
		out.tables[i] = s.tables[i].Combine(other.tables[i])
	}
	for r, c := range other.filtered {
		out.filtered[r] += c
	}
	return out, nil
}

// Filter returns a new set holding only sequences made entirely of runes in
// allow. Tallies from every table are added to the existing tally.
func (s *Set) Filter(allow CharSet) *Set {
	out := &Set{
		maxN:     s.maxN,
		skipgram: s.skipgram,
		tables:   make([]*Table, s.maxN),
		filtered: maps.Clone(s.filtered),
	}
	for i, t := range s.tables {
		kept, tally := t.Filter(allow)
		out.tables[i] = kept
		for r, c := range tally {
			out.filtered[r] += c
		}
	}
	return out
}

// Frequencies normalizes every table by its own total. Lengths with no
// observations map to an empty table.
func (s *Set) Frequencies() map[int]FrequencyTable {
	out := make(map[int]FrequencyTable, s.maxN)
	for i, t := range s.tables {
		out[i+1] = fromTable(t)
	}
	return out
}

type setJSON struct {
	N             int                        `json:"n"`
	Kind          string                     `json:"kind,omitempty"`
	Counts        map[string]json.RawMessage `json:"counts"`
	FilteredChars map[string]int64           `json:"filtered_chars"`
}

func (s *Set) MarshalJSON() ([]byte, error) {
	doc := setJSON{
		N:             s.maxN,
		Counts:        make(map[string]json.RawMessage, s.maxN),
		FilteredChars: make(map[string]int64, len(s.filtered)),
	}
	if s.skipgram {
		doc.Kind = kindSkipgram
	}
	for i, t := range s.tables {
		raw, err := marshalEntries(t.Entries())
		if err != nil {
			return nil, fmt.Errorf("encoding table %d: %w", i+1, err)
		}
		doc.Counts[strconv.Itoa(i+1)] = raw
	}
	for r, c := range s.filtered {
		doc.FilteredChars[string(r)] = c
	}
	return json.Marshal(doc)
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var doc setJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var skipgram bool
	switch doc.Kind {
	case "":
	case kindSkipgram:
		skipgram = true
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "unknown set kind %q", doc.Kind)
	}
	decoded, err := newSet(doc.N, skipgram)
	if err != nil {
		return err
	}
	for key, raw := range doc.Counts {
		n, err := strconv.Atoi(key)
		if err != nil || decoded.Table(n) == nil {
			return apperrors.Newf(apperrors.ErrInvalidInput, 0, "table key %q out of range 1..%d", key, doc.N)
		}
		var counts map[string]int64
		if err := json.Unmarshal(raw, &counts); err != nil {
			return fmt.Errorf("decoding table %d: %w", n, err)
		}
		t := decoded.Table(n)
		for seq, c := range counts {
			if got := utf8.RuneCountInString(seq); got != t.Width() {
				return apperrors.Newf(apperrors.ErrInvalidInput, 0,
					"table %d key %q has %d runes, want %d", n, seq, got, t.Width())
			}
			t.Add(seq, c)
		}
	}
	for key, c := range doc.FilteredChars {
		r, size := utf8.DecodeRuneInString(key)
		if size == 0 || size != len(key) {
			return apperrors.Newf(apperrors.ErrInvalidInput, 0, "filtered character key %q is not a single rune", key)
		}
		decoded.filtered[r] += c
	}
	*s = *decoded
	return nil
}

// marshalEntries writes entries as a JSON object preserving their order.
func marshalEntries(entries []Entry) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Seq)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(e.Count, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
