package ngram

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
)

// Frequency is the relative frequency of a single sequence.
type Frequency struct {
	Seq   string
	Value float64
}

// FrequencyTable is an ordered list of frequencies, highest first. It
// serializes to a JSON object whose key order matches the slice order.
type FrequencyTable []Frequency

// Normalize turns arbitrary non-negative weights into an ordered frequency
// table that sums to one. A zero total yields an empty table.
func Normalize(weights map[string]float64) FrequencyTable {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return FrequencyTable{}
	}
	out := make(FrequencyTable, 0, len(weights))
	for seq, w := range weights {
		if w <= 0 {
			continue
		}
		out = append(out, Frequency{Seq: seq, Value: w / total})
	}
	out.sort()
	return out
}

func fromTable(t *Table) FrequencyTable {
	total := t.Total()
	if total == 0 {
		return FrequencyTable{}
	}
	entries := t.Entries()
	out := make(FrequencyTable, len(entries))
	for i, e := range entries {
		out[i] = Frequency{Seq: e.Seq, Value: float64(e.Count) / float64(total)}
	}
	return out
}

func (f FrequencyTable) sort() {
	slices.SortFunc(f, func(a, b Frequency) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

// Sum returns the total of all values.
func (f FrequencyTable) Sum() float64 {
	var s float64
	for _, e := range f {
		s += e.Value
	}
	return s
}

// Get returns the frequency of seq.
func (f FrequencyTable) Get(seq string) (float64, bool) {
	for _, e := range f {
		if e.Seq == seq {
			return e.Value, true
		}
	}
	return 0, false
}

// Top returns at most k leading entries. k <= 0 returns the whole table.
func (f FrequencyTable) Top(k int) FrequencyTable {
	if k <= 0 || k >= len(f) {
		return f
	}
	return f[:k]
}

// Map returns the table as an unordered map.
func (f FrequencyTable) Map() map[string]float64 {
	m := make(map[string]float64, len(f))
	for _, e := range f {
		m[e.Seq] = e.Value
	}
	return m
}

func (f FrequencyTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Seq)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding frequency of %q: %w", e.Seq, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *FrequencyTable) UnmarshalJSON(data []byte) error {
	out := FrequencyTable{}
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decoding frequency of %q: %w", key, err)
		}
		out = append(out, Frequency{Seq: key, Value: v})
		return nil
	})
	if err != nil {
		return err
	}
	*f = out
	return nil
}

// decodeOrderedObject walks a JSON object in document order, calling fn for
// each key with the decoder positioned at its value.
func decodeOrderedObject(data []byte, fn func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(key, dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
