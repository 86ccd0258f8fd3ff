package ngram

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/language"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

func TestAccumulatorCountsAbcabc(t *testing.T) {
	acc, err := NewAccumulator(Options{MaxN: 3})
	if err != nil {
		t.Fatal(err)
	}
	acc.Ingest("abcabc")
	set := acc.NGrams()

	want := map[int]map[string]int64{
		1: {"a": 2, "b": 2, "c": 2},
		2: {"ab": 2, "bc": 2, "ca": 1},
		3: {"abc": 2, "bca": 1, "cab": 1},
	}
	for n, counts := range want {
		if !reflect.DeepEqual(set.Table(n).counts, counts) {
			t.Errorf("table %d = %v, want %v", n, set.Table(n).counts, counts)
		}
	}
	if acc.Runes() != 6 || acc.Texts() != 1 {
		t.Errorf("Runes()=%d Texts()=%d, want 6 and 1", acc.Runes(), acc.Texts())
	}
}

func TestAccumulatorConservation(t *testing.T) {
	texts := []string{"the quick brown fox", "ab", "", "jumps över the lazy dog"}
	acc, err := NewAccumulator(Options{MaxN: 4})
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range texts {
		acc.Ingest(text)
	}
	for n := 1; n <= 4; n++ {
		var want int64
		for _, text := range texts {
			if l := len([]rune(text)); l >= n {
				want += int64(l - n + 1)
			}
		}
		if got := acc.NGrams().Table(n).Total(); got != want {
			t.Errorf("length %d total = %d, want %d", n, got, want)
		}
	}
}

func TestAccumulatorTextsDoNotSpan(t *testing.T) {
	acc, err := NewAccumulator(Options{MaxN: 2})
	if err != nil {
		t.Fatal(err)
	}
	acc.Ingest("ab")
	acc.Ingest("cd")
	if c := acc.NGrams().Table(2).Count("bc"); c != 0 {
		t.Errorf("bigram spanning texts counted %d times", c)
	}
}

func TestAccumulatorMultibyte(t *testing.T) {
	acc, err := NewAccumulator(Options{MaxN: 2})
	if err != nil {
		t.Fatal(err)
	}
	acc.Ingest("æøå")
	if c := acc.NGrams().Table(2).Count("æø"); c != 1 {
		t.Errorf("Count(æø) = %d, want 1", c)
	}
	if acc.NGrams().Table(1).Len() != 3 {
		t.Errorf("unigram count = %d, want 3", acc.NGrams().Table(1).Len())
	}
}

func TestAccumulatorLowerCase(t *testing.T) {
	tests := []struct {
		name string
		tag  language.Tag
		text string
		want string
	}{
		{"undetermined", language.Und, "ABC", "abc"},
		{"german sharp s untouched", language.German, "STRAßE", "straße"},
		{"turkish dotted I", language.Turkish, "I", "ı"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := NewAccumulator(Options{MaxN: 1, Lower: true, Language: tt.tag})
			if err != nil {
				t.Fatal(err)
			}
			acc.Ingest(tt.text)
			for _, r := range tt.want {
				if acc.NGrams().Table(1).Count(string(r)) == 0 {
					t.Errorf("expected %q to be counted", r)
				}
			}
		})
	}
}

func TestAccumulatorPreprocess(t *testing.T) {
	acc, err := NewAccumulator(Options{
		MaxN:       1,
		Preprocess: func(s string) string { return strings.ReplaceAll(s, "x", "") },
	})
	if err != nil {
		t.Fatal(err)
	}
	acc.Ingest("axb")
	if acc.NGrams().Table(1).Count("x") != 0 {
		t.Error("preprocessor output was not used")
	}
}

func TestAccumulatorSkipgrams(t *testing.T) {
	acc, err := NewAccumulator(Options{MaxN: 1, Skipgrams: 2})
	if err != nil {
		t.Fatal(err)
	}
	acc.Ingest("abcd")
	sk := acc.Skipgrams()
	if sk == nil {
		t.Fatal("Skipgrams() = nil")
	}
	want := map[int]map[string]int64{
		1: {"ac": 1, "bd": 1},
		2: {"ad": 1},
	}
	for k, counts := range want {
		if !reflect.DeepEqual(sk.Table(k).counts, counts) {
			t.Errorf("skipgram %d = %v, want %v", k, sk.Table(k).counts, counts)
		}
	}
}

func TestAccumulatorIntoMismatch(t *testing.T) {
	set := mustSet(t, 2)
	if _, err := NewAccumulatorInto(set, Options{MaxN: 3}); !apperrors.Is(err, apperrors.ErrConfigMismatch) {
		t.Errorf("error = %v, want ErrConfigMismatch", err)
	}
	acc, err := NewAccumulatorInto(set, Options{})
	if err != nil {
		t.Fatal(err)
	}
	acc.Ingest("ab")
	if set.Table(2).Count("ab") != 1 {
		t.Error("accumulator did not count into the supplied set")
	}
}

func TestShardedCombineMatchesSingle(t *testing.T) {
	texts := []string{"lorem ipsum", "dolor sit amet", "consectetur", "adipiscing elit"}
	single, _ := NewAccumulator(Options{MaxN: 3})
	for _, text := range texts {
		single.Ingest(text)
	}

	left, _ := NewAccumulator(Options{MaxN: 3})
	right, _ := NewAccumulator(Options{MaxN: 3})
	for i, text := range texts {
		if i%2 == 0 {
			left.Ingest(text)
		} else {
			right.Ingest(text)
		}
	}
	combined, err := left.NGrams().Combine(right.NGrams())
	if err != nil {
		t.Fatal(err)
	}
	for n := 1; n <= 3; n++ {
		if !reflect.DeepEqual(combined.Table(n).counts, single.NGrams().Table(n).counts) {
			t.Errorf("table %d differs between sharded and single runs", n)
		}
	}
}

func BenchmarkAccumulatorIngest(b *testing.B) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)
	acc, _ := NewAccumulator(Options{MaxN: 3, Skipgrams: 3, Lower: true})
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		acc.Ingest(text)
	}
}

func BenchmarkSetCombine(b *testing.B) {
	text := strings.Repeat("pack my box with five dozen liquor jugs ", 50)
	left, _ := NewAccumulator(Options{MaxN: 3})
	right, _ := NewAccumulator(Options{MaxN: 3})
	left.Ingest(text)
	right.Ingest(strings.ToUpper(text))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := left.NGrams().Combine(right.NGrams()); err != nil {
			b.Fatal(err)
		}
	}
}
