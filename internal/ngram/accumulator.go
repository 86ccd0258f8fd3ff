package ngram

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// Preprocessor transforms a whole text before it is counted.
type Preprocessor func(string) string

// Identity leaves text unchanged.
func Identity(s string) string { return s }

// LowerCase returns a language-aware lower-casing preprocessor. It is safe
// for concurrent use.
func LowerCase(tag language.Tag) Preprocessor {
	return func(s string) string {
		return cases.Lower(tag).String(s)
	}
}

// Options configures an Accumulator.
type Options struct {
	// MaxN is the longest n-gram counted.
	MaxN int
	// Skipgrams counts k-skipgrams for k = 1..Skipgrams. Zero disables them.
	Skipgrams int
	// Lower folds text to lower case using Language.
	Lower    bool
	Language language.Tag
	// Preprocess runs before case folding. Nil means Identity.
	Preprocess Preprocessor
}

// Accumulator counts n-grams over a sequence of independent texts. It is not
// safe for concurrent use; run one per goroutine and Combine the results.
type Accumulator struct {
	opts      Options
	ngrams    *Set
	skipgrams *Set
	win       *Window
	lower     cases.Caser
	texts     int64
	runes     int64
}

// NewAccumulator creates an accumulator with empty sets.
func NewAccumulator(opts Options) (*Accumulator, error) {
	set, err := NewSet(opts.MaxN)
	if err != nil {
		return nil, err
	}
	return NewAccumulatorInto(set, opts)
}

// NewAccumulatorInto continues counting into an existing set. opts.MaxN must
// be zero or match set.MaxN().
func NewAccumulatorInto(set *Set, opts Options) (*Accumulator, error) {
	if opts.MaxN == 0 {
		opts.MaxN = set.MaxN()
	}
	if opts.MaxN != set.MaxN() {
		return nil, apperrors.Newf(apperrors.ErrConfigMismatch, 0,
			"accumulator max n %d does not match set max n %d", opts.MaxN, set.MaxN())
	}
	if opts.Skipgrams < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "skipgrams must not be negative, got %d", opts.Skipgrams)
	}
	if opts.Preprocess == nil {
		opts.Preprocess = Identity
	}
	a := &Accumulator{
		opts:   opts,
		ngrams: set,
		win:    NewWindow(max(opts.MaxN, opts.Skipgrams+2)),
	}
	if opts.Skipgrams > 0 {
		sk, err := NewSkipgramSet(opts.Skipgrams)
		if err != nil {
			return nil, err
		}
		a.skipgrams = sk
	}
	if opts.Lower {
		a.lower = cases.Lower(opts.Language)
	}
	return a, nil
}

// Ingest counts every n-gram of text. Sequences never span two calls.
func (a *Accumulator) Ingest(text string) {
	text = a.opts.Preprocess(text)
	if a.opts.Lower {
		text = a.lower.String(text)
	}
	a.win.Reset()
	a.texts++
	for _, r := range text {
		a.win.Push(r)
		a.runes++
		for n := 1; n <= a.opts.MaxN; n++ {
			seq, ok := a.win.Last(n)
			if !ok {
				break
			}
			a.ngrams.tables[n-1].Increment(seq)
		}
		for k := 1; k <= a.opts.Skipgrams; k++ {
			first, last, ok := a.win.Span(k + 2)
			if !ok {
				break
			}
			a.skipgrams.tables[k-1].Increment(string([]rune{first, last}))
		}
	}
}

// NGrams returns the accumulated n-gram set. It is owned by the accumulator
// until counting is finished.
func (a *Accumulator) NGrams() *Set {
	return a.ngrams
}

// Skipgrams returns the skipgram set, or nil when disabled.
func (a *Accumulator) Skipgrams() *Set {
	return a.skipgrams
}

// Texts returns the number of texts ingested.
func (a *Accumulator) Texts() int64 {
	return a.texts
}

// Runes returns the number of runes ingested after preprocessing.
func (a *Accumulator) Runes() int64 {
	return a.runes
}
