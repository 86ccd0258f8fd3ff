package corpus

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/mod/semver"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

const maxFieldLength = 256

// Source describes where a corpus came from.
type Source struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Version string `json:"version"`
	// License is ideally an SPDX identifier.
	License string `json:"license"`
}

// Corpus is a published frequency corpus with provenance metadata. NGrams
// is keyed by n-gram length ("1", "2", ...).
type Corpus struct {
	Name          string                          `json:"name"`
	ID            string                          `json:"id"`
	Language      string                          `json:"language"`
	Version       string                          `json:"version"`
	ExtraMetadata map[string]any                  `json:"extra_metadata"`
	Source        Source                          `json:"source"`
	NGrams        map[string]ngram.FrequencyTable `json:"ngrams"`
}

// Meta is the descriptive part of a Corpus.
type Meta struct {
	Name          string
	ID            string
	Language      string
	Version       string
	ExtraMetadata map[string]any
	Source        Source
}

// NewCorpus attaches frequency tables to meta and validates the result.
func NewCorpus(meta Meta, freqs map[int]ngram.FrequencyTable) (*Corpus, error) {
	c := &Corpus{
		Name:          meta.Name,
		ID:            meta.ID,
		Language:      meta.Language,
		Version:       meta.Version,
		ExtraMetadata: meta.ExtraMetadata,
		Source:        meta.Source,
		NGrams:        make(map[string]ngram.FrequencyTable, len(freqs)),
	}
	if c.ExtraMetadata == nil {
		c.ExtraMetadata = map[string]any{}
	}
	for n, table := range freqs {
		c.NGrams[strconv.Itoa(n)] = table
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%s: %s", field, e.Fields[field])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Validate checks lengths, versions and the source URL.
func (c *Corpus) Validate() error {
	errs := make(map[string]string)
	checkLength(errs, "name", c.Name, true)
	checkLength(errs, "id", c.ID, true)
	if strings.TrimSpace(c.Language) == "" {
		errs["language"] = "language is required"
	}
	checkVersion(errs, "version", c.Version)

	checkLength(errs, "source.name", c.Source.Name, true)
	checkLength(errs, "source.license", c.Source.License, false)
	checkVersion(errs, "source.version", c.Source.Version)
	if msg := checkURL(c.Source.URL); msg != "" {
		errs["source.url"] = msg
	}
	for key := range c.NGrams {
		if n, err := strconv.Atoi(key); err != nil || n < 1 {
			errs["ngrams"] = fmt.Sprintf("key %q is not a positive length", key)
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkLength(errs map[string]string, field, value string, required bool) {
	if required && strings.TrimSpace(value) == "" {
		errs[field] = field + " is required"
		return
	}
	if utf8.RuneCountInString(value) > maxFieldLength {
		errs[field] = fmt.Sprintf("%s must be at most %d characters", field, maxFieldLength)
	}
}

// checkVersion accepts full semantic versions such as 1.0.2,
// 2.15.3-alpha or 21.3.15-beta+12345.
func checkVersion(errs map[string]string, field, value string) {
	v := "v" + strings.TrimPrefix(value, "v")
	core, _, _ := strings.Cut(v, "+")
	if !semver.IsValid(v) || semver.Canonical(v) != core {
		errs[field] = fmt.Sprintf("%q is not a semantic version (major.minor.patch)", value)
	}
}

func checkURL(raw string) string {
	if raw == "" {
		return "url is required"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid url: %v", err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return "http url must have a host"
		}
	case "file":
		if u.Path == "" {
			return "file url must have a path"
		}
	default:
		return fmt.Sprintf("unsupported url scheme %q (http, https or file)", u.Scheme)
	}
	return ""
}
