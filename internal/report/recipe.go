// Package report combines stored analyses (and earlier reports) into
// weighted frequency reports, as described by a recipe file.
package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// SourceType says where a recipe source is read from.
type SourceType string

const (
	SourceAnalysis SourceType = "analysis"
	SourceReport   SourceType = "report"
)

// RecipeMetadata describes the report a recipe produces.
type RecipeMetadata struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Languages []string       `json:"languages" yaml:"languages"`
	Version   string         `json:"version" yaml:"version"`
	Extra     map[string]any `json:"extra,omitempty" yaml:"extra"`
}

// Source is one weighted input of a recipe. The strip flags remove
// sequences containing the corresponding character groups.
type Source struct {
	ID               string     `json:"id" yaml:"id"`
	Type             SourceType `json:"type" yaml:"type"`
	Weight           float64    `json:"weight" yaml:"weight"`
	StripWhitespace  bool       `json:"strip_whitespace" yaml:"strip_whitespace"`
	StripPunctuation bool       `json:"strip_punctuation" yaml:"strip_punctuation"`
	StripNumbers     bool       `json:"strip_numbers" yaml:"strip_numbers"`
	StripNonlatin    bool       `json:"strip_nonlatin" yaml:"strip_nonlatin"`
}

// StrippedGroups lists the character groups removed by the strip flags.
// Punctuation covers every ASCII symbol group; non-latin keeps only a-z and
// digits.
func (s Source) StrippedGroups() []string {
	var groups []string
	add := func(names ...string) {
		for _, name := range names {
			seen := false
			for _, g := range groups {
				if g == name {
					seen = true
					break
				}
			}
			if !seen {
				groups = append(groups, name)
			}
		}
	}
	if s.StripWhitespace {
		add("whitespace")
	}
	if s.StripPunctuation {
		add("punctuation", "brackets", "math", "quotation", "symbols")
	}
	if s.StripNumbers {
		add("numeric")
	}
	if s.StripNonlatin {
		add("nordic", "whitespace", "punctuation", "brackets", "math", "quotation", "symbols")
	}
	return groups
}

// AllowList returns the characters this source keeps.
func (s Source) AllowList() (ngram.CharSet, error) {
	return ngram.WithoutGroups(s.StrippedGroups())
}

// Recipe lists the sources of a report.
type Recipe struct {
	Metadata RecipeMetadata `json:"metadata" yaml:"metadata"`
	Sources  []Source       `json:"sources" yaml:"sources"`
}

// LoadRecipe reads a recipe file. JSON recipes parse as YAML.
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, 0, "recipe %s does not exist", path)
		}
		return nil, fmt.Errorf("reading recipe %s: %w", path, err)
	}
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "parsing recipe %s: %v", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("recipe %s: %w", path, err)
	}
	return &r, nil
}

// Validate checks ids, source types and weights.
func (r *Recipe) Validate() error {
	if r.Metadata.ID == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 0, "metadata.id is required")
	}
	if len(r.Sources) == 0 {
		return apperrors.New(apperrors.ErrInvalidInput, 0, "at least one source is required")
	}
	var total float64
	for i, s := range r.Sources {
		if s.ID == "" {
			return apperrors.Newf(apperrors.ErrInvalidInput, 0, "sources[%d].id is required", i)
		}
		switch s.Type {
		case SourceAnalysis, SourceReport:
		default:
			return apperrors.Newf(apperrors.ErrInvalidInput, 0, "sources[%d].type %q must be analysis or report", i, s.Type)
		}
		if s.Weight < 0 {
			return apperrors.Newf(apperrors.ErrInvalidInput, 0, "sources[%d].weight must not be negative", i)
		}
		if s.Type == SourceReport && s.ID == r.Metadata.ID {
			return apperrors.Newf(apperrors.ErrInvalidInput, 0, "sources[%d] refers to the report being built", i)
		}
		total += s.Weight
	}
	if total <= 0 {
		return apperrors.New(apperrors.ErrInvalidInput, 0, "total source weight must be positive")
	}
	return nil
}
