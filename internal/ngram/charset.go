package ngram

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// CharSet is an immutable set of runes used as a filter allow-list.
type CharSet struct {
	runes map[rune]struct{}
}

// NewCharSet builds a CharSet from every rune in chars.
func NewCharSet(chars string) CharSet {
	m := make(map[rune]struct{}, len(chars))
	for _, r := range chars {
		m[r] = struct{}{}
	}
	return CharSet{runes: m}
}

// Contains reports whether r is in the set.
func (c CharSet) Contains(r rune) bool {
	_, ok := c.runes[r]
	return ok
}

// Len returns the number of distinct runes.
func (c CharSet) Len() int {
	return len(c.runes)
}

// Union returns a new set holding the runes of c and all others.
func (c CharSet) Union(others ...CharSet) CharSet {
	m := make(map[rune]struct{}, len(c.runes))
	for r := range c.runes {
		m[r] = struct{}{}
	}
	for _, o := range others {
		for r := range o.runes {
			m[r] = struct{}{}
		}
	}
	return CharSet{runes: m}
}

// String returns the runes in ascending code point order.
func (c CharSet) String() string {
	rs := make([]rune, 0, len(c.runes))
	for r := range c.runes {
		rs = append(rs, r)
	}
	slices.Sort(rs)
	return string(rs)
}

// Group is a named set of characters that can be allowed as a unit.
type Group struct {
	Name  string
	Chars string
}

// DefaultGroups is the reference grouping used when a caller does not
// supply its own allow-list.
var DefaultGroups = []Group{
	{Name: "latin", Chars: "abcdefghijklmnopqrstuvwxyz"},
	{Name: "nordic", Chars: "æøå"},
	{Name: "whitespace", Chars: " \t\n"},
	{Name: "numeric", Chars: "0123456789"},
	{Name: "punctuation", Chars: ",.:;?!¡¿‽"},
	{Name: "brackets", Chars: "()[]{}<>"},
	{Name: "math", Chars: "+-=%*"},
	{Name: "quotation", Chars: "\"'`"},
	{Name: "symbols", Chars: "~@#_^$&|"},
}

// GroupNames lists the names of DefaultGroups in declaration order.
func GroupNames() []string {
	names := make([]string, len(DefaultGroups))
	for i, g := range DefaultGroups {
		names[i] = g.Name
	}
	return names
}

// DefaultAllowList is the union of every default group.
func DefaultAllowList() CharSet {
	set, _ := AllowListFromGroups(nil)
	return set
}

// AllowListFromGroups unions the named default groups. An empty list selects
// all of them.
func AllowListFromGroups(names []string) (CharSet, error) {
	if len(names) == 0 {
		names = GroupNames()
	}
	var b strings.Builder
	for _, name := range names {
		g, ok := lookupGroup(name)
		if !ok {
			return CharSet{}, apperrors.Newf(apperrors.ErrInvalidInput, 0,
				"unknown character group %q (valid: %s)", name, strings.Join(GroupNames(), ", "))
		}
		b.WriteString(g.Chars)
	}
	return NewCharSet(b.String()), nil
}

// WithoutGroups unions every default group except the named ones.
func WithoutGroups(names []string) (CharSet, error) {
	excluded := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := lookupGroup(name); !ok {
			return CharSet{}, fmt.Errorf("excluding group: %w",
				apperrors.Newf(apperrors.ErrInvalidInput, 0, "unknown character group %q", name))
		}
		excluded[name] = struct{}{}
	}
	var b strings.Builder
	for _, g := range DefaultGroups {
		if _, skip := excluded[g.Name]; skip {
			continue
		}
		b.WriteString(g.Chars)
	}
	return NewCharSet(b.String()), nil
}

func lookupGroup(name string) (Group, bool) {
	for _, g := range DefaultGroups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}
