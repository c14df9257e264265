package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCategory = errors.New("invalid category")

// Category labels the kind of activity an entry records.
type Category string

// DefaultCategories is the reference category list used when none is configured.
var DefaultCategories = []string{"Python", "SQL", "Datasetu", "Break", "TT"}

// CategorySet is the closed, ordered set of categories accepted by the tracker.
// It is loaded once at startup and never mutated afterwards.
type CategorySet struct {
	ordered []Category
	index   map[Category]struct{}
}

// NewCategorySet validates names and keeps their order for display.
func NewCategorySet(names []string) (CategorySet, error) {
	set := CategorySet{index: make(map[Category]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return CategorySet{}, fmt.Errorf("category set: empty category name")
		}
		c := Category(n)
		if _, dup := set.index[c]; dup {
			return CategorySet{}, fmt.Errorf("category set: duplicate category %q", n)
		}
		set.index[c] = struct{}{}
		set.ordered = append(set.ordered, c)
	}
	if len(set.ordered) == 0 {
		return CategorySet{}, fmt.Errorf("category set: no categories configured")
	}
	return set, nil
}

// Contains reports whether c is a member of the set. Matching is case-sensitive.
func (s CategorySet) Contains(c Category) bool {
	_, ok := s.index[c]
	return ok
}

// Parse returns the category named by name or ErrInvalidCategory.
func (s CategorySet) Parse(name string) (Category, error) {
	c := Category(name)
	if !s.Contains(c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, name)
	}
	return c, nil
}

// List returns the categories in configured order.
func (s CategorySet) List() []Category {
	out := make([]Category, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// ZeroTotals returns a totals map holding every category at zero.
func (s CategorySet) ZeroTotals() CategoryTotals {
	t := make(CategoryTotals, len(s.ordered))
	for _, c := range s.ordered {
		t[c] = 0
	}
	return t
}
