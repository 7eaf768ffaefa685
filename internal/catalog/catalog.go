// Package catalog loads the category dictionaries used to classify feed items.
//
// A catalog is read once at startup and never mutated afterwards, so a single
// *Catalog can be shared between goroutines.
package catalog

import (
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"city_bot/internal/model"
)

//go:embed default.yaml
var defaultYAML []byte

// Any requests classification against every category of a set.
const Any = "any"

// ErrUnknownCategory is returned when a category is not defined in a set.
var ErrUnknownCategory = errors.New("unknown category")

// Rule is a named category with its keyword lists.
// Keywords are stored lower-cased.
type Rule struct {
	Name            string   `yaml:"name"`
	Label           string   `yaml:"label"`
	Keywords        []string `yaml:"keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

type setFile struct {
	DefaultLabel          string   `yaml:"default_label"`
	SharedExcludeKeywords []string `yaml:"shared_exclude_keywords"`
	Categories            []Rule   `yaml:"categories"`
}

type file struct {
	News   setFile `yaml:"news"`
	Events setFile `yaml:"events"`
}

// Set is the ordered list of categories for one content domain.
type Set struct {
	defaultLabel string
	rules        []Rule
	index        map[string]int
}

// Catalog holds the category sets for every domain.
type Catalog struct {
	News   *Set
	Events *Set
}

// Load reads a catalog from a YAML file. An empty path loads the built-in
// dictionaries.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	news, err := newSet(f.News)
	if err != nil {
		return nil, fmt.Errorf("validate news categories: %w", err)
	}
	events, err := newSet(f.Events)
	if err != nil {
		return nil, fmt.Errorf("validate events categories: %w", err)
	}
	return &Catalog{News: news, Events: events}, nil
}

// Domain returns the set for d, or nil if d is unknown.
func (c *Catalog) Domain(d model.Domain) *Set {
	switch d {
	case model.DomainNews:
		return c.News
	case model.DomainEvents:
		return c.Events
	}
	return nil
}

func newSet(sf setFile) (*Set, error) {
	if len(sf.Categories) == 0 {
		return nil, errors.New("no categories defined")
	}

	shared := lowerAll(sf.SharedExcludeKeywords)
	s := &Set{
		defaultLabel: sf.DefaultLabel,
		index:        make(map[string]int, len(sf.Categories)),
	}
	for i, r := range sf.Categories {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("category %d: name is required", i)
		}
		if name == Any {
			return nil, fmt.Errorf("category %d: %q is reserved", i, Any)
		}
		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("category %q defined twice", name)
		}
		keywords := lowerAll(r.Keywords)
		if len(keywords) == 0 {
			return nil, fmt.Errorf("category %q: no keywords", name)
		}

		exclude := lowerAll(r.ExcludeKeywords)
		for _, kw := range shared {
			if !slices.Contains(exclude, kw) {
				exclude = append(exclude, kw)
			}
		}

		s.index[name] = len(s.rules)
		s.rules = append(s.rules, Rule{
			Name:            name,
			Label:           cmp.Or(strings.TrimSpace(r.Label), name),
			Keywords:        keywords,
			ExcludeKeywords: exclude,
		})
	}
	return s, nil
}

// Rule returns the category with the given name.
func (s *Set) Rule(name string) (Rule, bool) {
	i, ok := s.index[name]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// Rules returns all categories in declared order.
func (s *Set) Rules() []Rule {
	return slices.Clone(s.rules)
}

// Check returns ErrUnknownCategory unless name is Any or a defined category.
func (s *Set) Check(name string) error {
	if name == Any {
		return nil
	}
	if _, ok := s.index[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return nil
}

// Label returns the display label for a category, falling back to the
// set's default label.
func (s *Set) Label(name string) string {
	if r, ok := s.Rule(name); ok {
		return r.Label
	}
	return s.defaultLabel
}

// Lower lower-cases s using Russian casing rules.
func Lower(s string) string {
	return cases.Lower(language.Russian).String(s)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, Lower(s))
	}
	return out
}
