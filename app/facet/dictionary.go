package facet

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tripatlas/place-comb/app/tags"
)

//go:embed dictionary.yaml
var dictionaryYAML []byte

// Entry is one row of the facet dictionary: read-only reference data.
type Entry struct {
	ID                string         `yaml:"id"`
	Dimension         tags.Dimension `yaml:"dimension"`
	LabelEn           string         `yaml:"label_en"`
	LabelRu           string         `yaml:"label_ru"`
	Priority          int            `yaml:"priority"`
	Match             []string       `yaml:"match"`
	AllowedCategories []string       `yaml:"allowed_categories"`
}

// AllowsCategory reports whether the facet may be applied to a record of
// the given category. An entry without restrictions allows every category.
func (e *Entry) AllowsCategory(slug string) bool {
	if len(e.AllowedCategories) == 0 {
		return true
	}
	for _, allowed := range e.AllowedCategories {
		if allowed == slug {
			return true
		}
	}
	return false
}

type dictionaryFile struct {
	Facets []Entry `yaml:"facets"`
}

// Dictionary is the loaded facet table, indexed by dimension.
type Dictionary struct {
	byDimension map[tags.Dimension][]Entry
}

// NewDictionary parses and validates the embedded dictionary.
func NewDictionary() (*Dictionary, error) {
	var parsed dictionaryFile
	if err := yaml.Unmarshal(dictionaryYAML, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse facet dictionary: %w", err)
	}

	dict := &Dictionary{byDimension: map[tags.Dimension][]Entry{}}
	seen := map[string]struct{}{}
	for i, entry := range parsed.Facets {
		if entry.ID == "" || entry.Dimension == "" || entry.LabelEn == "" {
			return nil, fmt.Errorf("facet %d is missing id, dimension or label", i)
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("duplicate facet id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}
		dict.byDimension[entry.Dimension] = append(dict.byDimension[entry.Dimension], entry)
	}

	return dict, nil
}

// Lookup finds the dictionary entry whose match aliases cover the given
// structured tag value, within one dimension.
func (d *Dictionary) Lookup(dim tags.Dimension, value string) (Entry, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "" {
		return Entry{}, false
	}
	for _, entry := range d.byDimension[dim] {
		for _, alias := range entry.Match {
			if strings.Contains(lower, alias) {
				return entry, true
			}
		}
	}
	return Entry{}, false
}
