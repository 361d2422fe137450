package category

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tripatlas/place-comb/app/source"
)

//go:embed rules.yaml
var rulesYAML []byte

type rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

type ruleFile struct {
	Rules []rule `yaml:"rules"`
}

// Classifier assigns a controlled category to a place name using the
// ordered keyword rules loaded at construction time.
type Classifier struct {
	rules []rule
}

// NewClassifier loads the embedded rule table and validates every rule
// against the fixed category table.
func NewClassifier() (*Classifier, error) {
	var parsed ruleFile
	if err := yaml.Unmarshal(rulesYAML, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse category rules: %w", err)
	}

	for i, r := range parsed.Rules {
		if _, ok := Lookup(r.Category); !ok {
			return nil, fmt.Errorf("rule %d references unknown category %q", i, r.Category)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s) has no keywords", i, r.Category)
		}
	}

	return &Classifier{rules: parsed.Rules}, nil
}

// DetectFromName evaluates the rules in order and returns the slug of the
// first match; the fallback slug is returned when nothing matches.
func (c *Classifier) DetectFromName(name, fallback string) string {
	lower := strings.ToLower(name)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				return r.Category
			}
		}
	}
	return fallback
}

// Assign resolves the category for a record. Fixed dataset types map to one
// category unconditionally; mixed datasets delegate to name detection with
// a dataset-specific default.
func (c *Classifier) Assign(datasetType, name string) (Category, error) {
	var slug string
	switch datasetType {
	case source.TypeCemetery:
		slug = "cemetery"
	case source.TypeArchitecture:
		slug = c.DetectFromName(name, "architecture")
	case source.TypeAttraction:
		slug = c.DetectFromName(name, "landmark")
	default:
		return Category{}, fmt.Errorf("unknown dataset type %q", datasetType)
	}

	cat, ok := Lookup(slug)
	if !ok {
		return Category{}, fmt.Errorf("rule produced unknown category %q", slug)
	}
	return cat, nil
}
