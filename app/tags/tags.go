package tags

import "strings"

// Dimension identifies one axis of the internal structured tag bag.
type Dimension string

const (
	DimStyle       Dimension = "style"
	DimTheme       Dimension = "theme"
	DimAward       Dimension = "award"
	DimMeal        Dimension = "meal"
	DimCuisine     Dimension = "cuisine"
	DimArchitect   Dimension = "architect"
	DimPerson      Dimension = "person"
	DimAltCategory Dimension = "alternate_category"
)

// Structured is the internal attribute bag a place carries. It is never
// shown to users; display tags are derived from it.
type Structured map[Dimension][]string

// Add appends a value to a dimension, skipping empties and duplicates.
func (s Structured) Add(dim Dimension, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	for _, existing := range s[dim] {
		if strings.EqualFold(existing, value) {
			return
		}
	}
	s[dim] = append(s[dim], value)
}

// Merge unions another bag into this one, preserving first-seen order.
func (s Structured) Merge(other Structured) {
	for dim, values := range other {
		for _, v := range values {
			s.Add(dim, v)
		}
	}
}

// Kind classifies a display tag.
type Kind string

const (
	KindFacet   Kind = "facet"
	KindPerson  Kind = "person"
	KindCreator Kind = "creator"
)

// DisplayTag is a user-visible classification label drawn from the facet
// dictionary or derived from a creator/person reference.
type DisplayTag struct {
	Kind     Kind   `json:"kind"`
	ID       string `json:"id"`
	LabelEn  string `json:"label_en"`
	LabelRu  string `json:"label_ru"`
	Priority int    `json:"priority"`
}

// MaxDisplayTags bounds the display tag list on every persisted place.
const MaxDisplayTags = 2

func validKind(k Kind) bool {
	return k == KindFacet || k == KindPerson || k == KindCreator
}

// Enforce validates and repairs a display tag list: tags missing a kind, id
// or label are dropped, unknown kinds are dropped, tags whose label matches
// one of the category labels are dropped, duplicates by (kind, id) keep the
// first occurrence, and the result is truncated to MaxDisplayTags. Both the
// generator and the persistence layer call this, so the invariant holds for
// writes that bypass the generator.
func Enforce(list []DisplayTag, categoryLabels ...string) []DisplayTag {
	seen := make(map[string]struct{}, len(list))
	result := make([]DisplayTag, 0, MaxDisplayTags)

	for _, tag := range list {
		if tag.ID == "" || !validKind(tag.Kind) {
			continue
		}
		if tag.LabelEn == "" && tag.LabelRu == "" {
			continue
		}
		if matchesAny(tag.LabelEn, categoryLabels) || matchesAny(tag.LabelRu, categoryLabels) {
			continue
		}
		key := string(tag.Kind) + ":" + tag.ID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, tag)
		if len(result) == MaxDisplayTags {
			break
		}
	}

	return result
}

func matchesAny(label string, candidates []string) bool {
	if label == "" {
		return false
	}
	for _, c := range candidates {
		if c != "" && strings.EqualFold(label, c) {
			return true
		}
	}
	return false
}
