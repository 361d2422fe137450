package facet

import (
	"sort"

	"github.com/tripatlas/place-comb/app/category"
	"github.com/tripatlas/place-comb/app/registry"
	"github.com/tripatlas/place-comb/app/source"
	"github.com/tripatlas/place-comb/app/tags"
)

// Category slugs that admit meal facets; cuisine facets are narrower still.
var foodCategories = map[string]bool{"cafe": true, "restaurant": true}

const personTagPriority = 10

// Generator derives display tags from a record's structured tag bag.
type Generator struct {
	dict *Dictionary
}

func NewGenerator(dict *Dictionary) *Generator {
	return &Generator{dict: dict}
}

// Generate builds the display tag list for a canonical record. Dimensions
// contribute in a fixed derivation order (award, style, meal, cuisine, then
// one creator or person reference), candidates are sorted by descending
// dictionary priority, and the shared enforcement pass applies the
// two-tag cap and the category label exclusion.
func (g *Generator) Generate(rec *registry.CanonicalRecord, cat category.Category) []tags.DisplayTag {
	var candidates []tags.DisplayTag

	if entry, ok := g.lookupFirst(tags.DimAward, rec.Tags[tags.DimAward], cat.Slug); ok {
		candidates = append(candidates, entry.displayTag())
	}
	if entry, ok := g.lookupFirst(tags.DimStyle, rec.Tags[tags.DimStyle], cat.Slug); ok {
		candidates = append(candidates, entry.displayTag())
	}
	if foodCategories[cat.Slug] {
		if entry, ok := g.lookupFirst(tags.DimMeal, rec.Tags[tags.DimMeal], cat.Slug); ok {
			candidates = append(candidates, entry.displayTag())
		}
	}
	if cat.Slug == "restaurant" {
		if entry, ok := g.lookupFirst(tags.DimCuisine, rec.Tags[tags.DimCuisine], cat.Slug); ok {
			candidates = append(candidates, entry.displayTag())
		}
	}
	if person, ok := personReference(rec); ok {
		candidates = append(candidates, person)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	return tags.Enforce(candidates, cat.LabelEn, cat.LabelRu)
}

func (g *Generator) lookupFirst(dim tags.Dimension, values []string, categorySlug string) (Entry, bool) {
	for _, value := range values {
		entry, ok := g.dict.Lookup(dim, value)
		if !ok {
			continue
		}
		if !entry.AllowsCategory(categorySlug) {
			continue
		}
		return entry, true
	}
	return Entry{}, false
}

// personReference yields at most one creator or person tag per record, with
// creators (architects) taking precedence.
func personReference(rec *registry.CanonicalRecord) (tags.DisplayTag, bool) {
	if names := rec.Tags[tags.DimArchitect]; len(names) > 0 {
		return personTag(tags.KindCreator, names[0]), true
	}
	if names := rec.Tags[tags.DimPerson]; len(names) > 0 {
		return personTag(tags.KindPerson, names[0]), true
	}
	return tags.DisplayTag{}, false
}

func personTag(kind tags.Kind, name string) tags.DisplayTag {
	return tags.DisplayTag{
		Kind:     kind,
		ID:       source.FormatCreatorTag(name),
		LabelEn:  name,
		LabelRu:  name,
		Priority: personTagPriority,
	}
}

func (e Entry) displayTag() tags.DisplayTag {
	return tags.DisplayTag{
		Kind:     tags.KindFacet,
		ID:       e.ID,
		LabelEn:  e.LabelEn,
		LabelRu:  e.LabelRu,
		Priority: e.Priority,
	}
}
