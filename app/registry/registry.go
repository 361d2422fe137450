package registry

import (
	"strings"

	"github.com/tripatlas/place-comb/app/source"
	"github.com/tripatlas/place-comb/app/tags"
)

// CanonicalRecord is the single merged representation of every input row
// sharing one external identifier.
type CanonicalRecord struct {
	ExternalID   string
	Name         string
	Coordinates  source.Coordinates
	Locality     string
	Country      string
	RelatedNames []string
	Images       []string
	AuxCounts    map[string]int
	Tags         tags.Structured
	OriginFiles  []string
	Verified     bool

	localities []string
}

// Administrative subdivision names lose the locality preference; a row
// carrying "16th arrondissement" should not beat one carrying "Paris".
var adminSubdivisionKeywords = []string{
	"arrondissement",
	"district",
	"municipality",
	"borough",
	"prefecture",
	"okrug",
	"kommune",
}

func isAdminSubdivision(locality string) bool {
	lower := strings.ToLower(locality)
	for _, kw := range adminSubdivisionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Registry accumulates canonical records across all input files of a run.
// It is a plain in-process structure with no locking: registration happens
// on the single parse goroutine.
type Registry struct {
	records map[string]*CanonicalRecord
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{records: map[string]*CanonicalRecord{}}
}

// Register folds a parsed record into the registry. Returns true if this
// was the first sighting of the external identifier.
func (r *Registry) Register(rec source.ParsedRecord) bool {
	existing, ok := r.records[rec.ExternalID]
	if !ok {
		canonical := &CanonicalRecord{
			ExternalID:  rec.ExternalID,
			Name:        rec.Name,
			Coordinates: rec.Coordinates,
			Country:     rec.Country,
			AuxCounts:   map[string]int{},
			Tags:        tags.Structured{},
			Verified:    rec.Verified,
		}
		canonical.absorb(rec)
		r.records[rec.ExternalID] = canonical
		r.order = append(r.order, rec.ExternalID)
		return true
	}

	existing.absorb(rec)
	return false
}

func (c *CanonicalRecord) absorb(rec source.ParsedRecord) {
	if c.Name == "" {
		c.Name = rec.Name
	}
	if c.Country == "" {
		c.Country = rec.Country
	}
	if rec.Verified {
		c.Verified = true
	}

	c.RelatedNames = appendUnique(c.RelatedNames, rec.RelatedNames...)
	c.Images = appendUnique(c.Images, rec.Images...)
	c.OriginFiles = appendUnique(c.OriginFiles, rec.OriginFile)
	c.Tags.Merge(rec.Tags)

	for key, value := range rec.AuxCounts {
		if value > c.AuxCounts[key] {
			c.AuxCounts[key] = value
		}
	}

	if rec.Locality != "" {
		c.localities = appendUnique(c.localities, rec.Locality)
		c.Locality = preferLocality(c.localities)
	}
}

// preferLocality picks the shortest candidate that is not an administrative
// subdivision name; if every candidate is one, the shortest overall wins.
func preferLocality(candidates []string) string {
	best := ""
	bestPlain := ""
	for _, cand := range candidates {
		if bestPlain == "" || len(cand) < len(bestPlain) {
			if !isAdminSubdivision(cand) {
				bestPlain = cand
			}
		}
		if best == "" || len(cand) < len(best) {
			best = cand
		}
	}
	if bestPlain != "" {
		return bestPlain
	}
	return best
}

// All returns the canonical records in first-registration order.
func (r *Registry) All() []*CanonicalRecord {
	result := make([]*CanonicalRecord, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.records[id])
	}
	return result
}

// Get returns the canonical record for an id, or nil if never registered.
func (r *Registry) Get(externalID string) *CanonicalRecord {
	return r.records[externalID]
}

// Len returns the number of distinct external identifiers seen so far.
func (r *Registry) Len() int {
	return len(r.order)
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
