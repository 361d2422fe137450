package source

import (
	"fmt"
	"strconv"

	"github.com/tripatlas/place-comb/app/tags"
)

// Dataset types determine the record shape and the category fallback.
const (
	TypeArchitecture = "architecture"
	TypeAttraction   = "attraction"
	TypeCemetery     = "cemetery"
)

// Coordinates is a parsed WKT point.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// String re-emits the canonical Point(<lon> <lat>) form.
func (c Coordinates) String() string {
	return fmt.Sprintf("Point(%s %s)",
		strconv.FormatFloat(c.Longitude, 'f', -1, 64),
		strconv.FormatFloat(c.Latitude, 'f', -1, 64))
}

// Entry is one raw input row. The two supported shapes (architecture-like
// and cemetery-like) share this struct; unused fields stay empty.
type Entry struct {
	Item           string `json:"item"`
	ItemLabel      string `json:"itemLabel"`
	Cemetery       string `json:"cemetery"`
	CemeteryLabel  string `json:"cemeteryLabel"`
	Coord          string `json:"coord"`
	Image          string `json:"image"`
	Architect      string `json:"architect"`
	ArchitectLabel string `json:"architectLabel"`
	StyleLabel     string `json:"styleLabel"`
	AwardLabel     string `json:"awardLabel"`
	CityLabel      string `json:"cityLabel"`
	CountryLabel   string `json:"countryLabel"`
	Burials        *int   `json:"burials"`
}

// ParsedRecord is the typed result of parsing one Entry.
type ParsedRecord struct {
	ExternalID   string
	Name         string
	Coordinates  Coordinates
	Locality     string
	Country      string
	RelatedNames []string
	Images       []string
	AuxCounts    map[string]int
	Tags         tags.Structured
	OriginFile   string
	Verified     bool
}
