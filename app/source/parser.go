package source

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tripatlas/place-comb/app/tags"
)

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate string")
	ErrNotEntityURL      = errors.New("not a knowledge base entity URL")
)

var (
	pointPattern  = regexp.MustCompile(`(?i)^\s*point\s*\(\s*(-?[0-9.]+(?:[eE][+-]?[0-9]+)?)\s+(-?[0-9.]+(?:[eE][+-]?[0-9]+)?)\s*\)\s*$`)
	entityPattern = regexp.MustCompile(`^https?://(?:www\.)?wikidata\.org/(?:entity|wiki)/(Q[0-9]+)$`)
)

// ParseCoordinates parses a "Point(<lon> <lat>)" string. Any other shape,
// or a value outside the valid latitude/longitude ranges, fails with
// ErrInvalidCoordinate.
func ParseCoordinates(raw string) (Coordinates, error) {
	m := pointPattern.FindStringSubmatch(raw)
	if m == nil {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, raw)
	}

	lon, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad longitude %q", ErrInvalidCoordinate, m[1])
	}
	lat, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad latitude %q", ErrInvalidCoordinate, m[2])
	}

	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return Coordinates{}, fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, lon)
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return Coordinates{}, fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, lat)
	}

	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

// ExtractEntityID pulls the trailing Q-identifier from a Wikidata entity
// URL. Returns ErrNotEntityURL for anything that does not match.
func ExtractEntityID(rawURL string) (string, error) {
	m := entityPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrNotEntityURL, rawURL)
	}
	return m[1], nil
}

// EntityURL rebuilds the canonical entity URL for an identifier, the
// inverse of ExtractEntityID.
func EntityURL(id string) string {
	return "http://www.wikidata.org/entity/" + id
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FormatCreatorTag collapses a person name into a compact identifier-safe
// label: diacritics folded, punctuation and whitespace removed.
// "Kenzō Tange" becomes "KenzoTange", "I. M. Pei" becomes "IMPei".
func FormatCreatorTag(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parser turns raw entries from one source file into typed records.
type Parser struct {
	datasetType string
	originFile  string
}

func NewParser(datasetType, originFile string) *Parser {
	return &Parser{datasetType: datasetType, originFile: originFile}
}

// Parse converts one raw entry into a ParsedRecord. The returned error is
// always a parse-level failure the caller should report as a skip; it never
// aborts a batch.
func (p *Parser) Parse(entry Entry) (ParsedRecord, error) {
	entityURL := entry.Item
	name := strings.TrimSpace(entry.ItemLabel)
	if p.datasetType == TypeCemetery {
		entityURL = entry.Cemetery
		name = strings.TrimSpace(entry.CemeteryLabel)
	}

	id, err := ExtractEntityID(entityURL)
	if err != nil {
		return ParsedRecord{}, err
	}

	coords, err := ParseCoordinates(entry.Coord)
	if err != nil {
		return ParsedRecord{}, err
	}

	rec := ParsedRecord{
		ExternalID:  id,
		Name:        name,
		Coordinates: coords,
		Locality:    strings.TrimSpace(entry.CityLabel),
		Country:     strings.TrimSpace(entry.CountryLabel),
		AuxCounts:   map[string]int{},
		Tags:        tags.Structured{},
		OriginFile:  p.originFile,
	}

	if img := strings.TrimSpace(entry.Image); img != "" {
		rec.Images = append(rec.Images, img)
	}

	if architect := strings.TrimSpace(entry.ArchitectLabel); architect != "" {
		rec.RelatedNames = append(rec.RelatedNames, architect)
		rec.Tags.Add(tags.DimArchitect, architect)
	}
	if style := strings.TrimSpace(entry.StyleLabel); style != "" {
		rec.Tags.Add(tags.DimStyle, style)
	}
	if award := strings.TrimSpace(entry.AwardLabel); award != "" {
		rec.Tags.Add(tags.DimAward, award)
		// Award rows come from curated lists, not bulk scrapes.
		rec.Verified = true
	}
	if entry.Burials != nil && *entry.Burials > 0 {
		rec.AuxCounts["burials"] = *entry.Burials
	}

	return rec, nil
}
