package database

import (
	"time"

	"github.com/tripatlas/place-comb/app/tags"
)

// Place is the durable record for one imported geographic entity, keyed by
// the (source, external_id) natural key.
type Place struct {
	ID              int64
	Source          string
	ExternalID      string
	Name            string
	CategorySlug    string
	CategoryLabelEn string
	CategoryLabelRu string
	Latitude        float64
	Longitude       float64
	Locality        string
	Country         string
	StructuredTags  tags.Structured
	DisplayTags     []tags.DisplayTag
	Images          []string
	Extra           map[string]any
	IsVerified      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ImportRun is one pipeline execution recorded for resumability.
type ImportRun struct {
	ID         int64
	SourceFile string
	StartedAt  time.Time
	FinishedAt *time.Time
	Counters   map[string]int
}
