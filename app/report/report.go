package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Detail is one itemized outcome for the skip/error/review lists.
type Detail struct {
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Reason     string `json:"reason"`
}

// Report accumulates per-record outcomes over one import run. It is safe
// for concurrent use: the enrichment workers record errors in parallel.
// It never mutates domain state.
type Report struct {
	mu sync.Mutex

	SourceFile  string    `json:"source_file"`
	DatasetType string    `json:"dataset_type"`
	DryRun      bool      `json:"dry_run"`
	StartedAt   time.Time `json:"started_at"`

	TotalScanned int `json:"total_scanned"`
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Skipped      int `json:"skipped"`
	NeedsReview  int `json:"needs_review"`
	Errors       int `json:"errors"`

	SkippedItems []Detail `json:"skipped_items"`
	ErrorItems   []Detail `json:"error_items"`
	ReviewItems  []Detail `json:"review_items"`
}

func New(sourceFile, datasetType string, dryRun bool) *Report {
	return &Report{
		SourceFile:   sourceFile,
		DatasetType:  datasetType,
		DryRun:       dryRun,
		StartedAt:    time.Now().UTC(),
		SkippedItems: []Detail{},
		ErrorItems:   []Detail{},
		ReviewItems:  []Detail{},
	}
}

func (r *Report) AddScanned(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TotalScanned += n
}

func (r *Report) RecordCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Created++
}

func (r *Report) RecordUpdated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updated++
}

func (r *Report) RecordSkipped(externalID, name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped++
	r.SkippedItems = append(r.SkippedItems, Detail{ExternalID: externalID, Name: name, Reason: reason})
}

func (r *Report) RecordError(externalID, name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors++
	r.ErrorItems = append(r.ErrorItems, Detail{ExternalID: externalID, Name: name, Reason: reason})
}

func (r *Report) RecordReview(externalID, name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.NeedsReview++
	r.ReviewItems = append(r.ReviewItems, Detail{ExternalID: externalID, Name: name, Reason: reason})
}

// Counters returns the aggregate counts as a map, for the run record.
func (r *Report) Counters() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]int{
		"total_scanned": r.TotalScanned,
		"created":       r.Created,
		"updated":       r.Updated,
		"skipped":       r.Skipped,
		"needs_review":  r.NeedsReview,
		"errors":        r.Errors,
	}
}

// WriteFile serializes the report into dir, named with the run timestamp,
// and returns the written path.
func (r *Report) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	name := fmt.Sprintf("import_report_%s.json", r.StartedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// LogSummary emits the short console summary at the end of a run.
func (r *Report) LogSummary() {
	r.mu.Lock()
	defer r.mu.Unlock()
	slog.Info("Import run finished",
		"source_file", r.SourceFile,
		"dry_run", r.DryRun,
		"scanned", r.TotalScanned,
		"created", r.Created,
		"updated", r.Updated,
		"skipped", r.Skipped,
		"needs_review", r.NeedsReview,
		"errors", r.Errors)
}
