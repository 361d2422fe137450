package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/tripatlas/place-comb/app/category"
	"github.com/tripatlas/place-comb/app/database"
	"github.com/tripatlas/place-comb/app/enrich"
	"github.com/tripatlas/place-comb/app/facet"
	"github.com/tripatlas/place-comb/app/registry"
	"github.com/tripatlas/place-comb/app/report"
	"github.com/tripatlas/place-comb/app/source"
	"github.com/tripatlas/place-comb/app/tags"
)

const progressInterval = 100

// Options control a single import run.
type Options struct {
	FilePaths   []string
	DatasetType string
	DryRun      bool
	Limit       int
	Resume      bool
	Enrich      bool
	BatchSize   int
	Workers     int
	ReportsDir  string
}

// Processor executes the import pipeline: read, parse, dedup, classify,
// derive tags, enrich, persist, report.
type Processor struct {
	opts       Options
	classifier *category.Classifier
	generator  *facet.Generator
	enricher   *enrich.Client
	places     *database.PlaceRepository
	runs       *database.RunRepository
	db         *database.DB
}

func NewProcessor(opts Options, classifier *category.Classifier, generator *facet.Generator,
	enricher *enrich.Client, places *database.PlaceRepository, runs *database.RunRepository,
	db *database.DB) *Processor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Processor{
		opts:       opts,
		classifier: classifier,
		generator:  generator,
		enricher:   enricher,
		places:     places,
		runs:       runs,
		db:         db,
	}
}

// Run executes the pipeline once. Per-record problems become report
// entries; only setup failures return an error.
func (p *Processor) Run(ctx context.Context) (*report.Report, error) {
	baseNames := make([]string, 0, len(p.opts.FilePaths))
	for _, path := range p.opts.FilePaths {
		baseNames = append(baseNames, filepath.Base(path))
	}
	sourceLabel := strings.Join(baseNames, ",")

	rep := report.New(sourceLabel, p.opts.DatasetType, p.opts.DryRun)

	var runID int64
	if !p.opts.DryRun {
		var err error
		runID, err = p.runs.StartRun(sourceLabel)
		if err != nil {
			return nil, err
		}
	}

	reg := registry.NewRegistry()
	scanned := 0

	for fileIdx, path := range p.opts.FilePaths {
		if p.opts.Limit > 0 && scanned >= p.opts.Limit {
			break
		}
		entries, err := source.ReadFile(path)
		if err != nil {
			return nil, err
		}
		originFile := baseNames[fileIdx]
		slog.Info("Source file loaded", "file", originFile, "entries", len(entries))

		parser := source.NewParser(p.opts.DatasetType, originFile)
		for _, entry := range entries {
			if p.opts.Limit > 0 && scanned >= p.opts.Limit {
				break
			}
			scanned++
			rep.AddScanned(1)

			rec, err := parser.Parse(entry)
			if err != nil {
				rep.RecordSkipped("", entryName(p.opts.DatasetType, entry), err.Error())
				continue
			}
			reg.Register(rec)

			if scanned%progressInterval == 0 {
				slog.Info("Parsing progress", "scanned", scanned, "distinct", reg.Len())
			}
		}
	}
	slog.Info("Deduplication finished", "scanned", scanned, "distinct", reg.Len())

	items := p.buildItems(reg, rep)

	if p.opts.Enrich && p.enricher != nil {
		p.enrichItems(ctx, items, rep)
	}
	p.finalizeItems(items, rep)

	if err := p.persistItems(ctx, items, rep); err != nil {
		return nil, err
	}

	if !p.opts.DryRun {
		if err := p.runs.FinishRun(runID, rep.Counters()); err != nil {
			slog.Warn("Failed to finalize run record", "error", err)
		}
	}

	return rep, nil
}

// item carries one canonical record with its derived classification through
// the enrichment and persistence stages.
type item struct {
	record      *registry.CanonicalRecord
	category    category.Category
	displayTags []tags.DisplayTag
	skip        bool
	needsName   bool
}

func (p *Processor) buildItems(reg *registry.Registry, rep *report.Report) []*item {
	records := reg.All()
	items := make([]*item, 0, len(records))

	for _, rec := range records {
		it := &item{record: rec}

		if rec.Name == "" {
			// Enrichment may still recover a label for the record.
			it.needsName = true
			items = append(items, it)
			continue
		}

		if err := p.classify(it); err != nil {
			rep.RecordReview(rec.ExternalID, rec.Name, err.Error())
			it.skip = true
		}
		items = append(items, it)
	}

	return items
}

func (p *Processor) classify(it *item) error {
	cat, err := p.classifier.Assign(p.opts.DatasetType, it.record.Name)
	if err != nil {
		return err
	}
	it.category = cat
	it.displayTags = p.generator.Generate(it.record, cat)
	return nil
}

// finalizeItems settles records that were waiting on an enriched name.
// Records still nameless after enrichment go to the review list instead of
// being silently dropped.
func (p *Processor) finalizeItems(items []*item, rep *report.Report) {
	for _, it := range items {
		if !it.needsName || it.skip {
			continue
		}

		if it.record.Name == "" {
			rep.RecordReview(it.record.ExternalID, "", "record has no display name")
			it.skip = true
			continue
		}

		if err := p.classify(it); err != nil {
			rep.RecordReview(it.record.ExternalID, it.record.Name, err.Error())
			it.skip = true
		}
	}
}

// enrichItems runs the external lookups over a bounded worker pool. Each
// worker owns its item, so record mutation needs no locking; the report is
// internally synchronized. Every identifier costs one request; a failed
// lookup keeps local data and counts exactly one error for that identifier.
func (p *Processor) enrichItems(ctx context.Context, items []*item, rep *report.Report) {
	var mu sync.Mutex
	enriched := 0

	workers := pool.New().WithMaxGoroutines(p.opts.Workers)
	for _, it := range items {
		if it.skip {
			continue
		}
		workers.Go(func() {
			rec := it.record

			entity, err := p.enricher.Fetch(ctx, rec.ExternalID)
			if err != nil {
				rep.RecordError(rec.ExternalID, rec.Name, fmt.Sprintf("enrichment failed: %v", err))
				return
			}
			rec.Images = entity.Images(rec.Images)
			if rec.Name == "" {
				if best := enrich.SelectBestLabel(entity.Labels()); best != "" {
					rec.Name = best
				}
			}

			mu.Lock()
			enriched++
			if enriched%progressInterval == 0 {
				slog.Info("Enrichment progress", "enriched", enriched)
			}
			mu.Unlock()
		})
	}
	workers.Wait()

	slog.Info("Enrichment finished", "enriched", enriched)
}

func (p *Processor) persistItems(ctx context.Context, items []*item, rep *report.Report) error {
	pending := make([]*item, 0, len(items))
	for _, it := range items {
		if it.skip {
			continue
		}
		if p.opts.Resume {
			processed, err := p.runs.IsProcessed(p.opts.DatasetType, it.record.ExternalID)
			if err != nil {
				return err
			}
			if processed {
				rep.RecordSkipped(it.record.ExternalID, it.record.Name, "already checkpointed")
				continue
			}
		}
		pending = append(pending, it)
	}

	if p.opts.DryRun {
		// Classify would-be outcomes without opening a write transaction.
		for _, it := range pending {
			exists, err := p.places.Exists(p.opts.DatasetType, it.record.ExternalID)
			if err != nil {
				return err
			}
			if exists {
				rep.RecordUpdated()
			} else {
				rep.RecordCreated()
			}
		}
		return nil
	}

	for start := 0; start < len(pending); start += p.opts.BatchSize {
		end := start + p.opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := p.persistBatch(ctx, pending[start:end], rep); err != nil {
			return err
		}
		slog.Info("Persistence progress", "committed", end, "total", len(pending))
	}

	return nil
}

func (p *Processor) persistBatch(ctx context.Context, batch []*item, rep *report.Report) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	for _, it := range batch {
		place := p.toPlace(it)

		result, err := p.places.Upsert(tx, place)
		if err != nil {
			// Surface the failure for operator follow-up; the run stays
			// re-runnable because upserts are idempotent.
			rep.RecordError(it.record.ExternalID, it.record.Name, fmt.Sprintf("persistence failed: %v", err))
			slog.Error("Failed to persist place",
				"external_id", it.record.ExternalID, "error", err)
			continue
		}

		if err := p.runs.MarkProcessed(tx, p.opts.DatasetType, it.record.ExternalID); err != nil {
			return err
		}

		if result == database.UpsertCreated {
			rep.RecordCreated()
		} else {
			rep.RecordUpdated()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (p *Processor) toPlace(it *item) database.Place {
	rec := it.record

	extra := map[string]any{}
	for key, value := range rec.AuxCounts {
		extra[key] = value
	}
	if len(rec.OriginFiles) > 0 {
		extra["origin_files"] = rec.OriginFiles
	}

	return database.Place{
		Source:          p.opts.DatasetType,
		ExternalID:      rec.ExternalID,
		Name:            rec.Name,
		CategorySlug:    it.category.Slug,
		CategoryLabelEn: it.category.LabelEn,
		CategoryLabelRu: it.category.LabelRu,
		Latitude:        rec.Coordinates.Latitude,
		Longitude:       rec.Coordinates.Longitude,
		Locality:        rec.Locality,
		Country:         rec.Country,
		StructuredTags:  rec.Tags,
		DisplayTags:     it.displayTags,
		Images:          rec.Images,
		Extra:           extra,
		IsVerified:      rec.Verified,
	}
}

func entryName(datasetType string, entry source.Entry) string {
	if datasetType == source.TypeCemetery {
		return entry.CemeteryLabel
	}
	return entry.ItemLabel
}
