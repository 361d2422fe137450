package database

import (
	"database/sql"
	"testing"

	"github.com/tripatlas/place-comb/app/tags"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func inTx(t *testing.T, db *DB, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("transaction callback failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func testPlace() Place {
	return Place{
		Source:          "architecture",
		ExternalID:      "Q243",
		Name:            "Eiffel Tower",
		CategorySlug:    "landmark",
		CategoryLabelEn: "Landmark",
		CategoryLabelRu: "Достопримечательность",
		Latitude:        48.8583,
		Longitude:       2.2944,
		Locality:        "Paris",
		Country:         "France",
		StructuredTags:  tags.Structured{tags.DimStyle: []string{"Brutalist"}},
		DisplayTags: []tags.DisplayTag{
			{Kind: tags.KindFacet, ID: "brutalist", LabelEn: "Brutalist", Priority: 80},
		},
		Images:     []string{"http://example.com/a.jpg"},
		IsVerified: true,
	}
}

func TestPlaceRepository_UpsertCreatesThenUpdates(t *testing.T) {
	db := testDB(t)
	repo := NewPlaceRepository(db)

	place := testPlace()

	var result UpsertResult
	inTx(t, db, func(tx *sql.Tx) error {
		var err error
		result, err = repo.Upsert(tx, place)
		return err
	})
	if result != UpsertCreated {
		t.Errorf("first upsert should create, got %v", result)
	}

	place.Name = "Tour Eiffel"
	inTx(t, db, func(tx *sql.Tx) error {
		var err error
		result, err = repo.Upsert(tx, place)
		return err
	})
	if result != UpsertUpdated {
		t.Errorf("second upsert should update, got %v", result)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("failed to count places: %v", err)
	}
	if count != 1 {
		t.Errorf("natural key must never duplicate rows, got %d", count)
	}

	stored, err := repo.Get("architecture", "Q243")
	if err != nil {
		t.Fatalf("failed to get place: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored place")
	}
	if stored.Name != "Tour Eiffel" {
		t.Errorf("update did not apply, name is %q", stored.Name)
	}
	if len(stored.DisplayTags) != 1 || stored.DisplayTags[0].ID != "brutalist" {
		t.Errorf("display tags not round-tripped: %v", stored.DisplayTags)
	}
	if got := stored.StructuredTags[tags.DimStyle]; len(got) != 1 || got[0] != "Brutalist" {
		t.Errorf("structured tags not round-tripped: %v", stored.StructuredTags)
	}
	if !stored.IsVerified {
		t.Errorf("verified flag lost")
	}
}

func TestPlaceRepository_UpsertEnforcesTagInvariant(t *testing.T) {
	db := testDB(t)
	repo := NewPlaceRepository(db)

	// A write that bypasses the generator: four tags, one duplicating the
	// category label, one with a bogus kind, one duplicate pair.
	place := testPlace()
	place.DisplayTags = []tags.DisplayTag{
		{Kind: tags.KindFacet, ID: "landmark", LabelEn: "Landmark"},
		{Kind: tags.Kind("banner"), ID: "x", LabelEn: "Bad"},
		{Kind: tags.KindFacet, ID: "gothic", LabelEn: "Gothic"},
		{Kind: tags.KindFacet, ID: "gothic", LabelEn: "Gothic"},
		{Kind: tags.KindCreator, ID: "OscarNiemeyer", LabelEn: "Oscar Niemeyer"},
		{Kind: tags.KindPerson, ID: "JimMorrison", LabelEn: "Jim Morrison"},
	}

	inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.Upsert(tx, place)
		return err
	})

	stored, err := repo.Get("architecture", "Q243")
	if err != nil {
		t.Fatalf("failed to get place: %v", err)
	}

	if len(stored.DisplayTags) > tags.MaxDisplayTags {
		t.Fatalf("stored more than %d display tags: %v", tags.MaxDisplayTags, stored.DisplayTags)
	}
	if stored.DisplayTags[0].ID != "gothic" || stored.DisplayTags[1].ID != "OscarNiemeyer" {
		t.Errorf("unexpected surviving tags: %v", stored.DisplayTags)
	}
}

func TestPlaceRepository_ExistsAndGetMissing(t *testing.T) {
	db := testDB(t)
	repo := NewPlaceRepository(db)

	exists, err := repo.Exists("architecture", "Q404")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Errorf("place should not exist yet")
	}

	place, err := repo.Get("architecture", "Q404")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place != nil {
		t.Errorf("expected nil for missing place, got %+v", place)
	}
}

func TestRunRepository_Checkpoints(t *testing.T) {
	db := testDB(t)
	runs := NewRunRepository(db)

	runID, err := runs.StartRun("places.json")
	if err != nil {
		t.Fatalf("failed to start run: %v", err)
	}

	processed, err := runs.IsProcessed("architecture", "Q1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed {
		t.Errorf("id should not be checkpointed yet")
	}

	inTx(t, db, func(tx *sql.Tx) error {
		if err := runs.MarkProcessed(tx, "architecture", "Q1"); err != nil {
			return err
		}
		// Re-marking the same id must not fail.
		return runs.MarkProcessed(tx, "architecture", "Q1")
	})

	processed, err = runs.IsProcessed("architecture", "Q1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Errorf("id should be checkpointed after marking")
	}

	if err := runs.FinishRun(runID, map[string]int{"created": 1}); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}
}
