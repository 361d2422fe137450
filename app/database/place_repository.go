package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tripatlas/place-comb/app/tags"
)

// UpsertResult reports what an upsert did.
type UpsertResult int

const (
	UpsertCreated UpsertResult = iota
	UpsertUpdated
)

// PlaceRepository handles database operations for places.
type PlaceRepository struct {
	db *DB
}

// NewPlaceRepository creates a new place repository.
func NewPlaceRepository(db *DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// Upsert inserts or updates a place by its (source, external_id) natural
// key within the given transaction. The display tag list is re-validated
// here regardless of which code path produced it, so the two-tag invariant
// holds even for writes that bypass the generator.
func (r *PlaceRepository) Upsert(tx *sql.Tx, place Place) (UpsertResult, error) {
	place.DisplayTags = tags.Enforce(place.DisplayTags, place.CategoryLabelEn, place.CategoryLabelRu)

	structuredJSON, err := marshalJSON(place.StructuredTags, "{}")
	if err != nil {
		return 0, fmt.Errorf("failed to encode structured tags: %w", err)
	}
	displayJSON, err := marshalJSON(place.DisplayTags, "[]")
	if err != nil {
		return 0, fmt.Errorf("failed to encode display tags: %w", err)
	}
	imagesJSON, err := marshalJSON(place.Images, "[]")
	if err != nil {
		return 0, fmt.Errorf("failed to encode images: %w", err)
	}
	extraJSON, err := marshalJSON(place.Extra, "{}")
	if err != nil {
		return 0, fmt.Errorf("failed to encode extra bag: %w", err)
	}

	var existingID int64
	err = tx.QueryRow(`SELECT id FROM places WHERE source = ? AND external_id = ?`,
		place.Source, place.ExternalID).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up place: %w", err)
	}

	if err == sql.ErrNoRows {
		_, err = tx.Exec(`
			INSERT INTO places (
				source, external_id, name, category_slug, category_label_en,
				category_label_ru, latitude, longitude, locality, country,
				structured_tags, display_tags, images, extra, is_verified
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, place.Source, place.ExternalID, place.Name, place.CategorySlug,
			place.CategoryLabelEn, place.CategoryLabelRu, place.Latitude,
			place.Longitude, place.Locality, place.Country,
			structuredJSON, displayJSON, imagesJSON, extraJSON, place.IsVerified)
		if err != nil {
			return 0, fmt.Errorf("failed to insert place: %w", err)
		}
		return UpsertCreated, nil
	}

	_, err = tx.Exec(`
		UPDATE places SET
			name = ?, category_slug = ?, category_label_en = ?,
			category_label_ru = ?, latitude = ?, longitude = ?, locality = ?,
			country = ?, structured_tags = ?, display_tags = ?, images = ?,
			extra = ?, is_verified = ?, updated_at = datetime('now')
		WHERE id = ?
	`, place.Name, place.CategorySlug, place.CategoryLabelEn,
		place.CategoryLabelRu, place.Latitude, place.Longitude, place.Locality,
		place.Country, structuredJSON, displayJSON, imagesJSON, extraJSON,
		place.IsVerified, existingID)
	if err != nil {
		return 0, fmt.Errorf("failed to update place: %w", err)
	}
	return UpsertUpdated, nil
}

// Get returns a place by its natural key, or nil if absent.
func (r *PlaceRepository) Get(source, externalID string) (*Place, error) {
	row := r.db.QueryRow(`
		SELECT id, source, external_id, name, category_slug, category_label_en,
		       category_label_ru, latitude, longitude, locality, country,
		       structured_tags, display_tags, images, extra, is_verified
		FROM places
		WHERE source = ? AND external_id = ?
	`, source, externalID)

	var place Place
	var structuredJSON, displayJSON, imagesJSON, extraJSON string
	err := row.Scan(&place.ID, &place.Source, &place.ExternalID, &place.Name,
		&place.CategorySlug, &place.CategoryLabelEn, &place.CategoryLabelRu,
		&place.Latitude, &place.Longitude, &place.Locality, &place.Country,
		&structuredJSON, &displayJSON, &imagesJSON, &extraJSON, &place.IsVerified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	if err := json.Unmarshal([]byte(structuredJSON), &place.StructuredTags); err != nil {
		return nil, fmt.Errorf("failed to decode structured tags: %w", err)
	}
	if err := json.Unmarshal([]byte(displayJSON), &place.DisplayTags); err != nil {
		return nil, fmt.Errorf("failed to decode display tags: %w", err)
	}
	if err := json.Unmarshal([]byte(imagesJSON), &place.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	if err := json.Unmarshal([]byte(extraJSON), &place.Extra); err != nil {
		return nil, fmt.Errorf("failed to decode extra bag: %w", err)
	}

	return &place, nil
}

// Exists reports whether a place with the natural key is already stored.
func (r *PlaceRepository) Exists(source, externalID string) (bool, error) {
	var id int64
	err := r.db.QueryRow(`SELECT id FROM places WHERE source = ? AND external_id = ?`,
		source, externalID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check place existence: %w", err)
	}
	return true, nil
}

// Count returns the total number of stored places.
func (r *PlaceRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM places`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count places: %w", err)
	}
	return count, nil
}

// marshalJSON encodes v, mapping nil to the given empty literal so the JSON
// columns never hold SQL NULLs.
func marshalJSON(v any, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}
