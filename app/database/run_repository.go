package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// RunRepository handles import run bookkeeping and resume checkpoints.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// StartRun records a new import run and returns its id.
func (r *RunRepository) StartRun(sourceFile string) (int64, error) {
	result, err := r.db.Exec(`INSERT INTO import_runs (source_file) VALUES (?)`, sourceFile)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run finished and stores its counters snapshot.
func (r *RunRepository) FinishRun(runID int64, counters map[string]int) error {
	countersJSON, err := json.Marshal(counters)
	if err != nil {
		return fmt.Errorf("failed to encode counters: %w", err)
	}
	_, err = r.db.Exec(`
		UPDATE import_runs
		SET finished_at = datetime('now'), counters = ?
		WHERE id = ?
	`, string(countersJSON), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// IsProcessed reports whether the identifier was checkpointed by a
// previous (or the current) run.
func (r *RunRepository) IsProcessed(source, externalID string) (bool, error) {
	var one int
	err := r.db.QueryRow(`
		SELECT 1 FROM import_checkpoints WHERE source = ? AND external_id = ?
	`, source, externalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check checkpoint: %w", err)
	}
	return true, nil
}

// MarkProcessed checkpoints an identifier inside the batch transaction, so
// a crash between batches never loses committed work.
func (r *RunRepository) MarkProcessed(tx *sql.Tx, source, externalID string) error {
	_, err := tx.Exec(`
		INSERT INTO import_checkpoints (source, external_id) VALUES (?, ?)
		ON CONFLICT (source, external_id) DO UPDATE SET processed_at = datetime('now')
	`, source, externalID)
	if err != nil {
		return fmt.Errorf("failed to record checkpoint: %w", err)
	}
	return nil
}
