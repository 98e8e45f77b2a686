package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

const mergeColumns = `id, sequence, status, output_path, file_count, byte_size, source_names, error_message, created_at, updated_at, deleted_at`

var _ models.Repository[*models.MergeRecord] = (*MergeRepository)(nil)

// MergeRepository implements models.Repository[*models.MergeRecord] for merge history.
type MergeRepository struct {
	db *sql.DB
}

// NewMergeRepository creates a new MergeRepository with the given database connection
func NewMergeRepository(db *sql.DB) *MergeRepository {
	return &MergeRepository{db: db}
}

// Create inserts a new merge record with generated ID and sequence
func (r *MergeRepository) Create(record *models.MergeRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "merges")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	names, err := json.Marshal(nonNil(record.SourceNames()))
	if err != nil {
		return fmt.Errorf("failed to encode source names: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO merges (id, sequence, status, output_path, file_count, byte_size, source_names, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		string(record.Status()),
		record.OutputPath(),
		record.FileCount(),
		record.ByteSize(),
		string(names),
		record.ErrorMessage(),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert merge: %w", err)
	}

	record.SetID(id)
	record.SetSequence(sequence)
	return nil
}

// RecordMerge persists an outcome reported by the merge engine.
func (r *MergeRepository) RecordMerge(outcome models.MergeOutcome) (*models.MergeRecord, error) {
	record := outcome.Record(0)
	if err := r.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Get retrieves a merge by ID, excluding soft-deleted merges
func (r *MergeRepository) Get(id string) (*models.MergeRecord, error) {
	query := `SELECT ` + mergeColumns + ` FROM merges WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a merge by its sequence number
func (r *MergeRepository) GetBySequence(sequence int) (*models.MergeRecord, error) {
	query := `SELECT ` + mergeColumns + ` FROM merges WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence))
}

// Update modifies the output, size and error of an existing merge
func (r *MergeRepository) Update(record *models.MergeRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE merges
		SET status = ?, output_path = ?, byte_size = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(record.Status()),
		record.OutputPath(),
		record.ByteSize(),
		record.ErrorMessage(),
		now,
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update merge: %w", err)
	}

	return affectedOne(result, record.ID())
}

// Delete soft-deletes a merge by ID
func (r *MergeRepository) Delete(id string) error {
	query := `
		UPDATE merges
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete merge: %w", err)
	}

	return affectedOne(result, id)
}

// List retrieves merges matching the given criteria, excluding soft-deleted merges.
//
// Supported criteria:
//   - status (string) : succeeded or failed
//   - newest_first (bool) : order by sequence descending
//   - limit (int) : maximum number of records
func (r *MergeRepository) List(criteria map[string]any) ([]*models.MergeRecord, error) {
	query := `SELECT ` + mergeColumns + ` FROM merges WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if desc, ok := criteria["newest_first"].(bool); ok && desc {
		query += " ORDER BY sequence DESC"
	} else {
		query += " ORDER BY sequence ASC"
	}

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merges: %w", err)
	}
	defer rows.Close()

	var records []*models.MergeRecord
	for rows.Next() {
		record, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row from [sql.Row] or [sql.Rows] into a [models.MergeRecord]
func (r *MergeRepository) scan(row scanner) (*models.MergeRecord, error) {
	var (
		id           string
		sequence     int
		status       string
		outputPath   sql.NullString
		fileCount    int
		byteSize     int64
		sourceNames  string
		errorMessage sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &status, &outputPath, &fileCount, &byteSize, &sourceNames, &errorMessage, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan merge: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(sourceNames), &names); err != nil {
		return nil, fmt.Errorf("failed to decode source names: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestoreMergeRecord(
		id, sequence, models.MergeStatus(status), outputPath.String, fileCount, byteSize,
		names, errorMessage.String, createdAt, updatedAt, deleted,
	), nil
}

func affectedOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: merge %s not found or already deleted", shared.ErrRecordNotFound, id)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
