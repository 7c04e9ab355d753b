package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
)

const uploadColumns = `id, sequence, upload_id, file_path, file_name, file_size, mime_type, chunk_size, chunk_count,
	status, progress, error, reel_id, processing_job_id, title, created_at, updated_at, deleted_at`

// UploadRepository implements models.Repository[*models.UploadSession] for the local upload ledger.
//
// Sessions are soft deleted; their chunk rows are kept until the session row itself is purged.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new UploadRepository with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create inserts a new session with a generated ID and sequence
func (r *UploadRepository) Create(session *models.UploadSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "uploads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	session.SetID(id)
	session.SetSequence(sequence)

	query := `
		INSERT INTO uploads (
			id, sequence, upload_id, file_path, file_name, file_size, mime_type, chunk_size, chunk_count,
			status, progress, error, reel_id, processing_job_id, title, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		session.UploadID(),
		session.FilePath(),
		session.FileName(),
		session.FileSize(),
		session.MimeType(),
		session.ChunkSize(),
		session.ChunkCount(),
		string(session.Status()),
		session.Progress(),
		session.ErrorMessage(),
		session.ReelID(),
		session.ProcessingJobID(),
		session.Title(),
		session.CreatedAt(),
		session.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload session: %w", err)
	}

	return nil
}

// Get retrieves a session by local ID, excluding soft-deleted sessions
func (r *UploadRepository) Get(id string) (*models.UploadSession, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByUploadID retrieves the most recent session for a backend upload ID
func (r *UploadRepository) GetByUploadID(uploadID string) (*models.UploadSession, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads
		WHERE upload_id = ? AND deleted_at IS NULL
		ORDER BY sequence DESC LIMIT 1`
	return r.scanOne(r.db.QueryRow(query, uploadID), uploadID)
}

// Update writes the mutable fields of a session
func (r *UploadRepository) Update(session *models.UploadSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE uploads
		SET upload_id = ?, file_name = ?, mime_type = ?, chunk_count = ?, status = ?, progress = ?,
			error = ?, reel_id = ?, processing_job_id = ?, title = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		session.UploadID(),
		session.FileName(),
		session.MimeType(),
		session.ChunkCount(),
		string(session.Status()),
		session.Progress(),
		session.ErrorMessage(),
		session.ReelID(),
		session.ProcessingJobID(),
		session.Title(),
		now,
		session.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update upload session: %w", err)
	}

	return expectOneRow(result, session.ID())
}

// Delete soft-deletes a session by local ID
func (r *UploadRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE uploads SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete upload session: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves sessions matching criteria, newest first.
//
// Supported criteria: "status" (string or models.UploadStatus), "upload_id" (string) and "limit" (int).
func (r *UploadRepository) List(criteria map[string]any) ([]*models.UploadSession, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE deleted_at IS NULL`
	args := []any{}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.UploadStatus:
		if status != "" {
			query += " AND status = ?"
			args = append(args, string(status))
		}
	}

	if uploadID, ok := criteria["upload_id"].(string); ok && uploadID != "" {
		query += " AND upload_id = ?"
		args = append(args, uploadID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.UploadSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// SaveChunks upserts the chunk ledger of a session in one transaction.
func (r *UploadRepository) SaveChunks(sessionID string, chunks []models.UploadChunk) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO upload_chunks (session_id, chunk_number, etag, size, uploaded)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, chunk_number) DO UPDATE
		SET etag = excluded.etag, size = excluded.size, uploaded = excluded.uploaded
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.Exec(sessionID, c.ChunkNumber, c.ETag, c.Size, c.Uploaded); err != nil {
			return fmt.Errorf("failed to save chunk %d: %w", c.ChunkNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// Chunks returns the chunk ledger of a session ordered by chunk number.
func (r *UploadRepository) Chunks(sessionID string) ([]models.UploadChunk, error) {
	rows, err := r.db.Query(`
		SELECT chunk_number, etag, size, uploaded
		FROM upload_chunks
		WHERE session_id = ?
		ORDER BY chunk_number ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.UploadChunk
	for rows.Next() {
		var c models.UploadChunk
		if err := rows.Scan(&c.ChunkNumber, &c.ETag, &c.Size, &c.Uploaded); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return chunks, nil
}

func (r *UploadRepository) scanOne(row *sql.Row, key string) (*models.UploadSession, error) {
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUploadNotFound, key)
	}
	return session, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSession scans a row from either [sql.Row] or [sql.Rows] into a [models.UploadSession]
func scanSession(row scanner) (*models.UploadSession, error) {
	var (
		id, uploadID, filePath, fileName, mimeType string
		status, errorMessage, reelID, jobID, title string
		sequence, chunkCount, progress             int
		fileSize, chunkSize                        int64
		createdAt, updatedAt                       time.Time
		deletedAt                                  sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &uploadID, &filePath, &fileName, &fileSize, &mimeType, &chunkSize, &chunkCount,
		&status, &progress, &errorMessage, &reelID, &jobID, &title, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload session: %w", err)
	}

	session := models.NewUploadSession(sequence, filePath, fileSize, chunkSize)
	session.SetID(id)
	session.SetUploadID(uploadID)
	session.SetFileName(fileName)
	session.SetMimeType(mimeType)
	session.SetChunkCount(chunkCount)
	session.SetStatus(models.UploadStatus(status))
	session.SetProgress(progress)
	session.SetErrorMessage(errorMessage)
	session.SetReelID(reelID)
	session.SetProcessingJobID(jobID)
	session.SetTitle(title)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	return session, nil
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted", shared.ErrUploadNotFound, id)
	}
	return nil
}
