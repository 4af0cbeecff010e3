// Package store persists export history in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobfolio/web/internal/export"
	"jobfolio/web/internal/util"
)

const defaultListLimit = 50

type ExportRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Format    string    `json:"format"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"sizeBytes"`
	Pages     int       `json:"pages"`
	CreatedAt time.Time `json:"createdAt"`
}

type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *HistoryStore) InsertExportRecord(ctx context.Context, rec ExportRecord) (ExportRecord, error) {
	if rec.ID == "" {
		rec.ID = util.NewID("exp")
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO export_history (id, user_id, title, format, filename, size_bytes, pages)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, rec.ID, rec.UserID, rec.Title, rec.Format, rec.Filename, rec.SizeBytes, rec.Pages).Scan(&rec.CreatedAt)
	if err != nil {
		return ExportRecord{}, fmt.Errorf("insert export record: %w", err)
	}
	return rec, nil
}

// ListExportRecords returns the newest records of one user.
func (s *HistoryStore) ListExportRecords(ctx context.Context, userID string, limit int) ([]ExportRecord, error) {
	return s.list(ctx, `WHERE user_id = $1`, []any{userID}, limit)
}

// ListAllExportRecords returns the newest records across users.
func (s *HistoryStore) ListAllExportRecords(ctx context.Context, limit int) ([]ExportRecord, error) {
	return s.list(ctx, "", nil, limit)
}

func (s *HistoryStore) list(ctx context.Context, where string, args []any, limit int) ([]ExportRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT id, user_id, title, format, filename, size_bytes, pages, created_at
		FROM export_history
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, where, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list export records: %w", err)
	}
	defer rows.Close()

	records := []ExportRecord{}
	for rows.Next() {
		var rec ExportRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Format, &rec.Filename, &rec.SizeBytes, &rec.Pages, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExportCompleted records a finished export.
func (s *HistoryStore) ExportCompleted(ctx context.Context, userID string, doc export.Document, res *export.Result) error {
	format := string(export.FormatPDF)
	if strings.HasSuffix(res.Filename, ".docx") {
		format = string(export.FormatDOCX)
	}
	_, err := s.InsertExportRecord(ctx, ExportRecord{
		UserID:    userID,
		Title:     strings.TrimSpace(doc.Title),
		Format:    format,
		Filename:  res.Filename,
		SizeBytes: int64(len(res.Data)),
		Pages:     res.Pages,
	})
	return err
}
