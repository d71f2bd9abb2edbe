// Package store persists feedback records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lenshq/pagelens/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id            TEXT NOT NULL,
	message_id    TEXT NOT NULL PRIMARY KEY,
	feedback_type TEXT NOT NULL,
	comment       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);`

// Store is a SQLite-backed feedback store. Records are keyed by message ID:
// submitting feedback for the same message replaces the earlier record.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveFeedback upserts a feedback record keyed by message ID and returns the
// stored record.
func (s *Store) SaveFeedback(ctx context.Context, req *models.FeedbackRequest) (*models.FeedbackRecord, error) {
	rec := &models.FeedbackRecord{
		ID:           uuid.NewString(),
		MessageID:    req.MessageID,
		FeedbackType: req.FeedbackType,
		Comment:      req.Comment,
		Timestamp:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, message_id, feedback_type, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			id = excluded.id,
			feedback_type = excluded.feedback_type,
			comment = excluded.comment,
			created_at = excluded.created_at`,
		rec.ID, rec.MessageID, rec.FeedbackType, rec.Comment, rec.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("store: save feedback for %s: %w", req.MessageID, err)
	}
	return rec, nil
}

// GetFeedback returns the feedback record for a message ID, or (nil, nil)
// when none exists.
func (s *Store) GetFeedback(ctx context.Context, messageID string) (*models.FeedbackRecord, error) {
	var rec models.FeedbackRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, message_id, feedback_type, comment, created_at
		FROM feedback WHERE message_id = ?`, messageID,
	).Scan(&rec.ID, &rec.MessageID, &rec.FeedbackType, &rec.Comment, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get feedback for %s: %w", messageID, err)
	}
	return &rec, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
