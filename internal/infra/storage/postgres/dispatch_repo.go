package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/pacer/internal/core/domain"
)

// DispatchRepo implements storage.DispatchRepository using PostgreSQL.
type DispatchRepo struct {
	db *DB
}

// NewDispatchRepo creates a new PostgreSQL dispatch repository.
func NewDispatchRepo(db *DB) *DispatchRepo {
	return &DispatchRepo{db: db}
}

type dispatchRow struct {
	ID         string    `db:"id"`
	SubjectID  string    `db:"subject_id"`
	Kind       string    `db:"kind"`
	Attempt    int       `db:"attempt"`
	PageType   string    `db:"page_type"`
	EventType  string    `db:"event_type"`
	TargetURL  string    `db:"target_url"`
	Status     string    `db:"status"`
	Error      string    `db:"error"`
	DurationMS int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// Save records one dispatch outcome.
func (r *DispatchRepo) Save(ctx context.Context, d *domain.Dispatch) error {
	const query = `
		INSERT INTO dispatches (
			id, subject_id, kind, attempt, page_type, event_type,
			target_url, status, error, duration_ms, created_at
		) VALUES (
			:id, :subject_id, :kind, :attempt, :page_type, :event_type,
			:target_url, :status, :error, :duration_ms, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, dispatchRow{
		ID:         d.ID,
		SubjectID:  d.SubjectID,
		Kind:       string(d.Kind),
		Attempt:    d.Attempt,
		PageType:   d.PageType,
		EventType:  d.EventType,
		TargetURL:  d.TargetURL,
		Status:     string(d.Status),
		Error:      d.Error,
		DurationMS: d.Duration.Milliseconds(),
		CreatedAt:  d.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save dispatch: %w", err)
	}
	return nil
}

// ListRecent returns the most recent dispatches, newest first.
func (r *DispatchRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Dispatch, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []dispatchRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, subject_id, kind, attempt, page_type, event_type,
		       target_url, status, error, duration_ms, created_at
		FROM dispatches
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}

	out := make([]*domain.Dispatch, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.Dispatch{
			ID:        row.ID,
			SubjectID: row.SubjectID,
			Kind:      domain.OperationKind(row.Kind),
			Attempt:   row.Attempt,
			PageType:  row.PageType,
			EventType: row.EventType,
			TargetURL: row.TargetURL,
			Status:    domain.DispatchStatus(row.Status),
			Error:     row.Error,
			Duration:  time.Duration(row.DurationMS) * time.Millisecond,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// CountByStatus returns dispatch counts grouped by status.
func (r *DispatchRepo) CountByStatus(ctx context.Context) (map[domain.DispatchStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(*) AS count
		FROM dispatches
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count dispatches: %w", err)
	}

	counts := make(map[domain.DispatchStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.DispatchStatus(row.Status)] = row.Count
	}
	return counts, nil
}
