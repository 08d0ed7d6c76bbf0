package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ytai/internal/domain"
)

// LibraryFilter narrows library listings. Zero values match everything.
type LibraryFilter struct {
	Type       domain.EntryType
	Channel    string
	VideoID    int64
	VideoTitle string
}

// SaveEntry appends a summary or answer to the library
func (db *DB) SaveEntry(ctx context.Context, e domain.LibraryEntry) (domain.LibraryEntry, error) {
	if e.Type != domain.EntrySummary && e.Type != domain.EntryAnswer {
		return domain.LibraryEntry{}, fmt.Errorf("%w: unknown entry type %q", domain.ErrInvalidInput, e.Type)
	}
	if e.Type == domain.EntrySummary {
		e.Question = ""
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	err := db.QueryRowContext(ctx,
		db.rebind(`INSERT INTO library_entries (video_id, entry_type, question, text, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		e.VideoID, string(e.Type), nullString(e.Question), e.Text, formatTime(e.CreatedAt),
	).Scan(&e.ID)
	if err != nil {
		return domain.LibraryEntry{}, fmt.Errorf("failed to save library entry: %w", err)
	}
	e.CreatedAt = parseTime(formatTime(e.CreatedAt))
	return e, nil
}

// Entries lists library entries matching f, oldest first
func (db *DB) Entries(ctx context.Context, f LibraryFilter) ([]domain.LibraryEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "e.entry_type = ?")
		args = append(args, string(f.Type))
	}
	if f.Channel != "" {
		where = append(where, "v.channel = ?")
		args = append(args, f.Channel)
	}
	if f.VideoID != 0 {
		where = append(where, "e.video_id = ?")
		args = append(args, f.VideoID)
	}
	if f.VideoTitle != "" {
		where = append(where, "v.title = ?")
		args = append(args, f.VideoTitle)
	}
	q := `SELECT e.id, e.video_id, e.entry_type, e.question, e.text, e.created_at, v.title, v.channel
		FROM library_entries e JOIN videos v ON v.id = e.video_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY e.id"

	rows, err := db.QueryContext(ctx, db.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list library entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LibraryEntry
	for rows.Next() {
		var (
			e         domain.LibraryEntry
			entryType string
			question  sql.NullString
			channel   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.VideoID, &entryType, &question, &e.Text, &createdAt, &e.VideoTitle, &channel); err != nil {
			return nil, fmt.Errorf("failed to scan library entry: %w", err)
		}
		e.Type = domain.EntryType(strings.TrimSpace(entryType))
		e.Question = question.String
		e.VideoChannel = channel.String
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes one library entry
func (db *DB) DeleteEntry(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, db.rebind(`DELETE FROM library_entries WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete library entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("library entry %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
