package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ytai/internal/domain"
)

const transcriptColumns = `id, video_id, language, preprocessed, chunk_size, original_token_num, processed_token_num, collection_name, index_state`

func scanTranscript(row interface{ Scan(...any) error }) (domain.TranscriptRecord, error) {
	var (
		t        domain.TranscriptRecord
		language sql.NullString
		state    string
	)
	err := row.Scan(&t.ID, &t.VideoID, &language, &t.Preprocessed, &t.ChunkSize,
		&t.OriginalTokens, &t.ProcessedTokens, &t.CollectionName, &state)
	if err != nil {
		return domain.TranscriptRecord{}, err
	}
	t.Language = language.String
	t.IndexState = domain.IndexState(state)
	return t, nil
}

// TranscriptForVideo returns the transcript row of a video
func (db *DB) TranscriptForVideo(ctx context.Context, videoID int64) (domain.TranscriptRecord, error) {
	row := db.QueryRowContext(ctx, db.rebind(`SELECT `+transcriptColumns+` FROM transcripts WHERE video_id = ?`), videoID)
	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TranscriptRecord{}, fmt.Errorf("transcript of video %d: %w", videoID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TranscriptRecord{}, fmt.Errorf("failed to get transcript: %w", err)
	}
	return t, nil
}

// SaveTranscript stores t as the transcript of t.VideoID, replacing any previous one
func (db *DB) SaveTranscript(ctx context.Context, t domain.TranscriptRecord) (domain.TranscriptRecord, error) {
	if t.IndexState == "" {
		t.IndexState = domain.IndexPending
	}
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM transcripts WHERE video_id = ?`), t.VideoID); err != nil {
			return fmt.Errorf("failed to replace transcript: %w", err)
		}
		return tx.QueryRowContext(ctx, db.rebind(`INSERT INTO transcripts
			(video_id, language, preprocessed, chunk_size, original_token_num, processed_token_num, collection_name, index_state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			t.VideoID, nullString(t.Language), t.Preprocessed, t.ChunkSize,
			t.OriginalTokens, t.ProcessedTokens, t.CollectionName, string(t.IndexState),
		).Scan(&t.ID)
	})
	if err != nil {
		return domain.TranscriptRecord{}, fmt.Errorf("failed to save transcript: %w", err)
	}
	return t, nil
}

// SetIndexState records the indexing outcome of a transcript
func (db *DB) SetIndexState(ctx context.Context, id int64, state domain.IndexState) error {
	res, err := db.ExecContext(ctx, db.rebind(`UPDATE transcripts SET index_state = ? WHERE id = ?`), string(state), id)
	if err != nil {
		return fmt.Errorf("failed to update index state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transcript %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetProcessedTokens records the token count of the preprocessed transcript
func (db *DB) SetProcessedTokens(ctx context.Context, id int64, tokens int) error {
	_, err := db.ExecContext(ctx, db.rebind(`UPDATE transcripts SET processed_token_num = ? WHERE id = ?`), tokens, id)
	if err != nil {
		return fmt.Errorf("failed to update processed tokens: %w", err)
	}
	return nil
}
