package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ytai/internal/domain"
)

const videoColumns = `id, yt_video_id, title, link, channel, saved_on`

func scanVideo(row interface{ Scan(...any) error }) (domain.Video, error) {
	var (
		v       domain.Video
		channel sql.NullString
		savedOn string
	)
	if err := row.Scan(&v.ID, &v.YouTubeID, &v.Title, &v.Link, &channel, &savedOn); err != nil {
		return domain.Video{}, err
	}
	v.Channel = channel.String
	v.SavedOn = parseTime(savedOn)
	return v, nil
}

// VideoByYouTubeID returns the saved video with the given YouTube id
func (db *DB) VideoByYouTubeID(ctx context.Context, ytID string) (domain.Video, error) {
	row := db.QueryRowContext(ctx, db.rebind(`SELECT `+videoColumns+` FROM videos WHERE yt_video_id = ?`), ytID)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Video{}, fmt.Errorf("video %s: %w", ytID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Video{}, fmt.Errorf("failed to get video: %w", err)
	}
	return v, nil
}

// GetOrCreateVideo returns the video with v.YouTubeID, saving v first if it is unknown.
// The boolean reports whether the video was created.
func (db *DB) GetOrCreateVideo(ctx context.Context, v domain.Video) (domain.Video, bool, error) {
	existing, err := db.VideoByYouTubeID(ctx, v.YouTubeID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Video{}, false, err
	}
	if v.SavedOn.IsZero() {
		v.SavedOn = time.Now()
	}
	err = db.QueryRowContext(ctx,
		db.rebind(`INSERT INTO videos (yt_video_id, title, link, channel, saved_on) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		v.YouTubeID, v.Title, v.Link, nullString(v.Channel), formatTime(v.SavedOn),
	).Scan(&v.ID)
	if err != nil {
		return domain.Video{}, false, fmt.Errorf("failed to create video: %w", err)
	}
	v.SavedOn = parseTime(formatTime(v.SavedOn))
	return v, true, nil
}

// ListVideos returns all saved videos, oldest first
func (db *DB) ListVideos(ctx context.Context) ([]domain.Video, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// Channels returns the distinct channel names of saved videos
func (db *DB) Channels(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT channel FROM videos WHERE channel IS NOT NULL ORDER BY channel`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// DeleteVideo removes a video together with its transcript and library entries
func (db *DB) DeleteVideo(ctx context.Context, id int64) error {
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM library_entries WHERE video_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete library entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM transcripts WHERE video_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete transcript: %w", err)
		}
		res, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM videos WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete video: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("video %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}
