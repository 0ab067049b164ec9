package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const videosComponent = "store.videos"

// CreateVideo adds a catalogue entry and returns it with its id.
func (s *Store) CreateVideo(ctx context.Context, title, link string) (v Video, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, videosComponent, "create", start, err, slog.Int64("video_id", v.ID))
	}()

	const q = `
INSERT INTO videos (title, link) VALUES ($1, $2)
RETURNING id, title, link, created_at`
	if err = s.db.QueryRowxContext(ctx, q, title, link).StructScan(&v); err != nil {
		return Video{}, fmt.Errorf("create video: %w", err)
	}
	return v, nil
}

// ListVideos returns the catalogue in insertion order so menus stay stable.
func (s *Store) ListVideos(ctx context.Context) (videos []Video, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, videosComponent, "list", start, err, slog.Int("count", len(videos)))
	}()

	const q = `SELECT id, title, link, created_at FROM videos ORDER BY id`
	if err = s.db.SelectContext(ctx, &videos, q); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// GetVideoByTitle finds the oldest video whose title matches exactly,
// case included.
func (s *Store) GetVideoByTitle(ctx context.Context, title string) (v Video, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, videosComponent, "get_by_title", start, err)
	}()

	const q = `
SELECT id, title, link, created_at
  FROM videos WHERE title = $1 ORDER BY id LIMIT 1`
	if err = s.db.GetContext(ctx, &v, q, title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Video{}, ErrNotFound
		}
		return Video{}, fmt.Errorf("get video by title: %w", err)
	}
	return v, nil
}

// DeleteVideo removes a video by id.
func (s *Store) DeleteVideo(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() {
		observe(ctx, videosComponent, "delete", start, err, slog.Int64("video_id", id))
	}()

	res, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video %d: %w", id, err)
	}
	return affected(res)
}
