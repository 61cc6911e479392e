package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

const historyRepoTimeout = 5 * time.Second

// TrackRecord is one remembered track together with its aggregate play count.
type TrackRecord struct {
	ID            int64
	Title         string
	Author        string
	URL           string
	Plays         int
	LastRequester string
}

// RequesterPlays aggregates plays per requesting user.
type RequesterPlays struct {
	DiscordID string
	Username  string
	Plays     int
}

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{db: GetDB()}
}

// RecordPlay upserts the requesting user and the track, then inserts one play
// row. Tracks are matched by URL first and by title+author second, so a
// shortened link of an already-known track does not create a duplicate row.
func (r *HistoryRepository) RecordPlay(ctx context.Context, title, author, url, requesterID, requesterName string) error {
	if r == nil || r.db == nil {
		return errors.New("history repository not initialized")
	}
	if url == "" {
		return errors.New("track url is required")
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	var userID int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (discord_id, username)
		VALUES ($1, $2)
		ON CONFLICT (discord_id)
		DO UPDATE SET username = EXCLUDED.username
		RETURNING id
	`, requesterID, requesterName).Scan(&userID)
	if err != nil {
		return errors.Wrap(err, "upsert user")
	}

	trackID, err := r.findTrackID(ctx, title, author, url)
	if err != nil {
		return err
	}
	if trackID == 0 {
		err = r.db.QueryRowContext(ctx, `
			INSERT INTO tracks (title, author, url)
			VALUES ($1, $2, $3)
			ON CONFLICT (url) DO UPDATE SET title = EXCLUDED.title
			RETURNING id
		`, title, author, url).Scan(&trackID)
		if err != nil {
			return errors.Wrap(err, "insert track")
		}
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO plays (user_id, track_id) VALUES ($1, $2)
	`, userID, trackID); err != nil {
		return errors.Wrap(err, "insert play")
	}

	return nil
}

func (r *HistoryRepository) findTrackID(ctx context.Context, title, author, url string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM tracks WHERE url = $1`, url).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrap(err, "lookup track by url")
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT id FROM tracks WHERE title = $1 AND author = $2
	`, title, author).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "lookup track by title/author")
	}
	return id, nil
}

// ListAll returns every remembered track with its total play count.
func (r *HistoryRepository) ListAll(ctx context.Context) ([]TrackRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("history repository not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.author, t.url,
			COUNT(p.id) AS plays,
			COALESCE((
				SELECT u.username FROM plays lp
				JOIN users u ON u.id = lp.user_id
				WHERE lp.track_id = t.id
				ORDER BY lp.played_at DESC LIMIT 1
			), '') AS last_requester
		FROM tracks t
		LEFT JOIN plays p ON p.track_id = t.id
		GROUP BY t.id
		ORDER BY t.id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list track history")
	}
	defer rows.Close()

	return scanTrackRecords(rows)
}

// TopTracks returns the n most played tracks, most played first.
func (r *HistoryRepository) TopTracks(ctx context.Context, n int) ([]TrackRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("history repository not initialized")
	}
	if n <= 0 {
		n = 5
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.author, t.url, COUNT(p.id) AS plays, '' AS last_requester
		FROM tracks t
		JOIN plays p ON p.track_id = t.id
		GROUP BY t.id
		ORDER BY plays DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, errors.Wrap(err, "list top tracks")
	}
	defer rows.Close()

	return scanTrackRecords(rows)
}

// TopRequesters returns the n users with the most plays.
func (r *HistoryRepository) TopRequesters(ctx context.Context, n int) ([]RequesterPlays, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("history repository not initialized")
	}
	if n <= 0 {
		n = 5
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT u.discord_id, u.username, COUNT(p.id) AS plays
		FROM users u
		JOIN plays p ON p.user_id = u.id
		GROUP BY u.id
		ORDER BY plays DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, errors.Wrap(err, "list top requesters")
	}
	defer rows.Close()

	var out []RequesterPlays
	for rows.Next() {
		var rp RequesterPlays
		if err := rows.Scan(&rp.DiscordID, &rp.Username, &rp.Plays); err != nil {
			return nil, errors.Wrap(err, "scan requester row")
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// TotalPlays returns the number of play rows across all tracks.
func (r *HistoryRepository) TotalPlays(ctx context.Context) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("history repository not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plays`).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "count plays")
	}
	return total, nil
}

func scanTrackRecords(rows *sql.Rows) ([]TrackRecord, error) {
	var out []TrackRecord
	for rows.Next() {
		var tr TrackRecord
		if err := rows.Scan(&tr.ID, &tr.Title, &tr.Author, &tr.URL, &tr.Plays, &tr.LastRequester); err != nil {
			return nil, errors.Wrap(err, "scan track row")
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
