package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"ttscraper/pkg/metadata"

	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS posts (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	play_count    INTEGER NOT NULL DEFAULT 0,
	like_count    INTEGER NOT NULL DEFAULT 0,
	comment_count INTEGER NOT NULL DEFAULT 0,
	share_count   INTEGER NOT NULL DEFAULT 0,
	is_image_post INTEGER NOT NULL DEFAULT 0,
	data          TEXT NOT NULL,
	first_seen_at DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_username ON posts(username);

CREATE TABLE IF NOT EXISTS crawl_runs (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	sec_uid       TEXT NOT NULL DEFAULT '',
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME,
	state         TEXT NOT NULL DEFAULT 'running',
	items         INTEGER NOT NULL DEFAULT 0,
	pages         INTEGER NOT NULL DEFAULT 0,
	final_cursor  INTEGER NOT NULL DEFAULT 0,
	item_hint     INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_username ON crawl_runs(username);
`

// CrawlRun is one recorded crawl
type CrawlRun struct {
	ID          string
	Username    string
	SecUID      string
	StartedAt   time.Time
	FinishedAt  *time.Time
	State       string
	Items       int
	Pages       int
	FinalCursor int
	ItemHint    int
	Error       string
}

// SQLiteStore keeps every collected post and a history of crawl runs
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts between concurrent crawls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertPosts inserts new posts and refreshes stats of known ones
func (s *SQLiteStore) UpsertPosts(ctx context.Context, username string, posts []metadata.Post) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (id, username, description, created_at, play_count, like_count,
			comment_count, share_count, is_image_post, data, first_seen_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description   = excluded.description,
			play_count    = excluded.play_count,
			like_count    = excluded.like_count,
			comment_count = excluded.comment_count,
			share_count   = excluded.share_count,
			data          = excluded.data,
			updated_at    = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range posts {
		p := &posts[i]
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal post %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, username, p.Description, p.CreateTime,
			p.Stats.PlayCount, p.Stats.LikeCount, p.Stats.CommentCount, p.Stats.ShareCount,
			p.IsImagePost(), string(data), now, now,
		); err != nil {
			return fmt.Errorf("failed to upsert post %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// CountPosts returns how many posts are stored for username
func (s *SQLiteStore) CountPosts(ctx context.Context, username string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// Posts returns stored posts for username, newest first
func (s *SQLiteStore) Posts(ctx context.Context, username string) ([]metadata.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM posts WHERE username = ? ORDER BY created_at DESC, id DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []metadata.Post
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		var p metadata.Post
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("failed to decode post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// StartRun records the start of a crawl and returns its id
func (s *SQLiteStore) StartRun(ctx context.Context, username, secUID string, itemHint int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_runs (id, username, sec_uid, started_at, item_hint)
		VALUES (?, ?, ?, ?, ?)
	`, id, username, secUID, time.Now().UTC(), itemHint)
	if err != nil {
		return "", fmt.Errorf("failed to record crawl run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a crawl
func (s *SQLiteStore) FinishRun(ctx context.Context, run *CrawlRun) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_runs
		SET finished_at = ?, state = ?, items = ?, pages = ?, final_cursor = ?, error = ?
		WHERE id = ?
	`, time.Now().UTC(), run.State, run.Items, run.Pages, run.FinalCursor, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("crawl run %s not found", run.ID)
	}
	return nil
}

// Runs lists the crawl history of username, most recent first
func (s *SQLiteStore) Runs(ctx context.Context, username string) ([]CrawlRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, sec_uid, started_at, finished_at, state, items, pages, final_cursor, item_hint, error
		FROM crawl_runs WHERE username = ? ORDER BY started_at DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []CrawlRun
	for rows.Next() {
		var r CrawlRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Username, &r.SecUID, &r.StartedAt, &finished, &r.State,
			&r.Items, &r.Pages, &r.FinalCursor, &r.ItemHint, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan crawl run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
