package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/articles/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// maxIDsPerStatement keeps IN lists well under SQLite's bound parameter limit.
const maxIDsPerStatement = 500

// numericColumns whitelists the columns SumField may aggregate.
var numericColumns = map[models.Field]string{
	models.FieldTotalViews: "total_views",
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	memory := dbPath == ":memory:"
	if !memory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		index_name TEXT NOT NULL,
		id TEXT NOT NULL,
		title TEXT,
		author TEXT,
		content TEXT,
		publish_date TIMESTAMP,
		total_views INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (index_name, id)
	);

	CREATE INDEX IF NOT EXISTS idx_articles_publish_date ON articles(index_name, publish_date);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertArticles implements Storage.
func (s *SQLiteStorage) UpsertArticles(ctx context.Context, index string, articles []*models.Article, apply func() error) (map[string]bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	existing, err := existingIDs(ctx, tx, index, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing articles: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (index_name, id, title, author, content, publish_date, total_views, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(index_name, id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			content = excluded.content,
			publish_date = excluded.publish_date,
			total_views = excluded.total_views,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, a := range articles {
		if _, err := stmt.ExecContext(ctx,
			index, a.ID, nullString(a.Title), nullString(a.Author), nullString(a.Content),
			nullTime(a.PublishDate), a.TotalViews, now,
		); err != nil {
			return nil, fmt.Errorf("failed to upsert article %s: %w", a.ID, err)
		}
	}

	if apply != nil {
		if err := apply(); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return existing, nil
}

func existingIDs(ctx context.Context, tx *sql.Tx, index string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, chunk := range chunkIDs(ids) {
		args := append([]any{index}, toArgs(chunk)...)
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM articles WHERE index_name = ? AND id IN (`+placeholders(len(chunk))+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			out[id] = true
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const selectArticle = `SELECT id, title, author, content, publish_date, total_views FROM articles`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(r rowScanner) (*models.Article, error) {
	var (
		a                      models.Article
		title, author, content sql.NullString
		published              sql.NullTime
	)
	if err := r.Scan(&a.ID, &title, &author, &content, &published, &a.TotalViews); err != nil {
		return nil, err
	}
	a.Title = title.String
	a.Author = author.String
	a.Content = content.String
	if published.Valid {
		a.PublishDate = published.Time.UTC()
	}
	return &a, nil
}

// GetArticle implements Storage.
func (s *SQLiteStorage) GetArticle(ctx context.Context, index, id string) (*models.Article, error) {
	row := s.db.QueryRowContext(ctx, selectArticle+` WHERE index_name = ? AND id = ?`, index, id)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetArticles implements Storage.
func (s *SQLiteStorage) GetArticles(ctx context.Context, index string, ids []string) (map[string]*models.Article, error) {
	out := make(map[string]*models.Article, len(ids))
	for _, chunk := range chunkIDs(ids) {
		args := append([]any{index}, toArgs(chunk)...)
		rows, err := s.db.QueryContext(ctx,
			selectArticle+` WHERE index_name = ? AND id IN (`+placeholders(len(chunk))+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			a, err := scanArticle(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[a.ID] = a
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SumField implements Storage.
func (s *SQLiteStorage) SumField(ctx context.Context, index string, field models.Field, ids []string) (float64, int64, error) {
	column, ok := numericColumns[field]
	if !ok {
		return 0, 0, fmt.Errorf("field %s cannot be aggregated", field)
	}
	var (
		sum   float64
		count int64
	)
	for _, chunk := range chunkIDs(ids) {
		args := append([]any{index}, toArgs(chunk)...)
		var (
			chunkSum   sql.NullFloat64
			chunkCount int64
		)
		err := s.db.QueryRowContext(ctx,
			`SELECT SUM(`+column+`), COUNT(`+column+`) FROM articles
			 WHERE index_name = ? AND id IN (`+placeholders(len(chunk))+`)`, args...,
		).Scan(&chunkSum, &chunkCount)
		if err != nil {
			return 0, 0, err
		}
		sum += chunkSum.Float64
		count += chunkCount
	}
	return sum, count, nil
}

// CountArticles implements Storage.
func (s *SQLiteStorage) CountArticles(ctx context.Context, index string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE index_name = ?`, index).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func chunkIDs(ids []string) [][]string {
	var out [][]string
	for len(ids) > maxIDsPerStatement {
		out = append(out, ids[:maxIDsPerStatement])
		ids = ids[maxIDsPerStatement:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
