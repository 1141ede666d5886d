package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timestampLayout is fixed width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded chat request.
type Entry struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Tool             string    `json:"tool,omitempty"`
}

// ModelTotal aggregates entries for one model.
type ModelTotal struct {
	Model            string `json:"model"`
	Requests         int    `json:"requests"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Store persists usage entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the ledger at path and applies pending migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("usage ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create usage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry. Missing ID and CreatedAt are filled in; negative
// counters are stored as zero.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	entry.Model = strings.TrimSpace(entry.Model)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.PromptTokens = max(entry.PromptTokens, 0)
	entry.CompletionTokens = max(entry.CompletionTokens, 0)
	entry.TotalTokens = max(entry.TotalTokens, 0)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_entries (
            id, created_at, model, prompt_tokens, completion_tokens, total_tokens, tool_name
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CreatedAt.Format(timestampLayout),
		entry.Model,
		entry.PromptTokens,
		entry.CompletionTokens,
		entry.TotalTokens,
		nullableString(entry.Tool),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert usage entry: %w", err)
	}
	return entry, nil
}

// Totals aggregates all entries per model, ordered by model name.
func (s *Store) Totals(ctx context.Context) ([]ModelTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, COUNT(1), SUM(prompt_tokens), SUM(completion_tokens), SUM(total_tokens)
        FROM usage_entries GROUP BY model ORDER BY model`)
	if err != nil {
		return nil, fmt.Errorf("query usage totals: %w", err)
	}
	defer rows.Close()

	var totals []ModelTotal
	for rows.Next() {
		var total ModelTotal
		if err := rows.Scan(&total.Model, &total.Requests, &total.PromptTokens, &total.CompletionTokens, &total.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan usage totals: %w", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage totals: %w", err)
	}
	return totals, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, model, prompt_tokens, completion_tokens, total_tokens, tool_name
        FROM usage_entries ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent usage: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			createdAt string
			tool      sql.NullString
		)
		if err := rows.Scan(&entry.ID, &createdAt, &entry.Model, &entry.PromptTokens, &entry.CompletionTokens, &entry.TotalTokens, &tool); err != nil {
			return nil, fmt.Errorf("scan usage entry: %w", err)
		}
		parsed, err := time.Parse(timestampLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse usage timestamp %q: %w", createdAt, err)
		}
		entry.CreatedAt = parsed
		entry.Tool = tool.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage entries: %w", err)
	}
	return entries, nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM usage_entries")
	if err != nil {
		return 0, fmt.Errorf("clear usage entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func nullableString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}
