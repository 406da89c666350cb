package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	contentrender "github.com/alnah/go-contentrender"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id              TEXT PRIMARY KEY,
	content_type    TEXT NOT NULL,
	structured_tree TEXT,
	markup_text     TEXT,
	html            TEXT,
	headings        TEXT,
	plain_text      TEXT,
	word_count      INTEGER,
	read_time       INTEGER,
	updated_at      TEXT NOT NULL
);`

// SQLite is a Store backed by a single SQLite table. Each projection field
// is a nullable column; NULL means absent.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path with WAL mode enabled.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		sqliteSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing sqlite %s: %w", path, err)
		}
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, id string) (*contentrender.StoredDocument, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT content_type, structured_tree, markup_text, html, headings,
       plain_text, word_count, read_time, updated_at
FROM documents WHERE id = ?`, id)

	var (
		contentType string
		tree        sql.NullString
		markup      sql.NullString
		html        sql.NullString
		headings    sql.NullString
		plain       sql.NullString
		words       sql.NullInt64
		readTime    sql.NullInt64
		updatedAt   string
	)
	err := row.Scan(&contentType, &tree, &markup, &html, &headings, &plain, &words, &readTime, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %q: %w", id, err)
	}

	doc := &contentrender.StoredDocument{
		ID: id,
		Request: contentrender.Request{
			ContentType: contentrender.ContentType(contentType),
			MarkupText:  stringPtr(markup),
		},
		HTML:      stringPtr(html),
		PlainText: stringPtr(plain),
		WordCount: intPtr(words),
		ReadTime:  intPtr(readTime),
	}
	if tree.Valid {
		doc.Request.StructuredTree = json.RawMessage(tree.String)
	}
	if headings.Valid {
		if err := json.Unmarshal([]byte(headings.String), &doc.Headings); err != nil {
			return nil, fmt.Errorf("decoding headings of %q: %w", id, err)
		}
		if doc.Headings == nil {
			doc.Headings = []contentrender.Heading{}
		}
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("decoding updated_at of %q: %w", id, err)
	}
	return doc, nil
}

func (s *SQLite) Put(ctx context.Context, doc *contentrender.StoredDocument) error {
	if doc == nil || doc.ID == "" {
		return errors.New("document id cannot be empty")
	}

	var headings sql.NullString
	if doc.Headings != nil {
		raw, err := json.Marshal(doc.Headings)
		if err != nil {
			return fmt.Errorf("encoding headings of %q: %w", doc.ID, err)
		}
		headings = sql.NullString{String: string(raw), Valid: true}
	}
	var tree sql.NullString
	if len(doc.Request.StructuredTree) > 0 {
		tree = sql.NullString{String: string(doc.Request.StructuredTree), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (id, content_type, structured_tree, markup_text, html,
                       headings, plain_text, word_count, read_time, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content_type    = excluded.content_type,
	structured_tree = excluded.structured_tree,
	markup_text     = excluded.markup_text,
	html            = excluded.html,
	headings        = excluded.headings,
	plain_text      = excluded.plain_text,
	word_count      = excluded.word_count,
	read_time       = excluded.read_time,
	updated_at      = excluded.updated_at`,
		doc.ID,
		string(doc.Request.ContentType),
		tree,
		nullString(doc.Request.MarkupText),
		nullString(doc.HTML),
		headings,
		nullString(doc.PlainText),
		nullInt(doc.WordCount),
		nullInt(doc.ReadTime),
		doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing document %q: %w", doc.ID, err)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
