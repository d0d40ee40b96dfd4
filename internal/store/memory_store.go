package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a memory chunk does not exist.
var ErrNotFound = errors.New("memory not found")

// MemoryChunk is a piece of knowledge remembered for one user.
type MemoryChunk struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	AgentID   string    `json:"agentId,omitempty"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Metadata  string    `json:"metadata,omitempty"` // JSON blob
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Rank      float64   `json:"rank,omitempty"` // FTS5 rank score (search results only)
}

// MemoryStore manages knowledge chunks with full-text search via SQLite FTS5.
type MemoryStore struct {
	db *DB
}

// NewMemoryStore creates a memory store using the given database.
func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

const chunkColumns = `id, owner_id, agent_id, category, content, metadata, created_at, updated_at`

// Store inserts or updates a memory chunk.
func (m *MemoryStore) Store(ctx context.Context, chunk MemoryChunk) (*MemoryChunk, error) {
	if chunk.OwnerID == "" {
		return nil, errors.New("memory owner is required")
	}
	if strings.TrimSpace(chunk.Content) == "" {
		return nil, errors.New("memory content is empty")
	}
	if chunk.ID == "" {
		chunk.ID = uuid.New().String()
	}
	if chunk.Category == "" {
		chunk.Category = "general"
	}

	now := time.Now().UTC().Truncate(time.Second)
	chunk.CreatedAt = now
	chunk.UpdatedAt = now

	var metadata sql.NullString
	if chunk.Metadata != "" {
		metadata = sql.NullString{String: chunk.Metadata, Valid: true}
	}

	_, err := m.db.sql.ExecContext(ctx,
		`INSERT INTO memory_chunks (`+chunkColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   content = excluded.content,
		   category = excluded.category,
		   metadata = excluded.metadata,
		   updated_at = excluded.updated_at`,
		chunk.ID, chunk.OwnerID, chunk.AgentID, chunk.Category,
		chunk.Content, metadata,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return nil, err
	}

	return &chunk, nil
}

// Get returns a single chunk by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*MemoryChunk, error) {
	rows, err := m.db.sql.QueryContext(ctx,
		`SELECT `+chunkColumns+`, 0 FROM memory_chunks WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNotFound
	}
	return &chunks[0], nil
}

// Search finds an owner's chunks matching any word of the query, best match
// first. Limit of 0 defaults to 20.
func (m *MemoryStore) Search(ctx context.Context, ownerID, query string, limit int) ([]MemoryChunk, error) {
	if limit <= 0 {
		limit = 20
	}

	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := m.db.sql.QueryContext(ctx,
		`SELECT mc.id, mc.owner_id, mc.agent_id, mc.category, mc.content, mc.metadata,
		        mc.created_at, mc.updated_at, rank
		 FROM memory_fts
		 JOIN memory_chunks mc ON mc.rowid = memory_fts.rowid
		 WHERE memory_fts MATCH ?
		   AND mc.owner_id = ?
		 ORDER BY rank
		 LIMIT ?`,
		match, ownerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunks(rows)
}

// List returns an owner's chunks, newest first, optionally filtered by
// category. Limit of 0 defaults to 100.
func (m *MemoryStore) List(ctx context.Context, ownerID, category string, limit int) ([]MemoryChunk, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error

	if category != "" {
		rows, err = m.db.sql.QueryContext(ctx,
			`SELECT `+chunkColumns+`, 0
			 FROM memory_chunks WHERE owner_id = ? AND category = ?
			 ORDER BY updated_at DESC, rowid DESC LIMIT ?`,
			ownerID, category, limit,
		)
	} else {
		rows, err = m.db.sql.QueryContext(ctx,
			`SELECT `+chunkColumns+`, 0
			 FROM memory_chunks WHERE owner_id = ?
			 ORDER BY updated_at DESC, rowid DESC LIMIT ?`,
			ownerID, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunks(rows)
}

// Count returns how many chunks exist across all owners.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := m.db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_chunks`).Scan(&n)
	return n, err
}

// Delete removes a memory chunk by ID.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	res, err := m.db.sql.ExecContext(ctx, `DELETE FROM memory_chunks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByOwner removes all memory chunks for an owner.
func (m *MemoryStore) DeleteByOwner(ctx context.Context, ownerID string) error {
	_, err := m.db.sql.ExecContext(ctx, `DELETE FROM memory_chunks WHERE owner_id = ?`, ownerID)
	return err
}

// ftsQuery turns free text into an FTS5 expression that ORs quoted terms,
// so punctuation in user input never reaches the query parser.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

func scanChunks(rows *sql.Rows) ([]MemoryChunk, error) {
	var chunks []MemoryChunk
	for rows.Next() {
		var chunk MemoryChunk
		var createdAt, updatedAt string
		var metadata sql.NullString

		if err := rows.Scan(
			&chunk.ID, &chunk.OwnerID, &chunk.AgentID, &chunk.Category,
			&chunk.Content, &metadata, &createdAt, &updatedAt, &chunk.Rank,
		); err != nil {
			return nil, err
		}

		chunk.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		chunk.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		if metadata.Valid {
			chunk.Metadata = metadata.String
		}

		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
