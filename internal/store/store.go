// Package store is the client for the pgvector-backed chunk store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// ChunkRecord is a stored document segment with its passage embedding.
// Immutable once inserted; the store owns it from then on.
type ChunkRecord struct {
	ID        string
	Content   string
	Metadata  map[string]interface{}
	Embedding []float32
	// CategoryID is an optional grouping tag. Deployments running a schema
	// that predates the category column still accept inserts; see InsertChunk.
	CategoryID string
	CreatedAt  time.Time
}

// ChunkSearchResult is one hit from a chunk search. Similarity is cosine
// similarity in [0,1] for embedding searches and zero for content searches.
type ChunkSearchResult struct {
	ID         string
	Content    string
	Metadata   map[string]interface{}
	Similarity float64
}

// SchemaMismatchError reports that the store rejected an optional column the
// current schema does not carry yet.
type SchemaMismatchError struct {
	Column string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("store schema does not support column %q", e.Column)
}

// InsertChunk stores a chunk row. When the record carries a category and the
// schema rejects the category_id column, the insert is retried once without it
// so older deployments keep accepting documents. Any other failure is returned
// as-is.
func (s *Store) InsertChunk(ctx context.Context, rec ChunkRecord) error {
	if strings.TrimSpace(rec.Content) == "" {
		return fmt.Errorf("chunk content required")
	}
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("embedding vector required")
	}
	vectorLiteral, err := encodeVectorLiteral(rec.Embedding)
	if err != nil {
		return err
	}
	metaBytes, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if rec.CategoryID != "" {
		err := s.insertChunkRow(ctx, rec.Content, metaBytes, vectorLiteral, rec.CategoryID)
		var mismatch *SchemaMismatchError
		if !errors.As(err, &mismatch) {
			return err
		}
		// Schema predates the category column; retry without it.
	}
	return s.insertChunkRow(ctx, rec.Content, metaBytes, vectorLiteral, "")
}

func (s *Store) insertChunkRow(ctx context.Context, content string, metaBytes []byte, vectorLiteral, categoryID string) error {
	if categoryID != "" {
		_, err := s.DB.ExecContext(ctx, `
INSERT INTO knowledge_chunks (content, metadata, embedding, category_id)
VALUES ($1,$2,$3::vector,$4)
`, content, metaBytes, vectorLiteral, categoryID)
		if err != nil && isUndefinedColumn(err, "category_id") {
			return &SchemaMismatchError{Column: "category_id"}
		}
		return err
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO knowledge_chunks (content, metadata, embedding)
VALUES ($1,$2,$3::vector)
`, content, metaBytes, vectorLiteral)
	return err
}

// SearchChunkEmbeddings returns up to limit chunks whose cosine similarity to
// the supplied vector is at least threshold, closest first. The threshold is
// enforced server-side and passed through unmodified.
func (s *Store) SearchChunkEmbeddings(ctx context.Context, vector []float32, threshold float64, limit int) ([]ChunkSearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector must not be empty")
	}
	if limit <= 0 {
		limit = 5
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, content, metadata, 1 - (embedding <=> $1::vector) AS similarity
FROM knowledge_chunks
WHERE 1 - (embedding <=> $1::vector) >= $2
ORDER BY embedding <=> $1::vector
LIMIT $3
`, vecLiteral, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkResults(rows, true)
}

// SearchChunkContent returns up to limit chunks whose content contains any of
// the supplied terms, case-insensitive. No similarity metric applies; callers
// assign their own score to lexical hits.
func (s *Store) SearchChunkContent(ctx context.Context, terms []string, limit int) ([]ChunkSearchResult, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	patterns := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		patterns = append(patterns, "%"+escapeLikePattern(term)+"%")
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, content, metadata
FROM knowledge_chunks
WHERE content ILIKE ANY($1)
LIMIT $2
`, pq.Array(patterns), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkResults(rows, false)
}

func scanChunkResults(rows *sql.Rows, withSimilarity bool) ([]ChunkSearchResult, error) {
	var results []ChunkSearchResult
	for rows.Next() {
		var (
			res       ChunkSearchResult
			metaBytes []byte
		)
		if withSimilarity {
			if err := rows.Scan(&res.ID, &res.Content, &metaBytes, &res.Similarity); err != nil {
				return nil, err
			}
		} else {
			if err := rows.Scan(&res.ID, &res.Content, &metaBytes); err != nil {
				return nil, err
			}
		}
		if len(metaBytes) > 0 {
			_ = json.Unmarshal(metaBytes, &res.Metadata)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// isUndefinedColumn matches postgres undefined_column errors for the named
// column. Detection is by error content: the pq code when available, the
// message text otherwise. See SchemaMismatchError.
func isUndefinedColumn(err error, column string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42703" && strings.Contains(pqErr.Message, column)
	}
	msg := err.Error()
	return strings.Contains(msg, "column") && strings.Contains(msg, column)
}

func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
