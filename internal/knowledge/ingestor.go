package knowledge

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/sangguni-ai/sangguni/internal/embedding"
	"github.com/sangguni-ai/sangguni/internal/store"
)

// ChunkInserter is the slice of the store the ingestion pipeline needs.
type ChunkInserter interface {
	InsertChunk(ctx context.Context, rec store.ChunkRecord) error
}

// Pipeline composes the chunker, the embedder and the chunk store to ingest
// documents.
type Pipeline struct {
	chunker  *Chunker
	embedder embedding.Embedder
	store    ChunkInserter
	logger   *log.Logger
}

// NewPipeline builds an ingestion pipeline.
func NewPipeline(chunker *Chunker, embedder embedding.Embedder, st ChunkInserter, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	return &Pipeline{chunker: chunker, embedder: embedder, store: st, logger: logger}
}

// AddDocument chunks the content, embeds every chunk in passage mode and
// inserts the rows, returning the generated document ID. metadata is applied
// to every derived chunk; its optional category_id value becomes the chunks'
// grouping tag. The first unrecoverable error aborts the document, but chunks
// already inserted stay persisted; ingestion is not transactional across
// chunks. A nil error means every chunk was stored.
func (p *Pipeline) AddDocument(ctx context.Context, content string, metadata map[string]interface{}) (string, error) {
	drafts := p.chunker.Split(content)
	if len(drafts) == 0 {
		p.logger.Printf("document produced no chunks, nothing to ingest")
		return "", nil
	}

	docID := uuid.NewString()
	categoryID, _ := metadata["category_id"].(string)

	for _, draft := range drafts {
		vec, err := p.embedder.Embed(ctx, draft.Content, embedding.ModePassage)
		if err != nil {
			return "", fmt.Errorf("embed chunk %d: %w", draft.Index, err)
		}
		rec := store.ChunkRecord{
			Content: draft.Content,
			Metadata: mergeMetadata(metadata, map[string]interface{}{
				"document_id": docID,
				"chunk_index": draft.Index,
			}),
			Embedding:  vec,
			CategoryID: categoryID,
		}
		if err := p.store.InsertChunk(ctx, rec); err != nil {
			return "", fmt.Errorf("store chunk %d: %w", draft.Index, err)
		}
		chunksIngested.Inc()
	}

	documentsIngested.Inc()
	p.logger.Printf("ingested document %s (%d chunks)", docID, len(drafts))
	return docID, nil
}

// mergeMetadata overlays chunk-local keys on the caller's metadata. Chunk-local
// keys win on conflict.
func mergeMetadata(caller, local map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(caller)+len(local))
	for k, v := range caller {
		merged[k] = v
	}
	for k, v := range local {
		merged[k] = v
	}
	return merged
}
