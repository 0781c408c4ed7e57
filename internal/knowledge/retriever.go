package knowledge

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sangguni-ai/sangguni/config"
	"github.com/sangguni-ai/sangguni/internal/embedding"
	"github.com/sangguni-ai/sangguni/internal/store"
)

// MatchType tags which strategy produced a hit.
type MatchType string

const (
	MatchSemantic  MatchType = "semantic"
	MatchKeyword   MatchType = "keyword"
	MatchVariation MatchType = "variation"
)

// SearchHit is an ephemeral per-query result. Multiple hits may carry the same
// chunk content, which is why the merge dedupes by content.
type SearchHit struct {
	ID         string
	Content    string
	Metadata   map[string]interface{}
	Similarity float64
	MatchType  MatchType
}

// ChunkSearcher is the slice of the store the retriever needs.
type ChunkSearcher interface {
	SearchChunkEmbeddings(ctx context.Context, vector []float32, threshold float64, limit int) ([]store.ChunkSearchResult, error)
	SearchChunkContent(ctx context.Context, terms []string, limit int) ([]store.ChunkSearchResult, error)
}

// Retriever fans a query out across the semantic, keyword and variation
// strategies and merges the results into ranked context.
type Retriever struct {
	store    ChunkSearcher
	embedder embedding.Embedder
	cfg      config.RetrievalConfig
	logger   *log.Logger
}

// NewRetriever builds a retriever.
func NewRetriever(st ChunkSearcher, embedder embedding.Embedder, cfg config.RetrievalConfig, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)
	}
	return &Retriever{store: st, embedder: embedder, cfg: cfg, logger: logger}
}

// Search returns up to limit relevant chunk contents joined by blank lines, in
// rank order, or the empty string when nothing relevant is found. A failing
// strategy degrades to zero hits and never aborts the other two; the only
// error Search itself returns is an invalid limit.
func (r *Retriever) Search(ctx context.Context, query string, limit int) (string, error) {
	if limit < 1 {
		return "", fmt.Errorf("limit must be >= 1, got %d", limit)
	}
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	start := time.Now()
	defer func() { retrievalDuration.Observe(time.Since(start).Seconds()) }()

	var semantic, keyword, variation []SearchHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		semantic = r.searchSemantic(gctx, query, limit)
		return nil
	})
	g.Go(func() error {
		keyword = r.searchKeyword(gctx, query, limit)
		return nil
	})
	g.Go(func() error {
		variation = r.searchVariations(gctx, query)
		return nil
	})
	_ = g.Wait()

	ranked := mergeHits(limit, semantic, keyword, variation)
	if len(ranked) == 0 {
		return "", nil
	}
	contents := make([]string, len(ranked))
	for i, hit := range ranked {
		contents[i] = hit.Content
	}
	return strings.Join(contents, "\n\n"), nil
}

func (r *Retriever) searchSemantic(ctx context.Context, query string, limit int) []SearchHit {
	vec, err := r.embedder.Embed(ctx, query, embedding.ModeQuery)
	if err != nil {
		r.logger.Printf("warn: semantic strategy degraded, embed query: %v", err)
		strategyErrors.WithLabelValues(string(MatchSemantic)).Inc()
		return nil
	}
	results, err := r.store.SearchChunkEmbeddings(ctx, vec, r.cfg.SemanticThreshold, limit)
	if err != nil {
		r.logger.Printf("warn: semantic strategy degraded, store search: %v", err)
		strategyErrors.WithLabelValues(string(MatchSemantic)).Inc()
		return nil
	}
	hits := toHits(results, MatchSemantic)
	strategyHits.WithLabelValues(string(MatchSemantic)).Add(float64(len(hits)))
	return hits
}

func (r *Retriever) searchKeyword(ctx context.Context, query string, limit int) []SearchHit {
	terms := ExtractKeyTerms(query)
	if len(terms) == 0 {
		return nil
	}
	results, err := r.store.SearchChunkContent(ctx, terms, limit)
	if err != nil {
		r.logger.Printf("warn: keyword strategy degraded, store search: %v", err)
		strategyErrors.WithLabelValues(string(MatchKeyword)).Inc()
		return nil
	}
	hits := toHits(results, MatchKeyword)
	for i := range hits {
		// Lexical hits have no native similarity metric; the fixed score ranks
		// them above only the weakest semantic matches.
		hits[i].Similarity = r.cfg.KeywordSimilarity
	}
	strategyHits.WithLabelValues(string(MatchKeyword)).Add(float64(len(hits)))
	return hits
}

func (r *Retriever) searchVariations(ctx context.Context, query string) []SearchHit {
	variations := ExpandQuery(query)
	if len(variations) > r.cfg.MaxVariations {
		variations = variations[:r.cfg.MaxVariations]
	}
	var hits []SearchHit
	for _, v := range variations {
		vec, err := r.embedder.Embed(ctx, v, embedding.ModeQuery)
		if err != nil {
			r.logger.Printf("warn: variation %q degraded, embed: %v", v, err)
			strategyErrors.WithLabelValues(string(MatchVariation)).Inc()
			continue
		}
		results, err := r.store.SearchChunkEmbeddings(ctx, vec, r.cfg.SemanticThreshold, r.cfg.VariationTopK)
		if err != nil {
			r.logger.Printf("warn: variation %q degraded, store search: %v", v, err)
			strategyErrors.WithLabelValues(string(MatchVariation)).Inc()
			continue
		}
		hits = append(hits, toHits(results, MatchVariation)...)
	}
	strategyHits.WithLabelValues(string(MatchVariation)).Add(float64(len(hits)))
	return hits
}

func toHits(results []store.ChunkSearchResult, matchType MatchType) []SearchHit {
	hits := make([]SearchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, SearchHit{
			ID:         res.ID,
			Content:    res.Content,
			Metadata:   res.Metadata,
			Similarity: res.Similarity,
			MatchType:  matchType,
		})
	}
	return hits
}

// mergeHits dedupes by content, keeping for each content string the hit with
// the strictly higher similarity (ties keep the first encountered), then ranks
// by similarity descending and caps at limit. Groups are merged in the fixed
// order they are passed, which keeps the result deterministic regardless of
// how the strategies were scheduled.
func mergeHits(limit int, groups ...[]SearchHit) []SearchHit {
	index := make(map[string]int)
	var merged []SearchHit
	for _, group := range groups {
		for _, hit := range group {
			at, seen := index[hit.Content]
			if !seen {
				index[hit.Content] = len(merged)
				merged = append(merged, hit)
				continue
			}
			if hit.Similarity > merged[at].Similarity {
				merged[at] = hit
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
