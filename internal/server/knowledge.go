package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DocumentIngester ingests one document with its metadata and returns the
// assigned document ID.
type DocumentIngester interface {
	AddDocument(ctx context.Context, content string, metadata map[string]interface{}) (string, error)
}

// ContextSearcher retrieves ranked context for a query.
type ContextSearcher interface {
	Search(ctx context.Context, query string, limit int) (string, error)
}

// KnowledgeHandler exposes document ingestion and context retrieval.
type KnowledgeHandler struct {
	Pipeline     DocumentIngester
	Retriever    ContextSearcher
	DefaultLimit int
	Timeout      time.Duration
	Logger       *log.Logger
}

func (h *KnowledgeHandler) Register(g *echo.Group) {
	g.POST("/documents", h.addDocument)
	g.POST("/search", h.search)
}

type addDocumentRequest struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (h *KnowledgeHandler) addDocument(c echo.Context) error {
	var req addDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	docID, err := h.Pipeline.AddDocument(ctx, req.Content, req.Metadata)
	if err != nil {
		h.Logger.Printf("ingest failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]interface{}{"success": false})
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"success": true, "document_id": docID})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// search always answers 200 with whatever context survived; a degraded
// retrieval surfaces as empty context, never as an error, so the
// conversational flow stays available.
func (h *KnowledgeHandler) search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	limit := req.Limit
	if limit == 0 {
		limit = h.DefaultLimit
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	result, err := h.Retriever.Search(ctx, req.Query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"context": result})
}

func (h *KnowledgeHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if h.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.Timeout)
}
