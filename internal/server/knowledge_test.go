package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type stubIngester struct {
	content  string
	metadata map[string]interface{}
	docID    string
	err      error
}

func (s *stubIngester) AddDocument(ctx context.Context, content string, metadata map[string]interface{}) (string, error) {
	s.content = content
	s.metadata = metadata
	return s.docID, s.err
}

type stubSearcher struct {
	query  string
	limit  int
	result string
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) (string, error) {
	s.query = query
	s.limit = limit
	return s.result, s.err
}

func newTestHandler(ing *stubIngester, sr *stubSearcher) (*echo.Echo, *KnowledgeHandler) {
	e := echo.New()
	h := &KnowledgeHandler{
		Pipeline:     ing,
		Retriever:    sr,
		DefaultLimit: 5,
		Logger:       log.New(io.Discard, "", 0),
	}
	h.Register(e.Group("/api/knowledge"))
	return e, h
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAddDocumentOK(t *testing.T) {
	ing := &stubIngester{docID: "doc-123"}
	e, _ := newTestHandler(ing, &stubSearcher{})

	rec := doJSON(e, http.MethodPost, "/api/knowledge/documents",
		`{"content":"We accept GCash.","metadata":{"category_id":"payment"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["success"] != true {
		t.Fatalf("unexpected response: %v", resp)
	}
	if resp["document_id"] != "doc-123" {
		t.Fatalf("document_id not returned: %v", resp)
	}
	if ing.content != "We accept GCash." {
		t.Fatalf("content not forwarded: %q", ing.content)
	}
	if ing.metadata["category_id"] != "payment" {
		t.Fatalf("metadata not forwarded: %v", ing.metadata)
	}
}

func TestAddDocumentValidation(t *testing.T) {
	e, _ := newTestHandler(&stubIngester{}, &stubSearcher{})

	rec := doJSON(e, http.MethodPost, "/api/knowledge/documents", `{"content":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty content: status %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/api/knowledge/documents", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", rec.Code)
	}
}

func TestAddDocumentIngestFailure(t *testing.T) {
	ing := &stubIngester{err: errors.New("embedding service down")}
	e, _ := newTestHandler(ing, &stubSearcher{})

	rec := doJSON(e, http.MethodPost, "/api/knowledge/documents", `{"content":"some document"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["success"] != false {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestSearchOK(t *testing.T) {
	sr := &stubSearcher{result: "Our shipping fee is 50 pesos.\n\nWe ship nationwide."}
	e, _ := newTestHandler(&stubIngester{}, sr)

	rec := doJSON(e, http.MethodPost, "/api/knowledge/search", `{"query":"magkano ang shipping?","limit":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["context"] != sr.result {
		t.Fatalf("unexpected context: %q", resp["context"])
	}
	if sr.query != "magkano ang shipping?" || sr.limit != 2 {
		t.Fatalf("query/limit not forwarded: %q/%d", sr.query, sr.limit)
	}
}

func TestSearchDefaultsLimit(t *testing.T) {
	sr := &stubSearcher{}
	e, _ := newTestHandler(&stubIngester{}, sr)

	rec := doJSON(e, http.MethodPost, "/api/knowledge/search", `{"query":"meron ba kayong stock?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if sr.limit != 5 {
		t.Fatalf("expected default limit 5, got %d", sr.limit)
	}
}

func TestSearchEmptyContextStillOK(t *testing.T) {
	sr := &stubSearcher{result: ""}
	e, _ := newTestHandler(&stubIngester{}, sr)

	rec := doJSON(e, http.MethodPost, "/api/knowledge/search", `{"query":"unrelated question"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["context"] != "" {
		t.Fatalf("expected empty context, got %q", resp["context"])
	}
}

func TestSearchValidation(t *testing.T) {
	e, _ := newTestHandler(&stubIngester{}, &stubSearcher{})

	rec := doJSON(e, http.MethodPost, "/api/knowledge/search", `{"query":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty query: status %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/api/knowledge/search", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", rec.Code)
	}
}

func TestSearchRetrieverError(t *testing.T) {
	sr := &stubSearcher{err: errors.New("limit must be >= 1, got -2")}
	e, _ := newTestHandler(&stubIngester{}, sr)

	rec := doJSON(e, http.MethodPost, "/api/knowledge/search", `{"query":"any","limit":-2}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}
