// Package server exposes the retrieval engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/sangguni-ai/sangguni/config"
	"github.com/sangguni-ai/sangguni/internal/embedding"
	"github.com/sangguni-ai/sangguni/internal/knowledge"
	"github.com/sangguni-ai/sangguni/internal/store"
)

// Run wires the store, the embedder and the engine together and serves the
// API until the listener stops.
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	var embedder embedding.Embedder = embedding.NewClient(cfg.Embedding)
	if cfg.Storage.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:        fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password:    cfg.Storage.Redis.Password,
			DB:          cfg.Storage.Redis.DB,
			DialTimeout: cfg.Storage.Redis.Timeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		embedder = embedding.NewCache(embedder, rdb, cfg.Storage.Redis.TTL, nil)
	}

	chunker := knowledge.NewChunker(cfg.Chunking)
	pipeline := knowledge.NewPipeline(chunker, embedder, st, nil)
	retriever := knowledge.NewRetriever(st, embedder, cfg.Retrieval, nil)

	kh := &KnowledgeHandler{
		Pipeline:     pipeline,
		Retriever:    retriever,
		DefaultLimit: cfg.Retrieval.DefaultLimit,
		Timeout:      cfg.General.DefaultTimeout,
		Logger:       log.New(log.Writer(), "[KNOWLEDGE] ", log.LstdFlags),
	}
	kh.Register(e.Group("/api/knowledge"))

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":10030"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
