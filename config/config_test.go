package config

import "testing"

func TestPostgresDSNPrefersURL(t *testing.T) {
	p := PostgresConfig{URL: "postgres://app:secret@db:5432/sangguni?sslmode=require", Host: "ignored"}
	dsn, err := p.DSN()
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	if dsn != p.URL {
		t.Fatalf("expected explicit URL, got %q", dsn)
	}
}

func TestPostgresDSNFromParts(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "app", Password: "secret", DBName: "sangguni"}
	dsn, err := p.DSN()
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	want := "postgres://app:secret@db:5432/sangguni?sslmode=disable"
	if dsn != want {
		t.Fatalf("got %q want %q", dsn, want)
	}
}

func TestPostgresDSNUnconfigured(t *testing.T) {
	if _, err := (PostgresConfig{}).DSN(); err == nil {
		t.Fatal("expected error for unconfigured postgres")
	}
}

func TestRetrievalValidate(t *testing.T) {
	good := RetrievalConfig{SemanticThreshold: 0.3, KeywordSimilarity: 0.5, MaxVariations: 2, VariationTopK: 3, DefaultLimit: 5}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := good
	bad.SemanticThreshold = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatal("out-of-range threshold accepted")
	}
	bad = good
	bad.DefaultLimit = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero default_limit accepted")
	}
}

func TestChunkingValidate(t *testing.T) {
	if err := (ChunkingConfig{Size: 1000, Overlap: 200}).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := (ChunkingConfig{Size: 100, Overlap: 100}).Validate(); err == nil {
		t.Fatal("overlap >= size accepted")
	}
	if err := (ChunkingConfig{Size: 0, Overlap: 0}).Validate(); err == nil {
		t.Fatal("zero size accepted")
	}
}

func TestRedisValidate(t *testing.T) {
	if err := (RedisConfig{Enabled: true}).Validate(); err == nil {
		t.Fatal("enabled cache without address accepted")
	}
	if err := (RedisConfig{Enabled: false}).Validate(); err != nil {
		t.Fatalf("disabled cache must not require address: %v", err)
	}
}

func TestEmbeddingValidate(t *testing.T) {
	if err := (EmbeddingConfig{Model: "nvidia/nv-embedqa-e5-v5", Dimensions: 1024}).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := (EmbeddingConfig{Dimensions: 1024}).Validate(); err == nil {
		t.Fatal("missing model accepted")
	}
	if err := (EmbeddingConfig{Model: "m"}).Validate(); err == nil {
		t.Fatal("zero dimensions accepted")
	}
}
