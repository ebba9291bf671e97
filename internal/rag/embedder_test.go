package rag

import (
	"context"
	"testing"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/platform/memvec"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestTFIDFQueryBeforeFitFails(t *testing.T) {
	e := NewTFIDFEmbedder(testLogger(t))
	if _, err := e.EmbedQuery(context.Background(), "anything"); err == nil {
		t.Fatalf("query before fit must fail")
	}
}

func TestTFIDFFitOnce(t *testing.T) {
	e := NewTFIDFEmbedder(testLogger(t))
	ctx := context.Background()

	corpus := []string{
		"basil needs warm weather and regular watering",
		"cactus prefers dry soil and rare watering",
	}
	first, err := e.EmbedDocuments(ctx, corpus)
	if err != nil {
		t.Fatalf("embed corpus: %v", err)
	}
	dim := len(first[0])
	if dim == 0 {
		t.Fatalf("empty vocabulary after fit")
	}

	// A second call with new text must reuse the original fit, not refit.
	second, err := e.EmbedDocuments(ctx, []string{"orchids love humidity"})
	if err != nil {
		t.Fatalf("embed more: %v", err)
	}
	if len(second[0]) != dim {
		t.Fatalf("dimensionality changed after refit: %d != %d", len(second[0]), dim)
	}

	q, err := e.EmbedQuery(ctx, "watering basil")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}
	if len(q) != dim {
		t.Fatalf("query dimensionality: %d != %d", len(q), dim)
	}
}

func TestTFIDFSimilarityPrefersMatchingDocument(t *testing.T) {
	e := NewTFIDFEmbedder(testLogger(t))
	ctx := context.Background()

	corpus := []string{
		"basil needs warm weather and frequent watering in summer",
		"cactus thrives with sandy soil and scarce rainfall",
	}
	vecs, err := e.EmbedDocuments(ctx, corpus)
	if err != nil {
		t.Fatalf("embed corpus: %v", err)
	}
	q, err := e.EmbedQuery(ctx, "how often should I be watering basil")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}

	simBasil := memvec.CosineSimilarity(q, vecs[0])
	simCactus := memvec.CosineSimilarity(q, vecs[1])
	if simBasil <= simCactus {
		t.Fatalf("query about basil should match the basil doc: %f <= %f", simBasil, simCactus)
	}
}

func TestTFIDFVectorsAreNormalized(t *testing.T) {
	e := NewTFIDFEmbedder(testLogger(t))
	vecs, err := e.EmbedDocuments(context.Background(), []string{"soil moisture sensors report hourly values"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	if norm < 0.999 || norm > 1.001 {
		t.Fatalf("vector not l2-normalized: squared norm %f", norm)
	}
}
