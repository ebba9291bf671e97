package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/platform/openai"
	"github.com/sharkteam/plantcloud-backend/internal/textindex"
)

// Embedder turns texts into vectors. The corpus and every query must go
// through the same embedder instance: the TF-IDF fallback is fit once on the
// corpus and queries are projected with that same fit.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ---------------- Neural embedder ----------------

type modelEmbedder struct {
	ai openai.Client
}

func NewModelEmbedder(ai openai.Client) Embedder {
	return &modelEmbedder{ai: ai}
}

func (m *modelEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return m.ai.Embed(ctx, texts)
}

func (m *modelEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return vecs[0], nil
}

// ---------------- TF-IDF fallback ----------------

const tfidfMaxFeatures = 2000

// TFIDFEmbedder is the frequency-vector fallback used when no embedding API
// is configured. Vocabulary and document frequencies are fixed by the first
// EmbedDocuments call; queries reuse that fit.
type TFIDFEmbedder struct {
	log *logger.Logger

	mu     sync.RWMutex
	fitted bool
	vocab  map[string]int
	idf    []float64
}

func NewTFIDFEmbedder(log *logger.Logger) *TFIDFEmbedder {
	return &TFIDFEmbedder{log: log.With("service", "TFIDFEmbedder")}
}

func (t *TFIDFEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	t.mu.Lock()
	if !t.fitted {
		t.fit(texts)
	}
	t.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = t.transform(text)
	}
	return out, nil
}

func (t *TFIDFEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	t.mu.RLock()
	fitted := t.fitted
	t.mu.RUnlock()
	if !fitted {
		return nil, fmt.Errorf("tfidf embedder is not fitted; load the corpus first")
	}
	return t.transform(text), nil
}

// fit builds the vocabulary (capped at tfidfMaxFeatures, highest document
// frequency first) and smoothed idf weights. Caller holds the lock.
func (t *TFIDFEmbedder) fit(texts []string) {
	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]bool)
		for _, term := range textindex.Terms(text, false) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > tfidfMaxFeatures {
		terms = terms[:tfidfMaxFeatures]
	}

	n := float64(len(texts))
	t.vocab = make(map[string]int, len(terms))
	t.idf = make([]float64, len(terms))
	for i, term := range terms {
		t.vocab[term] = i
		t.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	t.fitted = true
	if t.log != nil {
		t.log.Debug("TF-IDF fit complete", "documents", len(texts), "vocabulary", len(terms))
	}
}

func (t *TFIDFEmbedder) transform(text string) []float32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	vec := make([]float64, len(t.idf))
	for _, term := range textindex.Terms(text, false) {
		if idx, ok := t.vocab[term]; ok {
			vec[idx]++
		}
	}
	var norm float64
	for i := range vec {
		vec[i] *= t.idf[i]
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i := range vec {
		out[i] = float32(vec[i] / norm)
	}
	return out
}
