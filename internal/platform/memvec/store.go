// Package memvec is the in-process fallback vector store: a linear scan over
// cosine similarity, used when no hosted vector index is configured.
package memvec

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/platform/pinecone"
)

type Store struct {
	mu      sync.RWMutex
	log     *logger.Logger
	vectors map[string][]pinecone.Vector // namespace -> vectors
}

func NewStore(log *logger.Logger) *Store {
	return &Store{
		log:     log.With("service", "MemVectorStore"),
		vectors: make(map[string][]pinecone.Vector),
	}
}

var _ pinecone.VectorStore = (*Store)(nil)

func (s *Store) Upsert(_ context.Context, namespace string, vectors []pinecone.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.vectors[namespace]
	for _, v := range vectors {
		replaced := false
		for i := range existing {
			if existing[i].ID == v.ID {
				existing[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, v)
		}
	}
	s.vectors[namespace] = existing
	return nil
}

func (s *Store) QueryMatches(_ context.Context, namespace string, q []float32, topK int) ([]pinecone.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vectors := s.vectors[namespace]
	if len(vectors) == 0 || topK <= 0 {
		return nil, nil
	}

	matches := make([]pinecone.VectorMatch, 0, len(vectors))
	for _, v := range vectors {
		matches = append(matches, pinecone.VectorMatch{
			ID:    v.ID,
			Score: CosineSimilarity(q, v.Values),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Store) DeleteAll(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, namespace)
	return nil
}

func (s *Store) Count(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors[namespace])
}

// CosineSimilarity uses a small epsilon in the norms so zero vectors score
// zero instead of dividing by zero.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	const eps = 1e-12
	return dot / ((math.Sqrt(na) + eps) * (math.Sqrt(nb) + eps))
}
