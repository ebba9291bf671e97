package memvec

import (
	"context"
	"math"
	"testing"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/platform/pinecone"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return NewStore(log)
}

func TestQueryMatchesRanksBySimilarity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, "ns", []pinecone.Vector{
		{ID: "aligned", Values: []float32{1, 0, 0}},
		{ID: "orthogonal", Values: []float32{0, 1, 0}},
		{ID: "close", Values: []float32{0.9, 0.1, 0}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := s.QueryMatches(ctx, "ns", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: got %d, want 2", len(matches))
	}
	if matches[0].ID != "aligned" || matches[1].ID != "close" {
		t.Fatalf("ranking wrong: %+v", matches)
	}
	if matches[0].Score < 0.999 {
		t.Fatalf("identical vector similarity: got %f", matches[0].Score)
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "ns", []pinecone.Vector{{ID: "v", Values: []float32{1, 0}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, "ns", []pinecone.Vector{{ID: "v", Values: []float32{0, 1}}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := s.Count("ns"); got != 1 {
		t.Fatalf("count after replace: got %d, want 1", got)
	}

	matches, err := s.QueryMatches(ctx, "ns", []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if matches[0].Score < 0.999 {
		t.Fatalf("replacement not applied, score %f", matches[0].Score)
	}
}

func TestDeleteAllClearsNamespace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "ns", []pinecone.Vector{{ID: "v", Values: []float32{1}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteAll(ctx, "ns"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	matches, err := s.QueryMatches(ctx, "ns", []float32{1}, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("namespace should be empty, got %+v", matches)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("zero vector similarity: got %f, want 0", got)
	}
	got := CosineSimilarity([]float32{1, 1}, []float32{1, 1})
	if math.Abs(got-1) > 1e-6 {
		t.Fatalf("identical vectors: got %f, want 1", got)
	}
	opposite := CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	if math.Abs(opposite+1) > 1e-6 {
		t.Fatalf("opposite vectors: got %f, want -1", opposite)
	}
}
