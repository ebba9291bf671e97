package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/platform/pinecone"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
)

const (
	// Articles whose normalized text is shorter than this are not indexed.
	minDocumentLength = 30
	// DefaultFallbackThreshold is the best-similarity floor under which a
	// retrieval is flagged low-confidence.
	DefaultFallbackThreshold = 0.20

	vectorNamespace = "articles"
	snippetLength   = 320
)

type Chunk struct {
	Title     string         `json:"title"`
	URL       string         `json:"url,omitempty"`
	Snippet   string         `json:"snippet"`
	ArticleID string         `json:"article_id"`
	Metadata  map[string]any `json:"metadata"`
}

type Result struct {
	Response     string  `json:"response"`
	PapersFound  int     `json:"papers_found"`
	UsedFallback bool    `json:"used_fallback"`
	BestSim      float64 `json:"best_sim"`
	Chunks       []Chunk `json:"chunks"`
}

type corpusDoc struct {
	text      string
	title     string
	url       string
	articleID string
	metadata  map[string]any
}

// Engine wires the embedder, vector store and generator strategies together.
// The corpus is loaded lazily on the first query and replaced wholesale on
// each load.
type Engine struct {
	log      *logger.Logger
	articles repos.ArticleRepo
	embedder Embedder
	store    pinecone.VectorStore
	gen      Generator

	mu     sync.Mutex
	loaded bool
	docs   map[string]corpusDoc
}

func NewEngine(log *logger.Logger, articles repos.ArticleRepo, embedder Embedder, store pinecone.VectorStore, gen Generator) *Engine {
	return &Engine{
		log:      log.With("service", "RAGEngine"),
		articles: articles,
		embedder: embedder,
		store:    store,
		gen:      gen,
		docs:     make(map[string]corpusDoc),
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func preprocess(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Load embeds the article corpus and replaces the vector store contents.
// It is a no-op when already loaded; limit <= 0 loads every article.
func (e *Engine) Load(ctx context.Context, limit int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadLocked(ctx, limit)
}

func (e *Engine) loadLocked(ctx context.Context, limit int) (int, error) {
	if e.loaded {
		return 0, nil
	}

	articles, err := e.articles.ListNewestFirst(ctx, nil, limit)
	if err != nil {
		return 0, fmt.Errorf("load articles: %w", err)
	}

	docs := make(map[string]corpusDoc)
	var ids []string
	var texts []string
	for i, a := range articles {
		text := preprocess(a.Title + "\n" + a.Content)
		if len(text) < minDocumentLength {
			continue
		}
		id := fmt.Sprintf("article_%d", i)
		docs[id] = corpusDoc{
			text:      text,
			title:     a.Title,
			url:       a.URL,
			articleID: a.ID.String(),
			metadata:  map[string]any(a.Metadata),
		}
		ids = append(ids, id)
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		return 0, fmt.Errorf("no articles with content found")
	}

	embeddings, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed corpus: %w", err)
	}
	if len(embeddings) != len(texts) {
		return 0, fmt.Errorf("corpus embedding count mismatch: want %d got %d", len(texts), len(embeddings))
	}

	if err := e.store.DeleteAll(ctx, vectorNamespace); err != nil {
		e.log.Warn("Clearing vector store failed, continuing with upsert", "error", err)
	}

	vectors := make([]pinecone.Vector, len(ids))
	for i, id := range ids {
		vectors[i] = pinecone.Vector{
			ID:     id,
			Values: embeddings[i],
			Metadata: map[string]any{
				"title":      docs[id].title,
				"article_id": docs[id].articleID,
			},
		}
	}
	if err := e.store.Upsert(ctx, vectorNamespace, vectors); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}

	e.docs = docs
	e.loaded = true
	e.log.Info("Corpus loaded into vector store", "documents", len(ids))
	return len(ids), nil
}

// Reload forces a fresh load on the next call.
func (e *Engine) Reload() {
	e.mu.Lock()
	e.loaded = false
	e.mu.Unlock()
}

// Query answers a question from the corpus. fallbackThreshold <= 0 uses
// DefaultFallbackThreshold.
func (e *Engine) Query(ctx context.Context, question string, topK int, fallbackThreshold float64) (*Result, error) {
	if topK <= 0 {
		topK = 5
	}
	if fallbackThreshold <= 0 {
		fallbackThreshold = DefaultFallbackThreshold
	}

	e.mu.Lock()
	if !e.loaded {
		if _, err := e.loadLocked(ctx, 0); err != nil {
			e.mu.Unlock()
			return nil, err
		}
	}
	e.mu.Unlock()

	qVec, err := e.embedder.EmbedQuery(ctx, preprocess(question))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := e.store.QueryMatches(ctx, vectorNamespace, qVec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	if len(matches) == 0 {
		return &Result{
			Response:     "No results found. Try different keywords.",
			PapersFound:  0,
			UsedFallback: true,
			BestSim:      0,
			Chunks:       []Chunk{},
		}, nil
	}

	bestSim := 0.0
	chunks := make([]Chunk, 0, len(matches))
	e.mu.Lock()
	for _, m := range matches {
		if m.Score > bestSim {
			bestSim = m.Score
		}
		doc, ok := e.docs[m.ID]
		if !ok {
			continue
		}
		snippet := doc.text
		if len(snippet) > snippetLength {
			cut := snippetLength
			for cut > 0 && !utf8.RuneStart(snippet[cut]) {
				cut--
			}
			snippet = snippet[:cut]
		}
		chunks = append(chunks, Chunk{
			Title:     doc.title,
			URL:       doc.url,
			Snippet:   snippet + "...",
			ArticleID: doc.articleID,
			Metadata:  doc.metadata,
		})
	}
	e.mu.Unlock()

	response, err := e.gen.Generate(ctx, question, chunks)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Result{
		Response:     response,
		PapersFound:  len(chunks),
		UsedFallback: bestSim < fallbackThreshold,
		BestSim:      bestSim,
		Chunks:       chunks,
	}, nil
}
