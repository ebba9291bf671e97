package rag

import (
	"os"
	"strings"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/platform/memvec"
	"github.com/sharkteam/plantcloud-backend/internal/platform/openai"
	"github.com/sharkteam/plantcloud-backend/internal/platform/pinecone"
)

const (
	VectorProviderPinecone = "pinecone"
	VectorProviderMemory   = "memory"
)

// ResolveVectorStore selects the vector-store strategy at startup.
// VECTOR_PROVIDER forces a provider; otherwise Pinecone is used when its API
// key is present and the in-process store when it is not. Pinecone bootstrap
// failures degrade to the in-process store rather than aborting startup.
func ResolveVectorStore(log *logger.Logger) (pinecone.VectorStore, string) {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("VECTOR_PROVIDER")))
	apiKey := strings.TrimSpace(os.Getenv("PINECONE_API_KEY"))
	if provider == "" {
		if apiKey != "" {
			provider = VectorProviderPinecone
		} else {
			provider = VectorProviderMemory
		}
	}

	switch provider {
	case VectorProviderPinecone:
		log.Info("Selecting vector store provider", "provider", provider)
		if apiKey == "" {
			log.Warn("PINECONE_API_KEY not set; falling back to in-process vector store")
			return memvec.NewStore(log), VectorProviderMemory
		}
		pc, err := pinecone.New(log, pinecone.Config{
			APIKey:     apiKey,
			APIVersion: strings.TrimSpace(os.Getenv("PINECONE_API_VERSION")),
			BaseURL:    strings.TrimSpace(os.Getenv("PINECONE_BASE_URL")),
		})
		if err != nil {
			log.Error("Pinecone client bootstrap failed; falling back to in-process vector store", "error", err)
			return memvec.NewStore(log), VectorProviderMemory
		}
		vs, err := pinecone.NewVectorStore(log, pc)
		if err != nil {
			log.Error("Pinecone vector store bootstrap failed; falling back to in-process vector store", "error", err)
			return memvec.NewStore(log), VectorProviderMemory
		}
		return vs, VectorProviderPinecone

	default:
		log.Info("Selecting vector store provider", "provider", VectorProviderMemory)
		return memvec.NewStore(log), VectorProviderMemory
	}
}

// ResolveEmbedder picks the neural embedder when a model client is available
// and the corpus-fitted TF-IDF fallback when it is not.
func ResolveEmbedder(log *logger.Logger, ai openai.Client) (Embedder, string) {
	if ai != nil {
		log.Info("Selecting embedder", "embedder", "model")
		return NewModelEmbedder(ai), "model"
	}
	log.Info("Selecting embedder", "embedder", "tfidf")
	return NewTFIDFEmbedder(log), "tfidf"
}

// ResolveGenerator picks model-backed answer synthesis when available and the
// deterministic template when it is not.
func ResolveGenerator(log *logger.Logger, ai openai.Client) (Generator, string) {
	if ai != nil {
		log.Info("Selecting answer generator", "generator", "model")
		return NewModelGenerator(log, ai), "model"
	}
	log.Info("Selecting answer generator", "generator", "template")
	return NewTemplateGenerator(), "template"
}
