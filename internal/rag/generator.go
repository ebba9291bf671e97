package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/platform/openai"
)

// Generator assembles the final answer text from the retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []Chunk) (string, error)
}

// ---------------- Template fallback ----------------

type templateGenerator struct{}

func NewTemplateGenerator() Generator {
	return &templateGenerator{}
}

func (g *templateGenerator) Generate(_ context.Context, question string, chunks []Chunk) (string, error) {
	if len(chunks) == 0 {
		return "No results found. Try different keywords.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the retrieved articles, here are key points related to **%s**:\n\n", question)
	count := 0
	for _, c := range chunks {
		if count >= 3 {
			break
		}
		snippet := strings.TrimSpace(strings.ReplaceAll(c.Snippet, "\n", " "))
		if snippet == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s...\n", snippet)
		count++
	}
	return strings.TrimSpace(b.String()), nil
}

// ---------------- Model-backed generator ----------------

type modelGenerator struct {
	log      *logger.Logger
	ai       openai.Client
	fallback Generator
}

// NewModelGenerator delegates answer synthesis to the generative-model API
// and falls back to the deterministic template when the call fails.
func NewModelGenerator(log *logger.Logger, ai openai.Client) Generator {
	return &modelGenerator{
		log:      log.With("service", "RAGGenerator"),
		ai:       ai,
		fallback: NewTemplateGenerator(),
	}
}

func (g *modelGenerator) Generate(ctx context.Context, question string, chunks []Chunk) (string, error) {
	if len(chunks) == 0 {
		return g.fallback.Generate(ctx, question, chunks)
	}

	var contextParts []string
	for _, c := range chunks {
		snippet := c.Snippet
		if len(snippet) > 600 {
			snippet = snippet[:600]
		}
		contextParts = append(contextParts, fmt.Sprintf("Title: %s\nContent: %s...", c.Title, snippet))
	}
	prompt := fmt.Sprintf(`Answer the question using ONLY the provided sources.

Question: %s

Sources:
%s

Return a short helpful answer and mention the most relevant sources.`, question, strings.Join(contextParts, "\n\n"))

	answer, err := g.ai.GenerateText(ctx, "You are a helpful plant-care assistant.", prompt)
	if err != nil {
		g.log.Warn("Answer generation failed, using template fallback", "error", err)
		return g.fallback.Generate(ctx, question, chunks)
	}
	if strings.TrimSpace(answer) == "" {
		return g.fallback.Generate(ctx, question, chunks)
	}
	return answer, nil
}
