package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sharkteam/plantcloud-backend/internal/platform/memvec"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

func newEngineFixture(t *testing.T) (*Engine, repos.ArticleRepo) {
	t.Helper()
	log := testLogger(t)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Article{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	articleRepo := repos.NewArticleRepo(db, log)
	engine := NewEngine(log, articleRepo, NewTFIDFEmbedder(log), memvec.NewStore(log), NewTemplateGenerator())
	return engine, articleRepo
}

func seedArticle(t *testing.T, articleRepo repos.ArticleRepo, title, content string) {
	t.Helper()
	err := articleRepo.Create(context.Background(), nil, &types.Article{
		ID:      uuid.New(),
		Title:   title,
		Content: content,
	})
	if err != nil {
		t.Fatalf("seed article: %v", err)
	}
}

func TestEngineQueryRetrievesRelevantArticle(t *testing.T) {
	engine, articleRepo := newEngineFixture(t)
	ctx := context.Background()

	seedArticle(t, articleRepo, "Basil watering guide",
		"Basil grows best with consistent watering and needs moist soil throughout the warm summer months.")
	seedArticle(t, articleRepo, "Cactus light requirements",
		"Cacti demand bright direct light and tolerate long dry periods between sparse waterings easily.")

	result, err := engine.Query(ctx, "how should I water basil", 2, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if result.PapersFound == 0 {
		t.Fatalf("no papers found")
	}
	if result.Chunks[0].Title != "Basil watering guide" {
		t.Fatalf("top chunk wrong: %q", result.Chunks[0].Title)
	}
	if !strings.Contains(result.Response, "water basil") {
		t.Fatalf("template response missing the question: %q", result.Response)
	}
	if result.BestSim <= 0 {
		t.Fatalf("best similarity not reported: %f", result.BestSim)
	}
}

func TestEngineShortDocumentsAreSkipped(t *testing.T) {
	engine, articleRepo := newEngineFixture(t)
	ctx := context.Background()

	seedArticle(t, articleRepo, "Stub", "too short")
	seedArticle(t, articleRepo, "Long enough",
		"A reasonably long article about fertilizing schedules for leafy houseplants in winter dormancy.")

	loaded, err := engine.Load(ctx, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != 1 {
		t.Fatalf("loaded docs: got %d, want 1", loaded)
	}
}

func TestEngineLowSimilarityFlagsFallback(t *testing.T) {
	engine, articleRepo := newEngineFixture(t)
	ctx := context.Background()

	seedArticle(t, articleRepo, "Soil composition",
		"Clay soils retain excessive moisture while sandy mixes drain quickly and hold few nutrients.")

	result, err := engine.Query(ctx, "quantum flux harmonics", 3, 0.2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !result.UsedFallback {
		t.Fatalf("an unrelated query should be flagged low-confidence (best_sim=%f)", result.BestSim)
	}
}

func TestEngineReloadPicksUpNewArticles(t *testing.T) {
	engine, articleRepo := newEngineFixture(t)
	ctx := context.Background()

	seedArticle(t, articleRepo, "Original",
		"The original article body mentions pothos propagation in water-filled jars on windowsills.")
	if _, err := engine.Load(ctx, 0); err != nil {
		t.Fatalf("load: %v", err)
	}

	seedArticle(t, articleRepo, "Addendum",
		"The addendum article body covers repotting rootbound ferns into larger terracotta containers.")
	if n, err := engine.Load(ctx, 0); err != nil || n != 0 {
		t.Fatalf("second load should be a no-op, got n=%d err=%v", n, err)
	}

	engine.Reload()
	n, err := engine.Load(ctx, 0)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n != 2 {
		t.Fatalf("after reload: got %d docs, want 2", n)
	}
}

func TestEngineChunkSnippetsAreValidUTF8(t *testing.T) {
	engine, articleRepo := newEngineFixture(t)
	ctx := context.Background()

	// Pad so a two-byte rune sits across the snippet cut. The indexed text is
	// title + " " + content with whitespace collapsed.
	title := "Fiddle leaf fig light"
	prefix := "fiddle leaf figs need bright light "
	pad := snippetLength - 1 - len(title) - 1 - len(prefix)
	content := prefix + strings.Repeat("x", pad) + "é"
	seedArticle(t, articleRepo, title, content)

	result, err := engine.Query(ctx, "fiddle leaf fig light", 1, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(result.Chunks))
	}
	if !utf8.ValidString(result.Chunks[0].Snippet) {
		t.Fatalf("chunk snippet is not valid UTF-8")
	}
}

func TestEngineEmptyCorpus(t *testing.T) {
	engine, _ := newEngineFixture(t)
	if _, err := engine.Query(context.Background(), "anything", 3, 0); err == nil {
		t.Fatalf("empty corpus should error on load")
	}
}
