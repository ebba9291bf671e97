package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/textindex"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

const searchSnippetLength = 320

// SearchResult is one ranked hit from the lexical index.
type SearchResult struct {
	ArticleID uuid.UUID              `json:"article_id"`
	Title     string                 `json:"title"`
	URL       string                 `json:"url,omitempty"`
	Score     int                    `json:"score"`
	Snippet   string                 `json:"snippet"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type KnowledgeService interface {
	// AddArticle stores an article unless one with the exact same title
	// already exists. Dedup is by exact title only; the returned bool reports
	// whether a new article was created.
	AddArticle(ctx context.Context, title, content, url string, metadata map[string]interface{}) (*types.Article, bool, error)
	GetArticle(ctx context.Context, id uuid.UUID) (*types.Article, error)
	ListArticles(ctx context.Context, limit int) ([]*types.Article, error)
	// SeedFromDir loads every .txt file in dir as an article, deriving the
	// title from the file name. Per-file failures are logged and skipped.
	SeedFromDir(ctx context.Context, dir string) (int, error)
	// BuildIndex rebuilds the inverted index from all articles. Without force
	// a non-empty index is left untouched. Returns the number of terms.
	BuildIndex(ctx context.Context, force bool) (int, error)
	// Search ranks articles by summed term frequency over the query terms.
	Search(ctx context.Context, query string, limit int) ([]*SearchResult, error)
}

type knowledgeService struct {
	db          *gorm.DB
	log         *logger.Logger
	articleRepo repos.ArticleRepo
	indexRepo   repos.IndexEntryRepo
}

func NewKnowledgeService(
	db *gorm.DB,
	log *logger.Logger,
	articleRepo repos.ArticleRepo,
	indexRepo repos.IndexEntryRepo,
) KnowledgeService {
	return &knowledgeService{
		db:          db,
		log:         log.With("service", "KnowledgeService"),
		articleRepo: articleRepo,
		indexRepo:   indexRepo,
	}
}

var (
	doiRe     = regexp.MustCompile(`\b10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`)
	yearRe    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	etAlRe    = regexp.MustCompile(`\b([A-Z][a-zA-Z-]+(?:\s+(?:and|&)\s+[A-Z][a-zA-Z-]+)?)\s+et al\.?`)
	labelLine = regexp.MustCompile(`(?im)^(journal|authors?)\s*:\s*(.+)$`)
)

// extractMetadata pulls bibliographic hints out of the title and the first
// part of the body. Everything here is best effort.
func extractMetadata(title, content string) map[string]interface{} {
	meta := map[string]interface{}{}
	head := content
	if len(head) > 2000 {
		head = head[:2000]
	}
	if doi := doiRe.FindString(head); doi != "" {
		meta["doi"] = strings.TrimRight(doi, ".,;")
	}
	if year := yearRe.FindString(title + " " + head); year != "" {
		meta["year"] = year
	}
	for _, m := range labelLine.FindAllStringSubmatch(head, -1) {
		label := strings.ToLower(m[1])
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}
		switch {
		case label == "journal":
			meta["journal"] = value
		case strings.HasPrefix(label, "author"):
			meta["authors"] = value
		}
	}
	if _, ok := meta["authors"]; !ok {
		if m := etAlRe.FindStringSubmatch(title); m != nil {
			meta["authors"] = m[1] + " et al."
		}
	}
	return meta
}

func (ks *knowledgeService) AddArticle(ctx context.Context, title, content, url string, metadata map[string]interface{}) (*types.Article, bool, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(content) == "" {
		return nil, false, fmt.Errorf("%w: title and content are required", pkgerrors.ErrInvalidArgument)
	}

	exists, err := ks.articleRepo.TitleExists(ctx, nil, title)
	if err != nil {
		return nil, false, fmt.Errorf("check title: %w", err)
	}
	if exists {
		ks.log.Debug("Article already present, skipping", "title", title)
		return nil, false, nil
	}

	merged := extractMetadata(title, content)
	for k, v := range metadata {
		merged[k] = v
	}

	article := &types.Article{
		ID:       uuid.New(),
		Title:    title,
		Content:  content,
		URL:      url,
		Metadata: datatypes.JSONMap(merged),
	}
	if err := ks.articleRepo.Create(ctx, nil, article); err != nil {
		return nil, false, fmt.Errorf("create article: %w", err)
	}
	return article, true, nil
}

func (ks *knowledgeService) GetArticle(ctx context.Context, id uuid.UUID) (*types.Article, error) {
	return ks.articleRepo.GetByID(ctx, nil, id)
}

func (ks *knowledgeService) ListArticles(ctx context.Context, limit int) ([]*types.Article, error) {
	return ks.articleRepo.ListNewestFirst(ctx, nil, limit)
}

func (ks *knowledgeService) SeedFromDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read seed dir: %w", err)
	}
	added := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		raw, rErr := os.ReadFile(filepath.Join(dir, entry.Name()))
		if rErr != nil {
			ks.log.Warn("Seed file unreadable, skipping", "file", entry.Name(), "error", rErr)
			continue
		}
		title := strings.TrimSuffix(entry.Name(), ".txt")
		title = strings.ReplaceAll(title, "_", " ")
		_, created, aErr := ks.AddArticle(ctx, title, string(raw), "", nil)
		if aErr != nil {
			ks.log.Warn("Seed article failed, skipping", "file", entry.Name(), "error", aErr)
			continue
		}
		if created {
			added++
		}
	}
	ks.log.Info("Article seeding finished", "dir", dir, "added", added)
	return added, nil
}

func (ks *knowledgeService) BuildIndex(ctx context.Context, force bool) (int, error) {
	if !force {
		count, err := ks.indexRepo.Count(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("count index entries: %w", err)
		}
		if count > 0 {
			ks.log.Info("Index already built, skipping", "terms", count)
			return int(count), nil
		}
	}

	articles, err := ks.articleRepo.ListNewestFirst(ctx, nil, 0)
	if err != nil {
		return 0, fmt.Errorf("load articles: %w", err)
	}

	// term -> doc id -> frequency
	postings := map[string]map[string]int{}
	for _, article := range articles {
		docID := article.ID.String()
		for _, term := range textindex.Terms(article.Title+" "+article.Content, true) {
			bucket, ok := postings[term]
			if !ok {
				bucket = map[string]int{}
				postings[term] = bucket
			}
			bucket[docID]++
		}
	}

	entries := make([]*types.IndexEntry, 0, len(postings))
	for term, docs := range postings {
		value := datatypes.JSONMap{}
		for docID, freq := range docs {
			value[docID] = freq
		}
		entries = append(entries, &types.IndexEntry{Term: term, Postings: value})
	}

	if err := ks.indexRepo.DeleteAll(ctx, nil); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}
	if err := ks.indexRepo.CreateBatch(ctx, nil, entries); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}
	ks.log.Info("Index rebuilt", "articles", len(articles), "terms", len(entries))
	return len(entries), nil
}

// truncateSnippet cuts s to at most max bytes without splitting a rune.
func truncateSnippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func postingFreq(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func (ks *knowledgeService) Search(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	terms := textindex.Terms(query, true)
	if len(terms) == 0 {
		return nil, nil
	}
	entries, err := ks.indexRepo.GetByTerms(ctx, nil, terms)
	if err != nil {
		return nil, fmt.Errorf("look up terms: %w", err)
	}

	scores := map[string]int{}
	for _, entry := range entries {
		for docID, raw := range entry.Postings {
			scores[docID] += postingFreq(raw)
		}
	}
	if len(scores) == 0 {
		return []*SearchResult{}, nil
	}

	type ranked struct {
		docID string
		score int
	}
	order := make([]ranked, 0, len(scores))
	for docID, score := range scores {
		order = append(order, ranked{docID: docID, score: score})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].docID < order[j].docID
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	ids := make([]uuid.UUID, 0, len(order))
	for _, r := range order {
		id, pErr := uuid.Parse(r.docID)
		if pErr != nil {
			continue
		}
		ids = append(ids, id)
	}
	articles, err := ks.articleRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate articles: %w", err)
	}
	byID := make(map[string]*types.Article, len(articles))
	for _, a := range articles {
		byID[a.ID.String()] = a
	}

	results := make([]*SearchResult, 0, len(order))
	for _, r := range order {
		article, ok := byID[r.docID]
		if !ok {
			// Stale posting referencing a removed article.
			continue
		}
		snippet := truncateSnippet(article.Content, searchSnippetLength)
		results = append(results, &SearchResult{
			ArticleID: article.ID,
			Title:     article.Title,
			URL:       article.URL,
			Score:     r.score,
			Snippet:   snippet,
			Metadata:  article.Metadata,
		})
	}
	return results, nil
}
