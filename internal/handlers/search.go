package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharkteam/plantcloud-backend/internal/gamification"
	"github.com/sharkteam/plantcloud-backend/internal/rag"
	"github.com/sharkteam/plantcloud-backend/internal/services"
)

var (
	errMissingQuery    = errors.New("query parameter q is required")
	errMissingQuestion = errors.New("question is required")
)

type SearchHandler struct {
	knowledge services.KnowledgeService
	engine    *rag.Engine
	scoring   services.ScoringService
}

func NewSearchHandler(knowledge services.KnowledgeService, engine *rag.Engine, scoring services.ScoringService) *SearchHandler {
	return &SearchHandler{knowledge: knowledge, engine: engine, scoring: scoring}
}

// Search runs the lexical index lookup and credits the search action.
func (sh *SearchHandler) Search(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	query := c.Query("q")
	if query == "" {
		RespondError(c, http.StatusBadRequest, "missing_query", errMissingQuery)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	results, err := sh.knowledge.Search(c.Request.Context(), query, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	var scoring *services.ActionResult
	if r, sErr := sh.scoring.ApplyGamifiedAction(c.Request.Context(), username, gamification.ActionUseSearch, ""); sErr == nil {
		scoring = r
	}
	RespondOK(c, gin.H{"results": results, "scoring": scoring})
}

// Ask runs retrieval-augmented answering over the article corpus.
func (sh *SearchHandler) Ask(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	var req struct {
		Question string  `json:"question"`
		TopK     int     `json:"top_k"`
		MinSim   float64 `json:"min_similarity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	if req.Question == "" {
		RespondError(c, http.StatusBadRequest, "missing_question", errMissingQuestion)
		return
	}
	if req.TopK <= 0 {
		req.TopK = 3
	}
	threshold := req.MinSim
	if threshold <= 0 {
		threshold = rag.DefaultFallbackThreshold
	}
	result, err := sh.engine.Query(c.Request.Context(), req.Question, req.TopK, threshold)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	var scoring *services.ActionResult
	if r, sErr := sh.scoring.ApplyGamifiedAction(c.Request.Context(), username, gamification.ActionUseSearch, ""); sErr == nil {
		scoring = r
	}
	RespondOK(c, gin.H{"answer": result, "scoring": scoring})
}

// BuildIndex rebuilds the lexical index and reloads the vector corpus.
func (sh *SearchHandler) BuildIndex(c *gin.Context) {
	force := c.Query("force") == "true"
	terms, err := sh.knowledge.BuildIndex(c.Request.Context(), force)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	sh.engine.Reload()
	RespondOK(c, gin.H{"terms": terms})
}

// Articles lists stored articles newest first.
func (sh *SearchHandler) Articles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	articles, err := sh.knowledge.ListArticles(c.Request.Context(), limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"articles": articles})
}

// AddArticle stores a new article; an exact duplicate title is a no-op.
func (sh *SearchHandler) AddArticle(c *gin.Context) {
	var req struct {
		Title    string                 `json:"title"`
		Content  string                 `json:"content"`
		URL      string                 `json:"url"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	article, created, err := sh.knowledge.AddArticle(c.Request.Context(), req.Title, req.Content, req.URL, req.Metadata)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"created": created, "article": article})
}
