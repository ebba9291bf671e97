package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/requestdata"
	"github.com/sharkteam/plantcloud-backend/internal/services"
)

type UserHandler struct {
	scoring services.ScoringService
}

func NewUserHandler(scoring services.ScoringService) *UserHandler {
	return &UserHandler{scoring: scoring}
}

func currentUsername(c *gin.Context) (string, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		RespondError(c, http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
		return "", false
	}
	return rd.Username, true
}

func (uh *UserHandler) GetProfile(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	profile, err := uh.scoring.GetProfile(c.Request.Context(), username)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, profile)
}

func (uh *UserHandler) ApplyAction(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	var req struct {
		Action  string `json:"action"`
		PlantID string `json:"plant_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	result, err := uh.scoring.ApplyGamifiedAction(c.Request.Context(), username, req.Action, req.PlantID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (uh *UserHandler) Leaderboard(c *gin.Context) {
	weekly := c.Query("period") == "weekly"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	entries, err := uh.scoring.Leaderboard(c.Request.Context(), weekly, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"leaderboard": entries})
}
