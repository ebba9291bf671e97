package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharkteam/plantcloud-backend/internal/services"
)

type VacationHandler struct {
	vacationService services.VacationService
}

func NewVacationHandler(vacationService services.VacationService) *VacationHandler {
	return &VacationHandler{vacationService: vacationService}
}

func (vh *VacationHandler) Estimate(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	daysAway, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_days", err)
		return
	}
	mode := c.Query("mode")
	assessments, err := vh.vacationService.Estimate(c.Request.Context(), username, daysAway, mode)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"days_away": daysAway, "plants": assessments})
}
