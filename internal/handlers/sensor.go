package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sharkteam/plantcloud-backend/internal/services"
)

type SensorHandler struct {
	sensorService services.SensorService
}

func NewSensorHandler(sensorService services.SensorService) *SensorHandler {
	return &SensorHandler{sensorService: sensorService}
}

func (sh *SensorHandler) Record(c *gin.Context) {
	var req struct {
		PlantID   string     `json:"plant_id"`
		Temp      *float64   `json:"temp"`
		Humidity  *float64   `json:"humidity"`
		Soil      *float64   `json:"soil"`
		Light     *float64   `json:"light"`
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	capturedAt := time.Time{}
	if req.Timestamp != nil {
		capturedAt = *req.Timestamp
	}
	reading, err := sh.sensorService.Record(c.Request.Context(), req.PlantID, services.ReadingInput{
		Temp:     req.Temp,
		Humidity: req.Humidity,
		Soil:     req.Soil,
		Light:    req.Light,
	}, capturedAt)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, reading)
}

func (sh *SensorHandler) Update(c *gin.Context) {
	readingID, err := uuid.Parse(c.Param("reading_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_id", err)
		return
	}
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	if err := sh.sensorService.UpdateFields(c.Request.Context(), readingID, fields); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (sh *SensorHandler) All(c *gin.Context) {
	if _, ok := currentUsername(c); !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	readings, err := sh.sensorService.AllReadings(c.Request.Context(), limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"readings": readings})
}

func (sh *SensorHandler) History(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	readings, err := sh.sensorService.History(c.Request.Context(), username, c.Param("plant_id"), limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"readings": readings})
}

func (sh *SensorHandler) Latest(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	reading, err := sh.sensorService.Latest(c.Request.Context(), username, c.Param("plant_id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, reading)
}

func (sh *SensorHandler) Sync(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	reading, err := sh.sensorService.SyncForUser(c.Request.Context(), username, c.Param("plant_id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, reading)
}
