package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sharkteam/plantcloud-backend/internal/services"
)

type PlantHandler struct {
	plantService services.PlantService
}

func NewPlantHandler(plantService services.PlantService) *PlantHandler {
	return &PlantHandler{plantService: plantService}
}

func (ph *PlantHandler) Add(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	var req struct {
		Name    string `json:"name"`
		Species string `json:"species"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", err)
		return
	}
	plant, result, err := ph.plantService.Add(c.Request.Context(), username, req.Name, req.Species, nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"plant": plant, "scoring": result})
}

// AddWithImage accepts a multipart form with name, species and an image file.
func (ph *PlantHandler) AddWithImage(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	name := c.PostForm("name")
	species := c.PostForm("species")
	fileHeader, err := c.FormFile("image")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_image", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_image", err)
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_image", err)
		return
	}
	plant, result, err := ph.plantService.Add(c.Request.Context(), username, name, species, raw)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"plant": plant, "scoring": result})
}

func (ph *PlantHandler) List(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	plants, err := ph.plantService.List(c.Request.Context(), username)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"plants": plants})
}

func (ph *PlantHandler) Get(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	plant, err := ph.plantService.Get(c.Request.Context(), username, c.Param("plant_id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, plant)
}

func (ph *PlantHandler) Delete(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}
	if err := ph.plantService.Delete(c.Request.Context(), username, c.Param("plant_id")); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
