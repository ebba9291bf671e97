package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/clients/redis"
	"github.com/sharkteam/plantcloud-backend/internal/gamification"
	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/platform/openai"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

const (
	defaultMinSoil = 30
	minSoilFloor   = 5
	minSoilCeil    = 90
)

// Models tried in order for threshold inference; first parseable reply wins.
var inferenceModels = []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}

var firstIntRe = regexp.MustCompile(`\d+`)

type PlantService interface {
	// Add registers a plant, infers its minimum soil threshold from the
	// species (falling back to a fixed default) and credits the add action.
	// A supplied image is cropped and re-encoded before upload; nil falls
	// back to a generated placeholder when available.
	Add(ctx context.Context, username, name, species string, image []byte) (*types.Plant, *ActionResult, error)
	Get(ctx context.Context, username, plantID string) (*types.Plant, error)
	List(ctx context.Context, username string) ([]*types.Plant, error)
	Delete(ctx context.Context, username, plantID string) error
	Count(ctx context.Context, username string) (int64, error)
}

type plantService struct {
	db         *gorm.DB
	log        *logger.Logger
	plantRepo  repos.PlantRepo
	scoring    ScoringService
	ai         openai.Client
	cache      redis.PlantCache
	bucket     BucketService
	plantImage PlantImageService
}

func NewPlantService(
	db *gorm.DB,
	log *logger.Logger,
	plantRepo repos.PlantRepo,
	scoring ScoringService,
	ai openai.Client,
	cache redis.PlantCache,
	bucket BucketService,
	plantImage PlantImageService,
) PlantService {
	return &plantService{
		db:         db,
		log:        log.With("service", "PlantService"),
		plantRepo:  plantRepo,
		scoring:    scoring,
		ai:         ai,
		cache:      cache,
		bucket:     bucket,
		plantImage: plantImage,
	}
}

func newPlantID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:8]
}

func (ps *plantService) Add(ctx context.Context, username, name, species string, image []byte) (*types.Plant, *ActionResult, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	species = strings.TrimSpace(species)
	if username == "" || name == "" {
		return nil, nil, fmt.Errorf("%w: owner and plant name are required", pkgerrors.ErrInvalidArgument)
	}

	minSoil := ps.inferMinSoil(ctx, name, species)

	plant := &types.Plant{
		PlantID:  newPlantID(),
		Username: username,
		Name:     name,
		Species:  species,
		MinSoil:  minSoil,
	}

	if image != nil && ps.plantImage != nil {
		processed, err := ps.plantImage.ProcessUpload(image)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: unsupported image data", pkgerrors.ErrInvalidArgument)
		}
		image = processed
	}
	if image == nil && ps.plantImage != nil {
		if generated, err := ps.plantImage.GeneratePlaceholder(name); err != nil {
			ps.log.Warn("Placeholder image generation failed", "plant", name, "error", err)
		} else {
			image = generated
		}
	}
	if image != nil && ps.bucket != nil {
		url, path, err := ps.bucket.UploadUserImage(ctx, username, plant.PlantID, image)
		if err != nil {
			// The plant is still created; the image is best effort.
			ps.log.Warn("Image upload failed", "plant_id", plant.PlantID, "error", err)
		} else {
			plant.ImageURL = url
			plant.ImagePath = path
		}
	}

	if err := ps.plantRepo.Create(ctx, nil, plant); err != nil {
		return nil, nil, fmt.Errorf("create plant: %w", err)
	}
	if ps.cache != nil {
		ps.cache.Invalidate(ctx, username)
	}

	var result *ActionResult
	if ps.scoring != nil {
		r, err := ps.scoring.ApplyAction(ctx, username, gamification.ActionAddPlant, "")
		if err != nil {
			ps.log.Warn("Scoring add action failed", "username", username, "error", err)
		} else {
			result = r
		}
	}
	ps.log.Info("Plant added", "username", username, "plant_id", plant.PlantID, "min_soil", minSoil)
	return plant, result, nil
}

// inferMinSoil asks the generative model for the minimum soil moisture the
// species survives at, walking a prioritized model list. The first integer in
// the first successful reply is clamped to a plausible range; anything else
// falls back to the default.
func (ps *plantService) inferMinSoil(ctx context.Context, name, species string) int {
	if ps.ai == nil {
		return defaultMinSoil
	}
	subject := species
	if subject == "" {
		subject = name
	}
	prompt := fmt.Sprintf(
		"What is the minimum soil moisture percentage at which a %s plant can survive? Reply with a single integer between 0 and 100.",
		subject,
	)
	for _, model := range inferenceModels {
		client := openai.WithModel(ps.ai, model)
		reply, err := client.GenerateText(ctx, "You are a plant care expert.", prompt)
		if err != nil {
			ps.log.Debug("Threshold inference attempt failed", "model", model, "error", err)
			continue
		}
		match := firstIntRe.FindString(reply)
		if match == "" {
			continue
		}
		value, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if value < minSoilFloor {
			value = minSoilFloor
		}
		if value > minSoilCeil {
			value = minSoilCeil
		}
		return value
	}
	ps.log.Debug("Threshold inference exhausted all models", "subject", subject)
	return defaultMinSoil
}

func (ps *plantService) Get(ctx context.Context, username, plantID string) (*types.Plant, error) {
	return ps.plantRepo.Get(ctx, nil, username, plantID)
}

func (ps *plantService) List(ctx context.Context, username string) ([]*types.Plant, error) {
	if ps.cache != nil {
		if plants, ok := ps.cache.Get(ctx, username); ok {
			return plants, nil
		}
	}
	plants, err := ps.plantRepo.ListByUsername(ctx, nil, username)
	if err != nil {
		return nil, err
	}
	if ps.cache != nil {
		ps.cache.Set(ctx, username, plants)
	}
	return plants, nil
}

func (ps *plantService) Delete(ctx context.Context, username, plantID string) error {
	// Sensor readings for the plant are left in place; orphans are tolerated.
	if err := ps.plantRepo.Delete(ctx, nil, username, plantID); err != nil {
		return err
	}
	if ps.cache != nil {
		ps.cache.Invalidate(ctx, username)
	}
	return nil
}

func (ps *plantService) Count(ctx context.Context, username string) (int64, error) {
	return ps.plantRepo.CountByUsername(ctx, nil, username)
}
