package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/platform/openai"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
)

// Vacation estimator modes. Model mode falls back to arithmetic per plant on
// any model failure; the Mode field of each assessment reports which path
// actually produced it.
const (
	VacationModeArithmetic = "arithmetic"
	VacationModeModel      = "model"
)

// Plant status values, in precedence order.
const (
	StatusUnknown    = "unknown"
	StatusCritical   = "critical"
	StatusNeedsWater = "needs water"
	StatusSafe       = "safe"
)

const (
	vacationGlobalCapDays = 21
	highDryingRate        = 10.0
	lowDryingRate         = 2.0
	highRateThreshold     = 20
)

// VacationAssessment is the per-plant verdict for a planned absence.
type VacationAssessment struct {
	PlantID           string   `json:"plant_id"`
	PlantName         string   `json:"plant_name"`
	CurrentSoil       *float64 `json:"current_soil,omitempty"`
	PredictedSoil     *float64 `json:"predicted_soil,omitempty"`
	Status            string   `json:"status"`
	Message           string   `json:"message"`
	Recommendation    string   `json:"recommendation,omitempty"`
	SafeDays          *int     `json:"safe_days,omitempty"`
	MaxSurvivableDays *int     `json:"max_survivable_days,omitempty"`
	Mode              string   `json:"mode"`
}

type VacationService interface {
	// Estimate evaluates every plant the user owns against a trip length.
	// mode selects the estimator; empty means arithmetic.
	Estimate(ctx context.Context, username string, daysAway int, mode string) ([]*VacationAssessment, error)
}

type vacationService struct {
	db         *gorm.DB
	log        *logger.Logger
	plantRepo  repos.PlantRepo
	sensorRepo repos.SensorRepo
	ai         openai.Client
}

func NewVacationService(
	db *gorm.DB,
	log *logger.Logger,
	plantRepo repos.PlantRepo,
	sensorRepo repos.SensorRepo,
	ai openai.Client,
) VacationService {
	return &vacationService{
		db:         db,
		log:        log.With("service", "VacationService"),
		plantRepo:  plantRepo,
		sensorRepo: sensorRepo,
		ai:         ai,
	}
}

func (vs *vacationService) Estimate(ctx context.Context, username string, daysAway int, mode string) ([]*VacationAssessment, error) {
	if daysAway < 0 {
		return nil, fmt.Errorf("%w: days_away must be non-negative", pkgerrors.ErrInvalidArgument)
	}
	switch mode {
	case "", VacationModeArithmetic:
		mode = VacationModeArithmetic
	case VacationModeModel:
		if vs.ai == nil {
			return nil, fmt.Errorf("%w: model mode requires a configured generative client", pkgerrors.ErrInvalidArgument)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", pkgerrors.ErrInvalidArgument, mode)
	}

	plants, err := vs.plantRepo.ListByUsername(ctx, nil, username)
	if err != nil {
		return nil, err
	}

	assessments := make([]*VacationAssessment, 0, len(plants))
	for _, plant := range plants {
		var soil, temp *float64
		if reading, rErr := vs.sensorRepo.LatestByPlant(ctx, nil, plant.PlantID); rErr == nil && reading != nil {
			soil = reading.Soil
			temp = reading.Temp
		}

		var a *VacationAssessment
		if mode == VacationModeModel {
			a = vs.estimateWithModel(ctx, plant.PlantID, plant.Name, plant.MinSoil, soil, temp, daysAway)
		}
		if a == nil {
			a = estimateArithmetic(plant.PlantID, plant.Name, plant.MinSoil, soil, daysAway)
		}
		assessments = append(assessments, a)
	}
	return assessments, nil
}

// estimateArithmetic applies the linear depletion model: a two-tier drying
// rate keyed on the threshold, a survivable-days bound derived from it, and a
// hard absolute cap on trip length.
func estimateArithmetic(plantID, plantName string, minSoil int, soil *float64, daysAway int) *VacationAssessment {
	a := &VacationAssessment{
		PlantID:   plantID,
		PlantName: plantName,
		Mode:      VacationModeArithmetic,
	}
	if soil == nil {
		a.Status = StatusUnknown
		a.Message = "No sensor data available for this plant."
		return a
	}
	a.CurrentSoil = soil

	rate := lowDryingRate
	if minSoil > highRateThreshold {
		rate = highDryingRate
	}
	maxDays := int(math.Floor((100 - float64(minSoil)) / rate))
	a.MaxSurvivableDays = &maxDays

	predicted := *soil - float64(daysAway)*rate
	a.PredictedSoil = &predicted

	switch {
	case daysAway > maxDays || daysAway > vacationGlobalCapDays:
		a.Status = StatusCritical
		a.Message = fmt.Sprintf("%s will not survive %d days away. Arrange care before leaving.", plantName, daysAway)
	case predicted < float64(minSoil):
		safeDays := int(math.Floor((*soil - float64(minSoil)) / rate))
		if safeDays < 0 {
			safeDays = 0
		}
		a.SafeDays = &safeDays
		a.Status = StatusNeedsWater
		a.Message = fmt.Sprintf("%s will need water after about %d days.", plantName, safeDays)
	default:
		a.Status = StatusSafe
		a.Message = fmt.Sprintf("%s should be fine for %d days.", plantName, daysAway)
	}
	return a
}

type modelVacationReply struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

// estimateWithModel asks the generative model for a structured verdict.
// Returns nil on any failure so the caller can fall back to arithmetic.
func (vs *vacationService) estimateWithModel(ctx context.Context, plantID, plantName string, minSoil int, soil, temp *float64, daysAway int) *VacationAssessment {
	if soil == nil {
		return nil
	}
	tempDesc := "unknown"
	if temp != nil {
		tempDesc = fmt.Sprintf("%.1f°C", *temp)
	}
	prompt := fmt.Sprintf(
		`A plant named %q has a minimum soil moisture threshold of %d%%, a current soil moisture of %.1f%%, and a current temperature of %s. The owner will be away for %d days with no watering. Reply with a JSON object with exactly these keys: "status" (one of "safe", "needs water", "critical"), "message" (one sentence), "recommendation" (one sentence).`,
		plantName, minSoil, *soil, tempDesc, daysAway,
	)
	reply, err := vs.ai.GenerateText(ctx, "You are a plant care expert. Reply with JSON only.", prompt)
	if err != nil {
		vs.log.Debug("Model vacation estimate failed", "plant_id", plantID, "error", err)
		return nil
	}
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var parsed modelVacationReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &parsed); err != nil {
		vs.log.Debug("Model vacation reply unparseable", "plant_id", plantID, "error", err)
		return nil
	}
	switch parsed.Status {
	case StatusSafe, StatusNeedsWater, StatusCritical:
	default:
		return nil
	}
	return &VacationAssessment{
		PlantID:        plantID,
		PlantName:      plantName,
		CurrentSoil:    soil,
		Status:         parsed.Status,
		Message:        parsed.Message,
		Recommendation: parsed.Recommendation,
		Mode:           VacationModeModel,
	}
}
