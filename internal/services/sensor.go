package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/clients/telemetry"
	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

// ReadingInput carries the optional value fields of a new reading. Nil means
// the field was not captured.
type ReadingInput struct {
	Temp     *float64
	Humidity *float64
	Soil     *float64
	Light    *float64
}

func (ri ReadingInput) empty() bool {
	return ri.Temp == nil && ri.Humidity == nil && ri.Soil == nil && ri.Light == nil
}

type SensorService interface {
	Record(ctx context.Context, plantID string, input ReadingInput, capturedAt time.Time) (*types.SensorReading, error)
	// UpdateFields patches a subset of value fields on an existing reading.
	// This is the only mutation path for stored readings.
	UpdateFields(ctx context.Context, readingID uuid.UUID, fields map[string]interface{}) error
	History(ctx context.Context, username, plantID string, limit int) ([]*types.SensorReading, error)
	Latest(ctx context.Context, username, plantID string) (*types.SensorReading, error)
	AllReadings(ctx context.Context, limit int) ([]*types.SensorReading, error)
	// SyncExternal pulls the telemetry feeds and stores whatever subset came
	// back as a new reading. Errors if every feed failed.
	SyncExternal(ctx context.Context, plantID string) (*types.SensorReading, error)
	// SyncForUser is SyncExternal with an ownership check.
	SyncForUser(ctx context.Context, username, plantID string) (*types.SensorReading, error)
}

type sensorService struct {
	db         *gorm.DB
	log        *logger.Logger
	sensorRepo repos.SensorRepo
	plantRepo  repos.PlantRepo
	telemetry  telemetry.Client
}

func NewSensorService(
	db *gorm.DB,
	log *logger.Logger,
	sensorRepo repos.SensorRepo,
	plantRepo repos.PlantRepo,
	telemetryClient telemetry.Client,
) SensorService {
	return &sensorService{
		db:         db,
		log:        log.With("service", "SensorService"),
		sensorRepo: sensorRepo,
		plantRepo:  plantRepo,
		telemetry:  telemetryClient,
	}
}

// Columns accepted by UpdateFields.
var updatableReadingFields = map[string]bool{
	"temp":     true,
	"humidity": true,
	"soil":     true,
	"light":    true,
}

func (ss *sensorService) Record(ctx context.Context, plantID string, input ReadingInput, capturedAt time.Time) (*types.SensorReading, error) {
	if plantID == "" {
		return nil, fmt.Errorf("%w: plant_id is required", pkgerrors.ErrInvalidArgument)
	}
	if input.empty() {
		return nil, fmt.Errorf("%w: at least one sensor value is required", pkgerrors.ErrInvalidArgument)
	}
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	reading := &types.SensorReading{
		ID:        uuid.New(),
		PlantID:   plantID,
		Temp:      input.Temp,
		Humidity:  input.Humidity,
		Soil:      input.Soil,
		Light:     input.Light,
		Timestamp: capturedAt,
	}
	if err := ss.sensorRepo.Create(ctx, nil, reading); err != nil {
		return nil, fmt.Errorf("store reading: %w", err)
	}
	return reading, nil
}

func (ss *sensorService) UpdateFields(ctx context.Context, readingID uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields to update", pkgerrors.ErrInvalidArgument)
	}
	for name := range fields {
		if !updatableReadingFields[name] {
			return fmt.Errorf("%w: field %q is not updatable", pkgerrors.ErrInvalidArgument, name)
		}
	}
	return ss.sensorRepo.UpdateFields(ctx, nil, readingID, fields)
}

func (ss *sensorService) History(ctx context.Context, username, plantID string, limit int) ([]*types.SensorReading, error) {
	if _, err := ss.plantRepo.Get(ctx, nil, username, plantID); err != nil {
		return nil, err
	}
	return ss.sensorRepo.HistoryByPlant(ctx, nil, plantID, limit)
}

func (ss *sensorService) Latest(ctx context.Context, username, plantID string) (*types.SensorReading, error) {
	if _, err := ss.plantRepo.Get(ctx, nil, username, plantID); err != nil {
		return nil, err
	}
	return ss.sensorRepo.LatestByPlant(ctx, nil, plantID)
}

func (ss *sensorService) AllReadings(ctx context.Context, limit int) ([]*types.SensorReading, error) {
	return ss.sensorRepo.AllNewestFirst(ctx, nil, limit)
}

func (ss *sensorService) SyncForUser(ctx context.Context, username, plantID string) (*types.SensorReading, error) {
	if _, err := ss.plantRepo.Get(ctx, nil, username, plantID); err != nil {
		return nil, err
	}
	return ss.SyncExternal(ctx, plantID)
}

func (ss *sensorService) SyncExternal(ctx context.Context, plantID string) (*types.SensorReading, error) {
	if ss.telemetry == nil {
		return nil, fmt.Errorf("telemetry client not configured")
	}
	values, err := ss.telemetry.FetchLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch telemetry: %w", err)
	}
	var input ReadingInput
	if v, ok := values[telemetry.FeedTemperature]; ok {
		input.Temp = &v
	}
	if v, ok := values[telemetry.FeedHumidity]; ok {
		input.Humidity = &v
	}
	if v, ok := values[telemetry.FeedSoil]; ok {
		input.Soil = &v
	}
	if input.empty() {
		return nil, fmt.Errorf("no telemetry feeds available")
	}
	reading, err := ss.Record(ctx, plantID, input, time.Now())
	if err != nil {
		return nil, err
	}
	ss.log.Debug("Telemetry synced", "plant_id", plantID, "feeds", len(values))
	return reading, nil
}
