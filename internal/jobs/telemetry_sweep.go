package jobs

import (
	"context"
	"time"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/services"
	"github.com/sharkteam/plantcloud-backend/internal/utils"
)

// TelemetrySweep periodically pulls fresh telemetry for every plant. Plants
// are synced sequentially; a failing plant is logged and skipped so one
// failure does not halt the sweep.
type TelemetrySweep struct {
	log       *logger.Logger
	plantRepo repos.PlantRepo
	sensors   services.SensorService
	interval  time.Duration
}

func NewTelemetrySweep(log *logger.Logger, plantRepo repos.PlantRepo, sensors services.SensorService) *TelemetrySweep {
	sweepLog := log.With("job", "TelemetrySweep")
	seconds := utils.GetEnvAsInt("TELEMETRY_SWEEP_INTERVAL_SECONDS", 600, sweepLog)
	return &TelemetrySweep{
		log:       sweepLog,
		plantRepo: plantRepo,
		sensors:   sensors,
		interval:  time.Duration(seconds) * time.Second,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (ts *TelemetrySweep) Start(ctx context.Context) {
	ticker := time.NewTicker(ts.interval)
	defer ticker.Stop()
	ts.log.Info("Telemetry sweep started", "interval", ts.interval.String())
	for {
		select {
		case <-ctx.Done():
			ts.log.Info("Telemetry sweep stopped")
			return
		case <-ticker.C:
			ts.runOnce(ctx)
		}
	}
}

func (ts *TelemetrySweep) runOnce(ctx context.Context) {
	plants, err := ts.plantRepo.ListAll(ctx, nil)
	if err != nil {
		ts.log.Warn("Sweep could not list plants", "error", err)
		return
	}
	synced := 0
	for _, plant := range plants {
		if ctx.Err() != nil {
			return
		}
		if _, sErr := ts.sensors.SyncExternal(ctx, plant.PlantID); sErr != nil {
			ts.log.Debug("Sweep sync failed", "plant_id", plant.PlantID, "error", sErr)
			continue
		}
		synced++
	}
	ts.log.Info("Telemetry sweep finished", "plants", len(plants), "synced", synced)
}
