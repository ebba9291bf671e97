package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

func floatPtr(v float64) *float64 { return &v }

func TestEstimateArithmeticNeedsWater(t *testing.T) {
	// Threshold 25 -> high drying rate 10%/day. Soil 60, away 5 days:
	// predicted 60-50=10 < 25, safe days floor((60-25)/10) = 3.
	a := estimateArithmetic("p1", "Fern", 25, floatPtr(60), 5)
	if a.Status != StatusNeedsWater {
		t.Fatalf("status: got %q, want %q", a.Status, StatusNeedsWater)
	}
	if a.SafeDays == nil || *a.SafeDays != 3 {
		t.Fatalf("safe days: got %v, want 3", a.SafeDays)
	}
	if a.PredictedSoil == nil || *a.PredictedSoil != 10 {
		t.Fatalf("predicted soil: got %v, want 10", a.PredictedSoil)
	}
}

func TestEstimateArithmeticZeroDaysNeverCritical(t *testing.T) {
	for _, minSoil := range []int{5, 20, 25, 50, 90} {
		a := estimateArithmetic("p1", "Fern", minSoil, floatPtr(50), 0)
		if a.Status == StatusCritical {
			t.Fatalf("threshold %d: zero days away must never be critical", minSoil)
		}
	}
}

func TestEstimateArithmeticStatuses(t *testing.T) {
	cases := []struct {
		name     string
		minSoil  int
		soil     *float64
		daysAway int
		want     string
	}{
		{name: "no_data", minSoil: 30, soil: nil, daysAway: 3, want: StatusUnknown},
		{name: "over_survivable_bound", minSoil: 30, soil: floatPtr(90), daysAway: 8, want: StatusCritical},
		{name: "over_global_cap", minSoil: 10, soil: floatPtr(95), daysAway: 25, want: StatusCritical},
		{name: "low_rate_safe", minSoil: 10, soil: floatPtr(80), daysAway: 10, want: StatusSafe},
		{name: "high_rate_dry", minSoil: 40, soil: floatPtr(55), daysAway: 3, want: StatusNeedsWater},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := estimateArithmetic("p1", "Fern", tc.minSoil, tc.soil, tc.daysAway)
			if a.Status != tc.want {
				t.Fatalf("status: got %q, want %q", a.Status, tc.want)
			}
		})
	}
}

func TestVacationEstimateOverOwnedPlants(t *testing.T) {
	db := newTestDB(t)
	log := newTestLogger(t)
	plantRepo := repos.NewPlantRepo(db, log)
	sensorRepo := repos.NewSensorRepo(db, log)
	svc := NewVacationService(db, log, plantRepo, sensorRepo, nil)
	ctx := context.Background()

	withData := &types.Plant{PlantID: "aaaa1111", Username: "gila", Name: "Monstera", MinSoil: 25}
	noData := &types.Plant{PlantID: "bbbb2222", Username: "gila", Name: "Cactus", MinSoil: 10}
	for _, p := range []*types.Plant{withData, noData} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("create plant: %v", err)
		}
	}
	reading := &types.SensorReading{
		ID:        uuid.New(),
		PlantID:   withData.PlantID,
		Soil:      floatPtr(60),
		Timestamp: time.Now(),
	}
	if err := db.Create(reading).Error; err != nil {
		t.Fatalf("create reading: %v", err)
	}

	assessments, err := svc.Estimate(ctx, "gila", 5, "")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if len(assessments) != 2 {
		t.Fatalf("assessments: got %d, want 2", len(assessments))
	}
	byID := map[string]*VacationAssessment{}
	for _, a := range assessments {
		byID[a.PlantID] = a
	}
	if byID[withData.PlantID].Status != StatusNeedsWater {
		t.Fatalf("monstera status: got %q", byID[withData.PlantID].Status)
	}
	if byID[noData.PlantID].Status != StatusUnknown {
		t.Fatalf("cactus status: got %q", byID[noData.PlantID].Status)
	}
	for _, a := range assessments {
		if a.Mode != VacationModeArithmetic {
			t.Fatalf("mode: got %q, want arithmetic", a.Mode)
		}
	}
}

func TestVacationEstimateRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	log := newTestLogger(t)
	svc := NewVacationService(db, log, repos.NewPlantRepo(db, log), repos.NewSensorRepo(db, log), nil)

	if _, err := svc.Estimate(context.Background(), "gila", -1, ""); err == nil {
		t.Fatalf("negative days must be rejected")
	}
	if _, err := svc.Estimate(context.Background(), "gila", 3, "astrology"); err == nil {
		t.Fatalf("unknown mode must be rejected")
	}
	if _, err := svc.Estimate(context.Background(), "gila", 3, VacationModeModel); err == nil {
		t.Fatalf("model mode without a client must be rejected")
	}
}
