package services

import (
	"context"
	"testing"
	"time"

	"github.com/sharkteam/plantcloud-backend/internal/gamification"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

func newScoringFixture(t *testing.T) (*scoringService, *types.User, *types.Plant) {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)

	userRepo := repos.NewUserRepo(db, log)
	plantRepo := repos.NewPlantRepo(db, log)
	actionLogRepo := repos.NewActionLogRepo(db, log)

	svc := NewScoringService(db, log, userRepo, plantRepo, actionLogRepo, nil).(*scoringService)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	user := &types.User{
		Username:      "carmel1998",
		DisplayName:   "Carmel Peretz",
		Password:      "x",
		Email:         "c@x.com",
		LastResetWeek: gamification.WeekKey(now),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	plant := &types.Plant{
		PlantID:  "ab12cd34",
		Username: user.Username,
		Name:     "Basil",
		MinSoil:  30,
	}
	if err := db.Create(plant).Error; err != nil {
		t.Fatalf("create plant: %v", err)
	}
	return svc, user, plant
}

func TestApplyActionDailyLimit(t *testing.T) {
	svc, user, plant := newScoringFixture(t)
	ctx := context.Background()

	first, err := svc.ApplyAction(ctx, user.Username, gamification.ActionWaterPlant, plant.PlantID)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !first.Awarded || first.Points != 10 {
		t.Fatalf("first apply: awarded=%v points=%d, want awarded 10 points", first.Awarded, first.Points)
	}

	second, err := svc.ApplyAction(ctx, user.Username, gamification.ActionWaterPlant, plant.PlantID)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if second.Awarded {
		t.Fatalf("second apply on the same day should hit the daily limit")
	}
	if second.Score != first.Score {
		t.Fatalf("denied apply mutated score: %d -> %d", first.Score, second.Score)
	}
}

func TestApplyActionDailyLimitIsPerPlant(t *testing.T) {
	svc, user, plant := newScoringFixture(t)
	ctx := context.Background()

	other := &types.Plant{PlantID: "ff00ff00", Username: user.Username, Name: "Mint", MinSoil: 30}
	if err := svc.db.Create(other).Error; err != nil {
		t.Fatalf("create second plant: %v", err)
	}

	if _, err := svc.ApplyAction(ctx, user.Username, gamification.ActionWaterPlant, plant.PlantID); err != nil {
		t.Fatalf("water first plant: %v", err)
	}
	res, err := svc.ApplyAction(ctx, user.Username, gamification.ActionWaterPlant, other.PlantID)
	if err != nil {
		t.Fatalf("water second plant: %v", err)
	}
	if !res.Awarded {
		t.Fatalf("watering a different plant must not be limited")
	}
}

func TestWeeklyResetPreservesLifetimeScore(t *testing.T) {
	svc, user, _ := newScoringFixture(t)
	ctx := context.Background()

	if err := svc.db.Model(&types.User{}).
		Where("username = ?", user.Username).
		Updates(map[string]interface{}{
			"score":           200,
			"weekly_score":    50,
			"last_reset_week": gamification.WeekKey(svc.now()) - 1,
		}).Error; err != nil {
		t.Fatalf("seed scores: %v", err)
	}

	// ADD_PLANT does not match the challenge the reset assigns for this week,
	// so only its own points move the counters.
	res, err := svc.ApplyAction(ctx, user.Username, gamification.ActionAddPlant, "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.BonusPoints != 0 {
		t.Fatalf("unexpected challenge bonus: %d", res.BonusPoints)
	}
	if res.Score != 200+15 {
		t.Fatalf("lifetime score after reset: got %d, want 215", res.Score)
	}
	if res.WeeklyScore != 15 {
		t.Fatalf("weekly score not reset before scoring: got %d, want 15", res.WeeklyScore)
	}
}

func TestZeroPointActionLeavesCountersAlone(t *testing.T) {
	svc, user, _ := newScoringFixture(t)
	ctx := context.Background()

	res, err := svc.ApplyAction(ctx, user.Username, gamification.ActionUseSearch, "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Awarded {
		t.Fatalf("zero-point action reported as awarded")
	}
	if res.Points != 0 {
		t.Fatalf("points for search: got %d, want 0", res.Points)
	}

	var after types.User
	if err := svc.db.Where("username = ?", user.Username).First(&after).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if after.Score != 0 || after.WeeklyScore != 0 || after.TasksCompleted != 0 {
		t.Fatalf("zero-point action mutated counters: score=%d weekly=%d tasks=%d",
			after.Score, after.WeeklyScore, after.TasksCompleted)
	}
}

func TestZeroPointActionStillAdvancesChallenge(t *testing.T) {
	gamification.SetChallengeMode(3) // The Scholar: 1x USE_SEARCH, reward 50
	defer gamification.SetChallengeMode(0)

	svc, user, _ := newScoringFixture(t)
	ctx := context.Background()

	if err := svc.db.Model(&types.User{}).
		Where("username = ?", user.Username).
		Update("challenge_id", 3).Error; err != nil {
		t.Fatalf("seed challenge: %v", err)
	}

	res, err := svc.ApplyAction(ctx, user.Username, gamification.ActionUseSearch, "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Awarded {
		t.Fatalf("search must not award points on its own")
	}
	if !res.ChallengeCompleted || res.BonusPoints != 50 {
		t.Fatalf("challenge not completed by zero-point action: completed=%v bonus=%d",
			res.ChallengeCompleted, res.BonusPoints)
	}

	var after types.User
	if err := svc.db.Where("username = ?", user.Username).First(&after).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if after.Score != 50 {
		t.Fatalf("score should hold only the bonus: got %d, want 50", after.Score)
	}
	if after.TasksCompleted != 0 {
		t.Fatalf("bonus must not count as a completed task: got %d", after.TasksCompleted)
	}
}

func TestWeeklyResetClearsDailyActionLog(t *testing.T) {
	svc, user, plant := newScoringFixture(t)
	ctx := context.Background()

	first, err := svc.ApplyAction(ctx, user.Username, gamification.ActionWaterPlant, plant.PlantID)
	if err != nil {
		t.Fatalf("first water: %v", err)
	}
	if !first.Awarded {
		t.Fatalf("first watering must be awarded")
	}

	// Roll the user back a week; the next action triggers the lazy reset,
	// which also wipes the daily claims.
	if err := svc.db.Model(&types.User{}).
		Where("username = ?", user.Username).
		Update("last_reset_week", gamification.WeekKey(svc.now())-1).Error; err != nil {
		t.Fatalf("rewind week: %v", err)
	}

	second, err := svc.ApplyAction(ctx, user.Username, gamification.ActionWaterPlant, plant.PlantID)
	if err != nil {
		t.Fatalf("second water: %v", err)
	}
	if !second.Awarded {
		t.Fatalf("watering after a weekly reset must be claimable again")
	}

	var remaining int64
	if err := svc.db.Model(&types.ActionLog{}).
		Where("username = ?", user.Username).
		Count(&remaining).Error; err != nil {
		t.Fatalf("count action logs: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("action log rows after reset + reclaim: got %d, want 1", remaining)
	}
}

func TestChallengeCompletionAwardsBonusOnce(t *testing.T) {
	gamification.SetChallengeMode(2) // Garden Expansion: 1x ADD_PLANT, reward 100
	defer gamification.SetChallengeMode(0)

	svc, user, _ := newScoringFixture(t)
	ctx := context.Background()

	// Align the stored challenge with the forced one.
	if err := svc.db.Model(&types.User{}).
		Where("username = ?", user.Username).
		Update("challenge_id", 2).Error; err != nil {
		t.Fatalf("seed challenge: %v", err)
	}

	first, err := svc.ApplyAction(ctx, user.Username, gamification.ActionAddPlant, "")
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if !first.ChallengeCompleted {
		t.Fatalf("challenge should be complete after reaching target")
	}
	if first.BonusPoints != 100 {
		t.Fatalf("bonus: got %d, want 100", first.BonusPoints)
	}
	if first.Score != 15+100 {
		t.Fatalf("score after bonus: got %d, want 115", first.Score)
	}

	second, err := svc.ApplyAction(ctx, user.Username, gamification.ActionAddPlant, "")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second.BonusPoints != 0 {
		t.Fatalf("completed challenge paid a second bonus: %d", second.BonusPoints)
	}
	if !second.ChallengeCompleted {
		t.Fatalf("challenge completion flag lost")
	}
	if second.Score != 115+15 {
		t.Fatalf("score after repeat: got %d, want 130", second.Score)
	}
}

func TestApplyActionUnknownAction(t *testing.T) {
	svc, user, _ := newScoringFixture(t)
	if _, err := svc.ApplyAction(context.Background(), user.Username, "MOW_LAWN", ""); err == nil {
		t.Fatalf("unknown action must be rejected")
	}
}

func TestApplyActionUnknownUser(t *testing.T) {
	svc, _, _ := newScoringFixture(t)
	if _, err := svc.ApplyAction(context.Background(), "nobody", gamification.ActionUseSearch, ""); err == nil {
		t.Fatalf("unknown user must be rejected")
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	svc, user, _ := newScoringFixture(t)
	ctx := context.Background()

	week := gamification.WeekKey(svc.now())
	rival := &types.User{
		Username: "rival", DisplayName: "Rival", Password: "x", Email: "r@x.com",
		Score: 999, WeeklyScore: 5, LastResetWeek: week,
	}
	if err := svc.db.Create(rival).Error; err != nil {
		t.Fatalf("create rival: %v", err)
	}
	if err := svc.db.Model(&types.User{}).
		Where("username = ?", user.Username).
		Updates(map[string]interface{}{"score": 10, "weekly_score": 8}).Error; err != nil {
		t.Fatalf("seed scores: %v", err)
	}

	overall, err := svc.Leaderboard(ctx, false, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(overall) != 2 || overall[0].Username != "rival" {
		t.Fatalf("overall leaderboard order wrong: %+v", overall)
	}
	if overall[0].Rank != "Pro" {
		t.Fatalf("rank for 999: got %q, want Pro", overall[0].Rank)
	}

	weekly, err := svc.Leaderboard(ctx, true, 10)
	if err != nil {
		t.Fatalf("weekly leaderboard: %v", err)
	}
	if weekly[0].Username != user.Username || weekly[0].Score != 8 {
		t.Fatalf("weekly leaderboard order wrong: %+v", weekly)
	}
}
