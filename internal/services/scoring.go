package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/gamification"
	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

// ActionResult reports the outcome of a single scoring attempt.
type ActionResult struct {
	Action             string `json:"action"`
	Awarded            bool   `json:"awarded"`
	Points             int    `json:"points"`
	Message            string `json:"message,omitempty"`
	Score              int    `json:"score"`
	WeeklyScore        int    `json:"weekly_score"`
	TasksCompleted     int    `json:"tasks_completed"`
	Rank               string `json:"rank"`
	ChallengeTitle     string `json:"challenge_title,omitempty"`
	ChallengeProgress  int    `json:"challenge_progress"`
	ChallengeTarget    int    `json:"challenge_target"`
	ChallengeCompleted bool   `json:"challenge_completed"`
	BonusPoints        int    `json:"bonus_points,omitempty"`
	SensorSynced       bool   `json:"sensor_synced,omitempty"`
}

// Profile is the gamification view of a user.
type Profile struct {
	Username           string `json:"username"`
	DisplayName        string `json:"display_name"`
	Score              int    `json:"score"`
	WeeklyScore        int    `json:"weekly_score"`
	TasksCompleted     int    `json:"tasks_completed"`
	Rank               string `json:"rank"`
	ChallengeTitle     string `json:"challenge_title"`
	ChallengeGoal      string `json:"challenge_goal"`
	ChallengeProgress  int    `json:"challenge_progress"`
	ChallengeTarget    int    `json:"challenge_target"`
	ChallengeReward    int    `json:"challenge_reward"`
	ChallengeCompleted bool   `json:"challenge_completed"`
}

// LeaderboardEntry is one row of a ranking.
type LeaderboardEntry struct {
	Position    int    `json:"position"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Rank        string `json:"rank"`
}

type ScoringService interface {
	// ApplyAction credits an action to the user: daily-limit check for
	// plant-scoped actions, score update, and challenge progress.
	ApplyAction(ctx context.Context, username, actionKey, plantID string) (*ActionResult, error)
	// ApplyGamifiedAction runs ApplyAction and, for physical actions, pulls a
	// fresh telemetry reading for the plant afterwards.
	ApplyGamifiedAction(ctx context.Context, username, actionKey, plantID string) (*ActionResult, error)
	// EnsureWeeklyReset zeroes the weekly counters if the calendar week has
	// rolled over since the user's last reset. Returns the current row.
	EnsureWeeklyReset(ctx context.Context, user *types.User) (*types.User, error)
	GetProfile(ctx context.Context, username string) (*Profile, error)
	Leaderboard(ctx context.Context, weekly bool, limit int) ([]*LeaderboardEntry, error)
}

type scoringService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	plantRepo     repos.PlantRepo
	actionLogRepo repos.ActionLogRepo
	sensors       SensorService
	now           func() time.Time
}

func NewScoringService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	plantRepo repos.PlantRepo,
	actionLogRepo repos.ActionLogRepo,
	sensors SensorService,
) ScoringService {
	return &scoringService{
		db:            db,
		log:           log.With("service", "ScoringService"),
		userRepo:      userRepo,
		plantRepo:     plantRepo,
		actionLogRepo: actionLogRepo,
		sensors:       sensors,
		now:           time.Now,
	}
}

func (ss *scoringService) EnsureWeeklyReset(ctx context.Context, user *types.User) (*types.User, error) {
	weekKey := gamification.WeekKey(ss.now())
	if user.LastResetWeek == weekKey {
		return user, nil
	}
	ch := gamification.CurrentChallenge(ss.now())
	if err := ss.userRepo.ResetWeekly(ctx, nil, user.Username, weekKey, ch.ID); err != nil {
		return user, fmt.Errorf("reset weekly counters: %w", err)
	}
	// The daily-action log is only meaningful within a week; drop the user's
	// rows along with the counters.
	if err := ss.actionLogRepo.DeleteByUsername(ctx, nil, user.Username); err != nil {
		return user, fmt.Errorf("clear daily action log: %w", err)
	}
	ss.log.Info("Weekly counters reset", "username", user.Username, "week", weekKey, "challenge_id", ch.ID)
	return ss.userRepo.GetByUsername(ctx, nil, user.Username)
}

func (ss *scoringService) ApplyAction(ctx context.Context, username, actionKey, plantID string) (*ActionResult, error) {
	if !gamification.KnownAction(actionKey) {
		return nil, fmt.Errorf("%w: unknown action %q", pkgerrors.ErrInvalidArgument, actionKey)
	}

	user, err := ss.userRepo.GetByUsername(ctx, nil, username)
	if err != nil {
		return nil, err
	}
	if user, err = ss.EnsureWeeklyReset(ctx, user); err != nil {
		return nil, err
	}

	ch := gamification.CurrentChallenge(ss.now())

	if gamification.IsPlantScoped(actionKey) {
		if plantID == "" {
			return nil, fmt.Errorf("%w: plant_id is required for %s", pkgerrors.ErrInvalidArgument, actionKey)
		}
		if _, err := ss.plantRepo.Get(ctx, nil, username, plantID); err != nil {
			if errors.Is(err, pkgerrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: plant %s not found", pkgerrors.ErrNotFound, plantID)
			}
			return nil, err
		}
		day := ss.now().UTC().Format("2006-01-02")
		claimed, cErr := ss.actionLogRepo.TryClaim(ctx, nil, &types.ActionLog{
			Username: username,
			PlantID:  plantID,
			Action:   actionKey,
			Day:      day,
		})
		if cErr != nil {
			return nil, fmt.Errorf("claim daily action: %w", cErr)
		}
		if !claimed {
			return &ActionResult{
				Action:             actionKey,
				Awarded:            false,
				Message:            "Action already completed for this plant today.",
				Score:              user.Score,
				WeeklyScore:        user.WeeklyScore,
				TasksCompleted:     user.TasksCompleted,
				Rank:               gamification.RankFor(user.Score),
				ChallengeTitle:     ch.Title,
				ChallengeProgress:  user.ChallengeProgress,
				ChallengeTarget:    ch.Target,
				ChallengeCompleted: user.ChallengeCompleted,
			}, nil
		}
	}

	// Zero-point actions leave the counters untouched; they can still
	// advance the weekly challenge below.
	points := gamification.PointsForAction(actionKey)
	awarded := points > 0
	if awarded {
		if err := ss.userRepo.ApplyScoreDelta(ctx, nil, username, points); err != nil {
			return nil, fmt.Errorf("apply score delta: %w", err)
		}
	}

	bonus := 0
	progress := user.ChallengeProgress
	completed := user.ChallengeCompleted
	if user.ChallengeID == ch.ID && !completed && ch.ActionType == actionKey {
		progress++
		if progress >= ch.Target {
			completed = true
			bonus = ch.RewardPoints
		}
		if err := ss.userRepo.SetChallengeProgress(ctx, nil, username, progress, completed); err != nil {
			return nil, fmt.Errorf("update challenge progress: %w", err)
		}
		if bonus > 0 {
			if err := ss.userRepo.AddBonus(ctx, nil, username, bonus); err != nil {
				return nil, fmt.Errorf("award challenge bonus: %w", err)
			}
			ss.log.Info("Challenge completed", "username", username, "challenge", ch.Title, "bonus", bonus)
		}
	}

	updated, err := ss.userRepo.GetByUsername(ctx, nil, username)
	if err != nil {
		return nil, err
	}
	message := gamification.ActionDescription(actionKey)
	if !awarded {
		message = "No points for this action."
	}
	return &ActionResult{
		Action:             actionKey,
		Awarded:            awarded,
		Points:             points,
		Message:            message,
		Score:              updated.Score,
		WeeklyScore:        updated.WeeklyScore,
		TasksCompleted:     updated.TasksCompleted,
		Rank:               gamification.RankFor(updated.Score),
		ChallengeTitle:     ch.Title,
		ChallengeProgress:  progress,
		ChallengeTarget:    ch.Target,
		ChallengeCompleted: completed,
		BonusPoints:        bonus,
	}, nil
}

func (ss *scoringService) ApplyGamifiedAction(ctx context.Context, username, actionKey, plantID string) (*ActionResult, error) {
	result, err := ss.ApplyAction(ctx, username, actionKey, plantID)
	if err != nil {
		return nil, err
	}
	if result.Awarded && gamification.IsPhysical(actionKey) && ss.sensors != nil && plantID != "" {
		if _, sErr := ss.sensors.SyncExternal(ctx, plantID); sErr != nil {
			ss.log.Warn("Telemetry sync after action failed", "plant_id", plantID, "error", sErr)
		} else {
			result.SensorSynced = true
		}
	}
	return result, nil
}

func (ss *scoringService) GetProfile(ctx context.Context, username string) (*Profile, error) {
	user, err := ss.userRepo.GetByUsername(ctx, nil, username)
	if err != nil {
		return nil, err
	}
	if user, err = ss.EnsureWeeklyReset(ctx, user); err != nil {
		return nil, err
	}
	ch := gamification.CurrentChallenge(ss.now())
	return &Profile{
		Username:           user.Username,
		DisplayName:        user.DisplayName,
		Score:              user.Score,
		WeeklyScore:        user.WeeklyScore,
		TasksCompleted:     user.TasksCompleted,
		Rank:               gamification.RankFor(user.Score),
		ChallengeTitle:     ch.Title,
		ChallengeGoal:      ch.Description,
		ChallengeProgress:  user.ChallengeProgress,
		ChallengeTarget:    ch.Target,
		ChallengeReward:    ch.RewardPoints,
		ChallengeCompleted: user.ChallengeCompleted,
	}, nil
}

func (ss *scoringService) Leaderboard(ctx context.Context, weekly bool, limit int) ([]*LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	var (
		users []*types.User
		err   error
	)
	if weekly {
		users, err = ss.userRepo.TopByWeeklyScore(ctx, nil, limit)
	} else {
		users, err = ss.userRepo.TopByScore(ctx, nil, limit)
	}
	if err != nil {
		return nil, err
	}
	entries := make([]*LeaderboardEntry, 0, len(users))
	for i, u := range users {
		score := u.Score
		if weekly {
			score = u.WeeklyScore
		}
		entries = append(entries, &LeaderboardEntry{
			Position:    i + 1,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Score:       score,
			Rank:        gamification.RankFor(u.Score),
		})
	}
	return entries, nil
}
