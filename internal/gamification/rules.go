package gamification

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Action keys accepted by the scoring engine.
const (
	ActionWaterPlant       = "WATER_PLANT"
	ActionFertilizePlant   = "FERTILIZE_PLANT"
	ActionUploadPhoto      = "UPLOAD_PHOTO"
	ActionEarlyDetection   = "EARLY_DETECTION"
	ActionPreventiveAction = "PREVENTIVE_ACTION"
	ActionUseSearch        = "USE_SEARCH"
	ActionAddPlant         = "ADD_PLANT"
)

type Action struct {
	Points      int    `yaml:"points"`
	Description string `yaml:"description"`
}

type Challenge struct {
	ID           int    `yaml:"id"`
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	ActionType   string `yaml:"action_type"`
	Target       int    `yaml:"target"`
	RewardPoints int    `yaml:"reward_points"`
}

var actions = map[string]Action{
	ActionWaterPlant:       {Points: 10, Description: "Watering a single plant"},
	ActionFertilizePlant:   {Points: 10, Description: "Fertilizing a single plant"},
	ActionUploadPhoto:      {Points: 20, Description: "Scanning a plant with AI"},
	ActionEarlyDetection:   {Points: 40, Description: "System detected an issue early"},
	ActionPreventiveAction: {Points: 25, Description: "User completed a maintenance task"},
	ActionUseSearch:        {Points: 0, Description: "Using the knowledge base search"},
	ActionAddPlant:         {Points: 15, Description: "Adding a new plant to the garden"},
}

// Actions that are limited to once per day per plant.
var plantScoped = map[string]bool{
	ActionWaterPlant:     true,
	ActionFertilizePlant: true,
	ActionUploadPhoto:    true,
}

// Physical actions trigger a telemetry sync for the plant after scoring.
var physical = map[string]bool{
	ActionWaterPlant:     true,
	ActionFertilizePlant: true,
}

var defaultChallenges = []Challenge{
	{
		ID:           1,
		Title:        "Photo Marathon",
		Description:  "Scan 3 different plants to update their status.",
		ActionType:   ActionUploadPhoto,
		Target:       3,
		RewardPoints: 150,
	},
	{
		ID:           2,
		Title:        "Garden Expansion",
		Description:  "Add a new plant to your garden collection.",
		ActionType:   ActionAddPlant,
		Target:       1,
		RewardPoints: 100,
	},
	{
		ID:           3,
		Title:        "The Scholar",
		Description:  "Use the Smart Search to ask a question about plants.",
		ActionType:   ActionUseSearch,
		Target:       1,
		RewardPoints: 50,
	},
}

var (
	mu                sync.RWMutex
	challenges        = defaultChallenges
	forcedChallengeID = 0 // 0 = auto (calendar) mode
)

// LoadChallengesFromYAML replaces the built-in challenge list with definitions
// from a YAML file. Missing path is not an error; the defaults stay in place.
func LoadChallengesFromYAML(path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read challenges file: %w", err)
	}
	var loaded []Challenge
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("parse challenges file: %w", err)
	}
	if len(loaded) == 0 {
		return fmt.Errorf("challenges file %q contains no challenges", path)
	}
	mu.Lock()
	challenges = loaded
	mu.Unlock()
	return nil
}

// SetChallengeMode forces a specific challenge id, or restores calendar mode
// when id is 0.
func SetChallengeMode(id int) {
	mu.Lock()
	forcedChallengeID = id
	mu.Unlock()
}

func PointsForAction(actionKey string) int {
	if a, ok := actions[actionKey]; ok {
		return a.Points
	}
	return 0
}

func ActionDescription(actionKey string) string {
	if a, ok := actions[actionKey]; ok {
		return a.Description
	}
	return ""
}

func KnownAction(actionKey string) bool {
	_, ok := actions[actionKey]
	return ok
}

func IsPlantScoped(actionKey string) bool {
	return plantScoped[actionKey]
}

func IsPhysical(actionKey string) bool {
	return physical[actionKey]
}

// WeekKey identifies an ISO calendar week unambiguously across year
// boundaries (year*100 + week).
func WeekKey(t time.Time) int {
	year, week := t.ISOWeek()
	return year*100 + week
}

// CurrentChallenge returns the active weekly challenge: the forced one if a
// forced id is set, otherwise the challenge cycled by calendar week.
func CurrentChallenge(now time.Time) Challenge {
	mu.RLock()
	defer mu.RUnlock()
	if forcedChallengeID != 0 {
		for _, c := range challenges {
			if c.ID == forcedChallengeID {
				return c
			}
		}
	}
	_, week := now.ISOWeek()
	return challenges[week%len(challenges)]
}

// RankFor maps a lifetime score to a rank title.
func RankFor(score int) string {
	switch {
	case score < 100:
		return "Beginner"
	case score < 500:
		return "Advanced"
	case score < 1000:
		return "Pro"
	default:
		return "Master"
	}
}
