package gamification

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPointsForAction(t *testing.T) {
	cases := []struct {
		action string
		want   int
	}{
		{ActionWaterPlant, 10},
		{ActionFertilizePlant, 10},
		{ActionUploadPhoto, 20},
		{ActionEarlyDetection, 40},
		{ActionPreventiveAction, 25},
		{ActionUseSearch, 0},
		{ActionAddPlant, 15},
		{"NO_SUCH_ACTION", 0},
	}
	for _, tc := range cases {
		if got := PointsForAction(tc.action); got != tc.want {
			t.Fatalf("PointsForAction(%s)=%d, want %d", tc.action, got, tc.want)
		}
	}
}

func TestActionPredicates(t *testing.T) {
	if !IsPlantScoped(ActionWaterPlant) || !IsPlantScoped(ActionUploadPhoto) {
		t.Fatalf("watering and photo upload are plant scoped")
	}
	if IsPlantScoped(ActionUseSearch) || IsPlantScoped(ActionAddPlant) {
		t.Fatalf("search and add-plant are not plant scoped")
	}
	if !IsPhysical(ActionWaterPlant) || !IsPhysical(ActionFertilizePlant) {
		t.Fatalf("watering and fertilizing are physical")
	}
	if IsPhysical(ActionUploadPhoto) {
		t.Fatalf("photo upload is not physical")
	}
	if KnownAction("NO_SUCH_ACTION") {
		t.Fatalf("unknown action reported as known")
	}
}

func TestRankFor(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, "Beginner"},
		{99, "Beginner"},
		{100, "Advanced"},
		{499, "Advanced"},
		{500, "Pro"},
		{999, "Pro"},
		{1000, "Master"},
		{5000, "Master"},
	}
	for _, tc := range cases {
		if got := RankFor(tc.score); got != tc.want {
			t.Fatalf("RankFor(%d)=%q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestWeekKeyDistinguishesYears(t *testing.T) {
	a := WeekKey(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	b := WeekKey(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if a == b {
		t.Fatalf("same week number in different years must differ: %d == %d", a, b)
	}
	sameWeek := WeekKey(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	alsoSameWeek := WeekKey(time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC))
	if sameWeek != alsoSameWeek {
		t.Fatalf("days in one ISO week must share a key: %d != %d", sameWeek, alsoSameWeek)
	}
}

func TestCurrentChallengeForcedMode(t *testing.T) {
	SetChallengeMode(3)
	defer SetChallengeMode(0)

	for _, when := range []time.Time{
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC),
	} {
		if got := CurrentChallenge(when); got.ID != 3 {
			t.Fatalf("forced mode ignored: got challenge %d", got.ID)
		}
	}
}

func TestCurrentChallengeCyclesByWeek(t *testing.T) {
	SetChallengeMode(0)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, week := now.ISOWeek()
	want := defaultChallenges[week%len(defaultChallenges)].ID
	if got := CurrentChallenge(now); got.ID != want {
		t.Fatalf("calendar mode: got challenge %d, want %d", got.ID, want)
	}
}

func TestLoadChallengesFromYAML(t *testing.T) {
	defer func() {
		mu.Lock()
		challenges = defaultChallenges
		mu.Unlock()
	}()

	path := filepath.Join(t.TempDir(), "challenges.yaml")
	body := `- id: 7
  title: "Hydration Hero"
  description: "Water 5 plants."
  action_type: "WATER_PLANT"
  target: 5
  reward_points: 300
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if err := LoadChallengesFromYAML(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	SetChallengeMode(7)
	defer SetChallengeMode(0)
	got := CurrentChallenge(time.Now())
	if got.Title != "Hydration Hero" || got.RewardPoints != 300 {
		t.Fatalf("loaded challenge wrong: %+v", got)
	}
}

func TestLoadChallengesEmptyPathKeepsDefaults(t *testing.T) {
	if err := LoadChallengesFromYAML(""); err != nil {
		t.Fatalf("empty path must not error: %v", err)
	}
}
