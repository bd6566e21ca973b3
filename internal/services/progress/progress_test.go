package progress

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/storage"
)

func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := storage.NewManager(&config.Config{
		Storage: config.StorageConfig{Type: "memory"},
	}, logger)
	require.NoError(t, err)

	svc := NewService(store, []string{"mathematics", "science"}, logger)

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return svc, &now
}

func TestTrackQuestionAsked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.TrackQuestionAsked(ctx, "student", "mathematics")
	require.NoError(t, err)

	assert.Equal(t, 1, p.Daily.QuestionsToday)

	// Asks have no graded answer, so correctness stays untouched and no
	// subject ends up with a 100% average from doubts alone.
	assert.Equal(t, 0, p.Overall.TotalQuestions)
	assert.Equal(t, 0, p.Overall.CorrectAnswers)
	assert.Equal(t, 0, p.Overall.AverageScore)
	assert.NotContains(t, p.Subjects, "mathematics")

	// Question points plus the first-question achievement bonus.
	final, err := svc.Get(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, PointsQuestionSolved+50, final.Overall.TotalPoints)

	earned, err := svc.Achievements(ctx, "student")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, AchievementFirstQuestion, earned[0].ID)
}

func TestGradedAnswersDriveAverageScore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result := &models.TestResult{
		Subject: "science",
		Score:   67,
		QuestionResults: []models.QuestionResult{
			{Subject: "science", IsCorrect: true},
			{Subject: "science", IsCorrect: false},
			{Subject: "science", IsCorrect: true},
		},
	}

	p, err := svc.TrackTestCompleted(ctx, "science", result)
	require.NoError(t, err)

	sp := p.Subjects["science"]
	require.NotNil(t, sp)
	assert.Equal(t, 3, sp.TotalQuestions)
	assert.Equal(t, 2, sp.CorrectAnswers)
	assert.Equal(t, 67, sp.AverageScore)
	assert.Equal(t, 67, p.Overall.AverageScore)
}

func TestLevelUpAwardsBonus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AwardPoints(ctx, "student", 495, "seed"))

	p, err := svc.Get(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Overall.Level)

	require.NoError(t, svc.AwardPoints(ctx, "student", 10, "crossing"))

	p, err = svc.Get(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Overall.Level)
	assert.Equal(t, 495+10+PointsLevelUpBonus, p.Overall.TotalPoints)
}

func TestCheckDailyLogin_StreakProgression(t *testing.T) {
	svc, now := newTestService(t)
	ctx := context.Background()

	p, err := svc.CheckDailyLogin(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Overall.LoginStreak)
	assert.Equal(t, PointsDailyLogin, p.Overall.TotalPoints)

	// A second login on the same day changes nothing.
	p, err = svc.CheckDailyLogin(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Overall.LoginStreak)
	assert.Equal(t, PointsDailyLogin, p.Overall.TotalPoints)

	// Consecutive days extend the streak.
	*now = now.AddDate(0, 0, 1)
	p, err = svc.CheckDailyLogin(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Overall.LoginStreak)

	// Skipping a day resets it.
	*now = now.AddDate(0, 0, 2)
	p, err = svc.CheckDailyLogin(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Overall.LoginStreak)
}

func TestCheckDailyLogin_SevenDayStreak(t *testing.T) {
	svc, now := newTestService(t)
	ctx := context.Background()

	var p *models.UserProgress
	var err error
	for day := 0; day < 7; day++ {
		if day > 0 {
			*now = now.AddDate(0, 0, 1)
		}
		p, err = svc.CheckDailyLogin(ctx, "student")
		require.NoError(t, err)
	}

	assert.Equal(t, 7, p.Overall.LoginStreak)

	earned, err := svc.Achievements(ctx, "student")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, AchievementStreak7, earned[0].ID)

	// 7 daily logins, the day-7 streak bonus, and the achievement points.
	final, err := svc.Get(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 7*PointsDailyLogin+PointsStreakBonus+100, final.Overall.TotalPoints)
}

func TestTrackTestCompleted_WeakAndStrongAreas(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result := &models.TestResult{
		Subject: "mathematics",
		Score:   50,
		QuestionResults: []models.QuestionResult{
			{Subject: "mathematics", Topic: "Triangles", IsCorrect: false},
			{Subject: "mathematics", Topic: "Triangles", IsCorrect: false},
			{Subject: "mathematics", Topic: "Polynomials", IsCorrect: true},
			{Subject: "mathematics", Topic: "Polynomials", IsCorrect: true},
		},
	}

	p, err := svc.TrackTestCompleted(ctx, "student", result)
	require.NoError(t, err)

	sp := p.Subjects["mathematics"]
	require.NotNil(t, sp)
	assert.Equal(t, 1, sp.TestsCompleted)
	assert.Contains(t, sp.WeakAreas, "Triangles")
	assert.Contains(t, sp.StrongAreas, "Polynomials")
	assert.Contains(t, sp.TopicsCompleted, "Polynomials")
	assert.Equal(t, 1, p.Overall.TestsCompleted)

	// Per-question counters reflect the real verdicts from the test.
	assert.Equal(t, 4, sp.TotalQuestions)
	assert.Equal(t, 2, sp.CorrectAnswers)
	assert.Equal(t, 50, sp.AverageScore)
	assert.Equal(t, 4, p.Overall.TotalQuestions)
	assert.Equal(t, 2, p.Overall.CorrectAnswers)
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 0, roundPercent(1, 0))
	assert.Equal(t, 50, roundPercent(1, 2))
	assert.Equal(t, 67, roundPercent(2, 3))
	assert.Equal(t, 33, roundPercent(1, 3))
}
