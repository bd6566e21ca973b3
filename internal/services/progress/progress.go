package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/storage"
)

// Points awarded per activity
const (
	PointsQuestionSolved = 10
	PointsTestCompleted  = 50
	PointsDailyLogin     = 5
	PointsStreakBonus    = 20
	PointsLevelUpBonus   = 100

	pointsPerLevel = 500
	streakBonusMin = 7
)

// Achievement IDs
const (
	AchievementFirstQuestion = "first_question"
	AchievementStreak7       = "streak_7"
	AchievementTopPerformer  = "top_performer"
	AchievementQuickLearner  = "quick_learner"
	AchievementMathMaster    = "math_master"
	AchievementSpeedSolver   = "speed_solver"
	AchievementKnowledgeKing = "knowledge_king"
)

// catalog lists every unlockable achievement
var catalog = map[string]models.Achievement{
	AchievementFirstQuestion: {ID: AchievementFirstQuestion, Name: "First Steps", Description: "Solve your first question", Points: 50},
	AchievementStreak7:       {ID: AchievementStreak7, Name: "7-Day Streak", Description: "Study for 7 consecutive days", Points: 100},
	AchievementTopPerformer:  {ID: AchievementTopPerformer, Name: "Top Performer", Description: "Score above 90% in 5 tests", Points: 200},
	AchievementQuickLearner:  {ID: AchievementQuickLearner, Name: "Quick Learner", Description: "Complete 10 lessons in a day", Points: 150},
	AchievementMathMaster:    {ID: AchievementMathMaster, Name: "Math Master", Description: "Score 95%+ in 3 math tests", Points: 300},
	AchievementSpeedSolver:   {ID: AchievementSpeedSolver, Name: "Speed Solver", Description: "Solve 50 questions in an hour", Points: 250},
	AchievementKnowledgeKing: {ID: AchievementKnowledgeKing, Name: "Knowledge King", Description: "Master all subjects", Points: 500},
}

// Catalog returns the full achievement catalog
func Catalog() []models.Achievement {
	out := make([]models.Achievement, 0, len(catalog))
	for _, id := range []string{
		AchievementFirstQuestion, AchievementStreak7, AchievementTopPerformer,
		AchievementQuickLearner, AchievementMathMaster, AchievementSpeedSolver,
		AchievementKnowledgeKing,
	} {
		out = append(out, catalog[id])
	}
	return out
}

// Service tracks learning progress, points, levels, streaks and
// achievements for each user.
type Service struct {
	storage  storage.Storage
	subjects []string
	logger   *logrus.Logger

	now func() time.Time
}

// NewService creates a progress tracker. subjects is the full catalog
// of subject IDs, used by the all-subjects-mastered achievement.
func NewService(store storage.Storage, subjects []string, logger *logrus.Logger) *Service {
	return &Service{
		storage:  store,
		subjects: subjects,
		logger:   logger,
		now:      time.Now,
	}
}

// defaultProgress returns a zeroed record for a new user
func (s *Service) defaultProgress() *models.UserProgress {
	now := s.now()
	return &models.UserProgress{
		Subjects: map[string]*models.SubjectProgress{},
		Overall: models.OverallProgress{
			Level:    1,
			JoinDate: now,
		},
		Daily: models.DailyProgress{
			Date: dateKey(now),
		},
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Get loads a user's progress, creating a zeroed record on first use
func (s *Service) Get(ctx context.Context, userKey string) (*models.UserProgress, error) {
	p, err := s.storage.GetProgress(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if p == nil {
		p = s.defaultProgress()
	}
	if p.Subjects == nil {
		p.Subjects = map[string]*models.SubjectProgress{}
	}
	return p, nil
}

// Achievements returns the achievements a user has earned
func (s *Service) Achievements(ctx context.Context, userKey string) ([]models.Achievement, error) {
	earned, err := s.storage.GetAchievements(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	if earned == nil {
		earned = []models.Achievement{}
	}
	return earned, nil
}

// AwardPoints adds points to the running total and today's counter,
// and applies a level-up bonus when the total crosses a level boundary.
func (s *Service) AwardPoints(ctx context.Context, userKey string, points int, reason string) error {
	p, err := s.Get(ctx, userKey)
	if err != nil {
		return err
	}

	s.awardPointsLocked(p, points, reason)

	return s.storage.SaveProgress(ctx, userKey, p)
}

// awardPointsLocked mutates an already-loaded record. Callers persist.
func (s *Service) awardPointsLocked(p *models.UserProgress, points int, reason string) {
	p.Overall.TotalPoints += points

	today := dateKey(s.now())
	if p.Daily.Date == today {
		p.Daily.PointsToday += points
	} else {
		p.Daily = models.DailyProgress{PointsToday: points, Date: today}
	}

	s.logger.WithFields(logrus.Fields{
		"points": points,
		"reason": reason,
		"total":  p.Overall.TotalPoints,
	}).Debug("Points awarded")

	s.checkLevelUp(p)
}

// checkLevelUp promotes the user one level per 500 points and awards a
// level-up bonus, which may itself trigger another promotion.
func (s *Service) checkLevelUp(p *models.UserProgress) {
	current := p.Overall.Level
	if current < 1 {
		current = 1
	}
	newLevel := p.Overall.TotalPoints/pointsPerLevel + 1

	if newLevel > current {
		p.Overall.Level = newLevel
		s.logger.WithField("level", newLevel).Info("Level up")
		s.awardPointsLocked(p, PointsLevelUpBonus, "Level Up Bonus")
	}
}

// TrackQuestionAsked counts a doubt-solver ask: activity timestamps,
// today's question counter, ask points and question-count achievements.
// Asks carry no verdict, so correctness statistics are left alone; those
// are fed by evaluated test answers via TrackTestCompleted.
func (s *Service) TrackQuestionAsked(ctx context.Context, userKey, subject string) (*models.UserProgress, error) {
	p, err := s.Get(ctx, userKey)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sp, ok := p.Subjects[subject]; ok {
		sp.LastActivity = now
	}
	s.bumpDailyQuestions(p, now, 0)
	s.awardPointsLocked(p, PointsQuestionSolved, "Question Solved")

	if err := s.storage.SaveProgress(ctx, userKey, p); err != nil {
		return nil, err
	}

	if err := s.checkQuestionAchievements(ctx, userKey, p); err != nil {
		s.logger.WithError(err).Warn("Achievement check failed")
	}

	return p, nil
}

// recordAnswer folds one evaluated answer into the overall and, when the
// subject is known, per-subject statistics. Callers persist.
func (s *Service) recordAnswer(p *models.UserProgress, subject string, isCorrect bool, timeSpent int, now time.Time) {
	if subject != "" && subject != "mixed" {
		sp, ok := p.Subjects[subject]
		if !ok {
			sp = &models.SubjectProgress{
				TopicsCompleted: []string{},
				WeakAreas:       []string{},
				StrongAreas:     []string{},
			}
			p.Subjects[subject] = sp
		}

		sp.TotalQuestions++
		if isCorrect {
			sp.CorrectAnswers++
		}
		sp.TimeSpent += timeSpent
		sp.LastActivity = now
		sp.AverageScore = roundPercent(sp.CorrectAnswers, sp.TotalQuestions)
	}

	p.Overall.TotalQuestions++
	if isCorrect {
		p.Overall.CorrectAnswers++
	}
	p.Overall.TotalTimeSpent += timeSpent
	p.Overall.AverageScore = roundPercent(p.Overall.CorrectAnswers, p.Overall.TotalQuestions)

	s.bumpDailyQuestions(p, now, timeSpent)
}

// bumpDailyQuestions advances today's counters, rolling the record over
// when the date has changed.
func (s *Service) bumpDailyQuestions(p *models.UserProgress, now time.Time, timeSpent int) {
	today := dateKey(now)
	if p.Daily.Date == today {
		p.Daily.QuestionsToday++
		p.Daily.TimeToday += timeSpent
	} else {
		p.Daily = models.DailyProgress{QuestionsToday: 1, TimeToday: timeSpent, Date: today}
	}
}

// TrackTestCompleted updates statistics after a test: every graded
// answer is folded into the per-question counters with its real verdict,
// test points are awarded, per-topic performance is analyzed into
// weak/strong areas, and achievements are evaluated.
func (s *Service) TrackTestCompleted(ctx context.Context, userKey string, result *models.TestResult) (*models.UserProgress, error) {
	p, err := s.Get(ctx, userKey)
	if err != nil {
		return nil, err
	}

	subject := result.Subject
	if subject == "" {
		subject = "mixed"
	}

	now := s.now()
	for _, qr := range result.QuestionResults {
		qSubject := qr.Subject
		if qSubject == "" {
			qSubject = subject
		}
		s.recordAnswer(p, qSubject, qr.IsCorrect, 0, now)
	}
	p.Overall.TotalTimeSpent += result.TimeSpent

	if subject != "mixed" {
		sp, ok := p.Subjects[subject]
		if !ok {
			sp = &models.SubjectProgress{
				TopicsCompleted: []string{},
				WeakAreas:       []string{},
				StrongAreas:     []string{},
			}
			p.Subjects[subject] = sp
		}
		sp.TestsCompleted++
		sp.TimeSpent += result.TimeSpent
		sp.LastActivity = now
	}

	p.Overall.TestsCompleted++

	s.analyzeTestPerformance(p, result)
	s.awardPointsLocked(p, PointsTestCompleted, "Test Completed")

	if err := s.storage.SaveProgress(ctx, userKey, p); err != nil {
		return nil, err
	}

	if err := s.checkQuestionAchievements(ctx, userKey, p); err != nil {
		s.logger.WithError(err).Warn("Achievement check failed")
	}
	if err := s.checkTestAchievements(ctx, userKey, p, result); err != nil {
		s.logger.WithError(err).Warn("Achievement check failed")
	}

	return p, nil
}

// analyzeTestPerformance sorts topics into weak (<60% accuracy) and
// strong (>=80%) areas. Strong topics also count as completed.
func (s *Service) analyzeTestPerformance(p *models.UserProgress, result *models.TestResult) {
	type perf struct {
		correct int
		total   int
		subject string
	}
	topics := map[string]*perf{}

	for _, qr := range result.QuestionResults {
		if qr.Topic == "" {
			continue
		}
		tp, ok := topics[qr.Topic]
		if !ok {
			tp = &perf{subject: qr.Subject}
			topics[qr.Topic] = tp
		}
		tp.total++
		if qr.IsCorrect {
			tp.correct++
		}
	}

	for topic, tp := range topics {
		sp, ok := p.Subjects[tp.subject]
		if !ok {
			continue
		}

		accuracy := float64(tp.correct) / float64(tp.total)
		switch {
		case accuracy < 0.6:
			sp.WeakAreas = appendUnique(sp.WeakAreas, topic)
			sp.StrongAreas = removeString(sp.StrongAreas, topic)
		case accuracy >= 0.8:
			sp.StrongAreas = appendUnique(sp.StrongAreas, topic)
			sp.WeakAreas = removeString(sp.WeakAreas, topic)
			sp.TopicsCompleted = appendUnique(sp.TopicsCompleted, topic)
		}
	}
}

// CheckDailyLogin advances the login streak on the first login of a
// new day: a consecutive-day login extends the streak, anything else
// resets it to one. Awards daily login points plus a streak bonus at
// seven days and up.
func (s *Service) CheckDailyLogin(ctx context.Context, userKey string) (*models.UserProgress, error) {
	p, err := s.Get(ctx, userKey)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := dateKey(now)
	lastLogin := dateKey(p.Overall.LastLogin)

	if lastLogin == today {
		return p, nil
	}

	yesterday := dateKey(now.AddDate(0, 0, -1))
	if lastLogin == yesterday {
		p.Overall.LoginStreak++
	} else {
		p.Overall.LoginStreak = 1
	}
	p.Overall.LastLogin = now

	s.awardPointsLocked(p, PointsDailyLogin, "Daily Login")
	if p.Overall.LoginStreak >= streakBonusMin {
		s.awardPointsLocked(p, PointsStreakBonus, fmt.Sprintf("%d-Day Streak", p.Overall.LoginStreak))
	}

	if err := s.storage.SaveProgress(ctx, userKey, p); err != nil {
		return nil, err
	}

	if p.Overall.LoginStreak >= streakBonusMin {
		if err := s.unlockAchievement(ctx, userKey, AchievementStreak7); err != nil {
			s.logger.WithError(err).Warn("Achievement check failed")
		}
	}

	return p, nil
}

// unlockAchievement records an achievement with its earned timestamp
// and awards its points. Already-earned achievements are a no-op.
func (s *Service) unlockAchievement(ctx context.Context, userKey, id string) error {
	achievement, ok := catalog[id]
	if !ok {
		return fmt.Errorf("unknown achievement %q", id)
	}

	earned, err := s.Achievements(ctx, userKey)
	if err != nil {
		return err
	}
	for _, a := range earned {
		if a.ID == id {
			return nil
		}
	}

	achievement.EarnedAt = s.now()
	earned = append(earned, achievement)

	if err := s.storage.SaveAchievements(ctx, userKey, earned); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"achievement": achievement.Name,
		"points":      achievement.Points,
	}).Info("Achievement unlocked")

	return s.AwardPoints(ctx, userKey, achievement.Points, "Achievement: "+achievement.Name)
}

func (s *Service) checkQuestionAchievements(ctx context.Context, userKey string, p *models.UserProgress) error {
	// Asks count here too, so the first doubt ever asked unlocks this
	// even before any test is graded.
	if p.Overall.TotalQuestions >= 1 || p.Daily.QuestionsToday >= 1 {
		if err := s.unlockAchievement(ctx, userKey, AchievementFirstQuestion); err != nil {
			return err
		}
	}

	if p.Daily.Date == dateKey(s.now()) && p.Daily.QuestionsToday >= 10 {
		if err := s.unlockAchievement(ctx, userKey, AchievementQuickLearner); err != nil {
			return err
		}
	}

	if p.Daily.QuestionsToday >= 50 {
		if err := s.unlockAchievement(ctx, userKey, AchievementSpeedSolver); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) checkTestAchievements(ctx context.Context, userKey string, p *models.UserProgress, result *models.TestResult) error {
	history, err := s.storage.GetTestHistory(ctx, userKey)
	if err != nil {
		return err
	}

	if result.Score >= 90 {
		highScores := 0
		for _, t := range history {
			if t.Score >= 90 {
				highScores++
			}
		}
		if highScores >= 5 {
			if err := s.unlockAchievement(ctx, userKey, AchievementTopPerformer); err != nil {
				return err
			}
		}
	}

	if result.Subject == "mathematics" && result.Score >= 95 {
		mathHighScores := 0
		for _, t := range history {
			if t.Subject == "mathematics" && t.Score >= 95 {
				mathHighScores++
			}
		}
		if mathHighScores >= 3 {
			if err := s.unlockAchievement(ctx, userKey, AchievementMathMaster); err != nil {
				return err
			}
		}
	}

	mastered := 0
	for _, sp := range p.Subjects {
		if sp.AverageScore >= 85 && sp.TestsCompleted >= 3 {
			mastered++
		}
	}
	if len(s.subjects) > 0 && mastered >= len(s.subjects) {
		if err := s.unlockAchievement(ctx, userKey, AchievementKnowledgeKing); err != nil {
			return err
		}
	}

	return nil
}

func roundPercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func removeString(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
