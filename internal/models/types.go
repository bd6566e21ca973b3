package models

import (
	"time"
)

// Role identifies the authenticated user type
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// SessionState tracks where a session is in its lifecycle
type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionWarning SessionState = "warning"
	SessionExpired SessionState = "expired"
)

// Session represents an authenticated user session
type Session struct {
	ID           string       `json:"id"`
	Role         Role         `json:"role"`
	PinHash      string       `json:"pin_hash"`
	State        SessionState `json:"state"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
}

// RateWindow tracks usage counts for a rate-limited action
type RateWindow struct {
	ActionKey string    `json:"action_key"`
	Count     int       `json:"count"`
	StartedAt time.Time `json:"started_at"`
}

// GenerationKind selects the prompt framing for a request
type GenerationKind string

const (
	KindDoubtSolve GenerationKind = "doubt-solver"
	KindHomework   GenerationKind = "homework"
	KindNotes      GenerationKind = "notes"
	KindQuiz       GenerationKind = "test"
	KindTranslate  GenerationKind = "translate"
	KindSimplify   GenerationKind = "simplify"
	KindStepExpand GenerationKind = "steps"
)

// GenerationOptions tunes a single generation request
type GenerationOptions struct {
	Kind          GenerationKind `json:"kind"`
	Subject       string         `json:"subject,omitempty"`
	Difficulty    string         `json:"difficulty,omitempty"`
	Class         string         `json:"class,omitempty"`
	Language      string         `json:"language,omitempty"`
	Temperature   float64        `json:"temperature,omitempty"`
	TopK          int            `json:"top_k,omitempty"`
	TopP          float64        `json:"top_p,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	QuestionCount int            `json:"question_count,omitempty"`
}

// SolutionStep is a single numbered step in a worked solution
type SolutionStep struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
}

// Solution is the structured form of a doubt/homework response
type Solution struct {
	Understanding string         `json:"understanding"`
	Steps         []SolutionStep `json:"steps"`
	Answer        string         `json:"answer"`
	Concepts      []string       `json:"concepts"`
	Tips          []string       `json:"tips"`
}

// QuestionType classifies quiz questions
type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionShort     QuestionType = "short-answer"
	QuestionLong      QuestionType = "long-answer"
	QuestionNumerical QuestionType = "numerical"
	QuestionTrueFalse QuestionType = "true-false"
)

// QuizQuestion is one parsed quiz question
type QuizQuestion struct {
	ID            string       `json:"id"`
	Question      string       `json:"question"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
	Subject       string       `json:"subject,omitempty"`
	Topic         string       `json:"topic,omitempty"`
}

// Quiz is a parsed set of questions with a derived time limit
type Quiz struct {
	Questions        []QuizQuestion `json:"questions"`
	TotalQuestions   int            `json:"total_questions"`
	TimeLimitMinutes int            `json:"time_limit_minutes"`
}

// MindMapBranch is one branch of a generated mind map
type MindMapBranch struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// MindMap is a radial outline derived from notes content
type MindMap struct {
	Central  string          `json:"central"`
	Branches []MindMapBranch `json:"branches"`
}

// SectionCategory classifies a notes section by its content
type SectionCategory string

const (
	SectionFormula SectionCategory = "formula"
	SectionExample SectionCategory = "example"
	SectionConcept SectionCategory = "concept"
	SectionGeneral SectionCategory = "general"
)

// NotesSection is one paragraph-derived section of a notes document
type NotesSection struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Category SectionCategory `json:"category"`
}

// NotesDocument is the structured form of generated study notes
type NotesDocument struct {
	ID        string         `json:"id,omitempty"`
	Title     string         `json:"title"`
	Subject   string         `json:"subject,omitempty"`
	Topic     string         `json:"topic,omitempty"`
	Sections  []NotesSection `json:"sections"`
	HTML      string         `json:"html,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// SubjectProgress tracks per-subject learning statistics
type SubjectProgress struct {
	TotalQuestions  int       `json:"total_questions"`
	CorrectAnswers  int       `json:"correct_answers"`
	TestsCompleted  int       `json:"tests_completed"`
	AverageScore    int       `json:"average_score"`
	TimeSpent       int       `json:"time_spent"`
	LastActivity    time.Time `json:"last_activity"`
	TopicsCompleted []string  `json:"topics_completed"`
	WeakAreas       []string  `json:"weak_areas"`
	StrongAreas     []string  `json:"strong_areas"`
}

// OverallProgress aggregates statistics across subjects
type OverallProgress struct {
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	TestsCompleted int       `json:"tests_completed"`
	AverageScore   int       `json:"average_score"`
	TotalTimeSpent int       `json:"total_time_spent"`
	LoginStreak    int       `json:"login_streak"`
	LastLogin      time.Time `json:"last_login"`
	TotalPoints    int       `json:"total_points"`
	Level          int       `json:"level"`
	JoinDate       time.Time `json:"join_date"`
}

// DailyProgress tracks today's counters, reset when the date changes
type DailyProgress struct {
	QuestionsToday int    `json:"questions_today"`
	TimeToday      int    `json:"time_today"`
	PointsToday    int    `json:"points_today"`
	Date           string `json:"date"`
}

// UserProgress is the full progress record for one user
type UserProgress struct {
	Subjects map[string]*SubjectProgress `json:"subjects"`
	Overall  OverallProgress             `json:"overall"`
	Daily    DailyProgress               `json:"daily"`
}

// Achievement is an unlockable badge
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
	EarnedAt    time.Time `json:"earned_at,omitempty"`
}

// QuestionResult records one evaluated test answer
type QuestionResult struct {
	QuestionID    string `json:"question_id"`
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation"`
	Subject       string `json:"subject"`
	Topic         string `json:"topic"`
}

// TestResult summarizes a completed test
type TestResult struct {
	TestID            string           `json:"test_id"`
	Category          string           `json:"category"`
	Subject           string           `json:"subject"`
	Difficulty        string           `json:"difficulty"`
	TotalQuestions    int              `json:"total_questions"`
	AnsweredQuestions int              `json:"answered_questions"`
	CorrectAnswers    int              `json:"correct_answers"`
	Score             int              `json:"score"`
	TimeSpent         int              `json:"time_spent"`
	CompletedAt       time.Time        `json:"completed_at"`
	QuestionResults   []QuestionResult `json:"question_results"`
}

// UserSettings holds per-user preferences
type UserSettings struct {
	Language         string `json:"language"`
	Theme            string `json:"theme"`
	Notifications    bool   `json:"notifications"`
	Sound            bool   `json:"sound"`
	AutoSave         bool   `json:"auto_save"`
	Difficulty       string `json:"difficulty"`
	ExplanationLevel string `json:"explanation_level"`
}

// DefaultSettings returns the settings applied to a new user
func DefaultSettings() *UserSettings {
	return &UserSettings{
		Language:         "en",
		Theme:            "light",
		Notifications:    true,
		Sound:            true,
		AutoSave:         true,
		Difficulty:       "medium",
		ExplanationLevel: "detailed",
	}
}

// CacheEntry represents a cached generation response
type CacheEntry struct {
	Prompt    string    `json:"prompt"`
	Answer    string    `json:"answer"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
