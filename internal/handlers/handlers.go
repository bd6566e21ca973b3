package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/auth"
	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/i18n"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/ai"
	"github.com/smartpath-ai-go/internal/services/cache"
	"github.com/smartpath-ai-go/internal/services/notes"
	"github.com/smartpath-ai-go/internal/services/progress"
	"github.com/smartpath-ai-go/internal/services/storage"
	"github.com/smartpath-ai-go/internal/services/tests"
)

// Handler wires every HTTP endpoint to its backing service
type Handler struct {
	cfg          *config.Config
	guard        *auth.Guard
	orchestrator *ai.Orchestrator
	notes        *notes.Service
	tests        *tests.Service
	progress     *progress.Service
	cache        cache.Service
	storage      storage.Storage
	localizer    *i18n.Localizer
	logger       *logrus.Logger
}

func NewHandler(
	cfg *config.Config,
	guard *auth.Guard,
	orchestrator *ai.Orchestrator,
	notesService *notes.Service,
	testsService *tests.Service,
	progressService *progress.Service,
	cacheService cache.Service,
	store storage.Storage,
	localizer *i18n.Localizer,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		cfg:          cfg,
		guard:        guard,
		orchestrator: orchestrator,
		notes:        notesService,
		tests:        testsService,
		progress:     progressService,
		cache:        cacheService,
		storage:      store,
		localizer:    localizer,
		logger:       logger,
	}
}

// Router builds the API router
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.loggingMiddleware)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.requireSession(h.handleLogout)).Methods(http.MethodPost)
	api.HandleFunc("/auth/session", h.requireSession(h.handleSession)).Methods(http.MethodGet)

	api.HandleFunc("/subjects", h.handleSubjects).Methods(http.MethodGet)

	api.HandleFunc("/ask", h.requireSession(h.handleAsk)).Methods(http.MethodPost)
	api.HandleFunc("/ask/image", h.requireSession(h.handleImageQuestion)).Methods(http.MethodPost)
	api.HandleFunc("/homework", h.requireSession(h.handleHomework)).Methods(http.MethodPost)

	api.HandleFunc("/notes", h.requireSession(h.handleGenerateNotes)).Methods(http.MethodPost)
	api.HandleFunc("/notes", h.requireSession(h.handleListNotes)).Methods(http.MethodGet)
	api.HandleFunc("/notes/{id}", h.requireSession(h.handleGetNote)).Methods(http.MethodGet)
	api.HandleFunc("/notes/{id}", h.requireSession(h.handleDeleteNote)).Methods(http.MethodDelete)

	api.HandleFunc("/quiz", h.requireSession(h.handleQuiz)).Methods(http.MethodPost)

	api.HandleFunc("/tests/start", h.requireSession(h.handleStartTest)).Methods(http.MethodPost)
	api.HandleFunc("/tests/{id}/submit", h.requireSession(h.handleSubmitTest)).Methods(http.MethodPost)
	api.HandleFunc("/tests/history", h.requireSession(h.handleTestHistory)).Methods(http.MethodGet)

	api.HandleFunc("/progress", h.requireSession(h.handleProgress)).Methods(http.MethodGet)
	api.HandleFunc("/achievements", h.requireSession(h.handleAchievements)).Methods(http.MethodGet)

	api.HandleFunc("/settings", h.requireSession(h.handleGetSettings)).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.requireSession(h.handleSaveSettings)).Methods(http.MethodPut)

	api.HandleFunc("/admin/cache/clear", h.requireAdmin(h.handleClearCache)).Methods(http.MethodPost)

	api.HandleFunc("/translate", h.requireSession(h.handleTranslate)).Methods(http.MethodPost)
	api.HandleFunc("/simplify", h.requireSession(h.handleSimplify)).Methods(http.MethodPost)
	api.HandleFunc("/steps", h.requireSession(h.handleSteps)).Methods(http.MethodPost)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondData(w, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Pin string `json:"pin"`
}

type loginResponse struct {
	Token string      `json:"token"`
	Role  models.Role `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req loginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	session, err := h.guard.SubmitCredential(r.Context(), req.Pin)
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	if _, err := h.progress.CheckDailyLogin(r.Context(), string(session.Role)); err != nil {
		h.logger.WithError(err).Warn("Daily login check failed")
	}

	h.respondMessage(w, loginResponse{Token: session.ID, Role: session.Role}, lang, i18n.MsgWelcome)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)
	if err := h.guard.Logout(r.Context(), sessionFrom(r).ID); err != nil {
		h.respondError(w, lang, err)
		return
	}
	h.respondMessage(w, nil, lang, i18n.MsgLoggedOut)
}

type sessionResponse struct {
	Role         models.Role         `json:"role"`
	State        models.SessionState `json:"state"`
	CreatedAt    string              `json:"created_at"`
	LastActivity string              `json:"last_activity"`
}

// handleSession reports the current session state so the client can
// surface the idle-timeout warning.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	resp := sessionResponse{
		Role:         session.Role,
		State:        session.State,
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
		LastActivity: session.LastActivity.Format(time.RFC3339),
	}

	if session.State == models.SessionWarning {
		h.respond(w, http.StatusOK, Response{
			Success:  true,
			Data:     resp,
			Message:  h.localizer.Get(requestLanguage(r), i18n.MsgSessionWarning, nil),
			Severity: SeverityWarning,
		})
		return
	}

	h.respondData(w, resp)
}

type subjectInfo struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	NameHi string   `json:"name_hi,omitempty"`
	Color  string   `json:"color,omitempty"`
	Topics []string `json:"topics"`
}

func (h *Handler) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects := make([]subjectInfo, 0, len(h.cfg.Subjects))
	for id, s := range h.cfg.Subjects {
		subjects = append(subjects, subjectInfo{
			ID:     id,
			Name:   s.Name,
			NameHi: s.NameHi,
			Color:  s.Color,
			Topics: s.Topics,
		})
	}
	h.respondData(w, subjects)
}

type askRequest struct {
	Question   string `json:"question"`
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Class      string `json:"class"`
	Language   string `json:"language"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req askRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.orchestrator.AskQuestion(r.Context(), userKeyFrom(r), req.Question, models.GenerationOptions{
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
		Class:      req.Class,
		Language:   req.Language,
	})
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	// An ask has no graded answer, so it earns points without touching
	// correctness statistics.
	if _, err := h.progress.TrackQuestionAsked(r.Context(), userKeyFrom(r), req.Subject); err != nil {
		h.logger.WithError(err).Warn("Failed to track question")
	}

	h.respondMessage(w, result, lang, i18n.MsgQuestionSolved)
}

type imageQuestionRequest struct {
	ExtractedText string `json:"extracted_text"`
	Subject       string `json:"subject"`
	Language      string `json:"language"`
}

func (h *Handler) handleImageQuestion(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req imageQuestionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.orchestrator.ProcessImageQuestion(r.Context(), userKeyFrom(r), req.ExtractedText, models.GenerationOptions{
		Subject:  req.Subject,
		Language: req.Language,
	})
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	if _, err := h.progress.TrackQuestionAsked(r.Context(), userKeyFrom(r), req.Subject); err != nil {
		h.logger.WithError(err).Warn("Failed to track question")
	}

	h.respondMessage(w, result, lang, i18n.MsgQuestionSolved)
}

type homeworkRequest struct {
	Problem  string `json:"problem"`
	Subject  string `json:"subject"`
	Class    string `json:"class"`
	Language string `json:"language"`
}

func (h *Handler) handleHomework(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req homeworkRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.orchestrator.SolveHomework(r.Context(), userKeyFrom(r), req.Problem, models.GenerationOptions{
		Subject:  req.Subject,
		Class:    req.Class,
		Language: req.Language,
	})
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondMessage(w, result, lang, i18n.MsgQuestionSolved)
}

type notesRequest struct {
	Subject  string `json:"subject"`
	Topic    string `json:"topic"`
	Class    string `json:"class"`
	Language string `json:"language"`
}

func (h *Handler) handleGenerateNotes(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req notesRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.notes.Generate(r.Context(), userKeyFrom(r), req.Subject, req.Topic, models.GenerationOptions{
		Class:    req.Class,
		Language: req.Language,
	})
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondMessage(w, result, lang, i18n.MsgNoteGenerated)
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := h.notes.List(r.Context(), userKeyFrom(r))
	if err != nil {
		h.respondError(w, requestLanguage(r), err)
		return
	}
	h.respondData(w, list)
}

func (h *Handler) handleGetNote(w http.ResponseWriter, r *http.Request) {
	doc, err := h.notes.Get(r.Context(), userKeyFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, requestLanguage(r), err)
		return
	}
	h.respondData(w, doc)
}

func (h *Handler) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), userKeyFrom(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, requestLanguage(r), err)
		return
	}
	h.respondData(w, nil)
}

type quizRequest struct {
	Subject       string `json:"subject"`
	Topic         string `json:"topic"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"question_count"`
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req quizRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	quiz, err := h.orchestrator.CreateQuiz(r.Context(), userKeyFrom(r), req.Subject, req.Topic, models.GenerationOptions{
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondMessage(w, quiz, lang, i18n.MsgQuizGenerated)
}

type startTestRequest struct {
	Category      string `json:"category"`
	Subject       string `json:"subject"`
	Topic         string `json:"topic"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"question_count"`
}

func (h *Handler) handleStartTest(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req startTestRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	test, err := h.tests.StartTest(r.Context(), userKeyFrom(r), req.Category, req.Subject, req.Topic, req.Difficulty, req.QuestionCount)
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondData(w, test)
}

type submitTestRequest struct {
	Answers map[string]string `json:"answers"`
}

func (h *Handler) handleSubmitTest(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req submitTestRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.tests.Submit(r.Context(), userKeyFrom(r), mux.Vars(r)["id"], req.Answers)
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondMessage(w, result, lang, i18n.MsgTestCompleted)
}

func (h *Handler) handleTestHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.tests.History(r.Context(), userKeyFrom(r))
	if err != nil {
		h.respondError(w, requestLanguage(r), err)
		return
	}
	h.respondData(w, history)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.progress.Get(r.Context(), userKeyFrom(r))
	if err != nil {
		h.respondError(w, requestLanguage(r), err)
		return
	}
	h.respondData(w, p)
}

type achievementsResponse struct {
	Earned  []models.Achievement `json:"earned"`
	Catalog []models.Achievement `json:"catalog"`
}

func (h *Handler) handleAchievements(w http.ResponseWriter, r *http.Request) {
	earned, err := h.progress.Achievements(r.Context(), userKeyFrom(r))
	if err != nil {
		h.respondError(w, requestLanguage(r), err)
		return
	}
	h.respondData(w, achievementsResponse{Earned: earned, Catalog: progress.Catalog()})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.storage.GetSettings(r.Context(), userKeyFrom(r))
	if err != nil {
		h.respondError(w, requestLanguage(r), err)
		return
	}
	if settings == nil {
		settings = models.DefaultSettings()
	}
	h.respondData(w, settings)
}

func (h *Handler) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var settings models.UserSettings
	if !h.decodeBody(w, r, &settings) {
		return
	}

	if err := h.storage.SaveSettings(r.Context(), userKeyFrom(r), &settings); err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondMessage(w, settings, lang, i18n.MsgSettingsSaved)
}

func (h *Handler) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		h.respondError(w, requestLanguage(r), err)
		return
	}
	h.respondData(w, map[string]string{"status": "cleared"})
}

type transformRequest struct {
	Content        string `json:"content"`
	TargetLanguage string `json:"target_language"`
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req transformRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.orchestrator.Translate(r.Context(), userKeyFrom(r), req.Content, req.TargetLanguage)
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondData(w, result)
}

func (h *Handler) handleSimplify(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req transformRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.orchestrator.Simplify(r.Context(), userKeyFrom(r), req.Content)
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondData(w, result)
}

func (h *Handler) handleSteps(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	var req transformRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.orchestrator.ExpandSteps(r.Context(), userKeyFrom(r), req.Content)
	if err != nil {
		h.respondError(w, lang, err)
		return
	}

	h.respondData(w, result)
}
