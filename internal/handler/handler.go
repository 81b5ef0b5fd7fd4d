// Package handler exposes the study subsystem as a JSON API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studyroom/internal/aggregate"
	"github.com/pavelanni/studyroom/internal/llm"
	"github.com/pavelanni/studyroom/internal/materials"
	"github.com/pavelanni/studyroom/internal/model"
	"github.com/pavelanni/studyroom/internal/quiz"
	"github.com/pavelanni/studyroom/internal/review"
	"github.com/pavelanni/studyroom/internal/store"
)

// Config holds HTTP-level settings.
type Config struct {
	SecureCookies bool
	// MaxChars is the aggregation budget used when a request does not set one.
	MaxChars int
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	resolver  *materials.Resolver
	agg       *aggregate.Aggregator
	quizzes   *quiz.Service
	scheduler *review.Scheduler
	gen       *llm.Generator
	config    Config
}

// New creates a Handler. The quiz service and scheduler are built on st.
func New(st *store.Store, r *materials.Resolver, agg *aggregate.Aggregator, gen *llm.Generator, cfg Config) *Handler {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = aggregate.DefaultMaxChars
	}
	return &Handler{
		store:     st,
		resolver:  r,
		agg:       agg,
		quizzes:   quiz.NewService(st),
		scheduler: review.NewScheduler(st),
		gen:       gen,
		config:    cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/me", h.handleMe)

		r.Get("/subjects", h.handleSubjects)
		r.Get("/subjects/{subject}/files", h.handleSubjectFiles)
		r.Get("/materials/text", h.handleFileText)

		r.Get("/resources", h.handleListResources)

		r.Get("/quizzes/{id}/questions", h.handleQuizQuestions)
		r.Get("/quizzes/{id}/attempt", h.handleMyAttempt)
		r.Get("/flashcards/{id}/cards", h.handleDeckCards)
		r.Get("/flashcards/{id}/ratings", h.handleMyRatings)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStudent))
			r.Post("/quizzes/{id}/submit", h.handleSubmitQuiz)
			r.Post("/flashcards/{id}/ratings", h.handleRateCard)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
			r.Post("/materials/aggregate", h.handleAggregate)
			r.Post("/resources", h.handleCreateResource)
			r.Post("/resources/generate", h.handleGenerateResource)
			r.Get("/resources/{id}", h.handleGetResource)
			r.Put("/resources/{id}", h.handleUpdateResource)
			r.Post("/resources/{id}/publish", h.handlePublish(true))
			r.Post("/resources/{id}/unpublish", h.handlePublish(false))
			r.Get("/quizzes/{id}/report", h.handleQuizReport)
			r.Post("/quizzes/{id}/tips", h.handleQuizTips)
			r.Get("/quizzes/{id}/export", h.handleQuizExport)
			r.Get("/flashcards/{id}/tally", h.handleDeckTally)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/admin/users", h.handleListUsers)
			r.Post("/admin/users", h.handleCreateUser)
			r.Post("/admin/users/{userID}/toggle", h.handleToggleUserActive)
			r.Put("/admin/users/{userID}/class", h.handleSetUserClass)
			r.Post("/admin/resources/upload", h.handleUploadResources)
		})
	})
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
