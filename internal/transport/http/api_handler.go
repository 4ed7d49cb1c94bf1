package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"escape-progress-service/internal/app"
	"escape-progress-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// APIHandler exposes the submission engine over JSON/HTTP.
type APIHandler struct {
	service *app.SubmissionService
	log     *logrus.Entry
}

func NewAPIHandler(service *app.SubmissionService, log *logrus.Entry) *APIHandler {
	return &APIHandler{service: service, log: log}
}

// Register wires the API routes onto the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/game/start", h.handleStart)
	mux.HandleFunc("POST /api/game/submit", h.handleSubmit)
	mux.HandleFunc("POST /api/game/final", h.handleFinal)
	mux.HandleFunc("GET /api/game/progress/{teamId}", h.handleProgress)
	mux.HandleFunc("POST /api/quiz/{link}/submit", h.handleQuizSubmit)
	mux.HandleFunc("GET /api/quiz/{link}/results", h.handleQuizResults)
}

type submitRequest struct {
	TeamID      string `json:"teamId"`
	StageNumber int    `json:"stageNumber"`
	Answer      string `json:"answer"`
	// UnlockedStages is accepted for wire compatibility with older clients.
	// It is advisory UI state; unlock decisions come from persisted progress.
	UnlockedStages []int `json:"unlockedStages,omitempty"`
}

func (h *APIHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" || req.StageNumber < 1 {
		writeError(w, http.StatusBadRequest, "teamId and stageNumber are required")
		return
	}

	result, err := h.service.Submit(r.Context(), req.TeamID, req.StageNumber, req.Answer)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeResult(w, result)
}

type finalRequest struct {
	TeamID string `json:"teamId"`
	Code   string `json:"code"`
}

func (h *APIHandler) handleFinal(w http.ResponseWriter, r *http.Request) {
	var req finalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" {
		writeError(w, http.StatusBadRequest, "teamId is required")
		return
	}

	result, err := h.service.SubmitFinalCode(r.Context(), req.TeamID, req.Code)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeResult(w, result)
}

type startRequest struct {
	TeamID string `json:"teamId"`
}

func (h *APIHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" {
		writeError(w, http.StatusBadRequest, "teamId is required")
		return
	}

	view, err := h.service.StartProgress(r.Context(), req.TeamID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) handleProgress(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Progress(r.Context(), r.PathValue("teamId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type quizSubmitRequest struct {
	TeamID    string            `json:"teamId"`
	StartedAt time.Time         `json:"startedAt,omitempty"`
	Answers   []quizAnswerInput `json:"answers"`
}

type quizAnswerInput struct {
	Order     int    `json:"order"`
	Answer    string `json:"answer"`
	TimeSpent int    `json:"timeSpent,omitempty"`
}

func (h *APIHandler) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	var req quizSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" || len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "teamId and answers are required")
		return
	}

	answers := make([]app.QuizAnswerInput, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, app.QuizAnswerInput{Order: a.Order, Answer: a.Answer, TimeSpent: a.TimeSpent})
	}

	result, reason, err := h.service.SubmitQuiz(r.Context(), app.QuizSubmission{
		Link:      r.PathValue("link"),
		TeamID:    req.TeamID,
		StartedAt: req.StartedAt,
		Answers:   answers,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if reason != "" {
		writeJSON(w, statusForReason(reason), domain.Rejected(reason))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type quizResultView struct {
	TeamID         string    `json:"teamId"`
	Score          int       `json:"score"`
	Percentage     int       `json:"percentage"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

func (h *APIHandler) handleQuizResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.QuizResults(r.Context(), r.PathValue("link"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	views := make([]quizResultView, 0, len(results))
	for _, result := range results {
		views = append(views, quizResultView{
			TeamID:         result.TeamID,
			Score:          result.Score,
			Percentage:     result.Percentage,
			TotalQuestions: len(result.Answers),
			SubmittedAt:    result.SubmittedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *APIHandler) writeResult(w http.ResponseWriter, result domain.SubmitResult) {
	status := http.StatusOK
	if !result.Accepted {
		status = statusForReason(result.Reason)
	}
	writeJSON(w, status, result)
}

// writeServiceError separates client-correctable not-found errors from store
// faults, which surface as a generic failure for this request only.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrTeamNotFound),
		errors.Is(err, domain.ErrProgressNotStarted),
		errors.Is(err, domain.ErrStageSetNotFound),
		errors.Is(err, domain.ErrStageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func statusForReason(reason domain.ReasonCode) int {
	switch reason {
	case domain.ReasonRateLimited, domain.ReasonAlreadyCompletedRecently:
		return http.StatusTooManyRequests
	case domain.ReasonLocked:
		return http.StatusForbidden
	case domain.ReasonTeamNotFound, domain.ReasonProgressNotStarted:
		return http.StatusNotFound
	case domain.ReasonAlreadySubmitted:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

type errorPayload struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
