package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/beliefatlas/apiserver/internal/services"
	"github.com/beliefatlas/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// SurveyHandler provides HTTP handlers for belief-survey responses.
type SurveyHandler struct {
	surveyService *services.SurveyService
}

func NewSurveyHandler(surveyService *services.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveyService: surveyService}
}

// SurveyRouter registers survey routes on the given router.
func SurveyRouter(r chi.Router, surveyService *services.SurveyService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSurveyHandler(surveyService)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/me", handler.ListMyResponses)
	r.Put("/me", handler.SaveResponse)
}

func (h *SurveyHandler) ListMyResponses(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	responses, err := h.surveyService.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list responses")
		return
	}
	if responses == nil {
		responses = []types.SurveyResponse{}
	}

	writeJSON(w, http.StatusOK, responses)
}

// SaveResponse records or edits one answer. Edits bump the revision
// counter and, like first submissions, trigger profile regeneration.
func (h *SurveyHandler) SaveResponse(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SurveyResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	saved, err := h.surveyService.SaveResponse(r.Context(), types.SurveyResponse{
		UserID:   userID,
		Axis:     strings.TrimSpace(req.Axis),
		Question: req.Question,
		Value:    req.Value,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

type SurveyResponseRequest struct {
	Axis     string  `json:"axis"`
	Question string  `json:"question"`
	Value    float64 `json:"value"`
}
