package services

import (
	"context"
	"fmt"

	"github.com/beliefatlas/apiserver/internal/mq"
	"github.com/beliefatlas/apiserver/types"
	"go.uber.org/zap"
)

// SurveyRepository defines persistence operations for survey responses.
type SurveyRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.SurveyResponse, error)
	Upsert(ctx context.Context, resp types.SurveyResponse) (types.SurveyResponse, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// SurveyService encapsulates belief-survey use-cases. Saving or
// editing an answer publishes a regeneration event so the worker
// recomputes the profile from the full response set.
type SurveyService struct {
	repo SurveyRepository
	bus  *mq.MQ
	log  *zap.SugaredLogger
}

func NewSurveyService(repo SurveyRepository, bus *mq.MQ, log *zap.SugaredLogger) *SurveyService {
	return &SurveyService{repo: repo, bus: bus, log: log}
}

func (s *SurveyService) ListByUser(ctx context.Context, userID string) ([]types.SurveyResponse, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SaveResponse records or edits one answer and triggers regeneration.
func (s *SurveyService) SaveResponse(ctx context.Context, resp types.SurveyResponse) (types.SurveyResponse, error) {
	if !types.ValidAxis(resp.Axis) {
		return types.SurveyResponse{}, fmt.Errorf("unknown ideology axis %q", resp.Axis)
	}
	if resp.Value < -1 || resp.Value > 1 {
		return types.SurveyResponse{}, fmt.Errorf("response value out of range")
	}

	saved, err := s.repo.Upsert(ctx, resp)
	if err != nil {
		return types.SurveyResponse{}, err
	}

	if _, err := mq.PublishRegenerate(ctx, s.bus, saved.UserID, "survey_response_saved"); err != nil {
		// The answer is already stored; regeneration catches up on the next save.
		s.log.Warnw("failed to publish regeneration event", "user_id", saved.UserID, "error", err)
	}
	return saved, nil
}
