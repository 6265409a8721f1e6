package workers

import (
	"context"
	"testing"

	"github.com/beliefatlas/apiserver/internal/logger"
	"github.com/beliefatlas/apiserver/internal/mq"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/types"
)

type stubProfileRepo struct {
	byUser  map[string]types.Profile
	created []types.Profile
	updated []types.Profile
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{byUser: make(map[string]types.Profile)}
}

func (s *stubProfileRepo) List(ctx context.Context, filter store.ProfileListFilter) ([]types.Profile, int, error) {
	return nil, 0, nil
}

func (s *stubProfileRepo) Get(ctx context.Context, id string) (types.Profile, error) {
	return types.Profile{}, store.ErrNotFound
}

func (s *stubProfileRepo) GetByUserID(ctx context.Context, userID string) (types.Profile, error) {
	profile, ok := s.byUser[userID]
	if !ok {
		return types.Profile{}, store.ErrNotFound
	}
	return profile, nil
}

func (s *stubProfileRepo) Create(ctx context.Context, profile types.Profile) (types.Profile, error) {
	s.created = append(s.created, profile)
	s.byUser[profile.UserID] = profile
	return profile, nil
}

func (s *stubProfileRepo) Update(ctx context.Context, profile types.Profile) (types.Profile, error) {
	s.updated = append(s.updated, profile)
	s.byUser[profile.UserID] = profile
	return profile, nil
}

func (s *stubProfileRepo) Delete(ctx context.Context, id string) error { return nil }

func (s *stubProfileRepo) DeleteByUserID(ctx context.Context, userID string) error {
	delete(s.byUser, userID)
	return nil
}

type stubSurveyRepo struct {
	responses map[string][]types.SurveyResponse
}

func (s *stubSurveyRepo) ListByUser(ctx context.Context, userID string) ([]types.SurveyResponse, error) {
	return s.responses[userID], nil
}

func (s *stubSurveyRepo) Upsert(ctx context.Context, resp types.SurveyResponse) (types.SurveyResponse, error) {
	return resp, nil
}

func (s *stubSurveyRepo) DeleteByUser(ctx context.Context, userID string) error { return nil }

func fullSurvey(userID string) []types.SurveyResponse {
	responses := make([]types.SurveyResponse, 0, len(types.IdeologyAxes))
	for _, axis := range types.IdeologyAxes {
		responses = append(responses, types.SurveyResponse{
			UserID:   userID,
			Axis:     axis,
			Question: "q-" + axis,
			Value:    0.5,
		})
	}
	return responses
}

func TestRegenerateCreatesMissingProfile(t *testing.T) {
	profiles := newStubProfileRepo()
	surveys := &stubSurveyRepo{responses: map[string][]types.SurveyResponse{
		"u1": fullSurvey("u1"),
	}}
	worker := NewRegenerateWorker(profiles, surveys, nil, logger.NewNop())

	if err := worker.Regenerate(context.Background(), "u1"); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	if len(profiles.created) != 1 {
		t.Fatalf("expected 1 created profile, got %d", len(profiles.created))
	}
	created := profiles.created[0]
	if !created.IsCompleted {
		t.Error("expected profile completed with every axis answered")
	}
	if len(created.IdeologyScores) != len(types.IdeologyAxes) {
		t.Errorf("expected %d scored axes, got %d", len(types.IdeologyAxes), len(created.IdeologyScores))
	}
	if created.BeliefSummary == "" {
		t.Error("expected a belief summary")
	}
	if created.OpinionPlasticity == nil {
		t.Error("expected plasticity to be set")
	}
}

func TestRegenerateUpdatesExistingProfile(t *testing.T) {
	profiles := newStubProfileRepo()
	profiles.byUser["u1"] = types.Profile{ID: "p1", UserID: "u1", BeliefSummary: "stale"}
	surveys := &stubSurveyRepo{responses: map[string][]types.SurveyResponse{
		"u1": {{UserID: "u1", Axis: "economic", Question: "q", Value: 1.0}},
	}}
	worker := NewRegenerateWorker(profiles, surveys, nil, logger.NewNop())

	if err := worker.Regenerate(context.Background(), "u1"); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	if len(profiles.updated) != 1 {
		t.Fatalf("expected 1 update, got %d", len(profiles.updated))
	}
	updated := profiles.updated[0]
	if updated.ID != "p1" {
		t.Errorf("expected existing profile row to be updated, got id %q", updated.ID)
	}
	if updated.IsCompleted {
		t.Error("one answered axis must not complete the profile")
	}
	if updated.BeliefSummary == "stale" {
		t.Error("expected summary to be recomputed")
	}
}

func TestRegenerateWithNoResponsesClearsDerivedFields(t *testing.T) {
	profiles := newStubProfileRepo()
	plasticity := 0.5
	profiles.byUser["u1"] = types.Profile{
		ID:                "p1",
		UserID:            "u1",
		IdeologyScores:    map[string]float64{"economic": 0.9},
		OpinionPlasticity: &plasticity,
		BeliefSummary:     "old",
		IsCompleted:       true,
	}
	surveys := &stubSurveyRepo{responses: map[string][]types.SurveyResponse{}}
	worker := NewRegenerateWorker(profiles, surveys, nil, logger.NewNop())

	if err := worker.Regenerate(context.Background(), "u1"); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	updated := profiles.updated[0]
	if len(updated.IdeologyScores) != 0 {
		t.Errorf("expected scores cleared, got %v", updated.IdeologyScores)
	}
	if updated.OpinionPlasticity != nil {
		t.Error("expected plasticity cleared")
	}
	if updated.IsCompleted {
		t.Error("expected completion cleared")
	}
}

func TestHandleDropsMalformedEvent(t *testing.T) {
	profiles := newStubProfileRepo()
	surveys := &stubSurveyRepo{responses: map[string][]types.SurveyResponse{}}
	worker := NewRegenerateWorker(profiles, surveys, nil, logger.NewNop())

	msg := mq.Message{ID: "m1", Data: []byte("{not json")}
	if err := worker.handle(context.Background(), msg); err != nil {
		t.Fatalf("malformed event must not be retried: %v", err)
	}

	msg = mq.Message{ID: "m2", Data: []byte(`{"user_id":""}`)}
	if err := worker.handle(context.Background(), msg); err != nil {
		t.Fatalf("event without user id must not be retried: %v", err)
	}
	if len(profiles.created)+len(profiles.updated) != 0 {
		t.Error("dropped events must not touch profiles")
	}
}

func TestHandleRegeneratesFromEvent(t *testing.T) {
	profiles := newStubProfileRepo()
	surveys := &stubSurveyRepo{responses: map[string][]types.SurveyResponse{
		"u1": fullSurvey("u1"),
	}}
	worker := NewRegenerateWorker(profiles, surveys, nil, logger.NewNop())

	msg := mq.Message{ID: "m1", Data: []byte(`{"user_id":"u1","reason":"survey_response_saved"}`)}
	if err := worker.handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(profiles.created) != 1 {
		t.Fatalf("expected profile to be created, got %d", len(profiles.created))
	}
}
