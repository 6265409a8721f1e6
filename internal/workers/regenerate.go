package workers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/beliefatlas/apiserver/internal/mq"
	"github.com/beliefatlas/apiserver/internal/services"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/types"
	"go.uber.org/zap"
)

// RegenerateWorker consumes profile.regenerate events and recomputes
// the user's belief summary, ideology scores, and opinion plasticity
// from their stored survey responses.
type RegenerateWorker struct {
	profiles services.ProfileRepository
	surveys  services.SurveyRepository
	bus      *mq.MQ
	log      *zap.SugaredLogger
}

func NewRegenerateWorker(profiles services.ProfileRepository, surveys services.SurveyRepository, bus *mq.MQ, log *zap.SugaredLogger) *RegenerateWorker {
	return &RegenerateWorker{
		profiles: profiles,
		surveys:  surveys,
		bus:      bus,
		log:      log,
	}
}

// Run blocks consuming regeneration events until ctx is canceled.
func (w *RegenerateWorker) Run(ctx context.Context) error {
	return w.bus.Subscribe(ctx, mq.ChannelProfileRegenerate, w.handle)
}

func (w *RegenerateWorker) handle(ctx context.Context, msg mq.Message) error {
	var event mq.RegenerateEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Unparseable events are dropped, not retried.
		w.log.Warnw("dropping malformed regeneration event", "msg_id", msg.ID, "error", err)
		return nil
	}
	if event.UserID == "" {
		w.log.Warnw("dropping regeneration event without user id", "msg_id", msg.ID)
		return nil
	}

	if err := w.Regenerate(ctx, event.UserID); err != nil {
		w.log.Errorw("regeneration failed", "user_id", event.UserID, "error", err)
		return err
	}
	return nil
}

// Regenerate recomputes and stores the derived profile fields for one
// user. A user with no profile row yet gets one created.
func (w *RegenerateWorker) Regenerate(ctx context.Context, userID string) error {
	responses, err := w.surveys.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	scores := services.ComputeIdeologyScores(responses)
	plasticity := services.ComputePlasticity(responses)
	summary := services.BuildBeliefSummary(scores)
	completed := len(scores) == len(types.IdeologyAxes)

	profile, err := w.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		profile = types.Profile{UserID: userID}
		profile.IdeologyScores = scores
		profile.OpinionPlasticity = plasticity
		profile.BeliefSummary = summary
		profile.IsCompleted = completed
		_, err = w.profiles.Create(ctx, profile)
		return err
	}

	profile.IdeologyScores = scores
	profile.OpinionPlasticity = plasticity
	profile.BeliefSummary = summary
	profile.IsCompleted = completed
	if _, err := w.profiles.Update(ctx, profile); err != nil {
		return err
	}

	w.log.Infow("profile regenerated", "user_id", userID, "axes", len(scores), "responses", len(responses))
	return nil
}
