package services

import (
	"context"
	"errors"

	"github.com/beliefatlas/apiserver/internal/mq"
	"github.com/beliefatlas/apiserver/internal/storage"
	"github.com/beliefatlas/apiserver/internal/store"
	"go.uber.org/zap"
)

// PrivacyService implements the data-removal action the privacy
// controls delegate to: it erases a user's profile, their survey
// responses, and their stored avatar, then announces the deletion.
type PrivacyService struct {
	profiles ProfileRepository
	surveys  SurveyRepository
	users    UserRepository
	storage  *storage.Storage
	bus      *mq.MQ
	log      *zap.SugaredLogger
}

func NewPrivacyService(
	profiles ProfileRepository,
	surveys SurveyRepository,
	users UserRepository,
	objects *storage.Storage,
	bus *mq.MQ,
	log *zap.SugaredLogger,
) *PrivacyService {
	return &PrivacyService{
		profiles: profiles,
		surveys:  surveys,
		users:    users,
		storage:  objects,
		bus:      bus,
		log:      log,
	}
}

// DeleteProfileData removes all belief data for the user. The user
// account itself survives; only profile, responses, and avatar go.
func (s *PrivacyService) DeleteProfileData(ctx context.Context, userID string) error {
	profileID := ""
	profile, err := s.profiles.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		profileID = profile.ID
		if err := s.profiles.Delete(ctx, profile.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	case errors.Is(err, store.ErrNotFound):
		// Nothing stored; still clear responses and avatar below.
	default:
		return err
	}

	if err := s.surveys.DeleteByUser(ctx, userID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err == nil && user.AvatarKey != "" {
		if err := s.storage.Delete(ctx, user.AvatarKey); err != nil {
			s.log.Warnw("failed to delete avatar object", "user_id", userID, "key", user.AvatarKey, "error", err)
		} else {
			user.AvatarKey = ""
			if _, err := s.users.Update(ctx, user); err != nil {
				return err
			}
		}
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if _, err := mq.PublishDeleted(ctx, s.bus, userID, profileID); err != nil {
		s.log.Warnw("failed to publish deletion event", "user_id", userID, "error", err)
	}
	s.log.Infow("profile data deleted", "user_id", userID, "profile_id", profileID)
	return nil
}
