package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/beliefatlas/apiserver/internal/mq"
	"github.com/beliefatlas/apiserver/internal/storage"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/types"
	"go.uber.org/zap"
)

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	List(ctx context.Context, filter store.ProfileListFilter) ([]types.Profile, int, error)
	Get(ctx context.Context, id string) (types.Profile, error)
	GetByUserID(ctx context.Context, userID string) (types.Profile, error)
	Create(ctx context.Context, profile types.Profile) (types.Profile, error)
	Update(ctx context.Context, profile types.Profile) (types.Profile, error)
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileService encapsulates profile use-cases.
type ProfileService struct {
	repo    ProfileRepository
	users   UserRepository
	storage *storage.Storage
	bus     *mq.MQ
	log     *zap.SugaredLogger
}

func NewProfileService(repo ProfileRepository, users UserRepository, objects *storage.Storage, bus *mq.MQ, log *zap.SugaredLogger) *ProfileService {
	return &ProfileService{
		repo:    repo,
		users:   users,
		storage: objects,
		bus:     bus,
		log:     log,
	}
}

// List returns one page of profiles plus the total count of matches.
func (s *ProfileService) List(ctx context.Context, filter store.ProfileListFilter) ([]types.Profile, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *ProfileService) Get(ctx context.Context, id string) (types.Profile, error) {
	return s.repo.Get(ctx, id)
}

func (s *ProfileService) GetByUserID(ctx context.Context, userID string) (types.Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Save creates the user's profile on first save and updates it after.
// Scores outside [0,1] or on unknown axes are rejected.
func (s *ProfileService) Save(ctx context.Context, profile types.Profile) (types.Profile, error) {
	for axis, score := range profile.IdeologyScores {
		if !types.ValidAxis(axis) {
			return types.Profile{}, fmt.Errorf("unknown ideology axis %q", axis)
		}
		if score < 0 || score > 1 {
			return types.Profile{}, fmt.Errorf("ideology score for %q out of range", axis)
		}
	}
	if p := profile.OpinionPlasticity; p != nil && (*p < 0 || *p > 1) {
		return types.Profile{}, fmt.Errorf("opinion plasticity out of range")
	}

	existing, err := s.repo.GetByUserID(ctx, profile.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.Profile{}, err
		}
		return s.repo.Create(ctx, profile)
	}

	profile.ID = existing.ID
	profile.CreatedAt = existing.CreatedAt
	return s.repo.Update(ctx, profile)
}

// UploadAvatar stores the avatar bytes and records the object key on
// the user record.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID, filename, contentType string, data []byte) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	key := storage.AvatarKey(userID, filename)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}

	user.AvatarKey = key
	if _, err := s.users.Update(ctx, user); err != nil {
		return "", err
	}
	return key, nil
}

// DownloadAvatar opens the user's stored avatar for streaming and
// returns its object key alongside the reader. A user without an
// avatar yields store.ErrNotFound.
func (s *ProfileService) DownloadAvatar(ctx context.Context, userID string) (io.ReadCloser, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user.AvatarKey == "" {
		return nil, "", store.ErrNotFound
	}

	reader, err := s.storage.Get(ctx, user.AvatarKey)
	if err != nil {
		return nil, "", err
	}
	return reader, user.AvatarKey, nil
}

// RequestRegeneration asks the worker to recompute the user's belief
// summary, scores, and plasticity from their survey responses.
func (s *ProfileService) RequestRegeneration(ctx context.Context, userID, reason string) error {
	msgID, err := mq.PublishRegenerate(ctx, s.bus, userID, reason)
	if err != nil {
		return err
	}
	s.log.Infow("regeneration requested", "user_id", userID, "reason", reason, "msg_id", msgID)
	return nil
}
