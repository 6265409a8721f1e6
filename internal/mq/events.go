package mq

import (
	"context"
	"encoding/json"
	"time"
)

// Channel names for profile lifecycle events.
const (
	ChannelProfileRegenerate = "profile.regenerate"
	ChannelProfileDeleted    = "profile.deleted"
)

// RegenerateEvent asks the regeneration worker to recompute a user's
// belief summary, ideology scores, and opinion plasticity from their
// stored survey responses.
type RegenerateEvent struct {
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// DeletedEvent announces that a user's profile data has been removed.
type DeletedEvent struct {
	UserID    string    `json:"user_id"`
	ProfileID string    `json:"profile_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// PublishRegenerate publishes a RegenerateEvent for the given user.
func PublishRegenerate(ctx context.Context, bus *MQ, userID, reason string) (string, error) {
	data, err := json.Marshal(RegenerateEvent{
		UserID:      userID,
		Reason:      reason,
		RequestedAt: time.Now(),
	})
	if err != nil {
		return "", err
	}
	return bus.Publish(ctx, ChannelProfileRegenerate, data, map[string]string{"user_id": userID})
}

// PublishDeleted publishes a DeletedEvent for the given user.
func PublishDeleted(ctx context.Context, bus *MQ, userID, profileID string) (string, error) {
	data, err := json.Marshal(DeletedEvent{
		UserID:    userID,
		ProfileID: profileID,
		DeletedAt: time.Now(),
	})
	if err != nil {
		return "", err
	}
	return bus.Publish(ctx, ChannelProfileDeleted, data, map[string]string{"user_id": userID})
}
