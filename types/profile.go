package types

import "time"

// IdeologyAxes is the closed set of belief axes a profile is scored on.
// The UI never adds axes dynamically; new axes require a schema change.
var IdeologyAxes = []string{
	AxisEconomic,
	AxisSocial,
	AxisTradition,
	AxisGlobalism,
	AxisEnvironment,
}

const (
	AxisEconomic    = "economic"
	AxisSocial      = "social"
	AxisTradition   = "tradition"
	AxisGlobalism   = "globalism"
	AxisEnvironment = "environment"
)

// ValidAxis reports whether axis belongs to the closed axis set.
func ValidAxis(axis string) bool {
	for _, a := range IdeologyAxes {
		if a == axis {
			return true
		}
	}
	return false
}

// Profile represents a user's belief-profile snapshot.
//
// Ideology scores use the [0,1] convention throughout: 0.5 is neutral
// and values above 0.5 indicate agreement with the axis. Producers that
// emit signed [-1,1] values must convert through NormalizeSignedScore
// before the scores enter the system.
type Profile struct {
	// ID is the unique, stable identifier of the profile.
	ID string `json:"id" db:"id"`

	// User is the owning account, embedded for display purposes.
	User User `json:"user" db:"-"`

	// UserID is the identifier of the owning account.
	UserID string `json:"user_id" db:"user_id"`

	// IdeologyScores maps each axis in IdeologyAxes to a score in [0,1].
	// Axes a user has not been scored on are absent from the map.
	IdeologyScores map[string]float64 `json:"ideology_scores" db:"ideology_scores"`

	// OpinionPlasticity is the user's stated openness to changing their
	// opinions, in [0,1]. Nil until the backend has computed it.
	OpinionPlasticity *float64 `json:"opinion_plasticity" db:"opinion_plasticity"`

	// BeliefSummary is free text generated from the user's survey
	// responses. Empty until generated.
	BeliefSummary string `json:"belief_summary" db:"belief_summary"`

	// IsCompleted indicates whether the user has finished the belief survey.
	IsCompleted bool `json:"is_completed" db:"is_completed"`

	// CreatedAt is the timestamp at which the profile was first saved.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// LastUpdated is the timestamp of the most recent save or regeneration.
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`

	// ProfileVersion increases by one on every update. It is display
	// only; nothing compares versions to detect conflicting writes, so
	// the last write wins at the database.
	ProfileVersion int `json:"profile_version" db:"profile_version"`
}

// NormalizeSignedScore converts a signed [-1,1] ideology score to the
// [0,1] convention. Inputs outside [-1,1] are clamped.
func NormalizeSignedScore(v float64) float64 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return (v + 1) / 2
}
