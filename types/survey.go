package types

import "time"

// SurveyResponse represents one answered belief-survey item.
//
// Value is the signed agreement the user selected, in [-1,1]; the
// regeneration worker normalizes it into the [0,1] profile convention
// when recomputing ideology scores.
type SurveyResponse struct {
	// ID is the unique identifier of the response.
	ID string `json:"id" db:"id"`

	// UserID is the identifier of the answering account.
	UserID string `json:"user_id" db:"user_id"`

	// Axis names the ideology axis the survey item probes.
	Axis string `json:"axis" db:"axis"`

	// Question is the survey item text as shown to the user.
	Question string `json:"question" db:"question"`

	// Value is the user's signed agreement in [-1,1].
	Value float64 `json:"value" db:"value"`

	// Revisions counts how many times the user edited this answer
	// after first submitting it. Feeds the plasticity computation.
	Revisions int `json:"revisions" db:"revisions"`

	// CreatedAt is the timestamp of the first submission.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent edit.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
