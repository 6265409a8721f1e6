package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/beliefatlas/apiserver/types"
	"github.com/google/uuid"
)

// SurveyRepository handles persistence for belief-survey responses.
type SurveyRepository struct {
	db *sql.DB
}

func NewSurveyRepository(db *sql.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

const surveyColumns = `id, user_id, axis, question, value, revisions, created_at, updated_at`

func scanResponse(row interface{ Scan(...any) error }) (types.SurveyResponse, error) {
	var resp types.SurveyResponse
	err := row.Scan(
		&resp.ID,
		&resp.UserID,
		&resp.Axis,
		&resp.Question,
		&resp.Value,
		&resp.Revisions,
		&resp.CreatedAt,
		&resp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.SurveyResponse{}, ErrNotFound
		}
		return types.SurveyResponse{}, err
	}
	return resp, nil
}

func (r *SurveyRepository) ListByUser(ctx context.Context, userID string) ([]types.SurveyResponse, error) {
	const query = `
		SELECT ` + surveyColumns + `
		FROM survey_responses
		WHERE user_id = $1
		ORDER BY axis, created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []types.SurveyResponse
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

// Upsert inserts a response or, when the user already answered the
// same item, overwrites the value and increments the revision counter.
func (r *SurveyRepository) Upsert(ctx context.Context, resp types.SurveyResponse) (types.SurveyResponse, error) {
	now := time.Now()
	resp.CreatedAt = now
	resp.UpdatedAt = now
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO survey_responses (id, user_id, axis, question, value, revisions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		ON CONFLICT (user_id, axis, question) DO UPDATE
		SET value = EXCLUDED.value,
			revisions = survey_responses.revisions + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + surveyColumns
	return scanResponse(r.db.QueryRowContext(
		ctx,
		query,
		resp.ID,
		resp.UserID,
		resp.Axis,
		resp.Question,
		resp.Value,
		resp.CreatedAt,
		resp.UpdatedAt,
	))
}

func (r *SurveyRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM survey_responses WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
