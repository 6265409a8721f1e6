package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beliefatlas/apiserver/types"
	"github.com/google/uuid"
)

// ProfileListFilter narrows a profile listing. Zero values mean "no
// restriction"; Completed is a tri-state (nil = all).
type ProfileListFilter struct {
	Search    string
	Role      string
	Completed *bool
	Offset    int
	Limit     int
}

// ProfileRepository handles persistence for belief profiles.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `
	p.id, p.user_id, p.ideology_scores, p.opinion_plasticity, p.belief_summary,
	p.is_completed, p.created_at, p.last_updated, p.profile_version,
	u.id, u.username, u.email, u.first_name, u.last_name, u.role, u.avatar_key, u.created_at, u.updated_at`

func scanProfile(row interface{ Scan(...any) error }) (types.Profile, error) {
	var profile types.Profile
	var scoresJSON []byte
	var plasticity sql.NullFloat64
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&scoresJSON,
		&plasticity,
		&profile.BeliefSummary,
		&profile.IsCompleted,
		&profile.CreatedAt,
		&profile.LastUpdated,
		&profile.ProfileVersion,
		&profile.User.ID,
		&profile.User.Username,
		&profile.User.Email,
		&profile.User.FirstName,
		&profile.User.LastName,
		&profile.User.Role,
		&profile.User.AvatarKey,
		&profile.User.CreatedAt,
		&profile.User.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, err
	}

	_ = json.Unmarshal(scoresJSON, &profile.IdeologyScores)
	if plasticity.Valid {
		v := plasticity.Float64
		profile.OpinionPlasticity = &v
	}
	return profile, nil
}

// List returns one page of profiles matching the filter plus the total
// count of all matches before pagination.
func (r *ProfileRepository) List(ctx context.Context, filter ProfileListFilter) ([]types.Profile, int, error) {
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}

	where, args := buildProfileWhere(filter)

	countQuery := `
		SELECT COUNT(1)
		FROM profiles p
		JOIN users u ON u.id = p.user_id` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT ` + profileColumns + `
		FROM profiles p
		JOIN users u ON u.id = p.user_id` + where +
		fmt.Sprintf(`
		ORDER BY p.created_at DESC, p.id
		OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Offset, filter.Limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]types.Profile, 0, filter.Limit)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func buildProfileWhere(filter ProfileListFilter) (string, []any) {
	var clauses []string
	var args []any

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(u.username ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d)", n, n, n))
	}
	if role := strings.TrimSpace(filter.Role); role != "" {
		args = append(args, role)
		clauses = append(clauses, fmt.Sprintf("u.role = $%d", len(args)))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		clauses = append(clauses, fmt.Sprintf("p.is_completed = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(clauses, " AND "), args
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (types.Profile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, id))
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (types.Profile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func (r *ProfileRepository) Create(ctx context.Context, profile types.Profile) (types.Profile, error) {
	now := time.Now()
	profile.CreatedAt = now
	profile.LastUpdated = now
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.ProfileVersion == 0 {
		profile.ProfileVersion = 1
	}

	scoresJSON, err := json.Marshal(profile.IdeologyScores)
	if err != nil {
		return types.Profile{}, err
	}

	const query = `
		INSERT INTO profiles (id, user_id, ideology_scores, opinion_plasticity, belief_summary, is_completed, created_at, last_updated, profile_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		profile.ID,
		profile.UserID,
		scoresJSON,
		nullableFloat(profile.OpinionPlasticity),
		profile.BeliefSummary,
		profile.IsCompleted,
		profile.CreatedAt,
		profile.LastUpdated,
		profile.ProfileVersion,
	); err != nil {
		return types.Profile{}, err
	}

	return profile, nil
}

// Update writes the profile and bumps profile_version by one. The
// version is display only; the last write wins.
func (r *ProfileRepository) Update(ctx context.Context, profile types.Profile) (types.Profile, error) {
	profile.LastUpdated = time.Now()

	scoresJSON, err := json.Marshal(profile.IdeologyScores)
	if err != nil {
		return types.Profile{}, err
	}

	const query = `
		UPDATE profiles
		SET ideology_scores = $1,
			opinion_plasticity = $2,
			belief_summary = $3,
			is_completed = $4,
			last_updated = $5,
			profile_version = profile_version + 1
		WHERE id = $6
		RETURNING profile_version`
	err = r.db.QueryRowContext(
		ctx,
		query,
		scoresJSON,
		nullableFloat(profile.OpinionPlasticity),
		profile.BeliefSummary,
		profile.IsCompleted,
		profile.LastUpdated,
		profile.ID,
	).Scan(&profile.ProfileVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, err
	}

	return profile, nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM profiles WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) DeleteByUserID(ctx context.Context, userID string) error {
	const query = `DELETE FROM profiles WHERE user_id = $1`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
