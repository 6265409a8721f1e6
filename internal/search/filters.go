package search

import (
	"sort"
	"strings"

	"github.com/beliefatlas/apiserver/types"
)

// Filter wildcards and sort keys. "ALL" matches the dropdown default
// the dashboard renders; it is never sent to the server.
const (
	RoleAll      = "ALL"
	CompletedAll = "ALL"
	CompletedYes = "true"
	CompletedNo  = "false"

	SortByName       = "name"
	SortByCreated    = "created"
	SortByUpdated    = "updated"
	SortByCompletion = "completion"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ideologyThreshold is strict: a score of exactly 0.5 is excluded.
const ideologyThreshold = 0.5

// Filters holds every search dimension the dashboard exposes. It is
// transient state, reset to defaults on "clear".
type Filters struct {
	Query         string
	Role          string
	Completed     string
	IdeologyAxis  string
	PlasticityMin *float64
	PlasticityMax *float64
	SortBy        string
	SortOrder     string
}

// DefaultFilters returns the state the dashboard mounts with.
func DefaultFilters() Filters {
	return Filters{
		Role:      RoleAll,
		Completed: CompletedAll,
		SortBy:    SortByName,
		SortOrder: OrderAsc,
	}
}

// ActiveCount returns how many non-default filter dimensions are set.
// Drives the filter badge only; no logic branches on it.
func (f Filters) ActiveCount() int {
	count := 0
	if f.Role != "" && f.Role != RoleAll {
		count++
	}
	if f.Completed != "" && f.Completed != CompletedAll {
		count++
	}
	if f.IdeologyAxis != "" {
		count++
	}
	if f.PlasticityMin != nil || f.PlasticityMax != nil {
		count++
	}
	return count
}

// applyPredicates keeps the records of one fetched page that pass the
// client-side filters the server does not support. Order matters:
// ideology axis, then plasticity min, then plasticity max.
func applyPredicates(profiles []types.Profile, f Filters) []types.Profile {
	out := make([]types.Profile, 0, len(profiles))
	for _, p := range profiles {
		if f.IdeologyAxis != "" {
			score, ok := p.IdeologyScores[f.IdeologyAxis]
			if !ok || score <= ideologyThreshold {
				continue
			}
		}
		if f.PlasticityMin != nil {
			if p.OpinionPlasticity == nil || *p.OpinionPlasticity < *f.PlasticityMin {
				continue
			}
		}
		if f.PlasticityMax != nil {
			if p.OpinionPlasticity == nil || *p.OpinionPlasticity > *f.PlasticityMax {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// sortProfiles orders one page in place by the active sort key. Ties
// compare equal; stable order across equal records is not guaranteed.
func sortProfiles(profiles []types.Profile, sortBy, sortOrder string) {
	cmp := comparator(sortBy)
	if sortOrder == OrderDesc {
		inner := cmp
		cmp = func(a, b types.Profile) int { return -inner(a, b) }
	}
	sort.Slice(profiles, func(i, j int) bool {
		return cmp(profiles[i], profiles[j]) < 0
	})
}

func comparator(sortBy string) func(a, b types.Profile) int {
	switch sortBy {
	case SortByCreated:
		return func(a, b types.Profile) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	case SortByUpdated:
		return func(a, b types.Profile) int {
			return a.LastUpdated.Compare(b.LastUpdated)
		}
	case SortByCompletion:
		return func(a, b types.Profile) int {
			return boolToInt(a.IsCompleted) - boolToInt(b.IsCompleted)
		}
	default:
		return func(a, b types.Profile) int {
			return strings.Compare(a.User.DisplayName(), b.User.DisplayName())
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
