package search

import (
	"testing"
	"time"

	"github.com/beliefatlas/apiserver/types"
)

func fp(v float64) *float64 {
	return &v
}

func TestApplyPredicatesPlasticityMin(t *testing.T) {
	profiles := []types.Profile{
		{ID: "a", OpinionPlasticity: fp(0.3)},
		{ID: "b", OpinionPlasticity: fp(0.7)},
		{ID: "c", OpinionPlasticity: nil},
	}
	filters := DefaultFilters()
	filters.PlasticityMin = fp(0.5)

	got := applyPredicates(profiles, filters)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("applyPredicates kept %v, want only b", ids(got))
	}
}

func TestApplyPredicatesPlasticityMax(t *testing.T) {
	profiles := []types.Profile{
		{ID: "a", OpinionPlasticity: fp(0.3)},
		{ID: "b", OpinionPlasticity: fp(0.7)},
		{ID: "c", OpinionPlasticity: nil},
	}
	filters := DefaultFilters()
	filters.PlasticityMax = fp(0.5)

	got := applyPredicates(profiles, filters)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("applyPredicates kept %v, want only a", ids(got))
	}
}

func TestApplyPredicatesIdeologyThresholdIsStrict(t *testing.T) {
	profiles := []types.Profile{
		{ID: "at", IdeologyScores: map[string]float64{types.AxisEconomic: 0.5}},
		{ID: "above", IdeologyScores: map[string]float64{types.AxisEconomic: 0.51}},
		{ID: "missing", IdeologyScores: map[string]float64{types.AxisSocial: 0.9}},
	}
	filters := DefaultFilters()
	filters.IdeologyAxis = types.AxisEconomic

	got := applyPredicates(profiles, filters)
	if len(got) != 1 || got[0].ID != "above" {
		t.Fatalf("applyPredicates kept %v, want only above (threshold is > 0.5)", ids(got))
	}
}

func TestSortProfilesByCreated(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
	}
	profiles := []types.Profile{
		{ID: "d1", CreatedAt: day(1)},
		{ID: "d3", CreatedAt: day(3)},
		{ID: "d2", CreatedAt: day(2)},
	}

	sortProfiles(profiles, SortByCreated, OrderAsc)
	if got := ids(profiles); got != "d1,d2,d3" {
		t.Fatalf("asc order = %s, want d1,d2,d3", got)
	}

	sortProfiles(profiles, SortByCreated, OrderDesc)
	if got := ids(profiles); got != "d3,d2,d1" {
		t.Fatalf("desc order = %s, want d3,d2,d1", got)
	}
}

func TestSortProfilesByNameFallsBackToUsername(t *testing.T) {
	profiles := []types.Profile{
		{ID: "u1", User: types.User{FirstName: "Zoe", Username: "zzz"}},
		{ID: "u2", User: types.User{Username: "alpha"}},
		{ID: "u3", User: types.User{FirstName: "Mia", Username: "mmm"}},
	}

	sortProfiles(profiles, SortByName, OrderAsc)
	if got := ids(profiles); got != "u2,u3,u1" {
		t.Fatalf("name order = %s, want u2,u3,u1", got)
	}
}

func TestSortProfilesByCompletion(t *testing.T) {
	profiles := []types.Profile{
		{ID: "done", IsCompleted: true},
		{ID: "open", IsCompleted: false},
	}

	sortProfiles(profiles, SortByCompletion, OrderAsc)
	if got := ids(profiles); got != "open,done" {
		t.Fatalf("completion asc = %s, want open,done", got)
	}

	sortProfiles(profiles, SortByCompletion, OrderDesc)
	if got := ids(profiles); got != "done,open" {
		t.Fatalf("completion desc = %s, want done,open", got)
	}
}

func TestActiveCount(t *testing.T) {
	filters := DefaultFilters()
	if got := filters.ActiveCount(); got != 0 {
		t.Fatalf("default ActiveCount = %d, want 0", got)
	}

	filters.Role = types.RoleStudent
	if got := filters.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount with role = %d, want 1", got)
	}

	filters.Completed = CompletedYes
	filters.IdeologyAxis = types.AxisTradition
	filters.PlasticityMin = fp(0.2)
	filters.PlasticityMax = fp(0.8)
	if got := filters.ActiveCount(); got != 4 {
		t.Fatalf("ActiveCount fully set = %d, want 4", got)
	}
}

func ids(profiles []types.Profile) string {
	out := ""
	for i, p := range profiles {
		if i > 0 {
			out += ","
		}
		out += p.ID
	}
	return out
}
