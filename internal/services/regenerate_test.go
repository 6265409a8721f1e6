package services

import (
	"math"
	"testing"

	"github.com/beliefatlas/apiserver/types"
)

func resp(axis string, value float64, revisions int) types.SurveyResponse {
	return types.SurveyResponse{
		UserID:    "u1",
		Axis:      axis,
		Question:  "q",
		Value:     value,
		Revisions: revisions,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeIdeologyScoresAveragesPerAxis(t *testing.T) {
	responses := []types.SurveyResponse{
		resp("economic", 1.0, 0),
		resp("economic", 0.0, 0),
		resp("social", -1.0, 0),
	}

	scores := ComputeIdeologyScores(responses)

	if len(scores) != 2 {
		t.Fatalf("expected 2 axes, got %d", len(scores))
	}
	// economic: signed avg 0.5 normalizes to 0.75
	if !almostEqual(scores["economic"], 0.75) {
		t.Errorf("economic = %v, want 0.75", scores["economic"])
	}
	// social: signed -1 normalizes to 0
	if !almostEqual(scores["social"], 0.0) {
		t.Errorf("social = %v, want 0", scores["social"])
	}
}

func TestComputeIdeologyScoresEmpty(t *testing.T) {
	scores := ComputeIdeologyScores(nil)
	if len(scores) != 0 {
		t.Fatalf("expected no scores, got %v", scores)
	}
}

func TestComputePlasticityNilWithoutResponses(t *testing.T) {
	if got := ComputePlasticity(nil); got != nil {
		t.Fatalf("expected nil, got %v", *got)
	}
}

func TestComputePlasticityCapsRevisions(t *testing.T) {
	responses := []types.SurveyResponse{
		resp("economic", 0, 0),
		resp("social", 0, 3),
		resp("tradition", 0, 10),
	}

	got := ComputePlasticity(responses)
	if got == nil {
		t.Fatal("expected a value")
	}
	// contributions 0, 1, 1 averaged over 3
	if !almostEqual(*got, 2.0/3.0) {
		t.Errorf("plasticity = %v, want %v", *got, 2.0/3.0)
	}
}

func TestBuildBeliefSummaryFixedOrderAndLabels(t *testing.T) {
	scores := map[string]float64{
		"environment": 0.1,
		"economic":    0.8,
		"social":      0.5,
	}

	got := BuildBeliefSummary(scores)
	want := "economic: strongly agrees; social: neutral; environment: strongly disagrees"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestBuildBeliefSummaryEmpty(t *testing.T) {
	if got := BuildBeliefSummary(nil); got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}
}

func TestLeaningLabelBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.75, "strongly agrees"},
		{0.56, "leans agree"},
		{0.55, "neutral"},
		{0.45, "neutral"},
		{0.44, "leans disagree"},
		{0.25, "strongly disagrees"},
	}
	for _, tc := range cases {
		if got := leaningLabel(tc.score); got != tc.want {
			t.Errorf("leaningLabel(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
