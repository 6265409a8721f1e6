package services

import (
	"sort"
	"strings"

	"github.com/beliefatlas/apiserver/types"
)

// revisionsSaturation is the edit count at which an answer counts as
// fully plastic.
const revisionsSaturation = 3

// ComputeIdeologyScores averages each axis's signed response values
// and normalizes into the [0,1] profile convention. Axes with no
// responses are absent from the result.
func ComputeIdeologyScores(responses []types.SurveyResponse) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, resp := range responses {
		sums[resp.Axis] += resp.Value
		counts[resp.Axis]++
	}

	scores := make(map[string]float64, len(sums))
	for axis, sum := range sums {
		scores[axis] = types.NormalizeSignedScore(sum / float64(counts[axis]))
	}
	return scores
}

// ComputePlasticity derives opinion plasticity from how often the user
// revised their answers: each answer contributes its revision count
// capped at revisionsSaturation, averaged over all answers. Returns
// nil when there are no responses.
func ComputePlasticity(responses []types.SurveyResponse) *float64 {
	if len(responses) == 0 {
		return nil
	}
	var sum float64
	for _, resp := range responses {
		revisions := resp.Revisions
		if revisions > revisionsSaturation {
			revisions = revisionsSaturation
		}
		sum += float64(revisions) / revisionsSaturation
	}
	plasticity := sum / float64(len(responses))
	return &plasticity
}

// BuildBeliefSummary renders a short text summary of the scored axes,
// in the fixed axis order.
func BuildBeliefSummary(scores map[string]float64) string {
	if len(scores) == 0 {
		return ""
	}

	var parts []string
	for _, axis := range types.IdeologyAxes {
		score, ok := scores[axis]
		if !ok {
			continue
		}
		parts = append(parts, axis+": "+leaningLabel(score))
	}
	// Axes outside the fixed set never reach storage, but guard the
	// summary against an empty render anyway.
	if len(parts) == 0 {
		axes := make([]string, 0, len(scores))
		for axis := range scores {
			axes = append(axes, axis)
		}
		sort.Strings(axes)
		for _, axis := range axes {
			parts = append(parts, axis+": "+leaningLabel(scores[axis]))
		}
	}
	return strings.Join(parts, "; ")
}

func leaningLabel(score float64) string {
	switch {
	case score >= 0.75:
		return "strongly agrees"
	case score > 0.55:
		return "leans agree"
	case score >= 0.45:
		return "neutral"
	case score > 0.25:
		return "leans disagree"
	default:
		return "strongly disagrees"
	}
}
