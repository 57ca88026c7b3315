package triage

import (
	"mailpilot/internal/models"
)

// UnknownCategory is the sentinel for matches stored without a category.
const UnknownCategory = "Unknown"

// DefaultConfidenceThreshold is the minimum normalized weight required to
// mark a classification as confident.
const DefaultConfidenceThreshold = 0.65

// Aggregate is the decision summary distilled from one retrieval's matches.
// The zero value is the "no data" sentinel, distinct from a populated result
// with low confidence.
type Aggregate struct {
	// Categories maps category name to its normalized weight: the category's
	// share of total similarity mass, not a per-category average. Weights sum
	// to 1 over all categories present.
	Categories map[string]float64
	// CategoryOrder records first-seen order across matches. Maximum
	// selection iterates this slice, which makes the tie-break deterministic:
	// the first category to reach the maximum wins.
	CategoryOrder      []string
	MainCategory       string
	Confidence         float64
	SuggestedResponses []string
	AverageSimilarity  float64
	MaxSimilarity      float64
	TotalMatches       int
}

// IsEmpty reports whether this is the "no data" sentinel.
func (a Aggregate) IsEmpty() bool {
	return a.TotalMatches == 0 || len(a.Categories) == 0
}

// AggregateMatches turns an ordered list of scored matches into a normalized
// category distribution, a selected main category with its confidence, the
// candidate response list, and similarity statistics.
//
// A category appearing in many medium-score matches can outrank a category
// appearing once with a very high score: weights accumulate similarity mass
// per category before normalizing against the total.
//
// Cosine scores from the index can be negative for anti-correlated vectors.
// Negative scores contribute zero weight, keeping normalized weights in
// [0,1]; similarity statistics still reflect the raw scores.
func AggregateMatches(matches []models.Match) Aggregate {
	if len(matches) == 0 {
		return Aggregate{}
	}

	weights := make(map[string]float64)
	var order []string
	var candidates []string
	var sum, max float64

	for i, m := range matches {
		category := m.Category
		if category == "" {
			category = UnknownCategory
		}
		if _, seen := weights[category]; !seen {
			order = append(order, category)
			weights[category] = 0
		}
		if m.Score > 0 {
			weights[category] += m.Score
		}
		sum += m.Score
		if i == 0 || m.Score > max {
			max = m.Score
		}
		// Duplicates are kept deliberately: the fallback synthesizer counts
		// occurrences to pick a majority response.
		if m.SuggestedResponse != "" {
			candidates = append(candidates, m.SuggestedResponse)
		}
	}

	totalWeight := 0.0
	for _, w := range weights {
		totalWeight += w
	}
	normalized := make(map[string]float64, len(weights))
	if totalWeight > 0 {
		for category, w := range weights {
			normalized[category] = w / totalWeight
		}
	}

	mainCategory := UnknownCategory
	confidence := 0.0
	for _, category := range order {
		if w := normalized[category]; w > confidence {
			mainCategory = category
			confidence = w
		}
	}

	return Aggregate{
		Categories:         normalized,
		CategoryOrder:      order,
		MainCategory:       mainCategory,
		Confidence:         confidence,
		SuggestedResponses: candidates,
		AverageSimilarity:  sum / float64(len(matches)),
		MaxSimilarity:      max,
		TotalMatches:       len(matches),
	}
}
