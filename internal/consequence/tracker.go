// Package consequence turns accumulated choices into lasting effects:
// semantic choice tracking, faction reputation propagation and one-shot
// narrative payoffs.
package consequence

import (
	"saga-server/internal/models"
)

// Semantic categories tracked per player.
const (
	CategoryMoral    = "moral"
	CategoryApproach = "approach"
	CategoryLoyalty  = "loyalty"
)

// Pattern is a named value sequence within one category. Matching is an
// exact contiguous-sublist check; patterns of length <= 3 additionally
// accept a non-contiguous but order-preserving subsequence.
type Pattern struct {
	ID       string
	Category string
	Sequence []string
}

// TrackChoice appends the choice's category values, in order, to the
// player's per-category histories. Choices without metadata contribute
// nothing.
func TrackChoice(p *models.StoryProgress, choice models.Choice) *models.StoryProgress {
	if choice.Moral == "" && choice.Approach == "" && choice.Loyalty == "" {
		return p.Clone()
	}
	next := p.Clone()
	if choice.Moral != "" {
		next.ChoicePatterns[CategoryMoral] = append(next.ChoicePatterns[CategoryMoral], choice.Moral)
	}
	if choice.Approach != "" {
		next.ChoicePatterns[CategoryApproach] = append(next.ChoicePatterns[CategoryApproach], choice.Approach)
	}
	if choice.Loyalty != "" {
		next.ChoicePatterns[CategoryLoyalty] = append(next.ChoicePatterns[CategoryLoyalty], choice.Loyalty)
	}
	return next
}

// MatchesPattern checks the player's history in the pattern's category.
func MatchesPattern(p *models.StoryProgress, pattern Pattern) bool {
	history := p.ChoicePatterns[pattern.Category]
	if len(pattern.Sequence) == 0 || len(history) < len(pattern.Sequence) {
		return false
	}
	if containsContiguous(history, pattern.Sequence) {
		return true
	}
	if len(pattern.Sequence) <= 3 {
		return containsSubsequence(history, pattern.Sequence)
	}
	return false
}

func containsContiguous(history, seq []string) bool {
	for start := 0; start+len(seq) <= len(history); start++ {
		match := true
		for i := range seq {
			if history[start+i] != seq[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func containsSubsequence(history, seq []string) bool {
	next := 0
	for _, value := range history {
		if value == seq[next] {
			next++
			if next == len(seq) {
				return true
			}
		}
	}
	return false
}

// DefaultPatterns is the authored pattern table.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{ID: "paragon", Category: CategoryMoral, Sequence: []string{"good", "good", "good"}},
		{ID: "renegade", Category: CategoryMoral, Sequence: []string{"evil", "evil", "evil"}},
		{ID: "pragmatist", Category: CategoryMoral, Sequence: []string{"neutral", "neutral"}},
		{ID: "silver_tongue", Category: CategoryApproach, Sequence: []string{"diplomatic", "diplomatic", "diplomatic"}},
		{ID: "iron_fist", Category: CategoryApproach, Sequence: []string{"aggressive", "aggressive", "aggressive"}},
		{ID: "ghost", Category: CategoryApproach, Sequence: []string{"stealthy", "stealthy", "stealthy"}},
		{ID: "loyalist", Category: CategoryLoyalty, Sequence: []string{"academy", "academy", "academy", "academy"}},
		{ID: "firebrand", Category: CategoryLoyalty, Sequence: []string{"rebellion", "rebellion", "rebellion"}},
		{ID: "lone_wolf", Category: CategoryLoyalty, Sequence: []string{"independent", "independent", "independent"}},
	}
}
