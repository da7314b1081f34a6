// Package progress implements pure transforms over a player's persisted
// story state. Every function takes a snapshot and returns an updated copy;
// callers persist the result through the repository contract.
package progress

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"saga-server/internal/models"
)

// CurrentChapter returns the player's current chapter id. Preference order:
// the explicitly stored full id (suffixes preserved verbatim), then the
// challenge-chapter slot, then the legacy "{year}_{chapter}" synthesis from
// the numeric counters.
func CurrentChapter(p *models.StoryProgress) string {
	if p.CurrentChapterID != "" {
		return p.CurrentChapterID
	}
	if p.ChallengeChapter != "" {
		return p.ChallengeChapter
	}
	return fmt.Sprintf("%d_%d", p.Year, p.Chapter)
}

// SetCurrentChapter stores id verbatim and additionally routes it into the
// legacy counters: ids with two leading numeric segments update year and
// chapter, anything else lands in the challenge-chapter slot.
func SetCurrentChapter(p *models.StoryProgress, id string) *models.StoryProgress {
	next := p.Clone()
	next.CurrentChapterID = id
	next.DialogueIndex = 0
	if year, chapter, ok := parseNumericID(id); ok {
		next.Year = year
		next.Chapter = chapter
	} else {
		next.ChallengeChapter = id
	}
	next.UpdatedAt = time.Now().UTC()
	return next
}

// parseNumericID accepts ids whose first two underscore-delimited segments
// are numeric, e.g. "2_5" or "2_5_success".
func parseNumericID(id string) (year, chapter int, ok bool) {
	parts := strings.Split(id, "_")
	if len(parts) < 2 {
		return 0, 0, false
	}
	year, errYear := strconv.Atoi(parts[0])
	chapter, errChapter := strconv.Atoi(parts[1])
	if errYear != nil || errChapter != nil {
		return 0, 0, false
	}
	return year, chapter, true
}

// CompleteChapter adds id to a completed set with set semantics. The bucket
// is picked by the inherited heuristic: ids containing an underscore are
// regular chapters, everything else counts as a challenge. Content relies
// on this exact routing; do not reinterpret it without an explicit flag.
func CompleteChapter(p *models.StoryProgress, id string) *models.StoryProgress {
	next := p.Clone()
	if strings.Contains(id, "_") {
		next.CompletedChapters[id] = true
	} else {
		next.CompletedChallenges[id] = true
	}
	next.NewPlayer = false
	next.UpdatedAt = time.Now().UTC()
	return next
}

// IsChapterCompleted checks both buckets using the same routing heuristic.
func IsChapterCompleted(p *models.StoryProgress, id string) bool {
	if strings.Contains(id, "_") {
		return p.CompletedChapters[id]
	}
	return p.CompletedChallenges[id]
}

// FailChallenge records a failed challenge id.
func FailChallenge(p *models.StoryProgress, id string) *models.StoryProgress {
	next := p.Clone()
	next.FailedChallenges[id] = true
	next.UpdatedAt = time.Now().UTC()
	return next
}

// RecordChoice stores a value in the nested choice log.
func RecordChoice(p *models.StoryProgress, chapterID, key, value string) *models.StoryProgress {
	next := p.Clone()
	if next.ChoiceLog[chapterID] == nil {
		next.ChoiceLog[chapterID] = make(map[string]string)
	}
	next.ChoiceLog[chapterID][key] = value
	next.UpdatedAt = time.Now().UTC()
	return next
}

// GetChoice reads a previously recorded choice value.
func GetChoice(p *models.StoryProgress, chapterID, key string) (string, bool) {
	entries, ok := p.ChoiceLog[chapterID]
	if !ok {
		return "", false
	}
	value, ok := entries[key]
	return value, ok
}

// AddHierarchyPoints adds points and recomputes the derived tier.
func AddHierarchyPoints(p *models.StoryProgress, points int) *models.StoryProgress {
	next := p.Clone()
	next.HierarchyPoints += points
	next.HierarchyTier = TierForPoints(next.HierarchyPoints)
	next.UpdatedAt = time.Now().UTC()
	return next
}

// GrantRewards applies a chapter's completion rewards.
func GrantRewards(p *models.StoryProgress, rewards models.RewardSet) *models.StoryProgress {
	next := p.Clone()
	next.Experience += rewards.Experience
	next.Currency += rewards.Currency
	next.UpdatedAt = time.Now().UTC()
	return next
}

// AddSpecialItem adds a unique item; re-adding is a no-op.
func AddSpecialItem(p *models.StoryProgress, item string) *models.StoryProgress {
	next := p.Clone()
	next.SpecialItems[item] = true
	next.UpdatedAt = time.Now().UTC()
	return next
}

// DiscoverSecret records a discovered secret chapter or fact.
func DiscoverSecret(p *models.StoryProgress, secret string) *models.StoryProgress {
	next := p.Clone()
	next.DiscoveredSecrets[secret] = true
	next.UpdatedAt = time.Now().UTC()
	return next
}

// AdjustRelationship shifts an NPC affinity score.
func AdjustRelationship(p *models.StoryProgress, name string, delta int) *models.StoryProgress {
	next := p.Clone()
	next.Relationships[name] += delta
	next.UpdatedAt = time.Now().UTC()
	return next
}

// SetChallengeOutcome writes the transient outcome slot.
func SetChallengeOutcome(p *models.StoryProgress, outcome string) *models.StoryProgress {
	next := p.Clone()
	next.ChallengeOutcome = outcome
	next.UpdatedAt = time.Now().UTC()
	return next
}

// ArcProgress counts completed chapters whose id starts with the given arc
// prefix; cross-arc gates compare this with >=.
func ArcProgress(p *models.StoryProgress, prefix string) int {
	count := 0
	for id := range p.CompletedChapters {
		if strings.HasPrefix(id, prefix) {
			count++
		}
	}
	for id := range p.CompletedChallenges {
		if strings.HasPrefix(id, prefix) {
			count++
		}
	}
	return count
}
