package story

import (
	"strings"

	"saga-server/internal/models"
	"saga-server/internal/progress"
)

// resolveNext applies the resolution precedence shared by all chapter
// kinds:
//
//  1. conditional table keyed by challenge outcome (exact key, then
//     "default", then fall through);
//  2. conditional table keyed by club id (same precedence);
//  3. the ordered branch-predicate list, first satisfied predicate wins;
//  4. the literal next-chapter id, inheriting the current chapter's
//     arc/year prefix when the id carries none.
func resolveNext(currentID string, def *models.ChapterDefinition, p *models.StoryProgress) (string, bool) {
	if len(def.Next.ByOutcome) > 0 {
		if next, ok := lookupConditional(def.Next.ByOutcome, p.ChallengeOutcome); ok {
			return next, true
		}
	}

	if len(def.Next.ByClub) > 0 {
		if next, ok := lookupConditional(def.Next.ByClub, p.ClubID); ok {
			return next, true
		}
	}

	for _, branch := range def.Branches {
		if branchSatisfied(branch.Conditions, p) {
			return branch.NextChapter, true
		}
	}

	if def.Next.ID != "" {
		return InheritPrefix(currentID, def.Next.ID), true
	}
	return "", false
}

func lookupConditional(table map[string]string, key string) (string, bool) {
	if key != "" {
		if next, ok := table[key]; ok {
			return next, true
		}
	}
	if next, ok := table[models.OutcomeDefault]; ok {
		return next, true
	}
	return "", false
}

// branchSatisfied evaluates all conditions conjunctively; numeric
// comparisons use >=.
func branchSatisfied(cond models.BranchConditions, p *models.StoryProgress) bool {
	for attr, threshold := range cond.Stats {
		if p.Attributes[attr] < threshold {
			return false
		}
	}
	for _, chapter := range cond.Chapters {
		if !progress.IsChapterCompleted(p, chapter) {
			return false
		}
	}
	for name, threshold := range cond.Relationships {
		if p.Relationships[name] < threshold {
			return false
		}
	}
	for _, item := range cond.Items {
		if !p.SpecialItems[item] {
			return false
		}
	}
	if cond.IsNewPlayer != nil && *cond.IsNewPlayer != p.NewPlayer {
		return false
	}
	return true
}

// InheritPrefix prepends the current chapter's leading segment to bare ids,
// so "4" resolved from "2_3" becomes "2_4". The same rule applies during
// structural validation so authored shorthand ids resolve consistently.
func InheritPrefix(currentID, next string) string {
	if strings.Contains(next, "_") {
		return next
	}
	idx := strings.Index(currentID, "_")
	if idx <= 0 {
		return next
	}
	return currentID[:idx+1] + next
}
