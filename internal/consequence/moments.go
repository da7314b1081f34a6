package consequence

import (
	"saga-server/internal/models"
	"saga-server/internal/progress"
)

// Moment is a one-time narrative payoff gated by completed chapters AND at
// least one matching trigger pattern.
type Moment struct {
	ID               string
	Title            string
	RequiredChapters []string
	TriggerPatterns  []string
	Outcome          MomentOutcome
}

// MomentOutcome is applied exactly once when the moment fires.
type MomentOutcome struct {
	FactionDeltas   map[string]int
	HierarchyPoints int
	SpecialItem     string
}

// Engine evaluates the consequence pass over a snapshot: choice tracking,
// faction effects and moments of definition.
type Engine struct {
	graph    *FactionGraph
	patterns map[string]Pattern
	moments  []Moment
}

// NewEngine wires the fixed tables. Pattern ids referenced by moments must
// exist in the pattern table; unknown ids simply never match.
func NewEngine(graph *FactionGraph, patterns []Pattern, moments []Moment) *Engine {
	byID := make(map[string]Pattern, len(patterns))
	for _, pattern := range patterns {
		byID[pattern.ID] = pattern
	}
	return &Engine{graph: graph, patterns: byID, moments: moments}
}

// Graph exposes the faction graph for callers applying direct deltas.
func (e *Engine) Graph() *FactionGraph {
	return e.graph
}

// ApplyChoice runs the full consequence pass for one resolved choice:
// category tracking, the choice's own faction and relationship effects,
// then moment evaluation.
func (e *Engine) ApplyChoice(p *models.StoryProgress, choice models.Choice) *models.StoryProgress {
	next := TrackChoice(p, choice)
	for factionID, delta := range choice.FactionEffects {
		next = e.graph.UpdateReputation(next, factionID, delta)
	}
	for name, delta := range choice.RelationshipEffects {
		next = progress.AdjustRelationship(next, name, delta)
	}
	return e.EvaluateMoments(next)
}

// EvaluateMoments fires every satisfied, not-yet-fired moment. A moment
// requires all of its chapters completed and at least one trigger pattern
// matched; the first matching pattern in table order selects the outcome.
// Re-evaluating a fired moment is a no-op.
func (e *Engine) EvaluateMoments(p *models.StoryProgress) *models.StoryProgress {
	next := p
	for _, moment := range e.moments {
		if next.FiredMoments[moment.ID] {
			continue
		}
		if !e.chaptersSatisfied(next, moment) {
			continue
		}
		matched := e.firstMatchedPattern(next, moment)
		if matched == "" {
			continue
		}
		next = e.fire(next, moment, matched)
	}
	if next == p {
		return p.Clone()
	}
	return next
}

func (e *Engine) chaptersSatisfied(p *models.StoryProgress, moment Moment) bool {
	for _, chapter := range moment.RequiredChapters {
		if !progress.IsChapterCompleted(p, chapter) {
			return false
		}
	}
	return true
}

func (e *Engine) firstMatchedPattern(p *models.StoryProgress, moment Moment) string {
	for _, patternID := range moment.TriggerPatterns {
		pattern, ok := e.patterns[patternID]
		if !ok {
			continue
		}
		if MatchesPattern(p, pattern) {
			return patternID
		}
	}
	return ""
}

func (e *Engine) fire(p *models.StoryProgress, moment Moment, patternID string) *models.StoryProgress {
	next := p.Clone()
	next.FiredMoments[moment.ID] = true

	for factionID, delta := range moment.Outcome.FactionDeltas {
		next = e.graph.UpdateReputation(next, factionID, delta)
	}
	if moment.Outcome.HierarchyPoints != 0 {
		next = progress.AddHierarchyPoints(next, moment.Outcome.HierarchyPoints)
	}
	if moment.Outcome.SpecialItem != "" {
		next = progress.AddSpecialItem(next, moment.Outcome.SpecialItem)
	}

	next.PendingConsequences = append(next.PendingConsequences, models.ConsequenceEvent{
		Kind:     "moment_fired",
		MomentID: moment.ID,
		Detail:   patternID,
		Deltas:   moment.Outcome.FactionDeltas,
	})
	return next
}

// DefaultMoments is the authored moment table.
func DefaultMoments() []Moment {
	return []Moment{
		{
			ID:               "crucible_of_honor",
			Title:            "Crucible of Honor",
			RequiredChapters: []string{"1_3", "1_4"},
			TriggerPatterns:  []string{"paragon", "silver_tongue"},
			Outcome: MomentOutcome{
				FactionDeltas:   map[string]int{"prefects": 20},
				HierarchyPoints: 15,
				SpecialItem:     "sigil_of_the_council",
			},
		},
		{
			ID:               "whisper_in_the_dark",
			Title:            "Whisper in the Dark",
			RequiredChapters: []string{"1_5"},
			TriggerPatterns:  []string{"ghost", "renegade"},
			Outcome: MomentOutcome{
				FactionDeltas:   map[string]int{"undercroft": 25, "prefects": -10},
				HierarchyPoints: 10,
				SpecialItem:     "undercroft_key",
			},
		},
		{
			ID:               "breaking_of_chains",
			Title:            "The Breaking of Chains",
			RequiredChapters: []string{"2_2"},
			TriggerPatterns:  []string{"firebrand"},
			Outcome: MomentOutcome{
				FactionDeltas:   map[string]int{"wardens": -15, "duelists": 15},
				HierarchyPoints: 20,
				SpecialItem:     "broken_manacle",
			},
		},
		{
			ID:               "the_long_ledger",
			Title:            "The Long Ledger",
			RequiredChapters: []string{"2_3", "2_4"},
			TriggerPatterns:  []string{"pragmatist", "lone_wolf"},
			Outcome: MomentOutcome{
				FactionDeltas:   map[string]int{"archivists": 20},
				HierarchyPoints: 10,
				SpecialItem:     "sealed_ledger",
			},
		},
	}
}
