package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryProgress хранит полное повествовательное состояние одного игрока.
// Снапшот сериализуется в JSONB целиком; все операции ядра принимают
// снапшот и возвращают обновлённую копию.
type StoryProgress struct {
	PlayerID uuid.UUID `json:"player_id" db:"player_id"`

	// Current chapter pointer. CurrentChapterID keeps the full id verbatim,
	// including any _success/_failure suffix. Year/Chapter are the legacy
	// numeric counters; ChallengeChapter is the slot for ids that do not
	// parse as "{year}_{chapter}".
	CurrentChapterID string `json:"current_chapter_id"`
	Year             int    `json:"year"`
	Chapter          int    `json:"chapter"`
	ChallengeChapter string `json:"challenge_chapter,omitempty"`

	DialogueIndex int `json:"dialogue_index"`

	CompletedChapters   map[string]bool `json:"completed_chapters"`
	CompletedChallenges map[string]bool `json:"completed_challenges"`
	FailedChallenges    map[string]bool `json:"failed_challenges"`

	// ChoiceLog: chapterId -> arbitrary string key (usually the dialogue
	// index) -> recorded value.
	ChoiceLog map[string]map[string]string `json:"choice_log"`

	// ChallengeOutcome is the transient outcome slot written by attribute
	// checks and consumed by next-chapter resolution. It is intentionally
	// never cleared after consumption (see regression tests).
	ChallengeOutcome string `json:"challenge_outcome,omitempty"`

	Attributes map[string]int `json:"attributes"`
	Experience int            `json:"experience"`
	Currency   int            `json:"currency"`

	HierarchyPoints int `json:"hierarchy_points"`
	HierarchyTier   int `json:"hierarchy_tier"`

	ClubID         string         `json:"club_id,omitempty"`
	ClubLevel      int            `json:"club_level,omitempty"`
	ClubAttendance int            `json:"club_attendance,omitempty"`
	Achievements   map[string]bool `json:"achievements,omitempty"`
	NewPlayer      bool           `json:"new_player"`

	SpecialItems      map[string]bool `json:"special_items"`
	DiscoveredSecrets map[string]bool `json:"discovered_secrets"`

	// Relationships: NPC or faction name -> signed affinity score.
	Relationships map[string]int `json:"relationships"`

	// FactionReputation: faction id -> score clamped to [-100, 100].
	FactionReputation map[string]int    `json:"faction_reputation"`
	ReputationHistory []ReputationShift `json:"reputation_history,omitempty"`

	// ChoicePatterns: semantic category -> ordered list of recorded values,
	// maintained by the choice tracker.
	ChoicePatterns map[string][]string `json:"choice_patterns"`

	// FiredMoments guards one-shot narrative payoffs.
	FiredMoments map[string]bool `json:"fired_moments"`

	// PendingConsequences is drained by the caller after each save.
	PendingConsequences []ConsequenceEvent `json:"pending_consequences,omitempty"`

	// RecentEvents is the short window of interlude event ids used to avoid
	// immediate repeats.
	RecentEvents []string `json:"recent_events,omitempty"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ReputationShift records a crossing between reputation tiers.
type ReputationShift struct {
	Faction  string    `json:"faction"`
	FromTier string    `json:"from_tier"`
	ToTier   string    `json:"to_tier"`
	Score    int       `json:"score"`
	At       time.Time `json:"at"`
}

// ConsequenceEvent is a queued narrative payoff produced by the consequence
// engine and published to the platform after the snapshot is persisted.
type ConsequenceEvent struct {
	Kind     string         `json:"kind"` // "moment_fired", "tier_changed", "interlude"
	MomentID string         `json:"moment_id,omitempty"`
	Faction  string         `json:"faction,omitempty"`
	Detail   string         `json:"detail,omitempty"`
	Deltas   map[string]int `json:"deltas,omitempty"`
}

// NewStoryProgress returns the default-initialized state for a player who
// has never interacted with the story.
func NewStoryProgress(playerID uuid.UUID) *StoryProgress {
	return &StoryProgress{
		PlayerID:            playerID,
		Year:                1,
		Chapter:             1,
		CompletedChapters:   make(map[string]bool),
		CompletedChallenges: make(map[string]bool),
		FailedChallenges:    make(map[string]bool),
		ChoiceLog:           make(map[string]map[string]string),
		Attributes:          make(map[string]int),
		Achievements:        make(map[string]bool),
		NewPlayer:           true,
		SpecialItems:        make(map[string]bool),
		DiscoveredSecrets:   make(map[string]bool),
		Relationships:       make(map[string]int),
		FactionReputation:   make(map[string]int),
		ChoicePatterns:      make(map[string][]string),
		FiredMoments:        make(map[string]bool),
		UpdatedAt:           time.Now().UTC(),
	}
}

// Clone returns a deep copy of the snapshot. Core transforms clone before
// mutating so callers always keep a consistent previous state.
func (p *StoryProgress) Clone() *StoryProgress {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CompletedChapters = cloneBoolSet(p.CompletedChapters)
	cp.CompletedChallenges = cloneBoolSet(p.CompletedChallenges)
	cp.FailedChallenges = cloneBoolSet(p.FailedChallenges)
	cp.Achievements = cloneBoolSet(p.Achievements)
	cp.SpecialItems = cloneBoolSet(p.SpecialItems)
	cp.DiscoveredSecrets = cloneBoolSet(p.DiscoveredSecrets)
	cp.FiredMoments = cloneBoolSet(p.FiredMoments)
	cp.Attributes = cloneIntMap(p.Attributes)
	cp.Relationships = cloneIntMap(p.Relationships)
	cp.FactionReputation = cloneIntMap(p.FactionReputation)
	cp.ChoiceLog = make(map[string]map[string]string, len(p.ChoiceLog))
	for chapter, entries := range p.ChoiceLog {
		inner := make(map[string]string, len(entries))
		for k, v := range entries {
			inner[k] = v
		}
		cp.ChoiceLog[chapter] = inner
	}
	cp.ChoicePatterns = make(map[string][]string, len(p.ChoicePatterns))
	for category, values := range p.ChoicePatterns {
		cp.ChoicePatterns[category] = append([]string(nil), values...)
	}
	cp.ReputationHistory = append([]ReputationShift(nil), p.ReputationHistory...)
	cp.PendingConsequences = append([]ConsequenceEvent(nil), p.PendingConsequences...)
	cp.RecentEvents = append([]string(nil), p.RecentEvents...)
	return &cp
}

func cloneBoolSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
