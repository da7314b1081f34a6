package models

// ChapterKind discriminates the polymorphic chapter variants.
type ChapterKind string

const (
	ChapterKindStory     ChapterKind = "story"
	ChapterKindChallenge ChapterKind = "challenge"
	ChapterKindBranching ChapterKind = "branching"
)

// Challenge outcome keys used in conditional next-chapter tables.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDefault = "default"
)

// ChapterDefinition is the read-only content unit built once at load time.
type ChapterDefinition struct {
	ID          string      `json:"id" validate:"required"`
	Kind        ChapterKind `json:"type" yaml:"type" validate:"required,oneof=story challenge branching"`
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description" validate:"required"`

	Dialogues []DialogueNode `json:"dialogues,omitempty"`
	Choices   []Choice       `json:"choices,omitempty"`

	Rewards RewardSet `json:"rewards,omitempty"`

	// Next holds the literal-or-conditional next-chapter reference,
	// normalized by the content loader.
	Next ChapterLink `json:"next_chapter,omitempty" yaml:"next_chapter"`

	// Branches is the ordered branch-predicate list for branching chapters;
	// declaration order is resolution order.
	Branches []BranchDefinition `json:"branches,omitempty"`

	// Scenes is the ordered scene graph for branching chapters. Each scene
	// is itself a dialogue sequence.
	Scenes []Scene `json:"scenes,omitempty"`

	Requirements *Requirements `json:"requirements,omitempty"`

	// Terminal marks an intentional story ending; validation does not flag
	// terminal chapters as dead ends.
	Terminal bool `json:"terminal,omitempty"`

	// Interlude requests a random narrative event after this chapter
	// completes.
	Interlude bool `json:"interlude,omitempty"`

	// Club-gated chapter fields.
	ClubID               string   `json:"club_id,omitempty" yaml:"club_id"`
	RequiredLevel        int      `json:"required_level,omitempty" yaml:"required_level"`
	RequiredAttendance   int      `json:"required_attendance,omitempty" yaml:"required_attendance"`
	RequiredAchievements []string `json:"required_achievements,omitempty" yaml:"required_achievements"`

	// Challenge chapter fields.
	ChallengeType       string               `json:"challenge_type,omitempty" yaml:"challenge_type"`
	Difficulty          int                  `json:"difficulty,omitempty"`
	RewardTable         map[string]RewardSet `json:"reward_table,omitempty" yaml:"reward_table"`
	FailureConsequences map[string]int       `json:"failure_consequences,omitempty" yaml:"failure_consequences"`
	SecretChapter       string               `json:"secret_chapter,omitempty" yaml:"secret_chapter"`
}

// DialogueNode is a single line of narration or speech with an optional
// inline choice set.
type DialogueNode struct {
	Speaker string   `json:"speaker,omitempty"`
	Text    string   `json:"text" validate:"required"`
	Choices []Choice `json:"choices,omitempty"`
}

// Choice carries the player-visible text plus author metadata consumed by
// the consequence engine and the attribute-check path.
type Choice struct {
	Text string `json:"text" validate:"required"`

	// Semantic categories (any may be empty).
	Moral    string `json:"moral,omitempty"`
	Approach string `json:"approach,omitempty"`
	Loyalty  string `json:"loyalty,omitempty"`

	AttributeCheck *AttributeCheck `json:"attribute_check,omitempty" yaml:"attribute_check"`

	// FactionEffects: faction id -> reputation delta applied when chosen.
	FactionEffects map[string]int `json:"faction_effects,omitempty" yaml:"faction_effects"`

	// RelationshipEffects: NPC name -> affinity delta applied when chosen.
	RelationshipEffects map[string]int `json:"relationship_effects,omitempty" yaml:"relationship_effects"`
}

// AttributeCheck compares a player attribute against a threshold; the
// result lands in the transient challenge-outcome slot.
type AttributeCheck struct {
	Attribute string `json:"attribute" validate:"required"`
	Threshold int    `json:"threshold"`
}

// RewardSet is the completion reward of a chapter or challenge outcome.
type RewardSet struct {
	Experience int `json:"experience,omitempty"`
	Currency   int `json:"currency,omitempty"`
}

// ChapterLink is a literal id or a conditional table. Exactly one side is
// populated after loading; ByOutcome is keyed by challenge outcome
// (success/failure/default), ByClub by club or faction id (plus default).
type ChapterLink struct {
	ID        string            `json:"id,omitempty"`
	ByOutcome map[string]string `json:"by_outcome,omitempty"`
	ByClub    map[string]string `json:"by_club,omitempty"`
}

// IsZero reports whether no next-chapter reference was authored.
func (l ChapterLink) IsZero() bool {
	return l.ID == "" && len(l.ByOutcome) == 0 && len(l.ByClub) == 0
}

// BranchDefinition is one entry of an ordered branch-predicate list.
type BranchDefinition struct {
	ID          string            `json:"id"`
	Conditions  BranchConditions  `json:"conditions"`
	NextChapter string            `json:"next_chapter" yaml:"next_chapter" validate:"required"`
}

// BranchConditions are evaluated conjunctively; numeric comparisons use >=.
type BranchConditions struct {
	Stats         map[string]int `json:"stats,omitempty"`
	Chapters      []string       `json:"chapters,omitempty"`
	Relationships map[string]int `json:"relationships,omitempty"`
	Items         []string       `json:"items,omitempty"`
	IsNewPlayer   *bool          `json:"is_new_player,omitempty" yaml:"is_new_player"`
}

// Scene is one node of a branching chapter's ordered scene graph.
type Scene struct {
	ID        string         `json:"id,omitempty"`
	Dialogues []DialogueNode `json:"dialogues,omitempty"`
	Choices   []Choice       `json:"choices,omitempty"`
}

// Requirements gate a chapter on player state.
type Requirements struct {
	Stats       map[string]int `json:"stats,omitempty"`
	Chapters    []string       `json:"chapters,omitempty"`
	IsNewPlayer *bool          `json:"is_new_player,omitempty" yaml:"is_new_player"`
}
