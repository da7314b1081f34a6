// Package story implements the polymorphic chapter model: story, challenge
// and branching chapters sharing a composed base behavior. Chapters are
// stateless views over read-only definitions; all player state flows
// through the progress snapshot.
package story

import (
	"strconv"

	"saga-server/internal/models"
	"saga-server/internal/progress"
)

// Chapter is the common contract over {start, advance, complete, resolveNext}.
type Chapter interface {
	// ID reports the id this instance answers to. For suffix-synthesized
	// variants it differs from the underlying definition's id.
	ID() string
	Definition() *models.ChapterDefinition

	// Start initializes the dialogue position and builds the opening
	// presentation. Already completed/failed ids set the corresponding
	// presentation flag instead of re-entering the reward path.
	Start(p *models.StoryProgress) (*models.StoryProgress, models.Presentation)

	// Advance applies one choice and moves the dialogue forward. An
	// out-of-range choiceIndex is recovered locally with a synthetic
	// continue choice; it is never an error.
	Advance(p *models.StoryProgress, choiceIndex int) (*models.StoryProgress, models.Presentation)

	// Choices returns the choice set in effect at the player's current
	// dialogue position.
	Choices(p *models.StoryProgress) []models.Choice

	// Presentation rebuilds the view for the player's current dialogue
	// position without touching state.
	Presentation(p *models.StoryProgress) models.Presentation

	// Complete is idempotent: set-semantics completion, rewards granted
	// exactly once per id.
	Complete(p *models.StoryProgress) *models.StoryProgress

	// ResolveNext picks the next chapter id, or reports false when the
	// chapter is terminal or unresolvable.
	ResolveNext(p *models.StoryProgress) (string, bool)
}

// New builds a chapter instance for the definition, dispatching on kind.
func New(def *models.ChapterDefinition) Chapter {
	return NewAlias(def, def.ID)
}

// NewAlias builds a chapter that reports the given id while reusing the
// definition's content. One authored chapter can serve as its own
// _success/_failure variants this way.
func NewAlias(def *models.ChapterDefinition, id string) Chapter {
	base := baseChapter{id: id, def: def}
	switch def.Kind {
	case models.ChapterKindChallenge:
		return &challengeChapter{baseChapter: base}
	case models.ChapterKindBranching:
		return &branchingChapter{baseChapter: base, sequence: flattenScenes(def)}
	default:
		return &storyChapter{baseChapter: base}
	}
}

// baseChapter carries the default behavior shared by all kinds.
type baseChapter struct {
	id  string
	def *models.ChapterDefinition
}

func (c *baseChapter) ID() string                            { return c.id }
func (c *baseChapter) Definition() *models.ChapterDefinition { return c.def }

// dialogueSequence returns the dialogue nodes the chapter walks through.
// A chapter authored with only a top-level choice set contributes a single
// empty narration node, so the choices are presented and consumed before
// the chapter can complete.
func (c *baseChapter) dialogueSequence() []models.DialogueNode {
	if len(c.def.Dialogues) == 0 && len(c.def.Choices) > 0 {
		return []models.DialogueNode{{Choices: c.def.Choices}}
	}
	return c.def.Dialogues
}

func (c *baseChapter) start(p *models.StoryProgress, seq []models.DialogueNode) (*models.StoryProgress, models.Presentation) {
	next := progress.SetCurrentChapter(p, c.id)

	pres := models.Presentation{
		ChapterID:   c.id,
		Title:       c.def.Title,
		Description: c.def.Description,
	}
	if progress.IsChapterCompleted(p, c.id) {
		pres.AlreadyCompleted = true
	}
	if p.FailedChallenges[c.id] {
		pres.AlreadyFailed = true
	}
	fillPresentation(&pres, c.def, seq, 0)
	return next, pres
}

func (c *baseChapter) advance(p *models.StoryProgress, seq []models.DialogueNode, choiceIndex int) (*models.StoryProgress, models.Presentation) {
	pres := models.Presentation{
		ChapterID:   c.id,
		Title:       c.def.Title,
		Description: c.def.Description,
	}

	if p.DialogueIndex >= len(seq) {
		pres.ChapterComplete = true
		return p.Clone(), pres
	}

	available := choicesAt(c.def, seq, p.DialogueIndex)
	next := p
	if choiceIndex < 0 || choiceIndex >= len(available) {
		// Never strand the player: an out-of-range index collapses to the
		// single synthetic continue choice and carries no metadata.
		next = p.Clone()
	} else {
		chosen := available[choiceIndex]
		next = progress.RecordChoice(p, c.id, strconv.Itoa(p.DialogueIndex), strconv.Itoa(choiceIndex))
		if check := chosen.AttributeCheck; check != nil {
			outcome := models.OutcomeFailure
			if next.Attributes[check.Attribute] >= check.Threshold {
				outcome = models.OutcomeSuccess
			}
			next = progress.SetChallengeOutcome(next, outcome)
		}
	}

	next.DialogueIndex = p.DialogueIndex + 1
	if next.DialogueIndex >= len(seq) {
		pres.ChapterComplete = true
	}
	fillPresentation(&pres, c.def, seq, next.DialogueIndex)
	return next, pres
}

func (c *baseChapter) complete(p *models.StoryProgress) *models.StoryProgress {
	if progress.IsChapterCompleted(p, c.id) {
		return p.Clone()
	}
	next := progress.CompleteChapter(p, c.id)
	return progress.GrantRewards(next, c.def.Rewards)
}

// presentationAt builds the view for an arbitrary dialogue position.
func (c *baseChapter) presentationAt(p *models.StoryProgress, seq []models.DialogueNode) models.Presentation {
	pres := models.Presentation{
		ChapterID:   c.id,
		Title:       c.def.Title,
		Description: c.def.Description,
	}
	if progress.IsChapterCompleted(p, c.id) {
		pres.AlreadyCompleted = true
	}
	if p.FailedChallenges[c.id] {
		pres.AlreadyFailed = true
	}
	if p.DialogueIndex >= len(seq) {
		pres.ChapterComplete = true
	}
	fillPresentation(&pres, c.def, seq, p.DialogueIndex)
	return pres
}

// choicesAt returns the choice set in effect at a dialogue position: the
// node's inline choices when present, otherwise the chapter-level set. An
// empty result is replaced by the synthetic continue choice.
func choicesAt(def *models.ChapterDefinition, seq []models.DialogueNode, index int) []models.Choice {
	if index < len(seq) && len(seq[index].Choices) > 0 {
		return seq[index].Choices
	}
	if len(def.Choices) > 0 {
		return def.Choices
	}
	return []models.Choice{models.ContinueChoice()}
}

func fillPresentation(pres *models.Presentation, def *models.ChapterDefinition, seq []models.DialogueNode, index int) {
	if index < len(seq) {
		node := seq[index]
		pres.CurrentDialogue = &node
		pres.AvailableChoices = choicesAt(def, seq, index)
	}
}

// storyChapter is the plain narrative variant; all behavior is the base's.
type storyChapter struct {
	baseChapter
}

func (c *storyChapter) Start(p *models.StoryProgress) (*models.StoryProgress, models.Presentation) {
	return c.start(p, c.dialogueSequence())
}

func (c *storyChapter) Advance(p *models.StoryProgress, choiceIndex int) (*models.StoryProgress, models.Presentation) {
	return c.advance(p, c.dialogueSequence(), choiceIndex)
}

func (c *storyChapter) Choices(p *models.StoryProgress) []models.Choice {
	return choicesAt(c.def, c.dialogueSequence(), p.DialogueIndex)
}

func (c *storyChapter) Presentation(p *models.StoryProgress) models.Presentation {
	return c.presentationAt(p, c.dialogueSequence())
}

func (c *storyChapter) Complete(p *models.StoryProgress) *models.StoryProgress {
	return c.complete(p)
}

func (c *storyChapter) ResolveNext(p *models.StoryProgress) (string, bool) {
	return resolveNext(c.id, c.def, p)
}
