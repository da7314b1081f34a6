package story

import (
	"saga-server/internal/models"
)

// branchingChapter walks an ordered scene graph; the dialogue index runs
// over the flattened scene sequence, so the chapter stays InProgress while
// scenes remain.
type branchingChapter struct {
	baseChapter
	sequence []models.DialogueNode
}

// flattenScenes concatenates scene dialogue in declaration order. Scenes
// with chapter-level choices but no dialogue contribute a single empty
// narration node so the choice set still gets presented.
func flattenScenes(def *models.ChapterDefinition) []models.DialogueNode {
	if len(def.Scenes) == 0 {
		if len(def.Dialogues) == 0 && len(def.Choices) > 0 {
			return []models.DialogueNode{{Choices: def.Choices}}
		}
		return def.Dialogues
	}
	var seq []models.DialogueNode
	for _, scene := range def.Scenes {
		if len(scene.Dialogues) == 0 && len(scene.Choices) > 0 {
			seq = append(seq, models.DialogueNode{Choices: scene.Choices})
			continue
		}
		seq = append(seq, scene.Dialogues...)
	}
	return seq
}

func (c *branchingChapter) Start(p *models.StoryProgress) (*models.StoryProgress, models.Presentation) {
	return c.start(p, c.sequence)
}

func (c *branchingChapter) Advance(p *models.StoryProgress, choiceIndex int) (*models.StoryProgress, models.Presentation) {
	return c.advance(p, c.sequence, choiceIndex)
}

func (c *branchingChapter) Choices(p *models.StoryProgress) []models.Choice {
	return choicesAt(c.def, c.sequence, p.DialogueIndex)
}

func (c *branchingChapter) Presentation(p *models.StoryProgress) models.Presentation {
	return c.presentationAt(p, c.sequence)
}

func (c *branchingChapter) Complete(p *models.StoryProgress) *models.StoryProgress {
	return c.complete(p)
}

func (c *branchingChapter) ResolveNext(p *models.StoryProgress) (string, bool) {
	return resolveNext(c.id, c.def, p)
}
