// Package dialogue implements the within-chapter advance logic: starting
// chapters, applying choices and handing off completed chapters to
// next-chapter resolution.
package dialogue

import (
	"errors"

	"go.uber.org/zap"

	"saga-server/internal/arc"
	"saga-server/internal/models"
	"saga-server/internal/progress"
)

// Processor drives a player through the current chapter. It is a pure
// coordinator: every method takes and returns a progress snapshot.
type Processor struct {
	manager *arc.Manager
	logger  *zap.Logger
}

func NewProcessor(manager *arc.Manager, logger *zap.Logger) *Processor {
	return &Processor{manager: manager, logger: logger.Named("DialogueProcessor")}
}

// StartChapter positions the player at the beginning of the chapter.
// Unknown ids surface as ErrChapterNotFound for the caller to recover.
func (pr *Processor) StartChapter(p *models.StoryProgress, chapterID string) (*models.StoryProgress, models.Presentation, error) {
	chapter, err := pr.manager.GetChapter(chapterID)
	if err != nil {
		pr.logger.Warn("requested chapter resolves nowhere", zap.String("chapterID", chapterID))
		return nil, models.Presentation{}, err
	}
	next, pres := chapter.Start(p)
	return next, pres, nil
}

// Advance applies one choice to the player's current chapter. On chapter
// completion it completes the chapter (idempotently), resolves the next
// chapter and moves the pointer. A chapter without a resolvable successor
// ends the story in place; that is not an error.
//
// The chosen choice, when the index was valid, is returned for the
// consequence pass.
func (pr *Processor) Advance(p *models.StoryProgress, choiceIndex int) (*models.StoryProgress, models.Presentation, *models.Choice, error) {
	currentID := progress.CurrentChapter(p)
	chapter, err := pr.manager.GetChapter(currentID)
	if err != nil {
		if errors.Is(err, models.ErrChapterNotFound) {
			pr.logger.Warn("current chapter missing from registry", zap.String("chapterID", currentID))
		}
		return nil, models.Presentation{}, nil, err
	}

	var chosen *models.Choice
	if available := chapter.Choices(p); choiceIndex >= 0 && choiceIndex < len(available) {
		choice := available[choiceIndex]
		chosen = &choice
	}

	next, pres := chapter.Advance(p, choiceIndex)

	if !pres.ChapterComplete {
		return next, pres, chosen, nil
	}

	next = chapter.Complete(next)
	nextID, ok := chapter.ResolveNext(next)
	if !ok {
		pr.logger.Info("chapter has no successor, story pauses here",
			zap.String("chapterID", chapter.ID()))
		return next, pres, chosen, nil
	}
	if _, err := pr.manager.GetChapter(nextID); err != nil {
		pr.logger.Warn("resolved next chapter missing from registry",
			zap.String("chapterID", chapter.ID()), zap.String("nextID", nextID))
		return next, pres, chosen, err
	}
	next = progress.SetCurrentChapter(next, nextID)
	return next, pres, chosen, nil
}

// CurrentPresentation rebuilds the presentation for the player's position
// without mutating anything.
func (pr *Processor) CurrentPresentation(p *models.StoryProgress) (models.Presentation, error) {
	currentID := progress.CurrentChapter(p)
	chapter, err := pr.manager.GetChapter(currentID)
	if err != nil {
		return models.Presentation{}, err
	}
	return chapter.Presentation(p), nil
}
