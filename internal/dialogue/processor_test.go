package dialogue_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"saga-server/internal/arc"
	"saga-server/internal/dialogue"
	"saga-server/internal/models"
	"saga-server/internal/progress"
)

func testManager(t *testing.T) *arc.Manager {
	t.Helper()
	defs := map[string]*models.ChapterDefinition{
		"1_1": {
			ID: "1_1", Kind: models.ChapterKindStory,
			Title: "Arrival", Description: "The gates open.",
			Dialogues: []models.DialogueNode{
				{Text: "A porter waves you in.", Choices: []models.Choice{
					{Text: "Nod", Moral: "neutral"},
					{Text: "Ask about the towers", Approach: "diplomatic"},
				}},
			},
			Rewards: models.RewardSet{Experience: 10},
			Next:    models.ChapterLink{ID: "2"},
		},
		"1_2": {
			ID: "1_2", Kind: models.ChapterKindStory,
			Title: "The First Bell", Description: "Classes begin.",
			Dialogues: []models.DialogueNode{{Text: "The bell tolls."}},
			Terminal:  true,
		},
	}
	a := arc.NewArc("first_year", "First Year", "1_1", nil, defs)
	manager, issues := arc.NewManager([]*arc.Arc{a}, zap.NewNop())
	require.Empty(t, issues)
	return manager
}

func TestProcessorStartChapter(t *testing.T) {
	pr := dialogue.NewProcessor(testManager(t), zap.NewNop())
	p := models.NewStoryProgress(uuid.New())

	t.Run("Known chapter", func(t *testing.T) {
		next, pres, err := pr.StartChapter(p, "1_1")
		require.NoError(t, err)
		assert.Equal(t, "1_1", next.CurrentChapterID)
		assert.Equal(t, "Arrival", pres.Title)
	})

	t.Run("Unknown chapter", func(t *testing.T) {
		_, _, err := pr.StartChapter(p, "9_9")
		assert.ErrorIs(t, err, models.ErrChapterNotFound)
	})
}

func TestProcessorAdvance(t *testing.T) {
	pr := dialogue.NewProcessor(testManager(t), zap.NewNop())

	t.Run("Returns the chosen choice", func(t *testing.T) {
		p := models.NewStoryProgress(uuid.New())
		p, _, err := pr.StartChapter(p, "1_1")
		require.NoError(t, err)

		_, _, chosen, err := pr.Advance(p, 1)
		require.NoError(t, err)
		require.NotNil(t, chosen)
		assert.Equal(t, "diplomatic", chosen.Approach)
	})

	t.Run("Out of range index yields no choice", func(t *testing.T) {
		p := models.NewStoryProgress(uuid.New())
		p, _, err := pr.StartChapter(p, "1_1")
		require.NoError(t, err)

		_, _, chosen, err := pr.Advance(p, 7)
		require.NoError(t, err)
		assert.Nil(t, chosen)
	})

	t.Run("Completion moves the pointer to the resolved chapter", func(t *testing.T) {
		p := models.NewStoryProgress(uuid.New())
		p, _, err := pr.StartChapter(p, "1_1")
		require.NoError(t, err)

		next, pres, _, err := pr.Advance(p, 0)
		require.NoError(t, err)
		assert.True(t, pres.ChapterComplete)
		assert.Equal(t, "1_2", progress.CurrentChapter(next))
		assert.Zero(t, next.DialogueIndex)
		assert.True(t, next.CompletedChapters["1_1"])
		assert.Equal(t, 10, next.Experience)
	})

	t.Run("Terminal chapter ends in place without error", func(t *testing.T) {
		p := models.NewStoryProgress(uuid.New())
		p, _, err := pr.StartChapter(p, "1_2")
		require.NoError(t, err)

		next, pres, _, err := pr.Advance(p, 0)
		require.NoError(t, err)
		assert.True(t, pres.ChapterComplete)
		assert.Equal(t, "1_2", progress.CurrentChapter(next))
		assert.True(t, next.CompletedChapters["1_2"])
	})

	t.Run("Missing current chapter surfaces not found", func(t *testing.T) {
		p := models.NewStoryProgress(uuid.New())
		p.CurrentChapterID = "ghost_wing"
		_, _, _, err := pr.Advance(p, 0)
		assert.ErrorIs(t, err, models.ErrChapterNotFound)
	})
}

func TestProcessorCurrentPresentation(t *testing.T) {
	pr := dialogue.NewProcessor(testManager(t), zap.NewNop())
	p := models.NewStoryProgress(uuid.New())
	p, _, err := pr.StartChapter(p, "1_1")
	require.NoError(t, err)

	pres, err := pr.CurrentPresentation(p)
	require.NoError(t, err)
	assert.Equal(t, "1_1", pres.ChapterID)
	require.NotNil(t, pres.CurrentDialogue)
	assert.Len(t, pres.AvailableChoices, 2)
}
