package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"saga-server/internal/arc"
	"saga-server/internal/consequence"
	"saga-server/internal/dialogue"
	"saga-server/internal/messaging"
	"saga-server/internal/models"
	"saga-server/internal/repository"
	"saga-server/internal/service"
)

// --- Mocks ---

type mockProgressRepo struct {
	mock.Mock
}

func (m *mockProgressRepo) Load(ctx context.Context, playerID uuid.UUID) (*models.StoryProgress, error) {
	args := m.Called(ctx, playerID)
	if p, ok := args.Get(0).(*models.StoryProgress); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProgressRepo) Save(ctx context.Context, p *models.StoryProgress) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type mockUpdatePublisher struct {
	mock.Mock
}

func (m *mockUpdatePublisher) PublishPlayerUpdate(ctx context.Context, payload messaging.PlayerUpdatePayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type mockPayoffPublisher struct {
	mock.Mock
}

func (m *mockPayoffPublisher) PublishPayoff(ctx context.Context, payload messaging.PayoffPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// --- Fixtures ---

func testManager(t *testing.T) *arc.Manager {
	t.Helper()
	defs := map[string]*models.ChapterDefinition{
		"1_1": {
			ID: "1_1", Kind: models.ChapterKindStory,
			Title: "Arrival", Description: "The gates open.",
			Dialogues: []models.DialogueNode{
				{Text: "A porter waves you in.", Choices: []models.Choice{
					{Text: "Nod", Moral: "neutral"},
					{Text: "Slip a coin", FactionEffects: map[string]int{"undercroft": 30}},
				}},
			},
			Next: models.ChapterLink{ID: "2"},
		},
		"1_2": {
			ID: "1_2", Kind: models.ChapterKindStory,
			Title: "The First Bell", Description: "Classes begin.",
			Dialogues: []models.DialogueNode{{Text: "The bell tolls."}},
			Terminal:  true,
			Interlude: true,
		},
	}
	a := arc.NewArc("first_year", "First Year", "1_1", nil, defs)
	manager, issues := arc.NewManager([]*arc.Arc{a}, zap.NewNop())
	require.Empty(t, issues)
	return manager
}

func testEngine() *consequence.Engine {
	return consequence.NewEngine(
		consequence.NewFactionGraph(consequence.DefaultFactions()),
		consequence.DefaultPatterns(),
		nil,
	)
}

func newService(repo repository.ProgressRepository, updatePub messaging.UpdatePublisher, payoffPub messaging.PayoffPublisher, t *testing.T) service.StoryService {
	manager := testManager(t)
	return service.NewStoryService(
		repo,
		dialogue.NewProcessor(manager, zap.NewNop()),
		testEngine(),
		manager,
		updatePub,
		payoffPub,
		zap.NewNop(),
	)
}

// --- Tests ---

func TestStartChapter(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()

	t.Run("New player gets initialized progress", func(t *testing.T) {
		repo := new(mockProgressRepo)
		repo.On("Load", ctx, playerID).Return(nil, models.ErrProgressNotFound).Once()
		repo.On("Save", ctx, mock.MatchedBy(func(p *models.StoryProgress) bool {
			return p.PlayerID == playerID && p.CurrentChapterID == "1_1"
		})).Return(nil).Once()

		svc := newService(repo, nil, nil, t)
		pres, err := svc.StartChapter(ctx, playerID, "1_1")
		require.NoError(t, err)
		assert.Equal(t, "Arrival", pres.Title)
		repo.AssertExpectations(t)
	})

	t.Run("Unknown chapter is not persisted", func(t *testing.T) {
		repo := new(mockProgressRepo)
		repo.On("Load", ctx, playerID).Return(models.NewStoryProgress(playerID), nil).Once()

		svc := newService(repo, nil, nil, t)
		_, err := svc.StartChapter(ctx, playerID, "9_9")
		assert.ErrorIs(t, err, models.ErrChapterNotFound)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestAdvanceRunsConsequencePass(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()

	stored := models.NewStoryProgress(playerID)
	stored.CurrentChapterID = "1_1"

	repo := new(mockProgressRepo)
	repo.On("Load", ctx, playerID).Return(stored, nil).Once()

	var saved *models.StoryProgress
	repo.On("Save", ctx, mock.MatchedBy(func(p *models.StoryProgress) bool {
		saved = p
		return true
	})).Return(nil).Once()

	payoffPub := new(mockPayoffPublisher)
	payoffPub.On("PublishPayoff", ctx, mock.Anything).Return(nil)

	svc := newService(repo, nil, payoffPub, t)
	pres, err := svc.Advance(ctx, playerID, 1)
	require.NoError(t, err)
	assert.True(t, pres.ChapterComplete)

	require.NotNil(t, saved)
	assert.Equal(t, 30, saved.FactionReputation["undercroft"])
	assert.Equal(t, 15, saved.FactionReputation["duelists"], "ally propagation")
	assert.Equal(t, -10, saved.FactionReputation["prefects"], "rival propagation")
	assert.Equal(t, "1_2", saved.CurrentChapterID)

	// The undercroft crossing neutral->friendly queued a payoff; after a
	// successful publish nothing stays pending.
	payoffPub.AssertCalled(t, "PublishPayoff", ctx, mock.MatchedBy(func(p messaging.PayoffPayload) bool {
		return p.Event.Kind == "tier_changed" && p.Event.Faction == "undercroft"
	}))
	assert.Empty(t, saved.PendingConsequences)
}

func TestAdvanceKeepsEventsOnPublishFailure(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()

	stored := models.NewStoryProgress(playerID)
	stored.CurrentChapterID = "1_1"

	repo := new(mockProgressRepo)
	repo.On("Load", ctx, playerID).Return(stored, nil).Once()

	var saved *models.StoryProgress
	repo.On("Save", ctx, mock.MatchedBy(func(p *models.StoryProgress) bool {
		saved = p
		return true
	})).Return(nil).Once()

	payoffPub := new(mockPayoffPublisher)
	payoffPub.On("PublishPayoff", ctx, mock.Anything).Return(assert.AnError)

	svc := newService(repo, nil, payoffPub, t)
	_, err := svc.Advance(ctx, playerID, 1)
	require.NoError(t, err, "publish failure must not fail the action")

	require.NotNil(t, saved)
	assert.NotEmpty(t, saved.PendingConsequences, "unpublished events stay pending")
}

func TestAdvanceQueuesInterludeEvent(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()

	stored := models.NewStoryProgress(playerID)
	stored.CurrentChapterID = "1_2"

	repo := new(mockProgressRepo)
	repo.On("Load", ctx, playerID).Return(stored, nil).Once()

	var saved *models.StoryProgress
	repo.On("Save", ctx, mock.MatchedBy(func(p *models.StoryProgress) bool {
		saved = p
		return true
	})).Return(nil).Once()

	payoffPub := new(mockPayoffPublisher)
	payoffPub.On("PublishPayoff", ctx, mock.MatchedBy(func(p messaging.PayoffPayload) bool {
		return p.Event.Kind == "interlude" && p.Event.Detail != ""
	})).Return(nil).Once()

	svc := newService(repo, nil, payoffPub, t)
	pres, err := svc.Advance(ctx, playerID, 0)
	require.NoError(t, err)
	assert.True(t, pres.ChapterComplete)

	require.NotNil(t, saved)
	assert.Len(t, saved.RecentEvents, 1, "the drawn event enters the no-repeat window")
	payoffPub.AssertExpectations(t)
}

func TestConcurrentInterludeDraws(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryProgressRepository()

	players := make([]uuid.UUID, 8)
	for i := range players {
		players[i] = uuid.New()
		stored := models.NewStoryProgress(players[i])
		stored.CurrentChapterID = "1_2"
		require.NoError(t, repo.Save(ctx, stored))
	}

	svc := newService(repo, nil, nil, t)

	var wg sync.WaitGroup
	for _, playerID := range players {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.Advance(ctx, id, 0)
			assert.NoError(t, err)
		}(playerID)
	}
	wg.Wait()

	for _, playerID := range players {
		p, err := repo.Load(ctx, playerID)
		require.NoError(t, err)
		assert.Len(t, p.RecentEvents, 1)
	}
}

func TestHandleAction(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()

	t.Run("Advance action publishes an update", func(t *testing.T) {
		stored := models.NewStoryProgress(playerID)
		stored.CurrentChapterID = "1_2"

		repo := new(mockProgressRepo)
		repo.On("Load", ctx, playerID).Return(stored, nil)
		repo.On("Save", ctx, mock.Anything).Return(nil)

		updatePub := new(mockUpdatePublisher)
		updatePub.On("PublishPlayerUpdate", ctx, mock.MatchedBy(func(p messaging.PlayerUpdatePayload) bool {
			return p.PlayerID == playerID.String() && p.Error == ""
		})).Return(nil).Once()

		svc := newService(repo, updatePub, nil, t)
		handler := svc.(messaging.ActionHandler)
		err := handler.HandleAction(ctx, playerID, messaging.PlayerActionPayload{
			PlayerID: playerID.String(),
			Action:   messaging.ActionAdvance,
		})
		require.NoError(t, err)
		updatePub.AssertExpectations(t)
	})

	t.Run("Unknown action reports error in the update", func(t *testing.T) {
		repo := new(mockProgressRepo)
		repo.On("Load", ctx, playerID).Return(models.NewStoryProgress(playerID), nil)

		updatePub := new(mockUpdatePublisher)
		updatePub.On("PublishPlayerUpdate", ctx, mock.MatchedBy(func(p messaging.PlayerUpdatePayload) bool {
			return p.Error != ""
		})).Return(nil).Once()

		svc := newService(repo, updatePub, nil, t)
		handler := svc.(messaging.ActionHandler)
		err := handler.HandleAction(ctx, playerID, messaging.PlayerActionPayload{
			PlayerID: playerID.String(),
			Action:   "dance",
		})
		assert.ErrorIs(t, err, models.ErrBadRequest)
		updatePub.AssertExpectations(t)
	})
}

func TestAvailableChapters(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()

	stored := models.NewStoryProgress(playerID)
	stored.CompletedChapters["1_1"] = true

	repo := new(mockProgressRepo)
	repo.On("Load", ctx, playerID).Return(stored, nil).Once()

	svc := newService(repo, nil, nil, t)
	ids, err := svc.AvailableChapters(ctx, playerID)
	require.NoError(t, err)
	assert.NotContains(t, ids, "1_1")
	assert.Contains(t, ids, "1_2")
}
