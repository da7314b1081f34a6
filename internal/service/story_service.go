// Package service coordinates the full player action flow: load snapshot,
// apply the dialogue transition, run the consequence pass, persist, publish.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"saga-server/internal/arc"
	"saga-server/internal/consequence"
	"saga-server/internal/dialogue"
	"saga-server/internal/messaging"
	"saga-server/internal/models"
	"saga-server/internal/progress"
	"saga-server/internal/repository"
)

// StoryService defines the interface for core story interactions.
type StoryService interface {
	// StartChapter positions the player at the beginning of a chapter and
	// returns the opening presentation.
	StartChapter(ctx context.Context, playerID uuid.UUID, chapterID string) (models.Presentation, error)

	// Advance applies one choice to the player's current chapter.
	Advance(ctx context.Context, playerID uuid.UUID, choiceIndex int) (models.Presentation, error)

	// CurrentPresentation rebuilds the player's current view without
	// changing state.
	CurrentPresentation(ctx context.Context, playerID uuid.UUID) (models.Presentation, error)

	// AvailableChapters lists chapter ids the player can start right now,
	// across all unlocked arcs.
	AvailableChapters(ctx context.Context, playerID uuid.UUID) ([]string, error)

	// Progress returns a copy of the player's snapshot.
	Progress(ctx context.Context, playerID uuid.UUID) (*models.StoryProgress, error)
}

type storyServiceImpl struct {
	repo      repository.ProgressRepository
	processor *dialogue.Processor
	engine    *consequence.Engine
	manager   *arc.Manager
	updatePub messaging.UpdatePublisher
	payoffPub messaging.PayoffPublisher
	logger    *zap.Logger

	events []consequence.RandomEvent

	// rng is shared across players; rand.Rand is not safe for concurrent
	// use, so draws take rngMu.
	rngMu sync.Mutex
	rng   *rand.Rand

	// Per-player locks: actions for one player are serialized, players
	// never block each other.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// recentEventWindow bounds the no-repeat window for interlude events.
const recentEventWindow = 3

// NewStoryService creates a new instance of StoryService. The publishers
// may be nil in tests and local runs without a broker.
func NewStoryService(
	repo repository.ProgressRepository,
	processor *dialogue.Processor,
	engine *consequence.Engine,
	manager *arc.Manager,
	updatePub messaging.UpdatePublisher,
	payoffPub messaging.PayoffPublisher,
	logger *zap.Logger,
) *storyServiceImpl {
	return &storyServiceImpl{
		repo:      repo,
		processor: processor,
		engine:    engine,
		manager:   manager,
		updatePub: updatePub,
		payoffPub: payoffPub,
		logger:    logger.Named("StoryService"),
		events:    consequence.DefaultEvents(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

var _ StoryService = (*storyServiceImpl)(nil)
var _ messaging.ActionHandler = (*storyServiceImpl)(nil)

func (s *storyServiceImpl) playerLock(playerID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[playerID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[playerID] = mu
	}
	return mu
}

// loadOrInit returns the stored snapshot, or a fresh one for first-time
// players.
func (s *storyServiceImpl) loadOrInit(ctx context.Context, playerID uuid.UUID) (*models.StoryProgress, error) {
	p, err := s.repo.Load(ctx, playerID)
	if err != nil {
		if errors.Is(err, models.ErrProgressNotFound) {
			s.logger.Info("New player, initializing progress", zap.String("playerID", playerID.String()))
			return models.NewStoryProgress(playerID), nil
		}
		return nil, fmt.Errorf("ошибка загрузки прогресса: %w", err)
	}
	return p, nil
}

func (s *storyServiceImpl) StartChapter(ctx context.Context, playerID uuid.UUID, chapterID string) (models.Presentation, error) {
	mu := s.playerLock(playerID)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.loadOrInit(ctx, playerID)
	if err != nil {
		return models.Presentation{}, err
	}

	next, pres, err := s.processor.StartChapter(p, chapterID)
	if err != nil {
		return models.Presentation{}, err
	}

	if err := s.persist(ctx, next); err != nil {
		return models.Presentation{}, err
	}
	return pres, nil
}

func (s *storyServiceImpl) Advance(ctx context.Context, playerID uuid.UUID, choiceIndex int) (models.Presentation, error) {
	mu := s.playerLock(playerID)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.loadOrInit(ctx, playerID)
	if err != nil {
		return models.Presentation{}, err
	}

	beforeID := progress.CurrentChapter(p)
	next, pres, chosen, err := s.processor.Advance(p, choiceIndex)
	if err != nil {
		return models.Presentation{}, err
	}

	if chosen != nil {
		next = s.engine.ApplyChoice(next, *chosen)
	}
	if pres.ChapterComplete {
		s.interludeAfter(beforeID, next)
	}

	if err := s.persist(ctx, next); err != nil {
		return models.Presentation{}, err
	}
	return pres, nil
}

// interludeAfter draws a random narrative event when the completed chapter
// is marked as an interlude, queues it as a payoff and advances the
// no-repeat window.
func (s *storyServiceImpl) interludeAfter(completedID string, p *models.StoryProgress) {
	chapter, err := s.manager.GetChapter(completedID)
	if err != nil || !chapter.Definition().Interlude {
		return
	}
	ring := consequence.RingFrom(p.RecentEvents, recentEventWindow)
	s.rngMu.Lock()
	event, updated, ok := consequence.PickEvent(s.events, ring, s.rng)
	s.rngMu.Unlock()
	if !ok {
		return
	}
	p.RecentEvents = updated.IDs()
	p.PendingConsequences = append(p.PendingConsequences, models.ConsequenceEvent{
		Kind:   "interlude",
		Detail: event.ID,
	})
}

func (s *storyServiceImpl) CurrentPresentation(ctx context.Context, playerID uuid.UUID) (models.Presentation, error) {
	p, err := s.loadOrInit(ctx, playerID)
	if err != nil {
		return models.Presentation{}, err
	}
	return s.processor.CurrentPresentation(p)
}

func (s *storyServiceImpl) AvailableChapters(ctx context.Context, playerID uuid.UUID) ([]string, error) {
	p, err := s.loadOrInit(ctx, playerID)
	if err != nil {
		return nil, err
	}
	chapters := s.manager.AvailableChapters(p)
	ids := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		ids = append(ids, ch.ID())
	}
	return ids, nil
}

func (s *storyServiceImpl) Progress(ctx context.Context, playerID uuid.UUID) (*models.StoryProgress, error) {
	p, err := s.loadOrInit(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// persist drains pending consequence events to the payoff queue and saves
// the snapshot. The save is authoritative: a failed payoff publish is
// logged and the events stay pending for the next save.
func (s *storyServiceImpl) persist(ctx context.Context, p *models.StoryProgress) error {
	if s.payoffPub != nil && len(p.PendingConsequences) > 0 {
		remaining := p.PendingConsequences[:0]
		for _, event := range p.PendingConsequences {
			payload := messaging.PayoffPayload{PlayerID: p.PlayerID.String(), Event: event}
			if err := s.payoffPub.PublishPayoff(ctx, payload); err != nil {
				s.logger.Warn("Payoff publish failed, keeping event pending",
					zap.String("playerID", p.PlayerID.String()),
					zap.String("kind", event.Kind),
					zap.Error(err))
				remaining = append(remaining, event)
			}
		}
		p.PendingConsequences = remaining
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("ошибка сохранения прогресса: %w", err)
	}
	return nil
}

// HandleAction dispatches one inbound queue action and publishes the
// resulting view. Implements messaging.ActionHandler.
func (s *storyServiceImpl) HandleAction(ctx context.Context, playerID uuid.UUID, action messaging.PlayerActionPayload) error {
	var pres models.Presentation
	var err error

	switch action.Action {
	case messaging.ActionStartChapter:
		pres, err = s.StartChapter(ctx, playerID, action.ChapterID)
	case messaging.ActionAdvance:
		pres, err = s.Advance(ctx, playerID, action.ChoiceIndex)
	case messaging.ActionGetState:
		pres, err = s.CurrentPresentation(ctx, playerID)
	default:
		err = fmt.Errorf("%w: неизвестное действие '%s'", models.ErrBadRequest, action.Action)
	}

	if s.updatePub == nil {
		return err
	}

	payload := messaging.PlayerUpdatePayload{
		PlayerID:     playerID.String(),
		Presentation: pres,
		ChapterID:    pres.ChapterID,
	}
	if p, loadErr := s.repo.Load(ctx, playerID); loadErr == nil {
		payload.ChapterID = progress.CurrentChapter(p)
		payload.Hierarchy = p.HierarchyPoints
		payload.Tier = p.HierarchyTier
	}
	if err != nil {
		payload.Error = err.Error()
	}
	if pubErr := s.updatePub.PublishPlayerUpdate(ctx, payload); pubErr != nil {
		s.logger.Error("Failed to publish player update",
			zap.String("playerID", playerID.String()), zap.Error(pubErr))
	}
	return err
}
