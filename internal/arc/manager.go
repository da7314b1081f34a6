package arc

import (
	"go.uber.org/zap"

	"saga-server/internal/models"
	"saga-server/internal/story"
)

// Manager is the registry and coordinator over all arcs. Arcs are tried in
// registration order for every lookup, so registration order is part of
// the contract.
type Manager struct {
	arcs   []*Arc
	byID   map[string]*Arc
	logger *zap.Logger
}

// NewManager registers the arcs in the given order, then validates the
// structure. Validation findings are logged and retained; the manager
// starts degraded but operable regardless.
func NewManager(arcs []*Arc, logger *zap.Logger) (*Manager, []Issue) {
	m := &Manager{
		arcs:   arcs,
		byID:   make(map[string]*Arc, len(arcs)),
		logger: logger.Named("ArcManager"),
	}
	for _, a := range arcs {
		m.byID[a.ID] = a
	}
	issues := m.ValidateStructure()
	for _, issue := range issues {
		m.logger.Warn("content validation issue",
			zap.String("kind", string(issue.Kind)),
			zap.String("arcID", issue.ArcID),
			zap.String("chapterID", issue.ChapterID),
			zap.String("detail", issue.Detail),
		)
	}
	return m, issues
}

// Arc returns a registered arc by id.
func (m *Manager) Arc(id string) (*Arc, bool) {
	a, ok := m.byID[id]
	return a, ok
}

// Arcs returns the arcs in registration order.
func (m *Manager) Arcs() []*Arc {
	return m.arcs
}

// GetChapter tries every arc for an exact id match, then every arc for the
// base-id suffix fallback. The two passes are separate so an exact match
// in a later arc beats a synthesized variant in an earlier one.
func (m *Manager) GetChapter(id string) (story.Chapter, error) {
	for _, a := range m.arcs {
		if def, ok := a.Definition(id); ok {
			return story.New(def), nil
		}
	}
	for _, a := range m.arcs {
		if base, ok := a.baseDefinition(id); ok {
			return story.NewAlias(base, id), nil
		}
	}
	return nil, models.ErrChapterNotFound
}

// AvailableChapters aggregates availability across all arcs.
func (m *Manager) AvailableChapters(p *models.StoryProgress) []story.Chapter {
	var out []story.Chapter
	for _, a := range m.arcs {
		out = append(out, a.GetAvailableChapters(p)...)
	}
	return out
}
