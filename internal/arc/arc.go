// Package arc groups chapters into named, independently gated story arcs
// and coordinates them through a registry with structural validation.
package arc

import (
	"sort"
	"strconv"
	"strings"

	"saga-server/internal/models"
	"saga-server/internal/progress"
	"saga-server/internal/story"
)

// Arc is a named collection of chapter definitions behind an availability
// gate. Definitions are read-only after construction.
type Arc struct {
	ID   string
	Name string

	// Entry is the arc's entry chapter; reachability is validated from it.
	Entry string

	Gate Gate

	defs  map[string]*models.ChapterDefinition
	order []string
}

// NewArc builds an arc over the given definitions. When entry is empty the
// smallest chapter id becomes the entry point, compared segment-wise with
// numeric segments ordered by value ("1_2" precedes "1_10").
func NewArc(id, name, entry string, gate Gate, defs map[string]*models.ChapterDefinition) *Arc {
	order := make([]string, 0, len(defs))
	for chapterID := range defs {
		order = append(order, chapterID)
	}
	sort.Slice(order, func(i, j int) bool { return chapterIDLess(order[i], order[j]) })
	if entry == "" && len(order) > 0 {
		entry = order[0]
	}
	return &Arc{ID: id, Name: name, Entry: entry, Gate: gate, defs: defs, order: order}
}

// chapterIDLess compares ids segment by segment; segments that both parse
// as numbers compare numerically, everything else lexicographically.
func chapterIDLess(a, b string) bool {
	as := strings.Split(a, "_")
	bs := strings.Split(b, "_")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			return an < bn
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}

// ChapterIDs returns the owned chapter ids in stable order.
func (a *Arc) ChapterIDs() []string {
	return a.order
}

// Definition returns the raw definition for an exact id.
func (a *Arc) Definition(id string) (*models.ChapterDefinition, bool) {
	def, ok := a.defs[id]
	return def, ok
}

// GetChapter looks up an exact id first; on a miss it strips the last
// underscore-delimited suffix and, if the base id exists, synthesizes an
// instance that reports the requested id over the base definition. One
// authored chapter serves as its own _success/_failure variants this way.
func (a *Arc) GetChapter(id string) (story.Chapter, bool) {
	if def, ok := a.defs[id]; ok {
		return story.New(def), true
	}
	if base, ok := a.baseDefinition(id); ok {
		return story.NewAlias(base, id), true
	}
	return nil, false
}

func (a *Arc) baseDefinition(id string) (*models.ChapterDefinition, bool) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 {
		return nil, false
	}
	def, ok := a.defs[id[:idx]]
	return def, ok
}

// Available reports whether the arc's gate admits the player.
func (a *Arc) Available(p *models.StoryProgress) bool {
	if a.Gate == nil {
		return true
	}
	return a.Gate.Available(p)
}

// GetAvailableChapters filters owned chapters through "not yet completed"
// and the arc gate, returning instances in stable order.
func (a *Arc) GetAvailableChapters(p *models.StoryProgress) []story.Chapter {
	if !a.Available(p) {
		return nil
	}
	var out []story.Chapter
	for _, id := range a.order {
		if progress.IsChapterCompleted(p, id) {
			continue
		}
		def := a.defs[id]
		if def.Requirements != nil && !requirementsMet(def.Requirements, p) {
			continue
		}
		out = append(out, story.New(def))
	}
	return out
}

func requirementsMet(req *models.Requirements, p *models.StoryProgress) bool {
	for attr, threshold := range req.Stats {
		if p.Attributes[attr] < threshold {
			return false
		}
	}
	for _, chapter := range req.Chapters {
		if !progress.IsChapterCompleted(p, chapter) {
			return false
		}
	}
	if req.IsNewPlayer != nil && *req.IsNewPlayer != p.NewPlayer {
		return false
	}
	return true
}
