package arc

import (
	"saga-server/internal/models"
	"saga-server/internal/progress"
)

// Gate is an arc-specific availability predicate over player state.
type Gate interface {
	Available(p *models.StoryProgress) bool
}

// ClubGate admits members of a club above a tier, with optional attendance
// and achievement requirements. All comparisons use >=.
type ClubGate struct {
	ClubID               string
	RequiredLevel        int
	RequiredAttendance   int
	RequiredAchievements []string
}

func (g ClubGate) Available(p *models.StoryProgress) bool {
	if g.ClubID != "" && p.ClubID != g.ClubID {
		return false
	}
	if p.ClubLevel < g.RequiredLevel {
		return false
	}
	if p.ClubAttendance < g.RequiredAttendance {
		return false
	}
	for _, achievement := range g.RequiredAchievements {
		if !p.Achievements[achievement] {
			return false
		}
	}
	return true
}

// RelationshipGate admits players whose affinity with an NPC has reached a
// tier threshold.
type RelationshipGate struct {
	Name        string
	MinAffinity int
}

func (g RelationshipGate) Available(p *models.StoryProgress) bool {
	return p.Relationships[g.Name] >= g.MinAffinity
}

// ProgressGate admits players whose completion counts have reached the
// configured thresholds. Keys are chapter-id prefixes (e.g. "1_" for the
// first year); each count is compared with >=.
type ProgressGate struct {
	Thresholds map[string]int
}

func (g ProgressGate) Available(p *models.StoryProgress) bool {
	for arcID, required := range g.Thresholds {
		if progress.ArcProgress(p, arcID) < required {
			return false
		}
	}
	return true
}
