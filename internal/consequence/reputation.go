package consequence

import (
	"time"

	"saga-server/internal/models"
)

// Reputation bounds and tier names, ordered from worst to best.
const (
	ReputationMin = -100
	ReputationMax = 100
)

var tierNames = [...]string{"hated", "hostile", "unfriendly", "neutral", "friendly", "honored", "exalted", "revered"}

// tierThresholds[i] is the inclusive lower bound of tierNames[i+1].
var tierThresholds = [...]int{-75, -50, -25, 25, 50, 75, 90}

// TierName maps a clamped reputation score to one of the 8 named tiers.
func TierName(score int) string {
	tier := 0
	for i, threshold := range tierThresholds {
		if score >= threshold {
			tier = i + 1
		}
	}
	return tierNames[tier]
}

// Faction is one node of the fixed faction graph with declared ally and
// rival edges.
type Faction struct {
	ID     string
	Name   string
	Allies []string
	Rivals []string
}

// FactionGraph is the fixed set of factions; per-player scores live in the
// progress snapshot.
type FactionGraph struct {
	factions map[string]Faction
	order    []string
}

// NewFactionGraph builds a graph preserving declaration order.
func NewFactionGraph(factions []Faction) *FactionGraph {
	g := &FactionGraph{factions: make(map[string]Faction, len(factions))}
	for _, f := range factions {
		g.factions[f.ID] = f
		g.order = append(g.order, f.ID)
	}
	return g
}

// Faction returns a faction by id.
func (g *FactionGraph) Faction(id string) (Faction, bool) {
	f, ok := g.factions[id]
	return f, ok
}

// IDs returns faction ids in declaration order.
func (g *FactionGraph) IDs() []string {
	return g.order
}

// UpdateReputation applies delta to the faction, half-magnitude same-sign
// deltas to its allies and third-magnitude inverted deltas to its rivals
// (integer division), each independently clamped to [-100, 100]. Tier
// transitions are appended to the history and queued as pending events.
func (g *FactionGraph) UpdateReputation(p *models.StoryProgress, factionID string, delta int) *models.StoryProgress {
	faction, ok := g.factions[factionID]
	if !ok {
		return p.Clone()
	}

	next := p.Clone()
	g.applyDelta(next, factionID, delta)
	for _, ally := range faction.Allies {
		g.applyDelta(next, ally, delta/2)
	}
	for _, rival := range faction.Rivals {
		g.applyDelta(next, rival, -delta/3)
	}
	next.UpdatedAt = time.Now().UTC()
	return next
}

func (g *FactionGraph) applyDelta(p *models.StoryProgress, factionID string, delta int) {
	if _, ok := g.factions[factionID]; !ok || delta == 0 {
		return
	}
	before := p.FactionReputation[factionID]
	after := clamp(before+delta, ReputationMin, ReputationMax)
	p.FactionReputation[factionID] = after

	fromTier, toTier := TierName(before), TierName(after)
	if fromTier == toTier {
		return
	}
	shift := models.ReputationShift{
		Faction:  factionID,
		FromTier: fromTier,
		ToTier:   toTier,
		Score:    after,
		At:       time.Now().UTC(),
	}
	p.ReputationHistory = append(p.ReputationHistory, shift)
	p.PendingConsequences = append(p.PendingConsequences, models.ConsequenceEvent{
		Kind:    "tier_changed",
		Faction: factionID,
		Detail:  fromTier + " -> " + toTier,
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultFactions is the fixed six-faction graph of the academy setting.
func DefaultFactions() []Faction {
	return []Faction{
		{ID: "prefects", Name: "The Prefect Council", Allies: []string{"wardens"}, Rivals: []string{"undercroft"}},
		{ID: "scholars", Name: "The Scholar Circle", Allies: []string{"archivists"}, Rivals: []string{"duelists"}},
		{ID: "duelists", Name: "The Duelist League", Allies: []string{"undercroft"}, Rivals: []string{"scholars"}},
		{ID: "undercroft", Name: "The Undercroft", Allies: []string{"duelists"}, Rivals: []string{"prefects"}},
		{ID: "archivists", Name: "The Archivist Order", Allies: []string{"scholars"}, Rivals: []string{"wardens"}},
		{ID: "wardens", Name: "The Gate Wardens", Allies: []string{"prefects"}, Rivals: []string{"archivists"}},
	}
}
