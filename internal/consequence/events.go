package consequence

import (
	"math/rand"
)

// RandomEvent is one entry of the authored interlude event pool.
type RandomEvent struct {
	ID     string
	Text   string
	Weight int
}

// RecentRing is the explicit small history of recently selected event ids,
// threaded through every selection call instead of living in hidden global
// state. Value semantics: Push returns the updated ring.
type RecentRing struct {
	ids      []string
	capacity int
}

// NewRecentRing builds an empty ring remembering up to capacity ids.
func NewRecentRing(capacity int) RecentRing {
	if capacity < 1 {
		capacity = 1
	}
	return RecentRing{capacity: capacity}
}

// RingFrom rebuilds a ring from a persisted id window, keeping only the
// newest capacity entries.
func RingFrom(ids []string, capacity int) RecentRing {
	ring := NewRecentRing(capacity)
	for _, id := range ids {
		ring = ring.Push(id)
	}
	return ring
}

// IDs returns the remembered window, oldest first, for persistence.
func (r RecentRing) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Contains reports whether id is in the remembered window.
func (r RecentRing) Contains(id string) bool {
	for _, recent := range r.ids {
		if recent == id {
			return true
		}
	}
	return false
}

// Push appends an id, evicting the oldest entry past capacity.
func (r RecentRing) Push(id string) RecentRing {
	ids := append(append([]string(nil), r.ids...), id)
	if len(ids) > r.capacity {
		ids = ids[len(ids)-r.capacity:]
	}
	return RecentRing{ids: ids, capacity: r.capacity}
}

// PickEvent selects a weighted random event from the pool, skipping ids in
// the recent window to avoid immediate repeats. When every pool entry is
// recent the window is ignored rather than starving the selection. Returns
// the updated ring alongside the pick.
func PickEvent(pool []RandomEvent, recent RecentRing, rng *rand.Rand) (RandomEvent, RecentRing, bool) {
	if len(pool) == 0 {
		return RandomEvent{}, recent, false
	}

	candidates := make([]RandomEvent, 0, len(pool))
	for _, event := range pool {
		if !recent.Contains(event.ID) {
			candidates = append(candidates, event)
		}
	}
	if len(candidates) == 0 {
		candidates = pool
	}

	total := 0
	for _, event := range candidates {
		weight := event.Weight
		if weight < 1 {
			weight = 1
		}
		total += weight
	}

	roll := rng.Intn(total)
	for _, event := range candidates {
		weight := event.Weight
		if weight < 1 {
			weight = 1
		}
		if roll < weight {
			return event, recent.Push(event.ID), true
		}
		roll -= weight
	}
	// Unreachable with a correct total, kept as a safeguard.
	last := candidates[len(candidates)-1]
	return last, recent.Push(last.ID), true
}

// DefaultEvents is the authored interlude pool.
func DefaultEvents() []RandomEvent {
	return []RandomEvent{
		{ID: "rain_over_the_keep", Text: "Rain hammers the keep all night; the courtyards empty early.", Weight: 3},
		{ID: "unsigned_letter", Text: "An unsigned letter is slipped under your door.", Weight: 2},
		{ID: "refectory_rumor", Text: "A rumor moves through the refectory faster than the soup.", Weight: 3},
		{ID: "warden_inspection", Text: "The wardens call a surprise inspection of the dormitories.", Weight: 2},
		{ID: "night_bell", Text: "The night bell rings once, out of schedule, and nobody explains it.", Weight: 1},
		{ID: "market_day", Text: "Traders set up along the outer wall; coin changes hands all day.", Weight: 2},
	}
}
