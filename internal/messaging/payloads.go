// Package messaging is the RabbitMQ boundary: player actions arrive on the
// action queue, progress updates and deferred payoffs leave on their own
// queues.
package messaging

import (
	"saga-server/internal/models"
)

// Player action kinds accepted on the action queue.
const (
	ActionStartChapter = "start_chapter"
	ActionAdvance      = "advance"
	ActionGetState     = "get_state"
)

// PlayerActionPayload is one inbound player command.
type PlayerActionPayload struct {
	PlayerID    string `json:"player_id"`
	Action      string `json:"action"`
	ChapterID   string `json:"chapter_id,omitempty"`
	ChoiceIndex int    `json:"choice_index,omitempty"`
}

// PlayerUpdatePayload is the outbound view after an action: the current
// presentation plus a compact progress summary.
type PlayerUpdatePayload struct {
	PlayerID     string              `json:"player_id"`
	Presentation models.Presentation `json:"presentation"`
	ChapterID    string              `json:"chapter_id"`
	Hierarchy    int                 `json:"hierarchy"`
	Tier         int                 `json:"tier"`
	Error        string              `json:"error,omitempty"`
}

// PayoffPayload carries a fired consequence for downstream systems
// (notifications, analytics).
type PayoffPayload struct {
	PlayerID string                  `json:"player_id"`
	Event    models.ConsequenceEvent `json:"event"`
}
