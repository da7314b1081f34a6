package models

// Presentation is the view handed to the caller/UI layer after start and
// advance operations.
type Presentation struct {
	ChapterID   string `json:"chapter_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	CurrentDialogue *DialogueNode `json:"current_dialogue,omitempty"`

	AvailableChoices []Choice `json:"available_choices,omitempty"`

	AlreadyCompleted bool `json:"already_completed,omitempty"`
	AlreadyFailed    bool `json:"already_failed,omitempty"`

	// ChapterComplete signals the dialogue sequence is exhausted and the
	// caller should resolve the next chapter.
	ChapterComplete bool `json:"chapter_complete,omitempty"`
}

// ContinueChoice is the synthetic fallback presented when a choice index is
// out of range for the current choice set: the player is never stranded.
func ContinueChoice() Choice {
	return Choice{Text: "Continue..."}
}
