package domain

import (
	"encoding/json"
	"time"
)

// Generation is one stored reply-suggestion result.
type Generation struct {
	ID               string
	UserID           string
	Tone             string
	Messages         json.RawMessage
	Responses        json.RawMessage
	SelectedResponse string
	TokensUsed       int
	Model            string
	CreatedAt        time.Time
}
