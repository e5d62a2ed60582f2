package models

// CompletionRequest is the wire-level input to POST /api/v1/chat/completions.
type CompletionRequest struct {
	CharacterID  string            `json:"characterId" binding:"required"`
	Interactions []string          `json:"interactions" binding:"required,min=1"`
	Details      *CharacterDetails `json:"details" binding:"required"`
	// ConversationID is only meaningful for providers that keep server-side
	// conversation state; it is carried through untouched.
	ConversationID string `json:"conversationId,omitempty"`
}

// CompletionResponse is the success payload for the completions endpoint.
type CompletionResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId,omitempty"`
}
