package pkg

import (
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationMessage represents a message in conversation history
type ConversationMessage struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// ChatRequest is the body of a chat turn. Either Messages carries the whole history
// (stateless) or SessionID plus Message appends one user turn to a stored session.
type ChatRequest struct {
	SessionID string                `json:"sessionId,omitempty"`
	Message   string                `json:"message,omitempty"`
	Messages  []ConversationMessage `json:"messages,omitempty"`
}

// ChatResponse is the non-streaming reply to a chat turn
type ChatResponse struct {
	SessionID    string      `json:"sessionId,omitempty"`
	Text         string      `json:"text"`
	Moderated    bool        `json:"moderated"`
	Context      GiftContext `json:"context"`
	Ready        bool        `json:"ready"`
	MatchedGifts int         `json:"matchedGifts"`
}

// RecommendationResponse is the reply of the wizard recommendation endpoint
type RecommendationResponse struct {
	Context         string `json:"context"`
	Recommendations string `json:"recommendations"`
	MatchedGifts    int    `json:"matchedGifts"`
}

// AssistantRequest is the body of a tool-augmented assistant turn
type AssistantRequest struct {
	Messages []ConversationMessage `json:"messages"`
}

// AssistantResponse is the reply of a tool-augmented assistant turn
type AssistantResponse struct {
	Text          string   `json:"text"`
	ToolsExecuted []string `json:"toolsExecuted,omitempty"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// Session is the stored chat history of one conversation. Context is the gift context
// accumulated over every turn, so it survives trimming of old messages.
type Session struct {
	ID        string                `json:"id"`
	Messages  []ConversationMessage `json:"messages"`
	Context   GiftContext           `json:"context"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}
