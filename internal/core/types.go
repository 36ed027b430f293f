package core

import (
	"context"
	"time"

	"giftmatch/internal/logger"
	"giftmatch/pkg"
)

// Node represents a single processing unit in the graph flow
type Node interface {
	Execute(ctx context.Context, input NodeInput) (NodeOutput, error)
	GetName() string
	GetType() NodeType
}

// NodeType defines the different types of nodes in the graph
type NodeType string

const (
	NodeTypeModeration NodeType = "moderation"
	NodeTypeExtraction NodeType = "extraction"
	NodeTypeClarify    NodeType = "clarify"
	NodeTypeRecommend  NodeType = "recommend"
	NodeTypePrompt     NodeType = "prompt"
)

// Node names used by the default chat flow
const (
	NodeModeration = "moderation"
	NodeContext    = "context"
	NodeClarify    = "clarify"
	NodeRecommend  = "recommend"
	NodePrompt     = "prompt"

	// NodeComplete is the pseudo node that ends a run
	NodeComplete = "complete"
)

// Keys nodes use in NodeOutput.Data. Unknown keys land in metadata.
const (
	KeyResponse       = "response"
	KeyModerated      = "moderated"
	KeyGiftContext    = "gift_context"
	KeyReady          = "ready"
	KeyNextQuestion   = "next_question"
	KeyCandidates     = "candidates"
	KeyRecommendation = "recommendation"
	KeySystemPrompt   = "system_prompt"
)

// NodeInput contains the input data for a node
type NodeInput struct {
	SessionID      string                    `json:"session_id"`
	Messages       []pkg.ConversationMessage `json:"messages"`
	GiftContext    pkg.GiftContext           `json:"gift_context"`
	Ready          bool                      `json:"ready"`
	NextQuestion   string                    `json:"next_question,omitempty"`
	Candidates     []pkg.GiftEntry           `json:"candidates,omitempty"`
	Recommendation string                    `json:"recommendation,omitempty"`
	// PriorContext is the context accumulated before the newest user message, when known
	PriorContext   *pkg.GiftContext          `json:"prior_context,omitempty"`
	Metadata       map[string]any            `json:"metadata"`
}

// UserMessages returns the content of every user turn, oldest first
func (n NodeInput) UserMessages() []string {
	var out []string
	for _, msg := range n.Messages {
		if msg.Role == pkg.RoleUser {
			out = append(out, msg.Content)
		}
	}
	return out
}

// LatestUserMessage returns the newest user turn, or "" when there is none
func (n NodeInput) LatestUserMessage() string {
	for i := len(n.Messages) - 1; i >= 0; i-- {
		if n.Messages[i].Role == pkg.RoleUser {
			return n.Messages[i].Content
		}
	}
	return ""
}

// NodeOutput contains the output data from a node
type NodeOutput struct {
	Data     map[string]any `json:"data"`
	NextNode string         `json:"next_node,omitempty"`
	Error    error          `json:"error,omitempty"`
	Complete bool           `json:"complete"`
}

// GraphProcessor orchestrates the execution of nodes in a graph flow
type GraphProcessor interface {
	Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error)
	AddNode(node Node) error
	GetNode(name string) (Node, error)
	SetFlow(flow GraphFlow) error
}

// ProcessorInput is one chat turn: the message history ending with the newest user message.
// With PriorContext set only the newest user message is folded over it; otherwise the
// context is rebuilt from every user message.
type ProcessorInput struct {
	SessionID    string                    `json:"session_id"`
	Messages     []pkg.ConversationMessage `json:"messages"`
	PriorContext *pkg.GiftContext          `json:"prior_context,omitempty"`
}

// ProcessorOutput is what a chat turn resolved to before the final reply is generated
type ProcessorOutput struct {
	// Response is set only when the turn ended with a designed reply (moderation)
	Response       string          `json:"response,omitempty"`
	Moderated      bool            `json:"moderated"`
	GiftContext    pkg.GiftContext `json:"gift_context"`
	Ready          bool            `json:"ready"`
	NextQuestion   string          `json:"next_question,omitempty"`
	MatchedGifts   int             `json:"matched_gifts"`
	Recommendation string          `json:"recommendation,omitempty"`
	SystemPrompt   string          `json:"system_prompt,omitempty"`
	ProcessingTime int64           `json:"processing_time_ms"`
	Metadata       map[string]any  `json:"metadata"`
}

// GraphFlow defines the execution flow between nodes
type GraphFlow struct {
	StartNode string                 `json:"start_node" yaml:"start_node"`
	Edges     map[string][]GraphEdge `json:"edges" yaml:"edges"` // node_name -> possible next nodes
}

// GraphEdge represents a connection between two nodes with conditions
type GraphEdge struct {
	To        string         `json:"to" yaml:"to"`
	Condition map[string]any `json:"condition,omitempty" yaml:"condition,omitempty"`
	Priority  int            `json:"priority" yaml:"priority"`
}

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig     `json:"server"`
	LLM        LLMConfig        `json:"llm"`
	Moderation ModerationConfig `json:"moderation"`
	Catalog    CatalogConfig    `json:"catalog"`
	Session    SessionConfig    `json:"session"`
	Redis      RedisConfig      `json:"redis"`
	Retrieval  RetrievalConfig  `json:"retrieval"`
	Graph      GraphConfig      `json:"graph"`
	Log        logger.LogConfig `json:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `json:"addr"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// LLMConfig selects and tunes the chat model provider
type LLMConfig struct {
	Provider    string        `json:"provider"` // openai, ark, deepseek or ollama
	Model       string        `json:"model"`
	APIKey      string        `json:"-"`
	BaseURL     string        `json:"base_url"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// ModerationConfig holds content moderation configuration
type ModerationConfig struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// CatalogConfig points at the gift dataset
type CatalogConfig struct {
	Path string `json:"path"`
}

// SessionConfig holds chat history storage configuration
type SessionConfig struct {
	Backend     string        `json:"backend"` // memory or redis
	TTL         time.Duration `json:"ttl"`
	MaxMessages int           `json:"max_messages"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL       string `json:"url"`
	KeyPrefix string `json:"key_prefix"`
}

// RetrievalConfig holds configuration for the document tools of the assistant
type RetrievalConfig struct {
	Enabled           bool   `json:"enabled"`
	TopK              int    `json:"top_k"`
	KeyPrefix         string `json:"key_prefix"`
	MaxToolIterations int    `json:"max_tool_iterations"`
}

// GraphConfig holds graph flow configuration
type GraphConfig struct {
	DefaultFlow GraphFlow `json:"default_flow"`
	MaxSteps    int       `json:"max_steps"`
}
