package nodes

import (
	"context"

	"giftmatch/internal/core"
	"giftmatch/internal/services"
)

// ClarifyNode forwards the clarifying question of an incomplete context
type ClarifyNode struct{}

// NewClarifyNode creates a clarify node
func NewClarifyNode() *ClarifyNode {
	return &ClarifyNode{}
}

func (c *ClarifyNode) Execute(_ context.Context, input core.NodeInput) (core.NodeOutput, error) {
	return core.NodeOutput{
		Data: map[string]any{core.KeyNextQuestion: input.NextQuestion},
	}, nil
}

func (c *ClarifyNode) GetName() string {
	return core.NodeClarify
}

func (c *ClarifyNode) GetType() core.NodeType {
	return core.NodeTypeClarify
}

// PromptNode assembles the system prompt for the reply
type PromptNode struct{}

// NewPromptNode creates a prompt node
func NewPromptNode() *PromptNode {
	return &PromptNode{}
}

// Execute adds the recommendation text for a ready context, or the pending question for
// an incomplete one. A ready context with no candidates gets the bare prompt.
func (p *PromptNode) Execute(_ context.Context, input core.NodeInput) (core.NodeOutput, error) {
	question := ""
	if !input.Ready {
		question = input.NextQuestion
	}
	return core.NodeOutput{
		Data: map[string]any{
			core.KeySystemPrompt: services.BuildSystemPrompt(input.Recommendation, question),
		},
	}, nil
}

func (p *PromptNode) GetName() string {
	return core.NodePrompt
}

func (p *PromptNode) GetType() core.NodeType {
	return core.NodeTypePrompt
}
