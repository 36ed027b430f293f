package nodes

import (
	"context"

	"giftmatch/internal/core"
	"giftmatch/internal/gifts"
	"giftmatch/internal/logger"
	"giftmatch/pkg"
)

// ContextNode derives the gift context from the user turns of the conversation
type ContextNode struct{}

// NewContextNode creates a context extraction node
func NewContextNode() *ContextNode {
	return &ContextNode{}
}

// Execute folds the newest user message over the prior context when there is one, otherwise
// replays every user message through the keyword extractor, and decides readiness
func (c *ContextNode) Execute(_ context.Context, input core.NodeInput) (core.NodeOutput, error) {
	var giftCtx pkg.GiftContext
	if input.PriorContext != nil {
		giftCtx = gifts.Extract(input.LatestUserMessage(), *input.PriorContext)
	} else {
		giftCtx = gifts.ExtractConversation(input.UserMessages())
	}
	ready := gifts.IsReady(giftCtx)
	question := gifts.NextQuestion(giftCtx)

	logger.Debug().
		Str("session_id", input.SessionID).
		Str("recipient", giftCtx.RecipientGroup).
		Str("occasion", giftCtx.Occasion).
		Str("price_band", string(giftCtx.PriceBand)).
		Strs("interests", giftCtx.Interests).
		Bool("ready", ready).
		Msg("Gift context extracted")

	return core.NodeOutput{
		Data: map[string]any{
			core.KeyGiftContext:  giftCtx,
			core.KeyReady:        ready,
			core.KeyNextQuestion: question,
		},
	}, nil
}

// GetName returns the node name
func (c *ContextNode) GetName() string {
	return core.NodeContext
}

// GetType returns the node type
func (c *ContextNode) GetType() core.NodeType {
	return core.NodeTypeExtraction
}
