package nodes

import (
	"context"
	"fmt"

	"giftmatch/internal/core"
	"giftmatch/internal/logger"
	"giftmatch/internal/metrics"
	"giftmatch/internal/services"
)

// ModerationNode screens the newest user message before anything else runs
type ModerationNode struct {
	classifier services.Classifier
}

// NewModerationNode creates a moderation node. A nil classifier never flags.
func NewModerationNode(classifier services.Classifier) *ModerationNode {
	if classifier == nil {
		classifier = services.NoopClassifier{}
	}
	return &ModerationNode{classifier: classifier}
}

// Execute ends the run with the denial message when the message is flagged.
// Classifier failures are reported as non-fatal and the turn continues.
func (m *ModerationNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	result, err := m.classifier.Classify(ctx, input.LatestUserMessage())
	if err != nil {
		logger.Warn().Err(err).Str("session_id", input.SessionID).Msg("Moderation unavailable, continuing")
		return core.NodeOutput{
			Data:  map[string]any{core.KeyModerated: false},
			Error: fmt.Errorf("moderation skipped: %w", err),
		}, nil
	}

	if !result.Flagged {
		return core.NodeOutput{Data: map[string]any{core.KeyModerated: false}}, nil
	}

	category := result.Category
	if category == "" {
		category = "unspecified"
	}
	metrics.ModerationFlagged(category)
	logger.Info().Str("session_id", input.SessionID).Str("category", category).Msg("Message flagged by moderation")

	return core.NodeOutput{
		Data: map[string]any{
			core.KeyModerated: true,
			core.KeyResponse:  result.DenialMessage,
		},
		Complete: true,
	}, nil
}

// GetName returns the node name
func (m *ModerationNode) GetName() string {
	return core.NodeModeration
}

// GetType returns the node type
func (m *ModerationNode) GetType() core.NodeType {
	return core.NodeTypeModeration
}
