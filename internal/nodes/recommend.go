package nodes

import (
	"context"
	"fmt"

	"giftmatch/internal/core"
	"giftmatch/internal/gifts"
	"giftmatch/internal/logger"
	"giftmatch/internal/metrics"
	"giftmatch/internal/services"
	"giftmatch/pkg"
)

// Recommender is the part of services.Recommender the node needs
type Recommender interface {
	Recommend(ctx context.Context, giftCtx pkg.GiftContext, candidates []pkg.GiftEntry) (string, error)
}

// RecommendNode filters the catalog for a ready context and formats the candidates
type RecommendNode struct {
	catalog     *services.CatalogStore
	recommender Recommender
}

// NewRecommendNode creates a recommendation node
func NewRecommendNode(catalog *services.CatalogStore, recommender Recommender) *RecommendNode {
	return &RecommendNode{catalog: catalog, recommender: recommender}
}

// Execute fails the turn when generation fails. An unavailable catalog counts as empty.
func (r *RecommendNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	var nodeErr error
	catalog, err := r.catalog.Load()
	if err != nil {
		logger.Error().Err(err).Msg("Gift catalog unavailable")
		nodeErr = fmt.Errorf("catalog unavailable: %w", err)
	}

	candidates, trace := gifts.FilterTrace(input.GiftContext, catalog)
	metrics.MatchedCandidates(len(candidates))
	logger.Debug().
		Str("session_id", input.SessionID).
		Interface("stages", trace).
		Int("candidates", len(candidates)).
		Msg("Gift catalog filtered")

	data := map[string]any{core.KeyCandidates: candidates}
	if len(candidates) > 0 {
		text, err := r.recommender.Recommend(ctx, input.GiftContext, candidates)
		if err != nil {
			return core.NodeOutput{}, fmt.Errorf("failed to generate recommendation: %w", err)
		}
		data[core.KeyRecommendation] = text
	}

	return core.NodeOutput{Data: data, Error: nodeErr}, nil
}

// GetName returns the node name
func (r *RecommendNode) GetName() string {
	return core.NodeRecommend
}

// GetType returns the node type
func (r *RecommendNode) GetType() core.NodeType {
	return core.NodeTypeRecommend
}
