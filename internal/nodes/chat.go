package nodes

import (
	"fmt"

	"giftmatch/internal/core"
	"giftmatch/internal/services"
)

// ChatDeps are the collaborators of the chat turn nodes
type ChatDeps struct {
	Classifier  services.Classifier
	Catalog     *services.CatalogStore
	Recommender Recommender
}

// NewChatProcessor registers the chat turn nodes on a processor running cfg.DefaultFlow
func NewChatProcessor(cfg core.GraphConfig, deps ChatDeps) (*core.DefaultGraphProcessor, error) {
	if deps.Catalog == nil || deps.Recommender == nil {
		return nil, fmt.Errorf("chat processor requires a catalog and a recommender")
	}

	processor := core.NewGraphProcessor(cfg)
	for _, node := range []core.Node{
		NewModerationNode(deps.Classifier),
		NewContextNode(),
		NewRecommendNode(deps.Catalog, deps.Recommender),
		NewClarifyNode(),
		NewPromptNode(),
	} {
		if err := processor.AddNode(node); err != nil {
			return nil, err
		}
	}
	if err := processor.SetFlow(cfg.DefaultFlow); err != nil {
		return nil, fmt.Errorf("invalid chat flow: %w", err)
	}
	return processor, nil
}
