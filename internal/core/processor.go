package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"giftmatch/internal/logger"
	"giftmatch/pkg"
)

// defaultMaxSteps bounds a run when the flow config does not set a limit
const defaultMaxSteps = 32

// DefaultGraphProcessor implements the GraphProcessor interface
type DefaultGraphProcessor struct {
	nodes    map[string]Node
	flow     GraphFlow
	maxSteps int
}

// NewGraphProcessor creates a new graph processor
func NewGraphProcessor(config GraphConfig) *DefaultGraphProcessor {
	maxSteps := config.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &DefaultGraphProcessor{
		nodes:    make(map[string]Node),
		flow:     config.DefaultFlow,
		maxSteps: maxSteps,
	}
}

// Execute runs the graph flow with the given input
func (g *DefaultGraphProcessor) Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error) {
	startTime := time.Now()

	logger.Debug().
		Str("session_id", input.SessionID).
		Int("messages", len(input.Messages)).
		Msg("Starting graph execution")

	// Prepare initial node input
	nodeInput := NodeInput{
		SessionID: input.SessionID,
		Messages:  input.Messages,
		Metadata:  make(map[string]any),
	}

	currentNode := g.flow.StartNode
	output := &ProcessorOutput{
		Metadata: make(map[string]any),
	}

	// A turn that ends before extraction (moderation) reports the prior context unchanged
	if input.PriorContext != nil {
		prior := input.PriorContext.Clone()
		nodeInput.PriorContext = &prior
		output.GiftContext = prior.Clone()
	}

	// Track execution path
	var executionPath []string

	for currentNode != "" && currentNode != NodeComplete {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("graph execution cancelled before node %s: %w", currentNode, err)
		}
		if len(executionPath) >= g.maxSteps {
			return nil, fmt.Errorf("graph execution exceeded %d steps at node %s", g.maxSteps, currentNode)
		}
		executionPath = append(executionPath, currentNode)

		node, exists := g.nodes[currentNode]
		if !exists {
			return nil, fmt.Errorf("node not found: %s", currentNode)
		}

		nodeOutput, err := node.Execute(ctx, nodeInput)
		if err != nil {
			logger.Error().Err(err).Str("node", currentNode).Msg("Node execution failed")
			return nil, fmt.Errorf("error executing node %s: %w", currentNode, err)
		}

		// Handle node error (non-fatal)
		if nodeOutput.Error != nil {
			logger.Warn().Err(nodeOutput.Error).Str("node", currentNode).Msg("Node returned error")
			output.Metadata["errors"] = append(getStringSlice(output.Metadata, "errors"), nodeOutput.Error.Error())
		}

		g.processNodeOutput(currentNode, nodeOutput, output, &nodeInput)

		if nodeOutput.Complete {
			logger.Debug().Str("node", currentNode).Msg("Graph execution completed at node")
			break
		}

		nextNode := nodeOutput.NextNode
		if nextNode == "" {
			nextNode = g.getNextNode(currentNode, nodeOutput)
		}
		currentNode = nextNode
	}

	processingTime := time.Since(startTime)
	output.ProcessingTime = processingTime.Milliseconds()
	output.Metadata["execution_path"] = executionPath

	logger.Debug().
		Strs("execution_path", executionPath).
		Dur("elapsed", processingTime).
		Msg("Graph execution finished")

	return output, nil
}

// AddNode adds a node to the processor
func (g *DefaultGraphProcessor) AddNode(node Node) error {
	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}

	nodeName := node.GetName()
	if nodeName == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	if nodeName == NodeComplete {
		return fmt.Errorf("node name %q is reserved", NodeComplete)
	}

	g.nodes[nodeName] = node
	logger.Debug().Str("node", nodeName).Str("type", string(node.GetType())).Msg("Added node")

	return nil
}

// GetNode retrieves a node by name
func (g *DefaultGraphProcessor) GetNode(name string) (Node, error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node not found: %s", name)
	}
	return node, nil
}

// SetFlow sets the execution flow
func (g *DefaultGraphProcessor) SetFlow(flow GraphFlow) error {
	if flow.StartNode == "" {
		return fmt.Errorf("start node cannot be empty")
	}

	g.flow = flow
	logger.Debug().Str("start_node", flow.StartNode).Msg("Updated graph flow")

	return nil
}

// processNodeOutput folds a node's data into the run output and the next node's input
func (g *DefaultGraphProcessor) processNodeOutput(nodeName string, nodeOutput NodeOutput, globalOutput *ProcessorOutput, nodeInput *NodeInput) {
	for key, value := range nodeOutput.Data {
		switch key {
		case KeyResponse:
			if response, ok := value.(string); ok {
				globalOutput.Response = response
			}
		case KeyModerated:
			if moderated, ok := value.(bool); ok {
				globalOutput.Moderated = moderated
			}
		case KeyGiftContext:
			if giftCtx, ok := value.(pkg.GiftContext); ok {
				globalOutput.GiftContext = giftCtx
				nodeInput.GiftContext = giftCtx
			}
		case KeyReady:
			if ready, ok := value.(bool); ok {
				globalOutput.Ready = ready
				nodeInput.Ready = ready
			}
		case KeyNextQuestion:
			if question, ok := value.(string); ok {
				globalOutput.NextQuestion = question
				nodeInput.NextQuestion = question
			}
		case KeyCandidates:
			if candidates, ok := value.([]pkg.GiftEntry); ok {
				globalOutput.MatchedGifts = len(candidates)
				nodeInput.Candidates = candidates
			}
		case KeyRecommendation:
			if recommendation, ok := value.(string); ok {
				globalOutput.Recommendation = recommendation
				nodeInput.Recommendation = recommendation
			}
		case KeySystemPrompt:
			if prompt, ok := value.(string); ok {
				globalOutput.SystemPrompt = prompt
			}
		default:
			globalOutput.Metadata[fmt.Sprintf("%s_%s", nodeName, key)] = value
			nodeInput.Metadata[key] = value
		}
	}
}

// getNextNode determines the next node based on flow edges and conditions
func (g *DefaultGraphProcessor) getNextNode(currentNode string, nodeOutput NodeOutput) string {
	edges, exists := g.flow.Edges[currentNode]
	if !exists || len(edges) == 0 {
		return NodeComplete
	}

	for _, edge := range sortEdgesByPriority(edges) {
		if evaluateCondition(edge.Condition, nodeOutput) {
			return edge.To
		}
	}

	// Default to first edge if no conditions match
	return edges[0].To
}

// sortEdgesByPriority orders edges by priority (lower number = higher priority), keeping declaration order on ties
func sortEdgesByPriority(edges []GraphEdge) []GraphEdge {
	sorted := make([]GraphEdge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// evaluateCondition reports whether every condition key equals the node's output value
func evaluateCondition(condition map[string]any, nodeOutput NodeOutput) bool {
	if len(condition) == 0 {
		return true // No condition = always true
	}

	for key, expectedValue := range condition {
		actualValue, exists := nodeOutput.Data[key]
		if !exists {
			return false
		}
		if actualValue != expectedValue {
			return false
		}
	}

	return true
}

// Helper function to safely get string slice from metadata
func getStringSlice(metadata map[string]any, key string) []string {
	if value, exists := metadata[key]; exists {
		if slice, ok := value.([]string); ok {
			return slice
		}
	}
	return []string{}
}
