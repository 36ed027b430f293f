package core

import (
	"context"
	"errors"
	"testing"

	"giftmatch/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcNode struct {
	name string
	fn   func(ctx context.Context, input NodeInput) (NodeOutput, error)
	seen []NodeInput
}

func (f *funcNode) Execute(ctx context.Context, input NodeInput) (NodeOutput, error) {
	f.seen = append(f.seen, input)
	return f.fn(ctx, input)
}

func (f *funcNode) GetName() string   { return f.name }
func (f *funcNode) GetType() NodeType { return NodeTypePrompt }

func staticNode(name string, out NodeOutput) *funcNode {
	return &funcNode{name: name, fn: func(context.Context, NodeInput) (NodeOutput, error) { return out, nil }}
}

func branchingFlow() GraphFlow {
	return GraphFlow{
		StartNode: "context",
		Edges: map[string][]GraphEdge{
			"context": {
				{To: "clarify", Priority: 2},
				{To: "recommend", Condition: map[string]any{KeyReady: true}, Priority: 1},
			},
			"clarify":   {{To: "prompt", Priority: 1}},
			"recommend": {{To: "prompt", Priority: 1}},
		},
	}
}

func newProcessor(t *testing.T, flow GraphFlow, nodes ...Node) *DefaultGraphProcessor {
	t.Helper()
	p := NewGraphProcessor(GraphConfig{DefaultFlow: flow})
	for _, n := range nodes {
		require.NoError(t, p.AddNode(n))
	}
	return p
}

func TestProcessorFollowsConditionalEdge(t *testing.T) {
	giftCtx := pkg.GiftContext{RecipientGroup: "Friend", Occasion: "Birthday", PriceBand: pkg.PriceBandLow}
	candidates := []pkg.GiftEntry{{Name: "Mug"}, {Name: "Book"}}

	prompt := staticNode("prompt", NodeOutput{Data: map[string]any{KeySystemPrompt: "sys"}})
	p := newProcessor(t, branchingFlow(),
		staticNode("context", NodeOutput{Data: map[string]any{KeyGiftContext: giftCtx, KeyReady: true}}),
		staticNode("clarify", NodeOutput{}),
		staticNode("recommend", NodeOutput{Data: map[string]any{KeyCandidates: candidates, KeyRecommendation: "try the mug"}}),
		prompt,
	)

	out, err := p.Execute(context.Background(), ProcessorInput{Messages: []pkg.ConversationMessage{{Role: pkg.RoleUser, Content: "hi"}}})
	require.NoError(t, err)

	assert.Equal(t, []string{"context", "recommend", "prompt"}, out.Metadata["execution_path"])
	assert.True(t, out.Ready)
	assert.Equal(t, giftCtx, out.GiftContext)
	assert.Equal(t, 2, out.MatchedGifts)
	assert.Equal(t, "try the mug", out.Recommendation)
	assert.Equal(t, "sys", out.SystemPrompt)

	// data from earlier nodes flows into later inputs
	require.Len(t, prompt.seen, 1)
	assert.Equal(t, "try the mug", prompt.seen[0].Recommendation)
	assert.Len(t, prompt.seen[0].Candidates, 2)
	assert.Equal(t, giftCtx, prompt.seen[0].GiftContext)
}

func TestProcessorFallsBackToLowerPriorityEdge(t *testing.T) {
	p := newProcessor(t, branchingFlow(),
		staticNode("context", NodeOutput{Data: map[string]any{KeyReady: false, KeyNextQuestion: "who?"}}),
		staticNode("clarify", NodeOutput{}),
		staticNode("recommend", NodeOutput{}),
		staticNode("prompt", NodeOutput{}),
	)

	out, err := p.Execute(context.Background(), ProcessorInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"context", "clarify", "prompt"}, out.Metadata["execution_path"])
	assert.Equal(t, "who?", out.NextQuestion)
}

func TestProcessorStopsOnComplete(t *testing.T) {
	flow := GraphFlow{StartNode: "moderation", Edges: map[string][]GraphEdge{"moderation": {{To: "context"}}}}
	p := newProcessor(t, flow,
		staticNode("moderation", NodeOutput{Data: map[string]any{KeyResponse: "denied", KeyModerated: true}, Complete: true}),
	)

	out, err := p.Execute(context.Background(), ProcessorInput{})
	require.NoError(t, err)
	assert.True(t, out.Moderated)
	assert.Equal(t, "denied", out.Response)
	assert.Equal(t, []string{"moderation"}, out.Metadata["execution_path"])
}

func TestProcessorCollectsNonFatalErrors(t *testing.T) {
	flow := GraphFlow{StartNode: "a"}
	p := newProcessor(t, flow, staticNode("a", NodeOutput{Error: errors.New("classifier down"), Data: map[string]any{"extra": 1}}))

	out, err := p.Execute(context.Background(), ProcessorInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"classifier down"}, out.Metadata["errors"])
	assert.Equal(t, 1, out.Metadata["a_extra"])
}

func TestProcessorReturnsFatalErrors(t *testing.T) {
	boom := errors.New("boom")
	flow := GraphFlow{StartNode: "a"}
	failing := &funcNode{name: "a", fn: func(context.Context, NodeInput) (NodeOutput, error) { return NodeOutput{}, boom }}
	p := newProcessor(t, flow, failing)

	_, err := p.Execute(context.Background(), ProcessorInput{})
	assert.ErrorIs(t, err, boom)
}

func TestProcessorUnknownNode(t *testing.T) {
	p := newProcessor(t, GraphFlow{StartNode: "missing"})
	_, err := p.Execute(context.Background(), ProcessorInput{})
	assert.Error(t, err)
}

func TestProcessorStepLimit(t *testing.T) {
	flow := GraphFlow{StartNode: "loop", Edges: map[string][]GraphEdge{"loop": {{To: "loop"}}}}
	p := NewGraphProcessor(GraphConfig{DefaultFlow: flow, MaxSteps: 5})
	require.NoError(t, p.AddNode(staticNode("loop", NodeOutput{})))

	_, err := p.Execute(context.Background(), ProcessorInput{})
	assert.ErrorContains(t, err, "exceeded 5 steps")
}

func TestProcessorHonoursCancellation(t *testing.T) {
	p := newProcessor(t, GraphFlow{StartNode: "a"}, staticNode("a", NodeOutput{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Execute(ctx, ProcessorInput{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddNodeValidation(t *testing.T) {
	p := NewGraphProcessor(GraphConfig{})
	assert.Error(t, p.AddNode(nil))
	assert.Error(t, p.AddNode(staticNode("", NodeOutput{})))
	assert.Error(t, p.AddNode(staticNode(NodeComplete, NodeOutput{})))

	require.NoError(t, p.AddNode(staticNode("a", NodeOutput{})))
	node, err := p.GetNode("a")
	require.NoError(t, err)
	assert.Equal(t, "a", node.GetName())

	_, err = p.GetNode("b")
	assert.Error(t, err)
	assert.Error(t, p.SetFlow(GraphFlow{}))
	assert.NoError(t, p.SetFlow(GraphFlow{StartNode: "a"}))
}

func TestNodeInputMessageHelpers(t *testing.T) {
	in := NodeInput{Messages: []pkg.ConversationMessage{
		{Role: pkg.RoleUser, Content: "first"},
		{Role: pkg.RoleAssistant, Content: "reply"},
		{Role: pkg.RoleUser, Content: "second"},
		{Role: pkg.RoleAssistant, Content: "reply 2"},
	}}
	assert.Equal(t, []string{"first", "second"}, in.UserMessages())
	assert.Equal(t, "second", in.LatestUserMessage())
	assert.Equal(t, "", NodeInput{}.LatestUserMessage())
}
