package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"giftmatch/internal/logger"
	"giftmatch/internal/metrics"
	"giftmatch/pkg"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// DefaultMaxToolIterations bounds the generate/execute rounds of one assistant turn
const DefaultMaxToolIterations = 4

const assistantSystemPrompt = `You are a course assistant. Answer the student's question using the course material returned by your tools: syllabus, lecture slides, lecture notebooks, assignments and assigned readings. Search before answering, cite the source description of what you used, and say so plainly when the material does not cover the question.`

// Assistant answers with a tool-calling model that can search course documents
type Assistant struct {
	model         model.ToolCallingChatModel
	tools         map[string]tool.InvokableTool
	maxIterations int
}

// NewAssistant binds tools to cm
func NewAssistant(ctx context.Context, cm model.ToolCallingChatModel, tools []tool.InvokableTool, maxIterations int) (*Assistant, error) {
	if cm == nil {
		return nil, fmt.Errorf("chat model cannot be nil")
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxToolIterations
	}

	byName := make(map[string]tool.InvokableTool, len(tools))
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read tool info: %w", err)
		}
		byName[info.Name] = t
		infos = append(infos, info)
	}

	bound := cm
	if len(infos) > 0 {
		var err error
		bound, err = cm.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	return &Assistant{model: bound, tools: byName, maxIterations: maxIterations}, nil
}

// Run executes tool calls until the model answers without requesting one, or the
// iteration budget is spent, in which case the last reply's text is returned
func (a *Assistant) Run(ctx context.Context, history []pkg.ConversationMessage) (*pkg.AssistantResponse, error) {
	messages := ToSchemaMessages(assistantSystemPrompt, history)
	resp := &pkg.AssistantResponse{}

	var last *schema.Message
	for i := 0; i < a.maxIterations; i++ {
		started := time.Now()
		reply, err := a.model.Generate(ctx, messages)
		metrics.ObserveGeneration("assistant", started)
		if err != nil {
			return nil, fmt.Errorf("assistant generation failed: %w", err)
		}
		if reply == nil {
			return nil, errors.New("model returned empty message")
		}

		messages = append(messages, reply)
		last = reply
		if len(reply.ToolCalls) == 0 {
			break
		}

		for _, call := range reply.ToolCalls {
			messages = append(messages, a.execute(ctx, call))
			resp.ToolsExecuted = append(resp.ToolsExecuted, call.Function.Name)
		}
	}

	if last != nil {
		resp.Text = strings.TrimSpace(last.Content)
	}
	return resp, nil
}

// execute runs one tool call. Failures are reported back to the model as a JSON error payload.
func (a *Assistant) execute(ctx context.Context, call schema.ToolCall) *schema.Message {
	callID := call.ID
	if callID == "" {
		callID = fmt.Sprintf("call-%d", time.Now().UnixNano())
	}
	name := call.Function.Name

	content, err := a.invoke(ctx, name, call.Function.Arguments)
	if err != nil {
		logger.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
		metrics.ToolCall(name, "error")
		payload, _ := sonic.MarshalString(map[string]string{"error": err.Error()})
		return schema.ToolMessage(payload, callID, schema.WithToolName(name))
	}

	metrics.ToolCall(name, "ok")
	logger.Debug().Str("tool", name).Int("bytes", len(content)).Msg("Tool call succeeded")
	return schema.ToolMessage(content, callID, schema.WithToolName(name))
}

func (a *Assistant) invoke(ctx context.Context, name, arguments string) (string, error) {
	t, ok := a.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return t.InvokableRun(ctx, arguments)
}
