package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"giftmatch/internal/metrics"
	"giftmatch/pkg"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// BuildSystemPrompt extends SystemPrompt with the recommendation text when there is one,
// otherwise with the clarifying question when there is one
func BuildSystemPrompt(recommendation, question string) string {
	var b strings.Builder
	b.WriteString(SystemPrompt)
	switch {
	case recommendation != "":
		b.WriteString(recommendationPromptSuffix)
		b.WriteString(recommendation)
	case question != "":
		fmt.Fprintf(&b, clarifyPromptSuffix, question)
	}
	return b.String()
}

// Responder produces the assistant reply of a chat turn from the system prompt and the history
type Responder struct {
	cm          model.BaseChatModel
	temperature float32
}

// NewResponder creates a responder over the given chat model
func NewResponder(cm model.BaseChatModel, temperature float32) *Responder {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &Responder{cm: cm, temperature: temperature}
}

// ToSchemaMessages converts a history to eino messages, prefixed by systemPrompt when set
func ToSchemaMessages(systemPrompt string, history []pkg.ConversationMessage) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}
	for _, m := range history {
		switch m.Role {
		case pkg.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		case pkg.RoleSystem:
			msgs = append(msgs, schema.SystemMessage(m.Content))
		default:
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}
	return msgs
}

// Generate returns the whole reply at once
func (r *Responder) Generate(ctx context.Context, systemPrompt string, history []pkg.ConversationMessage) (string, error) {
	started := time.Now()
	msg, err := r.cm.Generate(ctx, ToSchemaMessages(systemPrompt, history), model.WithTemperature(r.temperature))
	metrics.ObserveGeneration("reply", started)
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("chat generation returned no message")
	}
	return msg.Content, nil
}

// Stream calls onDelta for every non-empty chunk and returns the concatenated reply.
// An error from onDelta stops the stream.
func (r *Responder) Stream(ctx context.Context, systemPrompt string, history []pkg.ConversationMessage, onDelta func(string) error) (string, error) {
	started := time.Now()
	defer metrics.ObserveGeneration("reply_stream", started)

	stream, err := r.cm.Stream(ctx, ToSchemaMessages(systemPrompt, history), model.WithTemperature(r.temperature))
	if err != nil {
		return "", fmt.Errorf("chat stream failed: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return full.String(), fmt.Errorf("chat stream interrupted: %w", err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if err := onDelta(chunk.Content); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}
