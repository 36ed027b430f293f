package services

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel replays scripted replies and records every call it receives
type fakeChatModel struct {
	mu       sync.Mutex
	replies  []*schema.Message
	err      error
	calls    [][]*schema.Message
	options  []*model.Options
	tools    []*schema.ToolInfo
	streamed []string
}

func newFakeChatModel(replies ...*schema.Message) *fakeChatModel {
	return &fakeChatModel{replies: replies}
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, input)
	f.options = append(f.options, model.GetCommonOptions(&model.Options{}, opts...))
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, input)
	f.options = append(f.options, model.GetCommonOptions(&model.Options{}, opts...))
	if f.err != nil {
		return nil, f.err
	}
	chunks := make([]*schema.Message, 0, len(f.streamed))
	for _, s := range f.streamed {
		chunks = append(chunks, schema.AssistantMessage(s, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tools = tools
	return f, nil
}

func (f *fakeChatModel) lastCall() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeChatModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
