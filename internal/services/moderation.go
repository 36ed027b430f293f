package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultDenialMessage is returned for a flagged message whose category has no specific wording
const DefaultDenialMessage = "Your message violates our guidelines. I can't answer that."

const (
	helplineSuffix = " If you're struggling, please reach out to a mental health professional or crisis helpline."
	askElse        = " Please ask something else."
	beRespectful   = " Please be respectful."
)

// ModerationResult is the verdict on a single user message
type ModerationResult struct {
	Flagged       bool   `json:"flagged"`
	Category      string `json:"category,omitempty"`
	DenialMessage string `json:"denialMessage,omitempty"`
}

// Classifier decides whether a user message may be answered
type Classifier interface {
	Classify(ctx context.Context, text string) (ModerationResult, error)
}

// NoopClassifier never flags anything
type NoopClassifier struct{}

func (NoopClassifier) Classify(context.Context, string) (ModerationResult, error) {
	return ModerationResult{}, nil
}

// moderationAPI is the part of the openai client used here; *openai.ModerationService satisfies it
type moderationAPI interface {
	New(ctx context.Context, body openai.ModerationNewParams, opts ...option.RequestOption) (*openai.ModerationNewResponse, error)
}

type categoryRule struct {
	name    string
	flagged func(openai.ModerationCategories) bool
	message string
}

// categoryRules is ordered so a specific category wins over its parent
var categoryRules = []categoryRule{
	{"sexual/minors", func(c openai.ModerationCategories) bool { return c.SexualMinors },
		"I can't discuss content involving minors in a sexual context." + askElse},
	{"sexual", func(c openai.ModerationCategories) bool { return c.Sexual },
		"I can't discuss explicit sexual content." + askElse},
	{"harassment/threatening", func(c openai.ModerationCategories) bool { return c.HarassmentThreatening },
		"I can't engage with threatening or harassing content." + beRespectful},
	{"harassment", func(c openai.ModerationCategories) bool { return c.Harassment },
		"I can't engage with harassing content." + beRespectful},
	{"hate/threatening", func(c openai.ModerationCategories) bool { return c.HateThreatening },
		"I can't engage with threatening hate speech." + beRespectful},
	{"hate", func(c openai.ModerationCategories) bool { return c.Hate },
		"I can't engage with hateful content." + beRespectful},
	{"illicit/violent", func(c openai.ModerationCategories) bool { return c.IllicitViolent },
		"I can't discuss violent illegal activities." + askElse},
	{"illicit", func(c openai.ModerationCategories) bool { return c.Illicit },
		"I can't discuss illegal activities." + askElse},
	{"self-harm/intent", func(c openai.ModerationCategories) bool { return c.SelfHarmIntent },
		"I can't discuss self-harm intentions." + helplineSuffix},
	{"self-harm/instructions", func(c openai.ModerationCategories) bool { return c.SelfHarmInstructions },
		"I can't provide instructions related to self-harm." + helplineSuffix},
	{"self-harm", func(c openai.ModerationCategories) bool { return c.SelfHarm },
		"I can't discuss self-harm." + helplineSuffix},
	{"violence/graphic", func(c openai.ModerationCategories) bool { return c.ViolenceGraphic },
		"I can't discuss graphic violent content." + askElse},
	{"violence", func(c openai.ModerationCategories) bool { return c.Violence },
		"I can't discuss violent content." + askElse},
}

// DenialFor maps a flagged category set to the category label and the reply shown to the user
func DenialFor(categories openai.ModerationCategories) (string, string) {
	for _, rule := range categoryRules {
		if rule.flagged(categories) {
			return rule.name, rule.message
		}
	}
	return "", DefaultDenialMessage
}

// OpenAIModerator classifies messages with the OpenAI moderation endpoint
type OpenAIModerator struct {
	api   moderationAPI
	model openai.ModerationModel
}

// NewOpenAIModerator creates a moderator authenticated with apiKey. model defaults to omni-moderation-latest.
func NewOpenAIModerator(apiKey, baseURL, model string) *OpenAIModerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return newOpenAIModerator(&client.Moderations, model)
}

func newOpenAIModerator(api moderationAPI, model string) *OpenAIModerator {
	m := &OpenAIModerator{api: api, model: openai.ModerationModel(model)}
	if m.model == "" {
		m.model = openai.ModerationModelOmniModerationLatest
	}
	return m
}

func (m *OpenAIModerator) Classify(ctx context.Context, text string) (ModerationResult, error) {
	if strings.TrimSpace(text) == "" {
		return ModerationResult{}, nil
	}

	resp, err := m.api.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(text)},
		Model: m.model,
	})
	if err != nil {
		return ModerationResult{}, fmt.Errorf("moderation request failed: %w", err)
	}

	for _, result := range resp.Results {
		if !result.Flagged {
			continue
		}
		category, message := DenialFor(result.Categories)
		return ModerationResult{Flagged: true, Category: category, DenialMessage: message}, nil
	}
	return ModerationResult{}, nil
}
