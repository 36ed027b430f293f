package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"giftmatch/internal/gifts"
	"giftmatch/internal/logger"
	"giftmatch/internal/metrics"
	"giftmatch/pkg"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

var (
	// ErrMissingContext means recipient, occasion or budget was not supplied
	ErrMissingContext = errors.New("missing required context fields")
	// ErrNoMatches means the filter engine found no gifts for the context
	ErrNoMatches = errors.New("no gifts match the criteria")
)

// DefaultTemperature is the sampling temperature of recommendation calls
const DefaultTemperature = float32(0.7)

// Recommender turns filtered gift candidates into recommendation text through the chat model
type Recommender struct {
	catalog     *CatalogStore
	chat        compose.Runnable[map[string]any, *schema.Message]
	wizard      compose.Runnable[map[string]any, *schema.Message]
	temperature float32
}

// NewRecommender compiles the recommendation chains for the given chat model
func NewRecommender(ctx context.Context, cm model.BaseChatModel, catalog *CatalogStore, temperature float32) (*Recommender, error) {
	if cm == nil {
		return nil, fmt.Errorf("chat model cannot be nil")
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	chat, err := compileChain(ctx, cm, recommendationSystemPrompt, recommendationUserTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to compile recommendation chain: %w", err)
	}
	wizard, err := compileChain(ctx, cm, SystemPrompt, wizardUserTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to compile wizard chain: %w", err)
	}

	return &Recommender{
		catalog:     catalog,
		chat:        chat,
		wizard:      wizard,
		temperature: temperature,
	}, nil
}

func compileChain(ctx context.Context, cm model.BaseChatModel, system, user string) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	return compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(cm).
		Compile(ctx)
}

// Recommend asks the model to pick from candidates for the chat flow and returns its text verbatim
func (r *Recommender) Recommend(ctx context.Context, giftCtx pkg.GiftContext, candidates []pkg.GiftEntry) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoMatches
	}
	return r.generate(ctx, r.chat, "recommend", ContextSummary(giftCtx), candidates)
}

// Wizard produces the single-shot recommendation for a context supplied whole by the client
func (r *Recommender) Wizard(ctx context.Context, giftCtx pkg.GiftContext) (*pkg.RecommendationResponse, error) {
	if !gifts.IsReady(giftCtx) {
		return nil, ErrMissingContext
	}

	catalog, err := r.catalogEntries()
	if err != nil {
		logger.Error().Err(err).Msg("Gift catalog unavailable")
	}

	candidates := gifts.Filter(giftCtx, catalog)
	metrics.MatchedCandidates(len(candidates))
	if len(candidates) == 0 {
		return nil, ErrNoMatches
	}

	summary := WizardSummary(giftCtx)
	text, err := r.generate(ctx, r.wizard, "wizard", summary, candidates)
	if err != nil {
		return nil, err
	}

	return &pkg.RecommendationResponse{
		Context:         summary,
		Recommendations: text,
		MatchedGifts:    len(candidates),
	}, nil
}

func (r *Recommender) catalogEntries() ([]pkg.GiftEntry, error) {
	if r.catalog == nil {
		return nil, nil
	}
	return r.catalog.Load()
}

func (r *Recommender) generate(ctx context.Context, chain compose.Runnable[map[string]any, *schema.Message], operation, summary string, candidates []pkg.GiftEntry) (string, error) {
	giftsJSON, err := FormatCandidates(candidates)
	if err != nil {
		return "", err
	}

	started := time.Now()
	msg, err := chain.Invoke(ctx, map[string]any{
		"summary": summary,
		"gifts":   giftsJSON,
	}, compose.WithChatModelOption(model.WithTemperature(r.temperature)))
	metrics.ObserveGeneration(operation, started)
	if err != nil {
		return "", fmt.Errorf("recommendation generation failed: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("recommendation generation returned no message")
	}

	logger.Debug().
		Str("operation", operation).
		Int("candidates", len(candidates)).
		Dur("elapsed", time.Since(started)).
		Msg("Recommendation generated")

	return msg.Content, nil
}

// ContextSummary renders the context for the recommendation prompt, with placeholders for unknown fields
func ContextSummary(ctx pkg.GiftContext) string {
	interests := "Any"
	if ctx.HasInterests() {
		interests = strings.Join(ctx.Interests, ", ")
	}
	lines := []string{
		"- Recipient: " + firstNonEmpty(ctx.RecipientGroup, ctx.RecipientType, "Anyone"),
		"- Occasion: " + firstNonEmpty(ctx.Occasion, "Just because"),
		"- Budget: " + firstNonEmpty(string(ctx.PriceBand), "Any"),
		"- Personality: " + firstNonEmpty(ctx.Personality, "Any"),
		"- Interests: " + interests,
	}
	return strings.Join(lines, "\n")
}

// WizardSummary renders the one-line summary returned to wizard clients
func WizardSummary(ctx pkg.GiftContext) string {
	parts := []string{
		"Gift for: " + ctx.RecipientGroup,
		"Occasion: " + ctx.Occasion,
		"Budget: " + string(ctx.PriceBand),
	}
	if ctx.Personality != "" {
		parts = append(parts, "Personality: "+ctx.Personality)
	}
	if ctx.HasInterests() {
		parts = append(parts, "Interests: "+strings.Join(ctx.Interests, ", "))
	}
	return strings.Join(parts, " · ")
}

// FormatCandidates serializes at most gifts.MaxCandidates entries as indented JSON
func FormatCandidates(candidates []pkg.GiftEntry) (string, error) {
	if len(candidates) > gifts.MaxCandidates {
		candidates = candidates[:gifts.MaxCandidates]
	}
	data, err := sonic.ConfigDefault.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize gift candidates: %w", err)
	}
	return string(data), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
