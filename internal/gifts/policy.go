package gifts

import (
	"fmt"
	"strings"

	"giftmatch/pkg"
)

const (
	QuestionRecipient = "Who are we shopping for? (e.g., mom, friend, sister, boss)"
	QuestionOccasion  = "What's the occasion? (e.g., birthday, anniversary, diwali, promotion)"
	QuestionBudget    = "What's your budget range? (Low: under ₹500, Medium: ₹500-2000, High: ₹2000+)"

	questionRefinement = "Any specific interests or personality traits for %s? (e.g., creative, tech-savvy, nature-lover, foodie)"
)

// IsReady reports whether the context carries enough to recommend: recipient, occasion and budget
func IsReady(ctx pkg.GiftContext) bool {
	return ctx.RecipientGroup != "" && ctx.Occasion != "" && ctx.PriceBand != ""
}

// NextQuestion returns the single clarifying question for the first missing field,
// or "" when there is nothing left to ask
func NextQuestion(ctx pkg.GiftContext) string {
	switch {
	case ctx.RecipientGroup == "":
		return QuestionRecipient
	case ctx.Occasion == "":
		return QuestionOccasion
	case ctx.PriceBand == "":
		return QuestionBudget
	case ctx.Personality == "" && !ctx.HasInterests():
		return fmt.Sprintf(questionRefinement, strings.ToLower(ctx.RecipientGroup))
	default:
		return ""
	}
}
