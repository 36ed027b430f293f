package gifts

import (
	"testing"

	"giftmatch/pkg"

	"github.com/stretchr/testify/assert"
)

func TestIsReady(t *testing.T) {
	full := pkg.GiftContext{RecipientGroup: "Friend", Occasion: "Birthday", PriceBand: pkg.PriceBandLow}
	assert.True(t, IsReady(full))

	missingRecipient := full
	missingRecipient.RecipientGroup = ""
	assert.False(t, IsReady(missingRecipient))

	missingOccasion := full
	missingOccasion.Occasion = ""
	assert.False(t, IsReady(missingOccasion))

	missingBudget := full
	missingBudget.PriceBand = ""
	assert.False(t, IsReady(missingBudget))
}

func TestNextQuestionPriorityOrder(t *testing.T) {
	ctx := pkg.GiftContext{}
	assert.Equal(t, QuestionRecipient, NextQuestion(ctx))

	// occasion and budget known, recipient still asked first
	ctx = pkg.GiftContext{Occasion: "Diwali", PriceBand: pkg.PriceBandHigh}
	assert.Equal(t, QuestionRecipient, NextQuestion(ctx))

	ctx = pkg.GiftContext{RecipientGroup: "Sister", PriceBand: pkg.PriceBandHigh}
	assert.Equal(t, QuestionOccasion, NextQuestion(ctx))

	ctx = pkg.GiftContext{RecipientGroup: "Sister", Occasion: "Diwali"}
	assert.Equal(t, QuestionBudget, NextQuestion(ctx))
}

func TestNextQuestionRefinementUsesLowerCaseRecipient(t *testing.T) {
	ctx := pkg.GiftContext{RecipientGroup: "Sister", Occasion: "Diwali", PriceBand: pkg.PriceBandHigh}
	assert.Equal(t,
		"Any specific interests or personality traits for sister? (e.g., creative, tech-savvy, nature-lover, foodie)",
		NextQuestion(ctx))
}

func TestNextQuestionEmptyWhenResolved(t *testing.T) {
	ctx := pkg.GiftContext{RecipientGroup: "Sister", Occasion: "Diwali", PriceBand: pkg.PriceBandHigh}

	withPersonality := ctx
	withPersonality.Personality = "Foodie"
	assert.Empty(t, NextQuestion(withPersonality))

	withInterests := ctx
	withInterests.Interests = []string{"Music"}
	assert.Empty(t, NextQuestion(withInterests))

	// an empty interests list still counts as unknown
	withEmptyInterests := ctx
	withEmptyInterests.Interests = []string{}
	assert.NotEmpty(t, NextQuestion(withEmptyInterests))
}
