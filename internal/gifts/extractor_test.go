package gifts

import (
	"testing"

	"giftmatch/pkg"

	"github.com/stretchr/testify/assert"
)

func TestExtractRecipient(t *testing.T) {
	cases := map[string]string{
		"a gift for my mom":               "Mother",
		"something for my Father":         "Father",
		"my girlfriend loves flowers":     "Girlfriend",
		"my best friend":                  "Friend",
		"for my boss":                     "Boss",
		"our baby turns one":              "Kids",
		"for my mother and my sister too": "Mother",
	}
	for utterance, want := range cases {
		got := Extract(utterance, pkg.GiftContext{})
		assert.Equal(t, want, got.RecipientGroup, utterance)
	}
}

func TestExtractRecipientOverwrites(t *testing.T) {
	ctx := Extract("gift for my sister", pkg.GiftContext{})
	ctx = Extract("actually it's for my brother", ctx)
	assert.Equal(t, "Brother", ctx.RecipientGroup)
}

func TestExtractOccasionTitleCased(t *testing.T) {
	assert.Equal(t, "Birthday", Extract("it's her BIRTHDAY", pkg.GiftContext{}).Occasion)
	assert.Equal(t, "New Year", Extract("for the new year party", pkg.GiftContext{}).Occasion)
	// birthday is earlier in the table than diwali
	assert.Equal(t, "Birthday", Extract("diwali or birthday", pkg.GiftContext{}).Occasion)
}

func TestExtractPriceBand(t *testing.T) {
	assert.Equal(t, pkg.PriceBandLow, Extract("something cheap", pkg.GiftContext{}).PriceBand)
	assert.Equal(t, pkg.PriceBandHigh, Extract("a luxury item", pkg.GiftContext{}).PriceBand)
	assert.Equal(t, pkg.PriceBandMedium, Extract("moderate spend", pkg.GiftContext{}).PriceBand)
}

func TestExtractPriceBandLowClusterWins(t *testing.T) {
	ctx := Extract("premium but on a budget", pkg.GiftContext{})
	assert.Equal(t, pkg.PriceBandLow, ctx.PriceBand)
}

func TestExtractInterestsCollectsAllInTableOrder(t *testing.T) {
	ctx := Extract("she loves music, reading and art", pkg.GiftContext{})
	assert.Equal(t, []string{"Art", "Music", "Reading"}, ctx.Interests)
}

func TestExtractInterestsReplaceAcrossTurns(t *testing.T) {
	ctx := Extract("I love tech", Extract("I love reading", pkg.GiftContext{}))
	assert.Equal(t, []string{"Tech"}, ctx.Interests)
}

func TestExtractNoMatchReturnsPriorContext(t *testing.T) {
	prior := pkg.GiftContext{
		RecipientGroup: "Mother",
		Occasion:       "Diwali",
		PriceBand:      pkg.PriceBandMedium,
		Interests:      []string{"Cooking"},
	}
	got := Extract("hello there, thanks!", prior)
	assert.Equal(t, prior, got)
}

func TestExtractDoesNotMutatePrior(t *testing.T) {
	prior := pkg.GiftContext{Interests: []string{"Cooking"}}
	_ = Extract("she likes fitness", prior)
	assert.Equal(t, []string{"Cooking"}, prior.Interests)
}

func TestExtractConversation(t *testing.T) {
	ctx := ExtractConversation([]string{
		"I need a gift for my wife",
		"it's our anniversary",
		"something premium, she likes travel",
	})

	assert.Equal(t, "Wife", ctx.RecipientGroup)
	assert.Equal(t, "Anniversary", ctx.Occasion)
	assert.Equal(t, pkg.PriceBandHigh, ctx.PriceBand)
	assert.Equal(t, []string{"Travel"}, ctx.Interests)
	assert.True(t, ExtractConversation(nil).IsEmpty())
}
