package gifts

import (
	"strings"

	"giftmatch/pkg"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Keyword maps a lower-case pattern to the canonical value stored in the context
type Keyword struct {
	Pattern string
	Value   string
}

// KeywordCluster is a group of patterns that all resolve to the same price band
type KeywordCluster struct {
	Patterns []string
	Band     pkg.PriceBand
}

// RecipientKeywords is scanned in order; the first pattern found in the utterance wins.
// "girlfriend"/"boyfriend" must stay ahead of "friend".
var RecipientKeywords = []Keyword{
	{Pattern: "mom", Value: "Mother"},
	{Pattern: "mother", Value: "Mother"},
	{Pattern: "mum", Value: "Mother"},
	{Pattern: "dad", Value: "Father"},
	{Pattern: "father", Value: "Father"},
	{Pattern: "sister", Value: "Sister"},
	{Pattern: "brother", Value: "Brother"},
	{Pattern: "wife", Value: "Wife"},
	{Pattern: "husband", Value: "Husband"},
	{Pattern: "girlfriend", Value: "Girlfriend"},
	{Pattern: "boyfriend", Value: "Boyfriend"},
	{Pattern: "friend", Value: "Friend"},
	{Pattern: "colleague", Value: "Colleague"},
	{Pattern: "boss", Value: "Boss"},
	{Pattern: "child", Value: "Kids"},
	{Pattern: "kid", Value: "Kids"},
	{Pattern: "baby", Value: "Kids"},
}

// OccasionKeywords is scanned in order; the first match is stored title-cased
var OccasionKeywords = []string{
	"birthday",
	"anniversary",
	"diwali",
	"festival",
	"promotion",
	"housewarming",
	"new year",
}

// PriceBandKeywords is checked as an exclusive chain: once a cluster matches, later clusters are ignored
var PriceBandKeywords = []KeywordCluster{
	{Patterns: []string{"low", "cheap", "under", "budget"}, Band: pkg.PriceBandLow},
	{Patterns: []string{"high", "premium", "luxury", "expensive"}, Band: pkg.PriceBandHigh},
	{Patterns: []string{"medium", "moderate", "mid"}, Band: pkg.PriceBandMedium},
}

// InterestKeywords is scanned fully; every match is collected in table order
var InterestKeywords = []string{
	"art",
	"creative",
	"tech",
	"technology",
	"sports",
	"fitness",
	"travel",
	"music",
	"cooking",
	"reading",
	"wellness",
	"meditation",
	"nature",
	"gardening",
	"fashion",
}

// title upper-cases the first letter of every word. A Caser is stateful, so one is built per call.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// Extract infers context fields from a single utterance and merges them over prior.
// Fields with no keyword match in the utterance keep their prior value.
func Extract(utterance string, prior pkg.GiftContext) pkg.GiftContext {
	lower := strings.ToLower(utterance)

	var found pkg.GiftContext
	found.RecipientGroup = matchRecipient(lower)
	found.Occasion = matchOccasion(lower)
	found.PriceBand = matchPriceBand(lower)
	found.Interests = matchInterests(lower)

	return prior.Merge(found)
}

// ExtractConversation replays every utterance through Extract starting from an empty context
func ExtractConversation(utterances []string) pkg.GiftContext {
	var ctx pkg.GiftContext
	for _, utterance := range utterances {
		ctx = Extract(utterance, ctx)
	}
	return ctx
}

func matchRecipient(lower string) string {
	for _, kw := range RecipientKeywords {
		if strings.Contains(lower, kw.Pattern) {
			return kw.Value
		}
	}
	return ""
}

func matchOccasion(lower string) string {
	for _, occasion := range OccasionKeywords {
		if strings.Contains(lower, occasion) {
			return title(occasion)
		}
	}
	return ""
}

func matchPriceBand(lower string) pkg.PriceBand {
	for _, cluster := range PriceBandKeywords {
		for _, pattern := range cluster.Patterns {
			if strings.Contains(lower, pattern) {
				return cluster.Band
			}
		}
	}
	return ""
}

func matchInterests(lower string) []string {
	var interests []string
	for _, interest := range InterestKeywords {
		if strings.Contains(lower, interest) {
			interests = append(interests, title(interest))
		}
	}
	return interests
}
