package gifts

import (
	"strings"

	"giftmatch/pkg"
)

const (
	// MaxCandidates caps the result of Filter
	MaxCandidates = 10

	// softFilterMinimum is the number of rows a soft stage must keep for its narrowing to stick
	softFilterMinimum = 1

	// interestMatchThreshold is the number of interest matches needed to adopt the interest narrowing
	interestMatchThreshold = 3

	// relaxationThreshold triggers the post-hoc relaxation passes when the result is smaller
	relaxationThreshold = 3

	anyoneMarker      = "Anyone"
	justBecauseMarker = "just because"
)

// Stage is one narrowing step of the filter pipeline. base is the recipient-scoped set
// produced by the first stage; current is the working set from the previous stage.
type Stage struct {
	Name  string
	Apply func(ctx pkg.GiftContext, base, current []pkg.GiftEntry) []pkg.GiftEntry
}

// StageCount records how many candidates survived a stage
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// Pipeline runs after the recipient stage, in order
var Pipeline = []Stage{
	{Name: "recipient_type", Apply: byRecipientType},
	{Name: "occasion", Apply: byOccasion},
	{Name: "price_band", Apply: byPriceBand},
	{Name: "personality", Apply: byPersonality},
	{Name: "interests", Apply: byInterests},
	{Name: "relax_occasion", Apply: relaxToOpenOccasion},
	{Name: "relax_recipient", Apply: relaxToRecipient},
}

// Filter narrows the catalog to at most MaxCandidates entries for the context, in catalog order
func Filter(ctx pkg.GiftContext, catalog []pkg.GiftEntry) []pkg.GiftEntry {
	result, _ := FilterTrace(ctx, catalog)
	return result
}

// FilterTrace is Filter plus the candidate count after every stage
func FilterTrace(ctx pkg.GiftContext, catalog []pkg.GiftEntry) ([]pkg.GiftEntry, []StageCount) {
	trace := make([]StageCount, 0, len(Pipeline)+2)

	base := byRecipientGroup(ctx, catalog)
	trace = append(trace, StageCount{Stage: "recipient_group", Count: len(base)})

	current := base
	for _, stage := range Pipeline {
		current = stage.Apply(ctx, base, current)
		trace = append(trace, StageCount{Stage: stage.Name, Count: len(current)})
	}

	if len(current) > MaxCandidates {
		current = current[:MaxCandidates]
	}
	trace = append(trace, StageCount{Stage: "truncate", Count: len(current)})

	// Hand back a fresh slice so callers never alias the catalog
	return append([]pkg.GiftEntry(nil), current...), trace
}

// byRecipientGroup is the only hard stage: rows for the requested group or for anyone
func byRecipientGroup(ctx pkg.GiftContext, catalog []pkg.GiftEntry) []pkg.GiftEntry {
	if ctx.RecipientGroup == "" {
		return catalog
	}
	return where(catalog, func(g pkg.GiftEntry) bool {
		return strings.Contains(g.RecipientGroup, ctx.RecipientGroup) ||
			strings.Contains(g.RecipientGroup, anyoneMarker)
	})
}

func byRecipientType(ctx pkg.GiftContext, _, current []pkg.GiftEntry) []pkg.GiftEntry {
	if ctx.RecipientType == "" {
		return current
	}
	return soft(current, func(g pkg.GiftEntry) bool {
		return strings.Contains(g.RecipientType, ctx.RecipientType)
	})
}

func byOccasion(ctx pkg.GiftContext, _, current []pkg.GiftEntry) []pkg.GiftEntry {
	if ctx.Occasion == "" {
		return current
	}
	return soft(current, func(g pkg.GiftEntry) bool {
		return strings.Contains(g.Occasion, ctx.Occasion) ||
			strings.Contains(g.Occasion, justBecauseMarker)
	})
}

func byPriceBand(ctx pkg.GiftContext, _, current []pkg.GiftEntry) []pkg.GiftEntry {
	if ctx.PriceBand == "" {
		return current
	}
	return soft(current, func(g pkg.GiftEntry) bool {
		return g.PriceBand == string(ctx.PriceBand)
	})
}

func byPersonality(ctx pkg.GiftContext, _, current []pkg.GiftEntry) []pkg.GiftEntry {
	if ctx.Personality == "" {
		return current
	}
	return soft(current, func(g pkg.GiftEntry) bool {
		return strings.Contains(g.Personality, ctx.Personality)
	})
}

// byInterests adopts the interest narrowing only when it keeps interestMatchThreshold rows
func byInterests(ctx pkg.GiftContext, _, current []pkg.GiftEntry) []pkg.GiftEntry {
	if !ctx.HasInterests() {
		return current
	}
	matches := where(current, func(g pkg.GiftEntry) bool {
		return matchesAnyInterest(g.InterestTags, ctx.Interests)
	})
	if len(matches) >= interestMatchThreshold {
		return matches
	}
	return current
}

// relaxToOpenOccasion rebuilds an under-filled result from the recipient-scoped set,
// keeping only open-occasion rows when an occasion was requested
func relaxToOpenOccasion(ctx pkg.GiftContext, base, current []pkg.GiftEntry) []pkg.GiftEntry {
	if len(current) >= relaxationThreshold {
		return current
	}
	return where(base, func(g pkg.GiftEntry) bool {
		return ctx.Occasion == "" || strings.Contains(g.Occasion, justBecauseMarker)
	})
}

// relaxToRecipient falls back to everything that matched the recipient group
func relaxToRecipient(_ pkg.GiftContext, base, current []pkg.GiftEntry) []pkg.GiftEntry {
	if len(current) >= relaxationThreshold {
		return current
	}
	return base
}

// matchesAnyInterest does a case-folded, two-way substring match between requested
// interests and the whitespace-separated tags of a row
func matchesAnyInterest(interestTags string, interests []string) bool {
	tags := strings.Fields(strings.ToLower(interestTags))
	for _, interest := range interests {
		interest = strings.ToLower(interest)
		if interest == "" {
			continue
		}
		for _, tag := range tags {
			if strings.Contains(tag, interest) || strings.Contains(interest, tag) {
				return true
			}
		}
	}
	return false
}

// soft narrows current by keep unless that would leave fewer than softFilterMinimum rows
func soft(current []pkg.GiftEntry, keep func(pkg.GiftEntry) bool) []pkg.GiftEntry {
	narrowed := where(current, keep)
	if len(narrowed) < softFilterMinimum {
		return current
	}
	return narrowed
}

func where(entries []pkg.GiftEntry, keep func(pkg.GiftEntry) bool) []pkg.GiftEntry {
	out := make([]pkg.GiftEntry, 0, len(entries))
	for _, g := range entries {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}
