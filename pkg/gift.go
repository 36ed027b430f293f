package pkg

import "strings"

// Gift domain types shared by the catalog, the filter engine and the API

// PriceBand is the coarse budget tier of a gift
type PriceBand string

const (
	PriceBandLow    PriceBand = "Low"
	PriceBandMedium PriceBand = "Medium"
	PriceBandHigh   PriceBand = "High"
)

// priceBandDisplay maps each band to the range shown to users
var priceBandDisplay = map[PriceBand]string{
	PriceBandLow:    "Under ₹1,500",
	PriceBandMedium: "₹1,500 – ₹4,000",
	PriceBandHigh:   "₹4,000+",
}

// PriceBands returns the bands in ascending order
func PriceBands() []PriceBand {
	return []PriceBand{PriceBandLow, PriceBandMedium, PriceBandHigh}
}

// Display returns the user-facing price range, or the raw value for unknown bands
func (p PriceBand) Display() string {
	if display, ok := priceBandDisplay[p]; ok {
		return display
	}
	return string(p)
}

// Valid reports whether p is one of the known bands
func (p PriceBand) Valid() bool {
	_, ok := priceBandDisplay[p]
	return ok
}

// ParsePriceBand accepts either the canonical band name (case-insensitive) or its display range
func ParsePriceBand(value string) (PriceBand, bool) {
	value = strings.TrimSpace(value)
	for _, band := range PriceBands() {
		if strings.EqualFold(value, string(band)) || value == band.Display() {
			return band, true
		}
	}
	return "", false
}

// GiftEntry is one row of the gift catalog. JSON tags follow the dataset column names.
type GiftEntry struct {
	Name           string `json:"gift_name"`
	Category       string `json:"category"`
	Personality    string `json:"personality"`
	InterestTags   string `json:"interest_tags"`
	RecipientType  string `json:"recipient_type"`
	RecipientGroup string `json:"recipient_group"`
	Occasion       string `json:"occasion"`
	PriceBand      string `json:"price_band"`
	Description    string `json:"description"`
}

// GiftContext is the structured picture of a gift request accumulated over a conversation.
// Empty strings and an empty Interests slice mean "not known yet".
type GiftContext struct {
	RecipientGroup string    `json:"recipientGroup,omitempty"`
	RecipientType  string    `json:"recipientType,omitempty"`
	Occasion       string    `json:"occasion,omitempty"`
	PriceBand      PriceBand `json:"priceBand,omitempty"`
	Personality    string    `json:"personality,omitempty"`
	Interests      []string  `json:"interests,omitempty"`
	QuestionsAsked *int      `json:"questionsAsked,omitempty"`
}

// HasInterests reports whether at least one interest is known
func (c GiftContext) HasInterests() bool {
	return len(c.Interests) > 0
}

// IsEmpty reports whether no field has been inferred or supplied
func (c GiftContext) IsEmpty() bool {
	return c.RecipientGroup == "" &&
		c.RecipientType == "" &&
		c.Occasion == "" &&
		c.PriceBand == "" &&
		c.Personality == "" &&
		!c.HasInterests() &&
		c.QuestionsAsked == nil
}

// Clone returns a copy that shares no memory with c
func (c GiftContext) Clone() GiftContext {
	out := c
	if c.Interests != nil {
		out.Interests = append([]string(nil), c.Interests...)
	}
	if c.QuestionsAsked != nil {
		asked := *c.QuestionsAsked
		out.QuestionsAsked = &asked
	}
	return out
}

// Merge returns a new context where every field present in update replaces the value in c.
// Absent fields in update never clear a value.
func (c GiftContext) Merge(update GiftContext) GiftContext {
	out := c.Clone()
	if update.RecipientGroup != "" {
		out.RecipientGroup = update.RecipientGroup
	}
	if update.RecipientType != "" {
		out.RecipientType = update.RecipientType
	}
	if update.Occasion != "" {
		out.Occasion = update.Occasion
	}
	if update.PriceBand != "" {
		out.PriceBand = update.PriceBand
	}
	if update.Personality != "" {
		out.Personality = update.Personality
	}
	if update.HasInterests() {
		out.Interests = append([]string(nil), update.Interests...)
	}
	if update.QuestionsAsked != nil {
		asked := *update.QuestionsAsked
		out.QuestionsAsked = &asked
	}
	return out
}
