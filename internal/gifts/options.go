package gifts

import "giftmatch/pkg"

// Choice tables offered by the guided wizard

// RecipientOption is a top-level recipient with optional finer-grained types
type RecipientOption struct {
	Group string   `json:"group"`
	Types []string `json:"types"`
}

// InterestOption pairs a button label with the interest value sent back
type InterestOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PriceBandOption pairs a band with its display range
type PriceBandOption struct {
	Band    pkg.PriceBand `json:"band"`
	Display string        `json:"display"`
}

// WizardOptions is everything the wizard needs to render its steps
type WizardOptions struct {
	Recipients    []RecipientOption `json:"recipients"`
	Occasions     []string          `json:"occasions"`
	Personalities []string          `json:"personalities"`
	Interests     []InterestOption  `json:"interests"`
	PriceBands    []PriceBandOption `json:"priceBands"`
}

// Options returns a fresh copy of the wizard choice tables
func Options() WizardOptions {
	bands := make([]PriceBandOption, 0, 3)
	for _, band := range pkg.PriceBands() {
		bands = append(bands, PriceBandOption{Band: band, Display: band.Display()})
	}

	return WizardOptions{
		Recipients: []RecipientOption{
			{Group: "Partner", Types: []string{"Girlfriend", "Boyfriend", "Wife", "Husband"}},
			{Group: "Family member", Types: []string{"Mother", "Father", "Sister", "Brother", "Parent", "Cousin", "Grandparent"}},
			{Group: "Friend", Types: []string{}},
			{Group: "Coworker", Types: []string{}},
			{Group: "Anyone", Types: []string{}},
		},
		Occasions: []string{"Birthday", "Anniversary", "Farewell", "Housewarming", "Festival", "Just because", "Other"},
		Personalities: []string{
			"Introvert",
			"Extrovert",
			"Traveller / Adventurous",
			"Tech-savvy",
			"Fitness / Active",
			"Foodie",
			"Book-lover / Academic",
			"Artistic / Creative",
			"Sentimental / Emotional",
			"Minimalist",
			"Workaholic / Productivity-driven",
			"Pet Lover",
		},
		Interests: []InterestOption{
			{Label: "Reading", Value: "reading"},
			{Label: "Sports & Fitness", Value: "sports"},
			{Label: "Travel & Outdoors", Value: "travel"},
			{Label: "Tech & Gadgets", Value: "tech"},
			{Label: "Art & Craft", Value: "art"},
			{Label: "Food & Cooking", Value: "cooking"},
			{Label: "Pets & Animals", Value: "pets"},
			{Label: "Music & Entertainment", Value: "music"},
			{Label: "Home Decor", Value: "home"},
			{Label: "Work & Productivity", Value: "productivity"},
		},
		PriceBands: bands,
	}
}
