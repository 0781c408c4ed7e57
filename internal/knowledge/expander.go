package knowledge

import "strings"

// topic pairs trigger substrings with canned paraphrases of the intent they
// signal. Triggers and phrases cover both English and Tagalog since shoppers
// mix the two freely.
type topic struct {
	name     string
	triggers []string
	phrases  []string
}

// topics are checked in order; a query may match zero, one or several. The
// output order of ExpandQuery follows this table, then each topic's phrase
// order. No ranking happens here; callers cap how many variations they embed.
var topics = []topic{
	{
		name:     "pricing",
		triggers: []string{"magkano", "presyo", "price", "how much", "cost", "mahal", "mura"},
		phrases: []string{
			"Magkano?",
			"How much does it cost?",
			"Ano ang presyo?",
			"What is the price?",
		},
	},
	{
		name:     "product",
		triggers: []string{"available", "meron", "stock", "item", "product", "benta", "bili"},
		phrases: []string{
			"Available pa ba ito?",
			"Is this item in stock?",
			"Ano ang mga binebenta ninyo?",
			"What products do you sell?",
		},
	},
	{
		name:     "delivery",
		triggers: []string{"ship", "deliver", "padala", "hatid", "courier", "dating"},
		phrases: []string{
			"Magkano ang shipping fee?",
			"How long is the delivery?",
			"Saan kayo nagpapadala?",
			"Do you deliver to my area?",
		},
	},
	{
		name:     "payment",
		triggers: []string{"bayad", "payment", "gcash", "pay", "cod", "hulugan"},
		phrases: []string{
			"Paano magbayad?",
			"What payment methods do you accept?",
			"GCash po ba pwede?",
			"Do you accept cash on delivery?",
		},
	},
}

// ExpandQuery generates alternate phrasings of the query's likely intent via
// heuristic topic detection. A query matching no topic yields no variations.
func ExpandQuery(query string) []string {
	lowered := strings.ToLower(query)
	var variations []string
	for _, t := range topics {
		for _, trigger := range t.triggers {
			if strings.Contains(lowered, trigger) {
				variations = append(variations, t.phrases...)
				break
			}
		}
	}
	return variations
}
