// Package categorize maps free-text transaction descriptions to one of the
// closed ledger categories by keyword matching.
package categorize

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tally/internal/core"
)

// Rule binds a category to the keywords that select it.
type Rule struct {
	Category core.Category `yaml:"name"`
	Keywords []string      `yaml:"keywords"`
}

// Classifier evaluates rules in order; the first rule with a keyword
// contained in the description wins.
type Classifier struct {
	rules []Rule
}

var defaultRules = []Rule{
	{core.Food, []string{
		"restaurant", "cafe", "coffee", "starbucks", "mcdonald", "kfc", "burger",
		"pizza", "subway", "shawarma", "lunch", "dinner", "breakfast", "food",
		"grocery", "supermarket", "carrefour", "lulu", "spinneys", "waitrose",
		"bakery", "sushi", "noodle", "فطور", "غداء", "عشاء", "مطعم",
	}},
	{core.Transport, []string{
		"uber", "careem", "taxi", "fuel", "petrol", "gas station", "adnoc", "enoc",
		"parking", "metro", "bus", "transport", "toll", "salik", "نقل", "بنزين",
	}},
	{core.Shopping, []string{
		"amazon", "noon", "ikea", "zara", "h&m", "lulu", "mall", "shop", "store",
		"electronics", "apple", "samsung", "clothes", "fashion", "تسوق",
	}},
	{core.Bills, []string{
		"etisalat", "du", "addc", "dewa", "utility", "electricity", "water",
		"internet", "phone", "netflix", "spotify", "subscription", "rent",
		"insurance", "فاتورة", "كهرباء", "ماء",
	}},
	{core.Entertainment, []string{
		"cinema", "movie", "theatre", "concert", "event", "ticket", "game",
		"bowling", "gym", "theme park", "yas", "ferrari", "global village", "ترفيه",
	}},
	{core.Health, []string{
		"pharmacy", "hospital", "clinic", "doctor", "medical", "medicine",
		"dentist", "optical", "health", "صيدلية", "مستشفى", "طبيب",
	}},
	{core.Travel, []string{
		"airline", "flight", "hotel", "airbnb", "booking", "expedia",
		"etihad", "emirates", "flydubai", "airport", "visa", "سفر",
	}},
	{core.Income, []string{
		"salary", "payroll", "transfer in", "deposit", "refund", "cashback", "راتب",
	}},
}

// Default returns a classifier over the built-in keyword table.
func Default() *Classifier {
	return New(defaultRules)
}

// New builds a classifier over rules. Keywords are lower-cased once here.
func New(rules []Rule) *Classifier {
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		c.rules = append(c.rules, Rule{Category: r.Category, Keywords: kws})
	}
	return c
}

// Categorize never fails: a description no rule matches is core.Other.
func (c *Classifier) Categorize(description string) core.Category {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return r.Category
			}
		}
	}
	return core.Other
}

// Rules returns a copy of the rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

type rulesFile struct {
	Categories []Rule `yaml:"categories"`
}

// LoadFile reads a YAML rule table of the form
//
//	categories:
//	  - name: food
//	    keywords: [bakery, deli]
//
// Every name must be one of the ledger categories.
func LoadFile(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rule table. See LoadFile.
func Parse(data []byte) (*Classifier, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, &core.ValidationError{Field: "rules", Reason: "no categories defined"}
	}
	for i, r := range f.Categories {
		cat, err := core.ParseCategory(string(r.Category))
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		f.Categories[i].Category = cat
	}
	return New(f.Categories), nil
}
