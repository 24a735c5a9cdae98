package domain

import (
	"fmt"
	"strings"
	"time"
)

// Variation is one arm of an experiment. Identity is the ID; the name
// is display-only and may be "Unknown" when the platform omits it.
type Variation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsControl bool   `json:"is_control"`
}

// Experiment holds the configuration of a single A/B test as returned
// by the experimentation platform.
type Experiment struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	TestTypes  map[string]bool `json:"test_types,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	EndedAt    *time.Time      `json:"ended_at,omitempty"`
	Variations []Variation     `json:"variations"`
}

// Control returns the baseline variation, or nil if none is marked.
func (e *Experiment) Control() *Variation {
	for i := range e.Variations {
		if e.Variations[i].IsControl {
			return &e.Variations[i]
		}
	}
	return nil
}

// Variants returns all non-control variations.
func (e *Experiment) Variants() []Variation {
	var out []Variation
	for _, v := range e.Variations {
		if !v.IsControl {
			out = append(out, v)
		}
	}
	return out
}

// VariationName looks up a variation's display name by ID.
func (e *Experiment) VariationName(id string) string {
	for _, v := range e.Variations {
		if v.ID == id {
			if v.Name == "" {
				return "Unknown"
			}
			return v.Name
		}
	}
	return "Unknown"
}

// RuntimeDays returns whole days between the start timestamp and either
// the end timestamp (ended tests) or now. Never negative; 0 when the
// start timestamp is missing.
func (e *Experiment) RuntimeDays(now time.Time) int {
	if e.StartedAt == nil {
		return 0
	}
	end := now
	if e.EndedAt != nil {
		end = *e.EndedAt
	}
	days := int(end.Sub(*e.StartedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// RuntimeDisplay renders runtime as "< 1 day", "1 day" or "N days".
func (e *Experiment) RuntimeDisplay(now time.Time) string {
	days := e.RuntimeDays(now)
	switch days {
	case 0:
		return "< 1 day"
	case 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}

// Test categories recognized across all analyses.
const (
	CategoryPricing  = "Pricing"
	CategoryShipping = "Shipping"
	CategoryOffer    = "Offer"
	CategoryContent  = "Content"
)

// AllCategories lists the categories a testing program is expected to
// cover, in display order.
var AllCategories = []string{CategoryPricing, CategoryShipping, CategoryOffer, CategoryContent}

// Category derives the test category from the platform's test-type
// flags, falling back to a substring match on the free-text type.
func (e *Experiment) Category() string {
	if e.TestTypes["hasTestPricing"] {
		return CategoryPricing
	}
	if e.TestTypes["hasTestShipping"] {
		return CategoryShipping
	}
	if e.TestTypes["hasTestCampaign"] {
		return CategoryOffer
	}
	for flag, on := range e.TestTypes {
		if on && strings.HasPrefix(flag, "hasTestContent") {
			return CategoryContent
		}
	}
	switch {
	case strings.Contains(e.Type, "pricing"):
		return CategoryPricing
	case strings.Contains(e.Type, "shipping"):
		return CategoryShipping
	case strings.Contains(e.Type, "offer"):
		return CategoryOffer
	}
	return CategoryContent
}
