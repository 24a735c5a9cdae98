package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/format"
)

// Non-classifiable verdicts for ended tests whose analytics could not
// be evaluated.
const (
	OutcomeError  Outcome = "ERROR"
	OutcomeNoData Outcome = "NO DATA"
)

// EndedResult is the retrospective verdict for a completed test.
type EndedResult struct {
	ExperimentID  string   `json:"experiment_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	RuntimeDays   int      `json:"runtime_days"`
	StartMonth    string   `json:"start_month,omitempty"`
	Outcome       Outcome  `json:"outcome"`
	Uplift        *float64 `json:"uplift"`
	UpliftDisplay string   `json:"uplift_display"`
	Confidence    *float64 `json:"confidence"`
}

// Callable reports whether the test reached a decisive outcome.
func (r EndedResult) Callable() bool {
	switch r.Outcome {
	case OutcomeWinner, OutcomeLoser, OutcomeFlat:
		return true
	}
	return false
}

// ActiveTest is the one-line summary of a running test in the
// portfolio view.
type ActiveTest struct {
	ExperimentID string `json:"experiment_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	RuntimeDays  int    `json:"runtime_days"`
	StartMonth   string `json:"start_month,omitempty"`
}

// CategoryCoverage counts tests per category, flagging untested ones.
type CategoryCoverage struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Gap      bool   `json:"gap"`
}

// MonthVelocity counts tests started in one calendar month.
type MonthVelocity struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Portfolio is the program-level scorecard across the full test
// history.
type Portfolio struct {
	GeneratedAt    time.Time          `json:"generated_at"`
	TotalTests     int                `json:"total_tests"`
	EndedTests     int                `json:"ended_tests"`
	ActiveTests    int                `json:"active_tests"`
	Winners        int                `json:"winners"`
	Losers         int                `json:"losers"`
	Flat           int                `json:"flat"`
	Inconclusive   int                `json:"inconclusive"`
	CallableTests  int                `json:"callable_tests"`
	WinRate        float64            `json:"win_rate"`
	AvgRuntimeDays float64            `json:"avg_runtime_days"`
	TestsPerMonth  float64            `json:"tests_per_month"`
	TopWinners     []EndedResult      `json:"top_winners"`
	Coverage       []CategoryCoverage `json:"coverage"`
	Gaps           []string           `json:"gaps"`
	Velocity       []MonthVelocity    `json:"velocity"`
	Active         []ActiveTest       `json:"active"`
	Suggestions    []string           `json:"suggestions"`
}

// BuildEndedResult computes the retrospective verdict for one
// completed test. A nil or empty snapshot yields NO DATA.
func BuildEndedResult(exp *domain.Experiment, overview *domain.Snapshot, t domain.Thresholds, now time.Time) EndedResult {
	r := EndedResult{
		ExperimentID: exp.ID,
		Name:         exp.Name,
		Category:     exp.Category(),
		RuntimeDays:  exp.RuntimeDays(now),
		StartMonth:   startMonth(exp),
		Outcome:      OutcomeNoData,
	}
	if overview == nil || overview.Empty() {
		r.UpliftDisplay = format.Lift(nil)
		return r
	}

	primary := overview.PrimaryRevenueMetric()
	if best := pickBestVariant(exp.Variants(), overview, primary); best != nil {
		r.Uplift = overview.UpliftValue(primary, best.ID)
		r.Confidence = overview.Confidence(primary, best.ID)
	}
	r.UpliftDisplay = format.Lift(r.Uplift)

	if r.RuntimeDays < t.MinRuntimeDays || overview.TotalOrders() < t.MinOrders {
		r.Outcome = OutcomeTooEarly
	} else {
		r.Outcome = Classify(r.Confidence, r.Uplift, r.RuntimeDays, t)
	}
	return r
}

// ErrorResult marks a test whose analytics fetch failed.
func ErrorResult(exp *domain.Experiment, now time.Time) EndedResult {
	return EndedResult{
		ExperimentID:  exp.ID,
		Name:          exp.Name,
		Category:      exp.Category(),
		RuntimeDays:   exp.RuntimeDays(now),
		StartMonth:    startMonth(exp),
		Outcome:       OutcomeError,
		UpliftDisplay: format.Lift(nil),
	}
}

// ActiveSummary builds the portfolio line for a running test.
func ActiveSummary(exp *domain.Experiment, now time.Time) ActiveTest {
	return ActiveTest{
		ExperimentID: exp.ID,
		Name:         exp.Name,
		Category:     exp.Category(),
		RuntimeDays:  exp.RuntimeDays(now),
		StartMonth:   startMonth(exp),
	}
}

func startMonth(exp *domain.Experiment) string {
	if exp.StartedAt == nil {
		return ""
	}
	return exp.StartedAt.Format("2006-01")
}

var coverageGapReasons = map[string]string{
	domain.CategoryPricing:  "Pricing tests often have the highest revenue impact per visitor.",
	domain.CategoryShipping: "Shipping is a major checkout friction point, worth testing thresholds.",
	domain.CategoryOffer:    "Offer/discount testing can reveal optimal promotional strategies.",
	domain.CategoryContent:  "Content tests help refine messaging and product presentation.",
}

// BuildPortfolio aggregates ended results and active tests into the
// program scorecard.
func BuildPortfolio(ended []EndedResult, active []ActiveTest, now time.Time) *Portfolio {
	p := &Portfolio{
		GeneratedAt: now,
		TotalTests:  len(ended) + len(active),
		EndedTests:  len(ended),
		ActiveTests: len(active),
		Active:      active,
	}

	var winners []EndedResult
	var runtimeSum, runtimeCount float64
	for _, r := range ended {
		switch r.Outcome {
		case OutcomeWinner:
			p.Winners++
			winners = append(winners, r)
		case OutcomeLoser:
			p.Losers++
		case OutcomeFlat:
			p.Flat++
		case OutcomeTooEarly, OutcomeKeepRunning:
			p.Inconclusive++
		}
		if r.Callable() {
			p.CallableTests++
		}
		if r.RuntimeDays > 0 {
			runtimeSum += float64(r.RuntimeDays)
			runtimeCount++
		}
	}
	if p.CallableTests > 0 {
		p.WinRate = float64(p.Winners) / float64(p.CallableTests) * 100
	}
	if runtimeCount > 0 {
		p.AvgRuntimeDays = runtimeSum / runtimeCount
	}

	sort.SliceStable(winners, func(i, j int) bool {
		return deref(winners[i].Uplift) > deref(winners[j].Uplift)
	})
	if len(winners) > 5 {
		winners = winners[:5]
	}
	p.TopWinners = winners

	p.Velocity, p.TestsPerMonth = monthlyVelocity(ended, active)
	p.Coverage, p.Gaps = categoryCoverage(ended, active)
	p.Suggestions = portfolioSuggestions(p)

	return p
}

func monthlyVelocity(ended []EndedResult, active []ActiveTest) ([]MonthVelocity, float64) {
	counts := make(map[string]int)
	for _, r := range ended {
		if r.StartMonth != "" {
			counts[r.StartMonth]++
		}
	}
	for _, a := range active {
		if a.StartMonth != "" {
			counts[a.StartMonth]++
		}
	}

	months := make([]string, 0, len(counts))
	total := 0
	for m, n := range counts {
		months = append(months, m)
		total += n
	}
	sort.Strings(months)

	velocity := make([]MonthVelocity, 0, len(months))
	for _, m := range months {
		velocity = append(velocity, MonthVelocity{Month: m, Count: counts[m]})
	}

	var perMonth float64
	switch {
	case len(months) >= 2:
		perMonth = float64(total) / float64(len(months))
	case len(months) == 1:
		perMonth = float64(counts[months[0]])
	}
	return velocity, perMonth
}

func categoryCoverage(ended []EndedResult, active []ActiveTest) ([]CategoryCoverage, []string) {
	counts := make(map[string]int)
	for _, r := range ended {
		counts[r.Category]++
	}
	for _, a := range active {
		counts[a.Category]++
	}

	coverage := make([]CategoryCoverage, 0, len(domain.AllCategories))
	var gaps []string
	for _, c := range domain.AllCategories {
		n := counts[c]
		coverage = append(coverage, CategoryCoverage{Category: c, Count: n, Gap: n == 0})
		if n == 0 {
			gaps = append(gaps, c)
		}
	}
	return coverage, gaps
}

func portfolioSuggestions(p *Portfolio) []string {
	var suggestions []string

	for _, gap := range p.Gaps {
		suggestions = append(suggestions, fmt.Sprintf("Try %s testing: %s", gap, coverageGapReasons[gap]))
	}
	if p.WinRate < 30 && p.CallableTests >= 3 {
		suggestions = append(suggestions, fmt.Sprintf("Win rate is low (%.0f%%). Consider testing bolder changes or different levers.", p.WinRate))
	}
	if p.TestsPerMonth < 2 && len(p.Velocity) >= 2 {
		suggestions = append(suggestions, fmt.Sprintf("Testing velocity is low (%.1f/month). Aim for 2-4 tests per month.", p.TestsPerMonth))
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Program is healthy. Keep testing and iterating on winners.")
	}
	return suggestions
}
