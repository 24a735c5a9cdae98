package engine

import (
	"errors"
	"testing"

	"github.com/liftwatch/liftwatch/internal/domain"
)

func TestBuildVerdict_MissingInputs(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(15)

	t.Run("no control", func(t *testing.T) {
		noControl := testExperiment(15)
		noControl.Variations = noControl.Variations[1:]
		_, err := BuildVerdict(noControl, overviewSnapshot(2000, 60, 2.5, 0.1, 0.04, 0.16, 0.85), nil, th, testNow)
		if !errors.Is(err, ErrNoControl) {
			t.Errorf("expected ErrNoControl, got %v", err)
		}
	})

	t.Run("no variants", func(t *testing.T) {
		controlOnly := testExperiment(15)
		controlOnly.Variations = controlOnly.Variations[:1]
		_, err := BuildVerdict(controlOnly, overviewSnapshot(2000, 60, 2.5, 0.1, 0.04, 0.16, 0.85), nil, th, testNow)
		if !errors.Is(err, ErrNoVariants) {
			t.Errorf("expected ErrNoVariants, got %v", err)
		}
	})

	t.Run("nil snapshot", func(t *testing.T) {
		_, err := BuildVerdict(exp, nil, nil, th, testNow)
		if !errors.Is(err, ErrNoMetrics) {
			t.Errorf("expected ErrNoMetrics, got %v", err)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		_, err := BuildVerdict(exp, domain.NewSnapshot(nil), nil, th, testNow)
		if !errors.Is(err, ErrNoMetrics) {
			t.Errorf("expected ErrNoMetrics, got %v", err)
		}
	})
}

func TestBuildVerdict_MatureWinner(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(15)
	overview := overviewSnapshot(5000, 120, 2.5, 0.10, 0.04, 0.16, 0.85)

	v, err := BuildVerdict(exp, overview, nil, th, testNow)
	if err != nil {
		t.Fatalf("BuildVerdict() error: %v", err)
	}

	if len(v.MaturityIssues) != 0 {
		t.Errorf("expected no maturity issues, got %v", v.MaturityIssues)
	}
	if v.Overall != OutcomeWinner {
		t.Errorf("Overall = %v, expected %v", v.Overall, OutcomeWinner)
	}
	if v.Category != domain.CategoryShipping {
		t.Errorf("Category = %q, expected %q", v.Category, domain.CategoryShipping)
	}
	if v.Visitors != 5000 || v.Orders != 120 {
		t.Errorf("totals = (%d, %d), expected (5000, 120)", v.Visitors, v.Orders)
	}

	best := v.Best()
	if best == nil {
		t.Fatal("expected a best variation")
	}
	if best.Name != "Variant B" {
		t.Errorf("best name = %q, expected %q", best.Name, "Variant B")
	}
	if best.UpliftDisplay != "+10.0%" {
		t.Errorf("uplift display = %q, expected %q", best.UpliftDisplay, "+10.0%")
	}
	if best.ConfidenceDisplay != "85%" {
		t.Errorf("confidence display = %q, expected %q", best.ConfidenceDisplay, "85%")
	}
	assertContains(t, "reasoning", best.Reasoning, "beating control by +10.0%")
	assertContains(t, "risk", best.Risk, "15% chance the control was actually better")
	assertContains(t, "risk CI", best.Risk, "between +4.0% and +16.0%")
	assertContains(t, "next test", v.NextTest, "free-shipping thresholds")
	if v.ETANote != "" {
		t.Errorf("expected no ETA note for a callable winner, got %q", v.ETANote)
	}
}

func TestBuildVerdict_TooEarly(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(3)
	overview := overviewSnapshot(80, 6, 2.5, 0.10, 0.04, 0.16, 0.85)

	v, err := BuildVerdict(exp, overview, nil, th, testNow)
	if err != nil {
		t.Fatalf("BuildVerdict() error: %v", err)
	}

	if v.Overall != OutcomeTooEarly {
		t.Errorf("Overall = %v, expected %v", v.Overall, OutcomeTooEarly)
	}
	if len(v.MaturityIssues) != 3 {
		t.Fatalf("expected 3 maturity issues, got %v", v.MaturityIssues)
	}
	if v.MaturityIssues[0] != "Only 3 days of runtime (minimum 10 days)" {
		t.Errorf("runtime issue = %q", v.MaturityIssues[0])
	}
	if v.ETANote == "" {
		t.Error("expected an ETA note for an immature test")
	}
	assertContains(t, "reasoning", v.Best().Reasoning, "isn't enough data yet")
}

func TestBuildVerdict_RanksWinnerFirst(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(15)
	exp.Variations = append(exp.Variations, domain.Variation{ID: "var2", Name: "Variant C"})

	overview := domain.NewSnapshot([]domain.MetricRow{
		row("ctl", "", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(2000),
			domain.MetricOrders:               metric(60),
			domain.MetricNetRevenuePerVisitor: metric(2.5),
		}),
		row("var", "", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(2000),
			domain.MetricOrders:               metric(40),
			domain.MetricNetRevenuePerVisitor: metricFull(2.1, -0.16, -0.22, -0.10, 0.05),
		}),
		row("var2", "", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(2000),
			domain.MetricOrders:               metric(70),
			domain.MetricNetRevenuePerVisitor: metricFull(2.8, 0.12, 0.05, 0.19, 0.90),
		}),
	})

	v, err := BuildVerdict(exp, overview, nil, th, testNow)
	if err != nil {
		t.Fatalf("BuildVerdict() error: %v", err)
	}

	if v.Overall != OutcomeWinner {
		t.Errorf("Overall = %v, expected %v", v.Overall, OutcomeWinner)
	}
	if v.Best().Name != "Variant C" {
		t.Errorf("best = %q, expected the winning variant first", v.Best().Name)
	}
	if v.Variations[1].Outcome != OutcomeLoser {
		t.Errorf("second variation outcome = %v, expected %v", v.Variations[1].Outcome, OutcomeLoser)
	}
}

func TestBuildVerdict_Divergence(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(15)

	overview := domain.NewSnapshot([]domain.MetricRow{
		row("ctl", "", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(2000),
			domain.MetricOrders:               metric(60),
			domain.MetricNetRevenuePerVisitor: metric(2.5),
			domain.MetricConversionRate:       metric(0.03),
		}),
		row("var", "", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(2000),
			domain.MetricOrders:               metric(55),
			domain.MetricNetRevenuePerVisitor: metricFull(2.7, 0.08, 0.02, 0.14, 0.82),
			domain.MetricConversionRate:       metricFull(0.029, -0.03, -0.06, 0.0, 0.25),
		}),
	})

	v, err := BuildVerdict(exp, overview, nil, th, testNow)
	if err != nil {
		t.Fatalf("BuildVerdict() error: %v", err)
	}
	assertContains(t, "divergence", v.Best().Divergence, "Revenue is UP but conversion is DOWN")
}

func TestDivergenceNote(t *testing.T) {
	th := domain.DefaultThresholds()

	tests := []struct {
		name     string
		rpv      *float64
		cr       *float64
		contains string
	}{
		{"missing signal", nil, fptr(0.05), ""},
		{"aligned", fptr(0.05), fptr(0.04), ""},
		{"conversion inside dead zone", fptr(0.05), fptr(-0.004), ""},
		{"revenue up conversion down", fptr(0.05), fptr(-0.03), "Revenue is UP but conversion is DOWN"},
		{"conversion up revenue down", fptr(-0.04), fptr(0.03), "Conversion is UP but revenue is DOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := divergenceNote(tt.rpv, tt.cr, th)
			if tt.contains == "" {
				if got != "" {
					t.Errorf("expected no divergence note, got %q", got)
				}
				return
			}
			assertContains(t, "note", got, tt.contains)
		})
	}
}

func TestBuildVerdict_SegmentQuickCheck(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(15)
	overview := overviewSnapshot(5000, 120, 2.5, 0.10, 0.04, 0.16, 0.85)

	devices := domain.NewSnapshot([]domain.MetricRow{
		row("ctl", "Desktop", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(1200),
			domain.MetricNetRevenuePerVisitor: metric(2.8),
		}),
		row("var", "Desktop", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(1200),
			domain.MetricNetRevenuePerVisitor: metricFull(3.2, 0.15, 0.08, 0.22, 0.92),
		}),
		row("ctl", "Mobile", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(1300),
			domain.MetricNetRevenuePerVisitor: metric(2.2),
		}),
		row("var", "Mobile", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(1300),
			domain.MetricNetRevenuePerVisitor: metricFull(1.9, -0.14, -0.20, -0.08, 0.04),
		}),
	})

	v, err := BuildVerdict(exp, overview, devices, th, testNow)
	if err != nil {
		t.Fatalf("BuildVerdict() error: %v", err)
	}

	if len(v.Segments) != 2 {
		t.Fatalf("expected 2 segment checks, got %d", len(v.Segments))
	}
	desktop, mobile := v.Segments[0], v.Segments[1]
	if desktop.Segment != "Desktop" || desktop.Outcome != OutcomeWinner {
		t.Errorf("desktop = (%q, %v), expected a winner", desktop.Segment, desktop.Outcome)
	}
	if desktop.Contradiction {
		t.Error("desktop should not contradict the overall winner")
	}
	if mobile.Outcome != OutcomeLoser || !mobile.Contradiction {
		t.Errorf("mobile = (%v, contradiction=%v), expected a contradicting loser", mobile.Outcome, mobile.Contradiction)
	}
	if mobile.Visitors != 1300 {
		t.Errorf("mobile visitors = %d, expected 1300", mobile.Visitors)
	}
}

func TestCogsNote(t *testing.T) {
	t.Run("opposite directions", func(t *testing.T) {
		assertContains(t, "note", cogsNote(fptr(0.06), fptr(-0.02)), "COGS are eating into the gains")
	})
	t.Run("aligned", func(t *testing.T) {
		assertContains(t, "note", cogsNote(fptr(0.06), fptr(0.04)), "COGS aren't distorting the picture")
	})
	t.Run("missing data", func(t *testing.T) {
		if got := cogsNote(nil, fptr(0.04)); got != "" {
			t.Errorf("expected empty note, got %q", got)
		}
	})
}

func TestSuggestNextTest(t *testing.T) {
	if got := suggestNextTest(domain.CategoryPricing, OutcomeKeepRunning); got != "Just wait. Let the test accumulate more data before planning the next move." {
		t.Errorf("unexpected keep-running suggestion: %q", got)
	}
	assertContains(t, "pricing winner", suggestNextTest(domain.CategoryPricing, OutcomeWinner), "price point")
	assertContains(t, "unknown category", suggestNextTest("Other", OutcomeWinner), "different lever")
}
