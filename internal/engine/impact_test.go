package engine

import (
	"errors"
	"testing"

	"github.com/liftwatch/liftwatch/internal/domain"
)

func TestBuildProfitImpact_Winner(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(10)
	// 3650 visitors over 10 days is 365/day, so the annual baseline is
	// exactly 365 * 365 * controlRPV.
	overview := overviewSnapshot(3650, 120, 2.0, 0.10, 0.04, 0.16, 0.85)

	p, err := BuildProfitImpact(exp, overview, th, testNow)
	if err != nil {
		t.Fatalf("BuildProfitImpact() error: %v", err)
	}

	baseline := 365.0 * 365.0 * 2.0
	assertNear(t, "Annual.Expected", baseline*0.10, p.Annual.Expected)
	assertNear(t, "Monthly.Expected", baseline*0.10/12, p.Monthly.Expected)
	if p.Annual.Conservative == nil {
		t.Fatal("expected a conservative annual estimate")
	}
	assertNear(t, "Annual.Conservative", baseline*0.04, *p.Annual.Conservative)
	if p.Annual.Optimistic == nil {
		t.Fatal("expected an optimistic annual estimate")
	}
	assertNear(t, "Annual.Optimistic", baseline*0.16, *p.Annual.Optimistic)

	if p.OpportunityCost == nil {
		t.Fatal("expected an opportunity cost for a positive lift")
	}
	assertNear(t, "OpportunityCost.Daily", baseline*0.10/365, p.OpportunityCost.Daily)
	assertNear(t, "OpportunityCost.Weekly", p.OpportunityCost.Daily*7, p.OpportunityCost.Weekly)

	if p.CACEquivalence == nil {
		t.Fatal("expected a CAC equivalence for a nonzero monthly impact")
	}
	wantCustomers := int64(baseline * 0.10 / 12 / th.AssumedCAC)
	if p.CACEquivalence.MonthlyCustomers != wantCustomers {
		t.Errorf("MonthlyCustomers = %d, expected %d", p.CACEquivalence.MonthlyCustomers, wantCustomers)
	}

	if len(p.Warnings) != 0 {
		t.Errorf("expected no warnings for a confident mature test, got %v", p.Warnings)
	}
	assertContains(t, "summary", p.Summary, "Projected annual impact ranges from")
}

func TestBuildProfitImpact_ConservativeClampsAtZero(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(10)
	overview := overviewSnapshot(3650, 120, 2.0, 0.06, -0.02, 0.14, 0.85)

	p, err := BuildProfitImpact(exp, overview, th, testNow)
	if err != nil {
		t.Fatalf("BuildProfitImpact() error: %v", err)
	}
	if p.Annual.Conservative == nil || *p.Annual.Conservative != 0 {
		t.Errorf("expected conservative estimate clamped to zero, got %v", p.Annual.Conservative)
	}
	assertContains(t, "summary", p.Summary, "conservative estimate is break-even")
}

func TestBuildProfitImpact_Warnings(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(6)
	overview := overviewSnapshot(1200, 40, 2.0, 0.05, 0.01, 0.09, 0.65)

	p, err := BuildProfitImpact(exp, overview, th, testNow)
	if err != nil {
		t.Fatalf("BuildProfitImpact() error: %v", err)
	}
	if len(p.Warnings) != 2 {
		t.Fatalf("expected confidence and runtime warnings, got %v", p.Warnings)
	}
	assertContains(t, "confidence warning", p.Warnings[0], "Confidence (65%) is below 80%")
	assertContains(t, "runtime warning", p.Warnings[1], "only run 6 days")
}

func TestBuildProfitImpact_NegativeUplift(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(15)
	overview := overviewSnapshot(3000, 90, 2.0, -0.08, -0.14, -0.02, 0.06)

	p, err := BuildProfitImpact(exp, overview, th, testNow)
	if err != nil {
		t.Fatalf("BuildProfitImpact() error: %v", err)
	}
	if p.OpportunityCost != nil {
		t.Error("expected no opportunity cost for a negative lift")
	}
	assertContains(t, "summary", p.Summary, "protected you from that loss")
	assertContains(t, "break even", p.BreakEven[0], "No break-even scenario exists")
}

func TestBuildProfitImpact_NoOrders(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(15)
	overview := overviewSnapshot(3000, 0, 2.0, 0.05, 0.01, 0.09, 0.85)

	_, err := BuildProfitImpact(exp, overview, th, testNow)
	if !errors.Is(err, ErrNoOrders) {
		t.Errorf("expected ErrNoOrders, got %v", err)
	}
}

func TestBreakEvenLines(t *testing.T) {
	t.Run("revenue up conversion down", func(t *testing.T) {
		lines := breakEvenLines(fptr(0.08), fptr(-0.03), 0.08, domain.CategoryShipping)
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %v", lines)
		}
		assertContains(t, "divergence", lines[0], "up 8.0% while conversion rate is down 3.0%")
		assertContains(t, "headroom", lines[1], "5.0% of headroom")
		assertContains(t, "tolerance", lines[2], "~8.0% conversion drop")
	})

	t.Run("pricing winner", func(t *testing.T) {
		lines := breakEvenLines(nil, nil, 0.10, domain.CategoryPricing)
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %v", lines)
		}
		assertContains(t, "pricing insight", lines[0], "lose more than 10.0% of your customers")
	})

	t.Run("flat", func(t *testing.T) {
		lines := breakEvenLines(nil, nil, 0, domain.CategoryContent)
		if len(lines) != 1 || lines[0] != "No meaningful difference detected between variants." {
			t.Errorf("unexpected lines: %v", lines)
		}
	})
}
