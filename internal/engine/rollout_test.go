package engine

import (
	"testing"

	"github.com/liftwatch/liftwatch/internal/domain"
)

func TestRolloutFinancials(t *testing.T) {
	// 3650 visitors over 10 days is 365/day, so the annual baseline is
	// 365 * 365 * controlValue.
	baseline := 365.0 * 365.0 * 2.0

	t.Run("positive lift with clear interval", func(t *testing.T) {
		f := rolloutFinancials(3650, 10, fptr(2.0), fptr(0.10), fptr(0.05), fptr(0.20))
		assertNear(t, "expected annual", baseline*0.10, f.ExpectedAnnual)
		assertNear(t, "expected monthly", baseline*0.10/12, f.ExpectedMonthly)
		assertNear(t, "conservative", baseline*0.05, f.ConservativeAnnual)
		if f.OptimisticAnnual == nil {
			t.Fatal("expected an optimistic estimate")
		}
		assertNear(t, "optimistic", baseline*0.20, *f.OptimisticAnnual)
		assertNear(t, "daily cost", baseline*0.10/365, f.DailyCostOfWaiting)
	})

	t.Run("interval crossing zero clamps conservative", func(t *testing.T) {
		f := rolloutFinancials(3650, 10, fptr(2.0), fptr(0.06), fptr(-0.02), fptr(0.14))
		if f.ConservativeAnnual != 0 {
			t.Errorf("conservative = %v, expected 0", f.ConservativeAnnual)
		}
	})

	t.Run("zero runtime", func(t *testing.T) {
		f := rolloutFinancials(3650, 0, fptr(2.0), fptr(0.10), nil, nil)
		if f.ExpectedAnnual != 0 || f.DailyCostOfWaiting != 0 {
			t.Errorf("expected zero projections, got %+v", f)
		}
	})
}

func TestRolloutRecommendation(t *testing.T) {
	brief := func(outcome Outcome, segments ...Segment) *RolloutBrief {
		return &RolloutBrief{Outcome: outcome, Segments: segments}
	}

	tests := []struct {
		name   string
		brief  *RolloutBrief
		action string
		reason string
	}{
		{
			name:   "clean winner",
			brief:  brief(OutcomeWinner),
			action: RolloutGo,
			reason: "Strong signal across the board",
		},
		{
			name: "winner with contradicting loser",
			brief: brief(OutcomeWinner,
				Segment{Name: "Mobile", Outcome: OutcomeLoser, Contradiction: true}),
			action: RolloutCaution,
			reason: "Mobile underperforming",
		},
		{
			name:   "loser",
			brief:  brief(OutcomeLoser),
			action: RolloutEnd,
			reason: "hurting performance",
		},
		{
			name:   "flat",
			brief:  brief(OutcomeFlat),
			action: RolloutEndPivot,
			reason: "No meaningful impact",
		},
		{
			name:   "keep running",
			brief:  brief(OutcomeKeepRunning),
			action: RolloutKeepRunning,
			reason: "not conclusive",
		},
		{
			name:   "too early",
			brief:  brief(OutcomeTooEarly),
			action: RolloutWait,
			reason: "Insufficient data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, reason := rolloutRecommendation(tt.brief)
			if action != tt.action {
				t.Errorf("action = %q, expected %q", action, tt.action)
			}
			assertContains(t, "reason", reason, tt.reason)
		})
	}
}

func TestRolloutNextSteps(t *testing.T) {
	t.Run("winner with contradictions", func(t *testing.T) {
		steps := rolloutNextSteps(OutcomeWinner, true)
		if len(steps) != 3 {
			t.Fatalf("expected 3 steps, got %v", steps)
		}
		assertContains(t, "step", steps[1], "segment contradictions")
	})

	t.Run("flat", func(t *testing.T) {
		steps := rolloutNextSteps(OutcomeFlat, false)
		if len(steps) != 2 {
			t.Fatalf("expected 2 steps, got %v", steps)
		}
		if steps[0] != "End the test. No action needed on the variant." {
			t.Errorf("step 0 = %q", steps[0])
		}
		assertContains(t, "step 1", steps[1], "different lever")
	})

	t.Run("inconclusive", func(t *testing.T) {
		steps := rolloutNextSteps(OutcomeKeepRunning, false)
		if len(steps) != 2 {
			t.Fatalf("expected 2 steps, got %v", steps)
		}
		assertContains(t, "step", steps[0], "continue running")
	})
}

func TestBuildRollout(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(15)
	overview := overviewSnapshot(5000, 120, 2.5, 0.10, 0.04, 0.16, 0.88)

	r, err := BuildRollout(exp, overview, nil, th, testNow)
	if err != nil {
		t.Fatalf("BuildRollout() error: %v", err)
	}

	if r.Outcome != OutcomeWinner {
		t.Errorf("outcome = %v, expected %v", r.Outcome, OutcomeWinner)
	}
	if r.Action != RolloutGo {
		t.Errorf("action = %q, expected %q", r.Action, RolloutGo)
	}
	if r.HasContradictions() {
		t.Error("expected no contradictions without segment data")
	}
	assertContains(t, "summary", r.ExecutiveSummary, "is a winner")
	assertContains(t, "summary category", r.ExecutiveSummary, "shipping test")
	assertContains(t, "summary impact", r.ExecutiveSummary, "Recommend rolling out immediately")
	if r.Financials.ExpectedAnnual <= 0 {
		t.Errorf("expected a positive annual projection, got %v", r.Financials.ExpectedAnnual)
	}
	if len(r.NextSteps) != 2 {
		t.Errorf("expected 2 next steps for a clean winner, got %v", r.NextSteps)
	}
}

func TestBuildRollout_TooEarly(t *testing.T) {
	th := domain.DefaultThresholds()
	exp := testExperiment(4)
	overview := overviewSnapshot(600, 12, 2.5, 0.10, 0.04, 0.16, 0.88)

	r, err := BuildRollout(exp, overview, nil, th, testNow)
	if err != nil {
		t.Fatalf("BuildRollout() error: %v", err)
	}
	if r.Outcome != OutcomeTooEarly {
		t.Errorf("outcome = %v, expected %v", r.Outcome, OutcomeTooEarly)
	}
	if r.Action != RolloutWait {
		t.Errorf("action = %q, expected %q", r.Action, RolloutWait)
	}
	assertContains(t, "summary", r.ExecutiveSummary, "too early to evaluate")
}
