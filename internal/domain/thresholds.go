package domain

import "fmt"

// Thresholds holds the decision policy constants threaded through every
// analysis. They are fixed for the duration of a run; tests may supply
// alternate values without process-wide side effects.
type Thresholds struct {
	// MinConfidence is the probability-to-beat-baseline floor for
	// calling a winner (and, mirrored, a loser).
	MinConfidence float64
	// NeutralLiftBand is the |uplift| below which a result is
	// effectively flat.
	NeutralLiftBand float64
	// FlatAfterDays is the runtime after which a within-band result
	// is called FLAT instead of KEEP RUNNING.
	FlatAfterDays int
	// Maturity gates: no verdict other than TOO EARLY before these.
	MinRuntimeDays int
	MinOrders      int64
	MinVisitors    int64
	// SignalDeadZone is the |uplift| below which a directional signal
	// counts as flat for divergence and breakpoint detection.
	SignalDeadZone float64
	// SegmentContradictionBand is the |uplift| beyond which a segment
	// moving against the overall result counts as a contradiction.
	SegmentContradictionBand float64
	// AssumedCAC is the customer-acquisition cost used for the
	// marketing-equivalence figure, in currency units.
	AssumedCAC float64
}

// DefaultThresholds returns the standard policy set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence:            0.80,
		NeutralLiftBand:          0.02,
		FlatAfterDays:            21,
		MinRuntimeDays:           10,
		MinOrders:                30,
		MinVisitors:              100,
		SignalDeadZone:           0.005,
		SegmentContradictionBand: 0.02,
		AssumedCAC:               40,
	}
}

// Validate checks that the set is internally consistent.
func (t Thresholds) Validate() error {
	if t.MinConfidence <= 0 || t.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in (0, 1], got %v", t.MinConfidence)
	}
	if t.NeutralLiftBand < 0 || t.NeutralLiftBand >= 1-t.MinConfidence {
		return fmt.Errorf("neutral lift band must be in [0, %v), got %v", 1-t.MinConfidence, t.NeutralLiftBand)
	}
	if t.SignalDeadZone < 0 || t.SignalDeadZone > t.NeutralLiftBand {
		return fmt.Errorf("signal dead zone must be in [0, %v], got %v", t.NeutralLiftBand, t.SignalDeadZone)
	}
	if t.SegmentContradictionBand < 0 {
		return fmt.Errorf("segment contradiction band must be non-negative, got %v", t.SegmentContradictionBand)
	}
	if t.FlatAfterDays < t.MinRuntimeDays {
		return fmt.Errorf("flat-after days %d below minimum runtime %d", t.FlatAfterDays, t.MinRuntimeDays)
	}
	if t.MinRuntimeDays < 0 || t.MinOrders < 0 || t.MinVisitors < 0 {
		return fmt.Errorf("maturity gates must be non-negative")
	}
	if t.AssumedCAC <= 0 {
		return fmt.Errorf("assumed CAC must be positive, got %v", t.AssumedCAC)
	}
	return nil
}
