package domain

import "testing"

func f(v float64) *float64 {
	return &v
}

func sampleRows() []MetricRow {
	return []MetricRow{
		{
			VariationID: "ctl",
			Metrics: map[string]MetricValue{
				MetricVisitors:             {Value: f(1200)},
				MetricOrders:               {Value: f(40)},
				MetricNetRevenuePerVisitor: {Value: f(2.5)},
			},
		},
		{
			VariationID: "var",
			Metrics: map[string]MetricValue{
				MetricVisitors: {Value: f(1300)},
				MetricOrders:   {Value: f(45)},
				MetricNetRevenuePerVisitor: {
					Value:  f(2.75),
					P2BB:   f(0.85),
					Uplift: Uplift{Value: f(0.10), CILow: f(0.04), CIHigh: f(0.16)},
				},
			},
		},
	}
}

func TestSnapshot_Lookups(t *testing.T) {
	s := NewSnapshot(sampleRows())

	if s.Empty() {
		t.Fatal("snapshot should not be empty")
	}
	if v := s.Value(MetricNetRevenuePerVisitor, "ctl"); v == nil || *v != 2.5 {
		t.Errorf("Value(ctl) = %v", v)
	}
	if u := s.UpliftValue(MetricNetRevenuePerVisitor, "var"); u == nil || *u != 0.10 {
		t.Errorf("UpliftValue(var) = %v", u)
	}
	if p := s.Confidence(MetricNetRevenuePerVisitor, "var"); p == nil || *p != 0.85 {
		t.Errorf("Confidence(var) = %v", p)
	}
	low, high := s.ConfidenceInterval(MetricNetRevenuePerVisitor, "var")
	if low == nil || *low != 0.04 || high == nil || *high != 0.16 {
		t.Errorf("ConfidenceInterval(var) = (%v, %v)", low, high)
	}

	if v := s.Value(MetricNetRevenuePerVisitor, "missing"); v != nil {
		t.Errorf("Value(missing) = %v, expected nil", v)
	}
	if u := s.UpliftValue(MetricConversionRate, "var"); u != nil {
		t.Errorf("UpliftValue for absent metric = %v, expected nil", u)
	}
}

func TestSnapshot_Totals(t *testing.T) {
	s := NewSnapshot(sampleRows())

	if got := s.TotalVisitors(); got != 2500 {
		t.Errorf("TotalVisitors() = %d, expected 2500", got)
	}
	if got := s.TotalOrders(); got != 85 {
		t.Errorf("TotalOrders() = %d, expected 85", got)
	}
	if got := s.VariationVisitors("var"); got != 1300 {
		t.Errorf("VariationVisitors(var) = %d, expected 1300", got)
	}
	if got := s.VariationOrders("ctl"); got != 40 {
		t.Errorf("VariationOrders(ctl) = %d, expected 40", got)
	}
	if got := s.VariationVisitors("missing"); got != 0 {
		t.Errorf("VariationVisitors(missing) = %d, expected 0", got)
	}
}

func TestSnapshot_FirstRowWins(t *testing.T) {
	s := NewSnapshot([]MetricRow{
		{VariationID: "var", Metrics: map[string]MetricValue{MetricVisitors: {Value: f(100)}}},
		{VariationID: "var", Metrics: map[string]MetricValue{MetricVisitors: {Value: f(999)}}},
	})
	if got := s.VariationVisitors("var"); got != 100 {
		t.Errorf("VariationVisitors(var) = %d, expected the first row to win", got)
	}
}

func TestSnapshot_PrimaryRevenueMetric(t *testing.T) {
	t.Run("without cost data", func(t *testing.T) {
		s := NewSnapshot(sampleRows())
		if s.HasCostData() {
			t.Error("HasCostData() = true without COGS")
		}
		if got := s.PrimaryRevenueMetric(); got != MetricNetRevenuePerVisitor {
			t.Errorf("PrimaryRevenueMetric() = %q", got)
		}
	})

	t.Run("with cost data", func(t *testing.T) {
		rows := sampleRows()
		rows[0].Metrics[MetricPctRevenueWithCOGS] = MetricValue{Value: f(0.8)}
		s := NewSnapshot(rows)
		if !s.HasCostData() {
			t.Error("HasCostData() = false with COGS coverage")
		}
		if got := s.PrimaryRevenueMetric(); got != MetricGrossProfitPerVisitor {
			t.Errorf("PrimaryRevenueMetric() = %q", got)
		}
	})

	t.Run("zero COGS coverage does not count", func(t *testing.T) {
		rows := sampleRows()
		rows[0].Metrics[MetricPctRevenueWithCOGS] = MetricValue{Value: f(0)}
		if NewSnapshot(rows).HasCostData() {
			t.Error("HasCostData() = true with zero coverage")
		}
	})
}

func TestSnapshot_SegmentGroups(t *testing.T) {
	s := NewSnapshot([]MetricRow{
		{VariationID: "ctl", Segment: "Desktop", Metrics: map[string]MetricValue{MetricVisitors: {Value: f(500)}}},
		{VariationID: "var", Segment: "Desktop", Metrics: map[string]MetricValue{MetricVisitors: {Value: f(520)}}},
		{VariationID: "ctl", Segment: "Mobile", Metrics: map[string]MetricValue{MetricVisitors: {Value: f(700)}}},
		{VariationID: "var", Segment: "", Metrics: map[string]MetricValue{MetricVisitors: {Value: f(10)}}},
	})

	groups := s.SegmentGroups()
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].Label != "Desktop" || groups[1].Label != "Mobile" {
		t.Errorf("group order = (%q, %q), expected first-seen order", groups[0].Label, groups[1].Label)
	}
	if groups[2].Label != "Unknown" {
		t.Errorf("unlabeled group = %q, expected Unknown", groups[2].Label)
	}
	if got := groups[0].Snapshot.TotalVisitors(); got != 1020 {
		t.Errorf("Desktop group visitors = %d, expected 1020", got)
	}
	if got := groups[0].Snapshot.VariationVisitors("var"); got != 520 {
		t.Errorf("Desktop group variant visitors = %d, expected 520", got)
	}
}

func TestMetricLabel(t *testing.T) {
	if got := MetricLabel(MetricNetRevenuePerVisitor); got != "Revenue / Visitor" {
		t.Errorf("MetricLabel = %q", got)
	}
	if got := MetricLabel("custom_metric"); got != "custom_metric" {
		t.Errorf("MetricLabel fallback = %q", got)
	}
}
