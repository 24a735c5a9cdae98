package domain

// Metric names exposed by the analytics API.
const (
	MetricNetRevenuePerVisitor  = "net_revenue_per_visitor"
	MetricGrossProfitPerVisitor = "gross_profit_per_visitor"
	MetricConversionRate        = "conversion_rate"
	MetricNetRevenuePerOrder    = "net_revenue_per_order"
	MetricVisitors              = "n_visitors"
	MetricOrders                = "n_orders"
	MetricPctRevenueWithCOGS    = "pct_revenue_with_cogs"
	MetricAddToCartRate         = "add_to_cart_rate"
	MetricCheckoutBeginRate     = "checkout_begin_rate"
	MetricCheckoutContactRate   = "checkout_enter_contact_info_rate"
	MetricCheckoutAddressRate   = "checkout_address_submitted_rate"
)

// MetricLabels maps metric names to display names.
var MetricLabels = map[string]string{
	MetricNetRevenuePerVisitor:  "Revenue / Visitor",
	MetricGrossProfitPerVisitor: "Profit / Visitor",
	MetricConversionRate:        "Conversion Rate",
	MetricNetRevenuePerOrder:    "AOV",
	MetricVisitors:              "Visitors",
	MetricOrders:                "Orders",
	MetricAddToCartRate:         "Add to Cart Rate",
	MetricCheckoutBeginRate:     "Checkout Rate",
}

// MetricLabel returns the display name for a metric, falling back to
// the raw metric name.
func MetricLabel(metric string) string {
	if label, ok := MetricLabels[metric]; ok {
		return label
	}
	return metric
}

// FunnelStage pairs a funnel metric with its display label.
type FunnelStage struct {
	Metric string
	Label  string
}

// FunnelStages lists the funnel metrics in visit order.
var FunnelStages = []FunnelStage{
	{MetricAddToCartRate, "Add to Cart"},
	{MetricCheckoutBeginRate, "Begin Checkout"},
	{MetricCheckoutContactRate, "Enter Contact Info"},
	{MetricCheckoutAddressRate, "Submit Address"},
	{MetricConversionRate, "Purchase"},
}

// SegmentDimension pairs an audience key with its display label.
type SegmentDimension struct {
	Key   string
	Label string
}

// SegmentDimensions lists the audience breakdowns used by segment
// analyses, in fetch order.
var SegmentDimensions = []SegmentDimension{
	{"device_type", "Device"},
	{"visitor_type", "Visitor Type"},
	{"source_channel", "Traffic Source"},
}

// Uplift is the relative difference vs control, with its confidence
// interval bounds. All fields are nil when the platform has not yet
// computed them.
type Uplift struct {
	Value  *float64 `json:"value"`
	CILow  *float64 `json:"ci_low"`
	CIHigh *float64 `json:"ci_high"`
}

// MetricValue carries one metric's observed value, uplift vs control
// and probability-to-beat-baseline for a single variation.
type MetricValue struct {
	Value  *float64 `json:"value"`
	Uplift Uplift   `json:"uplift"`
	P2BB   *float64 `json:"p2bb"`
}

// MetricRow holds all metrics for one (variation, segment) pair.
// Segment is empty for overview snapshots.
type MetricRow struct {
	VariationID string                 `json:"variation_id"`
	Segment     string                 `json:"segment,omitempty"`
	Metrics     map[string]MetricValue `json:"metrics"`
}

// Snapshot is an indexed view over the metric rows of one analytics
// response. Lookups are by variation ID; the first row per variation
// wins, which matters only for snapshots that still mix segments
// (split those with SegmentGroups first).
type Snapshot struct {
	rows    []MetricRow
	byVarID map[string]int
}

// NewSnapshot builds the variation index over the given rows.
func NewSnapshot(rows []MetricRow) *Snapshot {
	s := &Snapshot{rows: rows, byVarID: make(map[string]int, len(rows))}
	for i, r := range rows {
		if _, seen := s.byVarID[r.VariationID]; !seen {
			s.byVarID[r.VariationID] = i
		}
	}
	return s
}

// Rows returns the underlying rows in their original order.
func (s *Snapshot) Rows() []MetricRow {
	return s.rows
}

// Empty reports whether the snapshot has no rows.
func (s *Snapshot) Empty() bool {
	return len(s.rows) == 0
}

func (s *Snapshot) metric(metric, variationID string) (MetricValue, bool) {
	i, ok := s.byVarID[variationID]
	if !ok {
		return MetricValue{}, false
	}
	mv, ok := s.rows[i].Metrics[metric]
	return mv, ok
}

// Value returns the raw value of a metric for a variation, or nil.
func (s *Snapshot) Value(metric, variationID string) *float64 {
	mv, ok := s.metric(metric, variationID)
	if !ok {
		return nil
	}
	return mv.Value
}

// UpliftValue returns the uplift vs control for a variation, or nil.
func (s *Snapshot) UpliftValue(metric, variationID string) *float64 {
	mv, ok := s.metric(metric, variationID)
	if !ok {
		return nil
	}
	return mv.Uplift.Value
}

// Confidence returns the probability-to-beat-baseline, or nil when the
// platform has not computed it yet.
func (s *Snapshot) Confidence(metric, variationID string) *float64 {
	mv, ok := s.metric(metric, variationID)
	if !ok {
		return nil
	}
	return mv.P2BB
}

// ConfidenceInterval returns the uplift CI bounds; either may be nil.
func (s *Snapshot) ConfidenceInterval(metric, variationID string) (low, high *float64) {
	mv, ok := s.metric(metric, variationID)
	if !ok {
		return nil, nil
	}
	return mv.Uplift.CILow, mv.Uplift.CIHigh
}

func (s *Snapshot) sumMetric(metric string) int64 {
	var total float64
	for _, r := range s.rows {
		if mv, ok := r.Metrics[metric]; ok && mv.Value != nil {
			total += *mv.Value
		}
	}
	return int64(total)
}

// TotalVisitors sums visitors across all rows; missing values count as
// zero.
func (s *Snapshot) TotalVisitors() int64 {
	return s.sumMetric(MetricVisitors)
}

// TotalOrders sums orders across all rows.
func (s *Snapshot) TotalOrders() int64 {
	return s.sumMetric(MetricOrders)
}

// VariationVisitors returns the visitor count for one variation.
func (s *Snapshot) VariationVisitors(variationID string) int64 {
	if v := s.Value(MetricVisitors, variationID); v != nil {
		return int64(*v)
	}
	return 0
}

// VariationOrders returns the order count for one variation.
func (s *Snapshot) VariationOrders(variationID string) int64 {
	if v := s.Value(MetricOrders, variationID); v != nil {
		return int64(*v)
	}
	return 0
}

// HasCostData reports whether COGS data is configured. Gross profit
// metrics are only meaningful when some revenue carries cost data.
func (s *Snapshot) HasCostData() bool {
	for _, r := range s.rows {
		if mv, ok := r.Metrics[MetricPctRevenueWithCOGS]; ok && mv.Value != nil && *mv.Value > 0 {
			return true
		}
	}
	return false
}

// PrimaryRevenueMetric selects gross profit per visitor when COGS data
// exists, net revenue per visitor otherwise. The selection must be made
// once per analysis run and passed down.
func (s *Snapshot) PrimaryRevenueMetric() string {
	if s.HasCostData() {
		return MetricGrossProfitPerVisitor
	}
	return MetricNetRevenuePerVisitor
}

// SegmentGroup is one segment's slice of an audience snapshot.
type SegmentGroup struct {
	Label    string
	Snapshot *Snapshot
}

// SegmentGroups splits an audience snapshot by segment label,
// preserving first-seen order. Rows without a label group under
// "Unknown".
func (s *Snapshot) SegmentGroups() []SegmentGroup {
	var order []string
	grouped := make(map[string][]MetricRow)
	for _, r := range s.rows {
		label := r.Segment
		if label == "" {
			label = "Unknown"
		}
		if _, seen := grouped[label]; !seen {
			order = append(order, label)
		}
		grouped[label] = append(grouped[label], r)
	}
	out := make([]SegmentGroup, 0, len(order))
	for _, label := range order {
		out = append(out, SegmentGroup{Label: label, Snapshot: NewSnapshot(grouped[label])})
	}
	return out
}
