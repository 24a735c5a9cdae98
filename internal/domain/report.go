package domain

import (
	"encoding/json"
	"time"
)

// Report kinds persisted by the archive.
const (
	ReportKindVerdict   = "verdict"
	ReportKindImpact    = "impact"
	ReportKindFunnel    = "funnel"
	ReportKindSpotlight = "spotlight"
	ReportKindDebrief   = "debrief"
	ReportKindRollout   = "rollout"
	ReportKindBrief     = "brief"
	ReportKindPortfolio = "portfolio"
)

// Report is one archived analysis result. Payload holds the full
// JSON-serialized analysis structure.
type Report struct {
	ID           string          `json:"id"`
	ExperimentID string          `json:"experiment_id"`
	Kind         string          `json:"kind"`
	Verdict      string          `json:"verdict,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
}
