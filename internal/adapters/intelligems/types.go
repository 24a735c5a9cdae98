package intelligems

import (
	"encoding/json"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

type experiencesListResponse struct {
	ExperiencesList []experienceDTO `json:"experiencesList"`
}

type experienceResponse struct {
	Experience *experienceDTO `json:"experience"`
}

type experienceDTO struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	StartedAt  *int64          `json:"startedAtTs"`
	EndedAt    *int64          `json:"endedAtTs"`
	TestTypes  map[string]bool `json:"testTypes"`
	Variations []variationDTO  `json:"variations"`
}

type variationDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsControl bool   `json:"isControl"`
}

type analyticsResponse struct {
	Metrics []json.RawMessage `json:"metrics"`
}

// metricCell is one metric's stats block inside an analytics row.
type metricCell struct {
	Value  *float64    `json:"value"`
	P2BB   *float64    `json:"p2bb"`
	Uplift *upliftCell `json:"uplift"`
}

type upliftCell struct {
	Value  *float64 `json:"value"`
	CILow  *float64 `json:"ci_low"`
	CIHigh *float64 `json:"ci_high"`
}

func (e *experienceDTO) toDomain() *domain.Experiment {
	exp := &domain.Experiment{
		ID:        e.ID,
		Name:      e.Name,
		Type:      e.Type,
		TestTypes: e.TestTypes,
		StartedAt: msToTime(e.StartedAt),
		EndedAt:   msToTime(e.EndedAt),
	}
	for _, v := range e.Variations {
		exp.Variations = append(exp.Variations, domain.Variation{
			ID:        v.ID,
			Name:      v.Name,
			IsControl: v.IsControl,
		})
	}
	return exp
}

func msToTime(ms *int64) *time.Time {
	if ms == nil || *ms == 0 {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

// decodeRows turns the flat analytics rows into a metric snapshot.
// Each row carries variation_id, an optional audience label, and one
// stats object per metric name.
func decodeRows(raw []json.RawMessage) (*domain.Snapshot, error) {
	var rows []domain.MetricRow
	for _, r := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(r, &fields); err != nil {
			return nil, err
		}

		row := domain.MetricRow{Metrics: make(map[string]domain.MetricValue)}
		if raw, ok := fields["variation_id"]; ok {
			if err := json.Unmarshal(raw, &row.VariationID); err != nil {
				return nil, err
			}
		}
		if raw, ok := fields["audience"]; ok {
			// Segment label, only present in audience views.
			_ = json.Unmarshal(raw, &row.Segment)
		}

		for name, raw := range fields {
			if name == "variation_id" || name == "audience" {
				continue
			}
			var cell metricCell
			if err := json.Unmarshal(raw, &cell); err != nil {
				// Rows can carry scalar bookkeeping fields. Skip
				// anything that is not a stats object.
				continue
			}
			mv := domain.MetricValue{Value: cell.Value, P2BB: cell.P2BB}
			if cell.Uplift != nil {
				mv.Uplift = domain.Uplift{
					Value:  cell.Uplift.Value,
					CILow:  cell.Uplift.CILow,
					CIHigh: cell.Uplift.CIHigh,
				}
			}
			row.Metrics[name] = mv
		}
		rows = append(rows, row)
	}
	return domain.NewSnapshot(rows), nil
}
