package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

type mockReportRepo struct {
	reports []*domain.Report
	listErr error
}

func (m *mockReportRepo) Save(ctx context.Context, report *domain.Report) error {
	m.reports = append(m.reports, report)
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("report %s not found", id)
}

func (m *mockReportRepo) List(ctx context.Context, experimentID, kind string, limit int) ([]*domain.Report, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*domain.Report
	for _, r := range m.reports {
		if experimentID != "" && r.ExperimentID != experimentID {
			continue
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testServer(repo *mockReportRepo) *Server {
	return NewServer(8080, repo)
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(&mockReportRepo{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestListReports(t *testing.T) {
	repo := &mockReportRepo{reports: []*domain.Report{
		{ID: "r1", ExperimentID: "exp-1", Kind: domain.ReportKindVerdict, CreatedAt: time.Now()},
		{ID: "r2", ExperimentID: "exp-2", Kind: domain.ReportKindImpact, CreatedAt: time.Now()},
	}}
	s := testServer(repo)

	t.Run("all reports", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var body struct {
			Reports []*domain.Report `json:"reports"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Reports) != 2 {
			t.Errorf("reports = %d, expected 2", len(body.Reports))
		}
	})

	t.Run("filtered by experiment", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports?experiment_id=exp-1", nil))

		var body struct {
			Reports []*domain.Report `json:"reports"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Reports) != 1 || body.Reports[0].ID != "r1" {
			t.Errorf("reports = %+v", body.Reports)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports?limit=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, expected 400", rec.Code)
		}
	})

	t.Run("non-positive limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports?limit=0", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, expected 400", rec.Code)
		}
	})
}

func TestGetReport(t *testing.T) {
	repo := &mockReportRepo{reports: []*domain.Report{
		{ID: "r1", ExperimentID: "exp-1", Kind: domain.ReportKindVerdict, Payload: []byte(`{"overall":"WINNER"}`), CreatedAt: time.Now()},
	}}
	s := testServer(repo)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/r1", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var report domain.Report
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if report.ID != "r1" {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, expected 404", rec.Code)
		}
	})
}
