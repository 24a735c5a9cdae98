package turso_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/liftwatch/liftwatch/internal/adapters/turso"
	"github.com/liftwatch/liftwatch/internal/domain"
)

func testRepo(t *testing.T) *turso.ReportRepository {
	t.Helper()

	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := turso.NewReportRepository(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return repo
}

func sampleReport(id, experimentID, kind string, createdAt time.Time) *domain.Report {
	return &domain.Report{
		ID:           id,
		ExperimentID: experimentID,
		Kind:         kind,
		Verdict:      "WINNER",
		Payload:      []byte(`{"overall":"WINNER"}`),
		CreatedAt:    createdAt,
	}
}

func TestReportRepository_SaveAndGet(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	saved := sampleReport("rep-get-1", "exp-1", domain.ReportKindVerdict, created)
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := repo.GetByID(ctx, "rep-get-1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.ExperimentID != "exp-1" || got.Kind != domain.ReportKindVerdict || got.Verdict != "WINNER" {
		t.Errorf("report = %+v", got)
	}
	if string(got.Payload) != `{"overall":"WINNER"}` {
		t.Errorf("payload = %s", got.Payload)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, expected %v", got.CreatedAt, created)
	}
}

func TestReportRepository_GetMissing(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.GetByID(context.Background(), "rep-does-not-exist")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestReportRepository_List(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	reports := []*domain.Report{
		sampleReport("rep-list-1", "exp-list-a", domain.ReportKindVerdict, base),
		sampleReport("rep-list-2", "exp-list-a", domain.ReportKindImpact, base.Add(time.Hour)),
		sampleReport("rep-list-3", "exp-list-b", domain.ReportKindVerdict, base.Add(2*time.Hour)),
	}
	for _, r := range reports {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("Save(%s) error: %v", r.ID, err)
		}
	}

	t.Run("filter by experiment", func(t *testing.T) {
		got, err := repo.List(ctx, "exp-list-a", "", 10)
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 reports, got %d", len(got))
		}
		// Newest first.
		if got[0].ID != "rep-list-2" || got[1].ID != "rep-list-1" {
			t.Errorf("order = (%s, %s)", got[0].ID, got[1].ID)
		}
	})

	t.Run("filter by experiment and kind", func(t *testing.T) {
		got, err := repo.List(ctx, "exp-list-a", domain.ReportKindVerdict, 10)
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "rep-list-1" {
			t.Errorf("reports = %v", got)
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := repo.List(ctx, "exp-list-a", "", 1)
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "rep-list-2" {
			t.Errorf("expected only the newest report, got %v", got)
		}
	})
}
