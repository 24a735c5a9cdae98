package ports

import (
	"context"

	"github.com/liftwatch/liftwatch/internal/domain"
)

type ReportRepository interface {
	Save(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	List(ctx context.Context, experimentID, kind string, limit int) ([]*domain.Report, error)
}
