package ports

import (
	"context"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// RestroomRepository persists restroom records. It is the record source the
// pin pipeline reads from.
type RestroomRepository interface {
	List(ctx context.Context) ([]domain.RestroomRecord, error)
	GetByID(ctx context.Context, id string) (*domain.RestroomRecord, error)
	// Create stores r and fills in its ID and CreatedAt.
	Create(ctx context.Context, r *domain.RestroomRecord) error
	SetPhotoKey(ctx context.Context, id, key string) error
}
