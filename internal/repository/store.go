package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/entity"
)

// ListFilter narrows List to a category and/or a transaction-date range.
// Zero values mean no constraint. Records without a transaction date never
// match a date bound.
type ListFilter struct {
	Category constants.Category
	FromDate *time.Time
	ToDate   *time.Time
}

// RecordStore persists extracted records. Implementations must return
// copies, so callers can mutate results without affecting stored state.
type RecordStore interface {
	Create(ctx context.Context, rec *entity.Record) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Record, error)
	Update(ctx context.Context, rec *entity.Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*entity.Record, error)
	DeleteAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
