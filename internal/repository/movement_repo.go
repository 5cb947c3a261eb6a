package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"invexis/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementRepository interface {
	CreateBatch(ctx context.Context, movements []model.StockMovement) error
	ListByItem(ctx context.Context, itemID string) ([]model.StockMovement, error)
	ListBatchNos(ctx context.Context) ([]string, error)
}

type movementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) CreateBatch(ctx context.Context, movements []model.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&movements).Error
}

func (r *movementRepository) ListByItem(ctx context.Context, itemID string) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	if err := GetDB(ctx, r.db).Where("item_id = ?", itemID).Order("created_at asc").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// ListBatchNos returns every journaled batch number. The ledger reserves them
// at startup so a restarted process never reissues one.
func (r *movementRepository) ListBatchNos(ctx context.Context) ([]string, error) {
	var batchNos []string
	if err := GetDB(ctx, r.db).Model(&model.StockMovement{}).Pluck("batch_no", &batchNos).Error; err != nil {
		return nil, err
	}
	return batchNos, nil
}

type memoryMovementRepository struct {
	mu        sync.RWMutex
	movements []model.StockMovement
	batchNos  map[string]struct{}
}

func NewMemoryMovementRepository() MovementRepository {
	return &memoryMovementRepository{batchNos: make(map[string]struct{})}
}

func (r *memoryMovementRepository) CreateBatch(ctx context.Context, movements []model.StockMovement) error {
	r.mu.RLock()
	for _, m := range movements {
		if _, dup := r.batchNos[m.BatchNo]; dup {
			r.mu.RUnlock()
			return fmt.Errorf("movement for batch %s already recorded", m.BatchNo)
		}
	}
	r.mu.RUnlock()

	now := time.Now().UTC()
	stored := make([]model.StockMovement, len(movements))
	for i, m := range movements {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		stored[i] = m
	}

	applyOrDefer(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, m := range stored {
			r.batchNos[m.BatchNo] = struct{}{}
		}
		r.movements = append(r.movements, stored...)
	})
	return nil
}

func (r *memoryMovementRepository) ListByItem(_ context.Context, itemID string) ([]model.StockMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []model.StockMovement{}
	for _, m := range r.movements {
		if m.ItemID == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryMovementRepository) ListBatchNos(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.movements))
	for _, m := range r.movements {
		out = append(out, m.BatchNo)
	}
	return out, nil
}
