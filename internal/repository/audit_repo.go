package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"invexis/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

type memoryAuditRepository struct {
	mu   sync.RWMutex
	logs []model.AuditLog // newest first
}

func NewMemoryAuditRepository() AuditRepository {
	return &memoryAuditRepository{}
}

func (r *memoryAuditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	stored := *entry
	applyOrDefer(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.logs = slices.Insert(r.logs, 0, stored)
	})
	return nil
}

func (r *memoryAuditRepository) List(_ context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := int64(len(r.logs))
	offset := (page - 1) * limit
	if offset >= len(r.logs) {
		return []model.AuditLog{}, total, nil
	}
	end := min(offset+limit, len(r.logs))
	return slices.Clone(r.logs[offset:end]), total, nil
}
