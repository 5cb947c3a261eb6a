package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type contextKey string

const (
	txKey       contextKey = "gorm_tx"
	memoryTxKey contextKey = "memory_tx"
)

// TransactionManager manages journal transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// memoryTx buffers writes of the in-memory repositories until commit
type memoryTx struct {
	ops []func()
}

type memoryTransactionManager struct {
	mu sync.Mutex
}

// NewMemoryTransactionManager is used when no database is configured. Writes
// made through the memory repositories inside RunInTx become visible only
// when fn succeeds.
func NewMemoryTransactionManager() TransactionManager {
	return &memoryTransactionManager{}
}

func (t *memoryTransactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	tx := &memoryTx{}
	if err := fn(context.WithValue(ctx, memoryTxKey, tx)); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, op := range tx.ops {
		op()
	}
	return nil
}

// applyOrDefer runs op now, or at commit when ctx carries a memory transaction
func applyOrDefer(ctx context.Context, op func()) {
	if tx, ok := ctx.Value(memoryTxKey).(*memoryTx); ok {
		tx.ops = append(tx.ops, op)
		return
	}
	op()
}
