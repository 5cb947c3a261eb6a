package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"invexis/internal/ledger"
	"invexis/internal/metrics"
	"invexis/internal/model"
	"invexis/internal/repository"
	ws "invexis/internal/websocket"
	"invexis/pkg/logger"
	"invexis/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type AddItemRequest struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
	Expiry   string `json:"expiry"` // YYYY-MM-DD
}

type StockInRequest struct {
	Supplier string             `json:"supplier"`
	Shift    string             `json:"shift" binding:"omitempty,oneof=Morning Evening Night"`
	Rows     []model.StockInRow `json:"rows" binding:"required,min=1"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=fresh expiring expired"`
}

type StockInResponse struct {
	SubmissionID  string            `json:"submission_id"`
	Items         []model.StockItem `json:"items"`
	BatchNos      []string          `json:"batch_nos"`
	EstimatedCost decimal.Decimal   `json:"estimated_cost"`
}

// Websocket event names
const (
	EventItemAdded     = "ITEM_ADDED"
	EventStockIn       = "STOCK_IN"
	EventStatusUpdated = "STATUS_UPDATED"
	EventScanCompleted = "SCAN_COMPLETED"
)

// Publisher fans inventory events out to live clients
type Publisher interface {
	Publish(event ws.Event)
}

type InventoryService interface {
	ListItems(ctx context.Context, params pagination.Params, search string) ([]model.StockItem, int64, error)
	GetItem(ctx context.Context, id string) (model.StockItem, error)
	ListMovements(ctx context.Context, id string) ([]model.StockMovement, error)
	AddItem(ctx context.Context, req AddItemRequest) (model.StockItem, error)
	StockIn(ctx context.Context, req StockInRequest) (StockInResponse, error)
	ReceiveRows(ctx context.Context, rows []model.StockInRow, supplier, source string) (StockInResponse, error)
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (model.StockItem, error)
}

type inventoryService struct {
	ledger       *ledger.Ledger
	auditRepo    repository.AuditRepository
	movementRepo repository.MovementRepository
	txManager    repository.TransactionManager
	hub          Publisher
	metrics      *metrics.Metrics
}

func NewInventoryService(
	l *ledger.Ledger,
	auditRepo repository.AuditRepository,
	movementRepo repository.MovementRepository,
	txManager repository.TransactionManager,
	hub Publisher,
	m *metrics.Metrics,
) InventoryService {
	m.ItemsTracked.Set(float64(len(l.Items())))
	return &inventoryService{
		ledger:       l,
		auditRepo:    auditRepo,
		movementRepo: movementRepo,
		txManager:    txManager,
		hub:          hub,
		metrics:      m,
	}
}

func (s *inventoryService) ListItems(ctx context.Context, params pagination.Params, search string) ([]model.StockItem, int64, error) {
	items := s.ledger.Items()

	if q := strings.ToLower(strings.TrimSpace(search)); q != "" {
		filtered := items[:0]
		for _, it := range items {
			if strings.Contains(strings.ToLower(it.Name), q) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	return pagination.Slice(items, params), int64(len(items)), nil
}

func (s *inventoryService) GetItem(ctx context.Context, id string) (model.StockItem, error) {
	return s.ledger.Get(id)
}

func (s *inventoryService) ListMovements(ctx context.Context, id string) ([]model.StockMovement, error) {
	if _, err := s.ledger.Get(id); err != nil {
		return nil, err
	}
	movements, err := s.movementRepo.ListByItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock movements: %w", err)
	}
	return movements, nil
}

func (s *inventoryService) AddItem(ctx context.Context, req AddItemRequest) (model.StockItem, error) {
	entry := model.ManualEntry(req)

	hook := s.journal(ctx, model.ActionAddItem, model.SourceManual, func(changes []ledger.ItemChange) (string, string, interface{}) {
		it := changes[0].Item
		return it.ID, it.Name, map[string]interface{}{
			"request":  req,
			"created":  changes[0].Created,
			"batch_no": changes[0].Added[0].BatchNo,
		}
	})

	change, err := s.ledger.AddManual(entry, hook)
	if err != nil {
		s.reject("add_item", err)
		return model.StockItem{}, err
	}

	s.committed(ctx, EventItemAdded, model.SourceManual, []ledger.ItemChange{change})
	logger.Info(ctx).
		Str("item_id", change.Item.ID).
		Str("item", change.Item.Name).
		Bool("created", change.Created).
		Str("batch_no", change.Added[0].BatchNo).
		Msg("Manual stock entry recorded")
	return change.Item, nil
}

func (s *inventoryService) StockIn(ctx context.Context, req StockInRequest) (StockInResponse, error) {
	return s.receive(ctx, req.Rows, req.Supplier, model.SourceStockIn, req.Shift)
}

// ReceiveRows groups and merges one stock-in submission atomically
func (s *inventoryService) ReceiveRows(ctx context.Context, rows []model.StockInRow, supplier, source string) (StockInResponse, error) {
	return s.receive(ctx, rows, supplier, source, "")
}

// receive is ReceiveRows plus the receiving shift, kept in the audit details
func (s *inventoryService) receive(ctx context.Context, rows []model.StockInRow, supplier, source, shift string) (StockInResponse, error) {
	submissionID := uuid.NewString()
	action := model.ActionStockIn
	if source == model.SourceBillScan {
		action = model.ActionBillScanIn
	}

	hook := s.journal(ctx, action, source, func(changes []ledger.ItemChange) (string, string, interface{}) {
		type itemAudit struct {
			ItemID   string   `json:"item_id"`
			Name     string   `json:"name"`
			Created  bool     `json:"created"`
			BatchNos []string `json:"batch_nos"`
		}
		names := make([]string, 0, len(changes))
		audited := make([]itemAudit, 0, len(changes))
		for _, c := range changes {
			names = append(names, c.Item.Name)
			audited = append(audited, itemAudit{ItemID: c.Item.ID, Name: c.Item.Name, Created: c.Created, BatchNos: batchNos(c.Added)})
		}
		details := map[string]interface{}{
			"supplier": supplier,
			"source":   source,
			"rows":     len(rows),
			"items":    audited,
		}
		if shift != "" {
			details["shift"] = shift
		}
		return submissionID, strings.Join(names, ", "), details
	})

	res, err := s.ledger.StockIn(rows, supplier, hook)
	if err != nil {
		s.reject(strings.ToLower(source), err)
		return StockInResponse{}, err
	}

	s.committed(ctx, EventStockIn, source, res.Changes)

	resp := StockInResponse{
		SubmissionID:  submissionID,
		Items:         make([]model.StockItem, 0, len(res.Changes)),
		EstimatedCost: res.EstimatedCost,
	}
	for _, c := range res.Changes {
		resp.Items = append(resp.Items, c.Item)
		resp.BatchNos = append(resp.BatchNos, batchNos(c.Added)...)
	}

	logger.Info(ctx).
		Str("submission_id", submissionID).
		Str("source", source).
		Str("shift", shift).
		Int("items", len(resp.Items)).
		Int("batches", len(resp.BatchNos)).
		Str("estimated_cost", res.EstimatedCost.StringFixed(2)).
		Msg("Stock-in committed")
	return resp, nil
}

func (s *inventoryService) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (model.StockItem, error) {
	hook := s.journal(ctx, model.ActionUpdateStatus, "", func(changes []ledger.ItemChange) (string, string, interface{}) {
		it := changes[0].Item
		return it.ID, it.Name, map[string]interface{}{"status": req.Status}
	})

	item, err := s.ledger.SetStatus(id, req.Status, hook)
	if err != nil {
		s.reject("update_status", err)
		return model.StockItem{}, err
	}

	s.hub.Publish(ws.Event{Event: EventStatusUpdated, Data: item})
	return item, nil
}

// auditFunc describes the audit row of a mutation from its changes
type auditFunc func(changes []ledger.ItemChange) (entityID, entityName string, details interface{})

// journal returns the commit hook that records the mutation. It runs before
// the ledger swaps state in, so a failed write keeps the ledger unchanged.
func (s *inventoryService) journal(ctx context.Context, action, source string, describe auditFunc) ledger.CommitHook {
	return func(changes []ledger.ItemChange) error {
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if source != "" {
				var movements []model.StockMovement
				for _, c := range changes {
					for _, b := range c.Added {
						movements = append(movements, model.StockMovement{
							ItemID:   c.Item.ID,
							ItemName: c.Item.Name,
							BatchNo:  b.BatchNo,
							Quantity: b.Qty,
							Unit:     c.Item.Unit,
							Procured: b.Procured.Time(),
							Expires:  b.Expires.Ptr(),
							Supplier: b.Supplier,
							Source:   source,
						})
					}
				}
				if err := s.movementRepo.CreateBatch(txCtx, movements); err != nil {
					return fmt.Errorf("failed to record stock movements: %w", err)
				}
			}

			entityID, entityName, details := describe(changes)
			payload, err := json.Marshal(details)
			if err != nil {
				return fmt.Errorf("failed to encode audit details: %w", err)
			}
			audit := &model.AuditLog{
				Action:     action,
				EntityID:   entityID,
				EntityName: entityName,
				Details:    string(payload),
			}
			if err := s.auditRepo.Log(txCtx, audit); err != nil {
				return fmt.Errorf("failed to write audit log: %w", err)
			}
			return nil
		})
	}
}

func (s *inventoryService) committed(ctx context.Context, event, source string, changes []ledger.ItemChange) {
	added := 0
	items := make([]model.StockItem, 0, len(changes))
	for _, c := range changes {
		added += len(c.Added)
		items = append(items, c.Item)
	}
	s.metrics.BatchesReceived.WithLabelValues(source).Add(float64(added))
	s.metrics.ItemsTracked.Set(float64(len(s.ledger.Items())))
	s.hub.Publish(ws.Event{Event: event, Data: items})
}

func (s *inventoryService) reject(operation string, err error) {
	reason := "journal"
	switch {
	case errors.Is(err, ledger.ErrValidation):
		reason = "validation"
	case errors.Is(err, ledger.ErrDuplicateBatchNumber):
		reason = "duplicate_batch_number"
	case errors.Is(err, ledger.ErrItemNotFound):
		reason = "not_found"
	}
	s.metrics.Rejections.WithLabelValues(operation, reason).Inc()
}

func batchNos(batches []model.Batch) []string {
	out := make([]string, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.BatchNo)
	}
	return out
}
