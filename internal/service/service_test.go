package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"invexis/internal/ledger"
	"invexis/internal/metrics"
	"invexis/internal/model"
	"invexis/internal/repository"
	ws "invexis/internal/websocket"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC)

// recordingHub captures published events
type recordingHub struct {
	mu     sync.Mutex
	events []ws.Event
}

func (h *recordingHub) Publish(e ws.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHub) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Event)
	}
	return out
}

type brokenMovementRepo struct{}

func (brokenMovementRepo) CreateBatch(context.Context, []model.StockMovement) error {
	return errors.New("disk full")
}

func (brokenMovementRepo) ListByItem(context.Context, string) ([]model.StockMovement, error) {
	return nil, nil
}

func (brokenMovementRepo) ListBatchNos(context.Context) ([]string, error) {
	return nil, nil
}

type fixture struct {
	ledger    *ledger.Ledger
	audit     repository.AuditRepository
	movements repository.MovementRepository
	hub       *recordingHub
	metrics   *metrics.Metrics
	svc       InventoryService
}

func newFixture(t *testing.T, opts ...ledger.Option) *fixture {
	t.Helper()
	n := 0
	opts = append([]ledger.Option{
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithIDGenerator(func() string { n++; return "item-" + string(rune('0'+n)) }),
	}, opts...)

	f := &fixture{
		ledger:    ledger.New(opts...),
		audit:     repository.NewMemoryAuditRepository(),
		movements: repository.NewMemoryMovementRepository(),
		hub:       &recordingHub{},
		metrics:   metrics.New(),
	}
	f.svc = NewInventoryService(f.ledger, f.audit, f.movements, repository.NewMemoryTransactionManager(), f.hub, f.metrics)
	return f
}

func (f *fixture) auditCount(t *testing.T) int64 {
	t.Helper()
	_, total, err := f.audit.List(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	return total
}

func TestAddItemJournalsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddItem(ctx, AddItemRequest{Name: "Milk", Quantity: "2", Unit: "L", Category: "Dairy", Expiry: "2025-07-30"})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if item.Batch[0].BatchNo != "MIL-250725-0001" {
		t.Errorf("batch number = %s, want MIL-250725-0001", item.Batch[0].BatchNo)
	}

	movements, err := f.svc.ListMovements(ctx, item.ID)
	if err != nil {
		t.Fatalf("ListMovements() error = %v", err)
	}
	if len(movements) != 1 || movements[0].Source != model.SourceManual || movements[0].Supplier != model.UnknownSupplier {
		t.Errorf("movements = %+v", movements)
	}
	if got := f.auditCount(t); got != 1 {
		t.Errorf("audit entries = %d, want 1", got)
	}
	if names := f.hub.names(); len(names) != 1 || names[0] != EventItemAdded {
		t.Errorf("events = %v, want [%s]", names, EventItemAdded)
	}
}

func TestAddItemValidationLeavesNoTrace(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddItem(context.Background(), AddItemRequest{Name: "Milk", Quantity: "2"})
	var verr *ledger.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("AddItem() error = %v, want ValidationError", err)
	}
	if len(f.ledger.Items()) != 0 || f.auditCount(t) != 0 || len(f.hub.names()) != 0 {
		t.Error("rejected add must not change ledger, journal or subscribers")
	}
}

func TestStockInGroupsRowsAndJournalsEachBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.StockIn(ctx, StockInRequest{
		Supplier: "FreshMart",
		Rows: []model.StockInRow{
			{Name: "Tomatoes", Quantity: "5", Unit: "kg", UnitPrice: "30", Expiry: "2025-07-28"},
			{Name: "Tomatoes", Quantity: "2", Unit: "kg", UnitPrice: "30", Expiry: "2025-07-27"},
			{Name: "Onions", Quantity: "10", Unit: "kg", UnitPrice: "25"},
			{Name: "", Quantity: "99", UnitPrice: "1000"},
		},
	})
	if err != nil {
		t.Fatalf("StockIn() error = %v", err)
	}
	if len(res.Items) != 2 || len(res.BatchNos) != 3 {
		t.Fatalf("StockIn() = %d items, %d batches; want 2, 3", len(res.Items), len(res.BatchNos))
	}
	if !res.EstimatedCost.Equal(decimal.NewFromInt(460)) {
		t.Errorf("estimated cost = %s, want 460", res.EstimatedCost)
	}

	tom, _ := f.ledger.FindByName("tomatoes")
	movements, _ := f.movements.ListByItem(ctx, tom.ID)
	if len(movements) != 2 {
		t.Fatalf("tomato movements = %d, want 2", len(movements))
	}
	for _, m := range movements {
		if m.Supplier != "FreshMart" || m.Source != model.SourceStockIn {
			t.Errorf("movement = %+v", m)
		}
	}
	if got := f.auditCount(t); got != 1 {
		t.Errorf("audit entries = %d, want one per submission", got)
	}
}

func TestStockInJournalFailureKeepsLedger(t *testing.T) {
	f := newFixture(t)
	f.svc = NewInventoryService(f.ledger, f.audit, brokenMovementRepo{}, repository.NewMemoryTransactionManager(), f.hub, f.metrics)

	_, err := f.svc.StockIn(context.Background(), StockInRequest{Rows: []model.StockInRow{{Name: "Rice", Quantity: "5", Unit: "kg"}}})
	if err == nil {
		t.Fatal("StockIn() error = nil, want journal failure")
	}
	if len(f.ledger.Items()) != 0 {
		t.Error("ledger changed although the journal failed")
	}
	if f.auditCount(t) != 0 {
		t.Error("audit entry kept although the transaction rolled back")
	}
	if got := f.ledger.LastSerial("Rice", model.NewDate(fixedNow)); got != 0 {
		t.Errorf("serial counter advanced to %d on failure", got)
	}
}

func TestStockInRecordsShiftInAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StockIn(ctx, StockInRequest{
		Supplier: "FreshMart",
		Shift:    "Evening",
		Rows:     []model.StockInRow{{Name: "Rice", Quantity: "5", Unit: "kg"}},
	})
	if err != nil {
		t.Fatalf("StockIn() error = %v", err)
	}

	logs, _, err := f.audit.List(ctx, 1, 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("audit list = %v, %v; want one entry", logs, err)
	}
	var details map[string]interface{}
	if err := json.Unmarshal([]byte(logs[0].Details), &details); err != nil {
		t.Fatalf("audit details are not JSON: %v", err)
	}
	if details["shift"] != "Evening" || details["supplier"] != "FreshMart" {
		t.Errorf("audit details = %v, want shift Evening from FreshMart", details)
	}
}

func TestJournalRejectsUnencodableDetails(t *testing.T) {
	f := newFixture(t)
	svc := f.svc.(*inventoryService)

	hook := svc.journal(context.Background(), model.ActionAddItem, model.SourceManual, func(changes []ledger.ItemChange) (string, string, interface{}) {
		return changes[0].Item.ID, changes[0].Item.Name, map[string]interface{}{"bad": make(chan int)}
	})
	entry := model.ManualEntry{Name: "Milk", Quantity: "2", Unit: "L", Category: "Dairy", Expiry: "2025-07-30"}
	if _, err := f.ledger.AddManual(entry, hook); err == nil {
		t.Fatal("AddManual() error = nil, want audit encoding failure")
	}
	if len(f.ledger.Items()) != 0 {
		t.Error("ledger changed although the audit details could not be encoded")
	}
	if f.auditCount(t) != 0 {
		t.Error("audit entry written for unencodable details")
	}
	if batchNos, _ := f.movements.ListBatchNos(context.Background()); len(batchNos) != 0 {
		t.Errorf("movements kept after rollback: %v", batchNos)
	}
}

func TestStockInDuplicateBatchNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.StockIn(ctx, StockInRequest{Rows: []model.StockInRow{{Name: "Rice", Quantity: "5", BatchNo: "RICE-1"}}}); err != nil {
		t.Fatalf("first StockIn() error = %v", err)
	}
	_, err := f.svc.StockIn(ctx, StockInRequest{Rows: []model.StockInRow{{Name: "Beans", Quantity: "1", BatchNo: "RICE-1"}}})
	if !errors.Is(err, ledger.ErrDuplicateBatchNumber) {
		t.Fatalf("second StockIn() error = %v, want ErrDuplicateBatchNumber", err)
	}
	if _, ok := f.ledger.FindByName("Beans"); ok {
		t.Error("rejected submission created an item")
	}
}

func TestListItemsSearchAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Tomatoes", "Onions", "Tomato Paste"} {
		if _, err := f.svc.AddItem(ctx, AddItemRequest{Name: name, Quantity: "1", Unit: "kg", Category: "Veg", Expiry: "2025-08-01"}); err != nil {
			t.Fatalf("AddItem(%s) error = %v", name, err)
		}
	}

	items, total, err := f.svc.ListItems(ctx, paramsFor(1, 1), "TOMATO")
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if total != 2 || len(items) != 1 || items[0].Name != "Tomato Paste" {
		t.Errorf("ListItems() = %v (total %d), want newest tomato item first of 2", items, total)
	}

	items, total, _ = f.svc.ListItems(ctx, paramsFor(5, 20), "")
	if total != 3 || len(items) != 0 {
		t.Errorf("page past the end = %d items (total %d), want 0 (3)", len(items), total)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, _ := f.svc.AddItem(ctx, AddItemRequest{Name: "Milk", Quantity: "1", Unit: "L", Category: "Dairy", Expiry: "2025-07-26"})

	got, err := f.svc.UpdateStatus(ctx, item.ID, UpdateStatusRequest{Status: model.StatusExpiring})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if got.Status != model.StatusExpiring {
		t.Errorf("status = %s, want expiring", got.Status)
	}
	if _, err := f.svc.UpdateStatus(ctx, "missing", UpdateStatusRequest{Status: model.StatusFresh}); !errors.Is(err, ledger.ErrItemNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want ErrItemNotFound", err)
	}
	names := f.hub.names()
	if names[len(names)-1] != EventStatusUpdated {
		t.Errorf("last event = %s, want %s", names[len(names)-1], EventStatusUpdated)
	}
}

func TestListMovementsUnknownItem(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.ListMovements(context.Background(), "nope"); !errors.Is(err, ledger.ErrItemNotFound) {
		t.Errorf("ListMovements() error = %v, want ErrItemNotFound", err)
	}
}

func TestRestartedLedgerSkipsJournaledBatchNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.AddItem(ctx, AddItemRequest{Name: "Tomatoes", Quantity: "1", Unit: "kg", Category: "Veg", Expiry: "2025-07-30"}); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	// A new process starts from an empty ledger over the same journal
	journaled, err := f.movements.ListBatchNos(ctx)
	if err != nil {
		t.Fatalf("ListBatchNos() error = %v", err)
	}
	restarted := ledger.New(
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithReservedBatchNos(journaled),
	)
	svc := NewInventoryService(restarted, f.audit, f.movements, repository.NewMemoryTransactionManager(), f.hub, metrics.New())

	for _, want := range []string{"TOM-250725-0002", "TOM-250725-0003"} {
		res, err := svc.StockIn(ctx, StockInRequest{Rows: []model.StockInRow{{Name: "Tomatoes", Quantity: "2", Unit: "kg"}}})
		if err != nil {
			t.Fatalf("StockIn() after restart error = %v", err)
		}
		if res.BatchNos[0] != want {
			t.Errorf("batch number = %s, want %s", res.BatchNos[0], want)
		}
	}
}
