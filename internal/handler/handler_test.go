package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invexis/internal/ledger"
	"invexis/internal/metrics"
	"invexis/internal/model"
	"invexis/internal/repository"
	"invexis/internal/scanner"
	"invexis/internal/service"
	ws "invexis/internal/websocket"

	"github.com/gin-gonic/gin"
)

type discardHub struct{}

func (discardHub) Publish(ws.Event) {}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Fields     []string        `json:"fields"`
}

func newRouter(t *testing.T) (*gin.Engine, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC)
	l := ledger.New(ledger.WithClock(func() time.Time { return now }))
	audit := repository.NewMemoryAuditRepository()
	m := metrics.New()

	inventory := service.NewInventoryService(l, audit, repository.NewMemoryMovementRepository(), repository.NewMemoryTransactionManager(), discardHub{}, m)
	manager := scanner.NewManager(scanner.NewCannedRecognizer(0))
	t.Cleanup(manager.Close)

	r := gin.New()
	NewInventoryHandler(inventory).RegisterRoutes(r.Group(""))
	NewScanHandler(service.NewBillScanService(manager, inventory, discardHub{}, m)).RegisterRoutes(r.Group(""))
	NewAuditHandler(service.NewAuditService(audit)).RegisterRoutes(r.Group(""))
	NewReportHandler(service.NewReportService(l, 7)).RegisterRoutes(r.Group(""))
	return r, l
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func TestAddAndGetItem(t *testing.T) {
	r, _ := newRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/items", map[string]string{
		"name": "Milk", "quantity": "2", "unit": "L", "category": "Dairy", "expiry": "2025-07-30",
	})
	if code != http.StatusCreated {
		t.Fatalf("POST /api/items = %d %s", code, env.Error)
	}
	var item model.StockItem
	if err := json.Unmarshal(env.Data, &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if item.Batch[0].BatchNo != "MIL-250725-0001" || item.Expiry.String() != "2025-07-30" {
		t.Errorf("item = %+v", item)
	}

	code, _ = do(t, r, http.MethodGet, "/api/items/"+item.ID, nil)
	if code != http.StatusOK {
		t.Errorf("GET item = %d, want 200", code)
	}
	code, _ = do(t, r, http.MethodGet, "/api/items/"+item.ID+"/movements", nil)
	if code != http.StatusOK {
		t.Errorf("GET movements = %d, want 200", code)
	}
	code, _ = do(t, r, http.MethodGet, "/api/items/unknown", nil)
	if code != http.StatusNotFound {
		t.Errorf("GET unknown item = %d, want 404", code)
	}
}

func TestAddItemValidation(t *testing.T) {
	r, l := newRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/items", map[string]string{"name": "Milk", "quantity": "2"})
	if code != http.StatusBadRequest {
		t.Fatalf("POST /api/items = %d, want 400", code)
	}
	if len(env.Fields) != 3 || env.Fields[0] != "category" {
		t.Errorf("fields = %v, want [category expiry unit]", env.Fields)
	}
	if len(l.Items()) != 0 {
		t.Error("invalid entry reached the ledger")
	}
}

func TestStockInEndpoint(t *testing.T) {
	r, _ := newRouter(t)

	body := map[string]interface{}{
		"supplier": "FreshMart",
		"rows": []map[string]string{
			{"name": "Rice", "quantity": "10", "unit": "kg", "unit_price": "2.5", "batch_no": "RICE-A"},
			{"name": "Rice", "quantity": "5", "unit": "kg", "unit_price": "2.5"},
		},
	}
	code, env := do(t, r, http.MethodPost, "/api/stock-in", body)
	if code != http.StatusCreated {
		t.Fatalf("POST /api/stock-in = %d %s", code, env.Error)
	}
	var res service.StockInResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.BatchNos) != 2 || res.BatchNos[0] != "RICE-A" && res.BatchNos[1] != "RICE-A" {
		t.Errorf("batch numbers = %v", res.BatchNos)
	}
	if res.EstimatedCost.String() != "37.5" {
		t.Errorf("estimated cost = %s, want 37.5", res.EstimatedCost)
	}

	code, _ = do(t, r, http.MethodPost, "/api/stock-in", body)
	if code != http.StatusConflict {
		t.Errorf("resubmitting RICE-A = %d, want 409", code)
	}

	code, _ = do(t, r, http.MethodPost, "/api/stock-in", map[string]interface{}{"rows": []interface{}{}})
	if code != http.StatusBadRequest {
		t.Errorf("empty rows = %d, want 400", code)
	}

	code, _ = do(t, r, http.MethodPost, "/api/stock-in", map[string]interface{}{
		"shift": "Afternoon",
		"rows":  []map[string]string{{"name": "Beans", "quantity": "1"}},
	})
	if code != http.StatusBadRequest {
		t.Errorf("unknown shift = %d, want 400", code)
	}
	code, _ = do(t, r, http.MethodPost, "/api/stock-in", map[string]interface{}{
		"shift": "Night",
		"rows":  []map[string]string{{"name": "Beans", "quantity": "1"}},
	})
	if code != http.StatusCreated {
		t.Errorf("night shift = %d, want 201", code)
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	r, l := newRouter(t)
	change, err := l.AddManual(model.ManualEntry{Name: "Milk", Quantity: "1", Unit: "L", Category: "Dairy", Expiry: "2025-07-26"}, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	code, _ := do(t, r, http.MethodPatch, "/api/items/"+change.Item.ID+"/status", map[string]string{"status": "expiring"})
	if code != http.StatusOK {
		t.Errorf("PATCH status = %d, want 200", code)
	}
	code, _ = do(t, r, http.MethodPatch, "/api/items/"+change.Item.ID+"/status", map[string]string{"status": "rotten"})
	if code != http.StatusBadRequest {
		t.Errorf("PATCH bad status = %d, want 400", code)
	}
}

func TestListItemsPagination(t *testing.T) {
	r, l := newRouter(t)
	for _, name := range []string{"Apples", "Bananas", "Cherries"} {
		if _, err := l.AddManual(model.ManualEntry{Name: name, Quantity: "1", Unit: "kg", Category: "Fruit", Expiry: "2025-08-01"}, nil); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	code, env := do(t, r, http.MethodGet, "/api/items?page=1&limit=2&search=a", nil)
	if code != http.StatusOK {
		t.Fatalf("GET /api/items = %d", code)
	}
	var data struct {
		Items      []model.StockItem `json:"items"`
		Pagination struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Pagination.Total != 2 || data.Pagination.TotalPages != 1 || len(data.Items) != 2 {
		t.Errorf("page = %d items, total %d, pages %d", len(data.Items), data.Pagination.Total, data.Pagination.TotalPages)
	}
	if data.Items[0].Name != "Bananas" {
		t.Errorf("first item = %s, want most recent match Bananas", data.Items[0].Name)
	}
}

func TestBillScanEndpoints(t *testing.T) {
	r, _ := newRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/bill-scans", map[string]string{"vendor": "FreshMart"})
	if code != http.StatusAccepted {
		t.Fatalf("POST /api/bill-scans = %d", code)
	}
	var scan scanner.Scan
	_ = json.Unmarshal(env.Data, &scan)

	deadline := time.Now().Add(2 * time.Second)
	for scan.State == scanner.StatePending && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		_, env = do(t, r, http.MethodGet, "/api/bill-scans/"+scan.ID, nil)
		_ = json.Unmarshal(env.Data, &scan)
	}
	if scan.State != scanner.StateCompleted {
		t.Fatalf("scan state = %s, want completed", scan.State)
	}

	code, env = do(t, r, http.MethodPost, "/api/bill-scans/"+scan.ID+"/submit", nil)
	if code != http.StatusCreated {
		t.Fatalf("submit = %d %s", code, env.Error)
	}
	code, _ = do(t, r, http.MethodPost, "/api/bill-scans/"+scan.ID+"/submit", nil)
	if code != http.StatusConflict {
		t.Errorf("second submit = %d, want 409", code)
	}
	code, _ = do(t, r, http.MethodDelete, "/api/bill-scans/"+scan.ID, nil)
	if code != http.StatusConflict {
		t.Errorf("cancel submitted scan = %d, want 409", code)
	}
	code, _ = do(t, r, http.MethodGet, "/api/bill-scans/missing", nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown scan = %d, want 404", code)
	}

	code, env = do(t, r, http.MethodGet, "/api/audit-logs", nil)
	if code != http.StatusOK {
		t.Fatalf("GET /api/audit-logs = %d", code)
	}
	var logs struct {
		Logs []service.AuditLogResponse `json:"logs"`
	}
	_ = json.Unmarshal(env.Data, &logs)
	if len(logs.Logs) != 1 || logs.Logs[0].Action != model.ActionBillScanIn {
		t.Errorf("audit logs = %+v, want one bill scan entry", logs.Logs)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	r, l := newRouter(t)
	if _, err := l.AddManual(model.ManualEntry{Name: "Milk", Quantity: "1", Unit: "L", Category: "Dairy", Expiry: "2025-07-26"}, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	code, env := do(t, r, http.MethodGet, "/api/reports/summary?as_of=2025-07-25&warning_days=3", nil)
	if code != http.StatusOK {
		t.Fatalf("GET summary = %d %s", code, env.Error)
	}
	var report model.SummaryReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.TotalItems != 1 || len(report.ExpiringSoon) != 1 || report.ExpiringSoon[0].DaysLeft != 1 {
		t.Errorf("report = %+v", report)
	}

	for _, q := range []string{"?as_of=25-07-2025", "?warning_days=-1", "?warning_days=soon"} {
		if code, _ := do(t, r, http.MethodGet, "/api/reports/summary"+q, nil); code != http.StatusBadRequest {
			t.Errorf("GET summary%s = %d, want 400", q, code)
		}
	}
}
