package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"invexis/internal/model"

	"github.com/google/uuid"
)

var (
	ErrScanNotFound = errors.New("bill scan not found")
	ErrScanState    = errors.New("bill scan is not in the required state")
)

// ScanState Enum Simulation
const (
	StatePending    = "pending"
	StateCompleted  = "completed"
	StateFailed     = "failed"
	StateCancelled  = "cancelled"
	StateSubmitting = "submitting"
	StateSubmitted  = "submitted"
)

// Scan is the externally visible state of one bill scan
type Scan struct {
	ID         string     `json:"id"`
	Vendor     string     `json:"vendor"`
	State      string     `json:"state"`
	Records    []Record   `json:"records,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (s Scan) clone() Scan {
	s.Records = slices.Clone(s.Records)
	return s
}

// LineInput lets the user confirm a scanned record before it is stocked in.
// Lines are matched to records by position; missing lines keep the defaults.
type LineInput struct {
	Name    string `json:"name"`     // Replaces the scanned name, e.g. with a suggestion
	Expiry  string `json:"expiry"`   // YYYY-MM-DD
	BatchNo string `json:"batch_no"` // Explicit batch number, generated when blank
	Skip    bool   `json:"skip"`
}

// Rows converts the scanned records into stock-in rows
func (s Scan) Rows(lines []LineInput) []model.StockInRow {
	rows := make([]model.StockInRow, 0, len(s.Records))
	for i, rec := range s.Records {
		var in LineInput
		if i < len(lines) {
			in = lines[i]
		}
		if in.Skip {
			continue
		}
		name := rec.Name
		if n := strings.TrimSpace(in.Name); n != "" {
			name = n
		}
		rows = append(rows, model.StockInRow{
			Name:      name,
			Quantity:  rec.Quantity.String(),
			Unit:      rec.Unit,
			UnitPrice: rec.UnitPrice.String(),
			BatchNo:   in.BatchNo,
			Expiry:    in.Expiry,
		})
	}
	return rows
}

// DefaultRetention is how long a settled scan stays readable
const DefaultRetention = 30 * time.Minute

type entry struct {
	scan    Scan
	cancel  context.CancelFunc
	settled time.Time // zero while pending or submitting
}

func (e *entry) settle(state string, at time.Time) {
	e.scan.State = state
	e.settled = at
}

// Manager runs bill scans in the background. A scan cancelled before its
// result arrives stays cancelled; the late result is dropped. Settled scans
// are forgotten once the retention window has passed.
type Manager struct {
	mu         sync.Mutex
	scans      map[string]*entry
	recognizer Recognizer
	onComplete func(Scan)
	now        func() time.Time
	retention  time.Duration

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewManager creates a manager that scans with r
func NewManager(r Recognizer) *Manager {
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		scans:      make(map[string]*entry),
		recognizer: r,
		now:        time.Now,
		retention:  DefaultRetention,
		ctx:        ctx,
		stop:       stop,
	}
}

// OnComplete registers a callback run after a scan finishes, successfully or
// not. It is not called for cancelled scans.
func (m *Manager) OnComplete(fn func(Scan)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onComplete = fn
}

// SetRetention changes how long settled scans are kept. Non-positive values
// are ignored.
func (m *Manager) SetRetention(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retention = d
}

// Start begins scanning a bill from vendor
func (m *Manager) Start(vendor string) Scan {
	ctx, cancel := context.WithCancel(m.ctx)
	now := m.now().UTC()
	scan := Scan{
		ID:        uuid.NewString(),
		Vendor:    strings.TrimSpace(vendor),
		State:     StatePending,
		StartedAt: now,
	}

	m.mu.Lock()
	m.prune(now)
	m.scans[scan.ID] = &entry{scan: scan, cancel: cancel}
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx, scan.ID, scan.Vendor)
	return scan
}

func (m *Manager) run(ctx context.Context, id, vendor string) {
	defer m.wg.Done()
	records, err := m.recognizer.Recognize(ctx, vendor)

	m.mu.Lock()
	e, ok := m.scans[id]
	if !ok || e.scan.State != StatePending {
		m.mu.Unlock()
		return
	}
	finished := m.now().UTC()
	e.scan.FinishedAt = &finished
	if err != nil {
		e.settle(StateFailed, finished)
		e.scan.Error = err.Error()
	} else {
		e.settle(StateCompleted, finished)
		e.scan.Records = records
	}
	e.cancel()
	snapshot := e.scan.clone()
	callback := m.onComplete
	m.mu.Unlock()

	if callback != nil {
		callback(snapshot)
	}
}

// Get returns the current state of a scan
func (m *Manager) Get(id string) (Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.scans[id]
	if !ok {
		return Scan{}, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	return e.scan.clone(), nil
}

// Cancel abandons a pending scan, or discards a completed one that was never
// submitted
func (m *Manager) Cancel(id string) (Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.scans[id]
	if !ok {
		return Scan{}, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	if e.scan.State != StatePending && e.scan.State != StateCompleted {
		return Scan{}, fmt.Errorf("%w: cannot cancel a %s scan", ErrScanState, e.scan.State)
	}
	e.cancel()
	e.settle(StateCancelled, m.now().UTC())
	e.scan.Records = nil
	return e.scan.clone(), nil
}

// Claim reserves a completed scan for submission. The caller must Release it.
func (m *Manager) Claim(id string) (Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.scans[id]
	if !ok {
		return Scan{}, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	if e.scan.State != StateCompleted {
		return Scan{}, fmt.Errorf("%w: cannot submit a %s scan", ErrScanState, e.scan.State)
	}
	e.scan.State = StateSubmitting
	e.settled = time.Time{}
	return e.scan.clone(), nil
}

// Release ends a claim: submitted when the stock-in committed, completed
// again so the user can retry when it did not
func (m *Manager) Release(id string, submitted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.scans[id]
	if !ok || e.scan.State != StateSubmitting {
		return
	}
	if submitted {
		e.settle(StateSubmitted, m.now().UTC())
		return
	}
	e.settle(StateCompleted, m.now().UTC())
}

// prune drops settled scans older than the retention window. Callers hold mu.
func (m *Manager) prune(now time.Time) {
	for id, e := range m.scans {
		if !e.settled.IsZero() && now.Sub(e.settled) > m.retention {
			delete(m.scans, id)
		}
	}
}

// Len reports how many scans are held
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scans)
}

// Close cancels every running scan and waits for the goroutines to exit
func (m *Manager) Close() {
	m.stop()
	m.wg.Wait()
}
