package ledger

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"invexis/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemChange describes what one mutation did to one item
type ItemChange struct {
	Item    model.StockItem // state after the mutation
	Created bool
	Added   []model.Batch
}

// CommitHook runs under the ledger lock after a mutation is computed and
// before it becomes visible. Returning an error abandons the mutation.
type CommitHook func(changes []ItemChange) error

// StockInResult is the outcome of a grouped stock-in submission
type StockInResult struct {
	Changes       []ItemChange
	EstimatedCost decimal.Decimal
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces the UUID item id generator
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// WithItems seeds the ledger. Items are normalized so every invariant holds
// from the start.
func WithItems(items []model.StockItem) Option {
	return func(l *Ledger) {
		l.items = make([]model.StockItem, 0, len(items))
		for _, it := range items {
			it = it.Clone()
			if it.ID == "" {
				it.ID = l.newID()
			}
			normalize(&it)
			l.items = append(l.items, it)
		}
	}
}

// WithReservedBatchNos marks batch numbers as taken although no item holds
// them, such as numbers journaled before a restart. Generated numbers skip
// them and explicit ones are rejected as duplicates.
func WithReservedBatchNos(batchNos []string) Option {
	return func(l *Ledger) {
		for _, no := range batchNos {
			if no = strings.TrimSpace(no); no != "" {
				l.reserved[no] = struct{}{}
			}
		}
	}
}

// Ledger is the in-memory set of stock items and their batches. Every
// mutation builds a new item list and swaps it in whole, so a failed
// operation never leaves partial state behind.
type Ledger struct {
	mu       sync.RWMutex
	items    []model.StockItem
	counters SerialCounters
	reserved map[string]struct{}
	now      func() time.Time
	newID    func() string
}

// New creates an empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		counters: make(SerialCounters),
		reserved: make(map[string]struct{}),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Items returns a deep copy of all items, most recently created first
func (l *Ledger) Items() []model.StockItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneItems(l.items)
}

// Get returns the item with the given id
func (l *Ledger) Get(id string) (model.StockItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if it.ID == id {
			return it.Clone(), nil
		}
	}
	return model.StockItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// FindByName looks an item up case-insensitively
func (l *Ledger) FindByName(name string) (model.StockItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := indexByName(l.items, name); idx >= 0 {
		return l.items[idx].Clone(), true
	}
	return model.StockItem{}, false
}

// LastSerial reports the last serial issued for name's prefix on day
func (l *Ledger) LastSerial(name string, day model.Date) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters.Last(DateKey(day), Prefix(name))
}

// Today is the ledger clock's current calendar day
func (l *Ledger) Today() model.Date {
	return model.NewDate(l.now())
}

// AddManual adds or merges one manually entered item. All five fields are
// required; a blank one is reported as a ValidationError and nothing changes.
// When the name already exists the new unit and category are ignored: they
// are fixed when the item is first created.
func (l *Ledger) AddManual(entry model.ManualEntry, hook CommitHook) (ItemChange, error) {
	name := strings.TrimSpace(entry.Name)
	unit := strings.TrimSpace(entry.Unit)
	category := strings.TrimSpace(entry.Category)

	var missing []string
	for field, v := range map[string]string{
		"name":     name,
		"quantity": strings.TrimSpace(entry.Quantity),
		"unit":     unit,
		"category": category,
		"expiry":   strings.TrimSpace(entry.Expiry),
	} {
		if v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return ItemChange{}, invalid("required field is blank", missing...)
	}
	expires, err := model.ParseDate(entry.Expiry)
	if err != nil {
		return ItemChange{}, invalid(err.Error(), "expiry")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	today := model.NewDate(l.now())
	items := cloneItems(l.items)
	counters := l.counters.clone()
	alloc := NewAllocator(counters, l.inUse(items))

	batchNo, err := alloc.Next(name, today)
	if err != nil {
		return ItemChange{}, err
	}
	candidate := model.StockItem{
		Name:     name,
		Unit:     unit,
		Category: category,
		Status:   model.StatusFresh,
		Batch: []model.Batch{{
			BatchNo:  batchNo,
			Qty:      ParseQuantity(entry.Quantity),
			Procured: today,
			Expires:  expires,
			Supplier: model.UnknownSupplier,
		}},
	}

	var change ItemChange
	items, change = l.merge(items, candidate)
	if err := l.commit(items, counters, []ItemChange{change}, hook); err != nil {
		return ItemChange{}, err
	}
	return change, nil
}

// StockIn groups raw stock-in rows by name and merges the result in one
// atomic step. supplier applies to every batch; blank means unknown.
func (l *Ledger) StockIn(rows []model.StockInRow, supplier string, hook CommitHook) (StockInResult, error) {
	supplier = strings.TrimSpace(supplier)
	if supplier == "" {
		supplier = model.UnknownSupplier
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	today := model.NewDate(l.now())
	items := cloneItems(l.items)
	counters := l.counters.clone()
	alloc := NewAllocator(counters, l.inUse(items))

	candidates, estimate, err := GroupRows(rows, today, supplier, alloc)
	if err != nil {
		return StockInResult{}, err
	}
	if len(candidates) == 0 {
		return StockInResult{}, invalid("at least one row needs an item name", "rows")
	}

	items, changes, err := l.mergeAll(items, candidates)
	if err != nil {
		return StockInResult{}, err
	}
	if err := l.commit(items, counters, changes, hook); err != nil {
		return StockInResult{}, err
	}
	return StockInResult{Changes: changes, EstimatedCost: estimate}, nil
}

// Merge folds already-built candidate items into the ledger in input order.
// Candidates sharing a name with an existing item, or with an earlier
// candidate, accumulate onto that item. A candidate without a name or without
// batches, or any batch number already in use, rejects the whole call.
func (l *Ledger) Merge(candidates []model.StockItem, hook CommitHook) ([]ItemChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := cloneItems(l.items)
	items, changes, err := l.mergeAll(items, candidates)
	if err != nil {
		return nil, err
	}
	if err := l.commit(items, l.counters, changes, hook); err != nil {
		return nil, err
	}
	return changes, nil
}

// SetStatus records the freshness status chosen by the user
func (l *Ledger) SetStatus(id, status string, hook CommitHook) (model.StockItem, error) {
	if !model.ValidStatus(status) {
		return model.StockItem{}, invalid(fmt.Sprintf("unknown status %q", status), "status")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	items := cloneItems(l.items)
	idx := slices.IndexFunc(items, func(it model.StockItem) bool { return it.ID == id })
	if idx < 0 {
		return model.StockItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	items[idx].Status = status

	change := ItemChange{Item: items[idx].Clone()}
	if err := l.commit(items, l.counters, []ItemChange{change}, hook); err != nil {
		return model.StockItem{}, err
	}
	return change.Item, nil
}

func (l *Ledger) commit(items []model.StockItem, counters SerialCounters, changes []ItemChange, hook CommitHook) error {
	if hook != nil {
		if err := hook(changes); err != nil {
			return fmt.Errorf("commit rejected: %w", err)
		}
	}
	l.items = items
	l.counters = counters
	return nil
}

func (l *Ledger) mergeAll(items []model.StockItem, candidates []model.StockItem) ([]model.StockItem, []ItemChange, error) {
	if err := checkCandidates(l.inUse(items), candidates); err != nil {
		return nil, nil, err
	}

	// An item touched twice in one call is reported once, with its final state.
	changes := make([]ItemChange, 0, len(candidates))
	seen := make(map[string]int)
	for _, c := range candidates {
		var change ItemChange
		items, change = l.merge(items, c)
		if pos, ok := seen[change.Item.ID]; ok {
			changes[pos].Item = change.Item
			changes[pos].Added = append(changes[pos].Added, change.Added...)
			continue
		}
		seen[change.Item.ID] = len(changes)
		changes = append(changes, change)
	}
	return items, changes, nil
}

// merge applies one candidate to items, which the caller owns
func (l *Ledger) merge(items []model.StockItem, c model.StockItem) ([]model.StockItem, ItemChange) {
	c = c.Clone()
	c.Name = strings.TrimSpace(c.Name)
	added := slices.Clone(c.Batch)

	if idx := indexByName(items, c.Name); idx >= 0 {
		existing := &items[idx]
		existing.Batch = append(existing.Batch, c.Batch...)
		normalize(existing)
		return items, ItemChange{Item: existing.Clone(), Added: added}
	}

	if c.ID == "" {
		c.ID = l.newID()
	}
	if c.Status == "" {
		c.Status = model.StatusFresh
	}
	normalize(&c)
	items = append([]model.StockItem{c}, items...)
	return items, ItemChange{Item: c.Clone(), Created: true, Added: added}
}

func checkCandidates(inUse map[string]struct{}, candidates []model.StockItem) error {
	for i, c := range candidates {
		if strings.TrimSpace(c.Name) == "" {
			return invalid("candidate has no name", fmt.Sprintf("items[%d].name", i))
		}
		if len(c.Batch) == 0 {
			return invalid("candidate has no batches", fmt.Sprintf("items[%d].batch", i))
		}
		for _, b := range c.Batch {
			if strings.TrimSpace(b.BatchNo) == "" {
				return invalid("batch number is blank", fmt.Sprintf("items[%d].batch.batchNo", i))
			}
			if _, dup := inUse[b.BatchNo]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicateBatchNumber, b.BatchNo)
			}
			inUse[b.BatchNo] = struct{}{}
		}
	}
	return nil
}

// SortBatches orders batches FIFO: ascending expiry, undated last. The sort
// is stable so re-sorting a sorted list changes nothing.
func SortBatches(batches []model.Batch) {
	slices.SortStableFunc(batches, func(a, b model.Batch) int {
		return a.Expires.Compare(b.Expires)
	})
}

// normalize restores every per-item invariant after the batch list changed
func normalize(it *model.StockItem) {
	SortBatches(it.Batch)
	total := decimal.Zero
	for i := range it.Batch {
		it.Batch[i].Urgent = i == 0
		total = total.Add(it.Batch[i].Qty)
	}
	it.Quantity = total
	if len(it.Batch) == 0 {
		it.Expiry = model.Date{}
		return
	}
	it.Expiry = it.Batch[0].Expires
}

func indexByName(items []model.StockItem, name string) int {
	key := strings.ToLower(strings.TrimSpace(name))
	return slices.IndexFunc(items, func(it model.StockItem) bool {
		return strings.ToLower(it.Name) == key
	})
}

// inUse is every batch number held by items or reserved
func (l *Ledger) inUse(items []model.StockItem) map[string]struct{} {
	set := batchSet(items)
	for no := range l.reserved {
		set[no] = struct{}{}
	}
	return set
}

func batchSet(items []model.StockItem) map[string]struct{} {
	set := make(map[string]struct{})
	for _, it := range items {
		for _, b := range it.Batch {
			set[b.BatchNo] = struct{}{}
		}
	}
	return set
}

func cloneItems(items []model.StockItem) []model.StockItem {
	out := make([]model.StockItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
