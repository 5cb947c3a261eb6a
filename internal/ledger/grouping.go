package ledger

import (
	"fmt"
	"strings"

	"invexis/internal/model"

	"github.com/shopspring/decimal"
)

// GroupRows turns flat stock-in rows into one candidate item per distinct
// name, in first-seen order. Names are matched exactly here; case folding
// happens when the candidates are merged. Rows without a name are skipped.
//
// A row's own batch number wins over a generated one. All explicit numbers
// are reserved before any is generated, so generated numbers cannot collide
// with them. The returned decimal is the estimated cost of the submission,
// the sum of quantity x unit price over the named rows.
func GroupRows(rows []model.StockInRow, today model.Date, supplier string, alloc *Allocator) ([]model.StockItem, decimal.Decimal, error) {
	for i, r := range rows {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		if batchNo := strings.TrimSpace(r.BatchNo); batchNo != "" {
			if err := alloc.Reserve(batchNo); err != nil {
				return nil, decimal.Zero, fmt.Errorf("row %d: %w", i, err)
			}
		}
	}

	var order []string
	groups := make(map[string]*model.StockItem)
	estimate := decimal.Zero

	for i, r := range rows {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		expires, err := model.ParseDate(r.Expiry)
		if err != nil {
			return nil, decimal.Zero, invalid(err.Error(), fmt.Sprintf("rows[%d].expiry", i))
		}

		batchNo := strings.TrimSpace(r.BatchNo)
		if batchNo == "" {
			if batchNo, err = alloc.Next(name, today); err != nil {
				return nil, decimal.Zero, fmt.Errorf("row %d: %w", i, err)
			}
		}

		qty := ParseQuantity(r.Quantity)
		estimate = estimate.Add(qty.Mul(ParseQuantity(r.UnitPrice)))

		g, ok := groups[name]
		if !ok {
			g = &model.StockItem{
				Name:     name,
				Unit:     strings.TrimSpace(r.Unit),
				Status:   model.StatusFresh,
				Quantity: decimal.Zero,
			}
			groups[name] = g
			order = append(order, name)
		}
		g.Quantity = g.Quantity.Add(qty)
		g.Batch = append(g.Batch, model.Batch{
			BatchNo:  batchNo,
			Qty:      qty,
			Procured: today,
			Expires:  expires,
			Supplier: supplier,
		})
	}

	candidates := make([]model.StockItem, 0, len(order))
	for _, name := range order {
		g := groups[name]
		SortBatches(g.Batch)
		if len(g.Batch) > 0 {
			g.Expiry = g.Batch[0].Expires
		}
		candidates = append(candidates, *g)
	}
	return candidates, estimate, nil
}
