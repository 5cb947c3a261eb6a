package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"invexis/internal/ledger"
	"invexis/internal/model"
)

// demoCatalog holds one batch per row. Day offsets are relative to the load day
// so the demo always shows fresh, expiring and expired stock.
const demoCatalog = `name,quantity,unit,category,status,supplier,procured_offset,expires_offset
Tomatoes,1.5,kg,Vegetables,fresh,Fresh Farm Co.,-2,0
Tomatoes,1,kg,Vegetables,fresh,Green Valley,-2,1
Chicken Breast,15,kg,Meat,expiring,Prime Meats,-1,5
Olive Oil,5,L,Oils,fresh,Mediterra Imports,-20,65
Curry Leaves,0.2,kg,Herbs,expired,Herb Co.,-15,-5
`

// Demo returns the demo catalog dated around today
func Demo(today model.Date) []model.StockItem {
	items, err := LoadCSV(strings.NewReader(demoCatalog), today)
	if err != nil {
		panic(fmt.Sprintf("demo catalog is malformed: %v", err))
	}
	return items
}

// LoadCSV reads batch rows and groups them into items in first-seen order.
// Rows with fewer columns or without a name are skipped; a malformed number
// fails the whole load. Batch numbers are assigned per prefix and procured day.
func LoadCSV(r io.Reader, today model.Date) ([]model.StockItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var items []model.StockItem
	index := make(map[string]int)
	serials := make(map[string]int)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < 8 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}

		procuredOffset, err := strconv.Atoi(strings.TrimSpace(record[6]))
		if err != nil {
			return nil, fmt.Errorf("line %d: procured offset: %w", line, err)
		}
		expiresOffset, err := strconv.Atoi(strings.TrimSpace(record[7]))
		if err != nil {
			return nil, fmt.Errorf("line %d: expires offset: %w", line, err)
		}
		procured := today.AddDays(procuredOffset)

		key := ledger.Prefix(name) + "/" + ledger.DateKey(procured)
		serials[key]++

		batch := model.Batch{
			BatchNo:  ledger.FormatBatchNo(name, procured, serials[key]),
			Qty:      ledger.ParseQuantity(record[1]),
			Procured: procured,
			Expires:  today.AddDays(expiresOffset),
			Supplier: strings.TrimSpace(record[5]),
		}

		pos, ok := index[name]
		if !ok {
			pos = len(items)
			index[name] = pos
			items = append(items, model.StockItem{
				Name:     name,
				Unit:     strings.TrimSpace(record[2]),
				Category: strings.TrimSpace(record[3]),
				Status:   strings.TrimSpace(record[4]),
			})
		}
		items[pos].Batch = append(items[pos].Batch, batch)
	}
	return items, nil
}
