package service

import (
	"context"
	"strings"

	"invexis/internal/metrics"
	"invexis/internal/model"
	"invexis/internal/scanner"
	ws "invexis/internal/websocket"
	"invexis/pkg/logger"
)

type StartScanRequest struct {
	Vendor string `json:"vendor"`
}

type SubmitScanRequest struct {
	Lines []scanner.LineInput `json:"lines"`
}

type BillScanService interface {
	StartScan(ctx context.Context, req StartScanRequest) (scanner.Scan, error)
	GetScan(ctx context.Context, id string) (scanner.Scan, error)
	CancelScan(ctx context.Context, id string) (scanner.Scan, error)
	SubmitScan(ctx context.Context, id string, req SubmitScanRequest) (StockInResponse, error)
}

type billScanService struct {
	manager   *scanner.Manager
	inventory InventoryService
}

// NewBillScanService wires scan completion into websocket events and metrics
func NewBillScanService(manager *scanner.Manager, inventory InventoryService, hub Publisher, m *metrics.Metrics) BillScanService {
	manager.OnComplete(func(scan scanner.Scan) {
		m.ScansFinished.WithLabelValues(scan.State).Inc()
		hub.Publish(ws.Event{Event: EventScanCompleted, Data: scan})
		logger.Logger.Info().
			Str("scan_id", scan.ID).
			Str("state", scan.State).
			Int("records", len(scan.Records)).
			Msg("Bill scan finished")
	})
	return &billScanService{manager: manager, inventory: inventory}
}

func (s *billScanService) StartScan(ctx context.Context, req StartScanRequest) (scanner.Scan, error) {
	vendor := strings.TrimSpace(req.Vendor)
	if vendor == "" {
		vendor = model.UnknownSupplier
	}
	scan := s.manager.Start(vendor)
	logger.Info(ctx).Str("scan_id", scan.ID).Str("vendor", vendor).Msg("Bill scan started")
	return scan, nil
}

func (s *billScanService) GetScan(ctx context.Context, id string) (scanner.Scan, error) {
	return s.manager.Get(id)
}

func (s *billScanService) CancelScan(ctx context.Context, id string) (scanner.Scan, error) {
	return s.manager.Cancel(id)
}

// SubmitScan stocks in the confirmed records of a completed scan. A failed
// stock-in leaves the scan completed so it can be corrected and resubmitted.
func (s *billScanService) SubmitScan(ctx context.Context, id string, req SubmitScanRequest) (StockInResponse, error) {
	scan, err := s.manager.Claim(id)
	if err != nil {
		return StockInResponse{}, err
	}

	resp, err := s.inventory.ReceiveRows(ctx, scan.Rows(req.Lines), scan.Vendor, model.SourceBillScan)
	s.manager.Release(id, err == nil)
	if err != nil {
		return StockInResponse{}, err
	}
	return resp, nil
}
