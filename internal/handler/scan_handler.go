package handler

import (
	"net/http"

	"invexis/internal/service"
	"invexis/pkg/response"

	"github.com/gin-gonic/gin"
)

type ScanHandler struct {
	scanService service.BillScanService
}

func NewScanHandler(scanService service.BillScanService) *ScanHandler {
	return &ScanHandler{scanService: scanService}
}

func (h *ScanHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/bill-scans")
	{
		group.POST("", h.StartScan)
		group.GET("/:id", h.GetScan)
		group.DELETE("/:id", h.CancelScan)
		group.POST("/:id/submit", h.SubmitScan)
	}
}

// StartScan begins recognizing a supplier bill in the background
// @Summary      Start bill scan
// @Tags         bill-scans
// @Accept       json
// @Produce      json
// @Param        payload  body      service.StartScanRequest  false  "Vendor"
// @Success      202      {object}  response.Response{data=scanner.Scan}
// @Router       /api/bill-scans [post]
func (h *ScanHandler) StartScan(c *gin.Context) {
	var req service.StartScanRequest
	// The body is optional; an empty one scans for an unknown vendor
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badPayload(c, err)
			return
		}
	}

	scan, err := h.scanService.StartScan(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response.Success(http.StatusAccepted, scan))
}

// GetScan polls a bill scan
// @Summary      Get bill scan
// @Tags         bill-scans
// @Produce      json
// @Param        id   path      string  true  "Scan ID"
// @Success      200  {object}  response.Response{data=scanner.Scan}
// @Failure      404  {object}  response.Response
// @Router       /api/bill-scans/{id} [get]
func (h *ScanHandler) GetScan(c *gin.Context) {
	scan, err := h.scanService.GetScan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, scan))
}

// CancelScan abandons a pending or completed scan
// @Summary      Cancel bill scan
// @Tags         bill-scans
// @Produce      json
// @Param        id   path      string  true  "Scan ID"
// @Success      200  {object}  response.Response{data=scanner.Scan}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/bill-scans/{id} [delete]
func (h *ScanHandler) CancelScan(c *gin.Context) {
	scan, err := h.scanService.CancelScan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, scan))
}

// SubmitScan stocks in the confirmed lines of a completed scan
// @Summary      Submit bill scan
// @Tags         bill-scans
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Scan ID"
// @Param        payload  body      service.SubmitScanRequest  false  "Confirmed lines"
// @Success      201      {object}  response.Response{data=service.StockInResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/bill-scans/{id}/submit [post]
func (h *ScanHandler) SubmitScan(c *gin.Context) {
	var req service.SubmitScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badPayload(c, err)
			return
		}
	}

	res, err := h.scanService.SubmitScan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}
