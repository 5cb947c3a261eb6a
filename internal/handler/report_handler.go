package handler

import (
	"net/http"
	"strconv"

	"invexis/internal/model"
	"invexis/internal/service"
	"invexis/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/reports")
	{
		group.GET("/summary", h.GetSummary)
	}
}

// @Summary      Get inventory summary
// @Description  Totals per unit and category plus batches expired or expiring soon
// @Tags         reports
// @Produce      json
// @Param        as_of         query  string  false  "Reference day (YYYY-MM-DD, default today)"
// @Param        warning_days  query  int     false  "Expiry horizon in days"
// @Success      200  {object}  response.Response{data=model.SummaryReport}
// @Failure      400  {object}  response.Response
// @Router       /api/reports/summary [get]
func (h *ReportHandler) GetSummary(c *gin.Context) {
	asOf, err := model.ParseDate(c.Query("as_of"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid as_of: "+err.Error()))
		return
	}

	warningDays := -1
	if raw := c.Query("warning_days"); raw != "" {
		warningDays, err = strconv.Atoi(raw)
		if err != nil || warningDays < 0 {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "warning_days must be a non-negative integer"))
			return
		}
	}

	report, err := h.reportService.Summary(c.Request.Context(), asOf, warningDays)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
