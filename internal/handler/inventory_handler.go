package handler

import (
	"net/http"

	"invexis/internal/service"
	"invexis/pkg/pagination"
	"invexis/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api")
	{
		inventory.GET("/items", h.GetItems)
		inventory.POST("/items", h.AddItem)
		inventory.GET("/items/:id", h.GetItem)
		inventory.GET("/items/:id/movements", h.GetMovements)
		inventory.PATCH("/items/:id/status", h.UpdateStatus)
		inventory.POST("/stock-in", h.StockIn)
	}
}

// GetItems lists stock items, most recently created first
// @Summary      Get items
// @Description  Retrieves a paginated list of stock items with their FIFO batches
// @Tags         inventory
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Case-insensitive name filter"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/items [get]
func (h *InventoryHandler) GetItems(c *gin.Context) {
	params := pagination.Parse(c)

	items, total, err := h.inventoryService.ListItems(c.Request.Context(), params, params.Search)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items":      items,
		"pagination": pagination.NewMeta(params, total),
	}))
}

// GetItem returns one item
// @Summary      Get item
// @Tags         inventory
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response{data=model.StockItem}
// @Failure      404  {object}  response.Response
// @Router       /api/items/{id} [get]
func (h *InventoryHandler) GetItem(c *gin.Context) {
	item, err := h.inventoryService.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// GetMovements returns the receipt history of one item
// @Summary      Get item movements
// @Tags         inventory
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response{data=[]model.StockMovement}
// @Failure      404  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/items/{id}/movements [get]
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	movements, err := h.inventoryService.ListMovements(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, movements))
}

// AddItem records one manually entered item
// @Summary      Add item
// @Description  Adds a new item, or a new batch when an item with the same name exists
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AddItemRequest  true  "Manual entry"
// @Success      201      {object}  response.Response{data=model.StockItem}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/items [post]
func (h *InventoryHandler) AddItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	item, err := h.inventoryService.AddItem(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// StockIn records a multi-row receipt
// @Summary      Stock in
// @Description  Groups receipt rows by item name and merges them into the ledger in one atomic step
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        payload  body      service.StockInRequest  true  "Stock-in rows"
// @Success      201      {object}  response.Response{data=service.StockInResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/stock-in [post]
func (h *InventoryHandler) StockIn(c *gin.Context) {
	var req service.StockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.inventoryService.StockIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// UpdateStatus sets the freshness status of an item
// @Summary      Update item status
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Item ID"
// @Param        payload  body      service.UpdateStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=model.StockItem}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/items/{id}/status [patch]
func (h *InventoryHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	item, err := h.inventoryService.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}
