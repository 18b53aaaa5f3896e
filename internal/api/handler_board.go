package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cafe-board-backend/internal/backend"
	"cafe-board-backend/internal/model"
)

// boardOrder is one order card as the staff screens render it.
type boardOrder struct {
	model.Order
	DragProgress float64 `json:"dragProgress"`
	Completing   bool    `json:"completing"`
}

// boardResponse is the full board snapshot.
type boardResponse struct {
	Orders     []boardOrder       `json:"orders"`
	Pagination backend.Pagination `json:"pagination"`
	Error      string             `json:"error,omitempty"`
}

func (h *Handler) snapshot() boardResponse {
	orders, pagination, errStr := h.store.Snapshot()

	entries := make([]boardOrder, 0, len(orders))
	for _, order := range orders {
		entries = append(entries, boardOrder{
			Order:        order,
			DragProgress: h.gestures.Progress(order.ID),
			Completing:   h.gestures.Completing(order.ID),
		})
	}
	return boardResponse{Orders: entries, Pagination: pagination, Error: errStr}
}

// GetBoard handles GET /api/board/orders.
func (h *Handler) GetBoard(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot())
}

type refreshRequest struct {
	Status     string `json:"status" binding:"required,oneof=processing completed"`
	Page       int    `json:"page" binding:"omitempty,min=1"`
	Limit      int    `json:"limit" binding:"omitempty,min=1,max=100"`
	SearchTerm string `json:"searchTerm"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

// PostRefresh handles POST /api/board/refresh: it sets the active filter and
// fetches the matching page. On failure the previous list survives and the
// error travels back in the snapshot for manual retry.
func (h *Handler) PostRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	q := backend.OrderQuery{
		Status:     model.OrderStatus(req.Status),
		Page:       req.Page,
		Limit:      req.Limit,
		SearchTerm: req.SearchTerm,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
	if q.Limit <= 0 {
		q.Limit = h.pageSize
	}

	if err := h.store.Fetch(c.Request.Context(), q); err != nil {
		c.JSON(http.StatusBadGateway, h.snapshot())
		return
	}
	c.JSON(http.StatusOK, h.snapshot())
}

type dragRequest struct {
	Progress float64 `json:"progress" binding:"min=0"`
}

// PostDrag handles POST /api/board/orders/:id/drag, the continuous progress
// updates of an in-flight gesture.
func (h *Handler) PostDrag(c *gin.Context) {
	orderID := c.Param("id")
	if !h.store.Contains(orderID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not on board"})
		return
	}

	var req dragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p := h.gestures.Move(orderID, req.Progress)
	c.JSON(http.StatusOK, gin.H{"orderId": orderID, "progress": p})
}

type dragEndRequest struct {
	Ratio float64 `json:"ratio" binding:"min=0"`
}

// PostDragEnd handles POST /api/board/orders/:id/drag/end. The response says
// whether the release crossed the completion threshold; the completion
// itself is confirmed or rolled back asynchronously.
func (h *Handler) PostDragEnd(c *gin.Context) {
	orderID := c.Param("id")
	if !h.store.Contains(orderID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not on board"})
		return
	}

	var req dragEndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	completing := h.gestures.End(orderID, req.Ratio)
	c.JSON(http.StatusOK, gin.H{"orderId": orderID, "completing": completing})
}

// PostReopen handles POST /api/board/orders/:id/reopen, the plain
// completed-to-processing toggle.
func (h *Handler) PostReopen(c *gin.Context) {
	orderID := c.Param("id")
	if !h.store.Contains(orderID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not on board"})
		return
	}

	h.gestures.Reopen(orderID)
	c.JSON(http.StatusAccepted, gin.H{"orderId": orderID})
}
