package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetItems handles GET /api/board/orders/:id/items. Items come back
// stable-partitioned: unprepared first, prepared last, original order
// preserved within each half.
func (h *Handler) GetItems(c *gin.Context) {
	orderID := c.Param("id")
	order, ok := h.store.Get(orderID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not on board"})
		return
	}

	items := h.prep.SortedItems(orderID, order.Items)
	c.JSON(http.StatusOK, gin.H{"orderId": orderID, "items": items})
}

// PostItemToggle handles POST /api/board/orders/:id/items/:index/toggle. The
// local flag flips regardless of channel state; the echo to other screens is
// best-effort.
func (h *Handler) PostItemToggle(c *gin.Context) {
	orderID := c.Param("id")
	order, ok := h.store.Get(orderID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not on board"})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(order.Items) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
		return
	}

	prepared := h.prep.Toggle(orderID, index)
	c.JSON(http.StatusOK, gin.H{
		"orderId":    orderID,
		"itemIndex":  index,
		"isPrepared": prepared,
	})
}
