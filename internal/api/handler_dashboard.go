package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// lowStockThreshold matches the portal's "running low" badge cutoff.
const lowStockThreshold = 10

type dashboardSummary struct {
	TotalDevices   int `json:"totalDevices"`
	ActiveListings int `json:"activeListings"`
	LowStock       int `json:"lowStock"`
	TotalValue     int `json:"totalValue"`
	TotalLeases    int `json:"totalLeases"`
}

// DashboardSummary handles GET /api/dashboard/summary.
func (h *Handler) DashboardSummary(c *gin.Context) {
	ctx := c.Request.Context()

	var s dashboardSummary
	for _, d := range h.devices.GetAll(ctx) {
		s.TotalDevices++
		if d.IsActive {
			s.ActiveListings++
		}
		if d.Stock < lowStockThreshold {
			s.LowStock++
		}
		s.TotalValue += d.Price * d.Stock
	}

	orders, err := h.leases.Orders(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.TotalLeases = len(orders)

	c.JSON(http.StatusOK, s)
}

// DashboardTrend handles GET /api/dashboard/trend?days=7.
func (h *Handler) DashboardTrend(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 31 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 31"})
			return
		}
		days = n
	}

	points, err := h.leases.Trend(c.Request.Context(), h.now(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, points)
}
