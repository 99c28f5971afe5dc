package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"tortoise-backend/internal/model"
	"tortoise-backend/internal/pricing"
)

// marketplaceDevice is a device as the employee view sees it: resolved
// prices alongside the catalog fields.
type marketplaceDevice struct {
	model.Device
	EffectivePrice int  `json:"effectivePrice"`
	EmployeeNet    int  `json:"employeeNet"`
	HasDiscount    bool `json:"hasDiscount"`
}

type marketplaceResponse struct {
	Devices []marketplaceDevice `json:"devices"`
	Brands  []string            `json:"brands"`
}

// ListMarketplace handles GET /api/marketplace/devices. Only active
// devices with stock are listed; ?q= searches name/brand/model and
// ?brand= filters exactly. Brands always reflect the full listable set
// so the filter dropdown does not shrink as it is used.
func (h *Handler) ListMarketplace(c *gin.Context) {
	q := strings.ToLower(c.Query("q"))
	brand := c.Query("brand")
	now := h.now()

	brandSet := make(map[string]bool)
	devices := make([]marketplaceDevice, 0)
	for _, d := range h.devices.GetAll(c.Request.Context()) {
		if !d.IsActive || d.Stock <= 0 {
			continue
		}
		brandSet[d.Brand] = true

		if brand != "" && d.Brand != brand {
			continue
		}
		if q != "" && !matchesQuery(d, q) {
			continue
		}

		effective := pricing.EffectivePrice(d, now)
		devices = append(devices, marketplaceDevice{
			Device:         d,
			EffectivePrice: effective,
			EmployeeNet:    pricing.EmployeeNet(effective),
			HasDiscount:    effective < d.Price,
		})
	}

	brands := make([]string, 0, len(brandSet))
	for b := range brandSet {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	c.JSON(http.StatusOK, marketplaceResponse{Devices: devices, Brands: brands})
}

func matchesQuery(d model.Device, q string) bool {
	return strings.Contains(strings.ToLower(d.Name), q) ||
		strings.Contains(strings.ToLower(d.Brand), q) ||
		strings.Contains(strings.ToLower(d.Model), q)
}

type leaseRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
}

// Lease handles POST /api/marketplace/lease: the employee confirms a
// rental, stock drops by one and a pending order is appended.
func (h *Handler) Lease(c *gin.Context) {
	var req leaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.leases.Lease(c.Request.Context(), req.DeviceID)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
