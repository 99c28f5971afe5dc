package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tortoise-backend/internal/model"
)

type addOfferRequest struct {
	Type        model.OfferType `json:"type" binding:"required,oneof=percentage flat"`
	Value       float64         `json:"value" binding:"min=0"`
	Description string          `json:"description"`
	ValidFrom   string          `json:"validFrom"`
	ValidTo     string          `json:"validTo" binding:"required"`
	IsActive    bool            `json:"isActive"`
}

// AddOffer handles POST /api/devices/:id/offers. A past validTo is
// accepted; expiry only matters when prices are resolved.
func (h *Handler) AddOffer(c *gin.Context) {
	var req addOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.devices.AddOffer(c.Request.Context(), c.Param("id"), model.Offer{
		Type:        req.Type,
		Value:       req.Value,
		Description: req.Description,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// RemoveOffer handles DELETE /api/devices/:id/offers/:offer_id.
func (h *Handler) RemoveOffer(c *gin.Context) {
	d, err := h.devices.RemoveOffer(c.Request.Context(), c.Param("id"), c.Param("offer_id"))
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ToggleOffer handles POST /api/devices/:id/offers/:offer_id/toggle.
func (h *Handler) ToggleOffer(c *gin.Context) {
	d, err := h.devices.ToggleOffer(c.Request.Context(), c.Param("id"), c.Param("offer_id"))
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
