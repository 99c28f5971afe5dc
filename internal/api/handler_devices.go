package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tortoise-backend/internal/model"
	"tortoise-backend/internal/repo"
)

type createDeviceRequest struct {
	Name           string               `json:"name" binding:"required"`
	Brand          string               `json:"brand" binding:"required"`
	Model          string               `json:"model" binding:"required"`
	Category       model.Category       `json:"category" binding:"required,oneof=phone laptop tablet smartwatch headphones other"`
	Image          string               `json:"image"`
	Price          int                  `json:"price" binding:"min=0"`
	MarketPrice    int                  `json:"marketPrice" binding:"min=0"`
	Stock          int                  `json:"stock" binding:"min=0"`
	Specifications model.Specifications `json:"specifications"`
	IsActive       bool                 `json:"isActive"`
}

// ListDevices handles GET /api/devices.
func (h *Handler) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, h.devices.GetAll(c.Request.Context()))
}

// GetDevice handles GET /api/devices/:id.
func (h *Handler) GetDevice(c *gin.Context) {
	d, ok := h.devices.GetByID(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// CreateDevice handles POST /api/devices.
func (h *Handler) CreateDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.devices.Create(c.Request.Context(), model.Device{
		Name:           req.Name,
		Brand:          req.Brand,
		Model:          req.Model,
		Category:       req.Category,
		Image:          req.Image,
		Price:          req.Price,
		MarketPrice:    req.MarketPrice,
		Stock:          req.Stock,
		Specifications: req.Specifications,
		IsActive:       req.IsActive,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, d)
}

type patchDeviceRequest struct {
	Name           *string               `json:"name"`
	Brand          *string               `json:"brand"`
	Model          *string               `json:"model"`
	Category       *model.Category       `json:"category" binding:"omitempty,oneof=phone laptop tablet smartwatch headphones other"`
	Image          *string               `json:"image"`
	Price          *int                  `json:"price" binding:"omitempty,min=0"`
	MarketPrice    *int                  `json:"marketPrice" binding:"omitempty,min=0"`
	Specifications *model.Specifications `json:"specifications"`
	IsActive       *bool                 `json:"isActive"`
}

// UpdateDevice handles PATCH /api/devices/:id.
func (h *Handler) UpdateDevice(c *gin.Context) {
	var req patchDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.devices.Update(c.Request.Context(), c.Param("id"), repo.Patch{
		Name:           req.Name,
		Brand:          req.Brand,
		Model:          req.Model,
		Category:       req.Category,
		Image:          req.Image,
		Price:          req.Price,
		MarketPrice:    req.MarketPrice,
		Specifications: req.Specifications,
		IsActive:       req.IsActive,
	})
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DeleteDevice handles DELETE /api/devices/:id. Deleting an unknown id
// succeeds, matching the repository's no-op semantics.
func (h *Handler) DeleteDevice(c *gin.Context) {
	if err := h.devices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type updateStockRequest struct {
	Stock *int `json:"stock" binding:"required,min=0"`
}

// UpdateStock handles PUT /api/devices/:id/stock.
func (h *Handler) UpdateStock(c *gin.Context) {
	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.devices.SetStock(c.Request.Context(), c.Param("id"), *req.Stock)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func respondRepoError(c *gin.Context, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
