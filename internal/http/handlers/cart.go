package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/middleware"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/cart"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/pricing"
)

type CartHandler struct {
	carts *cart.Service
}

func NewCartHandler(carts *cart.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartLineView struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

func cartView(lines []pricing.Line) gin.H {
	total := decimal.Zero
	out := make([]cartLineView, len(lines))
	for i, l := range lines {
		lt := l.Total()
		total = total.Add(lt)
		out[i] = cartLineView{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.DiscountedUnitPrice().StringFixed(2),
			LineTotal: lt.StringFixed(2),
		}
	}
	return gin.H{"items": out, "total": total.Round(2).StringFixed(2)}
}

func (h *CartHandler) Show(c *gin.Context) {
	lines, err := h.carts.Lines(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(lines))
}

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}

func (h *CartHandler) Add(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, &req)
		return
	}
	if err := h.carts.Add(c.Request.Context(), middleware.UserID(c), req.ProductID, req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CartHandler) SetQty(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, &req)
		return
	}
	if err := h.carts.SetQty(c.Request.Context(), middleware.UserID(c), c.Param("productId"), req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CartHandler) Remove(c *gin.Context) {
	if err := h.carts.Remove(c.Request.Context(), middleware.UserID(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
