package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/middleware"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/shared/apperr"
)

type OrdersHandler struct {
	orders *orders.Service
}

func NewOrdersHandler(svc *orders.Service) *OrdersHandler {
	return &OrdersHandler{orders: svc}
}

type orderView struct {
	ID              string  `json:"id"`
	TotalAmount     string  `json:"total_amount"`
	DiscountPercent int     `json:"discount_percent"`
	Status          string  `json:"status"`
	PaymentMethod   string  `json:"payment_method"`
	TransactionID   *string `json:"transaction_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
	ItemCount       int     `json:"item_count,omitempty"`
}

func toOrderView(o orders.Order) orderView {
	return orderView{
		ID:              o.ID,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		DiscountPercent: o.DiscountPercent,
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		TransactionID:   o.TransactionID,
		CreatedAt:       o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func (h *OrdersHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	res, err := h.orders.Repo().ListByUser(c.Request.Context(), orders.ListByUserParams{
		UserID: middleware.UserID(c),
		Page:   page,
		Status: c.Query("status"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]orderView, len(res.Items))
	for i, it := range res.Items {
		v := toOrderView(it.Order)
		v.ItemCount = it.Count
		out[i] = v
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "total": res.Total})
}

func (h *OrdersHandler) Get(c *gin.Context) {
	o, items, err := h.orders.Repo().GetWithItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if o.UserID != middleware.UserID(c) && !middleware.IsAdmin(c) {
		fail(c, apperr.ForbiddenErr("This order belongs to another account."))
		return
	}

	type itemView struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
		Price     string `json:"price"`
	}
	iv := make([]itemView, len(items))
	for i, it := range items {
		iv[i] = itemView{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price.StringFixed(2)}
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderView(o), "items": iv})
}

// Complete marks delivery accepted, which opens the refund window.
func (h *OrdersHandler) Complete(c *gin.Context) {
	err := h.orders.MarkCompleted(c.Request.Context(), c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": orders.StatusCompleted})
}
