package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/refunds"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/shared/apperr"
)

type AdminHandler struct {
	orders  *orders.Service
	refunds *refunds.Service
}

func NewAdminHandler(ordersSvc *orders.Service, refundsSvc *refunds.Service) *AdminHandler {
	return &AdminHandler{orders: ordersSvc, refunds: refundsSvc}
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	res, err := h.orders.Repo().AdminList(c.Request.Context(), orders.AdminListParams{
		Q:      c.Query("q"),
		Status: c.Query("status"),
		Page:   page,
	})
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]orderView, len(res.Items))
	for i, o := range res.Items {
		out[i] = toOrderView(o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "total": res.Total})
}

type adminOrderUpdateRequest struct {
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
}

func (h *AdminHandler) UpdateOrder(c *gin.Context) {
	var req adminOrderUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, &req)
		return
	}

	in := orders.AdminUpdateInput{OrderID: c.Param("id"), Status: req.Status}
	if req.TotalAmount != "" {
		amt, err := decimal.NewFromString(req.TotalAmount)
		if err != nil || amt.IsNegative() {
			fail(c, apperr.InvalidErr("Invalid total amount.", nil))
			return
		}
		in.TotalAmount = amt
	}

	if err := h.orders.AdminUpdate(c.Request.Context(), in); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AdminHandler) ListPendingRefunds(c *gin.Context) {
	rs, err := h.refunds.ListPending(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]refundView, len(rs))
	for i, r := range rs {
		out[i] = toRefundView(r)
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}

type resolveRefundRequest struct {
	Status string `json:"status" binding:"required,oneof=approved_full approved_partial rejected"`
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

func (h *AdminHandler) ResolveRefund(c *gin.Context) {
	var req resolveRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, &req)
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			fail(c, apperr.InvalidErr("Invalid refund amount.", nil))
			return
		}
	}

	res, err := h.refunds.Resolve(c.Request.Context(), refunds.ResolveInput{
		ReportID:     c.Param("id"),
		TargetStatus: req.Status,
		Amount:       amount,
		Note:         req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"report":       toRefundView(res.Report),
		"order_status": res.OrderStatus,
	}
	if res.CreditIssued != nil {
		resp["credit"] = gin.H{
			"id":     res.CreditIssued.ID,
			"amount": res.CreditIssued.Amount.StringFixed(2),
		}
	}
	if res.BonusPoints > 0 {
		resp["bonus_points"] = res.BonusPoints
	}
	c.JSON(http.StatusOK, resp)
}
