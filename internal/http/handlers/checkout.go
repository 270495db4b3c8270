package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/middleware"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/checkout"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/payments"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/pricing"
)

type CheckoutHandler struct {
	checkout *checkout.Service
}

func NewCheckoutHandler(svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc}
}

type quoteRequest struct {
	Points    int  `json:"points" binding:"gte=0"`
	UseCredit bool `json:"use_credit"`
}

type computationView struct {
	CartTotal       string `json:"cart_total"`
	DiscountPercent int    `json:"discount_percent"`
	DiscountedTotal string `json:"discounted_total"`
	PointsUsed      int    `json:"points_used"`
	LoyaltyDiscount string `json:"loyalty_discount"`
	CreditApplied   string `json:"credit_applied"`
	PayableTotal    string `json:"payable_total"`
}

func toComputationView(comp pricing.Computation) computationView {
	return computationView{
		CartTotal:       comp.CartTotal.StringFixed(2),
		DiscountPercent: comp.DiscountPercent,
		DiscountedTotal: comp.DiscountedTotal.StringFixed(2),
		PointsUsed:      comp.LoyaltyPointsUsed,
		LoyaltyDiscount: comp.LoyaltyDiscount.StringFixed(2),
		CreditApplied:   comp.RefundCreditAmount.StringFixed(2),
		PayableTotal:    comp.PayableTotal.StringFixed(2),
	}
}

// Quote prices the cart without committing to anything, so the client
// can show the breakdown before the user picks a payment method.
func (h *CheckoutHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, &req)
		return
	}

	q, err := h.checkout.BuildQuote(c.Request.Context(), middleware.UserID(c), req.Points, req.UseCredit)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"computation":    toComputationView(q.Computation),
		"points_balance": q.PointsBalance,
		"max_points":     q.MaxPoints,
	}
	if q.AvailableCredit != nil {
		resp["available_credit"] = gin.H{
			"id":     q.AvailableCredit.ID,
			"amount": q.AvailableCredit.Amount.StringFixed(2),
		}
	}
	c.JSON(http.StatusOK, resp)
}

type beginRequest struct {
	Method    string `json:"method" binding:"required,oneof=card paypal nets"`
	Points    int    `json:"points" binding:"gte=0"`
	UseCredit bool   `json:"use_credit"`
}

func (h *CheckoutHandler) Begin(c *gin.Context) {
	var req beginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, &req)
		return
	}

	res, err := h.checkout.Begin(c.Request.Context(), checkout.BeginInput{
		UserID:          middleware.UserID(c),
		Method:          req.Method,
		RequestedPoints: req.Points,
		UseCredit:       req.UseCredit,
	})
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"external_ref": res.ExternalRef,
		"amount":       res.Amount.StringFixed(2),
	}
	if res.RedirectURL != "" {
		resp["redirect_url"] = res.RedirectURL
	}
	if res.QRPayload != "" {
		resp["qr_code"] = res.QRPayload
	}
	c.JSON(http.StatusOK, resp)
}

type confirmRequest struct {
	ExternalRef string `json:"external_ref" binding:"required"`
	PayerID     string `json:"payer_id"`
	Card        *struct {
		HolderName string `json:"holder_name"`
		Number     string `json:"number"`
		CVV        string `json:"cvv"`
		Expiry     string `json:"expiry"`
	} `json:"card"`
}

func (h *CheckoutHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, &req)
		return
	}

	in := checkout.CompleteInput{
		UserID:      middleware.UserID(c),
		ExternalRef: req.ExternalRef,
		PayerID:     req.PayerID,
	}
	if req.Card != nil {
		in.Card = &payments.CardDetails{
			HolderName: req.Card.HolderName,
			Number:     req.Card.Number,
			CVV:        req.Card.CVV,
			Expiry:     req.Card.Expiry,
		}
	}

	res, err := h.checkout.Complete(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{"status": res.Status}
	if res.Order != nil {
		resp["order"] = gin.H{
			"id":           res.Order.ID,
			"total_amount": res.Order.TotalAmount.StringFixed(2),
			"status":       res.Order.Status,
		}
	}
	c.JSON(http.StatusOK, resp)
}
