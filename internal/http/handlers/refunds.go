package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/middleware"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/refunds"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/shared/apperr"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/storage"
)

const maxEvidenceBytes = 5 << 20

type RefundsHandler struct {
	refunds *refunds.Service
	files   storage.Storage
}

func NewRefundsHandler(svc *refunds.Service, files storage.Storage) *RefundsHandler {
	return &RefundsHandler{refunds: svc, files: files}
}

type refundView struct {
	ID             string  `json:"id"`
	OrderID        string  `json:"order_id"`
	Reason         string  `json:"reason"`
	Description    string  `json:"description"`
	ImageURL       *string `json:"image_url,omitempty"`
	SupportType    string  `json:"support_type"`
	Status         string  `json:"status"`
	RefundAmount   string  `json:"refund_amount"`
	ResolutionNote *string `json:"resolution_note,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func toRefundView(r refunds.Report) refundView {
	return refundView{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Reason:         r.Reason,
		Description:    r.Description,
		ImageURL:       r.ImageURL,
		SupportType:    r.SupportType,
		Status:         r.Status,
		RefundAmount:   r.RefundAmount.StringFixed(2),
		ResolutionNote: r.ResolutionNote,
		CreatedAt:      r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

type submitRefundRequest struct {
	OrderID     string `form:"order_id" binding:"required"`
	Reason      string `form:"reason" binding:"required,max=128"`
	Description string `form:"description" binding:"required,max=2000"`
	SupportType string `form:"support_type" binding:"required,oneof=full_refund partial_refund"`
}

// Submit accepts a multipart form so the customer can attach a photo of
// the damaged goods. The upload is optional; everything else is not.
func (h *RefundsHandler) Submit(c *gin.Context) {
	var req submitRefundRequest
	if err := c.ShouldBind(&req); err != nil {
		failBind(c, err, &req)
		return
	}

	imageURL := ""
	if fh, err := c.FormFile("image"); err == nil && fh != nil {
		if fh.Size > maxEvidenceBytes {
			fail(c, apperr.InvalidErr("Image too large (5 MB max).", nil))
			return
		}
		f, err := fh.Open()
		if err != nil {
			fail(c, err)
			return
		}
		defer f.Close()

		res, err := h.files.Put(c.Request.Context(), f, storage.PutInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		})
		if err != nil {
			fail(c, err)
			return
		}
		imageURL = res.URL
	}

	r, err := h.refunds.Submit(c.Request.Context(), refunds.SubmitInput{
		UserID:      middleware.UserID(c),
		OrderID:     req.OrderID,
		Reason:      req.Reason,
		Description: req.Description,
		ImageURL:    imageURL,
		SupportType: req.SupportType,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRefundView(r))
}

func (h *RefundsHandler) ListMine(c *gin.Context) {
	rs, err := h.refunds.ListByUser(c.Request.Context(), middleware.UserID(c))
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
