package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/middleware"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
)

type MembershipHandler struct {
	points *loyalty.Ledger
}

func NewMembershipHandler(points *loyalty.Ledger) *MembershipHandler {
	return &MembershipHandler{points: points}
}

func (h *MembershipHandler) Join(c *gin.Context) {
	if err := h.points.Join(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *MembershipHandler) Cancel(c *gin.Context) {
	if err := h.points.Cancel(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *MembershipHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)

	member, err := h.points.IsMember(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}
	balance, err := h.points.Balance(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member, "points": balance})
}
