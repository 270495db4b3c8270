package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/middleware"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/validation"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/cart"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/checkout"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/payments"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/refunds"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/storecredit"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/shared/apperr"
)

// fail maps domain sentinels onto response kinds before handing off to
// the error middleware. Unknown errors stay internal.
func fail(c *gin.Context, err error) {
	var cve *payments.CardValidationError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = apperr.NotFoundErr("Not found.")
	case errors.Is(err, orders.ErrCartEmpty):
		err = apperr.InvalidErr("Your cart is empty.", nil)
	case errors.Is(err, orders.ErrNotOwner):
		err = apperr.ForbiddenErr("This order belongs to another account.")
	case errors.Is(err, orders.ErrInvalidTransition):
		err = apperr.ConflictErr("The order cannot change to that status.")
	case errors.Is(err, cart.ErrProductUnavailable):
		err = apperr.InvalidErr("One of the products is no longer available.", nil)
	case errors.Is(err, checkout.ErrUnknownMethod):
		err = apperr.InvalidErr("Unknown payment method.", nil)
	case errors.Is(err, checkout.ErrReconciliationGap):
		err = apperr.InternalErr("Your payment was captured but the order could not be created. Please contact support.", err)
	case errors.Is(err, payments.ErrIntentNotFound):
		err = apperr.NotFoundErr("No pending payment found.")
	case errors.Is(err, payments.ErrIntentExpired):
		err = apperr.ConflictErr("The payment session expired. Start checkout again.")
	case errors.Is(err, payments.ErrIntentConsumed):
		err = apperr.ConflictErr("This payment was already processed.")
	case errors.Is(err, payments.ErrStatusAmbiguous):
		err = apperr.ConflictErr("We could not confirm the payment in time. If you were charged, contact support.")
	case errors.As(err, &cve):
		err = apperr.InvalidErr("Check your card details.", cve.Fields)
	case errors.Is(err, loyalty.ErrAlreadyMember):
		err = apperr.ConflictErr("You are already a member.")
	case errors.Is(err, storecredit.ErrCreditUnavailable):
		err = apperr.ConflictErr("That store credit is no longer available.")
	case errors.Is(err, refunds.ErrReportNotFound):
		err = apperr.NotFoundErr("Refund report not found.")
	case errors.Is(err, refunds.ErrReportPending):
		err = apperr.ConflictErr("A refund report for this order is already being reviewed.")
	case errors.Is(err, refunds.ErrAlreadyResolved):
		err = apperr.ConflictErr("This refund report was already resolved.")
	case errors.Is(err, refunds.ErrInvalidResolution):
		err = apperr.InvalidErr("Invalid resolution request.", nil)
	case errors.Is(err, refunds.ErrInvalidSupport):
		err = apperr.InvalidErr("Unknown support type.", nil)
	case errors.Is(err, refunds.ErrOrderNotRefundable):
		err = apperr.ConflictErr("This order is not eligible for a refund.")
	default:
		if _, ok := apperr.As(err); !ok {
			err = apperr.Wrap(err)
		}
	}
	middleware.Fail(c, err)
}

func failBind(c *gin.Context, err error, dst any) {
	middleware.Fail(c, apperr.InvalidErr("Check the highlighted fields.", validation.FromBindError(err, dst)))
}
