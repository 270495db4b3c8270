package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/cart"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/outbox"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/payments"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/pricing"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/storecredit"
)

const currency = "SGD"

var (
	ErrUnknownMethod = errors.New("unknown payment method")

	// ErrReconciliationGap means the provider captured the charge but the
	// order never persisted. The capture id is in the log so support can
	// refund or re-create the order by hand.
	ErrReconciliationGap = errors.New("payment captured but order creation failed")
)

// Service drives a checkout end to end: quote, initiate with a payment
// rail, confirm, finalize. Totals are always recomputed server-side; the
// client never supplies an amount.
type Service struct {
	logger     *slog.Logger
	carts      *cart.Service
	orders     *orders.Service
	points     *loyalty.Ledger
	credits    *storecredit.Ledger
	intents    *payments.IntentStore
	providers  map[string]payments.Provider
	dispatcher *outbox.Dispatcher
}

func NewService(
	logger *slog.Logger,
	carts *cart.Service,
	ordersSvc *orders.Service,
	points *loyalty.Ledger,
	credits *storecredit.Ledger,
	intents *payments.IntentStore,
	providers map[string]payments.Provider,
	dispatcher *outbox.Dispatcher,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:     logger,
		carts:      carts,
		orders:     ordersSvc,
		points:     points,
		credits:    credits,
		intents:    intents,
		providers:  providers,
		dispatcher: dispatcher,
	}
}

// snapshot is what a payment intent pins between initiate and confirm.
// The confirm path trusts nothing from the client except the external
// reference; everything priced lives here.
type snapshot struct {
	Method      string              `json:"method"`
	Computation pricing.Computation `json:"computation"`
	Lines       []pricing.Line      `json:"lines"`
}

type Quote struct {
	Computation     pricing.Computation
	Lines           []pricing.Line
	PointsBalance   int
	MaxPoints       int
	AvailableCredit *storecredit.Credit
}

// BuildQuote prices the user's cart with the requested redemptions
// applied. Requested points are clamped to both the balance and the
// order-value cap before the engine sees them.
func (s *Service) BuildQuote(ctx context.Context, userID string, requestedPoints int, useCredit bool) (Quote, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	if len(lines) == 0 {
		return Quote{}, orders.ErrCartEmpty
	}

	priorOrders, err := s.orders.Repo().CountByUser(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	balance, err := s.points.Balance(ctx, userID)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{Lines: lines, PointsBalance: balance}

	// Pre-compute without redemptions to learn the discounted total the
	// point cap keys off.
	base := pricing.Compute(lines, priorOrders, 0, nil)
	q.MaxPoints = pricing.MaxRedeemablePoints(base.DiscountedTotal)

	points := requestedPoints
	if points > balance {
		points = balance
	}
	if points < 0 {
		points = 0
	}

	var credit *pricing.CreditOption
	if useCredit {
		c, err := s.credits.FirstAvailable(ctx, userID)
		if err != nil {
			return Quote{}, err
		}
		if c != nil {
			q.AvailableCredit = c
			credit = &pricing.CreditOption{ID: c.ID, Amount: c.Amount}
		}
	}

	q.Computation = pricing.Compute(lines, priorOrders, points, credit)
	return q, nil
}

type BeginInput struct {
	UserID          string
	Method          string // card|paypal|nets
	RequestedPoints int
	UseCredit       bool
}

type BeginResult struct {
	ExternalRef string
	RedirectURL string
	QRPayload   string
	Amount      decimal.Decimal
}

// Begin prices the cart, opens a payment with the chosen rail and pins
// the result to an intent. Nothing is written to the order tables yet;
// an abandoned Begin only leaves a pending intent for the sweep.
func (s *Service) Begin(ctx context.Context, in BeginInput) (BeginResult, error) {
	provider, ok := s.providers[in.Method]
	if !ok {
		return BeginResult{}, ErrUnknownMethod
	}

	q, err := s.BuildQuote(ctx, in.UserID, in.RequestedPoints, in.UseCredit)
	if err != nil {
		return BeginResult{}, err
	}

	resp, err := provider.Initiate(ctx, payments.InitiateRequest{
		UserID:   in.UserID,
		Amount:   q.Computation.PayableTotal,
		Currency: currency,
	})
	if err != nil {
		return BeginResult{}, fmt.Errorf("initiate %s payment: %w", in.Method, err)
	}

	snap := snapshot{Method: in.Method, Computation: q.Computation, Lines: q.Lines}
	if _, err := s.intents.Create(ctx, in.UserID, in.Method, resp.ExternalID, snap); err != nil {
		return BeginResult{}, err
	}

	s.logger.Info("checkout initiated",
		"user_id", in.UserID,
		"method", in.Method,
		"external_ref", resp.ExternalID,
		"amount", q.Computation.PayableTotal.StringFixed(2))

	return BeginResult{
		ExternalRef: resp.ExternalID,
		RedirectURL: resp.RedirectURL,
		QRPayload:   resp.QRPayload,
		Amount:      q.Computation.PayableTotal,
	}, nil
}

type CompleteInput struct {
	UserID      string
	ExternalRef string
	PayerID     string
	Card        *payments.CardDetails
}

type CompleteResult struct {
	Status string // success|pending|failed
	Order  *orders.Order
}

// Complete confirms the payment with the provider and, on success,
// finalizes the order. The intent consume is the idempotency gate: two
// racing confirms for the same reference produce exactly one order.
func (s *Service) Complete(ctx context.Context, in CompleteInput) (CompleteResult, error) {
	intent, err := s.intents.Find(ctx, in.UserID, in.ExternalRef)
	if err != nil {
		return CompleteResult{}, err
	}

	var snap snapshot
	if err := intent.DecodeSnapshot(&snap); err != nil {
		return CompleteResult{}, err
	}
	provider, ok := s.providers[intent.Provider]
	if !ok {
		return CompleteResult{}, ErrUnknownMethod
	}

	outcome, err := provider.Confirm(ctx, payments.ConfirmRequest{
		ExternalID:  in.ExternalRef,
		PayerID:     in.PayerID,
		Card:        in.Card,
		InitiatedAt: intent.CreatedAt,
	})
	if err != nil {
		if errors.Is(err, payments.ErrStatusAmbiguous) {
			s.intents.MarkFailed(ctx, intent.ID)
		}
		return CompleteResult{}, err
	}

	switch outcome.Status {
	case payments.StatusPending:
		return CompleteResult{Status: payments.StatusPending}, nil
	case payments.StatusFailed:
		s.intents.MarkFailed(ctx, intent.ID)
		return CompleteResult{Status: payments.StatusFailed}, nil
	}

	if err := s.intents.Consume(ctx, intent.ID); err != nil {
		return CompleteResult{}, err
	}

	res, err := s.orders.CreateFromCheckout(ctx, orders.CreateFromCheckoutInput{
		UserID:           in.UserID,
		PaymentMethod:    intent.Provider,
		TransactionID:    outcome.CaptureID,
		TransactionRefID: in.ExternalRef,
		Computation:      snap.Computation,
		Lines:            snap.Lines,
		EarnedPoints:     loyalty.PurchasePoints(snap.Computation.PayableTotal),
	})
	if err != nil {
		// The charge is captured but no order exists. Loud log with both
		// identifiers so support can reconcile or refund manually.
		s.logger.Error("captured payment without order",
			"user_id", in.UserID,
			"external_ref", in.ExternalRef,
			"capture_id", outcome.CaptureID,
			"error", err)
		return CompleteResult{}, fmt.Errorf("%w: %v", ErrReconciliationGap, err)
	}

	if err := s.carts.Clear(ctx, in.UserID); err != nil {
		s.logger.Warn("clear cart after checkout", "user_id", in.UserID, "error", err)
	}
	if s.dispatcher != nil {
		s.dispatcher.Kick()
	}

	s.logger.Info("checkout completed",
		"user_id", in.UserID,
		"order_id", res.Order.ID,
		"method", intent.Provider,
		"amount", res.Order.TotalAmount.StringFixed(2))

	return CompleteResult{Status: payments.StatusSuccess, Order: &res.Order}, nil
}
