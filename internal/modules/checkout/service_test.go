package checkout

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/cart"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/catalog"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/outbox"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/payments"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/storecredit"
)

// stubProvider scripts both phases so the flow is testable without a
// payment sandbox.
type stubProvider struct {
	name       string
	confirmed  payments.Outcome
	confirmErr error
	initiated  int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Initiate(ctx context.Context, req payments.InitiateRequest) (payments.InitiateResponse, error) {
	p.initiated++
	return payments.InitiateResponse{ExternalID: "stub_" + uuid.NewString()}, nil
}

func (p *stubProvider) Confirm(ctx context.Context, req payments.ConfirmRequest) (payments.Outcome, error) {
	return p.confirmed, p.confirmErr
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	carts    *cart.Service
	orders   *orders.Service
	credits  *storecredit.Ledger
	intents  *payments.IntentStore
	provider *stubProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&catalog.Product{}, &cart.Cart{}, &cart.CartItem{},
		&orders.Order{}, &orders.OrderItem{}, &outbox.Task{},
		&loyalty.Membership{}, &storecredit.Credit{}, &payments.PaymentIntent{},
	))

	products := catalog.NewRepo(db, nil)
	carts := cart.NewService(db, products)
	points := loyalty.NewLedger(db)
	credits := storecredit.NewLedger(db)
	ordersSvc := orders.NewService(db)
	intents := payments.NewIntentStore(db)
	provider := &stubProvider{name: "card", confirmed: payments.Outcome{Status: payments.StatusSuccess, CaptureID: "cap_1"}}

	svc := NewService(nil, carts, ordersSvc, points, credits, intents,
		map[string]payments.Provider{"card": provider}, nil)

	return &fixture{db: db, svc: svc, carts: carts, orders: ordersSvc, credits: credits, intents: intents, provider: provider}
}

func (f *fixture) seedCart(t *testing.T, userID string, unitPrice string, qty int) {
	t.Helper()
	p := catalog.Product{
		ID:       uuid.NewString(),
		Name:     "Test Beans 400g",
		Category: "pantry",
		Price:    decimal.RequireFromString(unitPrice),
		Quantity: 100,
	}
	require.NoError(t, f.db.Create(&p).Error)
	require.NoError(t, f.carts.Add(context.Background(), userID, p.ID, qty))
}

func TestBuildQuoteFirstOrderDiscount(t *testing.T) {
	f := newFixture(t)
	userID := uuid.NewString()
	f.seedCart(t, userID, "10.00", 2)

	q, err := f.svc.BuildQuote(context.Background(), userID, 0, false)
	require.NoError(t, err)
	require.Equal(t, 25, q.Computation.DiscountPercent)
	require.Equal(t, "20.00", q.Computation.CartTotal.StringFixed(2))
	require.Equal(t, "15.00", q.Computation.PayableTotal.StringFixed(2))
}

func TestBuildQuoteEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BuildQuote(context.Background(), uuid.NewString(), 0, false)
	require.ErrorIs(t, err, orders.ErrCartEmpty)
}

func TestBeginUnknownMethod(t *testing.T) {
	f := newFixture(t)
	userID := uuid.NewString()
	f.seedCart(t, userID, "10.00", 1)

	_, err := f.svc.Begin(context.Background(), BeginInput{UserID: userID, Method: "crypto"})
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestCheckoutEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	f.seedCart(t, userID, "10.00", 2)

	begin, err := f.svc.Begin(ctx, BeginInput{UserID: userID, Method: "card"})
	require.NoError(t, err)
	require.Equal(t, "15.00", begin.Amount.StringFixed(2))
	require.Equal(t, 1, f.provider.initiated)

	res, err := f.svc.Complete(ctx, CompleteInput{UserID: userID, ExternalRef: begin.ExternalRef})
	require.NoError(t, err)
	require.Equal(t, payments.StatusSuccess, res.Status)
	require.NotNil(t, res.Order)
	require.Equal(t, "15.00", res.Order.TotalAmount.StringFixed(2))
	require.Equal(t, orders.StatusProcessing, res.Order.Status)

	// cart cleared, intent consumed
	lines, err := f.carts.Lines(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, lines)

	_, err = f.intents.Find(ctx, userID, begin.ExternalRef)
	require.ErrorIs(t, err, payments.ErrIntentConsumed)

	// a second confirm for the same reference cannot mint a second order
	_, err = f.svc.Complete(ctx, CompleteInput{UserID: userID, ExternalRef: begin.ExternalRef})
	require.ErrorIs(t, err, payments.ErrIntentConsumed)
}

func TestCompleteFailedOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	f.seedCart(t, userID, "8.00", 1)
	f.provider.confirmed = payments.Outcome{Status: payments.StatusFailed}

	begin, err := f.svc.Begin(ctx, BeginInput{UserID: userID, Method: "card"})
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, CompleteInput{UserID: userID, ExternalRef: begin.ExternalRef})
	require.NoError(t, err)
	require.Equal(t, payments.StatusFailed, res.Status)
	require.Nil(t, res.Order)

	// the intent is burned; the cart is untouched
	_, err = f.intents.Find(ctx, userID, begin.ExternalRef)
	require.ErrorIs(t, err, payments.ErrIntentExpired)

	lines, err := f.carts.Lines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestCompletePendingOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	f.seedCart(t, userID, "8.00", 1)
	f.provider.confirmed = payments.Outcome{Status: payments.StatusPending}

	begin, err := f.svc.Begin(ctx, BeginInput{UserID: userID, Method: "card"})
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, CompleteInput{UserID: userID, ExternalRef: begin.ExternalRef})
	require.NoError(t, err)
	require.Equal(t, payments.StatusPending, res.Status)

	// still claimable once the rail settles
	f.provider.confirmed = payments.Outcome{Status: payments.StatusSuccess, CaptureID: "cap_2"}
	res, err = f.svc.Complete(ctx, CompleteInput{UserID: userID, ExternalRef: begin.ExternalRef})
	require.NoError(t, err)
	require.Equal(t, payments.StatusSuccess, res.Status)
}

func TestCompleteSurfacesReconciliationGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	f.seedCart(t, userID, "10.00", 2)

	begin, err := f.svc.Begin(ctx, BeginInput{UserID: userID, Method: "card"})
	require.NoError(t, err)

	// sabotage order persistence so the capture succeeds but the order
	// cannot be written
	require.NoError(t, f.db.Migrator().DropTable(&orders.OrderItem{}))
	t.Cleanup(func() {
		require.NoError(t, f.db.AutoMigrate(&orders.OrderItem{}))
	})

	_, err = f.svc.Complete(ctx, CompleteInput{UserID: userID, ExternalRef: begin.ExternalRef})
	require.ErrorIs(t, err, ErrReconciliationGap)

	// the intent was consumed before the order write, so the failure
	// cannot be replayed into a double charge
	_, err = f.intents.Find(ctx, userID, begin.ExternalRef)
	require.ErrorIs(t, err, payments.ErrIntentConsumed)

	// the cart survives for support to re-create the order from
	lines, err := f.carts.Lines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestQuoteAppliesCreditAndPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	f.seedCart(t, userID, "10.00", 2)

	points := loyalty.NewLedger(f.db)
	require.NoError(t, points.Join(ctx, userID))
	require.NoError(t, points.Grant(ctx, userID, 40))
	_, err := f.credits.Issue(ctx, userID, decimal.RequireFromString("5.00"), "")
	require.NoError(t, err)

	// first order: 20.00 -> 15.00; 40 points -> 4.00 off; credit covers 5.00
	q, err := f.svc.BuildQuote(ctx, userID, 40, true)
	require.NoError(t, err)
	require.Equal(t, 40, q.Computation.LoyaltyPointsUsed)
	require.Equal(t, "4.00", q.Computation.LoyaltyDiscount.StringFixed(2))
	require.Equal(t, "5.00", q.Computation.RefundCreditAmount.StringFixed(2))
	require.Equal(t, "6.00", q.Computation.PayableTotal.StringFixed(2))
}
