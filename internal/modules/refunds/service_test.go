package refunds

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/outbox"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/pricing"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/storecredit"
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	orders  *orders.Service
	points  *loyalty.Ledger
	credits *storecredit.Ledger
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
		&orders.Order{}, &orders.OrderItem{}, &outbox.Task{},
		&loyalty.Membership{}, &storecredit.Credit{}, &Report{},
	))

	ordersSvc := orders.NewService(db)
	points := loyalty.NewLedger(db)
	credits := storecredit.NewLedger(db)
	return &fixture{
		db:      db,
		svc:     NewService(db, nil, ordersSvc, points, credits),
		orders:  ordersSvc,
		points:  points,
		credits: credits,
	}
}

// placeOrder creates a processing order totalling 15.00.
func (f *fixture) placeOrder(t *testing.T, userID string) orders.Order {
	t.Helper()
	lines := []pricing.Line{
		{ProductID: uuid.NewString(), Quantity: 3, UnitPrice: decimal.RequireFromString("5.00")},
	}
	res, err := f.orders.CreateFromCheckout(context.Background(), orders.CreateFromCheckoutInput{
		UserID:        userID,
		PaymentMethod: "card",
		Computation:   pricing.Compute(lines, 1, 0, nil),
		Lines:         lines,
	})
	require.NoError(t, err)
	return res.Order
}

func (f *fixture) submit(t *testing.T, userID, orderID, supportType string) Report {
	t.Helper()
	r, err := f.svc.Submit(context.Background(), SubmitInput{
		UserID:      userID,
		OrderID:     orderID,
		Reason:      "damaged",
		Description: "arrived crushed",
		SupportType: supportType,
	})
	require.NoError(t, err)
	return r
}

func TestSubmitGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	ord := f.placeOrder(t, userID)

	_, err := f.svc.Submit(ctx, SubmitInput{UserID: userID, OrderID: ord.ID, SupportType: "store_visit"})
	require.ErrorIs(t, err, ErrInvalidSupport)

	_, err = f.svc.Submit(ctx, SubmitInput{
		UserID: uuid.NewString(), OrderID: ord.ID,
		Reason: "x", Description: "y", SupportType: SupportFullRefund,
	})
	require.ErrorIs(t, err, orders.ErrNotOwner)

	f.submit(t, userID, ord.ID, SupportFullRefund)

	_, err = f.svc.Submit(ctx, SubmitInput{
		UserID: userID, OrderID: ord.ID,
		Reason: "x", Description: "y", SupportType: SupportFullRefund,
	})
	require.ErrorIs(t, err, ErrReportPending)
}

func TestResolveFullOnProcessingCancelsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	ord := f.placeOrder(t, userID)
	report := f.submit(t, userID, ord.ID, SupportFullRefund)

	res, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusApprovedFull,
		Amount:       decimal.RequireFromString("3.00"), // ignored for full approval
	})
	require.NoError(t, err)
	require.Equal(t, "15.00", res.Report.RefundAmount.StringFixed(2))
	require.Equal(t, orders.StatusCancelled, res.OrderStatus)

	got, _, err := f.orders.Repo().GetWithItems(ctx, ord.ID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusCancelled, got.Status)

	// store credit for the full amount
	require.NotNil(t, res.CreditIssued)
	require.Equal(t, "15.00", res.CreditIssued.Amount.StringFixed(2))
}

func TestResolvePartialBonusForMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	require.NoError(t, f.points.Join(ctx, userID))

	ord := f.placeOrder(t, userID)
	require.NoError(t, f.orders.MarkCompleted(ctx, ord.ID, userID, false))
	report := f.submit(t, userID, ord.ID, SupportPartialRefund)

	res, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusApprovedPartial,
		Amount:       decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusRefundPartial, res.OrderStatus)
	require.Equal(t, "5.00", res.Report.RefundAmount.StringFixed(2))

	// floor(floor(15.00*10) * 0.10) = 15
	require.Equal(t, 15, res.BonusPoints)
	balance, err := f.points.Balance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 15, balance)
}

func TestResolveNoBonusWithoutMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()

	ord := f.placeOrder(t, userID)
	require.NoError(t, f.orders.MarkCompleted(ctx, ord.ID, userID, false))
	report := f.submit(t, userID, ord.ID, SupportFullRefund)

	res, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusApprovedFull,
	})
	require.NoError(t, err)
	require.Zero(t, res.BonusPoints)
	require.Equal(t, orders.StatusRefundFull, res.OrderStatus)
}

func TestResolveRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()

	ord := f.placeOrder(t, userID)
	require.NoError(t, f.orders.MarkCompleted(ctx, ord.ID, userID, false))
	report := f.submit(t, userID, ord.ID, SupportFullRefund)

	// note is mandatory on rejection
	_, err := f.svc.Resolve(ctx, ResolveInput{ReportID: report.ID, TargetStatus: StatusRejected})
	require.ErrorIs(t, err, ErrInvalidResolution)

	res, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusRejected,
		Note:         "outside the refund window",
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusRefundRejected, res.OrderStatus)
	require.Nil(t, res.CreditIssued)
	require.Zero(t, res.BonusPoints)

	// second resolution attempt loses to the status guard
	_, err = f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusApprovedFull,
	})
	require.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestResolveRejectionLeavesProcessingOrderAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	ord := f.placeOrder(t, userID)
	report := f.submit(t, userID, ord.ID, SupportPartialRefund)

	res, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusRejected,
		Note:         "no evidence provided",
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusProcessing, res.OrderStatus)

	got, _, err := f.orders.Repo().GetWithItems(ctx, ord.ID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusProcessing, got.Status)
}

func TestSubmitRequiresLiveOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	ord := f.placeOrder(t, userID)
	require.NoError(t, f.orders.TransitionTo(ctx, ord.ID, orders.StatusCancelled))

	_, err := f.svc.Submit(ctx, SubmitInput{
		UserID: userID, OrderID: ord.ID,
		Reason: "x", Description: "y", SupportType: SupportFullRefund,
	})
	require.ErrorIs(t, err, ErrOrderNotRefundable)
}

func TestFullApprovalCannotRepeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	ord := f.placeOrder(t, userID)

	report := f.submit(t, userID, ord.ID, SupportFullRefund)
	res, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusApprovedFull,
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusCancelled, res.OrderStatus)
	require.NotNil(t, res.CreditIssued)

	// the order is spent now, so it cannot be reported on again
	_, err = f.svc.Submit(ctx, SubmitInput{
		UserID: userID, OrderID: ord.ID,
		Reason: "x", Description: "y", SupportType: SupportFullRefund,
	})
	require.ErrorIs(t, err, ErrOrderNotRefundable)

	var count int64
	require.NoError(t, f.db.Model(&storecredit.Credit{}).
		Where("user_id = ?", userID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestResolveApprovalRefusedOnceOrderIsSpent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	ord := f.placeOrder(t, userID)
	require.NoError(t, f.orders.MarkCompleted(ctx, ord.ID, userID, false))
	report := f.submit(t, userID, ord.ID, SupportFullRefund)

	// order gets refunded out from under the pending report
	require.NoError(t, f.orders.TransitionTo(ctx, ord.ID, orders.StatusRefundFull))

	_, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusApprovedFull,
	})
	require.ErrorIs(t, err, ErrOrderNotRefundable)

	// the report is untouched and can still be rejected
	got, err := f.svc.Get(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)

	_, err = f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusRejected,
		Note:         "order already refunded",
	})
	require.NoError(t, err)
}

func TestResolvePartialRequiresAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	ord := f.placeOrder(t, userID)
	require.NoError(t, f.orders.MarkCompleted(ctx, ord.ID, userID, false))
	report := f.submit(t, userID, ord.ID, SupportPartialRefund)

	_, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusApprovedPartial,
	})
	require.ErrorIs(t, err, ErrInvalidResolution)

	_, err = f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusApprovedPartial,
		Amount:       decimal.RequireFromString("-1.00"),
	})
	require.ErrorIs(t, err, ErrInvalidResolution)
}

func TestResubmitAfterRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()
	ord := f.placeOrder(t, userID)
	report := f.submit(t, userID, ord.ID, SupportFullRefund)

	_, err := f.svc.Resolve(ctx, ResolveInput{
		ReportID:     report.ID,
		TargetStatus: StatusRejected,
		Note:         "incomplete description",
	})
	require.NoError(t, err)

	second := f.submit(t, userID, ord.ID, SupportFullRefund)
	require.NotEqual(t, report.ID, second.ID)

	latest, err := f.svc.Latest(ctx, ord.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
}
