package refunds

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/storecredit"
)

var (
	ErrReportNotFound     = errors.New("refund report not found")
	ErrReportPending      = errors.New("order already has a pending refund report")
	ErrAlreadyResolved    = errors.New("refund report already resolved")
	ErrInvalidResolution  = errors.New("invalid refund resolution")
	ErrInvalidSupport     = errors.New("invalid support type")
	ErrOrderNotRefundable = errors.New("order is not eligible for a refund")
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	orders *orders.Service
	points *loyalty.Ledger
	credit *storecredit.Ledger
}

func NewService(db *gorm.DB, logger *slog.Logger, ordersSvc *orders.Service, points *loyalty.Ledger, credit *storecredit.Ledger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger, orders: ordersSvc, points: points, credit: credit}
}

type SubmitInput struct {
	UserID      string
	OrderID     string
	Reason      string
	Description string
	ImageURL    string
	SupportType string
}

// Submit files a refund report for the caller's own order. Resubmission
// after a rejection is allowed; a second report while one is still
// pending is not.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Report, error) {
	if in.SupportType != SupportFullRefund && in.SupportType != SupportPartialRefund {
		return Report{}, ErrInvalidSupport
	}

	ord, _, err := s.orders.Repo().GetWithItems(ctx, in.OrderID)
	if err != nil {
		if orders.IsNotFound(err) {
			return Report{}, gorm.ErrRecordNotFound
		}
		return Report{}, err
	}
	if ord.UserID != in.UserID {
		return Report{}, orders.ErrNotOwner
	}
	// Only live orders can be reported on. A cancelled or already
	// refunded order has no money left to claim against.
	if ord.Status != orders.StatusProcessing && ord.Status != orders.StatusCompleted {
		return Report{}, ErrOrderNotRefundable
	}

	latest, err := s.Latest(ctx, in.OrderID)
	if err != nil {
		return Report{}, err
	}
	if latest != nil && latest.Status == StatusPending {
		return Report{}, ErrReportPending
	}

	now := time.Now()
	r := Report{
		ID:          uuid.NewString(),
		OrderID:     in.OrderID,
		UserID:      in.UserID,
		Reason:      strings.TrimSpace(in.Reason),
		Description: strings.TrimSpace(in.Description),
		SupportType: in.SupportType,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ImageURL != "" {
		v := in.ImageURL
		r.ImageURL = &v
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return Report{}, err
	}
	return r, nil
}

// Latest returns the most recent report for an order, nil if none exists.
func (s *Service) Latest(ctx context.Context, orderID string) (*Report, error) {
	var r Report
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) Get(ctx context.Context, id string) (Report, error) {
	var r Report
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Report{}, ErrReportNotFound
	}
	return r, err
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Report, error) {
	var rs []Report
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rs).Error
	return rs, err
}

// ListPending is the admin resolution queue, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]Report, error) {
	var rs []Report
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at ASC").
		Find(&rs).Error
	return rs, err
}

type ResolveInput struct {
	ReportID     string
	TargetStatus string // approved_full|approved_partial|rejected
	Amount       decimal.Decimal
	Note         string
}

type ResolveResult struct {
	Report       Report
	OrderStatus  string
	CreditIssued *storecredit.Credit
	BonusPoints  int
}

// Resolve settles a report. The steps run in order and commit
// independently: the report update is the gate, and once it lands the
// order transition, credit issue and bonus grant each log and continue on
// failure rather than rolling the report back.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (ResolveResult, error) {
	approved := in.TargetStatus == StatusApprovedFull || in.TargetStatus == StatusApprovedPartial
	switch {
	case in.TargetStatus == StatusRejected:
		if strings.TrimSpace(in.Note) == "" {
			return ResolveResult{}, ErrInvalidResolution
		}
	case in.TargetStatus == StatusApprovedPartial:
		// A partial approval with no amount would resolve as a $0.00
		// refund, so the amount must be supplied and positive.
		if !in.Amount.IsPositive() {
			return ResolveResult{}, ErrInvalidResolution
		}
	case in.TargetStatus == StatusApprovedFull:
		if in.Amount.IsNegative() {
			return ResolveResult{}, ErrInvalidResolution
		}
	default:
		return ResolveResult{}, ErrInvalidResolution
	}

	r, err := s.Get(ctx, in.ReportID)
	if err != nil {
		return ResolveResult{}, err
	}
	if r.Status != StatusPending {
		return ResolveResult{}, ErrAlreadyResolved
	}
	ord, _, err := s.orders.Repo().GetWithItems(ctx, r.OrderID)
	if err != nil {
		return ResolveResult{}, err
	}
	// An approval pays out, so the order must still hold the money. An
	// order that was cancelled or refunded after the report was filed can
	// only be rejected.
	if approved && ord.Status != orders.StatusProcessing && ord.Status != orders.StatusCompleted {
		return ResolveResult{}, ErrOrderNotRefundable
	}

	amount := decimal.Zero
	switch in.TargetStatus {
	case StatusApprovedFull:
		// A full approval always refunds the order total, whatever was
		// typed into the form.
		amount = ord.TotalAmount
	case StatusApprovedPartial:
		amount = in.Amount.Round(2)
	}

	updates := map[string]any{
		"status":        in.TargetStatus,
		"refund_amount": amount,
		"updated_at":    time.Now(),
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		updates["resolution_note"] = note
	}
	res := s.db.WithContext(ctx).Model(&Report{}).
		Where("id = ? AND status = ?", r.ID, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return ResolveResult{}, res.Error
	}
	if res.RowsAffected != 1 {
		return ResolveResult{}, ErrAlreadyResolved
	}
	r.Status = in.TargetStatus
	r.RefundAmount = amount

	out := ResolveResult{Report: r, OrderStatus: ord.Status}

	// Order transition. An approval against an order that never reached
	// completed means the goods never shipped, so it cancels the order
	// outright. A rejection only marks completed orders; anything else is
	// left untouched.
	target := ""
	switch {
	case approved && ord.Status == orders.StatusProcessing:
		target = orders.StatusCancelled
	case in.TargetStatus == StatusApprovedFull && ord.Status == orders.StatusCompleted:
		target = orders.StatusRefundFull
	case in.TargetStatus == StatusApprovedPartial && ord.Status == orders.StatusCompleted:
		target = orders.StatusRefundPartial
	case in.TargetStatus == StatusRejected && ord.Status == orders.StatusCompleted:
		target = orders.StatusRefundRejected
	}
	if target != "" {
		if err := s.orders.TransitionTo(ctx, ord.ID, target); err != nil {
			s.logger.Error("refund resolution: order transition",
				"report_id", r.ID, "order_id", ord.ID, "target", target, "error", err)
		} else {
			out.OrderStatus = target
		}
	}

	if !approved {
		return out, nil
	}

	// Store credit and loyalty bonus are goodwill follow-ups; either
	// failing leaves the approval standing.
	if amount.IsPositive() {
		c, err := s.credit.Issue(ctx, r.UserID, amount, r.ID)
		if err != nil {
			s.logger.Error("refund resolution: issue credit",
				"report_id", r.ID, "user_id", r.UserID, "amount", amount.StringFixed(2), "error", err)
		} else {
			out.CreditIssued = &c
		}
	}

	bonus := loyalty.RefundBonusPoints(ord.TotalAmount, in.TargetStatus == StatusApprovedFull)
	if bonus > 0 {
		member, err := s.points.IsMember(ctx, r.UserID)
		if err != nil {
			s.logger.Error("refund resolution: membership check",
				"report_id", r.ID, "user_id", r.UserID, "error", err)
		} else if member {
			if err := s.points.Grant(ctx, r.UserID, bonus); err != nil {
				s.logger.Error("refund resolution: bonus grant",
					"report_id", r.ID, "user_id", r.UserID, "points", bonus, "error", err)
			} else {
				out.BonusPoints = bonus
			}
		}
	}

	return out, nil
}
