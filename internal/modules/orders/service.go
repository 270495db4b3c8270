package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/outbox"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/pricing"
)

type Service struct {
	db   *gorm.DB
	repo *Repo
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, repo: NewRepo(db)}
}

func (s *Service) Repo() *Repo { return s.repo }

type CreateFromCheckoutInput struct {
	UserID           string
	PaymentMethod    string
	TransactionID    string
	TransactionRefID string
	Computation      pricing.Computation
	Lines            []pricing.Line
	EarnedPoints     int
}

type CreateFromCheckoutResult struct {
	Order Order
	Items []OrderItem
}

// CreateFromCheckout is the transactional boundary of a checkout: the
// order row, its items, and the outbox tasks for every post-creation side
// effect commit together or not at all. The side effects themselves
// (stock decrement, loyalty settlement, credit consumption) run after
// commit via the dispatcher, isolated from each other and from the order.
func (s *Service) CreateFromCheckout(ctx context.Context, in CreateFromCheckoutInput) (CreateFromCheckoutResult, error) {
	if len(in.Lines) == 0 {
		return CreateFromCheckoutResult{}, ErrCartEmpty
	}

	now := time.Now()
	o := Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		TotalAmount:     in.Computation.PayableTotal,
		DiscountPercent: in.Computation.DiscountPercent,
		Status:          StatusProcessing,
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.TransactionID != "" {
		v := in.TransactionID
		o.TransactionID = &v
	}
	if in.TransactionRefID != "" {
		v := in.TransactionRefID
		o.TransactionRefID = &v
	}

	items := make([]OrderItem, 0, len(in.Lines))
	stockLines := make([]StockTaskLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			continue
		}
		items = append(items, OrderItem{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.DiscountedUnitPrice(),
			CreatedAt: now,
		})
		stockLines = append(stockLines, StockTaskLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	if len(items) == 0 {
		return CreateFromCheckoutResult{}, ErrCartEmpty
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		if err := outbox.Enqueue(tx, TopicStockDecrement, o.ID, StockTask{
			OrderID: o.ID,
			Lines:   stockLines,
		}); err != nil {
			return err
		}
		if err := outbox.Enqueue(tx, TopicLoyaltySettle, o.ID, LoyaltyTask{
			OrderID:  o.ID,
			UserID:   in.UserID,
			Earned:   in.EarnedPoints,
			Redeemed: in.Computation.LoyaltyPointsUsed,
		}); err != nil {
			return err
		}
		if in.Computation.RefundCreditID != "" {
			if err := outbox.Enqueue(tx, TopicCreditConsume, o.ID, CreditTask{
				OrderID:  o.ID,
				CreditID: in.Computation.RefundCreditID,
			}); err != nil {
				return err
			}
		}
		return outbox.Enqueue(tx, TopicOrderEvent, o.ID, OrderEvent{
			Type:          "order.created",
			OrderID:       o.ID,
			UserID:        in.UserID,
			TotalAmount:   in.Computation.PayableTotal,
			PaymentMethod: in.PaymentMethod,
			At:            now,
		})
	})
	if err != nil {
		return CreateFromCheckoutResult{}, err
	}

	return CreateFromCheckoutResult{Order: o, Items: items}, nil
}

// MarkCompleted records delivery acceptance by the owner (or an admin)
// and gates refund eligibility. The status value in the WHERE clause is
// the optimistic guard against a concurrent transition.
func (s *Service) MarkCompleted(ctx context.Context, orderID, actorUserID string, isAdmin bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", orderID).Error; err != nil {
			return err
		}
		if !isAdmin && o.UserID != actorUserID {
			return ErrNotOwner
		}
		if !CanTransition(o.Status, StatusCompleted) {
			return ErrInvalidTransition
		}

		res := tx.Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, o.Status).
			Updates(map[string]any{"status": StatusCompleted, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidTransition
		}
		return nil
	})
}

// TransitionTo applies a derived status change (refund resolution path),
// honoring the transition table and the optimistic status guard.
func (s *Service) TransitionTo(ctx context.Context, orderID, to string) error {
	if !ValidStatus(to) {
		return ErrInvalidTransition
	}
	var o Order
	if err := s.db.WithContext(ctx).First(&o, "id = ?", orderID).Error; err != nil {
		return err
	}
	if !CanTransition(o.Status, to) {
		return ErrInvalidTransition
	}
	res := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", o.ID, o.Status).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrInvalidTransition
	}
	return nil
}

type AdminUpdateInput struct {
	OrderID     string
	Status      string          // optional; must follow the transition table
	TotalAmount decimal.Decimal // optional; applied when positive
}

// AdminUpdate lets an admin correct an order's status or amount.
func (s *Service) AdminUpdate(ctx context.Context, in AdminUpdateInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", in.OrderID).Error; err != nil {
			return err
		}

		updates := map[string]any{"updated_at": time.Now()}
		if in.Status != "" && in.Status != o.Status {
			if !ValidStatus(in.Status) || !CanTransition(o.Status, in.Status) {
				return ErrInvalidTransition
			}
			updates["status"] = in.Status
		}
		if in.TotalAmount.IsPositive() {
			updates["total_amount"] = in.TotalAmount.Round(2)
		}
		if len(updates) == 1 {
			return nil
		}
		return tx.Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, o.Status).
			Updates(updates).Error
	})
}

// IsNotFound reports a missing order row to handlers.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
