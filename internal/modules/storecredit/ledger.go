package storecredit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	StatusAvailable = "available"
	StatusUsed      = "used"
)

var ErrCreditUnavailable = errors.New("refund credit not available")

// Credit is store credit issued from an approved refund. It is consumed at
// most once, bound to the order that claimed it.
type Credit struct {
	ID             string          `gorm:"type:char(36);primaryKey"`
	UserID         string          `gorm:"type:char(36);not null;index:ix_refund_credits_user_id"`
	RefundReportID *string         `gorm:"type:char(36)"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status         string          `gorm:"type:varchar(16);not null;default:'available'"`
	UsedOrderID    *string         `gorm:"type:char(36)"`
	CreatedAt      time.Time       `gorm:"type:datetime(3);not null"`
	UpdatedAt      time.Time       `gorm:"type:datetime(3);not null"`
}

func (Credit) TableName() string { return "refund_credits" }

type Ledger struct{ db *gorm.DB }

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

func (l *Ledger) Issue(ctx context.Context, userID string, amount decimal.Decimal, refundReportID string) (Credit, error) {
	now := time.Now()
	c := Credit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount.Round(2),
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if refundReportID != "" {
		id := refundReportID
		c.RefundReportID = &id
	}
	if err := l.db.WithContext(ctx).Create(&c).Error; err != nil {
		return Credit{}, err
	}
	return c, nil
}

// FirstAvailable returns the oldest spendable credit for the user, or nil.
func (l *Ledger) FirstAvailable(ctx context.Context, userID string) (*Credit, error) {
	var c Credit
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, StatusAvailable).
		Order("created_at ASC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (Credit, error) {
	var c Credit
	err := l.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, err
}

// Consume transitions available -> used bound to the given order. The
// status value in the WHERE clause is the lock: under concurrent attempts
// exactly one update reports a row affected.
func (l *Ledger) Consume(ctx context.Context, creditID string, orderID string) error {
	res := l.db.WithContext(ctx).Model(&Credit{}).
		Where("id = ? AND status = ?", creditID, StatusAvailable).
		Updates(map[string]any{
			"status":        StatusUsed,
			"used_order_id": orderID,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrCreditUnavailable
	}
	return nil
}
