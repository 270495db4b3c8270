package loyalty

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrAlreadyMember = errors.New("membership already exists")

type Membership struct {
	UserID    string    `gorm:"type:char(36);primaryKey"`
	Points    int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Membership) TableName() string { return "memberships" }

type Ledger struct{ db *gorm.DB }

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

func (l *Ledger) Join(ctx context.Context, userID string) error {
	now := time.Now()
	res := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		FirstOrCreate(&Membership{UserID: userID, Points: 0, CreatedAt: now, UpdatedAt: now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (l *Ledger) Cancel(ctx context.Context, userID string) error {
	return l.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Membership{}).Error
}

func (l *Ledger) IsMember(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&Membership{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n > 0, err
}

// Balance returns 0 for non-members; "no membership" and "zero points"
// look the same to callers, which is what gates redemption eligibility.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	var m Membership
	err := l.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.Points, nil
}

// Grant adds points. No-op when the user holds no membership.
func (l *Ledger) Grant(ctx context.Context, userID string, points int) error {
	if points <= 0 {
		return nil
	}
	return l.db.WithContext(ctx).Model(&Membership{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"points":     gorm.Expr("points + ?", points),
			"updated_at": time.Now(),
		}).Error
}

// Debit subtracts up to the current balance; the stored value never goes
// negative regardless of the requested amount.
func (l *Ledger) Debit(ctx context.Context, userID string, points int) error {
	if points <= 0 {
		return nil
	}
	return l.db.WithContext(ctx).Model(&Membership{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"points":     gorm.Expr("GREATEST(points - ?, 0)", points),
			"updated_at": time.Now(),
		}).Error
}

// Settle applies a purchase's net point movement (earned minus redeemed)
// as one adjustment, clamped at zero like Debit.
func (l *Ledger) Settle(ctx context.Context, userID string, earned, redeemed int) error {
	net := earned - redeemed
	if net == 0 {
		return nil
	}
	if net > 0 {
		return l.Grant(ctx, userID, net)
	}
	return l.Debit(ctx, userID, -net)
}
