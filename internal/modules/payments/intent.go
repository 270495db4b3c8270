package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lifetime of a pending checkout between initiate and confirm.
const IntentTTL = 20 * time.Minute

const (
	IntentPending  = "pending"
	IntentConsumed = "consumed"
	IntentExpired  = "expired"
	IntentFailed   = "failed"
)

// PaymentIntent pins the checkout snapshot (items, computed totals,
// discounts) to the provider's external identifier between initiate and
// confirm. It is looked up server-side on confirm, never trusted from
// client state.
type PaymentIntent struct {
	ID           string         `gorm:"type:char(36);primaryKey"`
	UserID       string         `gorm:"type:char(36);not null;index:ix_payment_intents_user_id"`
	Provider     string         `gorm:"type:varchar(16);not null"`
	ExternalRef  string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_payment_intents_external_ref"`
	SnapshotJSON datatypes.JSON `gorm:"type:json;not null"`
	Status       string         `gorm:"type:varchar(16);not null;default:'pending'"`
	ExpiresAt    time.Time      `gorm:"type:datetime(3);not null;index:ix_payment_intents_expires_at"`
	CreatedAt    time.Time      `gorm:"type:datetime(3);not null"`
	UpdatedAt    time.Time      `gorm:"type:datetime(3);not null"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }

func (pi PaymentIntent) DecodeSnapshot(v any) error {
	return json.Unmarshal(pi.SnapshotJSON, v)
}

type IntentStore struct{ db *gorm.DB }

func NewIntentStore(db *gorm.DB) *IntentStore { return &IntentStore{db: db} }

func (s *IntentStore) Create(ctx context.Context, userID, provider, externalRef string, snapshot any) (PaymentIntent, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return PaymentIntent{}, err
	}
	now := time.Now()
	pi := PaymentIntent{
		ID:           uuid.NewString(),
		UserID:       userID,
		Provider:     provider,
		ExternalRef:  externalRef,
		SnapshotJSON: datatypes.JSON(raw),
		Status:       IntentPending,
		ExpiresAt:    now.Add(IntentTTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&pi).Error; err != nil {
		return PaymentIntent{}, err
	}
	return pi, nil
}

// Find loads the pending intent for (user, external ref). A ref that does
// not belong to the user is indistinguishable from a missing one, so a
// confirm request can never claim someone else's checkout.
func (s *IntentStore) Find(ctx context.Context, userID, externalRef string) (PaymentIntent, error) {
	var pi PaymentIntent
	err := s.db.WithContext(ctx).
		First(&pi, "external_ref = ? AND user_id = ?", externalRef, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PaymentIntent{}, ErrIntentNotFound
	}
	if err != nil {
		return PaymentIntent{}, err
	}

	switch pi.Status {
	case IntentPending:
	case IntentConsumed:
		return PaymentIntent{}, ErrIntentConsumed
	default:
		return PaymentIntent{}, ErrIntentExpired
	}

	if time.Now().After(pi.ExpiresAt) {
		s.markStatus(ctx, pi.ID, IntentExpired)
		return PaymentIntent{}, ErrIntentExpired
	}
	return pi, nil
}

// Consume is the compare-and-swap that makes an intent claimable exactly
// once: pending -> consumed guarded by the current status.
func (s *IntentStore) Consume(ctx context.Context, intentID string) error {
	res := s.db.WithContext(ctx).Model(&PaymentIntent{}).
		Where("id = ? AND status = ?", intentID, IntentPending).
		Updates(map[string]any{"status": IntentConsumed, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrIntentConsumed
	}
	return nil
}

func (s *IntentStore) MarkFailed(ctx context.Context, intentID string) {
	s.markStatus(ctx, intentID, IntentFailed)
}

func (s *IntentStore) markStatus(ctx context.Context, intentID, status string) {
	_ = s.db.WithContext(ctx).Model(&PaymentIntent{}).
		Where("id = ? AND status = ?", intentID, IntentPending).
		Updates(map[string]any{"status": status, "updated_at": time.Now()}).Error
}

// ExpireStale sweeps pending intents past their deadline; run periodically
// by the outbox dispatcher.
func (s *IntentStore) ExpireStale(ctx context.Context) error {
	return s.db.WithContext(ctx).Model(&PaymentIntent{}).
		Where("status = ? AND expires_at < ?", IntentPending, time.Now()).
		Updates(map[string]any{"status": IntentExpired, "updated_at": time.Now()}).Error
}
