package refunds

import (
	"time"

	"github.com/shopspring/decimal"
)

// Support types a customer can request.
const (
	SupportFullRefund    = "full_refund"
	SupportPartialRefund = "partial_refund"
)

// Report statuses. A report is resolved exactly once; the three resolved
// states are terminal.
const (
	StatusPending         = "pending"
	StatusApprovedFull    = "approved_full"
	StatusApprovedPartial = "approved_partial"
	StatusRejected        = "rejected"
)

// Report is one customer refund request against an order. Orders are not
// hard-limited to a single report: a rejected report can be followed by a
// new submission, and "latest report wins" is the read rule everywhere.
type Report struct {
	ID             string          `gorm:"type:char(36);primaryKey"`
	OrderID        string          `gorm:"type:char(36);not null;index:ix_refund_reports_order_id"`
	UserID         string          `gorm:"type:char(36);not null;index:ix_refund_reports_user_id"`
	Reason         string          `gorm:"type:varchar(128);not null"`
	Description    string          `gorm:"type:text;not null"`
	ImageURL       *string         `gorm:"type:varchar(512)"`
	SupportType    string          `gorm:"type:varchar(24);not null"`
	Status         string          `gorm:"type:varchar(24);not null;default:'pending';index:ix_refund_reports_status"`
	RefundAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	ResolutionNote *string         `gorm:"type:varchar(512)"`
	CreatedAt      time.Time       `gorm:"type:datetime(3);not null"`
	UpdatedAt      time.Time       `gorm:"type:datetime(3);not null"`
}

func (Report) TableName() string { return "refund_reports" }
