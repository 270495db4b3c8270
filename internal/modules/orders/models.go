package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID               string          `gorm:"type:char(36);primaryKey"`
	UserID           string          `gorm:"type:char(36);not null;index:ix_orders_user_id"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	DiscountPercent  int             `gorm:"not null;default:0"`
	Status           string          `gorm:"type:varchar(24);not null;index:ix_orders_status"`
	TransactionID    *string         `gorm:"type:varchar(128)"`
	TransactionRefID *string         `gorm:"type:varchar(128)"`
	PaymentMethod    string          `gorm:"type:varchar(16);not null"`
	CreatedAt        time.Time       `gorm:"type:datetime(3);not null"`
	UpdatedAt        time.Time       `gorm:"type:datetime(3);not null"`
}

func (Order) TableName() string { return "orders" }

// OrderItem captures the discounted unit price at purchase time; it is
// never recomputed from the current product price.
type OrderItem struct {
	ID        string          `gorm:"type:char(36);primaryKey"`
	OrderID   string          `gorm:"type:char(36);not null;index:ix_order_items_order_id"`
	ProductID string          `gorm:"type:char(36);not null;index:ix_order_items_product_id"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time       `gorm:"type:datetime(3);not null"`
}

func (OrderItem) TableName() string { return "order_items" }
