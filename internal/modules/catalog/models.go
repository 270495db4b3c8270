package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              string          `gorm:"type:char(36);primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Category        string          `gorm:"type:varchar(64);not null;index:ix_products_category" json:"category"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`
	Quantity        int             `gorm:"not null;default:0" json:"quantity"`
	ImageURL        string          `gorm:"type:varchar(512)" json:"image_url"`
	CreatedAt       time.Time       `gorm:"type:datetime(3);not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"type:datetime(3);not null" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
