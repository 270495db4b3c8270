package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetOrCreateUserCart(ctx context.Context, userID string) (Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Where(Cart{UserID: &userID}).
		Attrs(Cart{ID: uuid.NewString()}).
		FirstOrCreate(&c).Error
	return c, err
}

func (r *Repo) Items(ctx context.Context, cartID string) ([]CartItem, error) {
	var items []CartItem
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&items, "cart_id = ?", cartID).Error
	return items, err
}

// AddItem upserts: an existing line for the product gets its quantity bumped.
func (r *Repo) AddItem(ctx context.Context, cartID string, productID string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	now := time.Now()
	item := CartItem{
		ID:        uuid.NewString(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", qty),
				"updated_at": now,
			}),
		}).
		Create(&item).Error
}

func (r *Repo) SetItemQty(ctx context.Context, cartID string, productID string, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, cartID, productID)
	}
	return r.db.WithContext(ctx).
		Model(&CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now()}).Error
}

func (r *Repo) RemoveItem(ctx context.Context, cartID string, productID string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&CartItem{}).Error
}

func (r *Repo) Clear(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&CartItem{}).Error
}
