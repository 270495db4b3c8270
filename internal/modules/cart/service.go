package cart

import (
	"context"
	"errors"
	"log"
	"sort"

	"gorm.io/gorm"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/catalog"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/pricing"
)

var ErrProductUnavailable = errors.New("product unavailable")

type Service struct {
	repo     *Repo
	products *catalog.Repo
}

func NewService(db *gorm.DB, products *catalog.Repo) *Service {
	return &Service{repo: NewRepo(db), products: products}
}

func (s *Service) Repo() *Repo { return s.repo }

// Lines resolves the user's cart against the catalog into priced lines.
// Price and line discount are captured from the product at read time;
// rows whose product has disappeared are skipped, matching how the cart
// page tolerates a deleted product.
func (s *Service) Lines(ctx context.Context, userID string) ([]pricing.Line, error) {
	crt, err := s.repo.GetOrCreateUserCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Items(ctx, crt.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	sort.Strings(ids)

	prods, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		p, ok := prods[it.ProductID]
		if !ok {
			log.Printf("cart: product %s gone, skipping line", it.ProductID)
			continue
		}
		lines = append(lines, pricing.Line{
			ProductID:       p.ID,
			Quantity:        it.Quantity,
			UnitPrice:       p.Price,
			DiscountPercent: p.DiscountPercent,
		})
	}
	return lines, nil
}

func (s *Service) Add(ctx context.Context, userID, productID string, qty int) error {
	if _, err := s.products.Get(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductUnavailable
		}
		return err
	}
	crt, err := s.repo.GetOrCreateUserCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.AddItem(ctx, crt.ID, productID, qty)
}

func (s *Service) SetQty(ctx context.Context, userID, productID string, qty int) error {
	crt, err := s.repo.GetOrCreateUserCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.SetItemQty(ctx, crt.ID, productID, qty)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	crt, err := s.repo.GetOrCreateUserCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.RemoveItem(ctx, crt.ID, productID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	crt, err := s.repo.GetOrCreateUserCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.Clear(ctx, crt.ID)
}
