package stock

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/catalog"
)

type Line struct {
	ProductID string
	Quantity  int
}

// LineResult reports what happened to one product row. Short lines keep
// the order alive: the ledger floors stock at zero and surfaces the gap
// to the caller instead of failing the whole decrement.
type LineResult struct {
	ProductID string
	Requested int
	Applied   int
	Short     bool
}

type Ledger struct {
	db       *gorm.DB
	products *catalog.Repo
}

func NewLedger(db *gorm.DB, products *catalog.Repo) *Ledger {
	return &Ledger{db: db, products: products}
}

// DecrementForOrder subtracts each line's quantity from product stock,
// never below zero. Each decrement is a single conditional UPDATE; a line
// that cannot be fully satisfied is clamped to zero and reported short.
func (l *Ledger) DecrementForOrder(ctx context.Context, lines []Line) ([]LineResult, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	// deterministic order keeps concurrent checkouts deadlock-friendly
	want := make(map[string]int, len(lines))
	for _, ln := range lines {
		q := ln.Quantity
		if q < 1 {
			q = 1
		}
		want[ln.ProductID] += q
	}
	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]LineResult, 0, len(ids))
	err := withTxRetry(ctx, l.db, 3, func(tx *gorm.DB) error {
		results = results[:0]
		for _, id := range ids {
			req := want[id]
			res := tx.WithContext(ctx).
				Model(&catalog.Product{}).
				Where("id = ? AND quantity >= ?", id, req).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", req))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				results = append(results, LineResult{ProductID: id, Requested: req, Applied: req})
				continue
			}

			// not enough stock: drain whatever remains and flag the line
			var remaining int
			if err := tx.WithContext(ctx).
				Model(&catalog.Product{}).
				Where("id = ?", id).
				Pluck("quantity", &remaining).Error; err != nil {
				return err
			}
			if remaining > 0 {
				drain := tx.WithContext(ctx).
					Model(&catalog.Product{}).
					Where("id = ? AND quantity = ?", id, remaining).
					UpdateColumn("quantity", 0)
				if drain.Error != nil {
					return drain.Error
				}
				if drain.RowsAffected != 1 {
					// raced; retry the whole batch
					return errRetryBatch
				}
			}
			results = append(results, LineResult{ProductID: id, Requested: req, Applied: remaining, Short: true})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if l.products != nil {
		l.products.Invalidate(ctx, ids...)
	}
	return results, nil
}

var errRetryBatch = errors.New("stock: concurrent update, retry")

// --- retry helpers (deadlock/lock timeout) ---

func withTxRetry(ctx context.Context, db *gorm.DB, attempts int, fn func(tx *gorm.DB) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error

	for i := 0; i < attempts; i++ {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if (errors.Is(err, errRetryBatch) || isRetryableMySQLError(err)) && i < attempts-1 {
			time.Sleep(time.Duration(50*(i+1)) * time.Millisecond)
			continue
		}
		return err
	}
	return lastErr
}

func isRetryableMySQLError(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		// 1213: Deadlock found; 1205: Lock wait timeout
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}
