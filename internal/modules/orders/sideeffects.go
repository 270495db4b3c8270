package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/outbox"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/stock"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/storecredit"
)

// Outbox topics enqueued by CreateFromCheckout.
const (
	TopicStockDecrement = "stock.decrement"
	TopicLoyaltySettle  = "loyalty.settle"
	TopicCreditConsume  = "credit.consume"
	TopicOrderEvent     = "order.event"
)

type StockTaskLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type StockTask struct {
	OrderID string          `json:"order_id"`
	Lines   []StockTaskLine `json:"lines"`
}

type LoyaltyTask struct {
	OrderID  string `json:"order_id"`
	UserID   string `json:"user_id"`
	Earned   int    `json:"earned"`
	Redeemed int    `json:"redeemed"`
}

type CreditTask struct {
	OrderID  string `json:"order_id"`
	CreditID string `json:"credit_id"`
}

type OrderEvent struct {
	Type          string          `json:"type"`
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	At            time.Time       `json:"at"`
}

// RegisterSideEffects binds the checkout side-effect topics to their
// ledgers. The stock handler never reports a shortfall as a task
// failure: the decrement already floored at zero and a retry would
// deduct the applied lines a second time.
func RegisterSideEffects(d *outbox.Dispatcher, logger *slog.Logger, stocks *stock.Ledger, points *loyalty.Ledger, credits *storecredit.Ledger, events *outbox.EventPublisher) {
	if logger == nil {
		logger = slog.Default()
	}

	d.Handle(TopicStockDecrement, func(ctx context.Context, t outbox.Task) error {
		var task StockTask
		if err := t.Unmarshal(&task); err != nil {
			return err
		}
		lines := make([]stock.Line, 0, len(task.Lines))
		for _, l := range task.Lines {
			lines = append(lines, stock.Line{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		results, err := stocks.DecrementForOrder(ctx, lines)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Short {
				logger.Warn("stock oversold",
					"order_id", task.OrderID,
					"product_id", r.ProductID,
					"requested", r.Requested,
					"applied", r.Applied)
			}
		}
		return nil
	})

	d.Handle(TopicLoyaltySettle, func(ctx context.Context, t outbox.Task) error {
		var task LoyaltyTask
		if err := t.Unmarshal(&task); err != nil {
			return err
		}
		return points.Settle(ctx, task.UserID, task.Earned, task.Redeemed)
	})

	d.Handle(TopicCreditConsume, func(ctx context.Context, t outbox.Task) error {
		var task CreditTask
		if err := t.Unmarshal(&task); err != nil {
			return err
		}
		return credits.Consume(ctx, task.CreditID, task.OrderID)
	})

	if events != nil {
		d.Handle(TopicOrderEvent, events.HandleTask)
	} else {
		d.Handle(TopicOrderEvent, func(ctx context.Context, t outbox.Task) error { return nil })
	}
}
