package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	apphttp "github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/cart"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/catalog"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/checkout"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/outbox"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/payments"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/refunds"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/stock"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/storecredit"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/storage"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional product cache.
	var cache *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cache = redis.NewClient(&redis.Options{Addr: addr})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, product cache disabled", "addr", addr, "error", err)
			cache = nil
		}
	}

	files, err := storage.FromEnv(ctx)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	logger.Info("storage ready", "driver", files.Driver)

	products := catalog.NewRepo(db, cache)
	carts := cart.NewService(db, products)
	points := loyalty.NewLedger(db)
	credits := storecredit.NewLedger(db)
	stocks := stock.NewLedger(db, products)
	ordersSvc := orders.NewService(db)
	intents := payments.NewIntentStore(db)

	// Optional event mirror; nil publisher is a no-op.
	var events *outbox.EventPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		events = outbox.NewEventPublisher(strings.Split(brokers, ","), envOr("KAFKA_ORDER_TOPIC", "shop.orders"))
		defer events.Close()
	}

	dispatcher := outbox.NewDispatcher(db, logger)
	orders.RegisterSideEffects(dispatcher, logger, stocks, points, credits, events)
	dispatcher.AddSweep(intents.ExpireStale)
	go dispatcher.Start(ctx, 15*time.Second)

	providers := map[string]payments.Provider{
		"card": payments.NewCard(),
	}
	if id := os.Getenv("PAYPAL_CLIENT_ID"); id != "" {
		providers["paypal"] = payments.NewPayPal(payments.PayPalConfig{
			BaseURL:      envOr("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
			ClientID:     id,
			ClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
			ReturnURL:    os.Getenv("PAYPAL_RETURN_URL"),
			CancelURL:    os.Getenv("PAYPAL_CANCEL_URL"),
		})
	}
	if key := os.Getenv("NETS_API_KEY"); key != "" {
		providers["nets"] = payments.NewNETS(payments.NETSConfig{
			BaseURL:   envOr("NETS_BASE_URL", "https://sandbox.nets.openapipaas.com/api"),
			APIKey:    key,
			ProjectID: os.Getenv("NETS_PROJECT_ID"),
		})
	}

	checkoutSvc := checkout.NewService(logger, carts, ordersSvc, points, credits, intents, providers, dispatcher)
	refundsSvc := refunds.NewService(db, logger, ordersSvc, points, credits)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:   logger,
		Products: products,
		Carts:    carts,
		Checkout: checkoutSvc,
		Orders:   ordersSvc,
		Loyalty:  points,
		Refunds:  refundsSvc,
		Files:    files.Storage,
	})
	_ = r.Run(":" + envOr("PORT", "8080"))
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
