package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/cart"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/catalog"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/outbox"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/payments"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/refunds"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/storecredit"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&catalog.Product{},
		&cart.Cart{},
		&cart.CartItem{},
		&orders.Order{},
		&orders.OrderItem{},
		&loyalty.Membership{},
		&storecredit.Credit{},
		&refunds.Report{},
		&payments.PaymentIntent{},
		&outbox.Task{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	log.Println("All tables created")
}
