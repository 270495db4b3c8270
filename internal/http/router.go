package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/handlers"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/http/middleware"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/cart"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/catalog"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/checkout"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/loyalty"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/orders"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/refunds"
	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/storage"
)

// Deps carries the wired services into the router; construction happens
// in cmd/web.
type Deps struct {
	Logger   *slog.Logger
	Products *catalog.Repo
	Carts    *cart.Service
	Checkout *checkout.Service
	Orders   *orders.Service
	Loyalty  *loyalty.Ledger
	Refunds  *refunds.Service
	Files    storage.Storage
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
		middleware.Identity(),
	)

	catalogH := handlers.NewCatalogHandler(d.Products)
	cartH := handlers.NewCartHandler(d.Carts)
	checkoutH := handlers.NewCheckoutHandler(d.Checkout)
	ordersH := handlers.NewOrdersHandler(d.Orders)
	memberH := handlers.NewMembershipHandler(d.Loyalty)
	refundsH := handlers.NewRefundsHandler(d.Refunds, d.Files)
	adminH := handlers.NewAdminHandler(d.Orders, d.Refunds)

	api := r.Group("/api")

	api.GET("/products", catalogH.List)
	api.GET("/products/:id", catalogH.Get)

	auth := api.Group("", middleware.RequireAuth())
	{
		auth.GET("/cart", cartH.Show)
		auth.POST("/cart/items", cartH.Add)
		auth.PUT("/cart/items/:productId", cartH.SetQty)
		auth.DELETE("/cart/items/:productId", cartH.Remove)
		auth.DELETE("/cart", cartH.Clear)

		auth.POST("/checkout/quote", checkoutH.Quote)
		auth.POST("/checkout", checkoutH.Begin)
		auth.POST("/checkout/confirm", checkoutH.Confirm)

		auth.GET("/orders", ordersH.List)
		auth.GET("/orders/:id", ordersH.Get)
		auth.POST("/orders/:id/complete", ordersH.Complete)

		auth.POST("/membership", memberH.Join)
		auth.DELETE("/membership", memberH.Cancel)
		auth.GET("/membership", memberH.Status)

		auth.POST("/refunds", refundsH.Submit)
		auth.GET("/refunds", refundsH.ListMine)
	}

	admin := api.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/orders", adminH.ListOrders)
		admin.PUT("/orders/:id", adminH.UpdateOrder)
		admin.GET("/refunds", adminH.ListPendingRefunds)
		admin.POST("/refunds/:id/resolve", adminH.ResolveRefund)
	}

	return r
}
