package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/modules/catalog"
)

type CatalogHandler struct {
	products *catalog.Repo
}

func NewCatalogHandler(products *catalog.Repo) *CatalogHandler {
	return &CatalogHandler{products: products}
}

type productView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Price           string `json:"price"`
	DiscountPercent string `json:"discount_percent"`
	Quantity        int    `json:"quantity"`
	ImageURL        string `json:"image_url,omitempty"`
}

func toProductView(p catalog.Product) productView {
	return productView{
		ID:              p.ID,
		Name:            p.Name,
		Category:        p.Category,
		Price:           p.Price.StringFixed(2),
		DiscountPercent: p.DiscountPercent.StringFixed(2),
		Quantity:        p.Quantity,
		ImageURL:        p.ImageURL,
	}
}

func (h *CatalogHandler) List(c *gin.Context) {
	ps, err := h.products.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]productView, len(ps))
	for i, p := range ps {
		out[i] = toProductView(p)
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (h *CatalogHandler) Get(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductView(p))
}
