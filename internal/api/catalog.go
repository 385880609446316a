package api

import (
	"net/http"

	"storefront/internal/apiclient"
	"storefront/internal/catalog"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

type productView struct {
	models.Product
	DisplayPrice string     `json:"display_price"`
	InStock      bool       `json:"in_stock"`
	Purchasable  bool       `json:"purchasable"`
	Picker       pickerView `json:"picker"`
}

type pickerView struct {
	Quantity     int  `json:"quantity"`
	Stock        int  `json:"stock"`
	CanIncrement bool `json:"can_increment"`
	CanDecrement bool `json:"can_decrement"`
	CanPurchase  bool `json:"can_purchase"`
}

func newPickerView(q catalog.Picker) pickerView {
	return pickerView{
		Quantity:     q.Quantity,
		Stock:        q.Stock,
		CanIncrement: q.CanIncrement(),
		CanDecrement: q.CanDecrement(),
		CanPurchase:  q.CanPurchase(),
	}
}

func newProductView(p models.Product) productView {
	return productView{
		Product:      p,
		DisplayPrice: p.DisplayPrice(),
		InStock:      p.InStock(),
		Purchasable:  p.Purchasable(),
		Picker:       newPickerView(catalog.NewPicker(p)),
	}
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := sessionFrom(c).Catalog.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err, "Failed to load products")
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": views, "count": len(views)})
}

func (h *Handler) getProduct(c *gin.Context) {
	p, err := sessionFrom(c).Catalog.Detail(c.Request.Context(), models.ID(c.Param("id")))
	if err != nil {
		respondError(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": newProductView(*p)})
}

func (h *Handler) createProduct(c *gin.Context) {
	var in apiclient.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}

	s := sessionFrom(c)
	p, err := s.Catalog.Create(c.Request.Context(), s.CurrentUser(), in)
	if err != nil {
		respondError(c, err, "Failed to save product")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": newProductView(*p)})
}

func (h *Handler) updateProduct(c *gin.Context) {
	var in apiclient.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}

	s := sessionFrom(c)
	p, err := s.Catalog.Update(c.Request.Context(), s.CurrentUser(), models.ID(c.Param("id")), in)
	if err != nil {
		respondError(c, err, "Failed to save product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": newProductView(*p)})
}

func (h *Handler) uploadProductImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	file, err := header.Open()
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	defer file.Close()

	s := sessionFrom(c)
	p, err := s.Catalog.UploadImage(c.Request.Context(), s.CurrentUser(), models.ID(c.Param("id")), header.Filename, file)
	if err != nil {
		respondError(c, err, "Failed to upload image")
		return
	}
	if p == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": newProductView(*p)})
}
