package api

import (
	"net/http"

	"storefront/internal/cart"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type cartView struct {
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  string            `json:"subtotal"`
	Shipping  string            `json:"shipping"`
	Total     string            `json:"total"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (h *Handler) cartSummary(store *cart.Store) cartView {
	items := store.Items()
	subtotal := models.Subtotal(items)
	shipping, total := h.opts.Pricing.Quote(subtotal)
	return cartView{
		Items:     items,
		ItemCount: models.ItemCount(items),
		Subtotal:  money(subtotal),
		Shipping:  money(shipping),
		Total:     money(total),
	}
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartSummary(sessionFrom(c).Cart))
}

type addItemRequest struct {
	ProductID models.ID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	s := sessionFrom(c)
	if s.CurrentUser() == nil {
		respondError(c, cart.ErrNotSignedIn, "Failed to add to cart")
		return
	}
	if req.Quantity > 0 {
		n, err := s.Catalog.PurchaseQuantity(c.Request.Context(), req.ProductID, req.Quantity)
		if err != nil {
			respondError(c, err, "Failed to add to cart")
			return
		}
		req.Quantity = n
	}

	line, err := s.Cart.Add(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err, "Failed to add to cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": line, "cart": h.cartSummary(s.Cart)})
}

type updateItemRequest struct {
	ProductID models.ID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s := sessionFrom(c)
	lineID := models.ID(c.Param("id"))
	if req.ProductID == "" {
		if line, ok := s.Cart.Line(lineID); ok {
			req.ProductID = line.Product.ID
		}
	}

	line, err := s.Cart.UpdateQuantity(c.Request.Context(), lineID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err, "Failed to update quantity")
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": line, "cart": h.cartSummary(s.Cart)})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	s := sessionFrom(c)
	lineID := models.ID(c.Param("id"))

	var productID models.ID
	if line, ok := s.Cart.Line(lineID); ok {
		productID = line.Product.ID
	}

	if err := s.Cart.RemoveItem(c.Request.Context(), lineID, productID); err != nil {
		respondError(c, err, "Failed to remove item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": h.cartSummary(s.Cart)})
}
