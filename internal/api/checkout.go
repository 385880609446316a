package api

import (
	"net/http"

	"storefront/internal/checkout"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

type snapshotView struct {
	Items     []models.CartItem `json:"items"`
	Subtotal  string            `json:"subtotal"`
	Shipping  string            `json:"shipping"`
	Total     string            `json:"total"`
	CreatedAt int64             `json:"created_at"`
}

func newSnapshotView(s *checkout.Snapshot) snapshotView {
	return snapshotView{
		Items:     s.Items,
		Subtotal:  money(s.Subtotal),
		Shipping:  money(s.Shipping),
		Total:     money(s.Total),
		CreatedAt: s.CreatedAt.Unix(),
	}
}

// beginCheckout snapshots the cart for the checkout page
func (h *Handler) beginCheckout(c *gin.Context) {
	snap, err := sessionFrom(c).Checkout.Begin(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to start checkout")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"snapshot": newSnapshotView(snap)})
}

// openCheckout answers 409/410 when there is no usable snapshot; the page
// then sends the user back to the cart.
func (h *Handler) openCheckout(c *gin.Context) {
	view, err := sessionFrom(c).Checkout.Open(c.Request.Context())
	if err != nil {
		respondError(c, err, "Checkout unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot":            newSnapshotView(view.Snapshot),
		"addresses":           view.Addresses,
		"selected_address_id": view.SelectedAddressID,
		"can_place_order":     view.CanPlaceOrder,
	})
}

type placeOrderRequest struct {
	AddressID models.ID `json:"address_id"`
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	res, err := sessionFrom(c).Checkout.PlaceOrder(c.Request.Context(), req.AddressID)
	if err != nil {
		respondError(c, err, "Checkout failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) discardCheckout(c *gin.Context) {
	if err := sessionFrom(c).Checkout.Discard(c.Request.Context()); err != nil {
		respondError(c, err, "Failed to cancel checkout")
		return
	}
	c.Status(http.StatusNoContent)
}
