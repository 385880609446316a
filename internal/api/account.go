package api

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/orders"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listAddresses(c *gin.Context) {
	addrs, err := sessionFrom(c).Client.ListAddresses(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load addresses")
		return
	}
	if addrs == nil {
		addrs = []models.Address{}
	}

	var defaultID models.ID
	if def := models.DefaultAddress(addrs); def != nil {
		defaultID = def.ID
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addrs, "default_address_id": defaultID})
}

func (h *Handler) createAddress(c *gin.Context) {
	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		respondBadRequest(c, err)
		return
	}

	created, err := sessionFrom(c).Client.CreateAddress(c.Request.Context(), addr)
	if err != nil {
		respondError(c, err, "Failed to save address")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": created})
}

func (h *Handler) listOrders(c *gin.Context) {
	status := c.DefaultQuery("status", orders.StatusAll)
	list, err := sessionFrom(c).Orders.List(c.Request.Context(), c.Query("q"), status)
	if err != nil {
		respondError(c, err, "Failed to load orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}
