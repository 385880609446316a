package api

import (
	"net/http"
	"strconv"

	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// listUsers refetches the users table and applies the search term
func (h *Handler) listUsers(c *gin.Context) {
	page := sessionFrom(c).Users
	if err := page.Refresh(c.Request.Context()); err != nil {
		respondError(c, err, "Failed to load users")
		return
	}
	users := page.Users(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

type approveRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

func (h *Handler) approveUser(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	u, err := sessionFrom(c).Users.Approve(models.ID(c.Param("id")), req.Role)
	if err != nil {
		respondError(c, err, "Failed to approve user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) rejectUser(c *gin.Context) {
	u, err := sessionFrom(c).Users.Reject(models.ID(c.Param("id")))
	if err != nil {
		respondError(c, err, "Failed to reject user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) listSellers(c *gin.Context) {
	sellers, err := sessionFrom(c).Sellers.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load sellers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellers": sellers, "count": len(sellers)})
}

func (h *Handler) setSellerActive(c *gin.Context) {
	active, err := strconv.ParseBool(c.Query("is_active"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	seller, err := sessionFrom(c).Sellers.SetActive(c.Request.Context(), models.ID(c.Param("id")), active)
	if err != nil {
		respondError(c, err, "Failed to update seller")
		return
	}
	c.JSON(http.StatusOK, gin.H{"seller": seller})
}
