package api

import (
	"net/http"

	"storefront/internal/apiclient"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s := sessionFrom(c)
	user, err := s.SignIn(c.Request.Context(), apiclient.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		respondError(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"item_count": s.Cart.ItemCount(),
	})
}

func (h *Handler) register(c *gin.Context) {
	var req apiclient.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	user, err := sessionFrom(c).Auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Registration failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) logout(c *gin.Context) {
	if err := sessionFrom(c).SignOut(c.Request.Context()); err != nil {
		respondError(c, err, "Logout failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// me returns the signed-in user, or null
func (h *Handler) me(c *gin.Context) {
	s := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"user":       s.CurrentUser(),
		"item_count": s.Cart.ItemCount(),
	})
}
