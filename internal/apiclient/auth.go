package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/models"
)

// Credentials for the password login flow
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up payload
type Registration struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	IsSeller  bool   `json:"is_seller"`
}

// Me fetches the identity bound to the current backend session.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/me", route: "/users/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login establishes a backend session; the session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	form := url.Values{}
	form.Set("username", creds.Email)
	form.Set("password", creds.Password)

	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/jwt/login",
		route:       "/auth/jwt/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, nil)
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, reg Registration) (*models.User, error) {
	req, err := c.jsonRequest(http.MethodPost, "/auth/register", "/auth/register", reg)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout tears down the backend session
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/jwt/logout", route: "/auth/jwt/logout"}, nil)
}
