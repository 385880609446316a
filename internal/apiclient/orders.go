package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/models"
)

// CheckoutRequest places an order for the selected cart lines
type CheckoutRequest struct {
	CartItemIDs []models.ID `json:"cart_item_ids"`
	AddressID   models.ID   `json:"address_id"`
}

// CheckoutResult is the backend's acknowledgement of an order placement
type CheckoutResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	OrderID models.ID `json:"order_id,omitempty"`
}

// Checkout places an order. The backend empties the cart as a side effect.
func (c *Client) Checkout(ctx context.Context, in CheckoutRequest) (*CheckoutResult, error) {
	req, err := c.jsonRequest(http.MethodPost, "/checkout", "/checkout", in)
	if err != nil {
		return nil, err
	}
	var res CheckoutResult
	if err := c.do(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListOrders returns the current user's orders, or every order for sellers and admins.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: "/order", route: "/order"}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAddresses returns the signed-in user's shipping addresses
func (c *Client) ListAddresses(ctx context.Context) ([]models.Address, error) {
	var addrs []models.Address
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/me/addresses", route: "/users/me/addresses"}, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// CreateAddress stores a new shipping address
func (c *Client) CreateAddress(ctx context.Context, addr models.Address) (*models.Address, error) {
	addr.ID = ""
	req, err := c.jsonRequest(http.MethodPost, "/users/me/addresses", "/users/me/addresses", addr)
	if err != nil {
		return nil, err
	}
	var created models.Address
	if err := c.do(ctx, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListUsers returns every account for the admin users table
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/users/", route: "/admin/users/"}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListSellers returns every seller profile for admins
func (c *Client) ListSellers(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/seller", route: "/admin/seller"}, &sellers); err != nil {
		return nil, err
	}
	return sellers, nil
}

// SetSellerActive activates or rejects a seller profile
func (c *Client) SetSellerActive(ctx context.Context, sellerID models.ID, active bool) (*models.Seller, error) {
	path := "/admin/seller/" + url.PathEscape(sellerID.String()) + "/activate-reject?is_active=" + strconv.FormatBool(active)
	var seller models.Seller
	if err := c.do(ctx, request{method: http.MethodPatch, path: path, route: "/admin/seller/{id}/activate-reject"}, &seller); err != nil {
		return nil, err
	}
	return &seller, nil
}
