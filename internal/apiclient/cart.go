package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/models"
)

type cartItemPayload struct {
	ProductID models.ID `json:"product_id"`
	Quantity  int       `json:"quantity,omitempty"`
}

// ListCartItems returns every line of the signed-in user's cart
func (c *Client) ListCartItems(ctx context.Context) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := c.do(ctx, request{method: http.MethodGet, path: "/cart/items", route: "/cart/items"}, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

// CreateCartItem adds a product line to the cart
func (c *Client) CreateCartItem(ctx context.Context, productID models.ID, quantity int) (*models.CartItem, error) {
	req, err := c.jsonRequest(http.MethodPost, "/cart/items", "/cart/items",
		cartItemPayload{ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	var item models.CartItem
	if err := c.do(ctx, req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartItem sets the absolute quantity of a line
func (c *Client) UpdateCartItem(ctx context.Context, lineID, productID models.ID, quantity int) (*models.CartItem, error) {
	req, err := c.jsonRequest(http.MethodPut, "/cart/items/"+url.PathEscape(lineID.String()), "/cart/items/{id}",
		cartItemPayload{ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	var item models.CartItem
	if err := c.do(ctx, req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteCartItem removes a line from the cart
func (c *Client) DeleteCartItem(ctx context.Context, lineID, productID models.ID) error {
	req, err := c.jsonRequest(http.MethodDelete, "/cart/items/"+url.PathEscape(lineID.String()), "/cart/items/{id}",
		cartItemPayload{ProductID: productID})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
