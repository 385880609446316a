package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// ProductInput is the create/update payload for sellers and admins. Nil
// fields are left out so PATCH only touches what was given.
type ProductInput struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Category    *models.Category `json:"category,omitempty"`
}

// ListProducts fetches the catalog. Both a bare array and {"product": [...]} decode.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/product", route: "/product"}, &raw); err != nil {
		return nil, err
	}

	var products []models.Product
	if err := json.Unmarshal(raw, &products); err == nil {
		return products, nil
	}
	var wrapped struct {
		Product []models.Product `json:"product"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode product list: %w", err)
	}
	return wrapped.Product, nil
}

// GetProduct fetches one product. Both {...} and {"product": {...}} decode.
func (c *Client) GetProduct(ctx context.Context, id models.ID) (*models.Product, error) {
	var raw json.RawMessage
	path := "/product/" + url.PathEscape(id.String())
	if err := c.do(ctx, request{method: http.MethodGet, path: path, route: "/product/{id}"}, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

// CreateProduct publishes a new product
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	req, err := c.jsonRequest(http.MethodPost, "/product", "/product", in)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, req, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

// UpdateProduct patches the given fields of a product
func (c *Client) UpdateProduct(ctx context.Context, id models.ID, in ProductInput) (*models.Product, error) {
	req, err := c.jsonRequest(http.MethodPatch, "/product/"+url.PathEscape(id.String()), "/product/{id}", in)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, req, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

// UploadProductImage sends an image as multipart field "image".
func (c *Client) UploadProductImage(ctx context.Context, id models.ID, filename string, image io.Reader) (*models.Product, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var raw json.RawMessage
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/product/" + url.PathEscape(id.String()) + "/image",
		route:       "/product/{id}/image",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &raw)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return decodeProduct(raw)
}

func decodeProduct(raw json.RawMessage) (*models.Product, error) {
	var wrapped struct {
		Product *models.Product `json:"product"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Product != nil {
		return wrapped.Product, nil
	}
	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	return &p, nil
}
