package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"storefront/internal/apiclient"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrForbidden is returned when a shopper tries to author products
	ErrForbidden  error = models.UserError("Only sellers and admins can manage products")
	ErrOutOfStock error = models.UserError("This product is out of stock")
)

// Backend is the product slice of the API client
type Backend interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id models.ID) (*models.Product, error)
	CreateProduct(ctx context.Context, in apiclient.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id models.ID, in apiclient.ProductInput) (*models.Product, error)
	UploadProductImage(ctx context.Context, id models.ID, filename string, image io.Reader) (*models.Product, error)
}

// Catalog serves the listing, detail and authoring pages
type Catalog struct {
	backend Backend
	logger  *zap.Logger
}

// New creates a catalog over the given backend
func New(backend Backend) *Catalog {
	return &Catalog{
		backend: backend,
		logger:  util.Component("catalog"),
	}
}

// List fetches the catalog and filters it by term
func (c *Catalog) List(ctx context.Context, term string) ([]models.Product, error) {
	products, err := c.backend.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return Filter(products, term), nil
}

// Detail fetches one product
func (c *Catalog) Detail(ctx context.Context, id models.ID) (*models.Product, error) {
	p, err := c.backend.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return p, nil
}

// PurchaseQuantity bounds a requested quantity by the product's current
// stock, the way the product page picker does.
func (c *Catalog) PurchaseQuantity(ctx context.Context, id models.ID, quantity int) (int, error) {
	p, err := c.Detail(ctx, id)
	if err != nil {
		return 0, err
	}
	picker := NewPicker(*p)
	if !picker.CanPurchase() {
		return 0, ErrOutOfStock
	}
	return picker.Set(quantity).Quantity, nil
}

// Create publishes a product on behalf of a seller or admin
func (c *Catalog) Create(ctx context.Context, user *models.User, in apiclient.ProductInput) (*models.Product, error) {
	if !canAuthor(user) {
		return nil, ErrForbidden
	}
	p, err := c.backend.CreateProduct(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	c.logger.Info("Product created",
		zap.String("product_id", p.ID.String()),
		zap.String("user_id", user.ID.String()))
	return p, nil
}

// Update patches a product
func (c *Catalog) Update(ctx context.Context, user *models.User, id models.ID, in apiclient.ProductInput) (*models.Product, error) {
	if !canAuthor(user) {
		return nil, ErrForbidden
	}
	p, err := c.backend.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return p, nil
}

// UploadImage attaches an image to a product
func (c *Catalog) UploadImage(ctx context.Context, user *models.User, id models.ID, filename string, image io.Reader) (*models.Product, error) {
	if !canAuthor(user) {
		return nil, ErrForbidden
	}
	p, err := c.backend.UploadProductImage(ctx, id, filename, image)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image for product %s: %w", id, err)
	}
	return p, nil
}

func canAuthor(user *models.User) bool {
	return user != nil && (user.Role == models.RoleSeller || user.Role == models.RoleAdmin)
}

// Filter keeps products whose name or category contains term, ignoring
// case. An empty term keeps everything.
func Filter(products []models.Product, term string) []models.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(string(p.Category)), term) {
			out = append(out, p)
		}
	}
	return out
}
