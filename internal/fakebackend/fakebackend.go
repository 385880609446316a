// Package fakebackend is an in-process stand-in for the commerce API used by
// tests. It keeps just enough state to honour the contract the storefront
// relies on: cookie sessions, cart lines merged per product, default
// addresses, and checkout that empties the cart and decrements stock.
package fakebackend

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionCookie is the name of the backend auth cookie
const SessionCookie = "fastapiusersauth"

type account struct {
	user     models.User
	password string
}

type failure struct {
	status int
	body   interface{}
}

// CheckoutCall records a POST /checkout payload
type CheckoutCall struct {
	CartItemIDs []models.ID `json:"cart_item_ids"`
	AddressID   models.ID   `json:"address_id"`
}

// Backend is the fake API state
type Backend struct {
	mu        sync.Mutex
	nextID    int
	products  map[models.ID]models.Product
	accounts  map[string]*account
	sessions  map[string]string
	carts     map[models.ID][]models.CartItem
	addresses map[models.ID][]models.Address
	orders    map[models.ID][]models.Order
	sellers   map[models.ID]models.Seller
	failures  map[string]failure
	checkouts []CheckoutCall
}

// New creates an empty fake backend
func New() *Backend {
	return &Backend{
		nextID:    100,
		products:  make(map[models.ID]models.Product),
		accounts:  make(map[string]*account),
		sessions:  make(map[string]string),
		carts:     make(map[models.ID][]models.CartItem),
		addresses: make(map[models.ID][]models.Address),
		orders:    make(map[models.ID][]models.Order),
		sellers:   make(map[models.ID]models.Seller),
		failures:  make(map[string]failure),
	}
}

// Start serves the fake on an httptest server closed at test cleanup.
func (b *Backend) Start(t testing.TB) *httptest.Server {
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) id() models.ID {
	b.nextID++
	return models.ID(strconv.Itoa(b.nextID))
}

// AddProduct seeds a product and returns its id (assigned when empty).
func (b *Backend) AddProduct(p models.Product) models.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = b.id()
	}
	b.products[p.ID] = p
	return p.ID
}

// Product returns the current state of a seeded product
func (b *Backend) Product(id models.ID) models.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.products[id]
}

// AddUser seeds an account
func (b *Backend) AddUser(u models.User, password string) models.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == "" {
		u.ID = b.id()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	b.accounts[strings.ToLower(u.Email)] = &account{user: u, password: password}
	return u.ID
}

// AddAddress seeds a shipping address for a user
func (b *Backend) AddAddress(userID models.ID, a models.Address) models.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.ID == "" {
		a.ID = b.id()
	}
	b.addresses[userID] = append(b.addresses[userID], a)
	return a.ID
}

// AddSeller seeds a seller profile
func (b *Backend) AddSeller(s models.Seller) models.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.ID == "" {
		s.ID = b.id()
	}
	b.sellers[s.ID] = s
	return s.ID
}

// CartOf returns a copy of a user's cart lines
func (b *Backend) CartOf(userID models.ID) []models.CartItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.CartItem(nil), b.carts[userID]...)
}

// Checkouts returns every checkout payload received so far
func (b *Backend) Checkouts() []CheckoutCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]CheckoutCall(nil), b.checkouts...)
}

// FailNext makes the next request matching method and path answer with
// status and body instead of being handled.
func (b *Backend) FailNext(method, path string, status int, body interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, body: body}
}

// Handler builds the gin router serving the fake API
func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), b.injectFailures())

	r.POST("/auth/jwt/login", b.login)
	r.POST("/auth/jwt/logout", b.logout)
	r.POST("/auth/register", b.register)
	r.GET("/users/me", b.authed(b.me))

	r.GET("/product", b.listProducts)
	r.GET("/product/:id", b.getProduct)
	r.POST("/product", b.authed(b.createProduct))
	r.PATCH("/product/:id", b.authed(b.updateProduct))
	r.POST("/product/:id/image", b.authed(b.uploadImage))

	r.GET("/cart/items", b.authed(b.listCart))
	r.POST("/cart/items", b.authed(b.addCartItem))
	r.PUT("/cart/items/:id", b.authed(b.updateCartItem))
	r.DELETE("/cart/items/:id", b.authed(b.deleteCartItem))

	r.GET("/users/me/addresses", b.authed(b.listAddresses))
	r.POST("/users/me/addresses", b.authed(b.createAddress))

	r.POST("/checkout", b.authed(b.checkout))
	r.GET("/order", b.authed(b.listOrders))

	r.GET("/admin/users/", b.authed(b.adminOnly(b.listUsers)))
	r.GET("/admin/seller", b.authed(b.adminOnly(b.listSellers)))
	r.PATCH("/admin/seller/:id/activate-reject", b.authed(b.adminOnly(b.toggleSeller)))
	return r
}

func (b *Backend) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.Request.URL.Path
		b.mu.Lock()
		f, ok := b.failures[key]
		if ok {
			delete(b.failures, key)
		}
		b.mu.Unlock()
		if ok {
			c.AbortWithStatusJSON(f.status, f.body)
			return
		}
		c.Next()
	}
}

type handler func(c *gin.Context, user *models.User)

func (b *Backend) authed(h handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		b.mu.Lock()
		email, ok := b.sessions[token]
		var user models.User
		if ok {
			user = b.accounts[email].user
		}
		b.mu.Unlock()
		if err != nil || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
			return
		}
		h(c, &user)
	}
}

func (b *Backend) adminOnly(h handler) handler {
	return func(c *gin.Context, user *models.User) {
		if user.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Admin access required"})
			return
		}
		h(c, user)
	}
}

func (b *Backend) login(c *gin.Context) {
	email := strings.ToLower(c.PostForm("username"))
	password := c.PostForm("password")

	b.mu.Lock()
	acct, ok := b.accounts[email]
	if !ok || acct.password != password {
		b.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "LOGIN_BAD_CREDENTIALS"})
		return
	}
	token := uuid.NewString()
	b.sessions[token] = email
	b.mu.Unlock()

	c.SetCookie(SessionCookie, token, 3600, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (b *Backend) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil {
		b.mu.Lock()
		delete(b.sessions, token)
		b.mu.Unlock()
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (b *Backend) register(c *gin.Context) {
	var in struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		IsSeller  bool   `json:"is_seller"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
			{"loc": []string{"body", "email"}, "msg": "field required"},
		}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToLower(in.Email)
	if _, exists := b.accounts[key]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "REGISTER_USER_ALREADY_EXISTS"})
		return
	}
	u := models.User{
		ID:        b.id(),
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      models.RoleUser,
		IsActive:  !in.IsSeller,
		IsSeller:  in.IsSeller,
	}
	b.accounts[key] = &account{user: u, password: in.Password}
	c.JSON(http.StatusCreated, u)
}

func (b *Backend) me(c *gin.Context, user *models.User) {
	c.JSON(http.StatusOK, user)
}

func (b *Backend) listProducts(c *gin.Context) {
	b.mu.Lock()
	products := make([]models.Product, 0, len(b.products))
	for _, p := range b.products {
		products = append(products, p)
	}
	b.mu.Unlock()
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	c.JSON(http.StatusOK, products)
}

func (b *Backend) getProduct(c *gin.Context) {
	b.mu.Lock()
	p, ok := b.products[models.ID(c.Param("id"))]
	b.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

type productInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Image       *string          `json:"image"`
	Category    *models.Category `json:"category"`
}

func (in productInput) apply(p *models.Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
}

func (b *Backend) createProduct(c *gin.Context, user *models.User) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Name == nil || in.Price == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
			{"loc": []string{"body", "name"}, "msg": "field required"},
			{"loc": []string{"body", "price"}, "msg": "field required"},
		}})
		return
	}
	b.mu.Lock()
	p := models.Product{ID: b.id(), OwnerID: user.ID}
	in.apply(&p)
	b.products[p.ID] = p
	b.mu.Unlock()
	c.JSON(http.StatusCreated, p)
}

func (b *Backend) updateProduct(c *gin.Context, _ *models.User) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[models.ID(c.Param("id"))]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	in.apply(&p)
	b.products[p.ID] = p
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (b *Backend) uploadImage(c *gin.Context, _ *models.User) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "image is required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[models.ID(c.Param("id"))]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	p.Image = "/uploads/" + file.Filename
	b.products[p.ID] = p
	c.JSON(http.StatusOK, p)
}

type cartPayload struct {
	ProductID models.ID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (b *Backend) listCart(c *gin.Context, user *models.User) {
	b.mu.Lock()
	items := append([]models.CartItem{}, b.carts[user.ID]...)
	b.mu.Unlock()
	c.JSON(http.StatusOK, items)
}

func (b *Backend) addCartItem(c *gin.Context, user *models.User) {
	var in cartPayload
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[in.ProductID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	if p.Stock < in.Quantity {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Not enough stock"})
		return
	}
	lines := b.carts[user.ID]
	for i := range lines {
		if lines[i].Product.ID == in.ProductID {
			lines[i].Quantity += in.Quantity
			c.JSON(http.StatusOK, lines[i])
			return
		}
	}
	line := models.CartItem{ID: b.id(), Quantity: in.Quantity, Product: p}
	b.carts[user.ID] = append(lines, line)
	c.JSON(http.StatusOK, line)
}

func (b *Backend) updateCartItem(c *gin.Context, user *models.User) {
	var in cartPayload
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[user.ID]
	for i := range lines {
		if lines[i].ID != models.ID(c.Param("id")) {
			continue
		}
		if lines[i].Product.ID != in.ProductID {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Product ID mismatch"})
			return
		}
		if b.products[in.ProductID].Stock < in.Quantity-lines[i].Quantity {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Not enough stock"})
			return
		}
		lines[i].Quantity = in.Quantity
		c.JSON(http.StatusOK, lines[i])
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Cart item not found"})
}

func (b *Backend) deleteCartItem(c *gin.Context, user *models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[user.ID]
	for i := range lines {
		if lines[i].ID == models.ID(c.Param("id")) {
			b.carts[user.ID] = append(lines[:i:i], lines[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product successfully removed from the cart"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Cart item not found"})
}

func (b *Backend) listAddresses(c *gin.Context, user *models.User) {
	b.mu.Lock()
	addrs := append([]models.Address{}, b.addresses[user.ID]...)
	b.mu.Unlock()
	c.JSON(http.StatusOK, addrs)
}

func (b *Backend) createAddress(c *gin.Context, user *models.User) {
	var a models.Address
	if err := c.ShouldBindJSON(&a); err != nil || a.RecipientName == "" || a.AddressLine1 == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
			{"loc": []string{"body", "recipient_name"}, "msg": "field required"},
			{"loc": []string{"body", "address_line1"}, "msg": "field required"},
		}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a.ID = b.id()
	if a.IsDefault {
		for i := range b.addresses[user.ID] {
			b.addresses[user.ID][i].IsDefault = false
		}
	}
	b.addresses[user.ID] = append(b.addresses[user.ID], a)
	c.JSON(http.StatusOK, a)
}

func (b *Backend) checkout(c *gin.Context, user *models.User) {
	var in CheckoutCall
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkouts = append(b.checkouts, in)

	found := false
	for _, a := range b.addresses[user.ID] {
		if a.ID == in.AddressID {
			found = true
		}
	}
	if !found {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
			{"loc": []string{"body", "address_id"}, "msg": "address not found"},
		}})
		return
	}

	selected := make(map[models.ID]bool, len(in.CartItemIDs))
	for _, id := range in.CartItemIDs {
		selected[id] = true
	}
	var chosen, kept []models.CartItem
	for _, line := range b.carts[user.ID] {
		if selected[line.ID] {
			chosen = append(chosen, line)
		} else {
			kept = append(kept, line)
		}
	}
	if len(chosen) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cart is empty"})
		return
	}

	total := decimal.Zero
	order := models.Order{ID: b.id(), OwnerID: user.ID, OwnerName: user.FullName(), Status: models.OrderStatusPending}
	for _, line := range chosen {
		p := b.products[line.Product.ID]
		if p.Stock < line.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Not enough stock for " + p.Name})
			return
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(lineTotal)
		order.Items = append(order.Items, models.OrderItem{
			ID: b.id(), ProductID: p.ID, Quantity: line.Quantity, TotalPrice: lineTotal, ProductName: p.Name,
		})
	}
	for _, line := range chosen {
		p := b.products[line.Product.ID]
		p.Stock -= line.Quantity
		b.products[p.ID] = p
	}
	now := time.Now().UTC()
	order.TotalPrice = total
	order.OrderDate = &now
	b.orders[user.ID] = append(b.orders[user.ID], order)
	b.carts[user.ID] = kept

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Checkout successful!", "order_id": order.ID})
}

func (b *Backend) listOrders(c *gin.Context, user *models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var orders []models.Order
	if user.Role == models.RoleUser {
		orders = append(orders, b.orders[user.ID]...)
	} else {
		for _, os := range b.orders {
			orders = append(orders, os...)
		}
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (b *Backend) listUsers(c *gin.Context, _ *models.User) {
	b.mu.Lock()
	users := make([]models.User, 0, len(b.accounts))
	for _, a := range b.accounts {
		users = append(users, a.user)
	}
	b.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	c.JSON(http.StatusOK, users)
}

func (b *Backend) listSellers(c *gin.Context, _ *models.User) {
	b.mu.Lock()
	sellers := make([]models.Seller, 0, len(b.sellers))
	for _, s := range b.sellers {
		sellers = append(sellers, s)
	}
	b.mu.Unlock()
	c.JSON(http.StatusOK, sellers)
}

func (b *Backend) toggleSeller(c *gin.Context, _ *models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sellers[models.ID(c.Param("id"))]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Seller not found"})
		return
	}
	if v := c.Query("is_active"); v != "" {
		s.IsActive = v == "true"
	} else {
		s.IsActive = !s.IsActive
	}
	b.sellers[s.ID] = s
	c.JSON(http.StatusOK, s)
}
