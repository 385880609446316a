package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/admin"
	"storefront/internal/apiclient"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/orders"

	"go.uber.org/zap"
)

// Publisher receives every kind of storefront activity
type Publisher interface {
	cart.Publisher
	checkout.Publisher
}

// Session is the state one browser holds: its backend client (and cookie
// jar), identity, cart and page-local admin state.
type Session struct {
	ID string

	Client   *apiclient.Client
	Auth     *auth.Auth
	Cart     *cart.Store
	Checkout *checkout.Page
	Catalog  *catalog.Catalog
	Orders   *orders.History
	Users    *admin.UsersPage
	Sellers  *admin.Sellers

	logger   *zap.Logger
	mu       sync.Mutex
	lastSeen time.Time
	boot     sync.Mutex
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen is the time of the most recent request on this session
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Bootstrap loads the identity and then the cart, once each. It is called
// on every request and is cheap after the first success.
func (s *Session) Bootstrap(ctx context.Context) error {
	s.boot.Lock()
	defer s.boot.Unlock()

	if !s.Auth.Loaded() {
		if _, err := s.Auth.Load(ctx); err != nil {
			return err
		}
	}
	if !s.Cart.Loaded() {
		s.Cart.Load(ctx)
	}
	return nil
}

// SignIn logs in and loads the new user's cart
func (s *Session) SignIn(ctx context.Context, creds apiclient.Credentials) (*models.User, error) {
	user, err := s.Auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	s.Cart.Load(ctx)
	return user, nil
}

// SignOut logs out and drops everything tied to the previous user.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.Auth.Logout(ctx)
	s.Cart.Clear()
	if derr := s.Checkout.Discard(ctx); derr != nil {
		s.logger.Warn("Failed to discard checkout snapshot on sign-out",
			zap.String("session_id", s.ID),
			zap.Error(derr))
	}
	s.Users.Reset()
	return err
}

// CurrentUser is a shortcut for Auth.CurrentUser
func (s *Session) CurrentUser() *models.User {
	return s.Auth.CurrentUser()
}

// Config wires the shared collaborators into new sessions
type Config struct {
	BackendURL    string
	ClientOptions []apiclient.Option
	Handoff       *checkout.Handoff
	Publisher     Publisher
}

func (r *Registry) build(id string) (*Session, error) {
	client, err := apiclient.New(r.cfg.BackendURL, r.cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	a := auth.New(client)
	var cartOpts []cart.Option
	if r.cfg.Publisher != nil {
		cartOpts = append(cartOpts, cart.WithPublisher(id, r.cfg.Publisher))
	}
	store := cart.NewStore(client, a, cartOpts...)

	var pub checkout.Publisher
	if r.cfg.Publisher != nil {
		pub = r.cfg.Publisher
	}

	return &Session{
		ID:       id,
		Client:   client,
		Auth:     a,
		Cart:     store,
		Checkout: checkout.NewPage(id, r.cfg.Handoff, client, store, a, pub),
		Catalog:  catalog.New(client),
		Orders:   orders.NewHistory(client),
		Users:    admin.NewUsersPage(client),
		Sellers:  admin.NewSellers(client),
		logger:   r.logger,
	}, nil
}
