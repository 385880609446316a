package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"storefront/internal/apiclient"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Backend is the slice of the API client the auth context needs
type Backend interface {
	Me(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, creds apiclient.Credentials) error
	Register(ctx context.Context, reg apiclient.Registration) (*models.User, error)
	Logout(ctx context.Context) error
}

// Auth holds the identity bound to one browser session. Only its own
// operations write the user; everything else reads through CurrentUser.
type Auth struct {
	backend Backend
	logger  *zap.Logger

	mu     sync.RWMutex
	user   *models.User
	loaded bool
}

// New creates an auth context with no user loaded
func New(backend Backend) *Auth {
	return &Auth{
		backend: backend,
		logger:  util.Component("auth"),
	}
}

// Load fetches the current identity. An unauthenticated session is not an
// error: the user is simply cleared.
func (a *Auth) Load(ctx context.Context) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "Auth.Load")
	defer span.End()

	user, err := a.backend.Me(ctx)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusUnauthorized) {
			a.set(nil)
			return nil, nil
		}
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}

	a.set(user)
	return a.CurrentUser(), nil
}

// Loaded reports whether Load has completed at least once.
func (a *Auth) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (a *Auth) CurrentUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// Login signs in and reloads the identity
func (a *Auth) Login(ctx context.Context, creds apiclient.Credentials) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "Auth.Login")
	defer span.End()

	if err := a.backend.Login(ctx, creds); err != nil {
		util.RecordError(span, err)
		a.logger.Info("Login rejected", zap.String("email", creds.Email), zap.Error(err))
		return nil, err
	}

	user, err := a.backend.Me(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to load user after login: %w", err)
	}
	a.set(user)

	a.logger.Info("User signed in", zap.String("user_id", user.ID.String()))
	return a.CurrentUser(), nil
}

// Register creates an account without signing in
func (a *Auth) Register(ctx context.Context, reg apiclient.Registration) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "Auth.Register")
	defer span.End()

	user, err := a.backend.Register(ctx, reg)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	a.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.Bool("seller", reg.IsSeller))
	return user, nil
}

// Logout ends the backend session. The local identity is cleared even when
// the backend call fails, so a stale user is never shown.
func (a *Auth) Logout(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Auth.Logout")
	defer span.End()

	err := a.backend.Logout(ctx)
	a.set(nil)
	if err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

func (a *Auth) set(user *models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = user
	a.loaded = true
}
