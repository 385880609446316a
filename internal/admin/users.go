package admin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

var (
	ErrNotPending  error = models.UserError("Only pending users can be approved or rejected")
	ErrUnknownUser error = models.UserError("User not found")
	ErrInvalidRole error = models.UserError("Role must be user, seller or admin")
)

// UsersBackend lists accounts for the admin table
type UsersBackend interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

// UsersPage holds the admin users table. Approve and reject patch the
// fetched rows in place; the next Refresh shows the backend's view again.
type UsersPage struct {
	backend UsersBackend
	logger  *zap.Logger

	mu     sync.RWMutex
	users  []models.User
	loaded bool
}

// NewUsersPage creates an empty users page
func NewUsersPage(backend UsersBackend) *UsersPage {
	return &UsersPage{
		backend: backend,
		users:   []models.User{},
		logger:  util.Component("admin"),
	}
}

// Refresh refetches the users. On failure the previous rows stay.
func (p *UsersPage) Refresh(ctx context.Context) error {
	users, err := p.backend.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append([]models.User{}, users...)
	p.loaded = true
	return nil
}

// Loaded reports whether Refresh has succeeded at least once.
func (p *UsersPage) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Reset forgets the fetched rows
func (p *UsersPage) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = []models.User{}
	p.loaded = false
}

// Users returns the rows whose full name or email contains term, ignoring case.
func (p *UsersPage) Users(term string) []models.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Filter(p.users, term)
}

// Approve activates a pending user with the given role.
func (p *UsersPage) Approve(id models.ID, role models.Role) (models.User, error) {
	if !role.Valid() {
		return models.User{}, ErrInvalidRole
	}
	u, err := p.patch(id, func(u *models.User) {
		u.IsActive = true
		u.Role = role
	})
	if err == nil {
		p.logger.Info("User approved", zap.String("user_id", id.String()), zap.String("role", string(role)))
	}
	return u, err
}

// Reject resolves a pending user: the account becomes active and keeps its
// role.
func (p *UsersPage) Reject(id models.ID) (models.User, error) {
	u, err := p.patch(id, func(u *models.User) {
		u.IsActive = true
	})
	if err == nil {
		p.logger.Info("User rejected", zap.String("user_id", id.String()))
	}
	return u, err
}

func (p *UsersPage) patch(id models.ID, apply func(*models.User)) (models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.users {
		if p.users[i].ID != id {
			continue
		}
		if !p.users[i].Pending() {
			return models.User{}, ErrNotPending
		}
		apply(&p.users[i])
		return p.users[i], nil
	}
	return models.User{}, ErrUnknownUser
}

// Filter keeps users whose full name or email contains term, ignoring case.
func Filter(users []models.User, term string) []models.User {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if term == "" ||
			strings.Contains(strings.ToLower(u.FullName()), term) ||
			strings.Contains(strings.ToLower(u.Email), term) {
			out = append(out, u)
		}
	}
	return out
}
