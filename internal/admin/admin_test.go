package admin

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"storefront/internal/apiclient"
	"storefront/internal/fakebackend"
	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	users []models.User
	err   error
}

func (s *stubUsers) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users, s.err
}

func newPage(t *testing.T) *UsersPage {
	t.Helper()
	page := NewUsersPage(&stubUsers{users: []models.User{
		{ID: "1", FirstName: "Ana", LastName: "Lopez", Email: "ana@example.com", Role: models.RoleUser, IsActive: false},
		{ID: "2", FirstName: "Budi", LastName: "Santoso", Email: "budi@shop.io", Role: models.RoleSeller, IsActive: true},
	}})
	require.NoError(t, page.Refresh(context.Background()))
	return page
}

func TestApproveAssignsRole(t *testing.T) {
	page := newPage(t)

	u, err := page.Approve("1", models.RoleSeller)
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.Equal(t, models.RoleSeller, u.Role)

	rows := page.Users("ana")
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsActive)
	assert.Equal(t, models.RoleSeller, rows[0].Role)
}

func TestRejectKeepsRole(t *testing.T) {
	page := newPage(t)

	u, err := page.Reject("1")
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.Equal(t, models.RoleUser, u.Role)
}

func TestOnlyPendingUsers(t *testing.T) {
	page := newPage(t)

	_, err := page.Approve("2", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = page.Reject("2")
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = page.Approve("99", models.RoleUser)
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = page.Approve("1", models.Role("owner"))
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.True(t, page.Users("ana")[0].Pending())
}

func TestUsersFilter(t *testing.T) {
	page := newPage(t)

	assert.Len(t, page.Users(""), 2)
	assert.Len(t, page.Users("BUDI SAN"), 1)
	assert.Len(t, page.Users("shop.io"), 1)
	assert.Empty(t, page.Users("carol"))
}

func TestRefreshFailureKeepsRows(t *testing.T) {
	backend := &stubUsers{users: []models.User{{ID: "1", Email: "a@b.c"}}}
	page := NewUsersPage(backend)
	require.NoError(t, page.Refresh(context.Background()))

	backend.err = errors.New("boom")
	assert.Error(t, page.Refresh(context.Background()))
	assert.Len(t, page.Users(""), 1)
	assert.True(t, page.Loaded())
}

func TestUsersAndSellersAgainstBackend(t *testing.T) {
	fb := fakebackend.New()
	fb.AddUser(models.User{Email: "root@example.com", Role: models.RoleAdmin, IsActive: true}, "pw")
	fb.AddUser(models.User{Email: "pending@example.com", FirstName: "Pat"}, "pw")
	sellerID := fb.AddSeller(models.Seller{StoreName: "Gadget Hub"})
	srv := fb.Start(t)
	ctx := context.Background()

	client, err := apiclient.New(srv.URL)
	require.NoError(t, err)

	page := NewUsersPage(client)
	err = page.Refresh(ctx)
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))

	require.NoError(t, client.Login(ctx, apiclient.Credentials{Email: "root@example.com", Password: "pw"}))
	require.NoError(t, page.Refresh(ctx))
	pending := Filter(page.Users(""), "pending")
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Pending())

	sellers := NewSellers(client)
	list, err := sellers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)

	s, err := sellers.SetActive(ctx, sellerID, true)
	require.NoError(t, err)
	assert.True(t, s.IsActive)

	s, err = sellers.SetActive(ctx, sellerID, false)
	require.NoError(t, err)
	assert.False(t, s.IsActive)
}
