package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	core "github.com/naguara/naguara-pos/internal/shared"
)

type memoryRepo struct {
	users  map[int64]User
	hashes map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[int64]User{}, hashes: map[int64]string{}}
}

func (m *memoryRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := []User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) CreateUser(ctx context.Context, u User, hash string) (User, error) {
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return User{}, ErrDuplicateUsername
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = u
	m.hashes[u.ID] = hash
	return u, nil
}

func (m *memoryRepo) UpdateUser(ctx context.Context, u User) (User, error) {
	if _, ok := m.users[u.ID]; !ok {
		return User{}, ErrNotFound
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryRepo) SetPassword(ctx context.Context, id int64, hash string) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	m.hashes[id] = hash
	return nil
}

func newService(repo *memoryRepo) *Service {
	return NewService(repo, nil, bcrypt.MinCost, nil)
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)

	u, err := svc.CreateUser(context.Background(), 1, CreateRequest{Username: " Caja1 ", FullName: "josé  rodríguez", Password: "secreto123", Role: "cajero"})
	require.NoError(t, err)
	assert.Equal(t, "caja1", u.Username)
	assert.Equal(t, "José Rodríguez", u.FullName)
	assert.True(t, u.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[u.ID]), []byte("secreto123")))
}

func TestCreateUserRejectsDuplicatesAndBadInput(t *testing.T) {
	svc := newService(newMemoryRepo())
	req := CreateRequest{Username: "caja1", FullName: "Ana", Password: "secreto123", Role: "cajero"}
	_, err := svc.CreateUser(context.Background(), 1, req)
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), 1, req)
	assert.ErrorIs(t, err, core.ErrConflict)

	bad := req
	bad.Username = "otro"
	bad.Role = "gerente"
	_, err = svc.CreateUser(context.Background(), 1, bad)
	assert.ErrorIs(t, err, ErrInvalidRole)

	bad = req
	bad.Username = "con espacio"
	_, err = svc.CreateUser(context.Background(), 1, bad)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	bad = req
	bad.Username = "corta"
	bad.Password = "1234"
	_, err = svc.CreateUser(context.Background(), 1, bad)
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestAdminCannotDeactivateThemself(t *testing.T) {
	svc := newService(newMemoryRepo())
	admin, err := svc.CreateUser(context.Background(), 0, CreateRequest{Username: "admin", FullName: "Admin", Password: "secreto123", Role: "admin"})
	require.NoError(t, err)
	other, err := svc.CreateUser(context.Background(), admin.ID, CreateRequest{Username: "almacen1", FullName: "Luis", Password: "secreto123", Role: "almacen"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateUser(context.Background(), admin.ID, admin.ID, UpdateRequest{FullName: "Admin", Role: "admin", IsActive: &inactive})
	assert.ErrorIs(t, err, ErrSelfDeactivation)

	updated, err := svc.UpdateUser(context.Background(), admin.ID, other.ID, UpdateRequest{FullName: "Luis", Role: "cajero", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "cajero", updated.Role)
}

func TestResetPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)
	u, err := svc.CreateUser(context.Background(), 1, CreateRequest{Username: "caja1", FullName: "Ana", Password: "secreto123", Role: "cajero"})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(context.Background(), 1, u.ID, "nuevaClave9"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[u.ID]), []byte("nuevaClave9")))
	assert.ErrorIs(t, svc.ResetPassword(context.Background(), 1, 99, "nuevaClave9"), core.ErrNotFound)
}
