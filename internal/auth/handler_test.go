package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/naguara/naguara-pos/internal/auth"
	"github.com/naguara/naguara-pos/internal/shared"
	_ "github.com/naguara/naguara-pos/testing"
)

type stubRepo struct {
	users    map[int64]*auth.User
	sessions map[string]int64
	touched  int
}

func newStubRepo(t *testing.T) *stubRepo {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubRepo{
		users: map[int64]*auth.User{
			1: {ID: 1, Username: "maria", FullName: "María Pérez", PasswordHash: string(hashed), Role: shared.RoleCashier, IsActive: true},
			2: {ID: 2, Username: "jose", FullName: "José", PasswordHash: string(hashed), Role: shared.RoleAdmin, IsActive: false},
		},
		sessions: map[string]int64{},
	}
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	s.touched++
	return nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newRouter(t *testing.T, repo *stubRepo) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	service := auth.NewService(repo)
	handler := auth.NewHandler(nil, service, sessions, shared.NewCSRFManager("csrfsecret"))

	r := chi.NewRouter()
	r.Use(sessions.Middleware(nil))
	r.Route("/api/auth", func(r chi.Router) {
		handler.MountRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(service, nil))
			handler.MountSessionRoutes(r)
		})
	})
	return r
}

func login(t *testing.T, router http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccessSetsSession(t *testing.T) {
	repo := newStubRepo(t)
	router := newRouter(t, repo)

	rec := login(t, router, "MARIA", "secreto123")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		User struct {
			ID   int64  `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, int64(1), payload.User.ID)
	assert.Equal(t, shared.RoleCashier, payload.User.Role)
	assert.NotEmpty(t, payload.CSRFToken)
	assert.Equal(t, 1, repo.touched)
	assert.Len(t, repo.sessions, 1)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(cookies[0])
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, me)
	require.Equal(t, http.StatusOK, meRec.Code)
	assert.Contains(t, meRec.Body.String(), payload.CSRFToken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := newStubRepo(t)
	router := newRouter(t, repo)

	for _, tc := range []struct{ user, pass string }{
		{"maria", "incorrecta"},
		{"nadie", "secreto123"},
		{"jose", "secreto123"},
	} {
		rec := login(t, router, tc.user, tc.pass)
		require.Equal(t, http.StatusUnauthorized, rec.Code, tc.user)
		assert.Contains(t, rec.Body.String(), `"error"`)
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestLoginRequiresFields(t *testing.T) {
	router := newRouter(t, newStubRepo(t))
	rec := login(t, router, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeWithoutSession(t *testing.T) {
	router := newRouter(t, newStubRepo(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeactivatedUserLosesSession(t *testing.T) {
	repo := newStubRepo(t)
	router := newRouter(t, repo)
	rec := login(t, router, "maria", "secreto123")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Result().Cookies()[0]

	repo.users[1].IsActive = false
	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, me)
	require.Equal(t, http.StatusUnauthorized, meRec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := newStubRepo(t)
	router := newRouter(t, repo)
	cookie := login(t, router, "maria", "secreto123").Result().Cookies()[0]

	out := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	out.AddCookie(cookie)
	outRec := httptest.NewRecorder()
	router.ServeHTTP(outRec, out)
	require.Equal(t, http.StatusNoContent, outRec.Code)
	assert.Empty(t, repo.sessions)

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, me)
	require.Equal(t, http.StatusUnauthorized, meRec.Code)
}
