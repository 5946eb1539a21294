package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paper_trading/internal/domain"
	"paper_trading/internal/storage"
	"paper_trading/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// newRepo stores an admin (admin/admin123) and a regular user (demo/password123).
func newRepo(t *testing.T) (storage.Repository, *domain.User, *domain.User) {
	t.Helper()
	repo := storage.NewMemStorage()
	create := func(name, password, role string) *domain.User {
		hash, err := utils.HashPassword(password)
		require.NoError(t, err)
		u, err := repo.CreateUser(context.Background(), domain.User{
			Username: name, Password: hash, Email: name + "@example.com", WalletAddress: utils.NewWalletAddress(), Role: role,
		})
		require.NoError(t, err)
		return u
	}
	return repo, create("admin", "admin123", domain.RoleAdmin), create("demo", "password123", domain.RoleUser)
}

func adminRouter(repo storage.Repository) *gin.Engine {
	r := gin.New()
	r.GET("/admin", AdminAuth(repo, secret), func(c *gin.Context) {
		user := c.MustGet(AdminUserKey).(*domain.User)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateAdmin(t *testing.T) {
	repo, _, _ := newRepo(t)
	ctx := context.Background()

	u, err := AuthenticateAdmin(ctx, repo, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)

	_, err = AuthenticateAdmin(ctx, repo, "admin", "wrong")
	assert.Error(t, err)
	_, err = AuthenticateAdmin(ctx, repo, "ghost", "admin123")
	assert.Error(t, err)
	_, err = AuthenticateAdmin(ctx, repo, "demo", "password123")
	assert.Error(t, err, "a correct password is not enough without the admin role")
}

func TestAdminAuthBasic(t *testing.T) {
	repo, _, _ := newRepo(t)
	r := adminRouter(repo)

	cases := []struct {
		name     string
		user     string
		password string
		want     int
	}{
		{"admin", "admin", "admin123", http.StatusOK},
		{"wrong password", "admin", "nope", http.StatusUnauthorized},
		{"unknown user", "ghost", "admin123", http.StatusUnauthorized},
		{"regular user", "demo", "password123", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.SetBasicAuth(tc.user, tc.password)
			w := serve(r, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestAdminAuthMissingOrMalformedHeader(t *testing.T) {
	repo, _, _ := newRepo(t)
	r := adminRouter(repo)

	for _, header := range []string{"", "Basic !!!notbase64", "Token abc"} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code, "header %q", header)
	}
}

func TestAdminAuthRevalidatesEveryCall(t *testing.T) {
	repo, admin, _ := newRepo(t)
	r := adminRouter(repo)
	basic := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.SetBasicAuth("admin", "admin123")
		return req
	}
	require.Equal(t, http.StatusOK, serve(r, basic()).Code)

	_, err := repo.UpdateUserRole(context.Background(), admin.ID, domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, basic()).Code, "demoted admin is rejected at once")
}

func TestAdminAuthBearer(t *testing.T) {
	repo, admin, demo := newRepo(t)
	r := adminRouter(repo)
	bearer := func(token string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	token, err := utils.GenerateJWT(admin.ID, admin.Role, secret, time.Hour)
	require.NoError(t, err)
	w := serve(r, bearer(token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"admin"}`, w.Body.String())

	forged, err := utils.GenerateJWT(demo.ID, domain.RoleAdmin, secret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, bearer(forged)).Code, "role is read from the store, not the token")

	other, err := utils.GenerateJWT(admin.ID, admin.Role, "other-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, bearer(other)).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(r, bearer("garbage")).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.POST("/login", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "limits are per client")
}

func TestRateLimiterPrunesIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	start := time.Now()
	rl.limiterFor("10.0.0.1", start)
	rl.limiterFor("10.0.0.2", start.Add(2*time.Minute))
	assert.Len(t, rl.visitors, 2)

	rl.limiterFor("10.0.0.2", start.Add(5*time.Minute))
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := gin.New()
	r.Use(m.Handler(), RequestLogger())
	r.GET("/api/user", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", m.Expose())

	serve(r, httptest.NewRequest(http.MethodGet, "/api/user", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `paper_trading_http_requests_total{handler="/api/user",method="GET",status="200"} 1`), body)
	assert.Contains(t, body, `handler="unmatched"`)
	assert.Contains(t, body, "paper_trading_http_request_duration_seconds")
}
