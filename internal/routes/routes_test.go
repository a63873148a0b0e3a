package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminToken = "routes-admin-token"

type outbox struct {
	mu     sync.Mutex
	verify map[string]string
}

func (o *outbox) SendPasswordReset(context.Context, string, string) error { return nil }

func (o *outbox) SendVerification(_ context.Context, to, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verify[to] = token
	return nil
}

func (o *outbox) verification(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.verify[to]
}

// memoryStorage is a fiber.Storage over a map, shared by every limiter.
type memoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{data: map[string][]byte{}}
}

func (m *memoryStorage) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStorage) Set(key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), val...)
	return nil
}

func (m *memoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStorage) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
	return nil
}

func (m *memoryStorage) Close() error { return nil }

func (m *memoryStorage) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

func newTestApp(t *testing.T) (*fiber.App, *outbox) {
	t.Helper()
	return newTestAppWith(t, &config.Config{AdminToken: adminToken}, nil)
}

func newTestAppWith(t *testing.T, cfg *config.Config, limiterStorage fiber.Storage) (*fiber.App, *outbox) {
	t.Helper()
	issuer := auth.NewTokenIssuer("routes-secret", 10*time.Minute)
	users := store.NewMemoryStore()
	mails := &outbox{verify: map[string]string{}}
	svc := services.NewAccountService(users, auth.NewBcryptHasher(bcrypt.MinCost), issuer, mails, time.Hour)

	app := fiber.New()
	Setup(app, cfg, Deps{
		Issuer:         issuer,
		Users:          users,
		LimiterStorage: limiterStorage,
		Accounts:       handlers.NewAccountHandler(svc),
		Admin:          handlers.NewAdminHandler(svc),
		Health: handlers.NewHealthHandler(map[string]handlers.Checker{
			"users": users.Ping,
		}),
	})
	return app, mails
}

func call(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func signUp(t *testing.T, app *fiber.App, username, email string) dto.UserResponse {
	t.Helper()
	status, raw := call(t, app, "POST", "/api/auth/signup",
		`{"username":"`+username+`","password":"secret123","email":"`+email+`","firstName":"Alice","age":30}`, nil)
	require.Equal(t, fiber.StatusCreated, status, string(raw))

	var resp dto.UserMessageResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "User registered successfully", resp.Message)
	return resp.User
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	status, raw := call(t, app, "POST", "/api/auth/login", `{"username":"`+username+`","password":"`+password+`"}`, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func errorBody(t *testing.T, raw []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

func TestAccountFlow(t *testing.T) {
	app, _ := newTestApp(t)

	created := signUp(t, app, "alice", "alice@example.com")
	assert.False(t, created.EmailVerified)
	assert.NotContains(t, string(mustJSON(t, created)), "secret123")

	token := login(t, app, "alice", "secret123")

	status, raw := call(t, app, "GET", "/api/auth/profile", "", bearer(token))
	require.Equal(t, fiber.StatusOK, status)
	var profile dto.UserResponse
	require.NoError(t, json.Unmarshal(raw, &profile))
	assert.Equal(t, created.ID, profile.ID)
	assert.Equal(t, "Alice", profile.FirstName)
	assert.NotNil(t, profile.LastLogin)

	status, raw = call(t, app, "PUT", "/api/auth/profile", `{"bio":"hello"}`, bearer(token))
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &profile))
	assert.Equal(t, "hello", profile.Bio)
	assert.Equal(t, "Alice", profile.FirstName)

	status, _ = call(t, app, "PUT", "/api/auth/change-password",
		`{"currentPassword":"secret123","newPassword":"newpass456"}`, bearer(token))
	require.Equal(t, fiber.StatusOK, status)

	status, raw = call(t, app, "POST", "/api/auth/login", `{"username":"alice","password":"secret123"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", errorBody(t, raw).Message)
	login(t, app, "alice", "newpass456")

	status, _ = call(t, app, "DELETE", "/api/auth/account", "", bearer(token))
	require.Equal(t, fiber.StatusOK, status)

	status, raw = call(t, app, "GET", "/api/auth/profile", "", bearer(token))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "User not found", errorBody(t, raw).Message)
}

func TestSignUpErrors(t *testing.T) {
	app, _ := newTestApp(t)
	signUp(t, app, "alice", "alice@example.com")

	status, raw := call(t, app, "POST", "/api/auth/signup",
		`{"username":"alice","password":"secret123","email":"other@example.com","firstName":"A"}`, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "Username already exists", errorBody(t, raw).Message)

	status, raw = call(t, app, "POST", "/api/auth/signup",
		`{"username":"bob","password":"secret123","email":"alice@example.com","firstName":"B"}`, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "Email already exists", errorBody(t, raw).Message)

	status, raw = call(t, app, "POST", "/api/auth/signup",
		`{"username":"carol","password":"123","email":"nope","firstName":"C","age":12}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	e := errorBody(t, raw)
	assert.Equal(t, fiber.StatusBadRequest, e.StatusCode)
	assert.Equal(t, "/api/auth/signup", e.Path)
	fields := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"password", "email", "age"}, fields)

	status, _ = call(t, app, "POST", "/api/auth/signup", `{"username":`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSessionRequired(t *testing.T) {
	app, _ := newTestApp(t)

	status, raw := call(t, app, "GET", "/api/auth/profile", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Missing or malformed token", errorBody(t, raw).Message)

	status, raw = call(t, app, "PUT", "/api/auth/deactivate", "", bearer("not.a.token"))
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", errorBody(t, raw).Message)

	status, _ = call(t, app, "POST", "/api/auth/forgot-password", `{"email":"ghost@example.com"}`, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestDeactivateAndReactivate(t *testing.T) {
	app, _ := newTestApp(t)
	signUp(t, app, "alice", "alice@example.com")
	token := login(t, app, "alice", "secret123")

	status, raw := call(t, app, "PUT", "/api/auth/deactivate", "", bearer(token))
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, _ = call(t, app, "POST", "/api/auth/login", `{"username":"alice","password":"secret123"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, "PUT", "/api/auth/reactivate", "", bearer(token))
	require.Equal(t, fiber.StatusOK, status)
	login(t, app, "alice", "secret123")
}

func TestVerifyEmail(t *testing.T) {
	app, mails := newTestApp(t)
	signUp(t, app, "alice", "alice@example.com")

	token := mails.verification("alice@example.com")
	require.NotEmpty(t, token)

	status, _ := call(t, app, "GET", "/api/auth/verify-email/"+token, "", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, raw := call(t, app, "GET", "/api/auth/verify-email/"+token, "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid verification token", errorBody(t, raw).Message)

	session := login(t, app, "alice", "secret123")
	status, raw = call(t, app, "GET", "/api/auth/profile", "", bearer(session))
	require.Equal(t, fiber.StatusOK, status)
	var profile dto.UserResponse
	require.NoError(t, json.Unmarshal(raw, &profile))
	assert.True(t, profile.EmailVerified)
}

func TestAdminRoutes(t *testing.T) {
	app, _ := newTestApp(t)
	alice := signUp(t, app, "alice", "alice@example.com")
	signUp(t, app, "bob", "bob@example.com")
	token := login(t, app, "alice", "secret123")

	status, _ := call(t, app, "GET", "/api/admin/users", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, raw := call(t, app, "GET", "/api/admin/users", "", bearer(token))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Admin access required", errorBody(t, raw).Message)

	admin := map[string]string{"X-Admin-Token": adminToken}
	status, raw = call(t, app, "GET", "/api/admin/users?limit=1", "", admin)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	var list dto.UserListResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Equal(t, int64(2), list.Total)
	assert.Len(t, list.Users, 1)

	status, raw = call(t, app, "GET", "/api/admin/users/"+alice.ID, "", admin)
	require.Equal(t, fiber.StatusOK, status)
	var got dto.UserResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "alice", got.Username)

	status, _ = call(t, app, "GET", "/api/admin/users/missing", "", admin)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)

	status, raw := call(t, app, "GET", "/api/health", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var h dto.HealthResponse
	require.NoError(t, json.Unmarshal(raw, &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "ok", h.Checks["users"])
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRateLimitersCountSeparately(t *testing.T) {
	storage := newMemoryStorage()
	app, _ := newTestAppWith(t, &config.Config{APIRateLimit: 60, AuthRateLimit: 10}, storage)

	for i := 0; i < 10; i++ {
		status, _ := call(t, app, "GET", "/api/health", "", nil)
		require.Equal(t, fiber.StatusOK, status)
	}

	// API traffic must not use up the auth budget.
	for i := 0; i < 10; i++ {
		status, _ := call(t, app, "GET", "/api/auth/verify-email/unknown", "", nil)
		require.Equal(t, fiber.StatusBadRequest, status, "auth request %d", i+1)
	}
	status, _ := call(t, app, "GET", "/api/auth/verify-email/unknown", "", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)

	var apiKeys, authKeys int
	for _, k := range storage.keys() {
		switch {
		case strings.HasPrefix(k, "api:"):
			apiKeys++
		case strings.HasPrefix(k, "auth:"):
			authKeys++
		}
	}
	assert.Positive(t, apiKeys)
	assert.Positive(t, authKeys)
}
