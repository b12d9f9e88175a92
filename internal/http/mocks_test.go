package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"market-backend/internal/chat"
	"market-backend/internal/domain"
	"market-backend/internal/repository"
	"market-backend/internal/service"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) List(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.usersByID))
	for _, u := range m.usersByID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) SetResetToken(_ context.Context, id string, reset domain.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Reset = &reset
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) RedeemResetToken(_ context.Context, tokenHash string, now time.Time, passwordHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, user := range m.usersByID {
		r := user.Reset
		if r != nil && r.TokenHash == tokenHash && now.Before(r.ExpiresAt) {
			user.Reset = nil
			user.PasswordHash = passwordHash
			m.usersByID[id] = user
			return id, nil
		}
	}
	return "", pgx.ErrNoRows
}

func (m *mockUserRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.usersByID), nil
}

type mockChatRepo struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func (m *mockChatRepo) Create(_ context.Context, msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockChatRepo) ListRecent(_ context.Context, limit int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatMessage, 0, limit)
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.messages[i])
	}
	return out, nil
}

type captureSender struct {
	mu        sync.Mutex
	calls     int
	lastToken string
	err       error
}

func (s *captureSender) SendPasswordReset(_ context.Context, _, _, resetURL string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if u, err := url.Parse(resetURL); err == nil {
		s.lastToken = u.Query().Get("token")
	}
	return s.err
}

func (s *captureSender) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastToken
}

type testEnv struct {
	router   *gin.Engine
	auth     *service.AuthService
	users    *mockUserRepo
	messages *mockChatRepo
	shop     *shopFixture
	sender   *captureSender
	hub      *chat.Hub
	jwt      *service.JWTService
	dbErr    error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	env := &testEnv{
		users:    newMockUserRepo(),
		messages: &mockChatRepo{},
		shop:     newShopFixture(),
		sender:   &captureSender{},
		hub:      chat.NewHub(logger, time.Second),
		jwt:      service.NewJWTService("secret", "market-backend", 15*time.Minute),
	}
	origins := []string{"http://localhost:4000"}
	env.auth = service.NewAuthService(logger, env.users, env.jwt, nil, env.sender, service.AuthOptions{FrontendURL: "http://front.test"})
	chatSvc := service.NewChatService(logger, env.messages, env.hub)
	dashboard := service.NewDashboardService(env.users, env.shop.products, env.shop.invoices)

	env.router = NewRouter(
		logger,
		env.jwt,
		Handlers{
			Auth:      NewAuthHandler(logger, env.auth),
			User:      NewUserHandler(logger, env.auth),
			Chat:      NewChatHandler(logger, chatSvc, env.auth, env.hub, origins),
			Product:   NewProductHandler(logger, service.NewProductService(logger, env.shop.products)),
			Cart:      NewCartHandler(logger, service.NewCartService(env.shop.cart)),
			Invoice:   NewInvoiceHandler(logger, service.NewInvoiceService(logger, env.shop.invoices)),
			Dashboard: NewDashboardHandler(logger, dashboard),
		},
		origins,
		func(context.Context) error { return env.dbErr },
	)
	t.Cleanup(env.hub.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type tokenBody struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        domain.User `json:"user"`
}

func (e *testEnv) register(t *testing.T, email, password string) tokenBody {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", map[string]any{
		"email":    email,
		"name":     "Tester",
		"password": password,
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", email, rec.Code, rec.Body.String())
	}
	return decodeToken(t, rec)
}

// seedAdmin crea el administrador como lo hace cmd/initdb y entra por
// /auth/login/admin.
func (e *testEnv) seedAdmin(t *testing.T, email, password string) tokenBody {
	t.Helper()
	if _, err := e.auth.EnsureAdmin(context.Background(), email, "Admin", password); err != nil {
		t.Fatalf("seed admin %s: %v", email, err)
	}
	rec := e.do(t, http.MethodPost, "/auth/login/admin", map[string]any{
		"email":    email,
		"password": password,
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login %s: expected 200, got %d: %s", email, rec.Code, rec.Body.String())
	}
	return decodeToken(t, rec)
}

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) tokenBody {
	t.Helper()
	var out tokenBody
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	return out
}
