package service

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"market-backend/internal/domain"
	"market-backend/internal/email"
	"market-backend/internal/repository"
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
		if resetMatches(user.Reset, tokenHash, now) {
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

// Misma condición que el WHERE de PgUserRepository.RedeemResetToken.
func resetMatches(r *domain.PasswordReset, tokenHash string, now time.Time) bool {
	return r != nil && r.TokenHash != "" && r.TokenHash == tokenHash && now.Before(r.ExpiresAt)
}

type mockEmailSender struct {
	mu        sync.Mutex
	calls     int
	lastTo    string
	lastName  string
	lastURL   string
	lastToken string
	err       error
}

func (m *mockEmailSender) SendPasswordReset(_ context.Context, toEmail, name, resetURL string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastTo = toEmail
	m.lastName = name
	m.lastURL = resetURL
	if u, err := url.Parse(resetURL); err == nil {
		m.lastToken = u.Query().Get("token")
	}
	return m.err
}

func newTestAuthService(repo *mockUserRepo, sender email.Sender, opts AuthOptions) *AuthService {
	jwtSvc := NewJWTService("secret", "market-backend", 15*time.Minute)
	s := NewAuthService(zap.NewNop(), repo, jwtSvc, nil, sender, opts)
	s.bcryptCost = bcrypt.MinCost
	return s
}
