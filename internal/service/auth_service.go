package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"market-backend/internal/domain"
	"market-backend/internal/email"
	"market-backend/internal/metrics"
	"market-backend/internal/repository"
)

var (
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrEmailAlreadyRegistered     = errors.New("email already registered")
	ErrRoleMismatch               = errors.New("role mismatch")
	ErrAdminRequired              = fmt.Errorf("%w: access restricted to administrators", ErrRoleMismatch)
	ErrAdminNotAllowed            = fmt.Errorf("%w: administrators must use the admin login", ErrRoleMismatch)
	ErrInvalidOrExpiredToken      = errors.New("invalid or expired token")
	ErrSamePassword               = errors.New("new password must differ from the current one")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
	ErrInvalidInput               = errors.New("invalid input")
	ErrUserNotFound               = errors.New("user not found")
)

const (
	minNameLength          = 2
	minRegisterPassword    = 6
	minNewPasswordLength   = 8
	defaultResetTokenTTL   = 30 * time.Minute
	defaultFrontendBaseURL = "http://localhost:4000"
)

// AuthOptions agrupa los parametros del flujo de reset.
type AuthOptions struct {
	ResetTTL            time.Duration
	FrontendURL         string
	MaskDeliveryFailure bool
}

// AuthService coordina registro, login, cambio y reset de contraseña.
type AuthService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	tokens  *JWTService
	resets  ResetTokenStore
	sender  email.Sender
	options AuthOptions

	bcryptCost int
	now        func() time.Time
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	tokens *JWTService,
	resets ResetTokenStore,
	sender email.Sender,
	options AuthOptions,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resets == nil {
		resets = NewPgResetTokenStore(users)
	}
	if options.ResetTTL <= 0 {
		options.ResetTTL = defaultResetTokenTTL
	}
	options.FrontendURL = strings.TrimRight(strings.TrimSpace(options.FrontendURL), "/")
	if options.FrontendURL == "" {
		options.FrontendURL = defaultFrontendBaseURL
	}
	return &AuthService{
		logger:     logger,
		users:      users,
		tokens:     tokens,
		resets:     resets,
		sender:     sender,
		options:    options,
		bcryptCost: bcrypt.DefaultCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput no lleva rol: el registro público siempre crea usuarios
// comunes. Los administradores se crean con EnsureAdmin.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (domain.User, AccessToken, error) {
	if s.users == nil {
		return domain.User{}, AccessToken{}, errors.New("auth service not configured")
	}

	emailAddr := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if emailAddr == "" || len([]rune(name)) < minNameLength || len(input.Password) < minRegisterPassword {
		return domain.User{}, AccessToken{}, ErrInvalidInput
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return domain.User{}, AccessToken{}, ErrEmailAlreadyRegistered
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, AccessToken{}, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return domain.User{}, AccessToken{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.User{}, AccessToken{}, ErrEmailAlreadyRegistered
		}
		return domain.User{}, AccessToken{}, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return domain.User{}, AccessToken{}, err
	}
	metrics.RecordRegistration()
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", user.Role()))
	return user, token, nil
}

// Login autentica y, si expectAdmin no es nil, exige ese rol.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string, expectAdmin *bool) (domain.User, AccessToken, error) {
	user, err := s.authenticate(ctx, emailAddr, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.RecordLogin("invalid_credentials")
		}
		return domain.User{}, AccessToken{}, err
	}
	if expectAdmin != nil && *expectAdmin != user.IsAdmin {
		metrics.RecordLogin("role_mismatch")
		if *expectAdmin {
			return domain.User{}, AccessToken{}, ErrAdminRequired
		}
		return domain.User{}, AccessToken{}, ErrAdminNotAllowed
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return domain.User{}, AccessToken{}, err
	}
	metrics.RecordLogin("success")
	return user, token, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, emailAddr, currentPassword, newPassword string) error {
	user, err := s.authenticate(ctx, emailAddr, currentPassword)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(newPassword)) == nil {
		return ErrSamePassword
	}
	if len(newPassword) < minNewPasswordLength {
		return ErrInvalidInput
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

// EnsureAdmin crea el administrador inicial si el email no existe. Devuelve
// false cuando ya estaba registrado.
func (s *AuthService) EnsureAdmin(ctx context.Context, emailAddr, name, password string) (bool, error) {
	emailAddr = normalizeEmail(emailAddr)
	name = strings.TrimSpace(name)
	if emailAddr == "" || len([]rune(name)) < minNameLength || len(password) < minRegisterPassword {
		return false, ErrInvalidInput
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return false, err
	}
	admin := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Name:         name,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UserFromToken valida el access token y carga el usuario actual.
func (s *AuthService) UserFromToken(ctx context.Context, accessToken string) (domain.User, error) {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetByEmail(ctx, claims.Email())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrJWTInvalid
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (domain.User, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return domain.User{}, ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// authenticate no distingue entre usuario inexistente y contraseña erronea.
func (s *AuthService) authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("auth service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
