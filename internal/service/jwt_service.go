package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"market-backend/internal/domain"
)

const (
	defaultAccessTTL = 30 * time.Minute
	tokenTypeAccess  = "access"
	tokenTypeBearer  = "bearer"
)

// JWTService emite y valida access tokens firmados con HMAC.
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
	now       func() time.Time
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Claims lleva identidad (sub=email) y rol del usuario.
type Claims struct {
	UserID    string `json:"uid"`
	Name      string `json:"name,omitempty"`
	IsAdmin   bool   `json:"adm"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Email devuelve el subject del token.
func (c Claims) Email() string {
	return c.Subject
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrJWTInvalid   = fmt.Errorf("%w: jwt invalid", ErrInvalidToken)
	ErrJWTExpired   = fmt.Errorf("%w: jwt expired", ErrInvalidToken)
)

func NewJWTService(secret, issuer string, accessTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "market-backend"
	}
	return &JWTService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    issuer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *JWTService) Issue(user domain.User) (AccessToken, error) {
	return s.IssueWithTTL(user, s.accessTTL)
}

func (s *JWTService) IssueWithTTL(user domain.User, ttl time.Duration) (AccessToken, error) {
	if len(s.secret) == 0 {
		return AccessToken{}, ErrJWTInvalid
	}
	if strings.TrimSpace(user.Email) == "" || strings.TrimSpace(user.ID) == "" {
		return AccessToken{}, ErrJWTInvalid
	}
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	now := s.now()
	claims := Claims{
		UserID:    user.ID,
		Name:      user.Name,
		IsAdmin:   user.IsAdmin,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{
		AccessToken: signed,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(ttl.Seconds()),
	}, nil
}

func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(accessToken) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(accessToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeAccess {
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
