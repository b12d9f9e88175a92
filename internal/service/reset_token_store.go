package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"market-backend/internal/domain"
	"market-backend/internal/repository"
)

// ResetTokenStore guarda el reset pendiente de cada usuario. Save reemplaza
// cualquier token anterior del mismo usuario. Redeem canjea el token y fija
// passwordHash; para un mismo hash, a lo sumo una llamada tiene éxito.
type ResetTokenStore interface {
	Save(ctx context.Context, userID, tokenHash string, expiresAt, now time.Time) error
	Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (string, error)
}

// pgResetTokenStore usa las columnas reset_token_* de la tabla users.
type pgResetTokenStore struct {
	users repository.UserRepository
}

func NewPgResetTokenStore(users repository.UserRepository) ResetTokenStore {
	return &pgResetTokenStore{users: users}
}

func (s *pgResetTokenStore) Save(ctx context.Context, userID, tokenHash string, expiresAt, _ time.Time) error {
	return s.users.SetResetToken(ctx, userID, domain.PasswordReset{
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	})
}

func (s *pgResetTokenStore) Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (string, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return "", ErrInvalidOrExpiredToken
	}
	id, err := s.users.RedeemResetToken(ctx, tokenHash, now, passwordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidOrExpiredToken
		}
		return "", err
	}
	return id, nil
}

// Reemplaza el token previo del usuario (si lo hay) y guarda el nuevo.
// KEYS[1]=puntero del usuario, KEYS[2]=clave del token nuevo; ARGV[1]=prefijo
// de tokens, ARGV[2]=user id, ARGV[3]=hash, ARGV[4]=ttl en ms.
const redisResetSaveScript = `
local old = redis.call("GET", KEYS[1])
if old then
  redis.call("DEL", ARGV[1] .. old)
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[4])
redis.call("SET", KEYS[1], ARGV[3], "PX", ARGV[4])
return 1
`

// GET + DEL atómico del token; limpia el puntero si sigue apuntando a él.
const redisResetConsumeScript = `
local uid = redis.call("GET", KEYS[1])
if not uid then
  return false
end
redis.call("DEL", KEYS[1])
local ptr = ARGV[1] .. uid
if redis.call("GET", ptr) == ARGV[2] then
  redis.call("DEL", ptr)
end
return uid
`

type redisScripter interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisResetTokenStore struct {
	client      redisScripter
	users       repository.UserRepository
	tokenPrefix string
	userPrefix  string
}

// NewRedisResetTokenStore guarda los tokens en Redis; la expiración la
// resuelve el TTL de las claves. La contraseña se sigue escribiendo en users.
func NewRedisResetTokenStore(client *redis.Client, users repository.UserRepository) ResetTokenStore {
	if client == nil {
		return nil
	}
	return &redisResetTokenStore{
		client:      client,
		users:       users,
		tokenPrefix: "auth:reset:token:",
		userPrefix:  "auth:reset:user:",
	}
}

func (s *redisResetTokenStore) Save(ctx context.Context, userID, tokenHash string, expiresAt, now time.Time) error {
	userID = strings.TrimSpace(userID)
	tokenHash = strings.TrimSpace(tokenHash)
	if userID == "" || tokenHash == "" {
		return errors.New("reset token store: user id and token are required")
	}
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return errors.New("reset token store: expiry must be in the future")
	}
	keys := []string{s.userPrefix + userID, s.tokenPrefix + tokenHash}
	return s.client.Eval(ctx, redisResetSaveScript, keys, s.tokenPrefix, userID, tokenHash, ttl.Milliseconds()).Err()
}

func (s *redisResetTokenStore) Redeem(ctx context.Context, tokenHash string, _ time.Time, passwordHash string) (string, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return "", ErrInvalidOrExpiredToken
	}
	uid, err := s.client.Eval(ctx, redisResetConsumeScript, []string{s.tokenPrefix + tokenHash}, s.userPrefix, tokenHash).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidOrExpiredToken
		}
		return "", err
	}
	if strings.TrimSpace(uid) == "" {
		return "", ErrInvalidOrExpiredToken
	}
	if err := s.users.UpdatePassword(ctx, uid, passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidOrExpiredToken
		}
		return "", err
	}
	return uid, nil
}
