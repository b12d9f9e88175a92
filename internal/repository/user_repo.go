package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"market-backend/internal/domain"
)

// ErrDuplicateEmail se devuelve cuando el email ya existe en la tabla users.
var ErrDuplicateEmail = errors.New("duplicate email")

const uniqueViolation = "23505"

// UserRepository define el contrato de persistencia para usuarios.
// Las búsquedas sin resultado devuelven pgx.ErrNoRows.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id string, reset domain.PasswordReset) error
	// RedeemResetToken fija passwordHash y limpia el reset pendiente que
	// coincide con tokenHash y sigue vigente en now. Devuelve el id del dueño.
	RedeemResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (string, error)
	Count(ctx context.Context) (int, error)
}

// PgUserRepository implementa UserRepository sobre Postgres.
type PgUserRepository struct {
	db DB
}

func NewPgUserRepository(db DB) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userColumns = `id, email, name, password_hash, is_admin, reset_token_hash, reset_token_expires_at, created_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, email, name, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.IsAdmin,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) SetResetToken(ctx context.Context, id string, reset domain.PasswordReset) error {
	const query = `
		UPDATE users
		SET reset_token_hash = $2, reset_token_expires_at = $3
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, reset.TokenHash, reset.ExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) RedeemResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (string, error) {
	// Un solo UPDATE: dos canjes concurrentes no pueden ganar ambos.
	const query = `
		UPDATE users
		SET password_hash = $3, reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $2
		RETURNING id
	`
	var id string
	if err := r.db.QueryRow(ctx, query, tokenHash, now, passwordHash).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u         domain.User
		resetHash *string
		resetExp  *time.Time
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.IsAdmin,
		&resetHash,
		&resetExp,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if resetHash != nil && resetExp != nil {
		u.Reset = &domain.PasswordReset{TokenHash: *resetHash, ExpiresAt: *resetExp}
	}
	return u, nil
}
