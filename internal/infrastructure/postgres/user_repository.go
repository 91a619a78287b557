package postgres

import (
	"context"
	"errors"
	"time"

	domain "github.com/Jatyon/bid-battle/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository persists credential records in PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user record and fills in its generated id.
// The email unique index spans soft-deleted rows, so a previously deleted
// email surfaces as ErrEmailExists.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
INSERT INTO users (email, password_hash, first_name, last_name, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
RETURNING id
`
	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a non-deleted user by email without the password hash.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
SELECT id, email, '', first_name, last_name, last_login_at, created_at, updated_at
FROM users WHERE email = $1 AND deleted_at IS NULL
`
	return r.getOne(ctx, query, email)
}

// GetWithPasswordByEmail fetches a non-deleted user including the
// normally-hidden password hash.
func (r *UserRepository) GetWithPasswordByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
SELECT id, email, COALESCE(password_hash, ''), first_name, last_name, last_login_at, created_at, updated_at
FROM users WHERE email = $1 AND deleted_at IS NULL
`
	return r.getOne(ctx, query, email)
}

// GetByID retrieves a non-deleted user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
SELECT id, email, '', first_name, last_name, last_login_at, created_at, updated_at
FROM users WHERE id = $1 AND deleted_at IS NULL
`
	return r.getOne(ctx, query, id)
}

// UpdateLastLogin stamps the most recent successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	const query = `
UPDATE users SET last_login_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL
`
	ct, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash for a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `
UPDATE users SET password_hash = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL
`
	ct, err := r.pool.Exec(ctx, query, id, passwordHash, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
