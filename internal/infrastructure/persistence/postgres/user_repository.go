package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
)

const (
	insertUserSQL = `
INSERT INTO users (id, email, password_hash, first_name, last_name, username, picture_url, email_verified, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	selectUserSQL = `
SELECT id, email, password_hash, first_name, last_name, username, picture_url, email_verified, created_at, updated_at
FROM users`

	updateProfileSQL = `
UPDATE users SET
	first_name  = CASE WHEN $2 THEN $3 ELSE first_name END,
	last_name   = CASE WHEN $4 THEN $5 ELSE last_name END,
	username    = CASE WHEN $6 THEN $7 ELSE username END,
	picture_url = CASE WHEN $8 THEN $9 ELSE picture_url END,
	updated_at  = NOW()
WHERE id = $1`

	updatePasswordSQL = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
)

// UserRepository is the pgx-backed ports.UserRepository. The unique index on
// email is the defense-in-depth uniqueness guarantee behind the normalized
// email check.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.pool.Exec(ctx, insertUserSQL,
		user.ID.UUID,
		domain.NormalizeEmail(user.Email),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Username,
		user.PictureURL,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domerrors.ErrUserExists
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, selectUserSQL+` WHERE email = $1`, domain.NormalizeEmail(email))
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, selectUserSQL+` WHERE id = $1`, userID.UUID)
	return scanUser(row)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID domain.UserID, update domain.ProfileUpdate) error {
	tag, err := r.pool.Exec(ctx, updateProfileSQL,
		userID.UUID,
		update.FirstName != nil, update.FirstName,
		update.LastName != nil, update.LastName,
		update.Username != nil, update.Username,
		update.PictureURL != nil, update.PictureURL,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID domain.UserID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, updatePasswordSQL, userID.UUID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerrors.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID.UUID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.PictureURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Ensure UserRepository implements ports.UserRepository.
var _ ports.UserRepository = (*UserRepository)(nil)
