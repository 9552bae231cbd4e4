package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if _, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		now,
	); err != nil {
		return translatePgError(err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1 OR email=$2 LIMIT 1`, username, email)
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.fetchMany(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	return r.fetchMany(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::text[])`, ids)
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return r.fetchMany(ctx, `SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY created_at ASC`, role)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translatePgError(err)
	}
	return user, nil
}

func (r *userRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
