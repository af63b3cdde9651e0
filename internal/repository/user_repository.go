package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/ticket-system/internal/domain"
)

// UserRepository defines read access to accounts. The ticket core never
// creates or mutates users.
type UserRepository interface {
	GetByID(ctx context.Context, q Querier, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, q Querier, username string) (*domain.User, error)
	ListAdmins(ctx context.Context, q Querier) ([]domain.User, error)
}

type userRepository struct{}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository() UserRepository {
	return userRepository{}
}

const userSelectColumns = `
        SELECT id, username, full_name, role, email, password_hash, active, created_at
        FROM users`

func (userRepository) GetByID(ctx context.Context, q Querier, id int64) (*domain.User, error) {
	query := userSelectColumns + ` WHERE id=$1`
	return scanUser(q.QueryRow(ctx, query, id))
}

func (userRepository) GetByUsername(ctx context.Context, q Querier, username string) (*domain.User, error) {
	query := userSelectColumns + ` WHERE username=$1`
	return scanUser(q.QueryRow(ctx, query, username))
}

func (userRepository) ListAdmins(ctx context.Context, q Querier) ([]domain.User, error) {
	query := userSelectColumns + ` WHERE role=$1 AND active ORDER BY full_name`
	rows, err := q.Query(ctx, query, domain.UserRoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.FullName,
			&user.Role,
			&user.Email,
			&user.PasswordHash,
			&user.Active,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.Role,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
