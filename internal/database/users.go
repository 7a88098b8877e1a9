package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"parcelview/internal/models"
)

var ErrEmailTaken = errors.New("a user with this email already exists")

type CreateUserParams struct {
	Email        string
	PasswordHash string
	DisplayName  *string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	role := arg.Role
	if role == "" {
		role = models.RoleUser
	}

	query := `
		INSERT INTO users (email, password_hash, display_name, role)
		VALUES (lower($1), $2, $3, $4)
		RETURNING id, email, password_hash, display_name, role, created_at
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, arg.Email, arg.PasswordHash, arg.DisplayName, role).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, display_name, role, created_at
		FROM users
		WHERE email = lower($1)
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, display_name, role, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users with their most recent successful login taken from
// access_logs.
func (q *Queries) ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error) {
	query := `
		SELECT
			u.id, u.email, u.display_name, u.role, u.created_at,
			(
				SELECT max(a.created_at)
				FROM access_logs a
				WHERE a.user_id = u.id AND a.event_type = 'login' AND a.success
			) AS last_login_at
		FROM users u
		ORDER BY u.created_at DESC, u.email
		LIMIT $1 OFFSET $2
	`
	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.DisplayName,
			&user.Role,
			&user.CreatedAt,
			&user.LastLoginAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if users == nil {
		return []models.User{}, nil
	}

	return users, nil
}

func (q *Queries) SetUserRole(ctx context.Context, id uuid.UUID, role string) error {
	query := `UPDATE users SET role = $1 WHERE id = $2`
	_, err := q.db.Exec(ctx, query, role, id)
	return err
}

func (q *Queries) UpdateUserPassword(ctx context.Context, userID uuid.UUID, newPasswordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`
	_, err := q.db.Exec(ctx, query, newPasswordHash, userID)
	return err
}
