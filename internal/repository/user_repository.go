package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/pkg/database"
)

const userColumns = `id, email, password_hash, display_name, photo_url, is_anonymous,
	is_active, is_email_verified, created_at, updated_at, last_login_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new account. Anonymous accounts have a nil email.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, display_name, photo_url, is_anonymous,
			is_active, is_email_verified, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :display_name, :photo_url, :is_anonymous,
			:is_active, :is_email_verified, :created_at, :updated_at)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	if _, err := r.db.DB.NamedExecContext(ctx, query, user); err != nil {
		if database.PQCode(err) == pqUniqueViolation {
			return fmt.Errorf("user with email already exists: %w", ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.DB.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.DB.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

// UpdateProfile updates display name and photo; nil fields keep their value
func (r *userRepository) UpdateProfile(ctx context.Context, id string, fields domain.IdentityFields) error {
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
			photo_url = COALESCE($3, photo_url),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, fields.DisplayName, fields.PhotoURL)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("user with id %s", id))
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	result, err := r.db.DB.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("user with id %s", userID))
}

func expectOneRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}
	return nil
}
