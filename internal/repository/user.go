package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/storefront/internal/model"
)

const uniqueViolation = "23505"

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// ProfileRepository resolves the role attached to a user account.
type ProfileRepository interface {
	// EnsureProfile returns the user's role, creating a default user profile
	// on first use.
	EnsureProfile(ctx context.Context, userID uuid.UUID, email string) (model.Role, error)
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

func (r *pgUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	query := `INSERT INTO users (id, email, password_hash, created_at)
			  VALUES ($1, $2, $3, NOW())
			  RETURNING created_at`
	err := r.pool.QueryRow(ctx, query, user.ID, user.Email, user.Password).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrUserAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (r *pgUserRepo) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

type pgProfileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &pgProfileRepo{pool: pool}
}

func (r *pgProfileRepo) EnsureProfile(ctx context.Context, userID uuid.UUID, email string) (model.Role, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, role) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		userID, email, model.RoleUser,
	)
	if err != nil {
		return "", fmt.Errorf("ensure profile: %w", err)
	}

	var raw string
	if err := r.pool.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1`, userID).Scan(&raw); err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return model.ParseRole(raw)
}
