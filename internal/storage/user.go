package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/linemk/washint-market/internal/domain/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserNameTaken    = errors.New("username already taken")
	ErrPhoneNumberTaken = errors.New("phone number already registered")
)

type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByPhone(ctx context.Context, phoneNumber int64) (*models.User, error)
	GetUserByUserName(ctx context.Context, userName string) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

// CreateUser вставляет нового пользователя. Нарушение уникальности имени или
// телефона транслируется в типизированную ошибку по имени constraint-а.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (user_name, phone_number, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		user.UserName, user.PhoneNumber, user.PassHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_user_name_key":
				return nil, ErrUserNameTaken
			case "users_phone_number_key":
				return nil, ErrPhoneNumberTaken
			}
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_name, phone_number, password_hash, created_at, updated_at FROM users WHERE id = $1", id)
	if err := row.Scan(&user.ID, &user.UserName, &user.PhoneNumber, &user.PassHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetUserByPhone используется при логине: вход выполняется по номеру телефона.
func (r *userRepository) GetUserByPhone(ctx context.Context, phoneNumber int64) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_name, phone_number, password_hash, created_at, updated_at FROM users WHERE phone_number = $1", phoneNumber)
	if err := row.Scan(&user.ID, &user.UserName, &user.PhoneNumber, &user.PassHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetUserByUserName(ctx context.Context, userName string) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_name, phone_number, password_hash, created_at, updated_at FROM users WHERE user_name = $1", userName)
	if err := row.Scan(&user.ID, &user.UserName, &user.PhoneNumber, &user.PassHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
