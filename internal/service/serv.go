package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/linemk/washint-market/internal/domain/models"
	security "github.com/linemk/washint-market/internal/jwt-new"
	"github.com/linemk/washint-market/internal/storage"
)

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		tokenTTL: tokenTTL,
	}
}

type AuthServiceInterface interface {
	Signup(ctx context.Context, userName string, phoneNumber int64, password string) (*models.User, error)
	Login(ctx context.Context, phoneNumber int64, password string) (string, *models.User, error)
}

// Signup регистрирует нового пользователя.
// Пароль хэшируется через bcrypt (соль добавляется автоматически),
// нарушения уникальности имени/телефона приходят из хранилища типизированными.
func (a *AuthService) Signup(ctx context.Context, userName string, phoneNumber int64, password string) (*models.User, error) {
	const op = "auth.Signup"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("userName", userName),
	)
	logger.Info("registering user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := a.userRepo.CreateUser(ctx, &models.User{
		UserName:    userName,
		PhoneNumber: phoneNumber,
		PassHash:    passHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNameTaken) || errors.Is(err, storage.ErrPhoneNumberTaken) {
			logger.Warn("duplicate registration", slog.Any("error", err))
			return nil, err
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	logger.Info("user registered successfully", slog.String("userID", user.ID.String()))
	return user, nil
}

// Login аутентифицирует пользователя по номеру телефона и паролю.
// Введённый пароль сравнивается с сохранённым хэшем, после успешной проверки
// генерируется JWT-токен (секрет подписи берётся из переменной окружения).
// Несуществующий номер и неверный пароль неразличимы для вызывающей стороны.
func (a *AuthService) Login(ctx context.Context, phoneNumber int64, password string) (string, *models.User, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.Int64("phoneNumber", phoneNumber),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByPhone(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", nil, ErrInvalidCredentials
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", nil, ErrInvalidCredentials
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.String("userID", user.ID.String()))
	return token, user, nil
}
