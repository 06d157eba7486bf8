package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	security "github.com/linemk/washint-market/internal/jwt-new"
	"github.com/linemk/washint-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/washint-market/internal/service"
	"github.com/linemk/washint-market/internal/storage"
)

// SignupRequest представляет структуру запроса регистрации с тегами валидации
type SignupRequest struct {
	UserName    string `json:"username" validate:"required,min=3,max=256"`
	PhoneNumber int64  `json:"phoneNumber" validate:"required,gt=0"`
	Password    string `json:"password" validate:"required,min=8"`
}

// SignupResponse возвращает данные созданного пользователя
type SignupResponse struct {
	UserID   string `json:"userId"`
	UserName string `json:"username"`
}

// LoginRequest представляет структуру запроса аутентификации
type LoginRequest struct {
	PhoneNumber int64  `json:"phoneNumber" validate:"required,gt=0"`
	Password    string `json:"password" validate:"required"`
}

// LoginResponse представляет структуру ответа с JWT-токеном
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	UserName string `json:"username"`
}

// StatusResponse — ответ проверки статуса аутентификации
type StatusResponse struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	UserID     string `json:"userId,omitempty"`
}

var validate = validator.New()

// SignupHandler – HTTP-обработчик регистрации пользователя
func SignupHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SignupHandler"
		logger := log.With(slog.String("op", op))

		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		user, err := authService.Signup(r.Context(), req.UserName, req.PhoneNumber, req.Password)
		if err != nil {
			if errors.Is(err, storage.ErrUserNameTaken) || errors.Is(err, storage.ErrPhoneNumberTaken) {
				logger.Warn("duplicate signup", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			logger.Error("signup failed", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := SignupResponse{UserID: user.ID.String(), UserName: user.UserName}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// LoginHandler – HTTP-обработчик аутентификации.
// Токен возвращается в теле ответа и дублируется в httpOnly-куке auth_token
// для браузерных клиентов.
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface, tokenTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		token, user, err := authService.Login(r.Context(), req.PhoneNumber, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				logger.Warn("invalid credentials")
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			logger.Error("login failed", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     security.CookieName,
			Value:    token,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   int(tokenTTL.Seconds()),
			Path:     "/",
		})

		resp := LoginResponse{Token: token, UserID: user.ID.String(), UserName: user.UserName}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// LogoutHandler сбрасывает куку auth_token
func LogoutHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     security.CookieName,
			Value:    "",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   -1,
			Path:     "/",
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
	}
}

// StatusHandler сообщает, аутентифицирован ли запрос. Монтируется под
// JWT-middleware: без валидного токена клиент получает 401 и трактует его
// как isLoggedIn=false.
func StatusHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(StatusResponse{IsLoggedIn: true, UserID: userID.String()})
	}
}
