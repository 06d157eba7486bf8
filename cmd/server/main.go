package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/linemk/washint-market/internal/app"
	"github.com/linemk/washint-market/internal/app/handlers"
	"github.com/linemk/washint-market/internal/config"
	"github.com/linemk/washint-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/washint-market/internal/lib/logger"
	"github.com/linemk/washint-market/internal/lib/logger/handlers/urllog"
	"github.com/linemk/washint-market/internal/service"
	"github.com/linemk/washint-market/internal/storage"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	reviewRepo := storage.NewReviewRepository(application.DB)

	tokenTTL := time.Duration(application.Config.JWT.TokenTTL) * time.Minute
	authService := service.NewAuthService(application.Logger, userRepo, tokenTTL)
	catalogService := service.NewCatalogService(application.Logger, productRepo)
	orderService := service.NewOrderService(application.Logger, application.DB, productRepo, orderRepo)
	reviewService := service.NewReviewService(application.Logger, reviewRepo)

	// публичные эндпоинты: регистрация, вход, каталог, отзывы
	router.Post("/api/auth/signup", handlers.SignupHandler(application.Logger, authService))
	router.Post("/api/auth/login", handlers.LoginHandler(application.Logger, authService, tokenTTL))
	router.Post("/api/auth/logout", handlers.LogoutHandler(application.Logger))
	router.Get("/api/products", handlers.ListProductsHandler(application.Logger, catalogService))
	router.Get("/api/products/search", handlers.SearchProductsHandler(application.Logger, catalogService))
	router.Get("/api/products/{productID}", handlers.GetProductHandler(application.Logger, catalogService))
	router.Get("/api/products/{productID}/reviews", handlers.ListReviewsHandler(application.Logger, reviewService))
	router.Get("/api/products/{productID}/rating", handlers.RatingHandler(application.Logger, reviewService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		r.Get("/api/auth/status", handlers.StatusHandler(application.Logger))
		// управление товарами доступно только продавцу-владельцу
		r.Post("/api/products", handlers.CreateProductHandler(application.Logger, catalogService))
		r.Put("/api/products/{productID}", handlers.UpdateProductHandler(application.Logger, catalogService))
		r.Delete("/api/products/{productID}", handlers.DeleteProductHandler(application.Logger, catalogService))
		// заказы
		r.Post("/api/orders", handlers.PlaceOrderHandler(application.Logger, orderService))
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderService))
		r.Post("/api/orders/{orderID}/cancel", handlers.CancelOrderHandler(application.Logger, orderService))
		r.Patch("/api/orders/{orderID}/status", handlers.UpdateOrderStatusHandler(application.Logger, orderService))
		r.Get("/api/seller/ordered-products", handlers.SellerOrderedProductsHandler(application.Logger, orderService))
		// отзывы
		r.Post("/api/products/{productID}/reviews", handlers.UpsertReviewHandler(application.Logger, reviewService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
