package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-web-server/config"
	_ "session-web-server/docs"
	"session-web-server/internal/handler"
	"session-web-server/internal/repository"
	"session-web-server/internal/security"
	"session-web-server/internal/service"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title session-web-server
// @version 1.0
// @description REST API управления сессиями: выпуск, проверка, ротация и отзыв токенов

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка при закрытии БД: %v", err)
		}
	}()

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Ошибка при закрытии Redis: %v", err)
		}
	}()

	signingKeys, err := security.LoadSigningKeys(&cfg.JWT)
	if err != nil {
		log.Fatalf("Ошибка загрузки ключей подписи: %v", err)
	}

	srv, router := config.SetupServer(cfg.ServerAddr)

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	lockoutRepo := repository.NewLockoutRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(redisClient)

	lockDuration, err := time.ParseDuration(cfg.Lockout.LockDuration)
	if err != nil {
		lockDuration = 0 // LockoutGuard подставит значение по умолчанию
	}
	lockoutGuard := service.NewLockoutGuard(lockoutRepo, cfg.Lockout.Threshold, lockDuration)

	jwtService := security.NewJWTService(signingKeys, cfg.JWT.Issuer)
	sessionService := service.NewSessionService(db, cfg, tokenRepo, userRepo, rateLimitRepo, lockoutGuard, jwtService)

	if cfg.AuditExport.Enabled {
		auditExport, err := service.NewAuditExportService(ctx, &cfg.S3Config, tokenRepo)
		if err != nil {
			log.Fatalf("Ошибка создания сервиса выгрузки журнала: %v", err)
		}
		interval, err := time.ParseDuration(cfg.AuditExport.Interval)
		if err != nil {
			interval = time.Hour
		}
		go auditExport.Run(ctx, interval)
	}

	authHandler := handler.NewAuthenticationHandler(sessionService)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	setupAuthRoutes(router, authHandler, sessionService)

	runServer(ctx, srv)
}

func setupAuthRoutes(r chi.Router, h *handler.AuthenticationHandler, validator security.AccessValidator) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(security.JWTMiddleware(validator))
			r.Get("/me", h.GetCurrentUsersUUID)
			r.Head("/me", h.GetCurrentUsersUUID)
			r.Get("/sessions", h.ListSessions)
			r.Post("/logout-all", h.LogoutAll)
		})
		r.Group(func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/refresh", h.RefreshToken)
			r.Post("/logout", h.Logout)
		})
	})
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}
