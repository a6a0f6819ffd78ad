package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"grocery/internal/config"
	"grocery/internal/handler"
	"grocery/internal/infra/cache"
	"grocery/internal/infra/db"
	"grocery/internal/infra/events"
	infraRepo "grocery/internal/infra/repository"
	"grocery/internal/server"
	"grocery/internal/usecase"
	auth "grocery/internal/usecase/auth_usecase"
	"grocery/internal/validator"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// .env は無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	profileRepo := infraRepo.NewProfileGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	wishlistRepo := infraRepo.NewWishlistGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)

	//注文の二重送信ガード（REDIS_ADDR があるときだけ）
	orderOpts := []usecase.OrderOption{usecase.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		rdb := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		if err := cache.Ping(ctx, rdb); err != nil {
			// 落ちていても注文は受ける
			logger.Warn("redis unavailable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		orderOpts = append(orderOpts, usecase.WithPlacementGuard(cache.NewPlacementGuard(rdb, cfg.OrderPlacementLockTTL)))
	}

	//注文イベント（KAFKA_BROKERS があるときだけ）
	var publisher usecase.OrderEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(
			events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaOrderTopic),
			cfg.ServiceName, 0, logger,
		)
		producer.Start()
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("kafka producer close failed", "err", err)
			}
		}()
		publisher = producer
		orderOpts = append(orderOpts, usecase.WithEventPublisher(producer))
	}

	//usecaseに渡す部品
	clock := auth.SystemClock{}
	idGen := auth.UUIDGenerator{}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(txm, userRepo, validator.NewAuthValidator(), hasher, clock)
	loginUC := auth.NewLoginUsecase(userRepo, rtRepo, verifier, issuer, idGen, clock, cfg.RefreshTokenTTL)
	refreshUC := auth.NewRefreshTokenUsecase(userRepo, rtRepo, issuer, idGen, clock, cfg.RefreshTokenTTL)
	adminUserUC := auth.NewAdminUserUsecase(txm, userRepo, clock)
	profileUC := usecase.NewProfileUsecase(profileRepo)
	productUC := usecase.NewProductUsecase(txm, productRepo, categoryRepo, infraRepo.NewSubCategoryGormRepository(gormDB))
	cartUC := usecase.NewCartUsecase(cartRepo, wishlistRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderOpts...)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, publisher)
	auditLogUC := usecase.NewAuditLogUsecase(infraRepo.NewAuditLogGormRepository(gormDB))

	//Handler生成
	e := server.New(server.Options{
		JWTSecret: cfg.JWTSecret,
		FEURL:     cfg.FEURL,
		Users:     userRepo,
		Logger:    logger,
	}, server.Handlers{
		Auth:       handler.NewAuthHandler(registerUC, loginUC, refreshUC, cfg.CookieSecure),
		AdminUser:  handler.NewAdminUserHandler(adminUserUC),
		Profile:    handler.NewProfileHandler(profileUC),
		Product:    handler.NewProductHandler(productUC),
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(orderUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
		AuditLog:   handler.NewAuditLogHandler(auditLogUC),
	})

	//Server起動
	logger.Info("server starting", "addr", cfg.Addr(), "env", cfg.GoEnv)
	return server.Start(ctx, e, cfg.Addr())
}
