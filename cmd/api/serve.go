package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashloan-backend/internal/adapter/gateway/mpesa"
	httpadp "cashloan-backend/internal/adapter/http"
	"cashloan-backend/internal/adapter/repository/mysql"
	"cashloan-backend/internal/infrastructure/cache"
	"cashloan-backend/internal/infrastructure/db"
	"cashloan-backend/internal/usecase/admin"
	"cashloan-backend/internal/usecase/limits"
	"cashloan-backend/internal/usecase/loan"
	"cashloan-backend/internal/usecase/payment"
	"cashloan-backend/internal/usecase/reconcile"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := db.DefaultOptions()
	opts.LogLevel = db.ParseLogLevel(cfg.GormLog)
	gdb, err := db.OpenGorm(cfg.MySQLDSN(), opts)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	gw, err := mpesa.NewClient(cfg.MpesaConfig())
	if err != nil {
		return err
	}

	loans := mysql.NewLoanRepository(gdb)
	users := mysql.NewUserRepository(gdb)
	tx := mysql.NewGormUoW(gdb)
	locker := cache.NewRedisLocker(rdb)
	limitsUC := limits.NewUsecase(loans, users, tx)

	e := echo.New()
	e.HideBanner = true
	e.Use(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		middleware.Logger(),
		middleware.Recover(),
	)

	httpadp.Register(e, httpadp.Routes{
		Health: httpadp.NewHandler(map[string]httpadp.HealthCheck{
			"mysql": sqlDB.PingContext,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Loans: httpadp.NewLoanHandler(
			loan.NewUsecase(loans, users, limitsUC, locker, tx, cfg.LockTTL()),
			payment.NewUsecase(loans, gw, locker, tx, cfg.LockTTL()),
		),
		Admin:          httpadp.NewAdminHandler(admin.NewUsecase(loans, tx)),
		Limits:         httpadp.NewLimitsHandler(limitsUC),
		Callbacks:      httpadp.NewCallbackHandler(reconcile.NewUsecase(tx)),
		JWTSecret:      []byte(cfg.JWTSecret),
		Redis:          rdb,
		IdempotencyTTL: cfg.IdempotencyTTL(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.AppPort
	go func() {
		log.Printf("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Println("shutting down")
	return e.Shutdown(shutdownCtx)
}
