package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/erp-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/erp-backend-go/internal/repository/postgresql"
	financeService "github.com/cmlabs-hris/erp-backend-go/internal/service/finance"
	payrollService "github.com/cmlabs-hris/erp-backend-go/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Pool.Close()

	payrollRunRepo := postgresql.NewPayrollRunRepository(db)
	payrollEmployeeRepo := postgresql.NewPayrollEmployeeRepository(db)
	payrollItemRepo := postgresql.NewPayrollItemRepository(db)
	contractRepo := postgresql.NewContractRepository(db)
	loanRepo := postgresql.NewLoanRepository(db)
	financeRepo := postgresql.NewFinanceTransactionRepository(db)
	transactor := postgresql.NewTransactor(db)

	clock := clockwork.NewRealClock()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpirationTime, clock)
	financeSvc := financeService.NewTransactionService(financeRepo, cfg.Payroll, clock, logger)
	payrollSvc := payrollService.NewPayrollService(
		transactor,
		payrollRunRepo,
		payrollEmployeeRepo,
		payrollItemRepo,
		contractRepo,
		loanRepo,
		financeSvc,
		cfg.Payroll,
		clock,
		logger,
	)

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)
	router := appHTTP.NewRouter(cfg, JWTService, payrollHandler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server running", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(app.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(app.Env != "development")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", app.Name),
		slog.String("version", app.Version),
		slog.String("env", app.Env),
	)
}
