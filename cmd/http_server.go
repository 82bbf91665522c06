package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/auth"
	"github.com/eyuksel/reimbursement-api/internal/core/events"
	"github.com/eyuksel/reimbursement-api/internal/expense"
	expensestore "github.com/eyuksel/reimbursement-api/internal/expense/postgres"
	"github.com/eyuksel/reimbursement-api/internal/expenseform"
	expenseformstore "github.com/eyuksel/reimbursement-api/internal/expenseform/postgres"
	"github.com/eyuksel/reimbursement-api/internal/filestore"
	"github.com/eyuksel/reimbursement-api/internal/notification"
	notificationstore "github.com/eyuksel/reimbursement-api/internal/notification/postgres"
	"github.com/eyuksel/reimbursement-api/internal/organization"
	organizationstore "github.com/eyuksel/reimbursement-api/internal/organization/postgres"
	"github.com/eyuksel/reimbursement-api/internal/policy"
	policystore "github.com/eyuksel/reimbursement-api/internal/policy/postgres"
	"github.com/eyuksel/reimbursement-api/internal/receiptparser"
	"github.com/eyuksel/reimbursement-api/internal/transport/rest"
	"github.com/eyuksel/reimbursement-api/internal/user"
	userstore "github.com/eyuksel/reimbursement-api/internal/user/postgres"
	"github.com/eyuksel/reimbursement-api/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down...", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	if err := validateAPIContract("api/openapi.yml", log); err != nil {
		return nil, fmt.Errorf("failed to validate API contract: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// GORM reuses the pooled pgx connection instead of opening its own.
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	handlers, err := buildHandlers(config, gormDB, log)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   chi.NewRouter(),
		Handlers: handlers,
		Logger:   log,
	}, nil
}

func buildHandlers(config *internal.Config, gormDB *gorm.DB, log *slog.Logger) (rest.Handlers, error) {
	userRepo := userstore.NewUserRepository(gormDB)
	expenseRepo := expensestore.NewExpenseRepository(gormDB)
	formRepo := expenseformstore.NewExpenseFormRepository(gormDB)
	policyRepo := policystore.NewPolicyRepository(gormDB)
	orgRepo := organizationstore.NewOrganizationRepository(gormDB)
	notifRepo := notificationstore.NewNotificationRepository(gormDB)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenTTL,
		config.Security.RefreshTokenTTL,
	)
	authSvc := auth.NewService(userRepo, tokenGen, config.Security.BCryptCost, log)
	userSvc := user.NewService(userRepo, authSvc, log)

	parser := receiptparser.NewClient(receiptparser.Config{
		APIURL:  config.Parser.APIURL,
		APIKey:  config.Parser.APIKey,
		Model:   config.Parser.Model,
		Timeout: config.Parser.Timeout,
	}, log)

	orgSvc := organization.NewService(orgRepo, log)
	policySvc := policy.NewService(policyRepo, log)
	expenseSvc := expense.NewService(expenseRepo, orgSvc, policySvc, parser, log)

	bus := events.NewEventBus(log)
	formSvc := expenseform.NewService(formRepo, userRepo, bus, log)

	// A nil *SlackSink must not end up inside the Sink interface, the
	// service treats a nil interface as "channel disabled".
	var sink notification.Sink
	if s := notification.NewSlackSink(config.Notifications.SlackWebhookURL, config.Notifications.Timeout, log); s != nil {
		sink = s
	}
	notifSvc := notification.NewService(notifRepo, userSvc, sink, log)
	notifSvc.RegisterSubscribers(bus)

	uploads, err := filestore.NewStore(config.Uploads.Dir, config.Uploads.BaseURL, config.Uploads.MaxSizeBytes, log)
	if err != nil {
		return rest.Handlers{}, fmt.Errorf("failed to initialize file store: %w", err)
	}

	return rest.Handlers{
		Auth:         auth.NewHandler(authSvc),
		User:         user.NewHandler(userSvc),
		Expense:      expense.NewHandler(expenseSvc, uploads),
		ExpenseForm:  expenseform.NewHandler(formSvc),
		Policy:       policy.NewHandler(policySvc),
		Organization: organization.NewHandler(orgSvc),
		Notification: notification.NewHandler(notifSvc),
		Uploads:      uploads.Handler(),
	}, nil
}

// validateAPIContract refuses to boot when the published spec no longer
// parses, which catches broken edits before clients do.
func validateAPIContract(path string, log *slog.Logger) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}
	log.Info("API contract validated", "path", path, "endpoints", len(doc.Paths.Map()))
	return nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
