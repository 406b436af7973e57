package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/escrowhq/escrow/internal/auth"
	"github.com/escrowhq/escrow/pkg/escrow"
)

// Run boots the HTTP API over the given store and blocks until ctx is
// cancelled or the listener fails.
func Run(ctx context.Context, cfg Config, store escrow.Store) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("zap init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	router, err := NewRouter(cfg, logger, store)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("escrow api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter assembles the gin engine with all route groups wired.
func NewRouter(cfg Config, logger *zap.Logger, store escrow.Store) (*gin.Engine, error) {
	service, err := escrow.NewService(
		store,
		func() int64 { return time.Now().UTC().Unix() },
		escrow.WithOperationLogger(newZapOperationLogger(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("escrow service: %w", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.SessionSigningKey, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	handler := &apiHandler{
		logger:  logger,
		service: service,
		tokens:  tokens,
	}

	registerValidators()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/session", requireRole(tokens, escrow.RoleBuilder.String(), escrow.RoleAdmin.String(), roleBuyer), handler.handleSession)

	staffAuth := router.Group("/auth")
	staffAuth.POST("/register", handler.handleStaffRegister)
	staffAuth.POST("/login", handler.handleStaffLogin)

	buyerAuth := router.Group("/buyer/auth")
	buyerAuth.POST("/register", handler.handleBuyerRegister)
	buyerAuth.POST("/login", handler.handleBuyerLogin)

	builder := router.Group("/builder")
	builder.Use(requireRole(tokens, escrow.RoleBuilder.String()))
	builder.GET("/dashboard", handler.handleBuilderDashboard)
	builder.POST("/projects", handler.handleCreateProject)
	builder.GET("/projects", handler.handleBuilderProjects)
	builder.POST("/projects/:projectID/units", handler.handleAddUnit)
	builder.POST("/projects/:projectID/units/batch", handler.handleAddUnitBatch)
	builder.GET("/projects/:projectID/units", handler.handleBuilderUnits)
	builder.GET("/bookings", handler.handleBuilderBookings)
	builder.GET("/transactions", handler.handleBuilderTransactions)
	builder.POST("/transactions/match", handler.handleMatch)

	buyer := router.Group("/buyer")
	buyer.Use(requireRole(tokens, roleBuyer))
	buyer.GET("/projects", handler.handleBuyerProjects)
	buyer.GET("/projects/:projectID/units", handler.handleBuyerUnits)
	buyer.POST("/bookings", handler.handleBookUnit)
	buyer.GET("/bookings", handler.handleBuyerBookings)
	buyer.POST("/transactions", handler.handleRecordPayment)
	buyer.GET("/transactions", handler.handleBuyerTransactions)

	admin := router.Group("/admin")
	admin.Use(requireRole(tokens, escrow.RoleAdmin.String()))
	admin.GET("/builders", handler.handleAdminBuilders)
	admin.GET("/projects", handler.handleAdminProjects)
	admin.GET("/bookings", handler.handleAdminBookings)
	admin.GET("/transactions", handler.handleAdminTransactions)

	return router, nil
}

type apiHandler struct {
	logger  *zap.Logger
	service *escrow.Service
	tokens  *auth.TokenIssuer
}

func (handler *apiHandler) hashPassword(password string) (string, error) {
	return auth.HashPassword(password)
}

func (handler *apiHandler) checkPassword(password string, hash string) bool {
	return auth.CheckPassword(password, hash)
}
