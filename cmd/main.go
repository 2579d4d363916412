package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/authz"
	"github.com/habberrih/manara/internal/handler"
	"github.com/habberrih/manara/internal/middleware"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/service"
	"github.com/habberrih/manara/internal/store"
	"github.com/habberrih/manara/pkg/config"
	"github.com/habberrih/manara/pkg/database"
	"github.com/habberrih/manara/pkg/jwtutil"
	"github.com/habberrih/manara/pkg/logger"
	"github.com/habberrih/manara/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("manara")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting manara service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(
		&model.User{},
		&model.Organization{},
		&model.Membership{},
		&model.ApiKey{},
		&model.Subscription{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Data-access client with the interception pipeline composed once
	client := store.NewClient(db, store.DefaultConfig(), log)

	// Authorization checkers
	memberChecker := authz.NewMemberChecker(client)
	planChecker := authz.NewPlanLimitChecker(client, log)

	// Services
	users := service.NewUserService(client, log)
	orgs := service.NewOrganizationService(client, log)
	members := service.NewMembershipService(client, log)
	keys := service.NewApiKeyService(client, log)

	// JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&cfg.JWT)

	// Handlers
	authHandler := handler.NewAuthHandler(users, jwtUtil)
	userHandler := handler.NewUserHandler(users)
	orgHandler := handler.NewOrganizationHandler(orgs)
	memberHandler := handler.NewMembershipHandler(members)
	keyHandler := handler.NewApiKeyHandler(keys)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(jwtUtil))

	api.POST("/auth/logout", authHandler.Logout)

	// User profile
	usersGroup := api.Group("/users")
	usersGroup.GET("/profile", userHandler.GetProfile)
	usersGroup.PATCH("/profile", userHandler.UpdateProfile)
	usersGroup.POST("/change-password", userHandler.ChangePassword)

	// Organization lifecycle - creation and listing need no organization
	// binding, everything below the :organization_id segment does
	orgsGroup := api.Group("/organizations")
	orgsGroup.POST("", orgHandler.Create)
	orgsGroup.GET("", orgHandler.List)

	anyMember := middleware.OrgMemberMiddleware(memberChecker)
	adminOnly := middleware.OrgMemberMiddleware(memberChecker, model.RoleAdmin, model.RoleOwner)
	ownerOnly := middleware.OrgMemberMiddleware(memberChecker, model.RoleOwner)

	orgsGroup.GET("/:organization_id", orgHandler.Get, anyMember)
	orgsGroup.PATCH("/:organization_id", orgHandler.Update, adminOnly)
	orgsGroup.DELETE("/:organization_id", orgHandler.Delete, ownerOnly)

	// Membership management - accepting an invitation deliberately skips the
	// member guard, the caller is not an accepted member yet
	orgsGroup.POST("/:organization_id/members/accept", memberHandler.Accept)
	orgsGroup.GET("/:organization_id/members", memberHandler.List, anyMember)
	orgsGroup.POST("/:organization_id/members", memberHandler.Invite, adminOnly)
	orgsGroup.PATCH("/:organization_id/members/:user_id", memberHandler.UpdateRole, adminOnly)
	orgsGroup.DELETE("/:organization_id/members/:user_id", memberHandler.Remove, adminOnly)

	// API keys - creation additionally passes the plan quota gate
	keyQuota := middleware.PlanLimitMiddleware(planChecker, authz.FeatureApiKeys,
		"your plan's API key limit has been reached")
	orgsGroup.GET("/:organization_id/api-keys", keyHandler.List, anyMember)
	orgsGroup.POST("/:organization_id/api-keys", keyHandler.Create, adminOnly, keyQuota)
	orgsGroup.DELETE("/:organization_id/api-keys/:key_id", keyHandler.Revoke, adminOnly)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
