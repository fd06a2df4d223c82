package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/shorif2005/projectflow/internal/app"
	iauth "github.com/shorif2005/projectflow/internal/auth"
	"github.com/shorif2005/projectflow/internal/cache"
	"github.com/shorif2005/projectflow/internal/handlers"
	"github.com/shorif2005/projectflow/internal/middleware"
	"github.com/shorif2005/projectflow/internal/services"
	"github.com/shorif2005/projectflow/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, sessions *iauth.SessionService, mailer mail.Mailer) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	// Services
	activitySvc, err := services.NewActivityService(db)
	if err != nil {
		return nil, err
	}
	userSvc, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	otpSvc, err := services.NewOTPService(db, mailer,
		services.WithOTPDigits(cfg.Auth.OTP.Digits),
		services.WithOTPExpiry(cfg.Auth.OTP.TTL),
	)
	if err != nil {
		return nil, err
	}
	inviteSvc, err := services.NewInviteService(db, mailer,
		services.WithInviteBaseURL(cfg.Server.BaseURL),
		services.WithInviteDailyLimit(cfg.Invites.DailyLimit),
		services.WithInviteTokenSize(cfg.Invites.TokenBytes),
	)
	if err != nil {
		return nil, err
	}
	linkingSvc, err := services.NewLinkingService(db, inviteSvc, activitySvc)
	if err != nil {
		return nil, err
	}
	taskSvc, err := services.NewTaskService(db, userSvc, inviteSvc, activitySvc)
	if err != nil {
		return nil, err
	}
	projectSvc, err := services.NewProjectService(db)
	if err != nil {
		return nil, err
	}
	chatSvc, err := services.NewChatService(db, projectSvc)
	if err != nil {
		return nil, err
	}
	signupStateSvc, err := services.NewSignupStateService(cache.NewDatabaseStore(db))
	if err != nil {
		return nil, err
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(userSvc, otpSvc, linkingSvc, signupStateSvc, sessions)
	inviteHandler := handlers.NewInviteHandler(inviteSvc, linkingSvc, signupStateSvc, userSvc)
	projectHandler := handlers.NewProjectHandler(projectSvc, taskSvc)
	taskHandler := handlers.NewTaskHandler(taskSvc)
	dashboardHandler := handlers.NewDashboardHandler(userSvc, projectSvc, taskSvc, linkingSvc)
	profileHandler := handlers.NewProfileHandler(userSvc)
	chatHandler := handlers.NewChatHandler(chatSvc)
	activityHandler := handlers.NewActivityHandler(activitySvc)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	// Invitation acceptance works for both anonymous and signed-in visitors.
	r.POST("/api/invites/accept", middleware.OptionalAuth(jwt), inviteHandler.Accept)

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	invites := api.Group("/invites")
	{
		invites.POST("", inviteHandler.Create)
		invites.GET("", inviteHandler.List)
	}

	projects := api.Group("/projects")
	{
		projects.POST("", projectHandler.Create)
		projects.GET("", projectHandler.List)
		projects.GET("/:id", projectHandler.Get)
		projects.PUT("/:id", projectHandler.Update)
		projects.DELETE("/:id", projectHandler.Delete)
		projects.POST("/:id/tasks", taskHandler.Create)
		projects.GET("/:id/messages", chatHandler.List)
		projects.POST("/:id/messages", chatHandler.Post)
		projects.DELETE("/:id/messages/:messageID", chatHandler.Delete)
	}

	tasks := api.Group("/tasks")
	{
		tasks.GET("", taskHandler.ListMine)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.PATCH("/:id/status", taskHandler.UpdateStatus)
		tasks.DELETE("/:id", taskHandler.Delete)
	}

	api.GET("/dashboard", dashboardHandler.Get)
	api.GET("/profile", profileHandler.Get)
	api.PUT("/profile", profileHandler.Update)
	api.GET("/activity", activityHandler.List)

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		r.GET(cfg.Monitoring.Prometheus.Endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
