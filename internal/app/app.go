package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/config"
	"github.com/prperemyshlev/identity-service/internal/handler"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/service"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"github.com/prperemyshlev/identity-service/pkg/mailer"
	"github.com/prperemyshlev/identity-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

// services groups what the routes depend on
type services struct {
	credentials service.CredentialService
	oauth       service.OAuthService
	usage       service.UsageService
	apiKeys     service.APIKeyService
	auth        service.Authenticator
	limiter     service.RateLimiter
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	handler.SetupValidator()

	metrics, err := service.NewMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(infra.Postgres().DB)
	tx := repository.NewTransactor(infra.Postgres().DB)

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.SessionTTL.Duration)
	revocations := service.NewRevocationList(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	tokens := service.NewTokenIssuer(jwtManager, revocations, metrics, logger)

	verifier := service.NewVerificationTokenIssuer(tx, rateLimiter, service.VerificationConfig{
		EmailTTL:     cfg.Verification.EmailTTL.Duration,
		ResetTTL:     cfg.Verification.ResetTTL.Duration,
		ResendWindow: cfg.Verification.ResendWindow.Duration,
	})

	credentials := service.NewCredentialService(
		repos,
		tx,
		verifier,
		tokens,
		newNotifier(cfg, logger),
		metrics,
		logger,
		cfg.Security.BCryptCost,
	)

	broker := service.NewOAuthBroker(
		newIdentityProviders(cfg),
		service.NewStateStore(infra.Redis()),
		tx,
		tokens,
		service.OAuthConfig{
			StateTTL:        cfg.OAuth.StateTTL.Duration,
			ExchangeTimeout: cfg.OAuth.ExchangeTimeout.Duration,
		},
		logger,
	)

	svc := services{
		credentials: credentials,
		oauth:       broker,
		usage:       service.NewUsageMeter(repos.User, repos.Usage, metrics, logger),
		apiKeys:     service.NewAPIKeyService(repos.APIKey, logger),
		auth:        service.NewSessionValidator(tokens, repos.APIKey, logger),
		limiter:     rateLimiter,
	}

	healthChecker := NewHealthChecker(infra.Postgres(), infra.Redis(), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, svc, healthChecker, infra.MetricsHandler(), logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) service.Notifier {
	links := service.LinkBuilder{BaseURL: cfg.AppBaseURL}
	if !cfg.SMTP.Enabled() {
		logger.Warn("SMTP is not configured, verification links will only be logged")
		return service.NewLogNotifier(logger, links)
	}

	return service.NewSMTPNotifier(mailer.Settings{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		TLSMode:  cfg.SMTP.TLSMode,
	}, cfg.SMTP.From, cfg.SMTP.FromName, links)
}

// newIdentityProviders returns the providers that have client credentials
func newIdentityProviders(cfg *config.Config) []service.IdentityProvider {
	var providers []service.IdentityProvider
	if cfg.OAuth.GoogleClientID != "" {
		providers = append(providers, service.NewGoogleProvider(service.ProviderConfig{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.OAuth.GoogleRedirectURL,
		}))
	}
	if cfg.OAuth.GitHubClientID != "" {
		providers = append(providers, service.NewGitHubProvider(service.ProviderConfig{
			ClientID:     cfg.OAuth.GitHubClientID,
			ClientSecret: cfg.OAuth.GitHubClientSecret,
			RedirectURL:  cfg.OAuth.GitHubRedirectURL,
		}))
	}
	return providers
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	svc services,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
	logger *zap.Logger,
) {
	authHandler := handler.NewAuthHandler(svc.credentials, logger)
	oauthHandler := handler.NewOAuthHandler(svc.oauth, logger)
	apiKeyHandler := handler.NewAPIKeyHandler(svc.apiKeys, logger)
	usageHandler := handler.NewUsageHandler(svc.usage, logger)
	adminHandler := handler.NewAdminHandler(svc.credentials, logger)

	rateLimit := handler.RateLimitMiddleware(svc.limiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey, logger)
	requireAuth := handler.AuthMiddleware(svc.auth, logger)
	requireSession := handler.RequireSession(logger)
	meter := handler.MeterAPICalls(svc.usage, logger)

	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", rateLimit, authHandler.Register)
			auth.POST("/login", rateLimit, authHandler.Login)
			auth.POST("/logout", requireAuth, requireSession, authHandler.Logout)
			auth.GET("/user", requireAuth, authHandler.GetUser)
			auth.GET("/profile", requireAuth, authHandler.GetProfile)
			auth.PUT("/change-password", requireAuth, requireSession, authHandler.ChangePassword)
			auth.POST("/forgot-password", rateLimit, authHandler.ForgotPassword)
			auth.POST("/reset-password", rateLimit, authHandler.ResetPassword)
			auth.POST("/verify-email", authHandler.VerifyEmail)
			auth.POST("/resend-verification", handler.OptionalAuthMiddleware(svc.auth, logger), authHandler.ResendVerification)

			auth.GET("/:provider", oauthHandler.Begin)
			auth.GET("/:provider/callback", oauthHandler.Callback)
		}

		keys := api.Group("/api-keys", requireAuth, requireSession)
		{
			keys.POST("", apiKeyHandler.Create)
			keys.GET("", apiKeyHandler.List)
			keys.DELETE("/:id", apiKeyHandler.Revoke)
		}

		usage := api.Group("/usage", requireAuth, meter)
		{
			usage.GET("", handler.RequirePermission(service.PermUsageRead, logger), usageHandler.Get)
			usage.POST("/consume", usageHandler.Consume)
		}

		admin := api.Group("/admin", requireAuth, requireSession, handler.RequireAdmin(logger))
		{
			admin.PUT("/users/:id/plan", adminHandler.ChangePlan)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	if err := a.infra.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
