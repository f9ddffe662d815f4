package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"nebula-shopify-bridge/internal/application"
	"nebula-shopify-bridge/internal/application/webhook_handlers"
	"nebula-shopify-bridge/internal/config"
	apiinfra "nebula-shopify-bridge/internal/infrastructure/api"
	"nebula-shopify-bridge/internal/infrastructure/encryption"
	"nebula-shopify-bridge/internal/infrastructure/lock"
	"nebula-shopify-bridge/internal/infrastructure/metrics"
	"nebula-shopify-bridge/internal/infrastructure/repository"
	shopifyinfra "nebula-shopify-bridge/internal/infrastructure/shopify"
	"nebula-shopify-bridge/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nebula-shopify-bridge/internal/infrastructure/agentapi"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	repo := repository.NewMongoRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// Advisory reconcile lock, only when Redis is configured
	var locker ports.ReconcileLocker
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		locker = lock.NewRedisLocker(redisClient, logger)
	}

	// Metrics registry with the standard process/go collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	clientPool := shopifyinfra.NewClientPool(logger)
	notifier := agentapi.NewClient(cfg.AgentAPIURL, logger)

	// Initialize application services
	reconciler := application.NewReconciler(cfg, repo, locker, application.DefaultRetryConfig(), m, logger)
	installService := application.NewInstallService(
		cfg,
		repo,
		sessionRepo,
		encryptionService,
		clientPool,
		reconciler,
		notifier,
		m,
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(installService, logger))

	handlers := apiinfra.NewHandlers(cfg, installService, webhookDispatcher, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/auth/shopify", oauthInitHandler(installService, logger))
	r.Get("/auth/callback", oauthCallbackHandler(installService, logger))

	// Manual setup and injector script
	r.Get("/api/setup-script", handlers.HandleSetupScript)
	r.Post("/api/setup-script", handlers.HandleSetupScript)
	r.Get("/api/inject-theme", handlers.HandleInjectTheme)
	r.Get("/inject-agent-link.js", handlers.HandleInjectorScript)

	// Webhook endpoint
	r.Post("/webhooks/shopify", handlers.HandleWebhook)

	logger.Info().Str("port", cfg.Port).Str("strategy", string(cfg.Strategy)).Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// oauthInitHandler initiates the OAuth flow
func oauthInitHandler(installService *application.InstallService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}
		returnURL := r.URL.Query().Get("return_url")

		authURL, err := installService.BeginAuth(ctx, shop, returnURL)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin OAuth flow")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler handles the OAuth callback
func oauthCallbackHandler(installService *application.InstallService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := r.URL.Query().Get("shop")
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		if shop == "" || code == "" || state == "" {
			http.Error(w, "Missing required parameters", http.StatusBadRequest)
			return
		}

		installedShop, err := installService.CompleteAuth(ctx, shop, code, state)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to complete installation")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		logger.Info().
			Str("shop", installedShop.Domain).
			Msg("Installation completed, redirecting to admin")

		redirectURL := fmt.Sprintf("https://%s/admin/apps?installed=%s",
			installedShop.Domain,
			url.QueryEscape(installedShop.Domain),
		)
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}
