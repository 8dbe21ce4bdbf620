package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/cache"
	"github.com/vibast-solutions/ms-go-entitlements/app/controller"
	"github.com/vibast-solutions/ms-go-entitlements/app/entitlement"
	"github.com/vibast-solutions/ms-go-entitlements/app/generation"
	grpcserver "github.com/vibast-solutions/ms-go-entitlements/app/grpc"
	"github.com/vibast-solutions/ms-go-entitlements/app/metrics"
	"github.com/vibast-solutions/ms-go-entitlements/app/middleware"
	"github.com/vibast-solutions/ms-go-entitlements/app/payment"
	"github.com/vibast-solutions/ms-go-entitlements/app/repository"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
	"github.com/vibast-solutions/ms-go-entitlements/config"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start the public HTTP API (Echo) and the internal gRPC entitlements service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type controllers struct {
	usage        *controller.UsageController
	subscription *controller.SubscriptionController
	payment      *controller.PaymentController
	generation   *controller.GenerationController
}

func runServe(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()
	if cfg.Auth.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET environment variable is required")
	}

	db := mustOpenDB(cfg)
	defer closeDB(db)

	sink := metrics.NewPrometheus("entitlements", prometheus.DefaultRegisterer)

	guard, closeGuard := mustCreateQuotaGuard(cfg)
	defer closeGuard()

	store := mustCreateImageStore(cfg)

	subscriptionService := service.NewSubscriptionService(repository.NewSubscriptionRepository(db), cfg.Subscriptions, sink)
	usageService := service.NewUsageService(repository.NewUsageRepository(db), guard, sink)
	gateway := payment.NewPaystackClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, cfg.Paystack.RequestTimeout)
	paymentService := service.NewPaymentService(gateway, subscriptionService, usageService, repository.NewPaymentRepository(db), cfg.Paystack, sink)
	provider := generation.NewOpenAIProvider(
		cfg.Generation.BaseURL,
		cfg.Generation.APIKey,
		cfg.Generation.Model,
		cfg.Generation.DefaultSize,
		cfg.Generation.RequestTimeout,
		store,
	)
	generationService := service.NewGenerationService(provider, cfg.Generation, sink)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()
	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(cfg, &controllers{
		usage:        controller.NewUsageController(subscriptionService, usageService),
		subscription: controller.NewSubscriptionController(subscriptionService),
		payment:      controller.NewPaymentController(paymentService, cfg.Paystack),
		generation:   controller.NewGenerationController(generationService),
	}, subscriptionService, usageService, sink)
	grpcSrv, lis := setupGRPCServer(cfg, grpcserver.NewServer(subscriptionService, usageService), grpcInternalAuthMiddleware, sink)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

// mustCreateQuotaGuard uses Redis when REDIS_ADDR is set so every replica shares
// the counters; otherwise it falls back to a per-process guard.
func mustCreateQuotaGuard(cfg *config.Config) (cache.QuotaGuard, func()) {
	if cfg.Redis.Addr == "" {
		logrus.Warn("REDIS_ADDR not set, quota counters are per process")
		return cache.NewMemoryQuotaGuard(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logrus.WithError(err).Fatal("Failed to ping redis")
	}

	return cache.NewRedisQuotaGuard(client), func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}
}

func mustCreateImageStore(cfg *config.Config) generation.Store {
	if cfg.Storage.Bucket == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := generation.NewS3Store(ctx, generation.S3StoreConfig{
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize image storage")
	}
	return store
}

func setupHTTPServer(
	cfg *config.Config,
	ctrl *controllers,
	subscriptionService *service.SubscriptionService,
	usageService *service.UsageService,
	sink metrics.Sink,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			if userID, ok := c.Get(types.ContextUserIDKey).(string); ok && userID != "" {
				fields["user_id"] = userID
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string {
			return fmt.Sprintf("rest-%s", uuid.New().String())
		},
	}))
	e.Use(middleware.APIMonitor(sink))

	e.GET("/health", ctrl.subscription.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public routes: the catalog is not user specific and the provider signs its own webhook calls.
	e.GET("/api/plans", ctrl.usage.Plans)
	e.POST("/api/payments/webhook", ctrl.payment.Webhook)

	api := e.Group("/api", middleware.JWTAuth(cfg.Auth.JWTSecret))
	api.GET("/feature-usage/remaining", ctrl.usage.Remaining)
	api.GET("/feature-usage/check-limit", ctrl.usage.CheckLimit)
	api.GET("/feature-access", ctrl.usage.FeatureAccess)
	api.GET("/usage/summary", ctrl.usage.Summary)
	api.POST("/exports", ctrl.usage.Export)

	api.GET("/subscription", ctrl.subscription.GetSubscription)
	api.GET("/subscriptions", ctrl.subscription.ListSubscriptions)
	api.POST("/subscription/cancel", ctrl.subscription.CancelSubscription)

	api.POST("/payments/initialize", ctrl.payment.Initialize)
	api.GET("/payments/verify", ctrl.payment.Verify)

	gate := func(feature entitlement.Feature) echo.MiddlewareFunc {
		return middleware.UsageLimit(subscriptionService, usageService, feature, 1)
	}
	api.POST("/mockups/generate", ctrl.generation.Generate, gate(entitlement.FeatureMockupsPerMonth))
	api.POST("/images/generate", ctrl.generation.Generate, gate(entitlement.FeatureGPTImageGenerationsPerMonth))
	api.POST("/mockups/bulk", ctrl.generation.GenerateBulk, gate(entitlement.FeatureBulkGenerationLimit))

	return e
}

func setupGRPCServer(
	cfg *config.Config,
	entitlementsServer *grpcserver.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	sink metrics.Sink,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoveryInterceptor(),
			grpcserver.RequestIDInterceptor(),
			grpcserver.LoggingInterceptor(),
			grpcserver.MetricsInterceptor(sink),
			internalAuthMiddleware.UnaryRequireInternalAccess(cfg.App.ServiceName),
		),
	)
	types.RegisterEntitlementsServiceServer(grpcSrv, entitlementsServer)

	return grpcSrv, lis
}
