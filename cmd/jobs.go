package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-entitlements/app/repository"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/config"
)

var expireWorker bool

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Mark subscriptions whose billing period ended as expired",
	Long:  "Eagerly expires subscriptions past their period end. Reads still expire lazily; this keeps stored state tidy.",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire",
			expireWorker,
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirationCheckInterval },
			func(s *service.SubscriptionService, ctx context.Context) error {
				expired, err := s.RunExpirationBatch(ctx)
				logrus.WithField("job", "expire").WithField("expired", expired).Debug("expiration batch finished")
				return err
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(expireCmd)
	expireCmd.Flags().BoolVar(&expireWorker, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	worker bool,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.SubscriptionService, ctx context.Context) error,
) {
	cfg := mustLoadConfig()
	db := mustOpenDB(cfg)
	defer closeDB(db)

	subscriptionService := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		cfg.Subscriptions,
		nil,
	)

	if worker {
		runWorker(name, intervalResolver(cfg), subscriptionService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(subscriptionService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	subscriptionService *service.SubscriptionService,
	fn func(s *service.SubscriptionService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(subscriptionService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(subscriptionService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
