package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/entitlements?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "entitlements-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "GRPC_PORT", "9191")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_MAX_IDLE_CONNS", "8")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "PAST_DUE_THRESHOLD", "5")
	setEnv(t, "EXPIRATION_CHECK_INTERVAL_MINUTES", "15")
	setEnv(t, "PAYSTACK_BASE_URL", "https://paystack.test/")
	setEnv(t, "PAYSTACK_VERIFY_WEBHOOKS", "false")
	setEnv(t, "PAYSTACK_TIMEOUT_SECONDS", "7")
	setEnv(t, "GENERATION_BULK_MAX_PROMPTS", "25")
	setEnv(t, "REDIS_ADDR", "localhost:6379")
	setEnv(t, "REDIS_DB", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "entitlements-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" || cfg.GRPC.Port != "9191" {
		t.Fatalf("unexpected ports: http=%s grpc=%s", cfg.HTTP.Port, cfg.GRPC.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.MaxIdleConns != 8 {
		t.Fatalf("unexpected mysql pool config: %+v", cfg.MySQL)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql lifetime: %v", cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.Subscriptions.PastDueThreshold != 5 {
		t.Fatalf("unexpected past due threshold: %d", cfg.Subscriptions.PastDueThreshold)
	}
	if cfg.Jobs.ExpirationCheckInterval != 15*time.Minute {
		t.Fatalf("unexpected expiration interval: %v", cfg.Jobs.ExpirationCheckInterval)
	}
	if cfg.Paystack.BaseURL != "https://paystack.test" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.Paystack.BaseURL)
	}
	if cfg.Paystack.VerifyWebhooks {
		t.Fatal("expected webhook verification disabled")
	}
	if cfg.Paystack.RequestTimeout != 7*time.Second {
		t.Fatalf("unexpected paystack timeout: %v", cfg.Paystack.RequestTimeout)
	}
	if cfg.Generation.BulkMaxPrompts != 25 {
		t.Fatalf("unexpected bulk max prompts: %d", cfg.Generation.BulkMaxPrompts)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/entitlements")
	setEnv(t, "PAST_DUE_THRESHOLD", "three")
	setEnv(t, "PAYSTACK_VERIFY_WEBHOOKS", "maybe")
	unsetEnv(t, "REDIS_ADDR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Subscriptions.PastDueThreshold != 3 {
		t.Fatalf("expected default threshold, got %d", cfg.Subscriptions.PastDueThreshold)
	}
	if !cfg.Paystack.VerifyWebhooks {
		t.Fatal("expected webhook verification enabled by default")
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("expected empty redis addr, got %s", cfg.Redis.Addr)
	}
}
