package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "KAFKA_BROKERS", "LOG_LEVEL", "CHECK_TIMEOUT",
		"SEVERITY_CRITICAL_SHORTFALL", "SEVERITY_HIGH_SHORTFALL", "SEVERITY_HIGH_ADVISORIES", "ALERT_MIN_SEVERITY"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.HTTPAddr != ":8081" || cfg.LogLevel != slog.LevelInfo || cfg.CheckTimeout != 3*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.CriticalShortfall != 5 || cfg.HighShortfall != 2 || cfg.HighAdvisories != 3 {
		t.Fatalf("policy = %d/%d/%d", cfg.CriticalShortfall, cfg.HighShortfall, cfg.HighAdvisories)
	}
	if cfg.AlertMinSeverity != "advertencia" {
		t.Fatalf("alert min severity = %q", cfg.AlertMinSeverity)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CHECK_TIMEOUT", "750ms")
	t.Setenv("SEVERITY_CRITICAL_SHORTFALL", "10")
	t.Setenv("SEVERITY_HIGH_SHORTFALL", "not-a-number")
	t.Setenv("POSTGRES_MAX_CONNS", "16")

	cfg := Load()
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.CheckTimeout != 750*time.Millisecond {
		t.Fatalf("level = %v timeout = %v", cfg.LogLevel, cfg.CheckTimeout)
	}
	if cfg.CriticalShortfall != 10 || cfg.HighShortfall != 2 || cfg.PostgresMaxConns != 16 {
		t.Fatalf("cfg = %+v", cfg)
	}
}
