package logging

import (
	"testing"

	"github.com/sirupsen/logrus"

	"hallbooking/pkg/config"
)

func TestNew_FormatterAndLevel(t *testing.T) {
	log := New(config.Config{AppEnv: "prod", LogLevel: "debug"})
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter outside dev, got %T", log.Formatter)
	}
	if log.Level != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.Level)
	}

	log = New(config.Config{AppEnv: "dev", LogLevel: "nonsense"})
	if _, ok := log.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter in dev, got %T", log.Formatter)
	}
	if log.Level != logrus.InfoLevel {
		t.Fatalf("expected info fallback, got %s", log.Level)
	}
}
