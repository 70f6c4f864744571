package config

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("POSTGRES_CONN_STR", "postgres://localhost:5432/social")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CRON_SECRET", "cron")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "socialmedia", cfg.MongoDatabase)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 24*time.Hour, cfg.StoryTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")
	t.Setenv("STORY_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, time.Hour, cfg.StoryTTL)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
	t.Run("bad duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("STORY_TTL", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "parse env:")
	})
}

func TestNewLoggerLevel(t *testing.T) {
	log := NewLogger(&Config{Env: "production", LogLevel: "debug"})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = NewLogger(&Config{LogLevel: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestPingBeforeConnect(t *testing.T) {
	db := NewDB(&Config{}, logrus.New())
	assert.Error(t, db.Ping(context.Background()))
}
