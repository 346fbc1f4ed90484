package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvFallsBackOnEmpty(t *testing.T) {
	t.Setenv("BLOG_TEST_VALUE", "")
	assert.Equal(t, "fallback", GetEnv("BLOG_TEST_VALUE", "fallback"))

	t.Setenv("BLOG_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("BLOG_TEST_VALUE", "fallback"))
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("BLOG_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvAsInt("BLOG_TEST_INT", 7))

	t.Setenv("BLOG_TEST_INT", "forty")
	assert.Equal(t, 7, GetEnvAsInt("BLOG_TEST_INT", 7))
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("BLOG_TEST_BOOL", "true")
	assert.True(t, GetEnvAsBool("BLOG_TEST_BOOL", false))

	t.Setenv("BLOG_TEST_BOOL", "maybe")
	assert.False(t, GetEnvAsBool("BLOG_TEST_BOOL", false))
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{"2m", 2 * time.Minute},
		{"120", 120 * time.Second},
		{"soon", time.Hour},
		{"", time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("BLOG_TEST_DURATION", tt.raw)
			assert.Equal(t, tt.want, GetEnvAsDuration("BLOG_TEST_DURATION", time.Hour))
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("BLOG_TEST_LIST", " a, b ,,c ")
	assert.Equal(t, []string{"a", "b", "c"}, GetEnvAsList("BLOG_TEST_LIST", nil))

	t.Setenv("BLOG_TEST_LIST", " , ")
	assert.Equal(t, []string{"x"}, GetEnvAsList("BLOG_TEST_LIST", []string{"x"}))
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_EMAIL", "Admin@Example.COM")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("OTP_EXPIRY", "5m")

	cfg := LoadConfig()
	t.Cleanup(func() { Set(nil) })

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, ":9090", cfg.GetServerAddress())
	assert.Equal(t, "admin@example.com", cfg.Admin.Email)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.OTP.Expiry)
	assert.Same(t, cfg, Get())
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		JWT:         JWTConfig{Secret: "secret", AccessExpiry: time.Minute, RefreshExpiry: time.Hour},
		OTP:         OTPConfig{Expiry: 2 * time.Minute},
		Bucketing:   BucketingConfig{OTPBuckets: 8},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.JWT.Secret = ""
	cfg.Bucketing.OTPBuckets = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "OTP_BUCKETS")

	cfg = validConfig()
	cfg.KMS = KMSConfig{Enabled: true}
	assert.ErrorContains(t, cfg.Validate(), "KMS_KEY_ID")
}

func TestValidateProductionRequiresPepperAndAdminHash(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "production"
	cfg.Admin.Email = "admin@example.com"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HASH_PEPPER")
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD_HASH")

	cfg.Hashing.Pepper = "pepper"
	cfg.Admin.PasswordHash = "$2a$12$hash"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())
}
