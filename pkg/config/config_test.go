package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Finance.CacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Finance.CacheTTL)
	assert.True(t, cfg.Subscription.CacheEnabled)
	assert.Equal(t, 10*time.Minute, cfg.Subscription.StatsCacheTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ALLOWED_ORIGINS", "https://admin.example.com, https://alumni.example.com ,")
	v.Set("FINANCE_CACHE_TTL", "not-a-duration")
	v.Set("JWT_AUDIENCE", "portal")

	cfg := fromViper(v)
	assert.Equal(t, []string{"https://admin.example.com", "https://alumni.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Finance.CacheTTL)
	assert.Equal(t, []string{"portal"}, cfg.JWT.Audience)
}

func TestCacheFlagsAreIndependent(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ENABLE_FINANCE_CACHE", false)

	cfg := fromViper(v)
	assert.False(t, cfg.Finance.CacheEnabled)
	assert.True(t, cfg.Subscription.CacheEnabled)

	v.Set("ENABLE_FINANCE_CACHE", true)
	v.Set("ENABLE_SUBSCRIPTION_CACHE", "false")
	cfg = fromViper(v)
	assert.True(t, cfg.Finance.CacheEnabled)
	assert.False(t, cfg.Subscription.CacheEnabled)
}
