package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaultsForAuthorizations(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, 2*time.Second, cfg.Authorizations.PollInterval)
	assert.Equal(t, 1024, cfg.Authorizations.SeenCacheSize)
	assert.True(t, cfg.Authorizations.AdminBypass)
	assert.Equal(t, "ACTION_EDIT", cfg.Authorizations.ApprovalPermission)
	assert.Equal(t, TicketBackendRedis, cfg.Authorizations.TicketBackend)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
}

func TestOverridesAndFallbacks(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("AUTHZ_POLL_INTERVAL", "not-a-duration")
	v.Set("AUTHZ_SEEN_CACHE_SIZE", -5)
	v.Set("AUTHZ_TICKET_BACKEND", " Memory ")
	v.Set("AUTHZ_ADMIN_BYPASS", false)
	v.Set("AUTHZ_SUPERUSER_EMAIL", " Root@Example.COM ")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)

	assert.Equal(t, 2*time.Second, cfg.Authorizations.PollInterval)
	assert.Equal(t, 1024, cfg.Authorizations.SeenCacheSize)
	assert.Equal(t, TicketBackendMemory, cfg.Authorizations.TicketBackend)
	assert.False(t, cfg.Authorizations.AdminBypass)
	assert.Equal(t, "root@example.com", cfg.Authorizations.SuperUserEmail)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
