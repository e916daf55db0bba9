package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime settings. Values come from the environment, with
// an optional .env file loaded before this runs.
type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret string

	// Gateway trust: when GatewayAuthEnabled is set, every request must carry
	// the shared X-Service-Token from the API gateway.
	GatewayAuthEnabled bool
	ServiceToken       string

	AllowedOrigins string

	// Profile service sync.
	ProfileServiceURL  string
	ProfileSyncPath    string
	UserSyncEnabled    bool

	// Cloudflare R2 badge icon storage.
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	R2CDNBaseURL      string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8085")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("GATEWAY_AUTH_ENABLED", false)
	v.SetDefault("USER_SYNC_ENABLED", true)
	v.SetDefault("PROFILE_SYNC_PATH", "/internal/users/changes")
	v.SetDefault("R2_BUCKET", "game-badges")

	for _, key := range []string{
		"PORT", "DATABASE_URL", "JWT_SECRET",
		"GATEWAY_AUTH_ENABLED", "SERVICE_TOKEN", "ALLOWED_ORIGINS",
		"PROFILE_SERVICE_URL", "PROFILE_SYNC_PATH", "USER_SYNC_ENABLED",
		"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_ACCESS_KEY_SECRET",
		"R2_BUCKET", "R2_CDN_BASE_URL",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		Port:               v.GetString("PORT"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		GatewayAuthEnabled: v.GetBool("GATEWAY_AUTH_ENABLED"),
		ServiceToken:       v.GetString("SERVICE_TOKEN"),
		AllowedOrigins:     v.GetString("ALLOWED_ORIGINS"),
		ProfileServiceURL:  v.GetString("PROFILE_SERVICE_URL"),
		ProfileSyncPath:    v.GetString("PROFILE_SYNC_PATH"),
		UserSyncEnabled:    v.GetBool("USER_SYNC_ENABLED"),
		R2AccountID:        v.GetString("R2_ACCOUNT_ID"),
		R2AccessKeyID:      v.GetString("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:  v.GetString("R2_ACCESS_KEY_SECRET"),
		R2Bucket:           v.GetString("R2_BUCKET"),
		R2CDNBaseURL:       v.GetString("R2_CDN_BASE_URL"),
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GatewayAuthEnabled && strings.TrimSpace(cfg.ServiceToken) == "" {
		return nil, fmt.Errorf("SERVICE_TOKEN is required when GATEWAY_AUTH_ENABLED is set")
	}

	return cfg, nil
}

// R2Configured reports whether the badge icon store can be initialized.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != ""
}
