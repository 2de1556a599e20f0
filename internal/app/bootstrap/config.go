// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for GiftCircle.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: GIFTCIRCLE_MONGO_URI, GIFTCIRCLE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "giftcircle", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "giftcircle-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Invite links
	{Name: "invite_key", Default: "dev-only-invite-key-0123456789ABC", Desc: "Invite token signing key (32 or 64 bytes)"},
	{Name: "invite_max_age", Default: "336h", Desc: "Invite token lifetime"},

	// Audit logging settings
	{Name: "audit_log_participation", Default: "all", Desc: "Claim/registration/link logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_organizer", Default: "all", Desc: "Roster/draw/lifecycle logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Rate limiting
	{Name: "claim_rate_per_minute", Default: 30, Desc: "Claim and join requests allowed per identity per minute"},
	{Name: "claim_burst", Default: 10, Desc: "Claim and join burst size"},

	// Timeouts
	{Name: "timeout_short", Default: "", Desc: "Timeout for single-document operations (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Timeout for multi-step operations"},
	{Name: "timeout_long", Default: "", Desc: "Timeout for list and history queries"},

	{Name: "draw_max_attempts", Default: 1000, Desc: "Maximum shuffles tried when drawing"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, GIFTCIRCLE_* for app) and
// flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GIFTCIRCLE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		InviteKey:    appValues.String("invite_key"),
		InviteMaxAge: appValues.Duration("invite_max_age", 14*24*time.Hour),

		AuditLogParticipation: appValues.String("audit_log_participation"),
		AuditLogOrganizer:     appValues.String("audit_log_organizer"),

		ClaimRatePerMinute: appValues.Int("claim_rate_per_minute"),
		ClaimBurst:         appValues.Int("claim_burst"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),

		DrawMaxAttempts: appValues.Int("draw_max_attempts"),
	}

	return coreCfg, appCfg, nil
}

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// GiftCircle validates the MongoDB URI format and key lengths so that
// misconfiguration fails before any connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 bytes")
	}
	if n := len(appCfg.InviteKey); n != 32 && n != 64 {
		return fmt.Errorf("invite_key must be 32 or 64 bytes, got %d", n)
	}
	if !auditModes[appCfg.AuditLogParticipation] || !auditModes[appCfg.AuditLogOrganizer] {
		return fmt.Errorf("audit_log_* must be one of all, db, log, off")
	}
	if appCfg.ClaimRatePerMinute < 1 || appCfg.ClaimBurst < 1 {
		return fmt.Errorf("claim_rate_per_minute and claim_burst must be positive")
	}
	if appCfg.DrawMaxAttempts < 1 {
		return fmt.Errorf("draw_max_attempts must be positive")
	}
	return nil
}
