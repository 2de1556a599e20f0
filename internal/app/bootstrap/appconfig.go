// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS); everything specific
// to the gift exchange lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: giftcircle-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Session cookie lifetime

	// Invite links
	InviteKey    string        // HMAC key for invite tokens (32 or 64 bytes)
	InviteMaxAge time.Duration // How long an issued invite stays valid

	// Audit logging: "all", "db", "log" or "off"
	AuditLogParticipation string
	AuditLogOrganizer     string

	// Per-identity limits on claim and join requests
	ClaimRatePerMinute int
	ClaimBurst         int

	// Operation timeouts (zero keeps the built-in default)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// DrawMaxAttempts bounds the derangement retry loop.
	DrawMaxAttempts int
}
