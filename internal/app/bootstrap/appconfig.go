// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI            string        // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase       string        // Database name within MongoDB
	MongoMaxPoolSize    uint64        // Maximum connections in the driver pool
	MongoConnectTimeout time.Duration // Connect and initial ping timeout

	// Bearer token verification. Tokens are minted by the external auth
	// provider; this service only verifies them.
	JWTSecret string // HS256 shared secret
	JWTIssuer string // expected "iss" claim (blank skips the check)

	// Push delivery over NATS. A blank URL disables push.
	NATSURL           string
	NATSSubjectPrefix string // e.g. "expensehub.notifications"

	// Background work
	DelegationSweepInterval time.Duration // how often expired delegations are swept
	NotificationFeedPoll    time.Duration // poll interval when change streams are unavailable

	// Request timeouts
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit logging: "all" (db+log), "db", "log" or "off"
	AuditLogApproval   string
	AuditLogDelegation string
	AuditLogAdmin      string

	// Budget report colors, assigned to departments in order.
	ReportPalette []string

	// Chat messages a user may send per minute; 0 disables the limit.
	ChatMessagesPerMinute int

	// Bootstrap administrator, created or promoted at startup when set.
	AdminPhone string
	AdminName  string
}
