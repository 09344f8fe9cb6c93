// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const defaultPalette = "#4E79A7,#F28E2B,#E15759,#76B7B2,#59A14F,#EDC948,#B07AA1,#FF9DA7,#9C755F,#BAB0AC"

// appConfigKeys defines the configuration keys for ExpenseHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: EXPENSEHUB_MONGO_URI, EXPENSEHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "expensehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_connect_timeout", Default: "10s", Desc: "MongoDB connect and ping timeout"},

	// Bearer tokens
	{Name: "jwt_secret", Default: "", Desc: "HS256 secret shared with the auth provider (required outside dev)"},
	{Name: "jwt_issuer", Default: "", Desc: "Expected token issuer (blank skips the check)"},

	// Push delivery
	{Name: "nats_url", Default: "", Desc: "NATS server URL for push delivery (blank disables push)"},
	{Name: "nats_subject_prefix", Default: "expensehub.notifications", Desc: "Subject prefix for push events"},

	// Background work
	{Name: "delegation_sweep_interval", Default: "1m", Desc: "How often expired delegations are swept"},
	{Name: "notification_feed_poll", Default: "5s", Desc: "Notification feed poll interval when change streams are unsupported"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list and aggregate operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for exports and batch operations"},

	// Audit logging settings
	{Name: "audit_log_approval", Default: "all", Desc: "Approval event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_delegation", Default: "all", Desc: "Delegation event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Reports
	{Name: "report_palette", Default: defaultPalette, Desc: "Comma-separated hex colors for budget report departments"},

	// Chats
	{Name: "chat_messages_per_minute", Default: 30, Desc: "Chat messages a user may send per minute (0 disables the limit)"},

	// Bootstrap admin
	{Name: "admin_phone", Default: "", Desc: "Phone number of the account to ensure is an admin at startup"},
	{Name: "admin_name", Default: "Administrator", Desc: "Full name used when the admin account has to be created"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, EXPENSEHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EXPENSEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:            appValues.String("mongo_uri"),
		MongoDatabase:       appValues.String("mongo_database"),
		MongoMaxPoolSize:    uint64(appValues.Int("mongo_max_pool_size")),
		MongoConnectTimeout: appValues.Duration("mongo_connect_timeout", 10*time.Second),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),

		NATSURL:           appValues.String("nats_url"),
		NATSSubjectPrefix: appValues.String("nats_subject_prefix"),

		DelegationSweepInterval: appValues.Duration("delegation_sweep_interval", time.Minute),
		NotificationFeedPoll:    appValues.Duration("notification_feed_poll", 5*time.Second),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),

		AuditLogApproval:   appValues.String("audit_log_approval"),
		AuditLogDelegation: appValues.String("audit_log_delegation"),
		AuditLogAdmin:      appValues.String("audit_log_admin"),

		ReportPalette: splitPalette(appValues.String("report_palette")),

		ChatMessagesPerMinute: appValues.Int("chat_messages_per_minute"),

		AdminPhone: appValues.String("admin_phone"),
		AdminName:  appValues.String("admin_name"),
	}

	return coreCfg, appCfg, nil
}

func splitPalette(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWTSecret == "" && coreCfg.Env != "dev" {
		return errors.New("jwt_secret is required outside dev")
	}

	if appCfg.DelegationSweepInterval <= 0 {
		return fmt.Errorf("delegation_sweep_interval must be positive, got %s", appCfg.DelegationSweepInterval)
	}

	for key, v := range map[string]string{
		"audit_log_approval":   appCfg.AuditLogApproval,
		"audit_log_delegation": appCfg.AuditLogDelegation,
		"audit_log_admin":      appCfg.AuditLogAdmin,
	} {
		if !auditModes[v] {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v)
		}
	}

	if len(appCfg.ReportPalette) == 0 {
		return errors.New("report_palette must list at least one color")
	}

	return nil
}
