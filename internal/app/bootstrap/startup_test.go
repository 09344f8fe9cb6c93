package bootstrap

import (
	"testing"
	"time"

	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/expensehub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	if err := ensureAdmin(ctx, users, "+1 555 010 0001", "Site Admin", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	u, err := users.GetByPhone(ctx, "+15550100001")
	if err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("expected role ADMIN, got %q", u.Role)
	}
	if !u.IsActive {
		t.Error("expected admin to be active")
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing := fixtures.CreateApprover(ctx, "Existing User")
	users := userstore.New(db)

	if err := ensureAdmin(ctx, users, existing.Phone, "ignored", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	u, err := users.GetByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("expected role ADMIN, got %q", u.Role)
	}
	if u.FullName != "Existing User" {
		t.Errorf("name should be untouched, got %q", u.FullName)
	}
}

func TestEnsureAdmin_AlreadyAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing := fixtures.CreateAdmin(ctx, "Admin")
	users := userstore.New(db)

	if err := ensureAdmin(ctx, users, existing.Phone, "Admin", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	count, err := db.Collection("users").CountDocuments(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:                "mongodb://localhost:27017",
		MongoDatabase:           "expensehub",
		JWTSecret:               "secret",
		DelegationSweepInterval: time.Minute,
		AuditLogApproval:        "all",
		AuditLogDelegation:      "db",
		AuditLogAdmin:           "off",
		ReportPalette:           []string{"#000000"},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", "prod", func(*AppConfig) {}, false},
		{"bad mongo uri", "prod", func(c *AppConfig) { c.MongoURI = "postgres://x" }, true},
		{"missing secret in prod", "prod", func(c *AppConfig) { c.JWTSecret = "" }, true},
		{"missing secret in dev", "dev", func(c *AppConfig) { c.JWTSecret = "" }, false},
		{"zero sweep interval", "prod", func(c *AppConfig) { c.DelegationSweepInterval = 0 }, true},
		{"unknown audit mode", "prod", func(c *AppConfig) { c.AuditLogAdmin = "verbose" }, true},
		{"empty palette", "prod", func(c *AppConfig) { c.ReportPalette = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitPalette(t *testing.T) {
	got := splitPalette(" #111111, ,#222222 ,")
	if len(got) != 2 || got[0] != "#111111" || got[1] != "#222222" {
		t.Errorf("splitPalette = %v", got)
	}
	if got := splitPalette(""); got != nil {
		t.Errorf("splitPalette(\"\") = %v, want nil", got)
	}
}
