// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/app/system/workers"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It applies configured timeouts, builds the shared services, seeds the
// bootstrap admin and starts the delegation expiry sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	svc := NewServices(appCfg, deps, logger)
	deps.Runtime.Services = svc

	if appCfg.AdminPhone != "" {
		if err := ensureAdmin(ctx, svc.Users, appCfg.AdminPhone, appCfg.AdminName, logger); err != nil {
			return err
		}
	}

	deps.Runtime.Sweep = workers.NewDelegationSweep(svc.Delegation, logger, appCfg.DelegationSweepInterval)
	deps.Runtime.Sweep.Start()

	return nil
}

// ensureAdmin makes sure the account with phone exists and is an admin,
// creating it or promoting it as needed.
func ensureAdmin(ctx context.Context, users *userstore.Store, phone, name string, logger *zap.Logger) error {
	u, err := users.GetByPhone(ctx, phone)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		created, err := users.Create(ctx, models.User{FullName: name, Phone: phone, Role: models.RoleAdmin})
		if err != nil {
			return fmt.Errorf("create bootstrap admin: %w", err)
		}
		logger.Info("bootstrap admin created", zap.String("user_id", created.ID.Hex()))
		return nil
	case err != nil:
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	if u.Role == models.RoleAdmin {
		return nil
	}
	if _, err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return fmt.Errorf("promote bootstrap admin: %w", err)
	}
	logger.Info("bootstrap admin promoted",
		zap.String("user_id", u.ID.Hex()),
		zap.String("previous_role", string(u.Role)))
	return nil
}
