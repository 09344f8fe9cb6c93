// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	chatsfeature "github.com/dalemusser/expensehub/internal/app/features/chats"
	delegationsfeature "github.com/dalemusser/expensehub/internal/app/features/delegations"
	expensesfeature "github.com/dalemusser/expensehub/internal/app/features/expenses"
	healthfeature "github.com/dalemusser/expensehub/internal/app/features/health"
	notificationsfeature "github.com/dalemusser/expensehub/internal/app/features/notifications"
	projectsfeature "github.com/dalemusser/expensehub/internal/app/features/projects"
	reportsfeature "github.com/dalemusser/expensehub/internal/app/features/reports"
	usersfeature "github.com/dalemusser/expensehub/internal/app/features/users"
	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Handlers share the Services built in
// Startup so the sweeper and the API dispatch through the same publisher.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	authMgr, err := auth.NewManager(appCfg.JWTSecret, appCfg.JWTIssuer, userstore.NewFetcher(deps.MongoDatabase), logger)
	if err != nil {
		logger.Error("auth manager init failed", zap.Error(err))
		return nil, err
	}

	svc := deps.Runtime.services()
	if svc == nil {
		svc = NewServices(appCfg, deps, logger)
	}

	r := chi.NewRouter()

	// Global auth middleware: loads the bearer token's user into context.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(authMgr.LoadUser)

	// Health check endpoint for load balancers and orchestrators
	var pushStatus healthfeature.PushStatus
	if deps.NATS != nil {
		pushStatus = deps.NATS.IsConnected
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, pushStatus, logger)))

	// Accounts
	usersHandler := usersfeature.NewHandler(svc.Users, svc.Dispatcher, svc.Audit, logger)
	r.Mount("/me", usersfeature.MeRoutes(usersHandler))
	r.Mount("/users", usersfeature.AdminRoutes(usersHandler))

	// Projects and everything scoped to one
	projectsHandler := projectsfeature.NewHandler(deps.MongoDatabase, svc.Projects, svc.Users, svc.Dispatcher, svc.Audit, logger)
	expensesHandler := expensesfeature.NewHandler(svc.Tracker, svc.Expenses, svc.Projects, logger)
	delegationsHandler := delegationsfeature.NewHandler(svc.Delegation, logger)
	chatsHandler := chatsfeature.NewHandler(svc.Chats, svc.Projects, svc.Dispatcher, logger)
	chatsHandler.SendLimit = svc.ChatLimit
	reportsHandler := reportsfeature.NewHandler(svc.Expenses, svc.Projects, svc.Tracker, appCfg.ReportPalette, logger)

	// Project-scoped features hang off the project router so its own
	// /{projectID}/... routes keep matching.
	projectRouter := projectsfeature.Routes(projectsHandler)
	projectRouter.Mount("/{projectID}/expenses", expensesfeature.ProjectRoutes(expensesHandler))
	projectRouter.Mount("/{projectID}/delegations", delegationsfeature.ProjectRoutes(delegationsHandler))
	projectRouter.Mount("/{projectID}/chats", chatsfeature.ProjectRoutes(chatsHandler))
	projectRouter.Mount("/{projectID}/reports", reportsfeature.Routes(reportsHandler))
	r.Mount("/projects", projectRouter)

	r.Mount("/expenses", expensesfeature.Routes(expensesHandler))
	r.Mount("/delegations", delegationsfeature.Routes(delegationsHandler))
	r.Mount("/chats", chatsfeature.Routes(chatsHandler))

	// Inbox and live feed
	notificationsHandler := notificationsfeature.NewHandler(svc.Notifications, svc.Feed, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler))

	return r, nil
}
