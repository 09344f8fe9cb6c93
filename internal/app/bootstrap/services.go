// internal/app/bootstrap/services.go
package bootstrap

import (
	"time"

	auditstore "github.com/dalemusser/expensehub/internal/app/store/audit"
	chatstore "github.com/dalemusser/expensehub/internal/app/store/chats"
	delegationstore "github.com/dalemusser/expensehub/internal/app/store/delegations"
	expensestore "github.com/dalemusser/expensehub/internal/app/store/expenses"
	notificationstore "github.com/dalemusser/expensehub/internal/app/store/notifications"
	projectstore "github.com/dalemusser/expensehub/internal/app/store/projects"
	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"github.com/dalemusser/expensehub/internal/app/system/approval"
	"github.com/dalemusser/expensehub/internal/app/system/auditlog"
	"github.com/dalemusser/expensehub/internal/app/system/delegation"
	"github.com/dalemusser/expensehub/internal/app/system/dispatch"
	"github.com/dalemusser/expensehub/internal/app/system/notifyfeed"
	"github.com/dalemusser/expensehub/internal/app/system/push"
	"github.com/dalemusser/expensehub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Services bundles the stores and domain services shared by handlers and
// background workers.
type Services struct {
	Users         *userstore.Store
	Projects      *projectstore.Store
	Expenses      *expensestore.Store
	Notifications *notificationstore.Store
	Delegations   *delegationstore.Store
	Chats         *chatstore.Store

	Audit      *auditlog.Logger
	Dispatcher *dispatch.Dispatcher
	Tracker    *approval.Tracker
	Delegation *delegation.Service
	Feed       *notifyfeed.Feed

	ChatLimit *ratelimit.Limiter
}

// NewServices wires stores and services over deps.
func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *Services {
	db := deps.MongoDatabase

	s := &Services{
		Users:         userstore.New(db),
		Projects:      projectstore.New(db),
		Expenses:      expensestore.New(db),
		Notifications: notificationstore.New(db),
		Delegations:   delegationstore.New(db),
		Chats:         chatstore.New(db),
	}

	s.Audit = auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Approval:   appCfg.AuditLogApproval,
		Delegation: appCfg.AuditLogDelegation,
		Admin:      appCfg.AuditLogAdmin,
	})

	var pub push.Publisher = push.Nop{}
	if deps.NATS != nil {
		pub = push.NewNATSPublisher(deps.NATS, appCfg.NATSSubjectPrefix, logger)
	}

	s.Dispatcher = dispatch.New(s.Users, s.Notifications, pub, logger)
	s.Tracker = approval.New(s.Expenses, s.Projects, s.Delegations, s.Dispatcher, s.Audit, logger)
	s.Delegation = delegation.New(s.Delegations, s.Projects, s.Users, s.Dispatcher, s.Audit, logger)
	s.Feed = notifyfeed.New(notifyfeed.StoreSource{Store: s.Notifications}, logger, appCfg.NotificationFeedPoll)

	if appCfg.ChatMessagesPerMinute > 0 {
		s.ChatLimit = ratelimit.New(appCfg.ChatMessagesPerMinute, time.Minute)
	}

	return s
}
