// internal/app/features/delegations/handler.go
package delegations

import (
	"github.com/dalemusser/expensehub/internal/app/system/delegation"
	"go.uber.org/zap"
)

// Handler serves temporary approver delegations.
type Handler struct {
	Delegations *delegation.Service
	Log         *zap.Logger
}

func NewHandler(svc *delegation.Service, logger *zap.Logger) *Handler {
	return &Handler{Delegations: svc, Log: logger}
}
