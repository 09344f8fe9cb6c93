// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes returned when multi-document transactions are unavailable.
var unsupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation: standalone server
	51:  true,
	263: true, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions, as on a standalone mongod used in development.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return unsupportedCodes[ce.Code]
	}

	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "transaction") && !strings.Contains(msg, "session") {
		return false
	}
	for _, kw := range []string{"replica set", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return strings.Contains(msg, "transaction") && strings.Contains(msg, "session")
}

// Run executes fn inside a transaction on db's client. When the server
// cannot run transactions fn is executed once more without one; nothing
// from the aborted attempt was committed.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if IsNotSupported(err) {
		logger.Debug("transactions unavailable, running without one", zap.Error(err))
		return fn(ctx)
	}
	return err
}
