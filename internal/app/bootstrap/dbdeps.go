// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/expensehub/internal/app/system/workers"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// NATS is nil when push delivery is disabled.
	NATS *nats.Conn

	// Runtime is shared by pointer so Startup can hand the services it
	// builds to BuildHandler and Shutdown.
	Runtime *Runtime
}

// Runtime holds what Startup builds on top of the backends.
type Runtime struct {
	Services *Services
	Sweep    *workers.DelegationSweep
}

func (rt *Runtime) services() *Services {
	if rt == nil {
		return nil
	}
	return rt.Services
}
