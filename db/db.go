package database

import (
	"context"

	"dataplatform.io/integrator-operator/db/cassandra"
	"dataplatform.io/integrator-operator/db/etcd"
	"dataplatform.io/integrator-operator/db/kafka"
	"dataplatform.io/integrator-operator/db/mongodb"
	"dataplatform.io/integrator-operator/db/mysql"
	"dataplatform.io/integrator-operator/db/opensearch"
	"dataplatform.io/integrator-operator/db/postgres"
	dbType "dataplatform.io/integrator-operator/db/types"
	"dataplatform.io/integrator-operator/db/zookeeper"
	"github.com/pkg/errors"
)

// Supported reports whether a connectivity probe exists for the backend kind.
// Kyuubi only speaks Thrift JDBC and has no probe.
func Supported(backend string) bool {
	switch backend {
	case "mysql", "postgresql", "mongodb", "mongos", "cassandra", "kafka", "opensearch", "zookeeper", "etcd":
		return true
	}
	return false
}

// VerifyCredentials checks issued credentials against the backend they were issued for
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	switch target.Backend {
	case "mysql":
		return mysql.VerifyCredentials(ctx, target)
	case "postgresql":
		return postgres.VerifyCredentials(ctx, target)
	case "mongodb", "mongos":
		return mongodb.VerifyCredentials(ctx, target)
	case "cassandra":
		return cassandra.VerifyCredentials(ctx, target)
	case "kafka":
		return kafka.VerifyCredentials(ctx, target)
	case "opensearch":
		return opensearch.VerifyCredentials(ctx, target)
	case "zookeeper":
		return zookeeper.VerifyCredentials(ctx, target)
	case "etcd":
		return etcd.VerifyCredentials(ctx, target)
	}
	return errors.Errorf("no connectivity probe for backend %q", target.Backend)
}
