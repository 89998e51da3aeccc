package cassandra

import (
	"context"

	"github.com/gocql/gocql"

	dbType "dataplatform.io/integrator-operator/db/types"
	ctrl "sigs.k8s.io/controller-runtime"
)

// VerifyCredentials checks the issued credentials against the Cassandra cluster
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	log := ctrl.Log.WithName("cassandra")

	cluster := gocql.NewCluster(target.Hosts...)
	if target.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: target.Username,
			Password: target.Password,
		}
	}
	if target.Port > 0 {
		cluster.Port = target.Port
	}
	if target.Timeout > 0 {
		cluster.ConnectTimeout = target.Timeout
		cluster.Timeout = target.Timeout
	}
	if target.Database != "" {
		cluster.Keyspace = target.Database
	}

	cluster.Consistency = gocql.One
	session, err := cluster.CreateSession()
	if err != nil {
		log.Error(err, "Cannot create cassandra session")
		return err
	}
	defer session.Close()

	err = session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec()
	if err != nil {
		log.Error(err, "Cassandra connectivity check failed")
		return err
	}

	log.Info("Cassandra connectivity check passed")
	return nil
}
