package mongodb

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	dbType "dataplatform.io/integrator-operator/db/types"
	ctrl "sigs.k8s.io/controller-runtime"
)

func connectionURI(target dbType.ProbeTarget) string {
	if target.URI != "" {
		return target.URI
	}
	return "mongodb://" + strings.Join(target.Addrs(), ",")
}

// VerifyCredentials checks the issued credentials against MongoDB. Routed
// clusters hand out mongos URIs and take the same path.
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	log := ctrl.Log.WithName("mongodb")

	if target.Port < 1 {
		target.Port = 27017
	}

	opts := options.Client().ApplyURI(connectionURI(target))
	if target.Timeout > 0 {
		opts = opts.SetConnectTimeout(target.Timeout).SetServerSelectionTimeout(target.Timeout)
	}
	if target.URI == "" && target.Username != "" {
		cred := options.Credential{
			Username: target.Username,
			Password: target.Password,
		}
		if target.Database != "" {
			cred.AuthSource = target.Database
		}
		opts = opts.SetAuth(cred)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Error(err, "Cannot connect to mongodb")
		return err
	}
	defer func() {
		_ = client.Disconnect(ctx)
	}()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Error(err, "MongoDB connectivity check failed")
		return err
	}

	log.Info("MongoDB connectivity check passed")
	return nil
}
