package zookeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"

	dbType "dataplatform.io/integrator-operator/db/types"
	"github.com/pkg/errors"
	ctrl "sigs.k8s.io/controller-runtime"
)

// VerifyCredentials checks the issued credentials against the ZooKeeper ensemble
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	log := ctrl.Log.WithName("zookeeper")

	if target.Port < 1 {
		target.Port = 2181
	}
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	conn, _, err := zk.Connect(target.Addrs(), timeout, zk.WithLogInfo(false))
	if err != nil {
		log.Error(err, "Cannot connect to zookeeper")
		return err
	}
	defer conn.Close()

	if target.Username != "" {
		auth := fmt.Sprintf("%s:%s", target.Username, target.Password)
		if err := conn.AddAuth("digest", []byte(auth)); err != nil {
			log.Error(err, "Zookeeper authentication failed")
			return err
		}
	}

	path := target.Database
	if path == "" {
		path = "/"
	}
	if _, _, err := conn.Children(path); err != nil {
		err = errors.Wrapf(err, "cannot list zookeeper path %s", path)
		log.Error(err, "Zookeeper connectivity check failed")
		return err
	}

	log.Info("Zookeeper connectivity check passed")
	return nil
}
