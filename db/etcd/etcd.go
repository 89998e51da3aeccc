package etcd

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	dbType "dataplatform.io/integrator-operator/db/types"
	"github.com/pkg/errors"
	ctrl "sigs.k8s.io/controller-runtime"
)

func clientConfig(target dbType.ProbeTarget) (clientv3.Config, error) {
	cfg := clientv3.Config{
		Endpoints:   target.Addrs(),
		DialTimeout: target.Timeout,
		Username:    target.Username,
		Password:    target.Password,
	}
	if target.TLSCA != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(target.TLSCA)) {
			return cfg, errors.New("cannot parse etcd CA certificate")
		}
		cfg.TLS = &tls.Config{RootCAs: pool}
	}
	return cfg, nil
}

// VerifyCredentials checks the issued coordinates against the etcd endpoints.
// Client certificates never travel through the credential bag so this
// validates endpoint reachability and the issued CA, not the mTLS identity.
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	log := ctrl.Log.WithName("etcd")

	if target.Port < 1 {
		target.Port = 2379
	}

	cfg, err := clientConfig(target)
	if err != nil {
		return err
	}

	cli, err := clientv3.New(cfg)
	if err != nil {
		log.Error(err, "Cannot create etcd client")
		return err
	}
	defer cli.Close()

	for _, endpoint := range cfg.Endpoints {
		_, err = cli.Status(ctx, endpoint)
		if err != nil {
			log.Error(err, fmt.Sprintf("Cannot reach etcd endpoint %s", endpoint))
		} else {
			log.Info(fmt.Sprintf("Etcd connectivity check passed on endpoint %s", endpoint))
			return nil
		}
	}

	return err
}
