package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	dbType "dataplatform.io/integrator-operator/db/types"
	ctrl "sigs.k8s.io/controller-runtime"
)

func dsn(target dbType.ProbeTarget, host string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?tls=preferred&timeout=%s",
		target.Username, target.Password, target.Addr(host), target.Database, target.Timeout)
}

func pingHost(ctx context.Context, target dbType.ProbeTarget, host string) error {
	db, err := sql.Open("mysql", dsn(target, host))
	if err != nil {
		return err
	}
	defer db.Close()

	return db.PingContext(ctx)
}

// VerifyCredentials checks the issued credentials against the MySQL hosts
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	log := ctrl.Log.WithName("mysql")

	if target.Port < 1 {
		target.Port = 3306
	}

	var err error
	for _, host := range target.Hosts {
		err = pingHost(ctx, target, host)
		if err != nil {
			log.Error(err, fmt.Sprintf("Cannot reach host %s", host))
		} else {
			log.Info(fmt.Sprintf("MySQL connectivity check passed on host %s", host))
			return nil
		}
	}

	return err
}
