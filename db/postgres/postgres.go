package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	dbType "dataplatform.io/integrator-operator/db/types"
	ctrl "sigs.k8s.io/controller-runtime"
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func connInfo(target dbType.ProbeTarget, host string) string {
	sslmode := getEnv("PGSSLMODE", "prefer")
	database := target.Database
	if database == "" {
		database = "postgres"
	}
	h, port := target.HostPort(host)
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s connect_timeout=10 sslmode=%s",
		h, port, target.Username, target.Password, database, sslmode)
}

func pingHost(ctx context.Context, target dbType.ProbeTarget, host string) error {
	db, err := sql.Open("postgres", connInfo(target, host))
	if err != nil {
		return err
	}
	defer db.Close()

	return db.PingContext(ctx)
}

// VerifyCredentials checks the issued credentials against the PostgreSQL hosts
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	log := ctrl.Log.WithName("postgres")

	if target.Port < 1 {
		target.Port = 5432
	}

	var err error
	for _, host := range target.Hosts {
		err = pingHost(ctx, target, host)
		if err != nil {
			log.Error(err, fmt.Sprintf("Cannot reach host %s", host))
		} else {
			log.Info(fmt.Sprintf("PostgreSQL connectivity check passed on host %s", host))
			return nil
		}
	}

	return err
}
