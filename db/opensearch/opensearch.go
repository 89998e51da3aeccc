package opensearch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"strings"

	dbType "dataplatform.io/integrator-operator/db/types"
	"github.com/pkg/errors"
	ctrl "sigs.k8s.io/controller-runtime"
)

func healthURL(target dbType.ProbeTarget, host string) string {
	if strings.HasPrefix(host, "https://") || strings.HasPrefix(host, "http://") {
		return fmt.Sprintf("%s/_cluster/health", strings.TrimSuffix(host, "/"))
	}
	return fmt.Sprintf("https://%s/_cluster/health", target.Addr(host))
}

func httpClient(target dbType.ProbeTarget) *http.Client {
	tlsConfig := &tls.Config{}
	if target.TLSCA != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(target.TLSCA)) {
			tlsConfig.RootCAs = pool
		}
	} else {
		// clusters deployed with self-signed certificates
		tlsConfig.InsecureSkipVerify = true
	}
	return &http.Client{
		Timeout:   target.Timeout,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}
}

// VerifyCredentials checks the issued credentials against the OpenSearch hosts
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	log := ctrl.Log.WithName("opensearch")

	if target.Port < 1 {
		target.Port = 9200
	}

	client := httpClient(target)

	var err error
	for _, host := range target.Hosts {
		url := healthURL(target, host)
		req, rErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if rErr != nil {
			log.Error(rErr, "Something went wrong initializing the http request")
			return rErr
		}
		req.SetBasicAuth(target.Username, target.Password)

		resp, rErr := client.Do(req)
		if rErr != nil {
			err = rErr
			log.Error(rErr, fmt.Sprintf("Cannot reach OpenSearch on %s", host))
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			err = errors.Errorf("OpenSearch on %s returned error code %d", url, resp.StatusCode)
			log.Error(err, "OpenSearch connectivity check failed")
			continue
		}

		log.Info(fmt.Sprintf("OpenSearch connectivity check passed on host %s", host))
		return nil
	}

	return err
}
