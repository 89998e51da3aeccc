package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	dmetrics "dataplatform.io/integrator-operator/metrics"
	"dataplatform.io/integrator-operator/utils"

	ctrl "sigs.k8s.io/controller-runtime"
)

const (
	kubernetesMountPath   = "kubernetes"
	approleMountPath      = "approle"
	userpassRoleMountPath = "userpass"
	defaultKvMount        = "secret"
	maxRetries            = 3
	retryDelay            = 2 * time.Second
)

var (
	log          = ctrl.Log.WithName("vault")
	client       SecretsClient
	clientMutex  sync.RWMutex
	currentToken string
	tokenMutex   sync.RWMutex
)

// Enabled reports whether a secrets backend is configured as a credentials sink
func Enabled() bool {
	return os.Getenv("BAO_ADDR") != "" || os.Getenv("VAULT_ADDR") != ""
}

// setCurrentToken safely updates the current token
func setCurrentToken(token string) {
	tokenMutex.Lock()
	currentToken = token
	tokenMutex.Unlock()

	clientMutex.Lock()
	defer clientMutex.Unlock()

	if client != nil {
		client.SetToken(token)
	}
}

// getCurrentToken safely retrieves the current token
func getCurrentToken() string {
	tokenMutex.RLock()
	defer tokenMutex.RUnlock()
	return currentToken
}

// getOrCreateClient returns the secrets backend client, creating it if necessary
func getOrCreateClient() (SecretsClient, error) {
	clientMutex.RLock()
	if client != nil {
		clientMutex.RUnlock()
		return client, nil
	}
	clientMutex.RUnlock()

	token := getCurrentToken()

	clientMutex.Lock()
	defer clientMutex.Unlock()

	// Double-check after acquiring write lock
	if client != nil {
		return client, nil
	}

	newClient, err := NewSecretsClient()
	if err != nil {
		return nil, err
	}
	if token != "" {
		newClient.SetToken(token)
	}

	client = newClient
	return client, nil
}

// refreshClient forces creation of a new client
func refreshClient() error {
	token := getCurrentToken()

	clientMutex.Lock()
	defer clientMutex.Unlock()

	newClient, err := NewSecretsClient()
	if err != nil {
		return err
	}
	if token != "" {
		newClient.SetToken(token)
	}

	client = newClient
	return nil
}

// addressLabel returns the backend address used on metric labels
func addressLabel() string {
	clientMutex.RLock()
	defer clientMutex.RUnlock()

	if client != nil {
		return client.Address()
	}
	return getEnvWithPrefix("VAULT", "ADDR", "")
}

func tokenRenewer(client SecretsClient) {
	backoff := utils.NewExponentialBackoff(
		5*time.Second,  // initial backoff
		60*time.Second, // max backoff
		2.0,            // multiplier
		0,              // no max attempts (infinite)
	).WithJitter(0.1)

	for {
		loginResp, err := client.Login(context.Background())
		if err != nil {
			dmetrics.VaultTokenError.WithLabelValues(client.Address()).SetToCurrentTime()
			backoffDuration := backoff.NextBackoff()
			log.Error(err, "unable to authenticate to the secrets backend", "backoff", backoffDuration, "attemptCount", backoff.AttemptCount())
			time.Sleep(backoffDuration)
			continue
		}
		if loginResp == nil || loginResp.Auth == nil {
			dmetrics.VaultTokenError.WithLabelValues(client.Address()).SetToCurrentTime()
			backoffDuration := backoff.NextBackoff()
			log.Info("login returned no auth info", "backoff", backoffDuration)
			time.Sleep(backoffDuration)
			continue
		}

		setCurrentToken(loginResp.Auth.ClientToken)

		err = manageTokenLifecycle(client, loginResp)
		if err != nil {
			dmetrics.VaultTokenError.WithLabelValues(client.Address()).SetToCurrentTime()
			backoffDuration := backoff.NextBackoff()
			log.Error(err, "unable to start managing token lifecycle", "backoff", backoffDuration, "attemptCount", backoff.AttemptCount())
			// On error, force client refresh on next use
			if err := refreshClient(); err != nil {
				log.Error(err, "Failed to refresh client after token lifecycle error")
			}
			time.Sleep(backoffDuration)
			continue
		}

		// Success - reset backoff
		dmetrics.VaultTokenError.WithLabelValues(client.Address()).Set(0)
		backoff.Reset()

		// Force client refresh after token lifecycle ends
		if err := refreshClient(); err != nil {
			log.Error(err, "Failed to refresh client after token lifecycle completion")
		}

		// Wait a bit before attempting to re-authentication
		log.Info("Token lifecycle ended, waiting before re-authentication", "delay", "5s")
		time.Sleep(5 * time.Second)
	}
}

// Starts token lifecycle management. Returns only fatal errors as errors,
// otherwise returns nil so we can attempt login again.
func manageTokenLifecycle(client SecretsClient, token *SecretResponse) error {
	if token.Auth == nil || !token.Auth.Renewable {
		log.Info("Token is not configured to be renewable. Re-attempting login.")
		return nil
	}

	watcher, err := client.NewLifetimeWatcher(&LifetimeWatcherInput{
		Secret: token,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize new lifetime watcher for renewing auth token: %w", err)
	}

	watcher.Start()
	defer watcher.Stop()

	for {
		select {
		case err := <-watcher.DoneCh():
			if err != nil {
				log.Error(err, "Failed to renew token")
				return nil
			}
			// This occurs once the token has reached max TTL.
			log.Info("Token can no longer be renewed. Re-attempting login.")
			return nil

		// Successfully completed renewal
		case renewal := <-watcher.RenewCh():
			log.Info("Successfully renewed auth token")
			if renewal.Secret != nil && renewal.Secret.Auth != nil {
				setCurrentToken(renewal.Secret.Auth.ClientToken)
			}
		}
	}
}

// executeWithRetry executes a backend operation with retry logic for 403 errors
func executeWithRetry[T any](operation func(SecretsClient) (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		c, cErr := getOrCreateClient()
		if cErr != nil {
			return result, cErr
		}

		result, err = operation(c)
		if err == nil {
			return result, nil
		}

		// Check if this is an authentication error
		if strings.Contains(err.Error(), "403") || strings.Contains(err.Error(), "permission denied") {
			log.Info("Got 403 error, refreshing client", "attempt", attempt+1)

			// Force client refresh
			if err := refreshClient(); err != nil {
				log.Error(err, "Failed to refresh client")
			}

			// Wait before retry
			if attempt < maxRetries-1 {
				time.Sleep(retryDelay)
			}
			continue
		}

		// Non-auth error, return immediately
		return result, err
	}

	return result, fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

func kvMount() string {
	return getEnvWithPrefix("VAULT", "KV_MOUNT", defaultKvMount)
}

// kvDataPath builds the KV v2 data path for a relation's credential bag
func kvDataPath(mount, namespace, integrator, backend string) string {
	return fmt.Sprintf("%s/data/%s/%s/%s", mount, namespace, integrator, backend)
}

// kvDataMatches compares a stored KV payload with a credential bag
func kvDataMatches(stored map[string]interface{}, credentials map[string]string) bool {
	if len(stored) != len(credentials) {
		return false
	}
	for k, v := range credentials {
		s, ok := stored[k].(string)
		if !ok || s != v {
			return false
		}
	}
	return true
}

// WriteCredentials mirrors an issued credential bag into the KV store. Writes
// are skipped when the stored version already matches so reconcile loops do
// not pile up KV versions.
func WriteCredentials(namespace, integrator, backend string, credentials map[string]string) error {
	path := kvDataPath(kvMount(), namespace, integrator, backend)

	current, err := executeWithRetry(func(c SecretsClient) (*SecretResponse, error) {
		return c.Read(path)
	})
	if err == nil && current != nil {
		if stored, ok := current.Data["data"].(map[string]interface{}); ok && kvDataMatches(stored, credentials) {
			return nil
		}
	}

	data := make(map[string]interface{}, len(credentials))
	for k, v := range credentials {
		data[k] = v
	}

	_, err = executeWithRetry(func(c SecretsClient) (*SecretResponse, error) {
		return c.Write(path, map[string]interface{}{"data": data})
	})
	if err != nil {
		dmetrics.VaultError.WithLabelValues(addressLabel()).SetToCurrentTime()
		return err
	}

	dmetrics.VaultError.WithLabelValues(addressLabel()).Set(0)
	log.Info("Mirrored credentials to the secrets backend", "path", path)
	return nil
}

// DeleteCredentials removes a mirrored credential bag from the KV store
func DeleteCredentials(namespace, integrator, backend string) error {
	path := kvDataPath(kvMount(), namespace, integrator, backend)

	_, err := executeWithRetry(func(c SecretsClient) (interface{}, error) {
		return nil, c.Delete(path)
	})
	if err != nil {
		dmetrics.VaultError.WithLabelValues(addressLabel()).SetToCurrentTime()
		return err
	}

	log.Info("Removed credentials from the secrets backend", "path", path)
	return nil
}

// Start brings up the secrets backend client and token renewal
func Start() error {
	c, err := getOrCreateClient()
	if err != nil {
		dmetrics.VaultError.WithLabelValues(addressLabel()).SetToCurrentTime()
		log.Error(err, "Error setting up the secrets backend client")
		return err
	}

	prefix := envPrefix(c.Backend())
	if token := getEnvWithPrefix(prefix, "TOKEN", ""); token != "" {
		log.Info("Using token authentication, no automatic renewal will occur")
		setCurrentToken(token)
		dmetrics.VaultError.WithLabelValues(c.Address()).Set(0)
		return nil
	}

	dmetrics.VaultError.WithLabelValues(c.Address()).Set(0)

	go tokenRenewer(c)

	return nil
}
