package vault

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// fakeSecretsClient is an in-memory SecretsClient for exercising the sink
type fakeSecretsClient struct {
	mu        sync.Mutex
	kv        map[string]map[string]interface{}
	token     string
	reads     int
	writes    int
	deletes   int
	failWith  error
	failCount int
}

func newFakeSecretsClient() *fakeSecretsClient {
	return &fakeSecretsClient{kv: make(map[string]map[string]interface{})}
}

func (f *fakeSecretsClient) Login(ctx context.Context) (*SecretResponse, error) {
	return &SecretResponse{Auth: &AuthInfo{ClientToken: "fake-token", Renewable: false}}, nil
}

func (f *fakeSecretsClient) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeSecretsClient) NewLifetimeWatcher(input *LifetimeWatcherInput) (LifetimeWatcher, error) {
	return nil, fmt.Errorf("not supported by fake client")
}

func (f *fakeSecretsClient) nextError() error {
	if f.failCount > 0 {
		f.failCount--
		return f.failWith
	}
	return nil
}

func (f *fakeSecretsClient) Read(path string) (*SecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if err := f.nextError(); err != nil {
		return nil, err
	}
	data, ok := f.kv[path]
	if !ok {
		return nil, nil
	}
	return &SecretResponse{Data: map[string]interface{}{"data": data}}, nil
}

func (f *fakeSecretsClient) Write(path string, data map[string]interface{}) (*SecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if err := f.nextError(); err != nil {
		return nil, err
	}
	payload, _ := data["data"].(map[string]interface{})
	f.kv[path] = payload
	return &SecretResponse{}, nil
}

func (f *fakeSecretsClient) Delete(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if err := f.nextError(); err != nil {
		return err
	}
	delete(f.kv, path)
	return nil
}

func (f *fakeSecretsClient) Backend() BackendType {
	return BackendVault
}

func (f *fakeSecretsClient) Address() string {
	return "http://vault.test:8200"
}

// installFakeClient swaps the package client for a fake and returns a restore func
func installFakeClient(t *testing.T, fake SecretsClient) func() {
	t.Helper()

	clientMutex.Lock()
	original := client
	client = fake
	clientMutex.Unlock()

	return func() {
		clientMutex.Lock()
		client = original
		clientMutex.Unlock()
	}
}

func TestKvDataPath(t *testing.T) {
	got := kvDataPath("secret", "default", "my-integrator", "mysql")
	want := "secret/data/default/my-integrator/mysql"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestKvDataMatches(t *testing.T) {
	tests := []struct {
		name        string
		stored      map[string]interface{}
		credentials map[string]string
		want        bool
	}{
		{
			name:        "matching payloads",
			stored:      map[string]interface{}{"username": "relation-141", "password": "s3cret"},
			credentials: map[string]string{"username": "relation-141", "password": "s3cret"},
			want:        true,
		},
		{
			name:        "different value",
			stored:      map[string]interface{}{"username": "relation-141"},
			credentials: map[string]string{"username": "relation-9"},
			want:        false,
		},
		{
			name:        "different sizes",
			stored:      map[string]interface{}{"username": "relation-141"},
			credentials: map[string]string{"username": "relation-141", "password": "s3cret"},
			want:        false,
		},
		{
			name:        "non-string stored value",
			stored:      map[string]interface{}{"username": 42},
			credentials: map[string]string{"username": "42"},
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kvDataMatches(tt.stored, tt.credentials); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestWriteCredentialsSkipsUnchangedPayloads(t *testing.T) {
	fake := newFakeSecretsClient()
	restore := installFakeClient(t, fake)
	defer restore()

	bag := map[string]string{
		"username":  "relation-141",
		"password":  "s3cret",
		"endpoints": "mysql-0:3306",
	}

	if err := WriteCredentials("default", "my-integrator", "mysql", bag); err != nil {
		t.Fatalf("Failed to write credentials: %v", err)
	}
	if fake.writes != 1 {
		t.Errorf("Expected 1 write, got %d", fake.writes)
	}

	// Identical payload must not create another KV version
	if err := WriteCredentials("default", "my-integrator", "mysql", bag); err != nil {
		t.Fatalf("Failed to rewrite credentials: %v", err)
	}
	if fake.writes != 1 {
		t.Errorf("Expected write to be skipped, got %d writes", fake.writes)
	}

	// A changed payload writes again
	bag["password"] = "rotated"
	if err := WriteCredentials("default", "my-integrator", "mysql", bag); err != nil {
		t.Fatalf("Failed to write rotated credentials: %v", err)
	}
	if fake.writes != 2 {
		t.Errorf("Expected 2 writes after rotation, got %d", fake.writes)
	}

	path := kvDataPath(kvMount(), "default", "my-integrator", "mysql")
	stored := fake.kv[path]
	if stored["password"] != "rotated" {
		t.Errorf("Expected rotated password to be stored, got %v", stored["password"])
	}
}

func TestDeleteCredentials(t *testing.T) {
	fake := newFakeSecretsClient()
	restore := installFakeClient(t, fake)
	defer restore()

	bag := map[string]string{"username": "relation-141", "password": "s3cret"}
	if err := WriteCredentials("default", "my-integrator", "kafka", bag); err != nil {
		t.Fatalf("Failed to write credentials: %v", err)
	}

	if err := DeleteCredentials("default", "my-integrator", "kafka"); err != nil {
		t.Fatalf("Failed to delete credentials: %v", err)
	}

	path := kvDataPath(kvMount(), "default", "my-integrator", "kafka")
	if _, ok := fake.kv[path]; ok {
		t.Error("Expected credentials to be removed from the store")
	}
}

func TestExecuteWithRetry403Errors(t *testing.T) {
	fake := newFakeSecretsClient()
	restore := installFakeClient(t, fake)
	defer restore()

	// Successful operation passes straight through
	result, err := executeWithRetry(func(c SecretsClient) (string, error) {
		return "success", nil
	})
	if err != nil {
		t.Fatalf("Operation should succeed: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got %s", result)
	}

	// A 403 is retried until the operation recovers
	attempt := 0
	result, err = executeWithRetry(func(c SecretsClient) (string, error) {
		attempt++
		if attempt < 2 {
			return "", fmt.Errorf("403 permission denied")
		}
		return "retry-success", nil
	})
	if err != nil {
		t.Fatalf("Retry should succeed: %v", err)
	}
	if result != "retry-success" {
		t.Errorf("Expected 'retry-success', got %s", result)
	}
	if attempt != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempt)
	}

	// Non-auth errors are returned immediately
	attempt = 0
	_, err = executeWithRetry(func(c SecretsClient) (string, error) {
		attempt++
		return "", fmt.Errorf("connection refused")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempt != 1 {
		t.Errorf("Expected 1 attempt for a non-auth error, got %d", attempt)
	}

	// Permanent 403 exhausts the retries
	attempt = 0
	_, err = executeWithRetry(func(c SecretsClient) (string, error) {
		attempt++
		return "", fmt.Errorf("permission denied")
	})
	if err == nil {
		t.Fatal("Expected error after max retries")
	}
	if !strings.Contains(err.Error(), "operation failed after 3 retries") {
		t.Errorf("Expected retry error message, got: %v", err)
	}
	if attempt != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempt)
	}
}

func TestTokenSetAndGet(t *testing.T) {
	fake := newFakeSecretsClient()
	restore := installFakeClient(t, fake)
	defer restore()

	originalToken := getCurrentToken()
	defer setCurrentToken(originalToken)

	setCurrentToken("test-token-123")
	if getCurrentToken() != "test-token-123" {
		t.Errorf("Expected 'test-token-123', got %s", getCurrentToken())
	}
	if fake.token != "test-token-123" {
		t.Errorf("Expected token to propagate to the client, got %s", fake.token)
	}

	// Concurrent access must not race
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			setCurrentToken(fmt.Sprintf("token-%d", idx))
		}(i)
		go func() {
			defer wg.Done()
			_ = getCurrentToken()
		}()
	}
	wg.Wait()

	if !strings.Contains(getCurrentToken(), "token-") {
		t.Errorf("Expected token to contain 'token-', got %s", getCurrentToken())
	}
}
