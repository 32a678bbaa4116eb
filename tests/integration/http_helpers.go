package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/BradenHooton/offeradmin/internal/app"
	"github.com/BradenHooton/offeradmin/internal/config"
	"github.com/BradenHooton/offeradmin/internal/handlers"
	"github.com/BradenHooton/offeradmin/internal/storage"
)

// AdminPassword is the password every test server accepts for "admin"
const AdminPassword = "Integration-Pass-42"

// TestConfig returns a configuration suitable for test servers
func TestConfig(driver string) (*config.Config, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	return &config.Config{
		Server: config.ServerConfig{
			Env:            "test",
			LoginRateLimit: 1000,
			WriteRateLimit: 1000,
		},
		Auth: config.AuthConfig{
			AdminUsername:     "admin",
			AdminPasswordHash: string(hash),
			TokenSecret:       "test-secret-32-characters-long-for-testing",
			SessionTimeout:    8 * time.Hour,
			MaxAttempts:       5,
			LockoutDuration:   15 * time.Minute,
			SweepInterval:     time.Minute,
			SessionKey:        "admin_auth",
			AttemptsKey:       "login_attempts",
			SavedUsernameKey:  "saved_username",
			RememberKey:       "remember_login",
		},
		Storage: config.StorageConfig{Driver: driver},
		Offers: config.OffersConfig{
			StorageKey:      "admin_offers",
			Seed:            "demo",
			RefreshInterval: time.Minute,
			PerPage:         20,
		},
	}, nil
}

// TestServer wraps httptest.Server around a fully wired App
type TestServer struct {
	Server *httptest.Server
	App    *app.App
}

// NewTestServer builds the application over store and starts serving it.
// Background work (including the change watcher) is started too.
func NewTestServer(ctx context.Context, driver string, store storage.Storage) (*TestServer, error) {
	cfg, err := TestConfig(driver)
	if err != nil {
		return nil, err
	}

	a, err := app.NewWithStorage(ctx, cfg, store, discardLogger())
	if err != nil {
		return nil, err
	}
	a.Start(context.Background())

	return &TestServer{Server: httptest.NewServer(a.Router()), App: a}, nil
}

// Close shuts down the test server and the application
func (ts *TestServer) Close() {
	ts.Server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ts.App.Close(ctx)
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes a request carrying the bearer token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{"Authorization": "Bearer " + token})
}

// Login signs in as admin and returns the bearer token
func (ts *TestServer) Login(password string) (string, *http.Response, error) {
	resp, err := ts.Request("POST", "/auth/login", handlers.LoginRequest{Username: "admin", Password: password}, nil)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", resp, nil
	}

	var body handlers.LoginResponse
	if err := ParseJSONResponse(resp, &body); err != nil {
		return "", resp, fmt.Errorf("failed to parse login response: %w", err)
	}
	return body.Token, resp, nil
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorCode extracts the error code from an error response
func GetErrorCode(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	code, _ := errResp["error"].(string)
	return code, nil
}
