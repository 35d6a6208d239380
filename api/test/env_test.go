package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/sirupsen/logrus"

	"github.com/santosoadam/coursemarket/api"
	"github.com/santosoadam/coursemarket/config"
	"github.com/santosoadam/coursemarket/database"
	"github.com/santosoadam/coursemarket/gateway/midtrans"
	"github.com/santosoadam/coursemarket/rate"
)

// TestEnv boots a throwaway Postgres container, a mock payment gateway and
// the full API mux for end-to-end tests.
type TestEnv struct {
	DB            *sqlx.DB
	Gateway       *mockGateway
	GatewayClient *midtrans.Client
	Server        *httptest.Server
	URL           string

	client *http.Client
	purge  func() error
}

// NewTestEnv skips the calling test when Docker is not reachable, so the
// container-backed suite stays runnable in constrained environments.
func NewTestEnv(t *testing.T, name string) (*TestEnv, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	resource.Expire(300)

	dbCfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       "localhost:" + resource.GetPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	}

	var db *sqlx.DB
	if err := pool.Retry(func() error {
		var err error
		db, err = database.Open(dbCfg)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		pool.Purge(resource)
		t.Fatalf("connecting to postgres: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		pool.Purge(resource)
		t.Fatalf("migrating test database: %v", err)
	}

	gateway := newMockGateway()
	gwServer := httptest.NewServer(gateway.handler())

	gwClient := midtrans.New(config.Midtrans{
		ServerKey:   gatewayServerKey,
		SnapURL:     gwServer.URL,
		APIURL:      gwServer.URL,
		CallTimeout: 5 * time.Second,
	})

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	sessionManager := scs.New()
	sessionManager.Lifetime = time.Hour

	limiter := rate.NewLimiter(1000, 100, 1000)

	mux := api.APIMux(api.APIConfig{
		Log:         log,
		DB:          db,
		Session:     sessionManager,
		Gateway:     gwClient,
		AuthLimiter: limiter,
	})

	server := httptest.NewServer(mux)

	jar, err := cookiejar.New(nil)
	if err != nil {
		pool.Purge(resource)
		t.Fatalf("creating cookie jar: %v", err)
	}

	env := &TestEnv{
		DB:            db,
		Gateway:       gateway,
		GatewayClient: gwClient,
		Server:        server,
		URL:           server.URL,
		client:        &http.Client{Jar: jar},
		purge:         func() error { return pool.Purge(resource) },
	}

	teardown := func() {
		server.Close()
		gwServer.Close()
		limiter.Stop()
		db.Close()
		env.purge()
	}

	return env, teardown
}

func (te *TestEnv) Client() *http.Client {
	return te.client
}

// postJSON sends a JSON body with the environment's cookie jar and decodes
// the response into out when it is non-nil.
func (te *TestEnv) postJSON(method string, path string, body any, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	r, err := http.NewRequest(method, te.URL+path, &buf)
	if err != nil {
		return 0, err
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := te.client.Do(r)
	if err != nil {
		return 0, err
	}
	defer w.Body.Close()

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			return w.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return w.StatusCode, nil
}

func (te *TestEnv) getJSON(path string, out any) (int, error) {
	return te.postJSON(http.MethodGet, path, nil, out)
}

func (te *TestEnv) Signup(name string, email string, password string) error {
	code, err := te.postJSON(http.MethodPost, "/auth/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, nil)
	if err != nil {
		return err
	}
	if code != http.StatusCreated {
		return fmt.Errorf("signup returned status %d", code)
	}
	return nil
}

func (te *TestEnv) Login(email string, password string) error {
	code, err := te.postJSON(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("login returned status %d", code)
	}
	return nil
}

func (te *TestEnv) Logout() error {
	code, err := te.postJSON(http.MethodPost, "/auth/logout", nil, nil)
	if err != nil {
		return err
	}
	if code != http.StatusNoContent {
		return fmt.Errorf("logout returned status %d", code)
	}
	return nil
}
