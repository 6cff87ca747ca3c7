package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"solmeet/internal/audit"
	claimhandler "solmeet/internal/claim/handler"
	claimservice "solmeet/internal/claim/service"
	"solmeet/internal/credential"
	eventhandler "solmeet/internal/event/handler"
	eventservice "solmeet/internal/event/service"
	eventstore "solmeet/internal/event/store"
	jwttoken "solmeet/internal/jwt_token"
	"solmeet/internal/ledger/issuance"
	ledgerstore "solmeet/internal/ledger/store"
	"solmeet/internal/platform/health"
	httptransport "solmeet/internal/transport/http"
	"solmeet/pkg/domain"
)

const (
	signingKey = "e2e-signing-key-not-for-production"
	issuer     = "solmeet"
	audience   = "solmeet-api"
)

var (
	masterSeed = bytes.Repeat([]byte{0x5a}, 32)
	proofSalt  = bytes.Repeat([]byte{0xa5}, 16)
)

// fakeClock is the request clock every scenario step moves explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type response struct {
	Status int
	Body   []byte
}

// TestContext holds state between test steps
type TestContext struct {
	server *httptest.Server
	client *http.Client
	clock  *fakeClock
	tokens *jwttoken.JWTService

	T0          time.Time
	EventID     string
	Credentials []string

	// callers maps scenario names to their bearer tokens
	callers map[string]string
	// claims records each attendee's last presentation
	claims map[string]response
	// holders maps an attendee to the credential index they presented
	holders map[string]int

	LastStatus       int
	LastResponseBody []byte
}

// NewTestContext starts an in-process gateway on memory stores.
func NewTestContext() *TestContext {
	return &TestContext{
		client:  &http.Client{Timeout: 10 * time.Second},
		clock:   &fakeClock{},
		callers: make(map[string]string),
		claims:  make(map[string]response),
		holders: make(map[string]int),
	}
}

func (tc *TestContext) start() error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	keyring, err := credential.NewKeyring(masterSeed)
	if err != nil {
		return err
	}
	events := eventstore.NewInMemory()
	ledger := ledgerstore.NewInMemory()
	gateway, err := issuance.New(ledger, proofSalt)
	if err != nil {
		return err
	}
	publisher := audit.NewPublisher(audit.NewInMemoryStore())

	eventSvc := eventservice.New(events, keyring,
		eventservice.WithLogger(logger),
		eventservice.WithAuditPublisher(publisher),
		eventservice.WithAuditReader(publisher),
		eventservice.WithClaimCounter(ledger),
	)
	claimSvc := claimservice.New(events, keyring, ledger, gateway,
		claimservice.WithLogger(logger),
		claimservice.WithAuditPublisher(publisher),
	)

	tc.tokens = jwttoken.NewJWTService(signingKey, issuer, audience, time.Hour)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger: logger,
		Auth:   tc.tokens,
		Health: health.New("e2e"),
		Events: eventhandler.New(eventSvc, logger),
		Claims: claimhandler.New(claimSvc, logger),
		Clock:  tc.clock.Now,
	})
	tc.server = httptest.NewServer(router)
	return nil
}

func (tc *TestContext) close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

// tokenFor mints, once, a bearer token for an anonymous caller.
func (tc *TestContext) tokenFor(name string) (string, error) {
	if token, ok := tc.callers[name]; ok {
		return token, nil
	}
	id, err := domain.Anonymous(name)
	if err != nil {
		return "", err
	}
	token, err := tc.tokens.GenerateCallerToken(context.Background(), id)
	if err != nil {
		return "", err
	}
	tc.callers[name] = token
	return token, nil
}

// do issues one request as caller (anonymous when empty) without touching
// the shared last-response state, so it is safe to call concurrently.
func (tc *TestContext) do(method, path, token string, body any) (response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return response{}, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.server.URL+path, reader)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("failed to read response body: %w", err)
	}
	return response{Status: resp.StatusCode, Body: data}, nil
}

func (tc *TestContext) record(r response) {
	tc.LastStatus = r.Status
	tc.LastResponseBody = r.Body
}

// GetResponseField extracts a top-level field from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response", field)
	}
	return value, nil
}
