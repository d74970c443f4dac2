package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigwednesday/customer-api/docstore"
	"github.com/bigwednesday/customer-api/identity"
	"github.com/bigwednesday/customer-api/internal/httpapi"
	"github.com/bigwednesday/customer-api/internal/metrics"
	"github.com/bigwednesday/customer-api/store"
)

var signingKey = []byte("test-secret")

// fakeIdentity is an in-memory store.IdentityProvider.
type fakeIdentity struct {
	mu     sync.Mutex
	users  map[string]identity.NewUser
	nextID int
}

func (f *fakeIdentity) CreateUser(_ context.Context, u identity.NewUser) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, &identity.Error{StatusCode: 409, Code: identity.CodeUserExists}
		}
	}
	if len(u.Password) < 8 {
		return nil, &identity.Error{StatusCode: 400, Code: identity.CodeInvalidPassword}
	}
	f.nextID++
	id := fmt.Sprintf("auth0|%d", f.nextID)
	f.users[id] = u
	return &identity.User{ProviderID: id, Email: u.Email, ExternalID: u.ExternalID}, nil
}

func (f *fakeIdentity) DeleteUser(_ context.Context, providerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, providerID)
	return nil
}

func (f *fakeIdentity) UpdateUserEmail(_ context.Context, providerID, email string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[providerID]; ok {
		u.Email = email
		f.users[providerID] = u
	}
	return nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, email, password string) (*identity.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.Password == password {
			return &identity.Token{IDToken: "id-token-" + u.ExternalID, CustomerID: u.ExternalID}, nil
		}
	}
	return nil, &identity.Error{StatusCode: 403, Code: identity.CodeInvalidUserPassword}
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	db      *docstore.Memory
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := docstore.NewMemory()
	entities := store.NewEntityStore(db)
	idp := &fakeIdentity{users: make(map[string]identity.NewUser)}

	srv := httpapi.New(httpapi.Deps{
		Customers:   store.NewCustomerStore(entities, idp, store.DefaultConfig(), nil),
		Memberships: store.NewMembershipStore(entities),
		Adjustments: store.NewAdjustmentStore(entities),
		SigningKey:  signingKey,
		Metrics:     newMetrics(),
	})
	return &testAPI{t: t, handler: srv.Handler(), db: db}
}

// token signs an HS256 token carrying scopes.
func token(t *testing.T, key []byte, scopes ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"scope": scopes,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func (a *testAPI) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rec.Code != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, rec.Code, rec.Body.String())
	}
}

// createCustomer registers a customer over the API and returns its session.
func (a *testAPI) createCustomer(email string) store.Session {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/customers", "", map[string]any{"email": email, "password": "correct-horse"})
	expectStatus(a.t, rec, http.StatusCreated)
	return decode[store.Session](a.t, rec)
}

func newMetrics() *metrics.HTTPMetrics {
	reg := prometheus.NewRegistry()
	return metrics.NewHTTPMetrics("customer-api", reg, reg)
}
