package identity_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigwednesday/customer-api/identity"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *identity.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return identity.NewClient(identity.Config{
		BaseURL:         srv.URL,
		Connection:      "Username-Password-Authentication",
		ClientID:        "client",
		ClientSecret:    "secret",
		ManagementToken: "mgmt-token",
	}, nil)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return body
}

func TestClient_CreateUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v2/users" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer mgmt-token" {
			t.Errorf("expected management bearer token, got %q", r.Header.Get("Authorization"))
		}
		body := decodeBody(t, r)
		if body["connection"] != "db" {
			t.Errorf("expected connection 'db', got %v", body["connection"])
		}
		meta, _ := body["app_metadata"].(map[string]any)
		if meta["customer_id"] != "c1" {
			t.Errorf("expected app_metadata.customer_id 'c1', got %v", meta["customer_id"])
		}
		scope, _ := meta["scope"].([]any)
		if len(scope) != 1 || scope[0] != "customer:c1" {
			t.Errorf("expected scope [customer:c1], got %v", meta["scope"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"user_id":"auth0|123","email":"a@x.io","app_metadata":{"customer_id":"c1"}}`))
	})

	user, err := client.CreateUser(context.Background(), identity.NewUser{
		Connection: "db",
		Email:      "a@x.io",
		Password:   "p1",
		ExternalID: "c1",
		Scope:      []string{"customer:c1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ProviderID != "auth0|123" {
		t.Errorf("expected provider id 'auth0|123', got %q", user.ProviderID)
	}
	if user.ExternalID != "c1" {
		t.Errorf("expected external id 'c1', got %q", user.ExternalID)
	}
}

func TestClient_CreateUser_ErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{
			name:     "conflict",
			status:   http.StatusConflict,
			body:     `{"statusCode":409,"error":"Conflict","message":"The user already exists.","errorCode":"auth0_idp_error"}`,
			expected: identity.ErrUserExists,
		},
		{
			name:     "explicit user_exists",
			status:   http.StatusBadRequest,
			body:     `{"code":"user_exists","message":"The user already exists."}`,
			expected: identity.ErrUserExists,
		},
		{
			name:     "weak password",
			status:   http.StatusBadRequest,
			body:     `{"statusCode":400,"error":"Bad Request","message":"PasswordStrengthError: Password is too weak"}`,
			expected: identity.ErrInvalidPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.CreateUser(context.Background(), identity.NewUser{Email: "a@x.io", Password: "p"})
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
			var idErr *identity.Error
			if !errors.As(err, &idErr) || idErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %v", tt.status, err)
			}
		})
	}
}

func TestClient_UnmappedError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"statusCode":429,"error":"Too Many Requests","message":"Global limit has been reached"}`))
	})

	err := client.DeleteUser(context.Background(), "auth0|1")
	if identity.CodeOf(err) != "Too Many Requests" {
		t.Errorf("expected code 'Too Many Requests', got %q", identity.CodeOf(err))
	}
	if errors.Is(err, identity.ErrUserExists) || errors.Is(err, identity.ErrInvalidPassword) {
		t.Errorf("expected unmapped error, got %v", err)
	}
}

func TestClient_DeleteUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if r.URL.EscapedPath() != "/api/v2/users/auth0%7C123" {
			t.Errorf("expected escaped user path, got %q", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteUser(context.Background(), "auth0|123"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClient_UpdateUserEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		body := decodeBody(t, r)
		if body["email"] != "b@x.io" {
			t.Errorf("expected email 'b@x.io', got %v", body["email"])
		}
		if body["verify_email"] != true {
			t.Errorf("expected verify_email true, got %v", body["verify_email"])
		}
		_, _ = w.Write([]byte(`{"user_id":"auth0|123","email":"b@x.io"}`))
	})

	if err := client.UpdateUserEmail(context.Background(), "auth0|123", "b@x.io", true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClient_Authenticate(t *testing.T) {
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"customer_id": "c1",
		"scope":       []string{"customer:c1"},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Errorf("expected /oauth/token, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("expected no management token on authentication request")
		}
		body := decodeBody(t, r)
		if body["realm"] != "Username-Password-Authentication" {
			t.Errorf("expected realm of connection, got %v", body["realm"])
		}
		if body["username"] != "a@x.io" {
			t.Errorf("expected username 'a@x.io', got %v", body["username"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id_token": idToken, "access_token": "at"})
	})

	tok, err := client.Authenticate(context.Background(), "a@x.io", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.IDToken != idToken {
		t.Error("expected id token to be returned")
	}
	if tok.CustomerID != "c1" {
		t.Errorf("expected customer id 'c1', got %q", tok.CustomerID)
	}
}

func TestClient_Authenticate_WrongPassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Wrong email or password."}`))
	})

	_, err := client.Authenticate(context.Background(), "a@x.io", "nope")
	if !errors.Is(err, identity.ErrInvalidUserPassword) {
		t.Errorf("expected ErrInvalidUserPassword, got %v", err)
	}
}

func TestClient_ManagementTokenCached(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			tokenCalls.Add(1)
			body := decodeBody(t, r)
			if body["grant_type"] != "client_credentials" {
				t.Errorf("expected client_credentials grant, got %v", body["grant_type"])
			}
			_, _ = w.Write([]byte(`{"access_token":"fresh","expires_in":86400}`))
		default:
			if r.Header.Get("Authorization") != "Bearer fresh" {
				t.Errorf("expected fetched token, got %q", r.Header.Get("Authorization"))
			}
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	client := identity.NewClient(identity.Config{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret"}, nil)
	for i := 0; i < 3; i++ {
		if err := client.DeleteUser(context.Background(), "auth0|1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if tokenCalls.Load() != 1 {
		t.Errorf("expected 1 token request, got %d", tokenCalls.Load())
	}
}
