package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// CustomerIDClaim is the app_metadata field and ID token claim carrying the
// customer id of an identity provider user.
const CustomerIDClaim = "customer_id"

const passwordRealmGrant = "http://auth0.com/oauth/grant-type/password-realm"

// Config holds the Auth0 tenant settings.
type Config struct {
	// Domain is the tenant domain, e.g. "bigwednesday.eu.auth0.com".
	Domain string

	// BaseURL overrides the https://{Domain} base. Used by tests.
	BaseURL string

	// Connection is the database connection users authenticate against.
	Connection string

	// ClientID and ClientSecret identify the API's Auth0 application.
	ClientID     string
	ClientSecret string

	// ManagementToken is a static management API token. When empty a token is
	// obtained with the client credentials grant and cached until expiry.
	ManagementToken string

	// Timeout bounds each HTTP request.
	// Default: 10s
	Timeout time.Duration
}

// NewUser describes a user to create.
type NewUser struct {
	Connection string
	Email      string
	Password   string
	// ExternalID is stored in app_metadata under CustomerIDClaim.
	ExternalID string
	Scope      []string
}

// User is a created identity provider user.
type User struct {
	ProviderID string
	Email      string
	ExternalID string
}

// Token is the result of a successful password authentication.
type Token struct {
	IDToken     string
	AccessToken string
	// CustomerID is read from the ID token's CustomerIDClaim, if present.
	CustomerID string
}

// Client talks to the Auth0 management and authentication APIs.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.RWMutex
	tokenCache  string
	tokenExpire time.Time
}

// NewClient creates an Auth0 client. A nil logger disables logging.
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := config.BaseURL
	if base == "" {
		base = "https://" + config.Domain
	}
	return &Client{
		config:     config,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// CreateUser registers a user in the connection. The external id and scope
// are stored in app_metadata.
func (c *Client) CreateUser(ctx context.Context, u NewUser) (*User, error) {
	connection := u.Connection
	if connection == "" {
		connection = c.config.Connection
	}
	body := map[string]any{
		"connection": connection,
		"email":      u.Email,
		"password":   u.Password,
		"app_metadata": map[string]any{
			CustomerIDClaim: u.ExternalID,
			"scope":         u.Scope,
		},
	}

	var resp struct {
		UserID      string         `json:"user_id"`
		Email       string         `json:"email"`
		AppMetadata map[string]any `json:"app_metadata"`
	}
	if err := c.management(ctx, http.MethodPost, "/api/v2/users", body, &resp); err != nil {
		return nil, err
	}

	user := &User{ProviderID: resp.UserID, Email: resp.Email}
	if id, ok := resp.AppMetadata[CustomerIDClaim].(string); ok {
		user.ExternalID = id
	}
	c.logger.Info("identity user created",
		zap.String("provider_id", user.ProviderID),
		zap.String("customer_id", u.ExternalID),
	)
	return user, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, providerID string) error {
	if err := c.management(ctx, http.MethodDelete, "/api/v2/users/"+url.PathEscape(providerID), nil, nil); err != nil {
		return err
	}
	c.logger.Info("identity user deleted", zap.String("provider_id", providerID))
	return nil
}

// UpdateUserEmail changes a user's email. With verify set the provider sends
// a verification mail to the new address.
func (c *Client) UpdateUserEmail(ctx context.Context, providerID, email string, verify bool) error {
	body := map[string]any{
		"email":        email,
		"verify_email": verify,
		"connection":   c.config.Connection,
	}
	if err := c.management(ctx, http.MethodPatch, "/api/v2/users/"+url.PathEscape(providerID), body, nil); err != nil {
		return err
	}
	c.logger.Info("identity user email updated", zap.String("provider_id", providerID))
	return nil
}

// Authenticate exchanges an email and password for tokens using the
// password-realm grant against the configured connection.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Token, error) {
	body := map[string]any{
		"grant_type":    passwordRealmGrant,
		"username":      email,
		"password":      password,
		"realm":         c.config.Connection,
		"client_id":     c.config.ClientID,
		"client_secret": c.config.ClientSecret,
		"scope":         "openid email " + CustomerIDClaim + " scope",
	}

	var resp struct {
		IDToken     string `json:"id_token"`
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/oauth/token", "", body, &resp); err != nil {
		return nil, err
	}

	tok := &Token{IDToken: resp.IDToken, AccessToken: resp.AccessToken}
	tok.CustomerID = customerIDFromToken(resp.IDToken)
	return tok, nil
}

// customerIDFromToken reads CustomerIDClaim without verifying the
// signature. The token has just been received from the provider over TLS.
func customerIDFromToken(raw string) string {
	if raw == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ""
	}
	id, _ := claims[CustomerIDClaim].(string)
	return id
}

// managementToken returns the static token or a cached client credentials
// token, refreshing it a minute before expiry.
func (c *Client) managementToken(ctx context.Context) (string, error) {
	if c.config.ManagementToken != "" {
		return c.config.ManagementToken, nil
	}

	c.mu.RLock()
	if c.tokenCache != "" && time.Now().Before(c.tokenExpire) {
		token := c.tokenCache
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokenCache != "" && time.Now().Before(c.tokenExpire) {
		return c.tokenCache, nil
	}

	body := map[string]any{
		"grant_type":    "client_credentials",
		"client_id":     c.config.ClientID,
		"client_secret": c.config.ClientSecret,
		"audience":      c.baseURL + "/api/v2/",
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := c.do(ctx, http.MethodPost, "/oauth/token", "", body, &resp); err != nil {
		return "", fmt.Errorf("identity: management token: %w", err)
	}

	c.tokenCache = resp.AccessToken
	c.tokenExpire = time.Now().Add(time.Duration(resp.ExpiresIn-60) * time.Second)
	return resp.AccessToken, nil
}

func (c *Client) management(ctx context.Context, method, path string, body, result any) error {
	token, err := c.managementToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, token, body, result)
}

// do sends a JSON request. Non-2xx responses are decoded into *Error.
func (c *Client) do(ctx context.Context, method, path, token string, body, result any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("identity: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		e := apiErr.normalize(resp.StatusCode)
		c.logger.Warn("identity request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", e.Code),
		)
		return e
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("identity: decode response: %w", err)
		}
	}
	return nil
}
