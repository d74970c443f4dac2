package httpapi

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/internal/logger"
	"github.com/bigwednesday/customer-api/store"
)

// AdminScope grants access to every customer.
const AdminScope = "admin"

const claimsKey = "claims"

// Scopes is the scope claim. It decodes from a JSON array or from a
// space separated string.
type Scopes []string

func (s *Scopes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = strings.Fields(str)
	return nil
}

// Claims are the JWT claims the API authorizes with.
type Claims struct {
	Scope      Scopes `json:"scope"`
	CustomerID string `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

// Allows reports whether the claims grant access to customer cid.
func (c *Claims) Allows(cid string) bool {
	return slices.Contains(c.Scope, AdminScope) || slices.Contains(c.Scope, store.CustomerScope(cid))
}

// requireScope validates the HS256 bearer token and checks it carries
// customer:{customerId} or admin.
func requireScope(signingKey []byte) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) { return signingKey, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication")
			}
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Bad HTTP authentication header format")
			}

			claims := &Claims{}
			if _, err := parser.ParseWithClaims(tokenString, claims, keyFunc); err != nil {
				log.Warn("invalid token", zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			customerID := c.Param("customerId")
			if !claims.Allows(customerID) {
				log.Warn("insufficient scope",
					zap.String("customer_id", customerID),
					zap.Strings("scope", claims.Scope),
				)
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient scope")
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}
