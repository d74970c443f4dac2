// Package httpapi exposes the customer, membership and price adjustment
// stores over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/internal/logger"
	"github.com/bigwednesday/customer-api/internal/metrics"
	"github.com/bigwednesday/customer-api/store"
)

// CustomerService is the customer store surface the API uses.
type CustomerService interface {
	Create(ctx context.Context, params store.CustomerParams) (*store.Customer, error)
	Get(ctx context.Context, id string) (*store.Customer, error)
	Update(ctx context.Context, id string, params store.CustomerParams) (*store.Customer, error)
	Authenticate(ctx context.Context, email, password string) (*store.Session, error)
}

// MembershipService is the membership store surface the API uses.
type MembershipService interface {
	Create(ctx context.Context, cid string, params store.MembershipParams) (*store.Membership, error)
	Find(ctx context.Context, cid, supplierID string) ([]*store.Membership, error)
	Get(ctx context.Context, cid, mid string) (*store.Membership, error)
	Update(ctx context.Context, cid, mid string, params store.MembershipParams) (*store.Membership, error)
	Delete(ctx context.Context, cid, mid string) error
}

// AdjustmentService is the price adjustment store surface the API uses.
type AdjustmentService interface {
	Create(ctx context.Context, cid, mid string, params store.AdjustmentParams) (*store.Adjustment, error)
	Get(ctx context.Context, cid, mid, aid string) (*store.Adjustment, error)
	Find(ctx context.Context, cid, mid, linkedProductID string) ([]*store.Adjustment, error)
	Update(ctx context.Context, cid, mid, aid string, params store.AdjustmentParams) (*store.Adjustment, error)
	Delete(ctx context.Context, cid, mid, aid string) error
	FindActiveForCustomer(ctx context.Context, cid string, date time.Time) ([]*store.Adjustment, error)
}

// Deps are the collaborators of the HTTP API. Metrics and Logger are optional.
type Deps struct {
	Customers   CustomerService
	Memberships MembershipService
	Adjustments AdjustmentService
	SigningKey  []byte
	Metrics     *metrics.HTTPMetrics
	Logger      *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	echo        *echo.Echo
	customers   CustomerService
	memberships MembershipService
	adjustments AdjustmentService
	logger      *zap.Logger
	now         func() time.Time
}

// New builds a Server with all routes registered.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()

	s := &Server{
		echo:        e,
		customers:   deps.Customers,
		memberships: deps.Memberships,
		adjustments: deps.Adjustments,
		logger:      deps.Logger,
		now:         time.Now,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(logger.RequestID())
	e.Use(logger.Middleware(deps.Logger))
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	e.GET("/health", healthHandler)

	// Public routes
	e.POST("/customers", s.createCustomer)
	e.POST("/customers/authenticate", s.authenticate)

	// Routes scoped to a single customer
	customer := e.Group("/customers/:customerId", requireScope(deps.SigningKey))
	customer.GET("", s.getCustomer)
	customer.PUT("", s.updateCustomer)
	customer.GET("/product_price_adjustments", s.findActiveAdjustments)

	customer.POST("/memberships", s.createMembership)
	customer.GET("/memberships", s.findMemberships)
	customer.GET("/memberships/:membershipId", s.getMembership)
	customer.PUT("/memberships/:membershipId", s.updateMembership)
	customer.DELETE("/memberships/:membershipId", s.deleteMembership)

	adjustments := customer.Group("/memberships/:membershipId/product_price_adjustments")
	adjustments.POST("", s.createAdjustment)
	adjustments.GET("", s.findAdjustments)
	adjustments.GET("/:adjustmentId", s.getAdjustment)
	adjustments.PUT("/:adjustmentId", s.updateAdjustment)
	adjustments.DELETE("/:adjustmentId", s.deleteAdjustment)

	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
