package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/internal/logger"
	"github.com/bigwednesday/customer-api/store"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// createCustomer registers a customer and signs it in.
func (s *Server) createCustomer(c echo.Context) error {
	var params store.CustomerParams
	if err := bindAndValidate(c, &params); err != nil {
		return err
	}
	if err := c.Validate(credentials{Email: params.Email, Password: params.Password}); err != nil {
		return err
	}

	ctx := c.Request().Context()
	customer, err := s.customers.Create(ctx, params)
	if err != nil {
		return err
	}

	session, err := s.customers.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		logger.FromEcho(c).Error("unable to authenticate new customer",
			zap.String("customer_id", customer.ID),
			zap.Error(err),
		)
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) authenticate(c echo.Context) error {
	var creds credentials
	if err := bindAndValidate(c, &creds); err != nil {
		return err
	}

	session, err := s.customers.Authenticate(c.Request().Context(), creds.Email, creds.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) getCustomer(c echo.Context) error {
	customer, err := s.customers.Get(c.Request().Context(), c.Param("customerId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

func (s *Server) updateCustomer(c echo.Context) error {
	var params store.CustomerParams
	if err := bindAndValidate(c, &params); err != nil {
		return err
	}

	customer, err := s.customers.Update(c.Request().Context(), c.Param("customerId"), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

// bindAndValidate decodes the request body into v and validates it.
func bindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return err
	}
	return c.Validate(v)
}
