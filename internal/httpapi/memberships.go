package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bigwednesday/customer-api/store"
)

// requireCustomer fails with the customer's not-found error when it does
// not exist.
func (s *Server) requireCustomer(c echo.Context) error {
	_, err := s.customers.Get(c.Request().Context(), c.Param("customerId"))
	return err
}

func (s *Server) createMembership(c echo.Context) error {
	var params store.MembershipParams
	if err := bindAndValidate(c, &params); err != nil {
		return err
	}
	if err := s.requireCustomer(c); err != nil {
		return err
	}

	m, err := s.memberships.Create(c.Request().Context(), c.Param("customerId"), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) findMemberships(c echo.Context) error {
	if err := s.requireCustomer(c); err != nil {
		return err
	}

	found, err := s.memberships.Find(c.Request().Context(), c.Param("customerId"), c.QueryParam("supplier_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(found))
}

func (s *Server) getMembership(c echo.Context) error {
	if err := s.requireCustomer(c); err != nil {
		return err
	}

	m, err := s.memberships.Get(c.Request().Context(), c.Param("customerId"), c.Param("membershipId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) updateMembership(c echo.Context) error {
	var params store.MembershipParams
	if err := bindAndValidate(c, &params); err != nil {
		return err
	}
	if err := s.requireCustomer(c); err != nil {
		return err
	}

	m, err := s.memberships.Update(c.Request().Context(), c.Param("customerId"), c.Param("membershipId"), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) deleteMembership(c echo.Context) error {
	if err := s.requireCustomer(c); err != nil {
		return err
	}

	if err := s.memberships.Delete(c.Request().Context(), c.Param("customerId"), c.Param("membershipId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
