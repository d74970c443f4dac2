package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/bigwednesday/customer-api/store"
)

// dateLayouts are the accepted forms of the date query parameter.
var dateLayouts = []string{time.RFC3339Nano, time.DateOnly}

// requireMembership checks the customer and the membership concurrently.
// A missing customer is reported in preference to a missing membership.
func (s *Server) requireMembership(c echo.Context) error {
	ctx := c.Request().Context()
	cid, mid := c.Param("customerId"), c.Param("membershipId")

	// Not errgroup.WithContext: one lookup failing must not cancel the other.
	var g errgroup.Group
	var customerErr, membershipErr error
	g.Go(func() error {
		_, customerErr = s.customers.Get(ctx, cid)
		return customerErr
	})
	g.Go(func() error {
		_, membershipErr = s.memberships.Get(ctx, cid, mid)
		return membershipErr
	})
	_ = g.Wait()

	if customerErr != nil {
		return customerErr
	}
	return membershipErr
}

func (s *Server) createAdjustment(c echo.Context) error {
	var params store.AdjustmentParams
	if err := bindAndValidate(c, &params); err != nil {
		return err
	}
	if err := s.requireMembership(c); err != nil {
		return err
	}

	a, err := s.adjustments.Create(c.Request().Context(), c.Param("customerId"), c.Param("membershipId"), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (s *Server) findAdjustments(c echo.Context) error {
	if err := s.requireMembership(c); err != nil {
		return err
	}

	found, err := s.adjustments.Find(c.Request().Context(), c.Param("customerId"), c.Param("membershipId"), c.QueryParam("linked_product_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(found))
}

func (s *Server) getAdjustment(c echo.Context) error {
	if err := s.requireMembership(c); err != nil {
		return err
	}

	a, err := s.adjustments.Get(c.Request().Context(), c.Param("customerId"), c.Param("membershipId"), c.Param("adjustmentId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) updateAdjustment(c echo.Context) error {
	var params store.AdjustmentParams
	if err := bindAndValidate(c, &params); err != nil {
		return err
	}
	if err := s.requireMembership(c); err != nil {
		return err
	}

	a, err := s.adjustments.Update(c.Request().Context(), c.Param("customerId"), c.Param("membershipId"), c.Param("adjustmentId"), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) deleteAdjustment(c echo.Context) error {
	if err := s.requireMembership(c); err != nil {
		return err
	}

	if err := s.adjustments.Delete(c.Request().Context(), c.Param("customerId"), c.Param("membershipId"), c.Param("adjustmentId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// findActiveAdjustments lists the customer's adjustments active on the
// date query parameter, today when absent.
func (s *Server) findActiveAdjustments(c echo.Context) error {
	date := s.now().UTC()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, `"date" must be a valid date`)
		}
		date = parsed
	}
	if err := s.requireCustomer(c); err != nil {
		return err
	}

	found, err := s.adjustments.FindActiveForCustomer(c.Request().Context(), c.Param("customerId"), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(found))
}

func parseDate(raw string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
