package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bigwednesday/customer-api/docstore"
)

func TestStatusCategory(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		201: "2xx",
		302: "",
		404: "4xx",
		500: "5xx",
	}
	for status, expected := range tests {
		if got := statusCategory(status); got != expected {
			t.Errorf("statusCategory(%d): expected %q, got %q", status, expected, got)
		}
	}
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics("customer-api", reg, reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/customers/:customerId", func(c echo.Context) error {
		if c.Param("customerId") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	for _, id := range []string{"c1", "c2", "missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/"+id, nil))
	}

	ok := m.requests.WithLabelValues("customer-api", http.MethodGet, "/customers/:customerId", "200")
	if got := testutil.ToFloat64(ok); got != 2 {
		t.Errorf("expected 2 ok requests, got %v", got)
	}
	notFound := m.statusCategory.WithLabelValues("customer-api", "4xx", http.MethodGet, "/customers/:customerId")
	if got := testutil.ToFloat64(notFound); got != 1 {
		t.Errorf("expected 1 4xx response, got %v", got)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "http_requests_total") {
		t.Error("expected exposition to contain http_requests_total")
	}
}

func TestStore_RecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewStore(docstore.NewMemory(), reg)
	ctx := context.Background()
	key := docstore.NewKey("Customer", "c1")

	if _, err := s.Get(ctx, key); !errors.Is(err, docstore.ErrNoSuchEntity) {
		t.Fatalf("expected ErrNoSuchEntity, got %v", err)
	}
	if err := s.Save(ctx, docstore.Mutation{Key: key, Method: docstore.Insert, Properties: docstore.Properties{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Save(ctx, docstore.Mutation{Key: key, Method: docstore.Insert, Properties: docstore.Properties{}}); !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := s.RunQuery(ctx, docstore.NewQuery("Customer")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		operation string
		result    string
		expected  float64
	}{
		{"get", "not_found", 1},
		{"insert", "ok", 1},
		{"insert", "exists", 1},
		{"query", "ok", 1},
		{"delete", "ok", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(s.operations.WithLabelValues(tt.operation, "Customer", tt.result))
		if got != tt.expected {
			t.Errorf("%s/%s: expected %v, got %v", tt.operation, tt.result, tt.expected, got)
		}
	}
}

func TestResult(t *testing.T) {
	if got := result(errors.New("boom")); got != "error" {
		t.Errorf("expected 'error', got %q", got)
	}
}

func TestStore_Prefix(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewStore(docstore.NewMemory(), prometheus.WrapRegistererWithPrefix("customer_api_", reg))
	if _, err := s.Get(context.Background(), docstore.NewKey("Customer", "c1")); err == nil {
		t.Fatal("expected error")
	}

	n, err := testutil.GatherAndCount(reg, "customer_api_docstore_operations_total")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 series, got %d", n)
	}
}
