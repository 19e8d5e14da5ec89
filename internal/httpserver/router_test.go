package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"chatcommerce/internal/audit"
	"chatcommerce/internal/domain"
	"chatcommerce/internal/engine"
	"chatcommerce/internal/gateway"
	"chatcommerce/internal/guard"
	"chatcommerce/internal/repository/order"
	"chatcommerce/internal/repository/product"
	"chatcommerce/internal/repository/session"
	"chatcommerce/internal/repository/settings"
)

type dropRecorder struct{}

func (dropRecorder) Record(_ audit.Event) {}

type stubGateway struct{}

func (stubGateway) CheckStatus(_ context.Context, _ string) (gateway.Status, error) {
	return gateway.StatusSucceeded, nil
}

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	catalog := product.NewMemory()
	if err := catalog.Add(context.Background(), domain.Product{ID: "netflix", Name: "Netflix Premium", PriceUSD: 5, Stock: 10}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return engine.New(engine.Deps{
		Sessions: session.NewMemory(),
		Catalog:  catalog,
		Orders:   order.NewMemory(),
		Settings: settings.NewMemory(),
		Gateway:  stubGateway{},
		Guard:    guard.New(guard.Defaults(), dropRecorder{}),
		Audit:    dropRecorder{},
		Admins:   engine.NewStaticAllowlist(nil),
		Logger:   log.New(io.Discard, "", 0),
	})
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return buildRouter(log.New(io.Discard, "", 0), nil, testEngine(t), nil)
}

func TestMessagesEndpoint_Success(t *testing.T) {
	router := testRouter(t)

	body := `{"customerId":"cust-1","text":"shop"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Reply, "Netflix Premium") {
		t.Fatalf("expected catalog listing in reply, got %q", resp.Reply)
	}
}

func TestMessagesEndpoint_MissingFields(t *testing.T) {
	router := testRouter(t)

	for _, body := range []string{
		`{}`,
		`{"customerId":"cust-1"}`,
		`{"text":"menu"}`,
		`{"customerId":"  ","text":"menu"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected status 400, got %d", body, rec.Code)
		}
	}
}

func TestMessagesEndpoint_BadJSON(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestReadyz_MemoryStorage(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "memory") {
		t.Fatalf("expected memory storage marker, got %s", rec.Body.String())
	}
}
