package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/agritrace/internal/registry"
	"github.com/mamadbah2/agritrace/internal/server/handlers"
	"github.com/mamadbah2/agritrace/internal/server/router"
)

const (
	admin  = "0xADMIN"
	farmer = "0xFARMER"
	trader = "0xTRADER"
)

func newTestServer(t *testing.T) (*gin.Engine, *registry.Registry) {
	t.Helper()
	reg, err := registry.New(registry.Options{Admin: admin, StrictCustody: true}, nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	engine := router.New(handlers.NewRegistryHandler(reg, nil), nil)
	return engine, reg
}

func do(t *testing.T, engine *gin.Engine, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(handlers.ActorHeader, actor)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRegisterProductOverHTTP(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := do(t, engine, http.MethodPost, "/api/v1/identities/verify", admin, `{"identity":"0xFARMER"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify identity: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := `{"qr_code":"QR-1","name":"Iron Beans","variety":"RWA-001","iron_content":85,"biofortified":true,"quantity":1000}`
	rec = do(t, engine, http.MethodPost, "/api/v1/products", farmer, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register product: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var receipt struct {
		Event string `json:"event"`
		Seq   uint64 `json:"seq"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decoding receipt: %v", err)
	}
	if receipt.Event != "ProductRegistered" {
		t.Errorf("expected ProductRegistered receipt, got %s", receipt.Event)
	}

	rec = do(t, engine, http.MethodGet, "/api/v1/products/QR-1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get product: expected 200, got %d", rec.Code)
	}
}

func TestErrorKindStatusMapping(t *testing.T) {
	engine, reg := newTestServer(t)

	if _, err := reg.VerifyIdentity(admin, farmer); err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if _, err := reg.RegisterProduct(farmer, registry.ProductInput{QRCode: "QR-1", Quantity: 100}); err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}

	productBody := `{"qr_code":"QR-1","quantity":10}`

	// duplicate_key -> 409
	rec := do(t, engine, http.MethodPost, "/api/v1/products", farmer, productBody)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate product: expected 409, got %d", rec.Code)
	}

	// unauthorized -> 403
	rec = do(t, engine, http.MethodPost, "/api/v1/products", trader, `{"qr_code":"QR-2"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unverified caller: expected 403, got %d", rec.Code)
	}

	// not_found -> 404
	rec = do(t, engine, http.MethodGet, "/api/v1/products/QR-404", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing product: expected 404, got %d", rec.Code)
	}

	// invalid_argument -> 400
	rec = do(t, engine, http.MethodPost, "/api/v1/products", farmer, `{"qr_code":"QR-2","iron_content":999}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid iron content: expected 400, got %d", rec.Code)
	}

	// system_paused -> 503
	if _, err := reg.Pause(admin); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	rec = do(t, engine, http.MethodPost, "/api/v1/products", farmer, `{"qr_code":"QR-3"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("paused registry: expected 503, got %d", rec.Code)
	}

	// Reads keep working while paused.
	rec = do(t, engine, http.MethodGet, "/api/v1/products/QR-1", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("read while paused: expected 200, got %d", rec.Code)
	}
}

func TestMissingActorHeader(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := do(t, engine, http.MethodPost, "/api/v1/products", "", `{"qr_code":"QR-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing actor header: expected 400, got %d", rec.Code)
	}
}

func TestSupplyChainOverHTTP(t *testing.T) {
	engine, reg := newTestServer(t)

	if _, err := reg.VerifyIdentity(admin, farmer); err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if _, err := reg.RegisterProduct(farmer, registry.ProductInput{QRCode: "QR-1", Quantity: 100}); err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}

	stepBody := `{"action":"harvested","description":"from farm","location":"Musanze"}`
	rec := do(t, engine, http.MethodPost, "/api/v1/products/QR-1/steps", farmer, stepBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add step: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = do(t, engine, http.MethodGet, "/api/v1/products/QR-1/history", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get history: expected 200, got %d", rec.Code)
	}

	var resp struct {
		Steps []struct {
			Actor  string `json:"actor"`
			Action string `json:"action"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(resp.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(resp.Steps))
	}
	if resp.Steps[0].Actor != farmer || resp.Steps[0].Action != "harvested" {
		t.Errorf("unexpected step %+v", resp.Steps[0])
	}
}

func TestIdentityVerifiedQuery(t *testing.T) {
	engine, reg := newTestServer(t)

	rec := do(t, engine, http.MethodGet, "/api/v1/identities/0xFARMER/verified", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"verified":false`) {
		t.Errorf("fresh identity should not be verified: %s", rec.Body.String())
	}

	if _, err := reg.VerifyIdentity(admin, farmer); err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	rec = do(t, engine, http.MethodGet, "/api/v1/identities/0xFARMER/verified", "", "")
	if !strings.Contains(rec.Body.String(), `"verified":true`) {
		t.Errorf("verified identity should report true: %s", rec.Body.String())
	}
}
