package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos-service/internal/cache"
	"pos-service/internal/ledger"
	"pos-service/internal/remote"
	"pos-service/internal/retry"
	"pos-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := remote.NewSeededMemoryStore()
	health := retry.NewHealth()
	exec := retry.NewExecutor(store, health, 2, time.Millisecond)
	snap := cache.New(exec, time.Minute)
	require.NoError(t, snap.Refresh(context.Background(), cache.KindInventory))

	stock := ledger.NewStockLedger(exec, snap, nil)
	sales := ledger.NewSaleLedger(exec, snap, nil)
	catalog := ledger.NewCatalog(exec, snap, nil)
	sessions := session.NewManager(stock, sales, snap, time.Hour)

	h := NewHandler(sessions, snap, catalog, nil, health)
	router := gin.New()
	h.SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id, ok := resp["session_id"].(string)
	require.True(t, ok)
	return id
}

func TestGetCatalogReturnsFreshInventory(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["fresh"])

	inv, ok := resp["inventory"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, inv, "Bebidas")
}

func TestAddLineAndCommitFlow(t *testing.T) {
	router := setupRouter(t)
	id := createSession(t, router)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cart/lines", gin.H{
		"category": "Bebidas",
		"name":     "Café Grande",
		"quantity": 5,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 13.00, resp["total"])
	assert.Equal(t, "building", resp["state"])

	w, resp = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cart/commit", gin.H{
		"payment_method": "Efectivo",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sale, ok := resp["sale"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 13.00, sale["total"])
	assert.Equal(t, "Efectivo", sale["metodo_pago"])
}

func TestAddLineInsufficientStockReturnsMaxAddable(t *testing.T) {
	router := setupRouter(t)
	id := createSession(t, router)

	// The seeded croissant only has 2 units.
	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cart/lines", gin.H{
		"category": "Hojaldre",
		"name":     "Croissant",
		"quantity": 3,
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, float64(2), resp["max_addable"])
}

func TestCommitInvalidPaymentMethodRejected(t *testing.T) {
	router := setupRouter(t)
	id := createSession(t, router)

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cart/lines", gin.H{
		"category": "Bebidas",
		"name":     "Jugo Naranja",
		"quantity": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cart/commit", gin.H{
		"payment_method": "Trueque",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUnknownSessionReturns404(t *testing.T) {
	router := setupRouter(t)

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/sessions/nope/cart", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetRestoresStock(t *testing.T) {
	router := setupRouter(t)
	id := createSession(t, router)

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cart/lines", gin.H{
		"category": "Bebidas",
		"name":     "Papelón con Limón",
		"quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cart/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "empty", resp["state"])
	assert.Equal(t, 0.0, resp["total"])
}

func TestCloseSessionReleasesStock(t *testing.T) {
	router := setupRouter(t)
	id := createSession(t, router)

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/cart/lines", gin.H{
		"category": "Bebidas",
		"name":     "Café Grande",
		"quantity": 5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "closed", resp["status"])

	// Session gone, reservation given back.
	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+id+"/cart", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, resp = doJSON(t, router, http.MethodGet, "/api/v1/catalog", nil)
	inv := resp["inventory"].(map[string]interface{})
	cafe := inv["Bebidas"].(map[string]interface{})["Café Grande"].(map[string]interface{})
	assert.Equal(t, float64(200), cafe["stock"])
}

func TestCloseUnknownSessionReturns404(t *testing.T) {
	router := setupRouter(t)

	w, _ := doJSON(t, router, http.MethodDelete, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArchivedSalesUnavailableWithoutDatabase(t *testing.T) {
	router := setupRouter(t)

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/sales/archive", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadinessReflectsConnectivity(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "connected", resp["connectivity"])
}
