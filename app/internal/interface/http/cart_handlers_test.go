package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	domcart "example.com/cartstore/app/internal/domain/cart"
	"example.com/cartstore/app/internal/infra/persistence/memory"
	"example.com/cartstore/app/internal/infra/security"
	cartuc "example.com/cartstore/app/internal/usecase/cart"
)

func setupCartAPI(t *testing.T) (http.Handler, *memory.SlotRepository) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	repo := memory.NewSlotRepository()
	api := NewAPI(Dependencies{
		CartService: cartuc.NewService(repo, cartuc.WithLogger(logger)),
		Logger:      logger,
	})
	return api.Router(), repo
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func addItem(t *testing.T, h http.Handler, item map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, h, http.MethodPost, "/api/v1/cart/items", map[string]any{"item": item}, "")
}

func TestCart_AddItemSuccess(t *testing.T) {
	router, repo := setupCartAPI(t)

	rec := addItem(t, router, map[string]any{"id": 1, "price": 10, "name": "Mug"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "added", decodeBody(t, rec)["status"])

	stored, found, err := repo.Get(context.Background(), domcart.SlotKey)
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `[{"id":1,"price":10,"name":"Mug"}]`, stored)
}

func TestCart_AddDuplicateReportsAlreadyExists(t *testing.T) {
	router, repo := setupCartAPI(t)

	require.Equal(t, http.StatusCreated, addItem(t, router, map[string]any{"id": 1, "price": 10}).Code)
	before, _, _ := repo.Get(context.Background(), domcart.SlotKey)

	rec := addItem(t, router, map[string]any{"id": "1", "price": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "already_exists", decodeBody(t, rec)["status"])

	after, _, _ := repo.Get(context.Background(), domcart.SlotKey)
	require.Equal(t, before, after)
}

func TestCart_AddUsesExplicitID(t *testing.T) {
	router, _ := setupCartAPI(t)

	require.Equal(t, http.StatusCreated, addItem(t, router, map[string]any{"id": 1}).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"id":   2,
		"item": map[string]any{"id": 1},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCart_AddValidation(t *testing.T) {
	router, _ := setupCartAPI(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing item", body: map[string]any{"id": 1}},
		{name: "item is not an object", body: map[string]any{"item": []int{1}}},
		{name: "identifier is an object", body: map[string]any{"id": map[string]any{}, "item": map[string]any{"id": 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", tt.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCart_AddMalformedJSON(t *testing.T) {
	router, _ := setupCartAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte(`{"item":`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_GetCartReturnsItemsInOrder(t *testing.T) {
	router, _ := setupCartAPI(t)

	addItem(t, router, map[string]any{"id": "b", "price": 1})
	addItem(t, router, map[string]any{"id": "a", "price": 2})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	require.Equal(t, "b", resp.Items[0]["id"])
	require.Equal(t, "a", resp.Items[1]["id"])
}

func TestCart_GetEmptyCartIsNull(t *testing.T) {
	router, _ := setupCartAPI(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":null}`, rec.Body.String())
}

func TestCart_RemoveItem(t *testing.T) {
	router, _ := setupCartAPI(t)
	addItem(t, router, map[string]any{"id": 1})
	addItem(t, router, map[string]any{"id": "sku 2"})

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/cart/items/sku%202", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "removed", decodeBody(t, rec)["status"])

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/cart/items/42", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nothing_matched", decodeBody(t, rec)["status"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, "")
	require.JSONEq(t, `{"items":[{"id":1}]}`, rec.Body.String())
}

func TestCart_PathIDsAreUnescapedOnce(t *testing.T) {
	router, _ := setupCartAPI(t)
	addItem(t, router, map[string]any{"id": "50%off"})
	addItem(t, router, map[string]any{"id": "a%2Fb"})
	addItem(t, router, map[string]any{"id": "a/b"})

	tests := []struct {
		name string
		path string
	}{
		{name: "percent sign", path: "/api/v1/cart/items/50%25off"},
		{name: "literal escape sequence", path: "/api/v1/cart/items/a%252Fb"},
		{name: "escaped slash", path: "/api/v1/cart/items/a%2Fb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodDelete, tt.path, nil, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Equal(t, "removed", decodeBody(t, rec)["status"])
		})
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, "")
	require.JSONEq(t, `{"items":null}`, rec.Body.String())
}

func TestCart_UpdateQuantity(t *testing.T) {
	router, _ := setupCartAPI(t)
	addItem(t, router, map[string]any{"id": 1, "price": 10})

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/cart/items/1", map[string]any{"quantity": 3}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "updated", decodeBody(t, rec)["status"])

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/cart/items/9", map[string]any{"quantity": 3}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "not_found", decodeBody(t, rec)["status"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, "")
	require.JSONEq(t, `{"items":[{"id":1,"price":10,"quantity":3}]}`, rec.Body.String())
}

func TestCart_UpdateQuantityRequiresQuantity(t *testing.T) {
	router, _ := setupCartAPI(t)

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/cart/items/1", map[string]any{}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_GetPrice(t *testing.T) {
	router, _ := setupCartAPI(t)
	addItem(t, router, map[string]any{"id": 1, "price": 10, "quantity": 2})
	addItem(t, router, map[string]any{"id": 2, "price": "5"})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart/price", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"total":25,"is_number":true}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/cart/price?tax=2&delivery=3", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"total":30,"is_number":true}`, rec.Body.String())
}

func TestCart_GetPriceNotANumber(t *testing.T) {
	router, _ := setupCartAPI(t)
	addItem(t, router, map[string]any{"id": 1, "price": "ask"})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart/price", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"total":null,"is_number":false}`, rec.Body.String())
}

func TestCart_GetPriceBadQuery(t *testing.T) {
	router, _ := setupCartAPI(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart/price?tax=lots", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_ClearCart(t *testing.T) {
	router, repo := setupCartAPI(t)
	addItem(t, router, map[string]any{"id": 1})

	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/cart", nil, "")
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	_, found, err := repo.Get(context.Background(), domcart.SlotKey)
	require.NoError(t, err)
	require.False(t, found)
}

func TestCart_CorruptSlotIsServerError(t *testing.T) {
	router, repo := setupCartAPI(t)
	require.NoError(t, repo.Set(context.Background(), domcart.SlotKey, `{"oops":true}`))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, decodeBody(t, rec)["error"], "not a list")
}

func TestHealth(t *testing.T) {
	router, _ := setupCartAPI(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type downRepo struct {
	*memory.SlotRepository
}

func (downRepo) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestHealth_Unavailable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	api := NewAPI(Dependencies{
		CartService: cartuc.NewService(downRepo{memory.NewSlotRepository()}, cartuc.WithLogger(logger)),
		Logger:      logger,
	})

	rec := doJSON(t, api.Router(), http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func setupAuthAPI(t *testing.T) (http.Handler, *security.JWTService) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	tokenSvc := security.NewJWTService("test-secret", time.Hour)
	api := NewAPI(Dependencies{
		CartService:    cartuc.NewService(memory.NewSlotRepository(), cartuc.WithLogger(logger)),
		TokenService:   tokenSvc,
		Logger:         logger,
		AllowedOrigins: []string{"https://shop.example"},
	})
	return api.Handler(), tokenSvc
}

func TestAuth_RequiresBearerToken(t *testing.T) {
	handler, _ := setupAuthAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/cart", nil, "garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_AcceptsValidToken(t *testing.T) {
	handler, tokenSvc := setupAuthAPI(t)
	token, err := tokenSvc.GenerateToken("storefront")
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/cart/items", map[string]any{"item": map[string]any{"id": 1}}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/cart", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[{"id":1}]}`, rec.Body.String())
}

func TestAuth_HealthIsPublic(t *testing.T) {
	handler, _ := setupAuthAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	handler, _ := setupAuthAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/items", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
