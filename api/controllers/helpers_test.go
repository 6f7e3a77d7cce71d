package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopflow-backend/internal/identity"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test"})
}

type requestOption func(*http.Request) *http.Request

func asUser(userID uuid.UUID, role enums.UserRole) requestOption {
	return func(r *http.Request) *http.Request {
		return r.WithContext(identity.WithIdentity(r.Context(), identity.User(userID, role)))
	}
}

func asGuest(token string) requestOption {
	return func(r *http.Request) *http.Request {
		return r.WithContext(identity.WithIdentity(r.Context(), identity.Guest(token)))
	}
}

func withURLParam(key, value string) requestOption {
	return func(r *http.Request) *http.Request {
		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			rctx = chi.NewRouteContext()
		}
		rctx.URLParams.Add(key, value)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
}

func newRequest(method, target, body string, opts ...requestOption) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for _, opt := range opts {
		req = opt(req)
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body=%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v (data=%s)", err, envelope.Data)
	}
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error envelope: %v (body=%s)", err, rec.Body.String())
	}
	return body.Error.Code
}

func sampleCart(owner enums.CartOwnerKind, key string) *models.Cart {
	price := decimal.RequireFromString("12.50")
	return &models.Cart{
		ID:        uuid.New(),
		OwnerKind: owner,
		OwnerKey:  key,
		Items: []models.CartItem{{
			ProductID: uuid.New(),
			Quantity:  2,
			UnitPrice: price,
			LineTotal: price.Mul(decimal.NewFromInt(2)),
		}},
		TotalAmount: decimal.RequireFromString("25.00"),
		ItemCount:   2,
		Version:     3,
	}
}

func sampleOrder(userID uuid.UUID, status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "ORD-20261016-ABC123",
		UserID:         userID,
		Subtotal:       decimal.RequireFromString("25.00"),
		TaxAmount:      decimal.RequireFromString("2.00"),
		ShippingAmount: decimal.RequireFromString("10.00"),
		TotalAmount:    decimal.RequireFromString("37.00"),
		Status:         status,
		PaymentStatus:  enums.PaymentStatusPending,
		PaymentMethod:  enums.PaymentMethodCard,
	}
}
