package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeProductUnavailable, status: http.StatusConflict, publicMsg: "product unavailable", detailsOK: true},
		{code: CodeEmptyCart, status: http.StatusUnprocessableEntity, publicMsg: "cart is empty"},
		{code: CodeInvalidStateTransition, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodePaymentFailed, status: http.StatusPaymentRequired, publicMsg: "payment failed", detailsOK: true},
		{code: CodeStorage, status: http.StatusServiceUnavailable, publicMsg: "storage unavailable", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeStorage, cause, "insert order")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeStorage {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestIsFindsCodeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("checkout: %w", New(CodeEmptyCart, "cart is empty"))
	if !Is(err, CodeEmptyCart) {
		t.Fatalf("expected EMPTY_CART in chain")
	}
	if Is(err, CodeNotFound) {
		t.Fatalf("did not expect NOT_FOUND")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("plain errors should map to internal")
	}
}

func TestInsufficientStockDetails(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	err := InsufficientStock(productID, &variantID, 2, 5)

	details, ok := err.Details().(StockDetails)
	if !ok {
		t.Fatalf("expected StockDetails, got %T", err.Details())
	}
	if details.ProductID != productID.String() || details.Available != 2 || details.Requested != 5 {
		t.Fatalf("unexpected details %+v", details)
	}
	if details.VariantID == nil || *details.VariantID != variantID.String() {
		t.Fatalf("expected variant id in details")
	}
}

func TestNotFoundKinds(t *testing.T) {
	productID := uuid.New()
	err := ItemNotFound(productID)
	details := err.Details().(NotFoundDetails)
	if err.Code() != CodeNotFound || details.Kind != KindCartItem {
		t.Fatalf("unexpected item not found %+v", details)
	}

	err = VariantNotFound(productID, uuid.New())
	if err.Details().(NotFoundDetails).Kind != KindVariant {
		t.Fatalf("expected variant kind")
	}
}

func TestFromStorage(t *testing.T) {
	if FromStorage(nil, KindOrder, "load") != nil {
		t.Fatalf("nil should stay nil")
	}

	missing := FromStorage(gorm.ErrRecordNotFound, KindOrder, "load order")
	if !Is(missing, CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", missing)
	}

	typed := New(CodeConflict, "version")
	if FromStorage(typed, KindCart, "save") != error(typed) {
		t.Fatalf("typed errors should pass through")
	}

	fault := FromStorage(stdErrors.New("connection reset"), KindCart, "save cart")
	if !Is(fault, CodeStorage) {
		t.Fatalf("expected STORAGE_FAULT, got %v", fault)
	}
}

func TestDumpReportsCode(t *testing.T) {
	d := Dump(Wrap(CodeStorage, stdErrors.New("timeout"), "query"))
	if d.Code != CodeStorage || !d.Retryable {
		t.Fatalf("unexpected dump %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	cause := &pq.Error{Code: "23505", Constraint: "ux_orders_order_number", Table: "orders"}
	d := Dump(Wrap(CodeStorage, fmt.Errorf("insert order: %w", cause), "create order"))
	if d.PG == nil {
		t.Fatal("expected postgres fields")
	}
	if d.PG.Code != "23505" || d.PG.Constraint != "ux_orders_order_number" || d.PG.Table != "orders" {
		t.Fatalf("unexpected pg fields %+v", d.PG)
	}
}

func TestDumpWithoutPostgresError(t *testing.T) {
	d := Dump(stdErrors.New("plain"))
	if d.PG != nil {
		t.Fatalf("expected no pg fields, got %+v", d.PG)
	}
	if d.Code != CodeInternal {
		t.Fatalf("expected INTERNAL for untyped errors, got %s", d.Code)
	}
}
