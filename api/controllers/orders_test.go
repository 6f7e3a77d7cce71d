package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/angelmondragon/shopflow-backend/internal/checkout"
	"github.com/angelmondragon/shopflow-backend/internal/orders"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
)

type stubOrdersService struct {
	order   *models.Order
	list    *orders.ListResult
	err     error
	listIn  orders.ListInput
	payIn   orders.PaymentInput
	advance orders.AdvanceInput
	crypto  bool
	notes   string
	calls   int
}

func (s *stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	s.calls++
	return s.order, s.err
}

func (s *stubOrdersService) List(ctx context.Context, input orders.ListInput) (*orders.ListResult, error) {
	s.calls++
	s.listIn = input
	return s.list, s.err
}

func (s *stubOrdersService) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	s.calls++
	return s.order, s.err
}

func (s *stubOrdersService) UpdateNotes(ctx context.Context, userID, orderID uuid.UUID, notes string) (*models.Order, error) {
	s.calls++
	s.notes = notes
	return s.order, s.err
}

func (s *stubOrdersService) ProcessPayment(ctx context.Context, input orders.PaymentInput) (*models.Order, error) {
	s.calls++
	s.payIn = input
	return s.order, s.err
}

func (s *stubOrdersService) ProcessCryptoPayment(ctx context.Context, input orders.PaymentInput) (*models.Order, error) {
	s.calls++
	s.payIn, s.crypto = input, true
	return s.order, s.err
}

func (s *stubOrdersService) Refund(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	s.calls++
	return s.order, s.err
}

func (s *stubOrdersService) AdvanceStatus(ctx context.Context, input orders.AdvanceInput) (*models.Order, error) {
	s.calls++
	s.advance = input
	return s.order, s.err
}

type stubCheckout struct {
	input checkoutsvc.Input
	order *models.Order
	err   error
}

func (s *stubCheckout) Execute(ctx context.Context, input checkoutsvc.Input) (*models.Order, error) {
	s.input = input
	return s.order, s.err
}

const validCheckoutBody = `{
	"shipping_address": {
		"full_name": "Ada Lovelace",
		"line1": "1 Analytical Way",
		"city": "London",
		"state": "LN",
		"postal_code": "12345",
		"country": "GB"
	},
	"payment_method": "card"
}`

func TestCheckoutCreatesOrder(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckout{order: sampleOrder(userID, enums.OrderStatusPending)}

	rec := serve(Checkout(svc, testLogger()), newRequest(http.MethodPost, "/api/v1/checkout", validCheckoutBody, asUser(userID, enums.UserRoleCustomer)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, userID, svc.input.UserID)
	assert.Equal(t, enums.PaymentMethodCard, svc.input.PaymentMethod)

	var body orderResponse
	decodeData(t, rec, &body)
	assert.Equal(t, "ORD-20261016-ABC123", body.OrderNumber)
	assert.Equal(t, "pending", body.Status)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}

	rec := serve(Checkout(svc, testLogger()), newRequest(http.MethodPost, "/api/v1/checkout", validCheckoutBody, asUser(uuid.New(), enums.UserRoleCustomer)))

	assert.Equal(t, string(pkgerrors.CodeEmptyCart), decodeErrorCode(t, rec))
}

func TestOrderListPaginates(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{list: &orders.ListResult{
		Orders:     []models.Order{*sampleOrder(userID, enums.OrderStatusPending)},
		NextCursor: "next-page",
	}}

	rec := serve(OrderList(svc, testLogger()), newRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", "", asUser(userID, enums.UserRoleCustomer)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.listIn.Params.Limit)
	assert.Equal(t, "abc", svc.listIn.Params.Cursor)

	var page struct {
		Items      []orderResponse `json:"items"`
		NextCursor string          `json:"next_cursor"`
	}
	decodeData(t, rec, &page)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "next-page", page.NextCursor)
}

func TestOrderListRejectsOversizedLimit(t *testing.T) {
	svc := &stubOrdersService{}
	rec := serve(OrderList(svc, testLogger()), newRequest(http.MethodGet, "/api/v1/orders?limit=1000", "", asUser(uuid.New(), enums.UserRoleCustomer)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestOrderCancelInvalidTransition(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{err: pkgerrors.InvalidTransition("shipped", "cancelled")}

	rec := serve(OrderCancel(svc, testLogger()), newRequest(http.MethodPost, "/api/v1/orders/x/cancel", "",
		asUser(uuid.New(), enums.UserRoleCustomer), withURLParam("orderId", orderID.String())))

	assert.Equal(t, string(pkgerrors.CodeInvalidStateTransition), decodeErrorCode(t, rec))
}

func TestOrderPayWithoutBody(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{order: sampleOrder(userID, enums.OrderStatusProcessing)}

	rec := serve(OrderPay(svc, testLogger()), newRequest(http.MethodPost, "/api/v1/orders/x/pay", "",
		asUser(userID, enums.UserRoleCustomer), withURLParam("orderId", orderID.String())))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orderID, svc.payIn.OrderID)
	assert.Nil(t, svc.payIn.ExternalRef)
	assert.False(t, svc.crypto)
}

func TestOrderPayCryptoPassesExternalRef(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{order: sampleOrder(userID, enums.OrderStatusProcessing)}

	rec := serve(OrderPayCrypto(svc, testLogger()), newRequest(http.MethodPost, "/api/v1/orders/x/pay/crypto", `{"external_ref":"0xabc"}`,
		asUser(userID, enums.UserRoleCustomer), withURLParam("orderId", uuid.NewString())))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.crypto)
	require.NotNil(t, svc.payIn.ExternalRef)
	assert.Equal(t, "0xabc", *svc.payIn.ExternalRef)
}

func TestOrderPayDeclined(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodePaymentFailed, "card declined")}

	rec := serve(OrderPay(svc, testLogger()), newRequest(http.MethodPost, "/api/v1/orders/x/pay", "",
		asUser(uuid.New(), enums.UserRoleCustomer), withURLParam("orderId", uuid.NewString())))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, string(pkgerrors.CodePaymentFailed), decodeErrorCode(t, rec))
}

func TestOrderUpdateNotes(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{order: sampleOrder(userID, enums.OrderStatusPending)}

	rec := serve(OrderUpdateNotes(svc, testLogger()), newRequest(http.MethodPatch, "/api/v1/orders/x/notes", `{"notes":"leave at door"}`,
		asUser(userID, enums.UserRoleCustomer), withURLParam("orderId", uuid.NewString())))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "leave at door", svc.notes)
}

func TestAdminAdvanceOrder(t *testing.T) {
	adminID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{order: sampleOrder(uuid.New(), enums.OrderStatusShipped)}

	rec := serve(AdminAdvanceOrder(svc, testLogger()), newRequest(http.MethodPost, "/api/admin/v1/orders/x/status", `{"status":"shipped","tracking_number":"1Z999"}`,
		asUser(adminID, enums.UserRoleAdmin), withURLParam("orderId", orderID.String())))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminID, svc.advance.ActorID)
	assert.Equal(t, orderID, svc.advance.OrderID)
	assert.Equal(t, enums.OrderStatusShipped, svc.advance.Target)
	require.NotNil(t, svc.advance.TrackingNumber)
	assert.Equal(t, "1Z999", *svc.advance.TrackingNumber)
}

func TestAdminAdvanceOrderRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrdersService{}

	rec := serve(AdminAdvanceOrder(svc, testLogger()), newRequest(http.MethodPost, "/api/admin/v1/orders/x/status", `{"status":"cancelled"}`,
		asUser(uuid.New(), enums.UserRoleAdmin), withURLParam("orderId", uuid.NewString())))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestAdminRefundOrder(t *testing.T) {
	order := sampleOrder(uuid.New(), enums.OrderStatusCancelled)
	order.PaymentStatus = enums.PaymentStatusRefunded
	svc := &stubOrdersService{order: order}

	rec := serve(AdminRefundOrder(svc, testLogger()), newRequest(http.MethodPost, "/api/admin/v1/orders/x/refund", "",
		asUser(uuid.New(), enums.UserRoleAdmin), withURLParam("orderId", order.ID.String())))

	require.Equal(t, http.StatusOK, rec.Code)
	var body orderResponse
	decodeData(t, rec, &body)
	assert.Equal(t, "refunded", body.PaymentStatus)
}
