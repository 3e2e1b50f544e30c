package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	coffeeHttp "github.com/a-berezin/coffeeshop/internal/handler/http"
	"github.com/a-berezin/coffeeshop/internal/order"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, customerID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) error {
	args := m.Called(ctx, orderID, newStatus)
	return args.Error(0)
}

func newOrderRouter(service order.Service) *chi.Mux {
	router := chi.NewRouter()
	coffeeHttp.NewOrderHandler(service).RegisterRoutes(router)
	return router
}

func jsonBody(t *testing.T, payload interface{}) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestOrderHandler_handlePlaceOrder_Success(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	customerID := uuid.Must(uuid.NewV4())
	placed := &order.Order{
		ID:                  uuid.Must(uuid.NewV4()),
		CustomerID:          customerID,
		Status:              order.StatusPending,
		TotalBeforeDiscount: 13.48,
		DiscountAmount:      1.35,
		TotalAfterDiscount:  12.13,
	}

	mockService.On("PlaceOrder", mock.Anything, customerID).Return(placed, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set("X-Customer-ID", customerID.String())
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var got order.Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, placed.ID, got.ID)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.InDelta(t, 12.13, got.TotalAfterDiscount, 1e-9)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handlePlaceOrder_MissingCustomerHeader(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	mockService.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestOrderHandler_handlePlaceOrder_EmptyCart(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	customerID := uuid.Must(uuid.NewV4())
	mockService.On("PlaceOrder", mock.Anything, customerID).Return(nil, order.ErrCartEmpty).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set("X-Customer-ID", customerID.String())
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Cart is empty", body["error"])
}

func TestOrderHandler_handlePlaceOrder_StaleDiscount(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	customerID := uuid.Must(uuid.NewV4())
	mockService.On("PlaceOrder", mock.Anything, customerID).
		Return(nil, &order.DiscountInvalidError{Reason: "discount has expired"}).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set("X-Customer-ID", customerID.String())
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "discount is no longer valid: discount has expired", body["error"])
}

func TestOrderHandler_handleGetOrder_OtherCustomersOrderHidden(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	orderID := uuid.Must(uuid.NewV4())
	owner := uuid.Must(uuid.NewV4())
	requester := uuid.Must(uuid.NewV4())

	mockService.On("GetOrderByID", mock.Anything, orderID).
		Return(&order.Order{ID: orderID, CustomerID: owner}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
	req.Header.Set("X-Customer-ID", requester.String())
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOrderHandler_handleUpdateStatus_InvalidStatus(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	orderID := uuid.Must(uuid.NewV4())
	mockService.On("UpdateOrderStatus", mock.Anything, orderID, order.Status("shipped")).
		Return(order.ErrInvalidStatus).Once()

	req := httptest.NewRequest(http.MethodPut, "/admin/orders/"+orderID.String()+"/status",
		jsonBody(t, map[string]string{"status": "shipped"}))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertExpectations(t)
}
