package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/a-berezin/coffeeshop/internal/cart"
	"github.com/a-berezin/coffeeshop/internal/discount"
	"github.com/a-berezin/coffeeshop/internal/order"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) (uuid.UUID, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) error {
	args := m.Called(ctx, orderID, newStatus)
	return args.Error(0)
}

func (m *MockOrderRepository) CountByCustomerAndDiscount(ctx context.Context, customerID, discountID uuid.UUID) (int, error) {
	args := m.Called(ctx, customerID, discountID)
	return args.Int(0), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, customerID, menuItemID uuid.UUID, quantity int) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, menuItemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, customerID, menuItemID uuid.UUID, quantity int) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, menuItemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, customerID, menuItemID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, menuItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) ApplyDiscount(ctx context.Context, customerID uuid.UUID, codeOrID string) (*discount.ApplyResult, *cart.Cart, error) {
	args := m.Called(ctx, customerID, codeOrID)
	var result *discount.ApplyResult
	var c *cart.Cart
	if args.Get(0) != nil {
		result = args.Get(0).(*discount.ApplyResult)
	}
	if args.Get(1) != nil {
		c = args.Get(1).(*cart.Cart)
	}
	return result, c, args.Error(2)
}

func (m *MockCartService) RemoveDiscount(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

type MockDiscountService struct {
	mock.Mock
}

func (m *MockDiscountService) Apply(ctx context.Context, codeOrID string, lines []discount.Line, customerID uuid.UUID) (*discount.ApplyResult, error) {
	args := m.Called(ctx, codeOrID, lines, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discount.ApplyResult), args.Error(1)
}

func (m *MockDiscountService) Validate(ctx context.Context, d *discount.Discount, lines []discount.Line, customerID uuid.UUID, totalBeforeDiscount float64) discount.Validation {
	args := m.Called(ctx, d, lines, customerID, totalBeforeDiscount)
	return args.Get(0).(discount.Validation)
}

func (m *MockDiscountService) IncrementUsage(ctx context.Context, id uuid.UUID) {
	m.Called(ctx, id)
}

func (m *MockDiscountService) ListAvailable(ctx context.Context, customerID uuid.UUID) ([]discount.Discount, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]discount.Discount), args.Error(1)
}

func (m *MockDiscountService) CreateDiscount(ctx context.Context, d *discount.Discount) (*discount.Discount, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discount.Discount), args.Error(1)
}

func (m *MockDiscountService) GetDiscountByID(ctx context.Context, id uuid.UUID) (*discount.Discount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discount.Discount), args.Error(1)
}

func (m *MockDiscountService) ListDiscounts(ctx context.Context) ([]discount.Discount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]discount.Discount), args.Error(1)
}

func (m *MockDiscountService) UpdateDiscount(ctx context.Context, d *discount.Discount) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDiscountService) DeleteDiscount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func pricedCart(customerID uuid.UUID, menuItemIDs ...uuid.UUID) *cart.Cart {
	c := &cart.Cart{CustomerID: customerID}
	prices := []float64{4.99, 3.50}
	for i, id := range menuItemIDs {
		c.Items = append(c.Items, cart.Item{MenuItemID: id, Quantity: i + 1})
		c.Lines = append(c.Lines, discount.Line{MenuItemID: id, UnitPrice: prices[i%len(prices)], Quantity: i + 1})
	}
	return c
}

func TestOrderService_PlaceOrder_EmptyCart(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	carts := new(MockCartService)
	discounts := new(MockDiscountService)
	svc := order.NewService(mockRepo, carts, discounts)

	customerID := uuid.Must(uuid.NewV4())
	carts.On("GetCart", mock.Anything, customerID).Return(&cart.Cart{CustomerID: customerID}, nil).Once()

	o, err := svc.PlaceOrder(context.Background(), customerID)

	require.ErrorIs(t, err, order.ErrCartEmpty)
	require.Nil(t, o)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_PlaceOrder_NoDiscount(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	carts := new(MockCartService)
	discounts := new(MockDiscountService)
	svc := order.NewService(mockRepo, carts, discounts)

	customerID := uuid.Must(uuid.NewV4())
	coffeeID := uuid.Must(uuid.NewV4())
	pastryID := uuid.Must(uuid.NewV4())
	c := pricedCart(customerID, coffeeID, pastryID)

	carts.On("GetCart", mock.Anything, customerID).Return(c, nil).Once()
	carts.On("Clear", mock.Anything, customerID).Return(&cart.Cart{CustomerID: customerID}, nil).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).
		Return(uuid.Must(uuid.NewV4()), nil).Once()

	o, err := svc.PlaceOrder(context.Background(), customerID)

	require.NoError(t, err)
	require.Equal(t, order.StatusPending, o.Status)
	require.Nil(t, o.DiscountID)
	require.Len(t, o.Items, 2)
	// Price at order time is snapshotted from the priced lines.
	require.InDelta(t, 4.99, o.Items[0].PricePerUnit, 1e-9)
	require.InDelta(t, 3.50, o.Items[1].PricePerUnit, 1e-9)
	// 4.99*1 + 3.50*2 = 11.99
	require.InDelta(t, 11.99, o.TotalBeforeDiscount, 1e-9)
	require.Zero(t, o.DiscountAmount)
	require.InDelta(t, 11.99, o.TotalAfterDiscount, 1e-9)
	discounts.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything)
	carts.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_WithDiscount(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	carts := new(MockCartService)
	discounts := new(MockDiscountService)
	svc := order.NewService(mockRepo, carts, discounts)

	customerID := uuid.Must(uuid.NewV4())
	coffeeID := uuid.Must(uuid.NewV4())
	d := &discount.Discount{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      "Ten percent off",
		Type:      discount.TypePercentage,
		Value:     10,
		ValidFrom: time.Now().Add(-time.Hour),
		ValidTo:   time.Now().Add(time.Hour),
		IsActive:  true,
	}

	c := pricedCart(customerID, coffeeID)
	c.AppliedDiscountID = &d.ID

	carts.On("GetCart", mock.Anything, customerID).Return(c, nil).Once()
	carts.On("Clear", mock.Anything, customerID).Return(&cart.Cart{CustomerID: customerID}, nil).Once()
	discounts.On("GetDiscountByID", mock.Anything, d.ID).Return(d, nil).Once()
	discounts.On("Validate", mock.Anything, d, c.Lines, customerID, mock.Anything).
		Return(discount.Validation{Valid: true, Reason: "discount is valid"}).Once()
	discounts.On("IncrementUsage", mock.Anything, d.ID).Return().Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).
		Return(uuid.Must(uuid.NewV4()), nil).Once()

	o, err := svc.PlaceOrder(context.Background(), customerID)

	require.NoError(t, err)
	require.NotNil(t, o.DiscountID)
	require.Equal(t, d.ID, *o.DiscountID)
	// 4.99 * 10% = 0.499 -> 0.50
	require.InDelta(t, 4.99, o.TotalBeforeDiscount, 1e-9)
	require.InDelta(t, 0.50, o.DiscountAmount, 1e-9)
	require.InDelta(t, 4.49, o.TotalAfterDiscount, 1e-9)
	discounts.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_StaleDiscountStrippedAndRejected(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	carts := new(MockCartService)
	discounts := new(MockDiscountService)
	svc := order.NewService(mockRepo, carts, discounts)

	customerID := uuid.Must(uuid.NewV4())
	coffeeID := uuid.Must(uuid.NewV4())
	d := &discount.Discount{ID: uuid.Must(uuid.NewV4()), Name: "Expired", Type: discount.TypePercentage, Value: 10}

	c := pricedCart(customerID, coffeeID)
	c.AppliedDiscountID = &d.ID

	carts.On("GetCart", mock.Anything, customerID).Return(c, nil).Once()
	carts.On("RemoveDiscount", mock.Anything, customerID).Return(&cart.Cart{CustomerID: customerID}, nil).Once()
	discounts.On("GetDiscountByID", mock.Anything, d.ID).Return(d, nil).Once()
	discounts.On("Validate", mock.Anything, d, c.Lines, customerID, mock.Anything).
		Return(discount.Validation{Valid: false, Reason: "discount has expired"}).Once()

	o, err := svc.PlaceOrder(context.Background(), customerID)

	require.Nil(t, o)
	var discountErr *order.DiscountInvalidError
	require.ErrorAs(t, err, &discountErr)
	require.Equal(t, "discount has expired", discountErr.Reason)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	discounts.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything)
	carts.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_DeletedDiscountStrippedAndRejected(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	carts := new(MockCartService)
	discounts := new(MockDiscountService)
	svc := order.NewService(mockRepo, carts, discounts)

	customerID := uuid.Must(uuid.NewV4())
	coffeeID := uuid.Must(uuid.NewV4())
	discountID := uuid.Must(uuid.NewV4())

	c := pricedCart(customerID, coffeeID)
	c.AppliedDiscountID = &discountID

	carts.On("GetCart", mock.Anything, customerID).Return(c, nil).Once()
	carts.On("RemoveDiscount", mock.Anything, customerID).Return(&cart.Cart{CustomerID: customerID}, nil).Once()
	discounts.On("GetDiscountByID", mock.Anything, discountID).Return(nil, discount.ErrNotFound).Once()

	o, err := svc.PlaceOrder(context.Background(), customerID)

	require.Nil(t, o)
	var discountErr *order.DiscountInvalidError
	require.ErrorAs(t, err, &discountErr)
	require.Equal(t, "discount no longer exists", discountErr.Reason)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_PlaceOrder_CartClearFailureStillReturnsOrder(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	carts := new(MockCartService)
	discounts := new(MockDiscountService)
	svc := order.NewService(mockRepo, carts, discounts)

	customerID := uuid.Must(uuid.NewV4())
	coffeeID := uuid.Must(uuid.NewV4())
	c := pricedCart(customerID, coffeeID)

	carts.On("GetCart", mock.Anything, customerID).Return(c, nil).Once()
	carts.On("Clear", mock.Anything, customerID).Return(nil, errors.New("connection refused")).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).
		Return(uuid.Must(uuid.NewV4()), nil).Once()

	o, err := svc.PlaceOrder(context.Background(), customerID)

	require.NoError(t, err)
	require.NotNil(t, o)
	carts.AssertExpectations(t)
}

func TestOrderService_UpdateOrderStatus_InvalidStatus(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	carts := new(MockCartService)
	discounts := new(MockDiscountService)
	svc := order.NewService(mockRepo, carts, discounts)

	err := svc.UpdateOrderStatus(context.Background(), uuid.Must(uuid.NewV4()), "shipped")

	require.ErrorIs(t, err, order.ErrInvalidStatus)
	mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_UpdateOrderStatus_AnyMemberStatusAllowed(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	carts := new(MockCartService)
	discounts := new(MockDiscountService)
	svc := order.NewService(mockRepo, carts, discounts)

	orderID := uuid.Must(uuid.NewV4())

	// completed back to pending is allowed: status is a plain enum, not a
	// state machine.
	mockRepo.On("UpdateStatus", mock.Anything, orderID, order.StatusPending).Return(nil).Once()

	err := svc.UpdateOrderStatus(context.Background(), orderID, order.StatusPending)

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
