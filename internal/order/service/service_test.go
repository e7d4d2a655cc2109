package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	customerrepo "github.com/smallbiznis/orderdesk/internal/customer/repository"
	customerservice "github.com/smallbiznis/orderdesk/internal/customer/service"
	"github.com/smallbiznis/orderdesk/internal/notification"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/repository"
	"github.com/smallbiznis/orderdesk/internal/principal"
	sequencedomain "github.com/smallbiznis/orderdesk/internal/sequence/domain"
	sequencerepo "github.com/smallbiznis/orderdesk/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/orderdesk/internal/sequence/service"
	skudomain "github.com/smallbiznis/orderdesk/internal/sku/domain"
	skurepo "github.com/smallbiznis/orderdesk/internal/sku/repository"
	skuservice "github.com/smallbiznis/orderdesk/internal/sku/service"
	"github.com/smallbiznis/orderdesk/internal/store"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var (
	alice = principal.Principal{ID: 201, Role: principal.RoleUser, DisplayName: "alice"}
	bob   = principal.Principal{ID: 202, Role: principal.RoleUser, DisplayName: "bob"}
	root  = principal.Principal{ID: 203, Role: principal.RoleAdmin, DisplayName: "root"}
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) BroadcastToAdmins(_ context.Context, event notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) BroadcastToAdmins(ctx context.Context, event notification.Event) error {
	return m.Called(ctx, event).Error(0)
}

type repositoryMock struct {
	mock.Mock
}

func (m *repositoryMock) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return m.Called(ctx, db, order).Error(0)
}

func (m *repositoryMock) ListViews(ctx context.Context, db *gorm.DB, scope store.Scope) ([]domain.OrderView, error) {
	args := m.Called(ctx, db, scope)
	views, _ := args.Get(0).([]domain.OrderView)
	return views, args.Error(1)
}

type fixture struct {
	orders    domain.Service
	customers customerdomain.Service
	skus      skudomain.Service
	clock     *clock.FakeClock
}

func newFixture(t *testing.T, notifier notification.Notifier) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, notifier, repository.Provide())
}

func newFixtureWithRepo(t *testing.T, notifier notification.Notifier, repo domain.Repository) *fixture {
	t.Helper()
	conn := db.NewTest(t,
		&sequencedomain.Counter{},
		&customerdomain.Customer{},
		&skudomain.SKU{},
		&domain.Order{},
	)
	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC))

	seq := sequenceservice.New(sequenceservice.Params{DB: conn, Log: log, Repo: sequencerepo.Provide()})
	customers := customerservice.New(customerservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: customerrepo.Provide(), Sequence: seq,
	})
	skus := skuservice.New(skuservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: skurepo.Provide(), Sequence: seq,
	})

	return &fixture{
		orders: New(Params{
			DB:        conn,
			Log:       log,
			GenID:     node,
			Clock:     clk,
			Repo:      repo,
			Sequence:  seq,
			Customers: customers,
			SKUs:      skus,
			Notifier:  notifier,
			Policy:    config.NewStaticOrderPolicyHolder(config.DefaultOrderPolicy()),
		}),
		customers: customers,
		skus:      skus,
		clock:     clk,
	}
}

func (f *fixture) seed(t *testing.T, owner principal.Principal, tax string) (customerdomain.Customer, skudomain.SKU) {
	t.Helper()
	customer, err := f.customers.Create(context.Background(), owner, customerdomain.CreateCustomerRequest{
		Name:    owner.DisplayName + " corp",
		Address: "1 Main St",
	})
	require.NoError(t, err)
	sku, err := f.skus.Create(context.Background(), owner, skudomain.CreateSKURequest{
		Name:              "Widget",
		UnitOfMeasurement: "pcs",
		TaxRate:           decimal.RequireFromString(tax),
	})
	require.NoError(t, err)
	return customer, sku
}

func admitReq(customer customerdomain.Customer, sku skudomain.SKU, quantity int, rate string) domain.AdmitOrderRequest {
	return domain.AdmitOrderRequest{
		CustomerRef: customer.ID.String(),
		SKURef:      sku.ID.String(),
		Quantity:    quantity,
		Rate:        decimal.RequireFromString(rate),
	}
}

func TestAdmitComputesTotalAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newFixture(t, notifier)
	customer, sku := f.seed(t, alice, "10")

	resp, err := f.orders.Admit(context.Background(), alice, admitReq(customer, sku, 2, "10.00"))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^OD-\d{5}$`), resp.OrderID)
	assert.Equal(t, "OD-00001", resp.OrderID)
	assert.Equal(t, "22.00", resp.TotalAmount.StringFixed(2))
	assert.Equal(t, customer.Name, resp.Customer)
	assert.Equal(t, "Widget", resp.SKU)
	assert.True(t, resp.Timestamp.Equal(f.clock.Now()))

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "New order placed", events[0].Message)
	assert.Equal(t, "OD-00001", events[0].OrderID)
	assert.Equal(t, "alice", events[0].User)
	assert.Equal(t, "22.00", events[0].TotalAmount)
}

func TestAdmitAssignsIncreasingOrderIDs(t *testing.T) {
	f := newFixture(t, &recordingNotifier{})
	customer, sku := f.seed(t, alice, "0")

	first, err := f.orders.Admit(context.Background(), alice, admitReq(customer, sku, 1, "1.00"))
	require.NoError(t, err)
	second, err := f.orders.Admit(context.Background(), alice, admitReq(customer, sku, 1, "1.00"))
	require.NoError(t, err)

	assert.Equal(t, "OD-00001", first.OrderID)
	assert.Equal(t, "OD-00002", second.OrderID)
}

func TestAdmitRejectsForeignReferences(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newFixture(t, notifier)
	bobCustomer, bobSKU := f.seed(t, bob, "10")
	aliceCustomer, aliceSKU := f.seed(t, alice, "10")

	cases := []struct {
		name  string
		actor principal.Principal
		req   domain.AdmitOrderRequest
	}{
		{"user with foreign customer", alice, admitReq(bobCustomer, aliceSKU, 1, "1.00")},
		{"user with foreign sku", alice, admitReq(aliceCustomer, bobSKU, 1, "1.00")},
		{"admin with foreign records", root, admitReq(bobCustomer, bobSKU, 1, "1.00")},
		{"malformed reference", alice, domain.AdmitOrderRequest{CustomerRef: "abc", SKURef: aliceSKU.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(1)}},
		{"unknown reference", alice, domain.AdmitOrderRequest{CustomerRef: "999", SKURef: aliceSKU.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.orders.Admit(context.Background(), tc.actor, tc.req)
			assert.ErrorIs(t, err, domain.ErrNotFoundOrForbidden)
		})
	}
	assert.Empty(t, notifier.Events())
}

func TestAdmitValidatesBounds(t *testing.T) {
	f := newFixture(t, &recordingNotifier{})
	customer, sku := f.seed(t, alice, "0")

	cases := []struct {
		name     string
		quantity int
		rate     string
		field    string
	}{
		{"zero quantity", 0, "1.00", "quantity"},
		{"quantity above max", 1001, "1.00", "quantity"},
		{"rate below min", 1, "0.001", "rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.orders.Admit(context.Background(), alice, admitReq(customer, sku, tc.quantity, tc.rate))
			require.ErrorIs(t, err, domain.ErrInvalidOrder)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestAdmitSucceedsWhenNotificationFails(t *testing.T) {
	notifier := &notifierMock{}
	notifier.On("BroadcastToAdmins", mock.Anything, mock.AnythingOfType("notification.Event")).
		Return(notification.ErrQueueFull).Once()
	f := newFixture(t, notifier)
	customer, sku := f.seed(t, alice, "0")

	resp, err := f.orders.Admit(context.Background(), alice, admitReq(customer, sku, 3, "2.50"))
	require.NoError(t, err)
	assert.Equal(t, "7.50", resp.TotalAmount.StringFixed(2))
	notifier.AssertExpectations(t)
}

func TestAdmitStorageFailureConsumesSequence(t *testing.T) {
	notifier := &recordingNotifier{}
	repo := &repositoryMock{}
	repo.On("Insert", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.Order")).
		Return(errors.New("disk I/O error")).Once()
	repo.On("Insert", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.Order")).
		Return(nil).Once()
	f := newFixtureWithRepo(t, notifier, repo)
	customer, sku := f.seed(t, alice, "0")

	_, err := f.orders.Admit(context.Background(), alice, admitReq(customer, sku, 1, "1.00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	assert.Empty(t, notifier.Events())

	resp, err := f.orders.Admit(context.Background(), alice, admitReq(customer, sku, 1, "1.00"))
	require.NoError(t, err)
	assert.Equal(t, "OD-00002", resp.OrderID)
	require.Len(t, notifier.Events(), 1)
	assert.Equal(t, "OD-00002", notifier.Events()[0].OrderID)
	repo.AssertExpectations(t)
}

func TestAdmitConcurrentCallersGetDistinctOrderIDs(t *testing.T) {
	const callers = 16
	notifier := &recordingNotifier{}
	f := newFixture(t, notifier)
	customer, sku := f.seed(t, alice, "10")

	var (
		wg   sync.WaitGroup
		ids  = make([]string, callers)
		errs = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.orders.Admit(context.Background(), alice, admitReq(customer, sku, 1, "1.00"))
			ids[i], errs[i] = resp.OrderID, err
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, callers)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Regexp(t, regexp.MustCompile(`^OD-\d{5}$`), ids[i])
		seen[ids[i]] = struct{}{}
	}
	assert.Len(t, seen, callers)
	for n := 1; n <= callers; n++ {
		assert.Contains(t, seen, fmt.Sprintf("OD-%05d", n))
	}
	assert.Len(t, notifier.Events(), callers)
}

func TestListScopesByRole(t *testing.T) {
	f := newFixture(t, &recordingNotifier{})
	aliceCustomer, aliceSKU := f.seed(t, alice, "10")
	bobCustomer, bobSKU := f.seed(t, bob, "0")

	_, err := f.orders.Admit(context.Background(), alice, admitReq(aliceCustomer, aliceSKU, 2, "10.00"))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.orders.Admit(context.Background(), bob, admitReq(bobCustomer, bobSKU, 1, "5.00"))
	require.NoError(t, err)

	mine, err := f.orders.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "OD-00001", mine[0].OrderID)
	assert.Equal(t, aliceCustomer.CustomerID, mine[0].Customer.CustomerID)
	assert.Equal(t, "Widget", mine[0].SKU.Name)
	assert.Equal(t, "pcs", mine[0].SKU.UnitOfMeasurement)
	assert.Equal(t, "22.00", mine[0].TotalAmount.StringFixed(2))

	all, err := f.orders.List(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "OD-00002", all[0].OrderID, "newest first")
	assert.Equal(t, "OD-00001", all[1].OrderID)
}
