package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
	authrepo "github.com/smallbiznis/orderdesk/internal/auth/repository"
	authservice "github.com/smallbiznis/orderdesk/internal/auth/service"
	"github.com/smallbiznis/orderdesk/internal/auth/session"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	customerrepo "github.com/smallbiznis/orderdesk/internal/customer/repository"
	customerservice "github.com/smallbiznis/orderdesk/internal/customer/service"
	"github.com/smallbiznis/orderdesk/internal/migration"
	"github.com/smallbiznis/orderdesk/internal/notification"
	"github.com/smallbiznis/orderdesk/internal/observability"
	orderrepo "github.com/smallbiznis/orderdesk/internal/order/repository"
	orderservice "github.com/smallbiznis/orderdesk/internal/order/service"
	"github.com/smallbiznis/orderdesk/internal/principal"
	sequencerepo "github.com/smallbiznis/orderdesk/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/orderdesk/internal/sequence/service"
	skurepo "github.com/smallbiznis/orderdesk/internal/sku/repository"
	skuservice "github.com/smallbiznis/orderdesk/internal/sku/service"
	summarydomain "github.com/smallbiznis/orderdesk/internal/summary/domain"
	"github.com/smallbiznis/orderdesk/internal/summary/report"
	summaryrepo "github.com/smallbiznis/orderdesk/internal/summary/repository"
	summaryservice "github.com/smallbiznis/orderdesk/internal/summary/service"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var orderIDPattern = regexp.MustCompile(`^OD-\d{5}$`)

type testEnv struct {
	server    *Server
	hub       *notification.Hub
	auth      authdomain.Service
	summaries summarydomain.Service
	clock     *clock.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := db.NewTest(t, migration.Models()...)
	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC))

	hub := notification.New(notification.Options{Log: log})
	require.NoError(t, hub.Start(context.Background()))
	t.Cleanup(hub.Stop)

	seq := sequenceservice.New(sequenceservice.Params{DB: conn, Log: log, Repo: sequencerepo.Provide()})
	customers := customerservice.New(customerservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: customerrepo.Provide(), Sequence: seq,
	})
	skus := skuservice.New(skuservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: skurepo.Provide(), Sequence: seq,
	})
	orders := orderservice.New(orderservice.Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      orderrepo.Provide(),
		Sequence:  seq,
		Customers: customers,
		SKUs:      skus,
		Notifier:  hub,
		Policy:    config.NewStaticOrderPolicyHolder(config.DefaultOrderPolicy()),
	})
	users, sessions := authrepo.New(conn)
	authSvc := authservice.New(authservice.Params{
		Log: log, Repo: users, SessionRepo: sessions, GenID: node, Clock: clk,
	})
	enforcer, err := authorization.NewEnforcer(nil)
	require.NoError(t, err)
	summaries := summaryservice.New(summaryservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: summaryrepo.Provide(),
	})

	cfg := config.Config{Environment: "test"}
	srv := NewServer(ServerParams{
		Gin:         NewEngine(observability.Config{Environment: "test"}, nil),
		Cfg:         cfg,
		DB:          conn,
		Log:         log,
		Clock:       clk,
		Authsvc:     authSvc,
		Sessions:    session.NewManager(cfg),
		AuthzSvc:    authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		CustomerSvc: customers,
		SKUSvc:      skus,
		OrderSvc:    orders,
		SummarySvc:  summaries,
		Reports:     report.New(),
		Hub:         hub,
	})

	return &testEnv{server: srv, hub: hub, auth: authSvc, summaries: summaries, clock: clk}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
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
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func (e *testEnv) signup(t *testing.T, username, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return e.login(t, username, password)
}

func (e *testEnv) admin(t *testing.T) string {
	t.Helper()
	_, err := e.auth.EnsureAdmin(context.Background(), "rootadmin", "adminpass1")
	require.NoError(t, err)
	return e.login(t, "rootadmin", "adminpass1")
}

// seed creates one customer and one SKU with a 10% tax for the caller.
func (e *testEnv) seed(t *testing.T, token string) (customerResponse, skuResponse) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/customers", token, gin.H{"name": "Acme Trading", "address": "1 Main St"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var customer struct {
		Data customerResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &customer))

	w = e.do(t, http.MethodPost, "/api/skus", token, gin.H{"sku_name": "Widget", "unit_of_measurement": "pcs", "tax_rate": "10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sku struct {
		Data skuResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sku))

	return customer.Data, sku.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func receiveEvent(t *testing.T, sub *notification.Subscription) notification.Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return notification.Event{}
	}
}

func TestOrderFlowEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "alice", "password1")
	customer, sku := env.seed(t, token)
	assert.Equal(t, "CUST00001", customer.CustomerID)
	assert.Equal(t, "SKU00001", sku.SKUID)
	assert.Equal(t, "10.00", sku.TaxRate)

	adminSession, err := env.hub.Register("admin-session", principal.RoleAdmin)
	require.NoError(t, err)
	defer adminSession.Close()

	w := env.do(t, http.MethodPost, "/api/orders", token, gin.H{
		"customer_id": customer.ID,
		"sku_id":      sku.ID,
		"quantity":    2,
		"rate":        "10.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data createOrderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "22.00", created.Data.TotalAmount)
	assert.Regexp(t, orderIDPattern, created.Data.OrderID)
	assert.Equal(t, "Acme Trading", created.Data.Customer)
	assert.Equal(t, "Widget", created.Data.SKU)

	event := receiveEvent(t, adminSession)
	assert.Equal(t, notification.EventTypeNewOrder, event.Type)
	assert.Equal(t, created.Data.OrderID, event.OrderID)
	assert.Equal(t, "22.00", event.TotalAmount)
	assert.Equal(t, "alice", event.User)
	select {
	case extra := <-adminSession.Events():
		t.Fatalf("unexpected second event %s", extra.OrderID)
	case <-time.After(100 * time.Millisecond):
	}

	w = env.do(t, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data []orderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, created.Data.OrderID, listed.Data[0].OrderID)
	assert.Equal(t, "CUST00001", listed.Data[0].Customer.CustomerID)
	assert.Equal(t, "pcs", listed.Data[0].SKU.UnitOfMeasurement)
	assert.Equal(t, "10.00", listed.Data[0].Rate)
}

func TestOrderAgainstAnotherUsersCustomer(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice", "password1")
	bob := env.signup(t, "bob", "password2")
	customer, sku := env.seed(t, bob)

	w := env.do(t, http.MethodPost, "/api/orders", alice, gin.H{
		"customer_id": customer.ID,
		"sku_id":      sku.ID,
		"quantity":    1,
		"rate":        "5.00",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found or access denied", decodeError(t, w).Message)

	w = env.do(t, http.MethodGet, "/api/customers", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data []customerResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Data)
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "carol", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "password", payload.Errors[0].Field)

	token := env.signup(t, "carol", "password1")
	customer, sku := env.seed(t, token)

	cases := []struct {
		name  string
		path  string
		body  gin.H
		field string
		code  string
	}{
		{"short customer name", "/api/customers", gin.H{"name": "ab", "address": "1 Main St"}, "name", "out_of_range"},
		{"unknown unit", "/api/skus", gin.H{"sku_name": "Bolt", "unit_of_measurement": "box", "tax_rate": "5"}, "unit_of_measurement", "invalid_value"},
		{"tax above 100", "/api/skus", gin.H{"sku_name": "Bolt", "unit_of_measurement": "kg", "tax_rate": "101"}, "tax_rate", "out_of_range"},
		{"missing quantity", "/api/orders", gin.H{"customer_id": customer.ID, "sku_id": sku.ID, "rate": "1.00"}, "quantity", "required"},
		{"quantity over policy", "/api/orders", gin.H{"customer_id": customer.ID, "sku_id": sku.ID, "quantity": 1001, "rate": "1.00"}, "quantity", "out_of_range"},
		{"rate under policy", "/api/orders", gin.H{"customer_id": customer.ID, "sku_id": sku.ID, "quantity": 1, "rate": "0.001"}, "rate", "too_small"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tc.path, token, tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			payload := decodeError(t, w)
			require.NotEmpty(t, payload.Errors)
			assert.Equal(t, tc.field, payload.Errors[0].Field)
			assert.Equal(t, tc.code, payload.Errors[0].Code)
		})
	}

	w = env.do(t, http.MethodPost, "/api/customers", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request", decodeError(t, w).Errors[0].Field)
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Type)

	token := env.signup(t, "dave", "password1")

	w = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "dave", "password": "password9"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "dave", "password": "wrongpass1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Data userResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "dave", me.Data.Username)
	assert.Equal(t, "user", me.Data.Role)

	w = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionCookieAuthenticates(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "erin", "password1")

	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	w := httptest.NewRecorder()
	env.server.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHourlySummaryReports(t *testing.T) {
	env := newTestEnv(t)
	user := env.signup(t, "frank", "password1")
	admin := env.admin(t)
	customer, sku := env.seed(t, user)

	w := env.do(t, http.MethodPost, "/api/orders", user, gin.H{
		"customer_id": customer.ID, "sku_id": sku.ID, "quantity": 2, "rate": "10.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env.clock.Advance(10 * time.Minute)
	summary, err := env.summaries.RunAggregationTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalOrders)

	w = env.do(t, http.MethodGet, "/api/reports/hourly-summaries", user, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeError(t, w).Type)

	w = env.do(t, http.MethodGet, "/api/reports/hourly-summaries", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listed struct {
		Data    []hourlySummaryResponse `json:"data"`
		HasMore bool                    `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "22.00", listed.Data[0].TotalAmount)
	assert.False(t, listed.HasMore)

	w = env.do(t, http.MethodGet, "/api/reports/hourly-summaries?page_token=not-a-token!", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/reports/hourly-summaries.pdf", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "orderdesk-hourly-summaries-2026-10-16.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestNotificationStreamRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	user := env.signup(t, "gina", "password1")

	w := env.do(t, http.MethodGet, "/api/notifications/stream", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, env.hub.SessionCount())
}

func TestNotificationStreamDeliversEvents(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)
	ts := httptest.NewServer(env.server.Engine())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return env.hub.SessionCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, env.hub.BroadcastToAdmins(context.Background(), notification.Event{OrderID: "OD-00042", TotalAmount: "9.99"}))

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		buf := make([]byte, 4096)
		var acc strings.Builder
		for {
			n, err := resp.Body.Read(buf)
			acc.Write(buf[:n])
			if strings.Contains(acc.String(), "OD-00042") {
				lines <- acc.String()
				return
			}
			if err != nil {
				return
			}
		}
	}()

	select {
	case body, ok := <-lines:
		require.True(t, ok, "stream ended before the event arrived")
		assert.Contains(t, body, "event: new_order")
		assert.Contains(t, body, `"total_amount":"9.99"`)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream event")
	}
}

func TestAdminWebsocket(t *testing.T) {
	env := newTestEnv(t)
	user := env.signup(t, "hank", "password1")
	admin := env.admin(t)
	customer, sku := env.seed(t, user)

	ts := httptest.NewServer(env.server.Engine())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/admin?token="

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+user, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+admin, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, 1, env.hub.SessionCount())

	w := env.do(t, http.MethodPost, "/api/orders", user, gin.H{
		"customer_id": customer.ID, "sku_id": sku.ID, "quantity": 3, "rate": "2.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event notification.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "8.25", event.TotalAmount)
	assert.Equal(t, "hank", event.User)
	assert.Regexp(t, orderIDPattern, event.OrderID)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return env.hub.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestProbesAndFallback(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/live", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","database":"connected"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Type)
}
