package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront/internal/format"
	"github.com/flicky/storefront/internal/logger"
	"github.com/flicky/storefront/internal/middleware"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
	"github.com/flicky/storefront/internal/service"
	"github.com/flicky/storefront/internal/store"
)

type productStub map[uuid.UUID]*model.Product

func (p productStub) Create(context.Context, *model.Product) error { return nil }
func (p productStub) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if v, ok := p[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}
func (p productStub) List(context.Context, repository.ProductFilter) ([]model.Product, error) {
	var out []model.Product
	for _, v := range p {
		out = append(out, *v)
	}
	return out, nil
}
func (p productStub) Update(context.Context, *model.Product) error      { return pgx.ErrNoRows }
func (p productStub) UpdateStock(context.Context, uuid.UUID, int) error { return pgx.ErrNoRows }
func (p productStub) Delete(context.Context, uuid.UUID) error           { return pgx.ErrNoRows }

type tokenAuth map[string]*model.Session

func (a tokenAuth) Authenticate(_ context.Context, token string) (*model.Session, error) {
	if s, ok := a[token]; ok {
		return s, nil
	}
	return nil, model.ErrSessionExpired
}

type stubOrders struct{ err error }

func (s stubOrders) PlaceOrder(_ context.Context, sess *model.Session) (*model.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Order{ID: uuid.New(), CustomerEmail: sess.Email, Status: model.OrderStatusPending,
		TotalPrice: decimal.NewFromInt(3500)}, nil
}
func (s stubOrders) ListMine(context.Context, *model.Session) ([]model.Order, error) { return nil, s.err }
func (s stubOrders) CancelMine(context.Context, *model.Session, uuid.UUID) (*model.Order, error) {
	return nil, s.err
}

type stubAdmin struct {
	adminService
	err    error
	status model.OrderStatus
}

func (s *stubAdmin) ListOrders(context.Context, *model.Session) ([]model.Order, error) {
	return []model.Order{}, s.err
}
func (s *stubAdmin) SetStatus(_ context.Context, _ *model.Session, id uuid.UUID, st model.OrderStatus) (*model.Order, error) {
	s.status = st
	return &model.Order{ID: id, Status: st}, s.err
}
func (s *stubAdmin) DeleteOrder(context.Context, *model.Session, uuid.UUID) error { return s.err }

type testEnv struct {
	router   *gin.Engine
	sessions *service.SessionService
	carts    *service.CartService
	user     *model.Session
	hoodie   *model.Product
	admin    *stubAdmin
}

func newTestEnv(t *testing.T, orders orderService) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := store.NewMemory()
	env := &testEnv{
		user: &model.Session{UserID: uuid.New(), Email: "u@example.com", Role: model.RoleUser},
		hoodie: &model.Product{ID: uuid.New(), Name: "Hoodie", Price: decimal.NewFromInt(1500),
			Stock: 5, Sizes: []string{"M", "L"}, Category: "Tops"},
		admin: &stubAdmin{},
	}
	products := productStub{env.hoodie.ID: env.hoodie}
	env.sessions = service.NewSessionService(repository.NewSessionRepository(kv), time.Hour)
	env.carts = service.NewCartService(repository.NewCartRepository(kv), products)
	require.NoError(t, env.sessions.Save(context.Background(), env.user))

	adminSess := &model.Session{UserID: uuid.New(), Email: "a@example.com", Role: model.RoleAdmin}
	auth := tokenAuth{"user": env.user, "admin": adminSess}
	money := format.NewMoney("en", "₱")

	env.router = gin.New()
	Register(env.router, Handlers{
		Auth:    NewAuthHandler(nil),
		Product: NewProductHandler(service.NewCatalogService(products, nil), money),
		Cart:    NewCartHandler(env.carts, env.sessions, money, logger.Discard()),
		Order:   NewOrderHandler(orders, money),
		Admin:   NewAdminHandler(env.admin, money),
	}, middleware.Authenticate(auth))
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrEmptyCart, http.StatusBadRequest},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{model.ErrForbidden, http.StatusForbidden},
		{model.ErrOrderNotFound, http.StatusNotFound},
		{model.StorageFailure("x", errors.New("down")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestCartRoutes(t *testing.T) {
	env := newTestEnv(t, stubOrders{})
	id := env.hoodie.ID.String()

	w := env.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/cart/lines", "user", gin.H{"product_id": id})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "size required")

	w = env.do(t, http.MethodPost, "/api/v1/cart/lines", "user", gin.H{"product_id": id, "size": "M"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["added"])
	assert.Equal(t, "₱1,500.00", body["total_display"])

	w = env.do(t, http.MethodPatch, "/api/v1/cart/lines/0/quantity", "user", gin.H{"delta": 9})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "₱7,500.00", decode(t, w)["total_display"])

	w = env.do(t, http.MethodPatch, "/api/v1/cart/lines/4/size", "user", gin.H{"size": "L"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/api/v1/cart/lines/x/size", "user", gin.H{"size": "L"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/cart/lines/0", "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["lines"])

	w = env.do(t, http.MethodPost, "/api/v1/cart/lines", "user", gin.H{"product_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartEvents(t *testing.T) {
	env := newTestEnv(t, stubOrders{})
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/cart/events?access_token=user", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := make(chan string, 8)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if name, ok := strings.CutPrefix(sc.Text(), "event:"); ok {
				events <- name
			}
		}
	}()

	next := func() string {
		select {
		case e := <-events:
			return e
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
			return ""
		}
	}

	assert.Equal(t, "cart", next())

	_, _, err = env.carts.AddLine(ctx, env.user.UserID, env.hoodie.ID, "M")
	require.NoError(t, err)
	assert.Equal(t, "cart", next())

	require.NoError(t, env.sessions.Clear(ctx, env.user.UserID))
	assert.Equal(t, "signed_out", next())

	_, open := <-events
	assert.False(t, open)
}

func TestOrderRoutes(t *testing.T) {
	env := newTestEnv(t, stubOrders{})
	w := env.do(t, http.MethodPost, "/api/v1/orders", "user", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "₱3,500.00", decode(t, w)["total_display"])

	env = newTestEnv(t, stubOrders{err: model.ErrEmptyCart})
	w = env.do(t, http.MethodPost, "/api/v1/orders", "user", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env = newTestEnv(t, stubOrders{err: model.StorageFailure("place order", errors.New("db down"))})
	w = env.do(t, http.MethodPost, "/api/v1/orders", "user", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decode(t, w)["error"], "db down")

	w = env.do(t, http.MethodPost, "/api/v1/orders/not-a-uuid/cancel", "user", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t, stubOrders{})
	orderID := uuid.NewString()

	w := env.do(t, http.MethodGet, "/api/v1/admin/orders", "user", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/admin/orders", "admin", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, "/api/v1/admin/orders/"+orderID+"/status", "admin", gin.H{"status": "Lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/api/v1/admin/orders/"+orderID+"/status", "admin", gin.H{"status": "Shipped"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.OrderStatusShipped, env.admin.status)

	env.admin.err = model.ErrOrderNotCancelled
	w = env.do(t, http.MethodDelete, "/api/v1/admin/orders/"+orderID, "admin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductRoutes(t *testing.T) {
	env := newTestEnv(t, stubOrders{})

	w := env.do(t, http.MethodGet, "/api/v1/products?q=hood", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total"])
	assert.Equal(t, []any{"Tops"}, body["categories"])

	w = env.do(t, http.MethodGet, "/api/v1/products/"+env.hoodie.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "₱1,500.00", decode(t, w)["price_display"])

	w = env.do(t, http.MethodGet, "/api/v1/products/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &HealthHandler{deps: []dependency{
		{name: "postgres", ping: func(context.Context) error { return nil }},
		{name: "redis", ping: func(context.Context) error { return errors.New("refused") }},
	}}
	r := gin.New()
	r.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "connected", body["postgres"])
	assert.Equal(t, "unavailable", body["redis"])
}
