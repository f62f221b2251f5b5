//go:build integration

package router

// Runs the full HTTP stack against real Postgres and Redis containers.
// go test -tags integration ./internal/router/...

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-rental-store/internal/middleware"
	"go-rental-store/internal/repository"
	"go-rental-store/internal/service"
	"go-rental-store/internal/ws"
	"go-rental-store/pkg/database"
	"go-rental-store/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@e2e.test"
	adminPassword = "first-pass"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	// Start Postgres container
	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("rental_test"),
		tcPostgres.WithUsername("rental"),
		tcPostgres.WithPassword("rental"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start Redis container
	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := database.ConnectDB(database.Options{DSN: pgURL})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	rdb, err := database.ConnectRedis(ctx, rdURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	_, err = service.EnsureAdmin(repository.NewUserRepo(db), repository.NewStoreRepo(db), adminEmail, adminPassword, false)
	require.NoError(t, err)

	done := make(chan struct{})
	hub := ws.NewHub()
	go hub.Run(done)
	t.Cleanup(func() { close(done) })

	handlers, auth := NewHandlers(Deps{
		DB:     db,
		Redis:  rdb,
		Hub:    hub,
		Tokens: jwt.NewManager("integration-secret-0123456789-abcdef", time.Hour, 15*time.Minute),
	})
	app := New("rental-store-test")
	Setup(app, handlers, Options{
		Auth:            auth,
		Limiter:         middleware.NewRedisLimiter(rdb),
		LoginRateLimit:  20,
		LoginRateWindow: time.Minute,
		APIRateLimit:    1000,
		APIRateWindow:   time.Minute,
	})
	return &testEnv{app: app, db: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func dataOf[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type idOnly struct {
	ID string `json:"id"`
}

// adminToken walks the first-login flow and returns an access token
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	status, env := e.do(t, "POST", "/api/auth/login", map[string]string{"email": adminEmail, "password": adminPassword}, "")
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "PASSWORD_CHANGE_REQUIRED", env.Code)
	changeToken := dataOf[map[string]string](t, env)["token"]
	require.NotEmpty(t, changeToken)

	// the change token is useless elsewhere
	status, _ = e.do(t, "GET", "/api/users/me", nil, changeToken)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, "POST", "/api/auth/change-password", map[string]string{"new_password": "new-pass-123"}, changeToken)
	require.Equal(t, http.StatusOK, status)

	status, env = e.do(t, "POST", "/api/auth/login", map[string]string{"email": adminEmail, "password": "new-pass-123"}, "")
	require.Equal(t, http.StatusOK, status)
	return dataOf[service.LoginResponse](t, env).Token
}

func TestRentalLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	token := env.adminToken(t)

	status, res := env.do(t, "GET", "/health", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", res.Status)

	// stores
	status, res = env.do(t, "GET", "/api/stores", nil, token)
	require.Equal(t, http.StatusOK, status)
	stores := dataOf[[]idOnly](t, res)
	require.Len(t, stores, 1)
	storeA := stores[0].ID

	status, res = env.do(t, "POST", "/api/stores", map[string]string{"name": "Shopping"}, token)
	require.Equal(t, http.StatusCreated, status)
	storeB := dataOf[idOnly](t, res).ID

	// customer
	status, res = env.do(t, "POST", "/api/customers", map[string]any{
		"name":     "Maria",
		"cpf":      "123.456.789-00",
		"contacts": []map[string]any{{"type": "whatsapp", "value": "11999990000", "is_primary": true}},
	}, token)
	require.Equal(t, http.StatusCreated, status, res.Message)
	customerID := dataOf[idOnly](t, res).ID

	status, _ = env.do(t, "POST", "/api/customers", map[string]any{
		"name":     "Other",
		"cpf":      "123.456.789-00",
		"contacts": []map[string]any{{"type": "phone", "value": "1133330000"}},
	}, token)
	assert.Equal(t, http.StatusConflict, status)

	// product
	status, res = env.do(t, "POST", "/api/products", map[string]any{
		"store_id": storeA, "code": "V001", "name": "Vestido", "rental_price": "150",
	}, token)
	require.Equal(t, http.StatusCreated, status, res.Message)
	productID := dataOf[idOnly](t, res).ID

	// rental with two installments
	status, res = env.do(t, "POST", "/api/rentals", map[string]any{
		"store_id":           storeA,
		"customer_id":        customerID,
		"products":           []map[string]any{{"id": productID}},
		"start_date":         "2026-03-01",
		"end_date_scheduled": "2026-03-05",
		"installments_config": map[string]any{
			"count": 2, "first_due_date": "2026-03-01",
		},
	}, token)
	require.Equal(t, http.StatusCreated, status, res.Message)
	rental := dataOf[struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		Installments []struct {
			ID    string `json:"id"`
			Value string `json:"value"`
		} `json:"installments"`
	}](t, res)
	assert.Equal(t, "reserved", rental.Status)
	require.Len(t, rental.Installments, 2)

	// the product is no longer available
	status, _ = env.do(t, "POST", "/api/rentals", map[string]any{
		"store_id": storeA, "customer_id": customerID,
		"products":   []map[string]any{{"id": productID}},
		"start_date": "2026-03-10", "end_date_scheduled": "2026-03-12",
	}, token)
	assert.Equal(t, http.StatusConflict, status)

	// pay the first installment
	status, res = env.do(t, "POST", "/api/payments", map[string]any{
		"rental_id": rental.ID, "installment_id": rental.Installments[0].ID,
		"amount": "75", "payment_method": "pix",
	}, token)
	require.Equal(t, http.StatusCreated, status, res.Message)

	status, res = env.do(t, "GET", "/api/payments/rental/"+rental.ID, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, dataOf[[]idOnly](t, res), 1)

	// pick up and return
	status, _ = env.do(t, "POST", "/api/rentals/"+rental.ID+"/pickup", nil, token)
	require.Equal(t, http.StatusOK, status)
	status, res = env.do(t, "POST", "/api/rentals/"+rental.ID+"/return", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "returned", dataOf[struct {
		Status string `json:"status"`
	}](t, res).Status)

	status, res = env.do(t, "GET", "/api/products/"+productID, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "laundry", dataOf[struct {
		Status string `json:"status"`
	}](t, res).Status)

	// laundry -> available, then transfer to the other store
	status, _ = env.do(t, "PUT", "/api/products/"+productID, map[string]any{"status": "available"}, token)
	require.Equal(t, http.StatusOK, status)

	status, res = env.do(t, "POST", "/api/transfers/request", map[string]any{"product_id": productID, "to_store_id": storeB}, token)
	require.Equal(t, http.StatusCreated, status, res.Message)
	transferID := dataOf[idOnly](t, res).ID

	status, _ = env.do(t, "POST", "/api/transfers/receive", map[string]any{"transfer_id": transferID}, token)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, "POST", "/api/transfers/receive", map[string]any{"transfer_id": transferID}, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, res = env.do(t, "GET", "/api/products/"+productID, nil, token)
	require.Equal(t, http.StatusOK, status)
	moved := dataOf[struct {
		StoreID string `json:"store_id"`
		Status  string `json:"status"`
	}](t, res)
	assert.Equal(t, storeB, moved.StoreID)
	assert.Equal(t, "available", moved.Status)

	// customers with rentals cannot be hard deleted
	status, _ = env.do(t, "DELETE", "/api/customers/"+customerID+"/hard", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStoreIsolation(t *testing.T) {
	env := setupTestEnv(t)
	token := env.adminToken(t)

	_, res := env.do(t, "GET", "/api/stores", nil, token)
	storeA := dataOf[[]idOnly](t, res)[0].ID
	_, res = env.do(t, "POST", "/api/stores", map[string]string{"name": "Shopping"}, token)
	storeB := dataOf[idOnly](t, res).ID

	status, res := env.do(t, "POST", "/api/products", map[string]any{
		"store_id": storeA, "code": "A1", "name": "Terno", "rental_price": "200",
	}, token)
	require.Equal(t, http.StatusCreated, status, res.Message)
	productA := dataOf[idOnly](t, res).ID

	noChange := false
	status, res = env.do(t, "POST", "/api/users", map[string]any{
		"name": "Atendente B", "email": "b@e2e.test", "password": "secret1",
		"store_id": storeB, "must_change_password": noChange,
	}, token)
	require.Equal(t, http.StatusCreated, status, res.Message)

	status, res = env.do(t, "POST", "/api/auth/login", map[string]string{"email": "b@e2e.test", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, status)
	attendant := dataOf[service.LoginResponse](t, res).Token

	status, _ = env.do(t, "GET", "/api/products/"+productA, nil, attendant)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, "DELETE", "/api/products/"+productA, nil, attendant)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, "GET", "/api/users", nil, attendant)
	assert.Equal(t, http.StatusForbidden, status)

	status, res = env.do(t, "GET", "/api/products?global_search=true", nil, attendant)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, dataOf[[]idOnly](t, res), 1)

	status, res = env.do(t, "GET", "/api/products", nil, attendant)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, dataOf[[]idOnly](t, res))
}


func (e *testEnv) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Table(table).Count(&n).Error)
	return n
}

func TestCreateRentalRollsBackOnLateFailure(t *testing.T) {
	env := setupTestEnv(t)
	token := env.adminToken(t)

	_, res := env.do(t, "GET", "/api/stores", nil, token)
	storeA := dataOf[[]idOnly](t, res)[0].ID

	status, res := env.do(t, "POST", "/api/customers", map[string]any{
		"name":     "Joana",
		"contacts": []map[string]any{{"type": "phone", "value": "1133330000"}},
	}, token)
	require.Equal(t, http.StatusCreated, status, res.Message)
	customerID := dataOf[idOnly](t, res).ID

	var products []string
	for _, code := range []string{"R1", "R2"} {
		status, res = env.do(t, "POST", "/api/products", map[string]any{
			"store_id": storeA, "code": code, "name": "Vestido " + code, "rental_price": "100",
		}, token)
		require.Equal(t, http.StatusCreated, status, res.Message)
		products = append(products, dataOf[idOnly](t, res).ID)
	}

	// the installment insert runs after the rental, its items and the product status updates
	require.NoError(t, env.db.Exec(`CREATE FUNCTION reject_installment() RETURNS trigger AS $$
BEGIN RAISE EXCEPTION 'installments disabled'; END $$ LANGUAGE plpgsql`).Error)
	require.NoError(t, env.db.Exec(`CREATE TRIGGER reject_installment BEFORE INSERT ON installments
FOR EACH ROW EXECUTE FUNCTION reject_installment()`).Error)

	body := map[string]any{
		"store_id":           storeA,
		"customer_id":        customerID,
		"products":           []map[string]any{{"id": products[0]}, {"id": products[1]}},
		"start_date":         "2026-04-01",
		"end_date_scheduled": "2026-04-03",
		"installments_config": map[string]any{"count": 2},
	}
	status, _ = env.do(t, "POST", "/api/rentals", body, token)
	require.Equal(t, http.StatusInternalServerError, status)

	assert.Zero(t, env.count(t, "rentals"))
	assert.Zero(t, env.count(t, "rental_items"))
	assert.Zero(t, env.count(t, "installments"))
	for _, id := range products {
		status, res = env.do(t, "GET", "/api/products/"+id, nil, token)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "available", dataOf[struct {
			Status string `json:"status"`
		}](t, res).Status)
	}

	require.NoError(t, env.db.Exec(`DROP TRIGGER reject_installment ON installments`).Error)
	status, res = env.do(t, "POST", "/api/rentals", body, token)
	require.Equal(t, http.StatusCreated, status, res.Message)
	assert.Equal(t, int64(2), env.count(t, "installments"))
}
