package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/model"
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
}

func decode(t *testing.T, body io.Reader) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func TestErrorHandlerEnvelope(t *testing.T) {
	app := newTestApp()
	app.Get("/validation", func(c *fiber.Ctx) error { return apperror.Validation("name is required") })
	app.Get("/conflict", func(c *fiber.Ctx) error { return service.ErrProductBusy })
	app.Get("/coded", func(c *fiber.Ctx) error {
		return service.ErrPasswordChangeRequired.WithCode(apperror.CodePasswordChangeRequired, fiber.Map{"token": "t"})
	})
	app.Get("/internal", func(c *fiber.Ctx) error { return errors.New("pq: connection refused") })

	cases := []struct {
		path    string
		status  int
		env     string
		message string
	}{
		{"/validation", 400, "fail", "name is required"},
		{"/conflict", 409, "fail", service.ErrProductBusy.Message},
		{"/coded", 403, "fail", service.ErrPasswordChangeRequired.Message},
		{"/internal", 500, "error", "internal server error"},
		{"/missing", 404, "fail", "Cannot GET /missing"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			env := decode(t, resp.Body)
			assert.Equal(t, tc.env, env.Status)
			assert.Equal(t, tc.message, env.Message)
		})
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/coded", nil))
	require.NoError(t, err)
	env := decode(t, resp.Body)
	assert.Equal(t, apperror.CodePasswordChangeRequired, env.Code)
	assert.Equal(t, map[string]interface{}{"token": "t"}, env.Data)
}

type fakeProductService struct {
	service.ProductService
	created *service.CreateProductRequest
	updated *service.UpdateProductRequest
	photos  []service.Upload
	filter  service.ProductListFilter
}

func (f *fakeProductService) CreateProduct(_ context.Context, _ service.Caller, req *service.CreateProductRequest, photos []service.Upload) (*model.Product, error) {
	f.created = req
	f.photos = photos
	return &model.Product{Code: req.Code}, nil
}

func (f *fakeProductService) UpdateProduct(_ context.Context, _ service.Caller, _ uuid.UUID, req *service.UpdateProductRequest, photos []service.Upload) (*model.Product, error) {
	f.updated = req
	f.photos = photos
	return &model.Product{}, nil
}

func (f *fakeProductService) ListProducts(_ context.Context, _ service.Caller, filter service.ProductListFilter) ([]model.ProductSummary, error) {
	f.filter = filter
	return nil, nil
}

// pngHeader is enough for content sniffing
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		part, err := w.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestCreateProduct_MultipartForm(t *testing.T) {
	fake := &fakeProductService{}
	h := NewProductHandler(fake)
	app := newTestApp()
	app.Post("/products", h.CreateProduct)

	categoryID := uuid.New()
	body, contentType := multipartBody(t, map[string]string{
		"code":           "V001",
		"name":           "Vestido",
		"category_id":    categoryID.String(),
		"rental_price":   "180,50",
		"purchase_price": "900",
		"is_featured":    "true",
	}, map[string][]byte{"a.png": pngHeader})

	req := httptest.NewRequest("POST", "/products", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	require.NotNil(t, fake.created)
	assert.Equal(t, "V001", fake.created.Code)
	assert.Equal(t, categoryID, *fake.created.CategoryID)
	assert.Equal(t, "180.5", fake.created.RentalPrice.String())
	assert.True(t, fake.created.IsFeatured)
	assert.Nil(t, fake.created.StoreID)
	require.Len(t, fake.photos, 1)
	assert.Equal(t, "image/png", fake.photos[0].ContentType)
}

func TestUpdateProduct_FormOnlySetsSentFields(t *testing.T) {
	fake := &fakeProductService{}
	h := NewProductHandler(fake)
	app := newTestApp()
	app.Put("/products/:id", h.UpdateProduct)

	body, contentType := multipartBody(t, map[string]string{"status": "laundry", "is_featured": "false"}, nil)
	req := httptest.NewRequest("PUT", "/products/"+uuid.NewString(), body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	require.NotNil(t, fake.updated)
	assert.Equal(t, "laundry", *fake.updated.Status)
	assert.False(t, *fake.updated.IsFeatured)
	assert.Nil(t, fake.updated.Name)
	assert.Nil(t, fake.updated.RentalPrice)
	assert.Empty(t, fake.photos)

	bad, contentType := multipartBody(t, map[string]string{"rental_price": "abc"}, nil)
	req = httptest.NewRequest("PUT", "/products/"+uuid.NewString(), bad)
	req.Header.Set("Content-Type", contentType)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("PUT", "/products/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetProducts_QueryFilter(t *testing.T) {
	fake := &fakeProductService{}
	app := newTestApp()
	app.Get("/products", NewProductHandler(fake).GetProducts)

	storeID := uuid.New()
	resp, err := app.Test(httptest.NewRequest("GET", "/products?global_search=true&status=available&is_featured=true&search=vest&limit=20&store_id="+storeID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.True(t, fake.filter.GlobalSearch)
	assert.Equal(t, "available", fake.filter.Status)
	assert.Equal(t, "vest", fake.filter.Search)
	assert.True(t, *fake.filter.IsFeatured)
	assert.Equal(t, storeID, *fake.filter.StoreID)
	assert.Equal(t, 20, fake.filter.Page.Limit)

	env := decode(t, resp.Body)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, []interface{}{}, env.Data)

	resp, err = app.Test(httptest.NewRequest("GET", "/products?category_id=nope", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
