package service

import (
	"context"
	"testing"

	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productFixture struct {
	m     *memDB
	files *memStorage
	svc   ProductService
	store *model.Store
	other *model.Store
}

func newProductFixture() *productFixture {
	m := newMemDB()
	files := newMemStorage()
	return &productFixture{
		m:     m,
		files: files,
		svc:   NewProductService(stubProductRepo{m}, stubCategoryRepo{m}, stubStoreRepo{m}, files, nil, nil),
		store: m.addStore("Centro"),
		other: m.addStore("Shopping"),
	}
}

func newProductRequest(code string) *CreateProductRequest {
	return &CreateProductRequest{
		Code:        code,
		Name:        "Vestido longo",
		Size:        "M",
		RentalPrice: decimal.RequireFromString("180"),
	}
}

func TestCreateProduct_WithPhotos(t *testing.T) {
	f := newProductFixture()
	caller := storeCaller(f.store.ID)

	p, err := f.svc.CreateProduct(context.Background(), caller, newProductRequest("V001"), []Upload{
		imageUpload("image/jpeg", 1024),
		imageUpload("image/png", 2048),
	})
	require.NoError(t, err)
	assert.Equal(t, f.store.ID, p.StoreID)
	assert.Equal(t, model.ProductAvailable, p.Status)
	require.Len(t, p.Images, 2)
	assert.True(t, p.Images[0].IsMain)
	assert.False(t, p.Images[1].IsMain)
	assert.Equal(t, p.Images[0].URLFull, p.Images[0].URLThumb)
	assert.Len(t, f.files.objects, 2)

	// code is unique per store only
	_, err = f.svc.CreateProduct(context.Background(), caller, newProductRequest("V001"), nil)
	assert.ErrorIs(t, err, ErrProductCodeExists)
	_, err = f.svc.CreateProduct(context.Background(), storeCaller(f.other.ID), newProductRequest("V001"), nil)
	assert.NoError(t, err)
}

func TestCreateProduct_Rejections(t *testing.T) {
	f := newProductFixture()
	caller := storeCaller(f.store.ID)

	_, err := f.svc.CreateProduct(context.Background(), caller, newProductRequest("A1"), []Upload{
		imageUpload("image/jpeg", 1024),
		imageUpload("text/plain", 10),
	})
	assert.ErrorIs(t, err, ErrInvalidUpload)
	assert.Empty(t, f.files.objects, "nothing uploaded when any photo is invalid")

	f.files.failPut = true
	_, err = f.svc.CreateProduct(context.Background(), caller, newProductRequest("A1"), []Upload{imageUpload("image/jpeg", 1024)})
	assert.Error(t, err)
	assert.Empty(t, f.m.products)
	f.files.failPut = false

	missing := uuid.New()
	req := newProductRequest("A2")
	req.CategoryID = &missing
	_, err = f.svc.CreateProduct(context.Background(), caller, req, nil)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = f.svc.CreateProduct(context.Background(), globalCaller(), newProductRequest("A3"), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	noPrice := newProductRequest("A4")
	noPrice.RentalPrice = decimal.Zero
	_, err = f.svc.CreateProduct(context.Background(), caller, noPrice, nil)
	assert.Error(t, err)
}

func TestProductStoreScope(t *testing.T) {
	f := newProductFixture()
	p := f.m.addProduct(f.store.ID, "V001", "100", model.ProductAvailable)
	f.m.addProduct(f.other.ID, "X001", "100", model.ProductAvailable)
	outsider := storeCaller(f.other.ID)

	_, err := f.svc.GetProduct(context.Background(), outsider, p.ID)
	assert.ErrorIs(t, err, ErrStoreForbidden)

	name := "hacked"
	_, err = f.svc.UpdateProduct(context.Background(), outsider, p.ID, &UpdateProductRequest{Name: &name}, nil)
	assert.ErrorIs(t, err, ErrStoreForbidden)
	assert.ErrorIs(t, f.svc.DeleteProduct(context.Background(), outsider, p.ID), ErrStoreForbidden)

	own, err := f.svc.ListProducts(context.Background(), outsider, ProductListFilter{})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	everywhere, err := f.svc.ListProducts(context.Background(), outsider, ProductListFilter{GlobalSearch: true})
	require.NoError(t, err)
	assert.Len(t, everywhere, 2)
}

func TestUpdateProduct_StatusRules(t *testing.T) {
	f := newProductFixture()
	caller := storeCaller(f.store.ID)
	p := f.m.addProduct(f.store.ID, "V001", "100", model.ProductLaundry)

	available := model.ProductAvailable
	updated, err := f.svc.UpdateProduct(context.Background(), caller, p.ID, &UpdateProductRequest{Status: &available}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ProductAvailable, updated.Status)

	rented := model.ProductRented
	_, err = f.svc.UpdateProduct(context.Background(), caller, p.ID, &UpdateProductRequest{Status: &rented}, nil)
	assert.ErrorIs(t, err, ErrProductStatusChange)

	f.m.products[p.ID].Status = model.ProductReserved
	laundry := model.ProductLaundry
	_, err = f.svc.UpdateProduct(context.Background(), caller, p.ID, &UpdateProductRequest{Status: &laundry}, nil)
	assert.ErrorIs(t, err, ErrProductStatusChange)

	// other fields stay editable whatever the status
	price := decimal.RequireFromString("120")
	updated, err = f.svc.UpdateProduct(context.Background(), caller, p.ID, &UpdateProductRequest{RentalPrice: &price}, []Upload{imageUpload("image/webp", 10)})
	require.NoError(t, err)
	assert.Equal(t, model.ProductReserved, updated.Status)
	assert.True(t, price.Equal(updated.RentalPrice))
	require.Len(t, updated.Images, 1)
	assert.True(t, updated.Images[0].IsMain)
}

func TestDeleteProduct(t *testing.T) {
	f := newProductFixture()
	caller := storeCaller(f.store.ID)

	busy := f.m.addProduct(f.store.ID, "B1", "100", model.ProductTransferring)
	assert.ErrorIs(t, f.svc.DeleteProduct(context.Background(), caller, busy.ID), ErrProductBusy)

	used := f.m.addProduct(f.store.ID, "U1", "100", model.ProductAvailable)
	f.m.items = append(f.m.items, model.RentalItem{RentalID: uuid.New(), ProductID: used.ID, Quantity: 1})
	err := f.svc.DeleteProduct(context.Background(), caller, used.ID)
	assert.ErrorIs(t, err, ErrProductInUse)

	free := f.m.addProduct(f.store.ID, "F1", "100", model.ProductLaundry)
	require.NoError(t, f.svc.DeleteProduct(context.Background(), caller, free.ID))
	assert.NotContains(t, f.m.products, free.ID)
	assert.ErrorIs(t, f.svc.DeleteProduct(context.Background(), caller, free.ID), ErrProductNotFound)
}
