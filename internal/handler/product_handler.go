package handler

import (
	"strings"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// GetProducts lists products of the caller's store, or of every store with global_search=true
// GET /api/products
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	storeID, err := queryID(c, "store_id")
	if err != nil {
		return err
	}
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		return err
	}

	products, err := h.productService.ListProducts(c.UserContext(), caller(c), service.ProductListFilter{
		StoreID:      storeID,
		CategoryID:   categoryID,
		Status:       c.Query("status"),
		IsFeatured:   queryBool(c, "is_featured"),
		Search:       c.Query("search"),
		GlobalSearch: c.Query("global_search") == "true",
		Page:         page(c),
	})
	if err != nil {
		return err
	}
	return list(c, products)
}

// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.productService.GetProduct(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return ok(c, product)
}

// CreateProduct accepts JSON or a multipart form with "photos"
// POST /api/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if isMultipart(c) {
		f := productForm{c: c}
		req = service.CreateProductRequest{
			StoreID:       f.uuid("store_id"),
			CategoryID:    f.uuid("category_id"),
			Code:          c.FormValue("code"),
			Name:          c.FormValue("name"),
			Description:   c.FormValue("description"),
			Size:          c.FormValue("size"),
			Color:         c.FormValue("color"),
			Brand:         c.FormValue("brand"),
			PurchasePrice: f.decimalOrZero("purchase_price"),
			RentalPrice:   f.decimalOrZero("rental_price"),
			IsFeatured:    c.FormValue("is_featured") == "true",
		}
		if f.err != nil {
			return f.err
		}
	} else if err := bindJSON(c, &req); err != nil {
		return err
	}

	photos, closeAll, err := h.photos(c)
	if err != nil {
		return err
	}
	defer closeAll()

	product, err := h.productService.CreateProduct(c.UserContext(), caller(c), &req, photos)
	if err != nil {
		return err
	}
	return created(c, "product created successfully", product)
}

// UpdateProduct changes the sent fields and appends any new photos
// PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req service.UpdateProductRequest
	if isMultipart(c) {
		f := productForm{c: c}
		req = service.UpdateProductRequest{
			CategoryID:    f.uuid("category_id"),
			Code:          f.str("code"),
			Name:          f.str("name"),
			Description:   f.str("description"),
			Size:          f.str("size"),
			Color:         f.str("color"),
			Brand:         f.str("brand"),
			PurchasePrice: f.decimal("purchase_price"),
			RentalPrice:   f.decimal("rental_price"),
			Status:        f.str("status"),
			IsFeatured:    f.boolean("is_featured"),
		}
		if f.err != nil {
			return f.err
		}
	} else if err := bindJSON(c, &req); err != nil {
		return err
	}

	photos, closeAll, err := h.photos(c)
	if err != nil {
		return err
	}
	defer closeAll()

	product, err := h.productService.UpdateProduct(c.UserContext(), caller(c), id, &req, photos)
	if err != nil {
		return err
	}
	return ok(c, product)
}

// DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.productService.DeleteProduct(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return message(c, "product deleted successfully")
}

func (h *ProductHandler) photos(c *fiber.Ctx) ([]service.Upload, func(), error) {
	headers := formFiles(c, "photos")
	if len(headers) > maxPhotosPerRequest {
		return nil, nil, errTooManyPhotos
	}
	return openUploads(headers)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// productForm reads optional typed values from a multipart form.
// The first parse error is kept in err.
type productForm struct {
	c   *fiber.Ctx
	err error
}

func (f *productForm) value(key string) (string, bool) {
	form, err := f.c.MultipartForm()
	if err != nil {
		return "", false
	}
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (f *productForm) str(key string) *string {
	v, ok := f.value(key)
	if !ok {
		return nil
	}
	return &v
}

func (f *productForm) uuid(key string) *uuid.UUID {
	v, ok := f.value(key)
	if !ok || v == "" {
		return nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		f.fail(key)
		return nil
	}
	return &id
}

func (f *productForm) decimal(key string) *decimal.Decimal {
	v, ok := f.value(key)
	if !ok || v == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.Replace(v, ",", ".", 1))
	if err != nil {
		f.fail(key)
		return nil
	}
	return &d
}

func (f *productForm) decimalOrZero(key string) decimal.Decimal {
	if d := f.decimal(key); d != nil {
		return *d
	}
	return decimal.Zero
}

func (f *productForm) boolean(key string) *bool {
	v, ok := f.value(key)
	if !ok {
		return nil
	}
	b := v == "true"
	return &b
}

func (f *productForm) fail(key string) {
	if f.err == nil {
		f.err = apperror.Validationf("invalid %s", key)
	}
}
