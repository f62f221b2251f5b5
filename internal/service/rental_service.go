package service

import (
	"bytes"
	"context"
	"slices"
	"time"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"
	"go-rental-store/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrRentalNotFound    = apperror.NotFound("rental not found")
	ErrCustomerNotFound  = apperror.NotFound("customer not found")
	ErrStoreNotFound     = apperror.NotFound("store not found")
	ErrStoreRequired     = apperror.Validation("store_id is required")
	ErrDuplicateProduct  = apperror.Validation("a product can appear only once per rental")
	ErrDiscountTooLarge  = apperror.Validation("discount cannot exceed the rental subtotal")
	ErrEndBeforeStart    = apperror.Validation("end_date_scheduled must not be before start_date")
	ErrRentalClosed      = apperror.Validation("rental is already returned or cancelled")
	ErrBudgetNotReturned = apperror.Validation("a budget was never picked up; cancel it instead")
	ErrRentalNotCancel   = apperror.Validation("only reserved rentals or budgets can be cancelled")
	ErrRentalNotReserved = apperror.Validation("only reserved rentals can be picked up")
	ErrRentalRaced       = apperror.Conflict("rental status changed concurrently, try again")
)

type RentalService interface {
	CreateRental(ctx context.Context, caller Caller, req *CreateRentalRequest) (*model.Rental, error)
	PickUpRental(ctx context.Context, caller Caller, id uuid.UUID) (*model.Rental, error)
	ReturnRental(ctx context.Context, caller Caller, id uuid.UUID) (*model.Rental, error)
	CancelRental(ctx context.Context, caller Caller, id uuid.UUID) (*model.Rental, error)
	GetRentalByID(ctx context.Context, caller Caller, id uuid.UUID) (*model.Rental, error)
	ListRentals(ctx context.Context, caller Caller, filter RentalListFilter) ([]model.RentalSummary, error)
}

type RentalItemInput struct {
	ProductID uuid.UUID `json:"id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1"`
}

type InstallmentsConfig struct {
	Count        int    `json:"count" validate:"omitempty,min=1,max=60"`
	FirstDueDate string `json:"first_due_date"`
}

type CreateRentalRequest struct {
	CustomerID         uuid.UUID           `json:"customer_id" validate:"uuid_required"`
	Items              []RentalItemInput   `json:"products" validate:"required,min=1,dive"`
	StartDate          string              `json:"start_date" validate:"required"`
	EndDateScheduled   string              `json:"end_date_scheduled" validate:"required"`
	InstallmentsConfig *InstallmentsConfig `json:"installments_config"`
	Discount           decimal.Decimal     `json:"discount" validate:"gte=0"`
	Status             string              `json:"status" validate:"omitempty,oneof=budget reserved picked_up"`
	StoreID            *uuid.UUID          `json:"store_id"`
	DeliveryType       string              `json:"delivery_type" validate:"omitempty,oneof=pickup_store delivery"`
	DeliveryAddressID  *uuid.UUID          `json:"delivery_address_id"`
	Notes              string              `json:"notes"`
}

type RentalListFilter struct {
	StoreID    *uuid.UUID
	CustomerID *uuid.UUID
	Status     string
	Page       repository.Page
}

type rentalService struct {
	rentalRepo      repository.RentalRepository
	installmentRepo repository.InstallmentRepository
	productRepo     repository.ProductRepository
	customerRepo    repository.CustomerRepository
	storeRepo       repository.StoreRepository
	db              *gorm.DB
	notifier        Notifier
}

func NewRentalService(
	rentalRepo repository.RentalRepository,
	installmentRepo repository.InstallmentRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	storeRepo repository.StoreRepository,
	db *gorm.DB,
	notifier Notifier,
) RentalService {
	return &rentalService{
		rentalRepo:      rentalRepo,
		installmentRepo: installmentRepo,
		productRepo:     productRepo,
		customerRepo:    customerRepo,
		storeRepo:       storeRepo,
		db:              db,
		notifier:        notifierOrNoop(notifier),
	}
}

// resolveStore picks the caller's own store when scoped, else the requested one
func resolveStore(caller Caller, requested *uuid.UUID) (uuid.UUID, error) {
	if !caller.IsGlobal() {
		if requested != nil && *requested != *caller.StoreID {
			return uuid.Nil, ErrStoreForbidden
		}
		return *caller.StoreID, nil
	}
	if requested == nil || *requested == uuid.Nil {
		return uuid.Nil, ErrStoreRequired
	}
	return *requested, nil
}

func lockOrder(items []RentalItemInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return ids
}

func (s *rentalService) CreateRental(ctx context.Context, caller Caller, req *CreateRentalRequest) (*model.Rental, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date_scheduled", req.EndDateScheduled)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrEndBeforeStart
	}

	status := req.Status
	if status == "" {
		status = model.RentalReserved
	}
	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = model.DeliveryPickupStore
	}

	firstDue := nowFunc()
	if req.InstallmentsConfig != nil && req.InstallmentsConfig.FirstDueDate != "" {
		if firstDue, err = parseDate("first_due_date", req.InstallmentsConfig.FirstDueDate); err != nil {
			return nil, err
		}
	}

	// 2. Resolve effective store
	storeID, err := resolveStore(caller, req.StoreID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			return nil, ErrDuplicateProduct
		}
		seen[item.ProductID] = true
	}

	var rental *model.Rental
	err = database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := s.storeRepo.FindByID(tx, storeID); err != nil {
			return notFound(err, ErrStoreNotFound.Message)
		}

		customer, err := s.customerRepo.FindByID(tx, req.CustomerID)
		if err != nil {
			return notFound(err, ErrCustomerNotFound.Message)
		}
		if req.DeliveryAddressID != nil && !hasAddress(customer, *req.DeliveryAddressID) {
			return apperror.Validation("delivery_address_id does not belong to the customer")
		}

		// 3. Check every product before writing anything.
		// Rows are locked in id order so concurrent rentals cannot deadlock.
		locked := make(map[uuid.UUID]*model.Product, len(req.Items))
		for _, id := range lockOrder(req.Items) {
			product, err := s.productRepo.FindByIDForUpdate(tx, id)
			if err != nil {
				return notFound(err, "product "+id.String()+" not found")
			}
			locked[id] = product
		}

		items := make([]model.RentalItem, 0, len(req.Items))
		subtotal := decimal.Zero
		for _, in := range req.Items {
			product := locked[in.ProductID]
			if product.StoreID != storeID {
				return apperror.Validationf("product %s belongs to another store", product.Code)
			}
			if status != model.RentalBudget && product.Status != model.ProductAvailable {
				return apperror.Conflict("product " + product.Code + " is not available (status: " + product.Status + ")")
			}

			qty := in.Quantity
			if qty == 0 {
				qty = 1
			}
			items = append(items, model.RentalItem{
				ProductID: product.ID,
				UnitPrice: product.RentalPrice,
				Quantity:  qty,
			})
			subtotal = subtotal.Add(product.RentalPrice.Mul(decimal.NewFromInt(int64(qty))))
		}

		if req.Discount.GreaterThan(subtotal) {
			return ErrDiscountTooLarge
		}

		// 4. Persist rental and items
		rental = &model.Rental{
			StoreID:           storeID,
			CustomerID:        customer.ID,
			UserID:            caller.UserID,
			DeliveryAddressID: req.DeliveryAddressID,
			DeliveryType:      deliveryType,
			StartDate:         start,
			EndDateScheduled:  end,
			Status:            status,
			TotalAmount:       subtotal.Sub(req.Discount),
			Discount:          req.Discount,
			Notes:             req.Notes,
		}
		if err := s.rentalRepo.Create(tx, rental); err != nil {
			return err
		}
		for i := range items {
			items[i].RentalID = rental.ID
		}
		if err := s.rentalRepo.CreateItems(tx, items); err != nil {
			return err
		}
		rental.Items = items

		if status == model.RentalBudget {
			return nil
		}

		// 5. Take the products out of circulation
		target := model.ProductReserved
		if status == model.RentalPickedUp {
			target = model.ProductRented
		}
		for _, item := range items {
			ok, err := s.productRepo.CompareAndSetStatus(tx, item.ProductID, []string{model.ProductAvailable}, target)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.Conflict("product " + item.ProductID.String() + " was taken by another operation")
			}
		}

		// 6. Installment schedule
		if req.InstallmentsConfig != nil {
			count := req.InstallmentsConfig.Count
			if count == 0 {
				count = 1
			}
			rental.Installments = buildInstallments(rental.ID, rental.TotalAmount, count, firstDue)
			if err := s.installmentRepo.CreateBatch(tx, rental.Installments); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish("rental.created", []uuid.UUID{rental.StoreID}, rentalEvent(rental))
	return rental, nil
}

func hasAddress(c *model.Customer, id uuid.UUID) bool {
	for _, a := range c.Addresses {
		if a.ID == id {
			return true
		}
	}
	return false
}

// splitAmount divides total into count parts rounded down to cents.
// The last part absorbs the remainder so the parts always sum to total.
func splitAmount(total decimal.Decimal, count int) []decimal.Decimal {
	parts := make([]decimal.Decimal, count)
	base := total.Div(decimal.NewFromInt(int64(count))).RoundFloor(2)
	sum := decimal.Zero
	for i := 0; i < count-1; i++ {
		parts[i] = base
		sum = sum.Add(base)
	}
	parts[count-1] = total.Sub(sum)
	return parts
}

func buildInstallments(rentalID uuid.UUID, total decimal.Decimal, count int, firstDue time.Time) []model.Installment {
	values := splitAmount(total, count)
	installments := make([]model.Installment, count)
	for i := range installments {
		installments[i] = model.Installment{
			RentalID:          rentalID,
			Number:            i + 1,
			TotalInstallments: count,
			Value:             values[i],
			DueDate:           firstDue.AddDate(0, i, 0),
			Status:            model.InstallmentPending,
			AmountPaid:        decimal.Zero,
		}
	}
	return installments
}

// PickUpRental hands a reserved rental to the customer
func (s *rentalService) PickUpRental(ctx context.Context, caller Caller, id uuid.UUID) (*model.Rental, error) {
	return s.transition(ctx, caller, id, "rental.picked_up", func(tx *gorm.DB, rental *model.Rental) error {
		if rental.Status != model.RentalReserved {
			return ErrRentalNotReserved
		}
		if err := s.moveProducts(tx, rental.ID, []string{model.ProductReserved}, model.ProductRented); err != nil {
			return err
		}
		return s.setStatus(tx, rental, []string{model.RentalReserved}, model.RentalPickedUp, nil)
	})
}

// ReturnRental closes the rental and sends every product to laundry
func (s *rentalService) ReturnRental(ctx context.Context, caller Caller, id uuid.UUID) (*model.Rental, error) {
	return s.transition(ctx, caller, id, "rental.returned", func(tx *gorm.DB, rental *model.Rental) error {
		switch rental.Status {
		case model.RentalReturned, model.RentalCancelled:
			return ErrRentalClosed
		case model.RentalBudget:
			return ErrBudgetNotReturned
		}
		from := []string{model.ProductReserved, model.ProductRented}
		if err := s.moveProducts(tx, rental.ID, from, model.ProductLaundry); err != nil {
			return err
		}
		now := nowFunc()
		return s.setStatus(tx, rental, []string{model.RentalReserved, model.RentalPickedUp}, model.RentalReturned, &now)
	})
}

// CancelRental releases a rental whose products never left the store
func (s *rentalService) CancelRental(ctx context.Context, caller Caller, id uuid.UUID) (*model.Rental, error) {
	return s.transition(ctx, caller, id, "rental.cancelled", func(tx *gorm.DB, rental *model.Rental) error {
		switch rental.Status {
		case model.RentalReserved:
			if err := s.moveProducts(tx, rental.ID, []string{model.ProductReserved}, model.ProductAvailable); err != nil {
				return err
			}
		case model.RentalBudget:
			// budgets never reserved their products
		default:
			return ErrRentalNotCancel
		}
		return s.setStatus(tx, rental, []string{model.RentalReserved, model.RentalBudget}, model.RentalCancelled, nil)
	})
}

// transition locks the rental, applies the store policy and runs fn in one transaction
func (s *rentalService) transition(ctx context.Context, caller Caller, id uuid.UUID, event string, fn func(tx *gorm.DB, rental *model.Rental) error) (*model.Rental, error) {
	var rental *model.Rental
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		rental, err = s.rentalRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrRentalNotFound.Message)
		}
		if err := AuthorizeStore(caller, rental.StoreID); err != nil {
			return err
		}
		return fn(tx, rental)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(event, []uuid.UUID{rental.StoreID}, rentalEvent(rental))
	return rental, nil
}

func (s *rentalService) moveProducts(tx *gorm.DB, rentalID uuid.UUID, from []string, to string) error {
	ids, err := s.rentalRepo.ProductIDs(tx, rentalID)
	if err != nil {
		return err
	}
	for _, pid := range ids {
		ok, err := s.productRepo.CompareAndSetStatus(tx, pid, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Conflict("product " + pid.String() + " is not in the expected status")
		}
	}
	return nil
}

func (s *rentalService) setStatus(tx *gorm.DB, rental *model.Rental, from []string, to string, returnedAt *time.Time) error {
	ok, err := s.rentalRepo.TransitionStatus(tx, rental.ID, from, to, returnedAt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRentalRaced
	}
	rental.Status = to
	if returnedAt != nil {
		rental.ReturnedAt = returnedAt
	}
	return nil
}

func (s *rentalService) GetRentalByID(ctx context.Context, caller Caller, id uuid.UUID) (*model.Rental, error) {
	rental, err := s.rentalRepo.FindByID(nil, id)
	if err != nil {
		return nil, notFound(err, ErrRentalNotFound.Message)
	}
	if err := AuthorizeStore(caller, rental.StoreID); err != nil {
		return nil, err
	}
	return rental, nil
}

func (s *rentalService) ListRentals(ctx context.Context, caller Caller, filter RentalListFilter) ([]model.RentalSummary, error) {
	return s.rentalRepo.FindAll(repository.RentalFilter{
		StoreID:    scopeFilter(caller, filter.StoreID),
		CustomerID: filter.CustomerID,
		Status:     filter.Status,
		Page:       filter.Page,
	})
}

func rentalEvent(r *model.Rental) map[string]interface{} {
	return map[string]interface{}{
		"id":           r.ID,
		"store_id":     r.StoreID,
		"customer_id":  r.CustomerID,
		"status":       r.Status,
		"total_amount": r.TotalAmount,
	}
}
