package service

import (
	"context"
	"strings"
	"time"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"
	"go-rental-store/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrContactRequired   = apperror.Validation("at least one contact is required")
	ErrCustomerDuplicate = apperror.Conflict("a customer with this CPF or RG already exists")
	ErrCustomerInUse     = apperror.Validation("customer has rentals and cannot be removed permanently")
)

type CustomerService interface {
	SearchCustomers(ctx context.Context, term string, page repository.Page) ([]model.CustomerSummary, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	CreateCustomer(ctx context.Context, req *CustomerRequest) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, req *UpdateCustomerRequest) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	HardDeleteCustomer(ctx context.Context, id uuid.UUID) error
}

type AddressInput struct {
	Type         string `json:"type" validate:"omitempty,oneof=residential commercial delivery"`
	Label        string `json:"label" validate:"max=100"`
	ZipCode      string `json:"zip_code" validate:"max=20"`
	Street       string `json:"street" validate:"max=255"`
	Number       string `json:"number" validate:"max=20"`
	Complement   string `json:"complement" validate:"max=100"`
	Neighborhood string `json:"neighborhood" validate:"max=100"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=2"`
	IsDefault    bool   `json:"is_default"`
}

type ContactInput struct {
	Type      string `json:"type" validate:"required,oneof=whatsapp mobile phone email"`
	Value     string `json:"value" validate:"required,max=255"`
	IsPrimary bool   `json:"is_primary"`
}

type CustomerRequest struct {
	Name         string         `json:"name" validate:"required,max=255"`
	CPF          string         `json:"cpf" validate:"max=20"`
	RG           string         `json:"rg" validate:"max=30"`
	BirthDate    string         `json:"birth_date"`
	Measurements map[string]any `json:"measurements"`
	Notes        string         `json:"notes"`
	Addresses    []AddressInput `json:"addresses" validate:"dive"`
	Contacts     []ContactInput `json:"contacts" validate:"dive"`
}

// UpdateCustomerRequest changes only the fields that are present.
// A present addresses or contacts array replaces the stored collection as a whole;
// an absent one leaves it untouched.
type UpdateCustomerRequest struct {
	Name         *string         `json:"name" validate:"omitempty,min=1,max=255"`
	CPF          *string         `json:"cpf" validate:"omitempty,max=20"`
	RG           *string         `json:"rg" validate:"omitempty,max=30"`
	BirthDate    *string         `json:"birth_date"`
	Measurements map[string]any  `json:"measurements"`
	Notes        *string         `json:"notes"`
	IsActive     *bool           `json:"is_active"`
	Addresses    *[]AddressInput `json:"addresses"`
	Contacts     *[]ContactInput `json:"contacts"`
}

type customerService struct {
	customerRepo repository.CustomerRepository
	db           *gorm.DB
}

func NewCustomerService(customerRepo repository.CustomerRepository, db *gorm.DB) CustomerService {
	return &customerService{customerRepo: customerRepo, db: db}
}

func (s *customerService) SearchCustomers(ctx context.Context, term string, page repository.Page) ([]model.CustomerSummary, error) {
	return s.customerRepo.Search(strings.TrimSpace(term), page)
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByID(nil, id)
	if err != nil {
		return nil, notFound(err, ErrCustomerNotFound.Message)
	}
	return customer, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, req *CustomerRequest) (*model.Customer, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}
	if len(req.Contacts) == 0 {
		return nil, ErrContactRequired
	}
	birth, err := optionalDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	customer := &model.Customer{
		Name:         strings.TrimSpace(req.Name),
		CPF:          optionalString(req.CPF),
		RG:           optionalString(req.RG),
		BirthDate:    birth,
		Measurements: req.Measurements,
		Notes:        req.Notes,
		IsActive:     true,
		Addresses:    toAddresses(req.Addresses),
		Contacts:     toContacts(req.Contacts),
	}
	if customer.Measurements == nil {
		customer.Measurements = map[string]any{}
	}

	// 2. Customer, addresses and contacts land together or not at all
	err = database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		return s.customerRepo.Create(tx, customer)
	})
	if err != nil {
		return nil, dbError(err, ErrCustomerDuplicate.Message, "")
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id uuid.UUID, req *UpdateCustomerRequest) (*model.Customer, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Addresses != nil {
		if err := validate(struct {
			Items []AddressInput `validate:"dive"`
		}{*req.Addresses}); err != nil {
			return nil, err
		}
	}
	if req.Contacts != nil {
		if len(*req.Contacts) == 0 {
			return nil, ErrContactRequired
		}
		if err := validate(struct {
			Items []ContactInput `validate:"dive"`
		}{*req.Contacts}); err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.CPF != nil {
		fields["cpf"] = optionalString(*req.CPF)
	}
	if req.RG != nil {
		fields["rg"] = optionalString(*req.RG)
	}
	if req.BirthDate != nil {
		birth, err := optionalDate(*req.BirthDate)
		if err != nil {
			return nil, err
		}
		fields["birth_date"] = birth
	}
	if req.Measurements != nil {
		fields["measurements"] = req.Measurements
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	var updated *model.Customer
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := s.customerRepo.FindByID(tx, id); err != nil {
			return notFound(err, ErrCustomerNotFound.Message)
		}
		if err := s.customerRepo.UpdateFields(tx, id, fields); err != nil {
			return err
		}
		if req.Addresses != nil {
			if err := s.customerRepo.ReplaceAddresses(tx, id, toAddresses(*req.Addresses)); err != nil {
				return err
			}
		}
		if req.Contacts != nil {
			if err := s.customerRepo.ReplaceContacts(tx, id, toContacts(*req.Contacts)); err != nil {
				return err
			}
		}
		var err error
		updated, err = s.customerRepo.FindByID(tx, id)
		return err
	})
	if err != nil {
		return nil, dbError(err, ErrCustomerDuplicate.Message, "")
	}
	return updated, nil
}

// DeleteCustomer soft deletes; a second call reports not found
func (s *customerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if err := s.customerRepo.SoftDelete(id); err != nil {
		return notFound(err, ErrCustomerNotFound.Message)
	}
	return nil
}

func (s *customerService) HardDeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if err := s.customerRepo.HardDelete(id); err != nil {
		return dbError(notFound(err, ErrCustomerNotFound.Message), "", ErrCustomerInUse.Message)
	}
	return nil
}

func toAddresses(in []AddressInput) []model.Address {
	out := make([]model.Address, len(in))
	for i, a := range in {
		kind := a.Type
		if kind == "" {
			kind = "residential"
		}
		out[i] = model.Address{
			Type:         kind,
			Label:        a.Label,
			ZipCode:      a.ZipCode,
			Street:       a.Street,
			Number:       a.Number,
			Complement:   a.Complement,
			Neighborhood: a.Neighborhood,
			City:         a.City,
			State:        strings.ToUpper(a.State),
			IsDefault:    a.IsDefault,
			Position:     i,
		}
	}
	return out
}

func toContacts(in []ContactInput) []model.Contact {
	out := make([]model.Contact, len(in))
	for i, c := range in {
		out[i] = model.Contact{
			Type:      c.Type,
			Value:     strings.TrimSpace(c.Value),
			IsPrimary: c.IsPrimary,
			Position:  i,
		}
	}
	return out
}

// optionalString keeps empty national ids out of the unique indexes
func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func optionalDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := parseDate("birth_date", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
