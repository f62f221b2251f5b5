package repository

import (
	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Search(term string, page Page) ([]model.CustomerSummary, error)
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Customer, error)
	Create(tx *gorm.DB, customer *model.Customer) error
	UpdateFields(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	ReplaceAddresses(tx *gorm.DB, customerID uuid.UUID, addresses []model.Address) error
	ReplaceContacts(tx *gorm.DB, customerID uuid.UUID, contacts []model.Contact) error
	SoftDelete(id uuid.UUID) error
	HardDelete(id uuid.UUID) error
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db}
}

// Search lists active customers with their primary phone and default city
func (r *customerRepo) Search(term string, page Page) ([]model.CustomerSummary, error) {
	var rows []model.CustomerSummary
	q := r.db.Table("customers c").
		Select(`c.id, c.name, c.cpf, c.birth_date,
			(SELECT value FROM contacts WHERE customer_id = c.id AND type IN ('whatsapp','mobile','phone') ORDER BY is_primary DESC, position ASC LIMIT 1) AS main_phone,
			(SELECT city FROM addresses WHERE customer_id = c.id ORDER BY is_default DESC, position ASC LIMIT 1) AS city`).
		Where("c.deleted_at IS NULL")

	if term != "" {
		like := "%" + term + "%"
		q = q.Where("(c.name ILIKE ? OR c.cpf ILIKE ? OR c.rg ILIKE ?)", like, like, like)
	}

	err := page.apply(q.Order("c.name ASC"), 50).Scan(&rows).Error
	return rows, err
}

func (r *customerRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	err := conn(r.db, tx).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Contacts", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&customer, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

// Create inserts the customer together with its addresses and contacts
func (r *customerRepo) Create(tx *gorm.DB, customer *model.Customer) error {
	return conn(r.db, tx).Create(customer).Error
}

func (r *customerRepo) UpdateFields(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := conn(r.db, tx).Model(&model.Customer{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAddresses deletes every stored address and inserts the given set
func (r *customerRepo) ReplaceAddresses(tx *gorm.DB, customerID uuid.UUID, addresses []model.Address) error {
	db := conn(r.db, tx)
	if err := db.Where("customer_id = ?", customerID).Delete(&model.Address{}).Error; err != nil {
		return err
	}
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		addresses[i].CustomerID = customerID
	}
	return db.Create(&addresses).Error
}

// ReplaceContacts deletes every stored contact and inserts the given set
func (r *customerRepo) ReplaceContacts(tx *gorm.DB, customerID uuid.UUID, contacts []model.Contact) error {
	db := conn(r.db, tx)
	if err := db.Where("customer_id = ?", customerID).Delete(&model.Contact{}).Error; err != nil {
		return err
	}
	if len(contacts) == 0 {
		return nil
	}
	for i := range contacts {
		contacts[i].CustomerID = customerID
	}
	return db.Create(&contacts).Error
}

func (r *customerRepo) SoftDelete(id uuid.UUID) error {
	res := r.db.Delete(&model.Customer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the row; rentals referencing it make this fail with gorm.ErrForeignKeyViolated
func (r *customerRepo) HardDelete(id uuid.UUID) error {
	res := r.db.Unscoped().Delete(&model.Customer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
