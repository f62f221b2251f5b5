package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go-rental-store/internal/mailer"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory world ──────────────────────────────────────────────────────────

// memDB backs every stub repository so status changes made through one repo
// are visible through the others, the way the tables are in Postgres.
type memDB struct {
	stores       map[uuid.UUID]*model.Store
	users        map[uuid.UUID]*model.User
	customers    map[uuid.UUID]*model.Customer
	categories   map[uuid.UUID]*model.Category
	products     map[uuid.UUID]*model.Product
	rentals      map[uuid.UUID]*model.Rental
	items        []model.RentalItem
	installments map[uuid.UUID]*model.Installment
	payments     []model.Payment
	transfers    map[uuid.UUID]*model.ProductTransfer
	productLocks []uuid.UUID
	writes       int
}

func newMemDB() *memDB {
	return &memDB{
		stores:       map[uuid.UUID]*model.Store{},
		users:        map[uuid.UUID]*model.User{},
		customers:    map[uuid.UUID]*model.Customer{},
		categories:   map[uuid.UUID]*model.Category{},
		products:     map[uuid.UUID]*model.Product{},
		rentals:      map[uuid.UUID]*model.Rental{},
		installments: map[uuid.UUID]*model.Installment{},
		transfers:    map[uuid.UUID]*model.ProductTransfer{},
	}
}

func assignID(base *model.BaseModel) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	now := time.Now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

// seed helpers

func (m *memDB) addStore(name string) *model.Store {
	s := &model.Store{Name: name}
	assignID(&s.BaseModel)
	m.stores[s.ID] = s
	return s
}

func (m *memDB) addCustomer(name string) *model.Customer {
	c := &model.Customer{Name: name, IsActive: true}
	assignID(&c.BaseModel)
	m.customers[c.ID] = c
	return c
}

func (m *memDB) addProduct(storeID uuid.UUID, code, price, status string) *model.Product {
	p := &model.Product{
		StoreID:     storeID,
		Code:        code,
		Name:        "Item " + code,
		RentalPrice: decimal.RequireFromString(price),
		Status:      status,
	}
	assignID(&p.BaseModel)
	m.products[p.ID] = p
	return p
}

func (m *memDB) productStatus(id uuid.UUID) string {
	return m.products[id].Status
}

// ── Stores ───────────────────────────────────────────────────────────────────

type stubStoreRepo struct{ m *memDB }

func (r stubStoreRepo) FindAll() ([]model.Store, error) {
	var out []model.Store
	for _, s := range r.m.stores {
		out = append(out, *s)
	}
	return out, nil
}

func (r stubStoreRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*model.Store, error) {
	s, ok := r.m.stores[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r stubStoreRepo) Create(s *model.Store) error {
	assignID(&s.BaseModel)
	cp := *s
	r.m.stores[s.ID] = &cp
	return nil
}

func (r stubStoreRepo) Update(s *model.Store) error {
	cp := *s
	r.m.stores[s.ID] = &cp
	return nil
}

var _ repository.StoreRepository = stubStoreRepo{}

// ── Users ────────────────────────────────────────────────────────────────────

type stubUserRepo struct{ m *memDB }

func (r stubUserRepo) live(u *model.User) bool { return !u.DeletedAt.Valid }

func (r stubUserRepo) FindByEmail(email string) (*model.User, error) {
	for _, u := range r.m.users {
		if r.live(u) && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r stubUserRepo) FindByID(id uuid.UUID) (*model.User, error) {
	u, ok := r.m.users[id]
	if !ok || !r.live(u) {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r stubUserRepo) FindByResetTokenHash(hash string, now time.Time) (*model.User, error) {
	for _, u := range r.m.users {
		if r.live(u) && hash != "" && u.ResetTokenHash == hash && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r stubUserRepo) FindAll(storeID *uuid.UUID) ([]model.User, error) {
	var out []model.User
	for _, u := range r.m.users {
		if !r.live(u) {
			continue
		}
		if storeID != nil && (u.StoreID == nil || *u.StoreID != *storeID) {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r stubUserRepo) Create(u *model.User) error {
	for _, other := range r.m.users {
		if other.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	assignID(&u.BaseModel)
	cp := *u
	r.m.users[u.ID] = &cp
	return nil
}

func (r stubUserRepo) Update(u *model.User) error {
	for _, other := range r.m.users {
		if other.ID != u.ID && other.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *u
	r.m.users[u.ID] = &cp
	return nil
}

func (r stubUserRepo) SoftDelete(id uuid.UUID) error {
	u, ok := r.m.users[id]
	if !ok || !r.live(u) {
		return repository.ErrNotFound
	}
	u.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (r stubUserRepo) PurgeExpiredResetTokens(now time.Time) (int64, error) {
	var n int64
	for _, u := range r.m.users {
		if u.ResetTokenExpires != nil && !u.ResetTokenExpires.After(now) {
			u.ResetTokenHash, u.ResetTokenExpires = "", nil
			n++
		}
	}
	return n, nil
}

var _ repository.UserRepository = stubUserRepo{}

// ── Customers ────────────────────────────────────────────────────────────────

type stubCustomerRepo struct {
	m *memDB
	// referenced marks customers with rental history
	referenced map[uuid.UUID]bool
}

func (r stubCustomerRepo) Search(term string, _ repository.Page) ([]model.CustomerSummary, error) {
	var out []model.CustomerSummary
	for _, c := range r.m.customers {
		if c.DeletedAt.Valid {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			continue
		}
		out = append(out, model.CustomerSummary{ID: c.ID, Name: c.Name, CPF: c.CPF})
	}
	return out, nil
}

func (r stubCustomerRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*model.Customer, error) {
	c, ok := r.m.customers[id]
	if !ok || c.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.Addresses = append([]model.Address(nil), c.Addresses...)
	cp.Contacts = append([]model.Contact(nil), c.Contacts...)
	return &cp, nil
}

func (r stubCustomerRepo) unique(id uuid.UUID, cpf, rg *string) error {
	for _, other := range r.m.customers {
		if other.ID == id {
			continue
		}
		if cpf != nil && other.CPF != nil && *cpf == *other.CPF {
			return gorm.ErrDuplicatedKey
		}
		if rg != nil && other.RG != nil && *rg == *other.RG {
			return gorm.ErrDuplicatedKey
		}
	}
	return nil
}

func (r stubCustomerRepo) Create(_ *gorm.DB, c *model.Customer) error {
	if err := r.unique(uuid.Nil, c.CPF, c.RG); err != nil {
		return err
	}
	assignID(&c.BaseModel)
	for i := range c.Addresses {
		assignID(&c.Addresses[i].BaseModel)
		c.Addresses[i].CustomerID = c.ID
	}
	for i := range c.Contacts {
		assignID(&c.Contacts[i].BaseModel)
		c.Contacts[i].CustomerID = c.ID
	}
	cp := *c
	r.m.customers[c.ID] = &cp
	r.m.writes++
	return nil
}

func (r stubCustomerRepo) UpdateFields(_ *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	c := r.m.customers[id]
	cpf, rg := c.CPF, c.RG
	if v, ok := fields["cpf"]; ok {
		cpf = v.(*string)
	}
	if v, ok := fields["rg"]; ok {
		rg = v.(*string)
	}
	if err := r.unique(id, cpf, rg); err != nil {
		return err
	}
	c.CPF, c.RG = cpf, rg
	if v, ok := fields["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := fields["notes"]; ok {
		c.Notes = v.(string)
	}
	if v, ok := fields["is_active"]; ok {
		c.IsActive = v.(bool)
	}
	if v, ok := fields["measurements"]; ok {
		c.Measurements = v.(map[string]any)
	}
	if v, ok := fields["birth_date"]; ok {
		c.BirthDate = v.(*time.Time)
	}
	return nil
}

func (r stubCustomerRepo) ReplaceAddresses(_ *gorm.DB, id uuid.UUID, addresses []model.Address) error {
	for i := range addresses {
		assignID(&addresses[i].BaseModel)
		addresses[i].CustomerID = id
	}
	r.m.customers[id].Addresses = addresses
	return nil
}

func (r stubCustomerRepo) ReplaceContacts(_ *gorm.DB, id uuid.UUID, contacts []model.Contact) error {
	for i := range contacts {
		assignID(&contacts[i].BaseModel)
		contacts[i].CustomerID = id
	}
	r.m.customers[id].Contacts = contacts
	return nil
}

func (r stubCustomerRepo) SoftDelete(id uuid.UUID) error {
	c, ok := r.m.customers[id]
	if !ok || c.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	c.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (r stubCustomerRepo) HardDelete(id uuid.UUID) error {
	if _, ok := r.m.customers[id]; !ok {
		return repository.ErrNotFound
	}
	if r.referenced[id] {
		return gorm.ErrForeignKeyViolated
	}
	delete(r.m.customers, id)
	return nil
}

var _ repository.CustomerRepository = stubCustomerRepo{}

// ── Categories ───────────────────────────────────────────────────────────────

type stubCategoryRepo struct{ m *memDB }

func (r stubCategoryRepo) FindAll() ([]model.Category, error) {
	var out []model.Category
	for _, c := range r.m.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (r stubCategoryRepo) FindByID(id uuid.UUID) (*model.Category, error) {
	c, ok := r.m.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r stubCategoryRepo) Create(c *model.Category) error {
	assignID(&c.BaseModel)
	cp := *c
	r.m.categories[c.ID] = &cp
	return nil
}

func (r stubCategoryRepo) Update(c *model.Category) error {
	cp := *c
	r.m.categories[c.ID] = &cp
	return nil
}

func (r stubCategoryRepo) Delete(id uuid.UUID) error {
	if _, ok := r.m.categories[id]; !ok {
		return repository.ErrNotFound
	}
	for _, p := range r.m.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			return gorm.ErrForeignKeyViolated
		}
	}
	delete(r.m.categories, id)
	return nil
}

func (r stubCategoryRepo) CountChildren(id uuid.UUID) (int64, error) {
	var n int64
	for _, c := range r.m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

var _ repository.CategoryRepository = stubCategoryRepo{}

// ── Products ─────────────────────────────────────────────────────────────────

type stubProductRepo struct{ m *memDB }

func (r stubProductRepo) FindAll(f repository.ProductFilter) ([]model.ProductSummary, error) {
	var out []model.ProductSummary
	for _, p := range r.m.products {
		if f.StoreID != nil && p.StoreID != *f.StoreID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, model.ProductSummary{ID: p.ID, StoreID: p.StoreID, Code: p.Code, Name: p.Name, Status: p.Status})
	}
	return out, nil
}

func (r stubProductRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	p, ok := r.m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.Images = append([]model.ProductImage(nil), p.Images...)
	return &cp, nil
}

func (r stubProductRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	r.m.productLocks = append(r.m.productLocks, id)
	return r.FindByID(tx, id)
}

func (r stubProductRepo) codeTaken(p *model.Product) bool {
	for _, other := range r.m.products {
		if other.ID != p.ID && other.StoreID == p.StoreID && other.Code == p.Code {
			return true
		}
	}
	return false
}

func (r stubProductRepo) Create(_ *gorm.DB, p *model.Product) error {
	if r.codeTaken(p) {
		return gorm.ErrDuplicatedKey
	}
	assignID(&p.BaseModel)
	cp := *p
	r.m.products[p.ID] = &cp
	r.m.writes++
	return nil
}

func (r stubProductRepo) Update(_ *gorm.DB, p *model.Product) error {
	if r.codeTaken(p) {
		return gorm.ErrDuplicatedKey
	}
	images := r.m.products[p.ID].Images
	cp := *p
	cp.Images = images
	r.m.products[p.ID] = &cp
	return nil
}

func (r stubProductRepo) Delete(_ *gorm.DB, id uuid.UUID) error {
	if _, ok := r.m.products[id]; !ok {
		return repository.ErrNotFound
	}
	for _, it := range r.m.items {
		if it.ProductID == id {
			return gorm.ErrForeignKeyViolated
		}
	}
	delete(r.m.products, id)
	return nil
}

func (r stubProductRepo) AddImages(_ *gorm.DB, images []model.ProductImage) error {
	for _, img := range images {
		assignID(&img.BaseModel)
		p := r.m.products[img.ProductID]
		p.Images = append(p.Images, img)
	}
	return nil
}

func (r stubProductRepo) CompareAndSetStatus(_ *gorm.DB, id uuid.UUID, from []string, to string) (bool, error) {
	p, ok := r.m.products[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if p.Status == f {
			p.Status = to
			r.m.writes++
			return true, nil
		}
	}
	return false, nil
}

func (r stubProductRepo) MoveToStore(_ *gorm.DB, id, storeID uuid.UUID, from, to string) (bool, error) {
	p, ok := r.m.products[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.StoreID = storeID
	p.Status = to
	r.m.writes++
	return true, nil
}

var _ repository.ProductRepository = stubProductRepo{}

// ── Rentals ──────────────────────────────────────────────────────────────────

type stubRentalRepo struct{ m *memDB }

func (r stubRentalRepo) Create(_ *gorm.DB, rental *model.Rental) error {
	assignID(&rental.BaseModel)
	cp := *rental
	r.m.rentals[rental.ID] = &cp
	r.m.writes++
	return nil
}

func (r stubRentalRepo) CreateItems(_ *gorm.DB, items []model.RentalItem) error {
	for i := range items {
		assignID(&items[i].BaseModel)
	}
	r.m.items = append(r.m.items, items...)
	r.m.writes++
	return nil
}

func (r stubRentalRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*model.Rental, error) {
	rental, ok := r.m.rentals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rental
	cp.Items = nil
	for _, it := range r.m.items {
		if it.RentalID == id {
			cp.Items = append(cp.Items, it)
		}
	}
	cp.Installments = nil
	for _, inst := range r.m.installments {
		if inst.RentalID == id {
			cp.Installments = append(cp.Installments, *inst)
		}
	}
	return &cp, nil
}

func (r stubRentalRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Rental, error) {
	rental, ok := r.m.rentals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rental
	return &cp, nil
}

func (r stubRentalRepo) FindAll(f repository.RentalFilter) ([]model.RentalSummary, error) {
	var out []model.RentalSummary
	for _, rental := range r.m.rentals {
		if f.StoreID != nil && rental.StoreID != *f.StoreID {
			continue
		}
		out = append(out, model.RentalSummary{ID: rental.ID, StoreID: rental.StoreID, Status: rental.Status})
	}
	return out, nil
}

func (r stubRentalRepo) ProductIDs(_ *gorm.DB, rentalID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, it := range r.m.items {
		if it.RentalID == rentalID {
			ids = append(ids, it.ProductID)
		}
	}
	return ids, nil
}

func (r stubRentalRepo) TransitionStatus(_ *gorm.DB, id uuid.UUID, from []string, to string, returnedAt *time.Time) (bool, error) {
	rental, ok := r.m.rentals[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if rental.Status == f {
			rental.Status = to
			if returnedAt != nil {
				rental.ReturnedAt = returnedAt
			}
			return true, nil
		}
	}
	return false, nil
}

var _ repository.RentalRepository = stubRentalRepo{}

// ── Installments & payments ──────────────────────────────────────────────────

type stubInstallmentRepo struct{ m *memDB }

func (r stubInstallmentRepo) CreateBatch(_ *gorm.DB, installments []model.Installment) error {
	for i := range installments {
		assignID(&installments[i].BaseModel)
		cp := installments[i]
		r.m.installments[cp.ID] = &cp
	}
	r.m.writes++
	return nil
}

func (r stubInstallmentRepo) FindByIDForUpdate(_ *gorm.DB, id uuid.UUID) (*model.Installment, error) {
	inst, ok := r.m.installments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (r stubInstallmentRepo) ApplyPayment(_ *gorm.DB, id uuid.UUID, amountPaid decimal.Decimal, status string, paidAt time.Time) error {
	inst := r.m.installments[id]
	inst.AmountPaid = amountPaid
	inst.Status = status
	inst.PaidAt = &paidAt
	return nil
}

var _ repository.InstallmentRepository = stubInstallmentRepo{}

type stubPaymentRepo struct{ m *memDB }

func (r stubPaymentRepo) Create(_ *gorm.DB, p *model.Payment) error {
	assignID(&p.BaseModel)
	r.m.payments = append(r.m.payments, *p)
	return nil
}

func (r stubPaymentRepo) FindByRental(rentalID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range r.m.payments {
		if p.RentalID == rentalID {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ repository.PaymentRepository = stubPaymentRepo{}

// ── Transfers ────────────────────────────────────────────────────────────────

type stubTransferRepo struct{ m *memDB }

func (r stubTransferRepo) Create(_ *gorm.DB, t *model.ProductTransfer) error {
	assignID(&t.BaseModel)
	cp := *t
	r.m.transfers[t.ID] = &cp
	return nil
}

func (r stubTransferRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*model.ProductTransfer, error) {
	t, ok := r.m.transfers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r stubTransferRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.ProductTransfer, error) {
	return r.FindByID(tx, id)
}

func (r stubTransferRepo) FindAll(f repository.TransferFilter) ([]model.ProductTransfer, error) {
	var out []model.ProductTransfer
	for _, t := range r.m.transfers {
		if f.StoreID != nil {
			switch f.Direction {
			case repository.DirectionOutgoing:
				if t.FromStoreID != *f.StoreID {
					continue
				}
			case repository.DirectionAll:
				if t.FromStoreID != *f.StoreID && t.ToStoreID != *f.StoreID {
					continue
				}
			default:
				if t.ToStoreID != *f.StoreID {
					continue
				}
			}
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r stubTransferRepo) Complete(_ *gorm.DB, id, receivedBy uuid.UUID, at time.Time) (bool, error) {
	t, ok := r.m.transfers[id]
	if !ok || t.Status != model.TransferInTransit {
		return false, nil
	}
	t.Status = model.TransferCompleted
	t.ReceivedBy = &receivedBy
	t.ReceivedAt = &at
	return true, nil
}

func (r stubTransferRepo) Cancel(_ *gorm.DB, id uuid.UUID) (bool, error) {
	t, ok := r.m.transfers[id]
	if !ok || t.Status != model.TransferInTransit {
		return false, nil
	}
	t.Status = model.TransferCancelled
	return true, nil
}

var _ repository.TransferRepository = stubTransferRepo{}

// ── Collaborators ────────────────────────────────────────────────────────────

type recordedEvent struct {
	Type     string
	StoreIDs []uuid.UUID
}

type stubNotifier struct {
	events []recordedEvent
}

func (n *stubNotifier) Publish(eventType string, storeIDs []uuid.UUID, _ any) {
	n.events = append(n.events, recordedEvent{Type: eventType, StoreIDs: storeIDs})
}

type stubMail struct {
	sent []mailer.Message
}

func (s *stubMail) SendEmail(_ context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

// callers

func globalCaller() Caller {
	return Caller{UserID: uuid.New(), Role: model.RoleAdmin}
}

func storeCaller(storeID uuid.UUID) Caller {
	id := storeID
	return Caller{UserID: uuid.New(), Role: model.RoleAttendant, StoreID: &id}
}

var defaultPage = repository.Page{}

type memStorage struct {
	objects map[string]string
	failPut bool
}

func newMemStorage() *memStorage { return &memStorage{objects: map[string]string{}} }

func (s *memStorage) Put(_ context.Context, key, contentType string, _ io.Reader, _ int64) (string, error) {
	if s.failPut {
		return "", errors.New("bucket unavailable")
	}
	s.objects[key] = contentType
	return "http://files.test/" + key, nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func imageUpload(contentType string, size int64) Upload {
	return Upload{ContentType: contentType, Size: size, Body: strings.NewReader("img")}
}
