package service

import (
	"context"
	"strings"

	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"

	"github.com/google/uuid"
)

type StoreService interface {
	ListStores(ctx context.Context) ([]model.Store, error)
	GetStore(ctx context.Context, id uuid.UUID) (*model.Store, error)
	CreateStore(ctx context.Context, req *StoreRequest) (*model.Store, error)
	UpdateStore(ctx context.Context, id uuid.UUID, req *StoreRequest) (*model.Store, error)
}

type StoreRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address" validate:"max=500"`
}

type storeService struct {
	storeRepo repository.StoreRepository
}

func NewStoreService(storeRepo repository.StoreRepository) StoreService {
	return &storeService{storeRepo: storeRepo}
}

func (s *storeService) ListStores(ctx context.Context) ([]model.Store, error) {
	return s.storeRepo.FindAll()
}

func (s *storeService) GetStore(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	store, err := s.storeRepo.FindByID(nil, id)
	if err != nil {
		return nil, notFound(err, ErrStoreNotFound.Message)
	}
	return store, nil
}

func (s *storeService) CreateStore(ctx context.Context, req *StoreRequest) (*model.Store, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	store := &model.Store{
		Name:    strings.TrimSpace(req.Name),
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := s.storeRepo.Create(store); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *storeService) UpdateStore(ctx context.Context, id uuid.UUID, req *StoreRequest) (*model.Store, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	store, err := s.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}
	store.Name = strings.TrimSpace(req.Name)
	store.Phone = req.Phone
	store.Address = req.Address
	if err := s.storeRepo.Update(store); err != nil {
		return nil, err
	}
	return store, nil
}
