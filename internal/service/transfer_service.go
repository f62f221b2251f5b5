package service

import (
	"context"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"
	"go-rental-store/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTransferNotFound     = apperror.NotFound("transfer not found")
	ErrProductNotFound      = apperror.NotFound("product not found")
	ErrProductUnavailable   = apperror.Conflict("product is not available for transfer")
	ErrSameStoreTransfer    = apperror.Validation("product is already in the destination store")
	ErrTransferNotInTransit = apperror.Validation("transfer is not in transit")
	ErrTransferWrongStore   = apperror.Forbidden("only the destination store can receive this transfer")
)

type TransferService interface {
	RequestTransfer(ctx context.Context, caller Caller, req *RequestTransferRequest) (*model.ProductTransfer, error)
	ReceiveTransfer(ctx context.Context, caller Caller, transferID uuid.UUID) (*model.ProductTransfer, error)
	CancelTransfer(ctx context.Context, caller Caller, transferID uuid.UUID) (*model.ProductTransfer, error)
	GetTransfer(ctx context.Context, caller Caller, id uuid.UUID) (*model.ProductTransfer, error)
	ListTransfers(ctx context.Context, caller Caller, filter TransferListFilter) ([]model.ProductTransfer, error)
}

type RequestTransferRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	ToStoreID uuid.UUID `json:"to_store_id" validate:"uuid_required"`
}

type TransferListFilter struct {
	StoreID   *uuid.UUID
	Direction string
	Status    string
	Page      repository.Page
}

type transferService struct {
	transferRepo repository.TransferRepository
	productRepo  repository.ProductRepository
	storeRepo    repository.StoreRepository
	db           *gorm.DB
	notifier     Notifier
}

func NewTransferService(
	transferRepo repository.TransferRepository,
	productRepo repository.ProductRepository,
	storeRepo repository.StoreRepository,
	db *gorm.DB,
	notifier Notifier,
) TransferService {
	return &transferService{
		transferRepo: transferRepo,
		productRepo:  productRepo,
		storeRepo:    storeRepo,
		db:           db,
		notifier:     notifierOrNoop(notifier),
	}
}

func (s *transferService) RequestTransfer(ctx context.Context, caller Caller, req *RequestTransferRequest) (*model.ProductTransfer, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	var transfer *model.ProductTransfer
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		// 2. Load and check the product
		product, err := s.productRepo.FindByIDForUpdate(tx, req.ProductID)
		if err != nil {
			return notFound(err, ErrProductNotFound.Message)
		}
		if product.Status != model.ProductAvailable {
			return ErrProductUnavailable
		}
		if product.StoreID == req.ToStoreID {
			return ErrSameStoreTransfer
		}
		if _, err := s.storeRepo.FindByID(tx, req.ToStoreID); err != nil {
			return notFound(err, "destination store not found")
		}
		if err := AuthorizeAnyStore(caller, product.StoreID, req.ToStoreID); err != nil {
			return err
		}

		// 3. Block the product, guarded against a concurrent request
		ok, err := s.productRepo.CompareAndSetStatus(tx, product.ID, []string{model.ProductAvailable}, model.ProductTransferring)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProductUnavailable
		}

		// 4. Record the transfer
		transfer = &model.ProductTransfer{
			ProductID:   product.ID,
			FromStoreID: product.StoreID,
			ToStoreID:   req.ToStoreID,
			RequestedBy: caller.UserID,
			Status:      model.TransferInTransit,
			RequestedAt: nowFunc(),
		}
		return s.transferRepo.Create(tx, transfer)
	})
	if err != nil {
		return nil, err
	}

	s.publish("transfer.requested", transfer)
	return transfer, nil
}

func (s *transferService) ReceiveTransfer(ctx context.Context, caller Caller, transferID uuid.UUID) (*model.ProductTransfer, error) {
	var transfer *model.ProductTransfer
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		transfer, err = s.transferRepo.FindByIDForUpdate(tx, transferID)
		if err != nil {
			return notFound(err, ErrTransferNotFound.Message)
		}
		if transfer.Status != model.TransferInTransit {
			return ErrTransferNotInTransit
		}
		if !caller.IsGlobal() && *caller.StoreID != transfer.ToStoreID {
			return ErrTransferWrongStore
		}

		ok, err := s.productRepo.MoveToStore(tx, transfer.ProductID, transfer.ToStoreID, model.ProductTransferring, model.ProductAvailable)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Conflict("product is no longer in transfer")
		}

		now := nowFunc()
		ok, err = s.transferRepo.Complete(tx, transfer.ID, caller.UserID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTransferNotInTransit
		}
		transfer.Status = model.TransferCompleted
		transfer.ReceivedAt = &now
		transfer.ReceivedBy = &caller.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("transfer.received", transfer)
	return transfer, nil
}

// CancelTransfer aborts an in-transit transfer; the product stays in its origin store
func (s *transferService) CancelTransfer(ctx context.Context, caller Caller, transferID uuid.UUID) (*model.ProductTransfer, error) {
	var transfer *model.ProductTransfer
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		transfer, err = s.transferRepo.FindByIDForUpdate(tx, transferID)
		if err != nil {
			return notFound(err, ErrTransferNotFound.Message)
		}
		if err := AuthorizeAnyStore(caller, transfer.FromStoreID, transfer.ToStoreID); err != nil {
			return err
		}
		if transfer.Status != model.TransferInTransit {
			return ErrTransferNotInTransit
		}

		ok, err := s.productRepo.CompareAndSetStatus(tx, transfer.ProductID, []string{model.ProductTransferring}, model.ProductAvailable)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Conflict("product is no longer in transfer")
		}

		ok, err = s.transferRepo.Cancel(tx, transfer.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTransferNotInTransit
		}
		transfer.Status = model.TransferCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("transfer.cancelled", transfer)
	return transfer, nil
}

func (s *transferService) GetTransfer(ctx context.Context, caller Caller, id uuid.UUID) (*model.ProductTransfer, error) {
	transfer, err := s.transferRepo.FindByID(nil, id)
	if err != nil {
		return nil, notFound(err, ErrTransferNotFound.Message)
	}
	if err := AuthorizeAnyStore(caller, transfer.FromStoreID, transfer.ToStoreID); err != nil {
		return nil, err
	}
	return transfer, nil
}

func (s *transferService) ListTransfers(ctx context.Context, caller Caller, filter TransferListFilter) ([]model.ProductTransfer, error) {
	direction := filter.Direction
	switch direction {
	case "", repository.DirectionIncoming, repository.DirectionOutgoing, repository.DirectionAll:
	default:
		return nil, apperror.Validation("direction must be incoming, outgoing or all")
	}
	storeID := scopeFilter(caller, filter.StoreID)
	if caller.IsGlobal() && filter.StoreID != nil && direction == "" {
		direction = repository.DirectionAll
	}

	return s.transferRepo.FindAll(repository.TransferFilter{
		StoreID:   storeID,
		Direction: direction,
		Status:    filter.Status,
		Page:      filter.Page,
	})
}

func (s *transferService) publish(event string, t *model.ProductTransfer) {
	s.notifier.Publish(event, []uuid.UUID{t.FromStoreID, t.ToStoreID}, map[string]interface{}{
		"id":            t.ID,
		"product_id":    t.ProductID,
		"from_store_id": t.FromStoreID,
		"to_store_id":   t.ToStoreID,
		"status":        t.Status,
	})
}
