package service

import (
	"context"
	"strings"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound = apperror.NotFound("category not found")
	ErrParentNotFound   = apperror.NotFound("parent category not found")
	ErrCategoryCycle    = apperror.Validation("a category cannot be its own parent or descendant")
	ErrCategoryInUse    = apperror.Validation("category has products or subcategories and cannot be deleted")
)

type CategoryService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	CreateCategory(ctx context.Context, req *CategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type CategoryRequest struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categoryRepo.FindAll()
}

func (s *categoryService) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound.Message)
	}
	return category, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, req *CategoryRequest) (*model.Category, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if _, err := s.categoryRepo.FindByID(*req.ParentID); err != nil {
			return nil, notFound(err, ErrParentNotFound.Message)
		}
	}

	category := &model.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, category.ID)
}

func (s *categoryService) UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest) (*model.Category, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound.Message)
	}
	if req.ParentID != nil {
		if err := s.checkParent(id, *req.ParentID); err != nil {
			return nil, err
		}
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	category.ParentID = req.ParentID
	if err := s.categoryRepo.Update(category); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, id)
}

// checkParent walks up from the new parent; reaching id means the move would close a loop
func (s *categoryService) checkParent(id, parentID uuid.UUID) error {
	if parentID == id {
		return ErrCategoryCycle
	}
	all, err := s.categoryRepo.FindAll()
	if err != nil {
		return err
	}
	parents := make(map[uuid.UUID]*uuid.UUID, len(all))
	for _, c := range all {
		parents[c.ID] = c.ParentID
	}
	if _, ok := parents[parentID]; !ok {
		return ErrParentNotFound
	}

	seen := map[uuid.UUID]bool{}
	for cur := &parentID; cur != nil && !seen[*cur]; cur = parents[*cur] {
		if *cur == id {
			return ErrCategoryCycle
		}
		seen[*cur] = true
	}
	return nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	children, err := s.categoryRepo.CountChildren(id)
	if err != nil {
		return err
	}
	if children > 0 {
		return ErrCategoryInUse
	}
	// products still pointing at the category surface as a foreign key violation
	if err := s.categoryRepo.Delete(id); err != nil {
		return dbError(notFound(err, ErrCategoryNotFound.Message), "", ErrCategoryInUse.Message)
	}
	return nil
}
