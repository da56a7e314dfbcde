package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

// ListProducts возвращает товары каталога, а при непустом categorySlug только одной категории.
func (s *Service) ListProducts(ctx context.Context, categorySlug string) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, categorySlug)
}

// GetProduct возвращает товар по идентификатору в любом из поддерживаемых форматов.
func (s *Service) GetProduct(ctx context.Context, rawID string) (*model.Product, error) {
	id, err := validation.ParseObjectID(rawID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct проверяет и сохраняет новый товар.
func (s *Service) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := validation.ValidateProduct(p); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, &validation.FieldError{Field: "category", Reason: "category not found"}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateCategories(ctx); err != nil {
			s.logger.Warn("invalidate category cache", zap.Error(err))
		}
	}

	return created, nil
}

// ListCategories возвращает все категории, по возможности из кэша.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	if s.cache != nil {
		categories, ok, err := s.cache.GetCategories(ctx)
		if err != nil {
			s.logger.Warn("read category cache", zap.Error(err))
		}
		if ok {
			return categories, nil
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetCategories(ctx, categories); err != nil {
			s.logger.Warn("write category cache", zap.Error(err))
		}
	}

	return categories, nil
}

// GetCategory возвращает категорию по slug.
func (s *Service) GetCategory(ctx context.Context, slug string) (*model.Category, error) {
	return s.repo.GetCategoryBySlug(ctx, slug)
}
