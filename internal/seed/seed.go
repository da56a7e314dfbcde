// Package seed наполняет пустое хранилище демонстрационным каталогом.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

//go:embed catalog.json
var catalogJSON []byte

// Store описывает операции хранилища, нужные для наполнения каталога.
type Store interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	CountProducts(ctx context.Context) (int, error)
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
}

// Result сообщает, сколько записей было создано.
type Result struct {
	Categories int
	Products   int
	Skipped    bool
}

type catalog struct {
	Categories []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		Image       string `json:"image"`
	} `json:"categories"`
	Products []struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Price       decimal.Decimal `json:"price"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Images      []string        `json:"images"`
		Sizes       []string        `json:"sizes"`
		Colors      []string        `json:"colors"`
		Features    []string        `json:"features"`
		Stock       int             `json:"stock"`
	} `json:"products"`
}

// Run создаёт демонстрационный каталог, если в хранилище ещё нет ни одного товара.
// Категории с уже существующим slug пропускаются.
func Run(ctx context.Context, store Store, logger *zap.Logger) (Result, error) {
	var res Result

	count, err := store.CountProducts(ctx)
	if err != nil {
		return res, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		logger.Info("catalog already contains products, skipping seed", zap.Int("products", count))
		res.Skipped = true
		return res, nil
	}

	var c catalog
	if err := json.Unmarshal(catalogJSON, &c); err != nil {
		return res, fmt.Errorf("decode catalog: %w", err)
	}

	existing, err := store.ListCategories(ctx)
	if err != nil {
		return res, fmt.Errorf("list categories: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, cat := range existing {
		present[cat.ID] = true
	}

	for _, cat := range c.Categories {
		if present[cat.ID] {
			continue
		}
		err := store.CreateCategory(ctx, &model.Category{
			ID:          cat.ID,
			Name:        cat.Name,
			Slug:        cat.Slug,
			Description: cat.Description,
			Image:       cat.Image,
		})
		if err != nil {
			if errors.Is(err, repository.ErrCategoryExists) {
				logger.Warn("category slug already taken, skipping", zap.String("slug", cat.Slug))
				continue
			}
			return res, fmt.Errorf("create category %s: %w", cat.Slug, err)
		}
		res.Categories++
	}

	for _, p := range c.Products {
		_, err := store.CreateProduct(ctx, &model.Product{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Description: p.Description,
			CategoryID:  p.Category,
			Images:      p.Images,
			Sizes:       p.Sizes,
			Colors:      p.Colors,
			Features:    p.Features,
			Stock:       p.Stock,
		})
		if err != nil {
			return res, fmt.Errorf("create product %s: %w", p.Name, err)
		}
		res.Products++
	}

	logger.Info("catalog seeded",
		zap.Int("categories", res.Categories),
		zap.Int("products", res.Products),
	)
	return res, nil
}
