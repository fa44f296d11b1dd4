package catalog

import (
	"context"
	"errors"
	"fmt"

	"cadenza/pkg/models"
)

// CategoryDetail is a category together with its albums.
type CategoryDetail struct {
	models.Category
	Albums []models.Album `json:"albums"`
}

// ListCategories returns every category ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// GetCategory returns a category with the albums filed under it.
func (s *Service) GetCategory(ctx context.Context, id string) (*CategoryDetail, error) {
	if !s.store.ValidID(id) {
		return nil, invalidID("id", "Invalid category ID format")
	}

	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "Category not found")
	}

	albums, err := s.store.ListAlbumsByCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list category albums: %w", err)
	}
	for i := range albums {
		albums[i].Visual = models.ResolveAlbumVisual(albums[i].Image, albums[i].BackgroundColor)
	}
	if albums == nil {
		albums = []models.Album{}
	}

	return &CategoryDetail{Category: *category, Albums: albums}, nil
}

// resolveCategory finds a category by name, creating it when missing. A
// concurrent create that loses the unique index race re-reads the winner.
func (s *Service) resolveCategory(ctx context.Context, name string) (*models.Category, error) {
	if category, ok := s.categories.GetCategory(name); ok {
		return category, nil
	}

	category, err := s.store.GetCategoryByName(ctx, name)
	if err == nil {
		s.categories.SetCategory(category)
		return category, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	category = &models.Category{Name: name}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		category, err = s.store.GetCategoryByName(ctx, name)
		if err != nil {
			return nil, err
		}
	} else {
		s.logger.WithField("category", name).Info("Category created")
	}

	s.categories.SetCategory(category)
	return category, nil
}

func (s *Service) categoryIndex(ctx context.Context) (map[string]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	index := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		index[c.ID] = c
	}
	return index, nil
}
