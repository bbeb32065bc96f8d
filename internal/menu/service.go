// Package menu serves the read-only menu; items are managed by seeding.
package menu

import (
	"context"

	"github.com/uptrace/bun"

	"browntable/internal/apperr"
	"browntable/internal/models"
)

type Service struct {
	bun *bun.DB
}

func NewService(bunDB *bun.DB) *Service {
	return &Service{bun: bunDB}
}

// Sections returns the available menu grouped by section, preserving the
// section order items were seeded in.
func (s *Service) Sections(ctx context.Context) ([]models.MenuSection, error) {
	var items []models.MenuItem
	err := s.bun.NewSelect().Model(&items).
		Where("is_available = ?", true).
		Order("section ASC", "category ASC", "name ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load menu")
	}

	var sections []models.MenuSection
	index := make(map[string]int)
	for i := range items {
		item := &items[i]
		pos, ok := index[item.Section]
		if !ok {
			pos = len(sections)
			index[item.Section] = pos
			sections = append(sections, models.MenuSection{Title: item.Section})
		}
		sections[pos].Items = append(sections[pos].Items, item)
	}
	return sections, nil
}
