// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-meal-backend/internal/domain"
)

// KindStats returns the number of entities of kind and the greatest Key among
// them. Keys are never reused, so the pair changes whenever an entity of the
// kind is added or removed.
//
// When the kind has no entities, both values are 0.
func KindStats(ctx context.Context, db *gorm.DB, kind string) (count int64, maxKey int64, err error) {
	q := db.WithContext(ctx).Model(&domain.Entity{}).Where("kind = ?", kind)

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}

	var row struct {
		EntityKey int64
	}
	if err = q.Select("entity_key").Order("entity_key DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return count, row.EntityKey, nil
}
