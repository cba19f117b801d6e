// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the datastore primitives over the
// kind-partitioned entity table.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Ordering: every query returns entities in ascending Key order, which is the
// insertion order of the store. Callers rely on this for deterministic lists.
//
// Functions:
//
//   - PutEntity(ctx, db, e) -> *domain.Entity, error
//   - QueryByField(ctx, db, kind, field, value) -> []domain.Entity, error
//   - QueryAll(ctx, db, kind) -> []domain.Entity, error
//   - DeleteKind(ctx, db, kind) -> int64, error
package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-meal-backend/internal/domain"
)

// ErrInvalidField is returned when a property name is not a plain identifier.
var ErrInvalidField = errors.New("invalid property name")

// fieldRE restricts property names used in JSON path expressions.
var fieldRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PutEntity inserts a new entity. Key is assigned by the store; a non-zero
// Key on input is ignored so every put appends to the iteration order.
func PutEntity(ctx context.Context, db *gorm.DB, e domain.Entity) (*domain.Entity, error) {
	e.Key = 0
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Properties == nil {
		e.Properties = domain.Properties{}
	}
	if err := db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// QueryByField returns all entities of kind whose property field equals value.
// Matching is exact and type-sensitive (integer 1 does not match string "1").
func QueryByField(ctx context.Context, db *gorm.DB, kind, field string, value any) ([]domain.Entity, error) {
	if !fieldRE.MatchString(field) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	var out []domain.Entity
	err := db.WithContext(ctx).
		Where("kind = ? AND json_extract(properties, ?) = ?", kind, "$."+field, value).
		Order("entity_key asc").
		Find(&out).Error
	return out, err
}

// QueryAll returns every entity of kind in store order.
func QueryAll(ctx context.Context, db *gorm.DB, kind string) ([]domain.Entity, error) {
	var out []domain.Entity
	err := db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("entity_key asc").
		Find(&out).Error
	return out, err
}

// DeleteKind removes every entity of kind and returns the number of rows
// deleted.
func DeleteKind(ctx context.Context, db *gorm.DB, kind string) (int64, error) {
	res := db.WithContext(ctx).
		Where("kind = ?", kind).
		Delete(&domain.Entity{})
	return res.RowsAffected, res.Error
}
