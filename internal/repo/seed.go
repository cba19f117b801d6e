// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file loads meal seed files (YAML) and writes them into
// the entity store.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/go-meal-backend/internal/domain"
)

// ErrInvalidSeed is returned when a seed file is malformed or would break the
// one-meal-per-id invariant.
var ErrInvalidSeed = errors.New("invalid seed")

// SeedFile is the on-disk seed format.
//
//	meals:
//	  - id: 1
//	    title: Fried potato
//	    description: Fried potato with mushrooms and onion.
//	    ingredients: [potato, onion, oil]
//	    type: Main
type SeedFile struct {
	Meals []domain.Meal `yaml:"meals"`
}

// ReadSeed decodes a seed document, NFC-normalizes its text and validates it:
// ids must be non-negative and unique, and the sentinel record is rejected.
func ReadSeed(r io.Reader) ([]domain.Meal, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	seen := make(map[int64]struct{}, len(f.Meals))
	out := make([]domain.Meal, 0, len(f.Meals))
	for i, m := range f.Meals {
		m = normalizeMeal(m)
		switch {
		case m.ID < 0:
			return nil, fmt.Errorf("%w: meal #%d has negative id %d", ErrInvalidSeed, i, m.ID)
		case m.IsSentinel():
			return nil, fmt.Errorf("%w: meal #%d is empty", ErrInvalidSeed, i)
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate meal id %d", ErrInvalidSeed, m.ID)
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

// ReadSeedFile opens path and decodes it with ReadSeed.
func ReadSeedFile(path string) ([]domain.Meal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSeed(f)
}

// SeedMeals stores meals as entities in a single transaction, preserving the
// slice order as store order. With replace, existing meals are deleted first.
// Without replace, a meal whose id is already stored is rejected so seeding
// never introduces duplicate ids.
func SeedMeals(ctx context.Context, db *gorm.DB, meals []domain.Meal, replace bool) (int, error) {
	n := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replace {
			if _, err := DeleteKind(ctx, tx, domain.KindMeal); err != nil {
				return err
			}
		}
		for _, m := range meals {
			if !replace {
				existing, err := QueryByField(ctx, tx, domain.KindMeal, domain.PropID, m.ID)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return fmt.Errorf("%w: meal id %d already stored", ErrInvalidSeed, m.ID)
				}
			}
			if _, err := PutEntity(ctx, tx, domain.EntityFromMeal(m)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func normalizeMeal(m domain.Meal) domain.Meal {
	ingredients := make([]string, len(m.Ingredients))
	for i, s := range m.Ingredients {
		ingredients[i] = norm.NFC.String(s)
	}
	return domain.NewMeal(
		m.ID,
		norm.NFC.String(m.Title),
		norm.NFC.String(m.Description),
		ingredients,
		norm.NFC.String(m.Type),
	)
}
