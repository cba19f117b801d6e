// Package services – MealService
//
// This file implements MealService, the component that turns the path
// fragment following the meal base path into a retrieval action and runs it
// against the datastore:
//
//   - ""          → list every meal in store order
//   - "/<digits>" → fetch the single meal with that id
//   - anything else is rejected with ErrBadPath
//
// The service is read-only and stateless apart from the injected Datastore,
// so it is safe for concurrent use. All public methods are
// OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-meal-backend/internal/domain"
)

// Datastore is the storage capability required by MealService. Queries must
// return entities in the store's iteration order.
type Datastore interface {
	// QueryByField returns all entities of kind whose property field equals value.
	QueryByField(ctx context.Context, kind, field string, value any) ([]domain.Entity, error)

	// QueryAll returns every entity of kind.
	QueryAll(ctx context.Context, kind string) ([]domain.Entity, error)

	// KindStats returns the entity count of kind and its greatest key.
	KindStats(ctx context.Context, kind string) (count int64, maxKey int64, err error)
}

// Action is the retrieval selected by a path fragment.
type Action int

const (
	// ActionListAll lists every meal.
	ActionListAll Action = iota
	// ActionGetByID fetches one meal by id.
	ActionGetByID
)

// String implements fmt.Stringer.
func (a Action) String() string {
	switch a {
	case ActionListAll:
		return "list_all"
	case ActionGetByID:
		return "get_by_id"
	default:
		return "unknown"
	}
}

// Outcome is the successful result of Resolve. Meal is set for
// ActionGetByID, Meals (never nil) for ActionListAll.
type Outcome struct {
	Action Action
	Meal   *domain.Meal
	Meals  []domain.Meal
}

// pathIDRE matches "/" followed by one or more ASCII digits and nothing else.
var pathIDRE = regexp.MustCompile(`^/([0-9]+)$`)

// ParsePath maps a path fragment to an action. For ActionGetByID the parsed
// id is returned as well.
func ParsePath(fragment string) (Action, int64, error) {
	if fragment == "" {
		return ActionListAll, 0, nil
	}
	m := pathIDRE.FindStringSubmatch(fragment)
	if m == nil {
		return 0, 0, ErrBadPath
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		// Only overflow can fail here.
		return 0, 0, fmt.Errorf("%w: id out of range", ErrBadPath)
	}
	return ActionGetByID, id, nil
}

// MealService resolves meal lookups against a Datastore.
type MealService struct {
	Store Datastore
}

// NewMealService constructs a MealService over store.
func NewMealService(store Datastore) *MealService {
	return &MealService{Store: store}
}

// Resolve validates fragment, dispatches to Get or List and wraps the result.
func (s *MealService) Resolve(ctx context.Context, fragment string) (Outcome, error) {
	tr := otel.Tracer("services/MealService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("meal.path", fragment)),
	)
	defer span.End()

	action, id, err := ParsePath(fragment)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	span.SetAttributes(attribute.String("meal.action", action.String()))

	switch action {
	case ActionGetByID:
		m, err := s.Get(ctx, id)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Action: ActionGetByID, Meal: &m}, nil
	default:
		meals, err := s.List(ctx)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Action: ActionListAll, Meals: meals}, nil
	}
}

// Get returns the single meal stored under id.
//
// Zero matches and a match that cannot be materialized both yield
// ErrMealNotFound. More than one match yields ErrDuplicateMealID.
func (s *MealService) Get(ctx context.Context, id int64) (domain.Meal, error) {
	tr := otel.Tracer("services/MealService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("meal.id", id)),
	)
	defer span.End()

	entities, err := s.Store.QueryByField(ctx, domain.KindMeal, domain.PropID, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return domain.Meal{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	span.SetAttributes(attribute.Int("meal.matches", len(entities)))

	switch len(entities) {
	case 0:
		return domain.Meal{}, ErrMealNotFound
	case 1:
	default:
		span.SetStatus(codes.Error, ErrDuplicateMealID.Error())
		return domain.Meal{}, fmt.Errorf("%w: %d entities share id %d", ErrDuplicateMealID, len(entities), id)
	}

	m, err := domain.MealFromEntity(entities[0])
	if err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Int64("meal_id", id).
			Int64("entity_key", entities[0].Key).
			Msg("unreadable meal entity")
		return domain.Meal{}, ErrMealNotFound
	}
	return m, nil
}

// List returns every valid meal in store order. Entities that cannot be
// materialized are skipped.
func (s *MealService) List(ctx context.Context) ([]domain.Meal, error) {
	tr := otel.Tracer("services/MealService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()

	entities, err := s.Store.QueryAll(ctx, domain.KindMeal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	out := make([]domain.Meal, 0, len(entities))
	skipped := 0
	for _, e := range entities {
		m, err := domain.MealFromEntity(e)
		if err != nil {
			skipped++
			if !errors.Is(err, domain.ErrSentinelMeal) {
				zerolog.Ctx(ctx).Warn().
					Err(err).
					Int64("entity_key", e.Key).
					Msg("skipping unreadable meal entity")
			}
			continue
		}
		out = append(out, m)
	}
	span.SetAttributes(
		attribute.Int("meal.count", len(out)),
		attribute.Int("meal.skipped", skipped),
	)
	return out, nil
}

// ListETag returns a weak ETag describing the current set of stored meals.
// It changes whenever a meal entity is added or removed.
func (s *MealService) ListETag(ctx context.Context) (string, error) {
	count, maxKey, err := s.Store.KindStats(ctx, domain.KindMeal)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	return fmt.Sprintf(`W/"meals:%d:%d"`, count, maxKey), nil
}
