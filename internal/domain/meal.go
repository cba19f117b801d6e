package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// KindMeal is the datastore kind under which meals are stored.
const KindMeal = "Meal"

// Property names of a Meal entity.
const (
	PropID          = "id"
	PropTitle       = "title"
	PropDescription = "description"
	PropIngredients = "ingredients"
	PropType        = "type"
)

var (
	// ErrInvalidEntity is returned when an entity cannot be materialized into
	// a typed record (missing property, wrong type, wrong kind).
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrSentinelMeal marks the all-empty meal with id 0. It wraps
	// ErrInvalidEntity: such a record is an artifact of malformed storage.
	ErrSentinelMeal = fmt.Errorf("%w: sentinel meal", ErrInvalidEntity)
)

// Meal is a dish record. The JSON field order matches the public API shape:
//
//	{"id":2,"title":"Chocolate cake","description":"…","ingredients":["flour"],"type":"Dessert"}
type Meal struct {
	ID          int64    `json:"id"          yaml:"id"`
	Title       string   `json:"title"       yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Ingredients []string `json:"ingredients" yaml:"ingredients"`
	Type        string   `json:"type"        yaml:"type"`
}

// NewMeal builds a Meal that owns its ingredient slice.
func NewMeal(id int64, title, description string, ingredients []string, typ string) Meal {
	return Meal{
		ID:          id,
		Title:       title,
		Description: description,
		Ingredients: cloneStrings(ingredients),
		Type:        typ,
	}
}

// IsSentinel reports whether m is the all-empty record with id 0.
func (m Meal) IsSentinel() bool {
	return m.ID == 0 &&
		m.Title == "" &&
		m.Description == "" &&
		m.Type == "" &&
		len(m.Ingredients) == 0
}

// MarshalJSON keeps "ingredients" an array even when empty.
func (m Meal) MarshalJSON() ([]byte, error) {
	type plain Meal
	p := plain(m)
	if p.Ingredients == nil {
		p.Ingredients = []string{}
	}
	return json.Marshal(p)
}

// EntityFromMeal converts a Meal into its storage representation.
func EntityFromMeal(m Meal) Entity {
	return Entity{
		Kind: KindMeal,
		Properties: Properties{
			PropID:          m.ID,
			PropTitle:       m.Title,
			PropDescription: m.Description,
			PropIngredients: cloneStrings(m.Ingredients),
			PropType:        m.Type,
		},
	}
}

// MealFromEntity materializes a Meal from a stored entity. It fails with an
// error wrapping ErrInvalidEntity when the kind is wrong, a property is
// missing or mistyped, or the result is the sentinel record.
func MealFromEntity(e Entity) (Meal, error) {
	if e.Kind != KindMeal {
		return Meal{}, fmt.Errorf("%w: kind %q is not %q", ErrInvalidEntity, e.Kind, KindMeal)
	}
	p := e.Properties

	id, err := intProp(p, PropID)
	if err != nil {
		return Meal{}, err
	}
	if id < 0 {
		return Meal{}, fmt.Errorf("%w: property %q is negative", ErrInvalidEntity, PropID)
	}
	title, err := stringProp(p, PropTitle)
	if err != nil {
		return Meal{}, err
	}
	desc, err := stringProp(p, PropDescription)
	if err != nil {
		return Meal{}, err
	}
	ingredients, err := stringsProp(p, PropIngredients)
	if err != nil {
		return Meal{}, err
	}
	typ, err := stringProp(p, PropType)
	if err != nil {
		return Meal{}, err
	}

	m := Meal{ID: id, Title: title, Description: desc, Ingredients: ingredients, Type: typ}
	if m.IsSentinel() {
		return Meal{}, ErrSentinelMeal
	}
	return m, nil
}

func intProp(p Properties, name string) (int64, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return 0, missing(name)
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, mistyped(name, "an integer")
		}
		return i, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || n >= 1<<63 || n < -(1<<63) {
			return 0, mistyped(name, "an integer")
		}
		return int64(n), nil
	default:
		return 0, mistyped(name, "an integer")
	}
}

func stringProp(p Properties, name string) (string, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return "", missing(name)
	}
	s, ok := v.(string)
	if !ok {
		return "", mistyped(name, "a string")
	}
	return s, nil
}

func stringsProp(p Properties, name string) ([]string, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, missing(name)
	}
	switch list := v.(type) {
	case []string:
		return cloneStrings(list), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, mistyped(name, "a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, mistyped(name, "a list of strings")
	}
}

func missing(name string) error {
	return fmt.Errorf("%w: property %q is missing", ErrInvalidEntity, name)
}

func mistyped(name, want string) error {
	return fmt.Errorf("%w: property %q is not %s", ErrInvalidEntity, name, want)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
