// Package domain defines the persistence models and typed records of the meal
// backend. Storage is modelled as a kind-partitioned entity store: every row
// is an Entity with a Kind and a free-form property bag, mapped with GORM.
// Typed records such as Meal are materialized from entities through explicit,
// fallible mapping functions.
package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Entity is a single stored row of the datastore.
//
// Fields:
//   - Key: auto-increment primary key; ascending Key is the store iteration order.
//   - Kind: datastore kind (the table/collection equivalent), e.g. "Meal".
//   - Properties: property bag persisted as a JSON object.
//   - CreatedAt: timestamp managed by GORM.
type Entity struct {
	Key        int64      `json:"key"        gorm:"column:entity_key;primaryKey;autoIncrement"`
	Kind       string     `json:"kind"       gorm:"type:varchar(64);not null;index:idx_entities_kind"`
	Properties Properties `json:"properties" gorm:"type:text;not null"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName returns the database table name for Entity.
func (Entity) TableName() string { return "entities" }

// Properties is the dynamic property bag of an Entity. Numbers decode as
// json.Number so 64-bit integers survive a round trip through storage.
type Properties map[string]any

// Value implements driver.Valuer.
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Properties) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = Properties{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("properties: unsupported scan type %T", src)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	m := map[string]any{}
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("properties: %w", err)
	}
	*p = m
	return nil
}
