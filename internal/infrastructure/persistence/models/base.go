package models

import (
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel is the id and timestamp columns shared by every row.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) ToEntity() shared.Entity {
	return shared.Entity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) FromEntity(e shared.Entity) {
	*m = BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// AggregateModel adds the optimistic-lock version. Account balance updates
// and sale status changes bump it with a WHERE version = ? guard.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func (m *AggregateModel) FromAggregate(a shared.Aggregate) {
	m.FromEntity(a.Entity)
	m.Version = a.Version
}

// ToAggregate carries no pending events; those live only between
// the mutation and the outbox write.
func (m *AggregateModel) ToAggregate() shared.Aggregate {
	return shared.Aggregate{Entity: m.BaseModel.ToEntity(), Version: m.Version}
}

// AllModels lists every model owned by the schema, in dependency order
func AllModels() []any {
	return []any{
		&AccountModel{},
		&PostingModel{},
		&CustomerModel{},
		&ProductModel{},
		&CurrencyRateModel{},
		&SaleModel{},
		&LineItemModel{},
		&ReturnModel{},
		&OutboxEntryModel{},
	}
}
