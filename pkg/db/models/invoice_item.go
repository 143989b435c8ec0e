package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceItem is a single invoice line. GTUCode is the optional Polish
// goods/services classification emitted into the FA document when present.
type InvoiceItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Qty       decimal.Decimal `gorm:"column:qty;type:numeric(14,4);not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	VATRate   decimal.Decimal `gorm:"column:vat_rate;type:numeric(5,2);not null"`
	GTUCode   *string         `gorm:"column:gtu_code"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }
