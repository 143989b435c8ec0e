package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the read-only snapshot the submission pipeline renders from.
// The CRUD surface that creates and mutates invoices lives outside this
// service; the pipeline only ever selects.
type Invoice struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number        string          `gorm:"column:number;not null"`
	IssueDate     time.Time       `gorm:"column:issue_date;type:date;not null"`
	Currency      string          `gorm:"column:currency;size:3;not null"`
	TotalGross    decimal.Decimal `gorm:"column:total_gross;type:numeric(14,2);not null"`
	TotalVAT      decimal.Decimal `gorm:"column:total_vat;type:numeric(14,2);not null"`
	SellerNIP     string          `gorm:"column:seller_nip"`
	SellerName    string          `gorm:"column:seller_name"`
	SellerAddress string          `gorm:"column:seller_address"`
	BuyerNIP      string          `gorm:"column:buyer_nip"`
	BuyerName     string          `gorm:"column:buyer_name"`
	BuyerAddress  string          `gorm:"column:buyer_address"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID"`
}

func (Invoice) TableName() string { return "invoices" }
