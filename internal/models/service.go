package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service is a registered x402 service in the marketplace.
type Service struct {
	// ServiceID is generated by the repository on creation.
	ServiceID string `json:"service_id" gorm:"column:service_id;type:char(36);primaryKey"`
	// ProviderID is the user who registered the service.
	ProviderID string `json:"provider_id" gorm:"column:provider_id;index;not null"`
	AgentID    string `json:"agent_id,omitempty" gorm:"column:agent_id"`

	ServiceName        string `json:"service_name" gorm:"column:service_name;not null"`
	ServiceDescription string `json:"service_description" gorm:"column:service_description;type:text"`
	ServiceURL         string `json:"service_url" gorm:"column:service_url;not null"`

	Price      decimal.Decimal `json:"price" gorm:"column:price;type:numeric(20,6);not null"`
	PriceToken string          `json:"price_token" gorm:"column:price_token;not null"`
	// PaymentAddress is the wallet that receives payments for this service.
	PaymentAddress string `json:"payment_address" gorm:"column:payment_address;not null"`

	ServiceCategory string  `json:"service_category,omitempty" gorm:"column:service_category;index"`
	Tags            JSONMap `json:"tags,omitempty" gorm:"column:tags;type:jsonb"`

	TotalCalls int  `json:"total_calls" gorm:"column:total_calls;default:0"`
	IsActive   bool `json:"is_active" gorm:"column:is_active;default:true;index"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName maps the entity to the x402_services table.
func (Service) TableName() string {
	return "x402_services"
}
