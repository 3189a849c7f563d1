package entity

import "time"

// Offer 供应商报价（仅在需求单bidding状态下创建，创建后不可变）
type Offer struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	RequestID string `json:"request_id" gorm:"size:32;not null;index"`

	ProviderUsername string `json:"provider_username" gorm:"size:64;not null;index"`
	ProviderName     string `json:"provider_name" gorm:"size:200"`
	OfferTitle       string `json:"offer_title" gorm:"size:200"`

	// 商务条款
	Price        float64 `json:"price" gorm:"type:decimal(15,2);not null"`
	Currency     string  `json:"currency" gorm:"size:10;default:EUR"`
	DeliveryDays int     `json:"delivery_days" gorm:"default:0"`
	DeliveryRisk string  `json:"delivery_risk" gorm:"size:50"` // low/medium/high 或自由文本

	RolesProvided RoleDemands `json:"roles_provided" gorm:"type:jsonb"`

	Notes             string `json:"notes" gorm:"type:text"`
	EvaluationSummary string `json:"evaluation_summary" gorm:"type:text"`

	// 同一需求单内的提交顺序，评分并列时保持此顺序
	SortOrder int `json:"sort_order" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
}

func (Offer) TableName() string {
	return "workflow_offers"
}
