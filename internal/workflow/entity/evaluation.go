package entity

import "time"

// Evaluation 资源规划师的报价评估文档
// 每个 (request_id, evaluator_role) 只有一份，保存即整体覆盖
type Evaluation struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	RequestID     string `json:"request_id" gorm:"size:32;not null;uniqueIndex:idx_eval_request_role"`
	EvaluatorRole string `json:"evaluator_role" gorm:"size:30;not null;uniqueIndex:idx_eval_request_role"`

	EvaluatorUsername string `json:"evaluator_username" gorm:"size:64"`

	// 原始权重，不要求归一化，计算时按总和归一
	PriceWeight    float64 `json:"price_weight" gorm:"type:decimal(6,3);default:0"`
	DeliveryWeight float64 `json:"delivery_weight" gorm:"type:decimal(6,3);default:0"`
	QualityWeight  float64 `json:"quality_weight" gorm:"type:decimal(6,3);default:0"`

	Comment string `json:"comment" gorm:"type:text"`

	RecommendedOfferID *string `json:"recommended_offer_id" gorm:"size:32"`

	// 保存时刻每个报价的评分行与商务快照
	Offers EvaluationOffers `json:"offers" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Evaluation) TableName() string {
	return "workflow_evaluations"
}

// EvaluationOffer 单个报价的评分行，含商务快照
// 快照保证旧评估在报价记录变更后仍可解读
type EvaluationOffer struct {
	OfferID       string  `json:"offer_id"`
	ScorePrice    float64 `json:"score_price"`    // [0,10]
	ScoreDelivery float64 `json:"score_delivery"` // [0,10]
	ScoreQuality  float64 `json:"score_quality"`  // [0,10]
	TotalScore    float64 `json:"total_score"`    // 保存时根据权重重算，4位小数
	Rank          int     `json:"rank"`

	// 商务快照
	Price            float64 `json:"price"`
	Currency         string  `json:"currency"`
	DeliveryDays     int     `json:"delivery_days"`
	DeliveryRisk     string  `json:"delivery_risk"`
	ProviderName     string  `json:"provider_name"`
	ProviderUsername string  `json:"provider_username"`
	OfferTitle       string  `json:"offer_title"`
}
