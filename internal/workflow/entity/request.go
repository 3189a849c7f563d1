package entity

import "time"

// ServiceRequest 服务采购需求单
type ServiceRequest struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	Code      string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Title     string `json:"title" gorm:"size:200;not null"`
	Type      string `json:"type" gorm:"size:20;not null"`                // single/multi/team/work_contract
	Status    string `json:"status" gorm:"size:30;default:draft;index"`   // 见下方状态常量
	CreatedBy string `json:"created_by" gorm:"size:64;not null;index"`    // PM用户名，所有者，不可变

	// 需求内容（DRAFT状态下可编辑，reactivate保留）
	Roles              RoleDemands          `json:"roles" gorm:"type:jsonb"`
	RequiredLanguages  LanguageRequirements `json:"required_languages" gorm:"type:jsonb"`
	MustHaveCriteria   StringArray          `json:"must_have_criteria" gorm:"type:jsonb"`
	NiceToHaveCriteria StringArray          `json:"nice_to_have_criteria" gorm:"type:jsonb"`

	// 竞标参数
	MaxOffers         int `json:"max_offers" gorm:"default:0"`          // <=0 不限
	MaxAcceptedOffers int `json:"max_accepted_offers" gorm:"default:1"`
	BiddingCycleDays  int `json:"bidding_cycle_days" gorm:"default:14"`

	RecommendedOfferID *string `json:"recommended_offer_id" gorm:"size:32"`

	// 流转审计轨迹（仅记录，不作为状态判断依据；reactivate清空）
	SubmittedAt      *time.Time `json:"submitted_at"`
	SubmittedBy      *string    `json:"submitted_by" gorm:"size:64"`
	RPApprovedAt     *time.Time `json:"rp_approved_at"`
	RPApprovedBy     *string    `json:"rp_approved_by" gorm:"size:64"`
	RPRejectedAt     *time.Time `json:"rp_rejected_at"`
	RPRejectedBy     *string    `json:"rp_rejected_by" gorm:"size:64"`
	RPRejectedReason *string    `json:"rp_rejected_reason" gorm:"type:text"`
	BiddingStartedAt *time.Time `json:"bidding_started_at"`
	BiddingStartedBy *string    `json:"bidding_started_by" gorm:"size:64"`
	BidEvaluationAt  *time.Time `json:"bid_evaluation_at"`
	RecommendedAt    *time.Time `json:"recommended_at"`
	RecommendedBy    *string    `json:"recommended_by" gorm:"size:64"`
	SentToPoAt       *time.Time `json:"sent_to_po_at"`
	SentToPoBy       *string    `json:"sent_to_po_by" gorm:"size:64"`
	OrderedAt        *time.Time `json:"ordered_at"`
	OrderedBy        *string    `json:"ordered_by" gorm:"size:64"`
	OrderID          *string    `json:"order_id" gorm:"size:64"`
	ExpiredAt        *time.Time `json:"expired_at"`
	ReactivatedAt    *time.Time `json:"reactivated_at"`
	ReactivatedBy    *string    `json:"reactivated_by" gorm:"size:64"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ServiceRequest) TableName() string {
	return "workflow_service_requests"
}

// 需求单状态
const (
	StatusDraft                 = "draft"
	StatusInReview              = "in_review"
	StatusApprovedForSubmission = "approved_for_submission"
	StatusBidding               = "bidding"
	StatusBidEvaluation         = "bid_evaluation"
	StatusRecommended           = "recommended"
	StatusSentToPo              = "sent_to_po"
	StatusOrdered               = "ordered"
	StatusRejected              = "rejected"
	StatusExpired               = "expired"
)

// 需求单类型
const (
	RequestTypeSingle       = "single"
	RequestTypeMulti        = "multi"
	RequestTypeTeam         = "team"
	RequestTypeWorkContract = "work_contract"
)

// Statuses 全部合法状态
var Statuses = []string{
	StatusDraft,
	StatusInReview,
	StatusApprovedForSubmission,
	StatusBidding,
	StatusBidEvaluation,
	StatusRecommended,
	StatusSentToPo,
	StatusOrdered,
	StatusRejected,
	StatusExpired,
}

// BiddingDeadline 投标窗口截止时间；未开标返回零值
func (r *ServiceRequest) BiddingDeadline() time.Time {
	if r.BiddingStartedAt == nil || r.BiddingCycleDays <= 0 {
		return time.Time{}
	}
	return r.BiddingStartedAt.Add(time.Duration(r.BiddingCycleDays) * 24 * time.Hour)
}

// BiddingWindowElapsed 投标窗口是否已过期
func (r *ServiceRequest) BiddingWindowElapsed(now time.Time) bool {
	deadline := r.BiddingDeadline()
	if deadline.IsZero() {
		return false
	}
	return now.After(deadline)
}

// RoleDemand 角色需求行
type RoleDemand struct {
	Domain          string  `json:"domain"`
	RoleName        string  `json:"role_name"`
	Technology      string  `json:"technology"`
	ExperienceLevel string  `json:"experience_level"` // junior/intermediate/senior/expert
	ManDays         float64 `json:"man_days"`
	OnsiteDays      float64 `json:"onsite_days"`
}

// LanguageRequirement 语言要求
type LanguageRequirement struct {
	Language string `json:"language"`
	Level    string `json:"level"` // A1..C2/native
}
