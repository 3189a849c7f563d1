package entity

import "time"

// ActivityLog 工作流操作日志（仅追加，不参与状态判断）
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_wf_activity_entity"` // request/offer/evaluation
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_wf_activity_entity"`
	EntityCode string `json:"entity_code" gorm:"size:50"`

	Action     string `json:"action" gorm:"size:50;not null"` // submit_for_review/rp_approve/...
	FromStatus string `json:"from_status" gorm:"size:30"`
	ToStatus   string `json:"to_status" gorm:"size:30"`

	Content  string `json:"content" gorm:"type:text"`
	Metadata JSONB  `json:"metadata" gorm:"type:jsonb"`

	OperatorID       string    `json:"operator_id" gorm:"size:32"`
	OperatorUsername string    `json:"operator_username" gorm:"size:64"`
	CreatedAt        time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "workflow_activity_logs"
}
