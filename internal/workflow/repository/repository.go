package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict 原子状态写入冲突：期望状态与存储中状态不一致
	ErrConflict = errors.New("status conflict")
	// ErrRequestNotOpen 需求单不在bidding状态，拒绝新报价
	ErrRequestNotOpen = errors.New("request is not open for offers")
	// ErrDuplicateOffer 策略禁止同一供应商重复报价
	ErrDuplicateOffer = errors.New("provider already submitted an offer for this request")
)

// QuotaExceededError 报价数量已达上限
type QuotaExceededError struct {
	Max     int
	Current int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("offer quota exceeded: %d of max %d offers already submitted", e.Current, e.Max)
}

// Policy 报价提交策略
type Policy struct {
	AllowMultipleOffersPerProvider bool
}

// RequestStore 需求单持久化端口
type RequestStore interface {
	Create(ctx context.Context, req *entity.ServiceRequest) error
	FindByID(ctx context.Context, id string) (*entity.ServiceRequest, error)
	FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ServiceRequest, int64, error)
	// SaveDraft 整体保存需求单内容；仅service层在draft状态下调用
	SaveDraft(ctx context.Context, req *entity.ServiceRequest) error
	// CompareAndSetStatus 原子比较并更新：仅当存储中状态等于expected时应用mutate。
	// 状态不符返回ErrConflict，记录保持不变
	CompareAndSetStatus(ctx context.Context, id, expected string, mutate func(*entity.ServiceRequest)) (*entity.ServiceRequest, error)
	GenerateCode(ctx context.Context) (string, error)
}

// OfferStore 报价持久化端口
type OfferStore interface {
	// InsertIfUnderQuota 原子插入：状态、配额、重复策略检查与写入在同一临界区内完成。
	// 成功返回插入后的报价总数
	InsertIfUnderQuota(ctx context.Context, req *entity.ServiceRequest, offer *entity.Offer) (int, error)
	FindByID(ctx context.Context, id string) (*entity.Offer, error)
	ListByRequest(ctx context.Context, requestID string) ([]entity.Offer, error)
	CountByRequest(ctx context.Context, requestID string) (int, error)
}

// EvaluationStore 评估文档持久化端口（整体覆盖式upsert）
type EvaluationStore interface {
	Upsert(ctx context.Context, eval *entity.Evaluation) error
	FindByRequest(ctx context.Context, requestID, evaluatorRole string) (*entity.Evaluation, error)
}

// ActivityLogStore 操作日志持久化端口
type ActivityLogStore interface {
	Create(ctx context.Context, log *entity.ActivityLog) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]entity.ActivityLog, error)
}

// Stores 工作流存储集合
type Stores struct {
	Request     RequestStore
	Offer       OfferStore
	Evaluation  EvaluationStore
	ActivityLog ActivityLogStore
}

// NewRepositories 创建gorm存储集合
func NewRepositories(db *gorm.DB, policy Policy) *Stores {
	return &Stores{
		Request:     NewRequestRepository(db),
		Offer:       NewOfferRepository(db, policy),
		Evaluation:  NewEvaluationRepository(db),
		ActivityLog: NewActivityLogRepository(db),
	}
}
