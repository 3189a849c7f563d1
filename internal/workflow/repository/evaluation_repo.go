package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"gorm.io/gorm"
)

// EvaluationRepository 评估文档数据访问
type EvaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Upsert 按 (request_id, evaluator_role) 整体覆盖保存
func (r *EvaluationRepository) Upsert(ctx context.Context, eval *entity.Evaluation) error {
	var existing entity.Evaluation
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND evaluator_role = ?", eval.RequestID, eval.EvaluatorRole).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(eval).Error
		}
		return err
	}
	eval.ID = existing.ID
	eval.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(eval).Error
}

func (r *EvaluationRepository) FindByRequest(ctx context.Context, requestID, evaluatorRole string) (*entity.Evaluation, error) {
	var eval entity.Evaluation
	if err := r.db.WithContext(ctx).
		Where("request_id = ? AND evaluator_role = ?", requestID, evaluatorRole).
		First(&eval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &eval, nil
}
