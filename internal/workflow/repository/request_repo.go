package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository 需求单数据访问
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req *entity.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*entity.ServiceRequest, error) {
	var req entity.ServiceRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ServiceRequest, int64, error) {
	var reqs []entity.ServiceRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ServiceRequest{})

	if status, ok := filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if reqType, ok := filters["type"]; ok && reqType != "" {
		query = query.Where("type = ?", reqType)
	}
	if createdBy, ok := filters["created_by"]; ok && createdBy != "" {
		query = query.Where("created_by = ?", createdBy)
	}
	if search, ok := filters["search"]; ok && search != "" {
		query = query.Where("title ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id").Offset(offset).Limit(pageSize).Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (r *RequestRepository) SaveDraft(ctx context.Context, req *entity.ServiceRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *RequestRepository) CompareAndSetStatus(ctx context.Context, id, expected string, mutate func(*entity.ServiceRequest)) (*entity.ServiceRequest, error) {
	var req entity.ServiceRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if req.Status != expected {
			return ErrConflict
		}
		mutate(&req)
		return tx.Save(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Year()
	var count int64
	prefix := fmt.Sprintf("SR-%d-", year)
	if err := r.db.WithContext(ctx).Model(&entity.ServiceRequest{}).
		Where("code LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}
