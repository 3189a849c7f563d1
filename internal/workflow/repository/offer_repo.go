package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OfferRepository 报价数据访问
type OfferRepository struct {
	db     *gorm.DB
	policy Policy
}

func NewOfferRepository(db *gorm.DB, policy Policy) *OfferRepository {
	return &OfferRepository{db: db, policy: policy}
}

func (r *OfferRepository) InsertIfUnderQuota(ctx context.Context, req *entity.ServiceRequest, offer *entity.Offer) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住父需求单，状态检查与计数插入构成同一临界区
		var locked entity.ServiceRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", req.ID).First(&locked).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if locked.Status != entity.StatusBidding {
			return ErrRequestNotOpen
		}

		var count int64
		if err := tx.Model(&entity.Offer{}).
			Where("request_id = ?", locked.ID).Count(&count).Error; err != nil {
			return err
		}
		if locked.MaxOffers > 0 && int(count) >= locked.MaxOffers {
			return &QuotaExceededError{Max: locked.MaxOffers, Current: int(count)}
		}

		if !r.policy.AllowMultipleOffersPerProvider {
			var dup int64
			if err := tx.Model(&entity.Offer{}).
				Where("request_id = ? AND provider_username = ?", locked.ID, offer.ProviderUsername).
				Count(&dup).Error; err != nil {
				return err
			}
			if dup > 0 {
				return ErrDuplicateOffer
			}
		}

		offer.SortOrder = int(count) + 1
		if err := tx.Create(offer).Error; err != nil {
			return err
		}
		total = int(count) + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *OfferRepository) FindByID(ctx context.Context, id string) (*entity.Offer, error) {
	var offer entity.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &offer, nil
}

func (r *OfferRepository) ListByRequest(ctx context.Context, requestID string) ([]entity.Offer, error) {
	var offers []entity.Offer
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("sort_order ASC").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *OfferRepository) CountByRequest(ctx context.Context, requestID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Offer{}).
		Where("request_id = ?", requestID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
