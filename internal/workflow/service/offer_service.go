package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bitfantasy/procurehub/internal/notify"
	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"github.com/bitfantasy/procurehub/internal/workflow/rbac"
	"github.com/bitfantasy/procurehub/internal/workflow/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OfferService 报价登记
type OfferService struct {
	stores   *repository.Stores
	requests *RequestService
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// SubmitOfferInput 供应商报价内容
type SubmitOfferInput struct {
	ProviderName  string             `json:"provider_name"`
	OfferTitle    string             `json:"offer_title"`
	Price         float64            `json:"price"`
	Currency      string             `json:"currency"`
	DeliveryDays  int                `json:"delivery_days"`
	DeliveryRisk  string             `json:"delivery_risk"`
	RolesProvided entity.RoleDemands `json:"roles_provided"`
	Notes         string             `json:"notes"`
}

func (in *SubmitOfferInput) validate() error {
	if in.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "price must be positive"}
	}
	if in.DeliveryDays < 0 {
		return &ValidationError{Field: "delivery_days", Reason: "must not be negative"}
	}
	return nil
}

// Submit 供应商提交报价。状态、配额与重复策略由存储层在同一临界区内裁决；
// 达到配额或窗口已过时顺势迁入bid_evaluation
func (s *OfferService) Submit(ctx context.Context, actor Actor, requestID string, input SubmitOfferInput) (*entity.Offer, error) {
	if err := rbac.Check(actor.Role, rbac.ActionSubmitOffer, actor.Username, ""); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	// 不经过惰性过期读取：窗口刚过但仍在bidding的需求单按规则接受该报价
	req, err := s.stores.Request.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "EUR"
	}
	offer := &entity.Offer{
		ID:               uuid.New().String()[:32],
		RequestID:        req.ID,
		ProviderUsername: actor.Username,
		ProviderName:     input.ProviderName,
		OfferTitle:       input.OfferTitle,
		Price:            input.Price,
		Currency:         currency,
		DeliveryDays:     input.DeliveryDays,
		DeliveryRisk:     input.DeliveryRisk,
		RolesProvided:    input.RolesProvided,
		Notes:            input.Notes,
	}

	count, err := s.stores.Offer.InsertIfUnderQuota(ctx, req, offer)
	if err != nil {
		return nil, err
	}

	s.logOfferActivity(ctx, req, offer, actor)
	s.notifier.Publish(ctx, notify.Event{
		Type:       notify.EventOfferSubmitted,
		RequestID:  req.ID,
		Code:       req.Code,
		ToStatus:   entity.StatusBidding,
		Actor:      actor.Username,
		OfferID:    offer.ID,
		OccurredAt: s.now(),
	})
	s.logger.Info("offer submitted",
		zap.String("request_id", req.ID),
		zap.String("offer_id", offer.ID),
		zap.String("provider", actor.Username),
		zap.Int("count", count))

	quotaReached := req.MaxOffers > 0 && count >= req.MaxOffers
	if quotaReached || req.BiddingWindowElapsed(s.now()) {
		s.closeBidding(ctx, req)
	}
	return offer, nil
}

// closeBidding bidding → bid_evaluation。并发下输掉CAS视为已关闭
func (s *OfferService) closeBidding(ctx context.Context, req *entity.ServiceRequest) {
	ts := s.now()
	updated, err := s.stores.Request.CompareAndSetStatus(ctx, req.ID, entity.StatusBidding, func(r *entity.ServiceRequest) {
		r.Status = entity.StatusBidEvaluation
		r.BidEvaluationAt = &ts
	})
	if err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			s.logger.Warn("close bidding failed", zap.String("request_id", req.ID), zap.Error(err))
		}
		return
	}
	system := Actor{Username: "system", Role: entity.RoleSystemAdmin}
	s.requests.logActivity(ctx, updated, "close_bidding", entity.StatusBidding, entity.StatusBidEvaluation, system, "bidding closed for evaluation")
}

// Get 读取单个报价
func (s *OfferService) Get(ctx context.Context, id string) (*entity.Offer, error) {
	return s.stores.Offer.FindByID(ctx, id)
}

// ListByRequest 需求单的全部报价，按提交顺序
func (s *OfferService) ListByRequest(ctx context.Context, requestID string) ([]entity.Offer, error) {
	if _, err := s.stores.Request.FindByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.stores.Offer.ListByRequest(ctx, requestID)
}

func (s *OfferService) logOfferActivity(ctx context.Context, req *entity.ServiceRequest, offer *entity.Offer, actor Actor) {
	log := &entity.ActivityLog{
		ID:               uuid.New().String()[:32],
		EntityType:       "request",
		EntityID:         req.ID,
		EntityCode:       req.Code,
		Action:           string(rbac.ActionSubmitOffer),
		FromStatus:       entity.StatusBidding,
		ToStatus:         entity.StatusBidding,
		Content:          "offer submitted",
		Metadata:         entity.JSONB{"offer_id": offer.ID, "provider": offer.ProviderUsername},
		OperatorID:       actor.UserID,
		OperatorUsername: actor.Username,
	}
	if err := s.stores.ActivityLog.Create(ctx, log); err != nil {
		s.logger.Warn("write activity log failed", zap.String("request_id", req.ID), zap.Error(err))
	}
}
