package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/procurehub/internal/notify"
	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"github.com/bitfantasy/procurehub/internal/workflow/fsm"
	"github.com/bitfantasy/procurehub/internal/workflow/rbac"
	"github.com/bitfantasy/procurehub/internal/workflow/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestService 需求单生命周期编排
type RequestService struct {
	stores   *repository.Stores
	notifier notify.Notifier
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

// CreateRequestInput 创建/编辑需求单的内容字段
type CreateRequestInput struct {
	Title              string                      `json:"title"`
	Type               string                      `json:"type"`
	Roles              entity.RoleDemands          `json:"roles"`
	RequiredLanguages  entity.LanguageRequirements `json:"required_languages"`
	MustHaveCriteria   entity.StringArray          `json:"must_have_criteria"`
	NiceToHaveCriteria entity.StringArray          `json:"nice_to_have_criteria"`
	MaxOffers          int                         `json:"max_offers"`
	MaxAcceptedOffers  int                         `json:"max_accepted_offers"`
	BiddingCycleDays   int                         `json:"bidding_cycle_days"`
}

func (in *CreateRequestInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	switch in.Type {
	case entity.RequestTypeSingle, entity.RequestTypeMulti, entity.RequestTypeTeam, entity.RequestTypeWorkContract:
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown request type %q", in.Type)}
	}
	if in.MaxOffers < 0 {
		return &ValidationError{Field: "max_offers", Reason: "must not be negative"}
	}
	if in.MaxAcceptedOffers < 0 {
		return &ValidationError{Field: "max_accepted_offers", Reason: "must not be negative"}
	}
	if in.BiddingCycleDays < 0 {
		return &ValidationError{Field: "bidding_cycle_days", Reason: "must not be negative"}
	}
	return nil
}

// Create 创建草稿需求单
func (s *RequestService) Create(ctx context.Context, actor Actor, input CreateRequestInput) (*entity.ServiceRequest, error) {
	if err := rbac.Check(actor.Role, rbac.ActionCreateRequest, actor.Username, actor.Username); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	code, err := s.stores.Request.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate request code: %w", err)
	}

	req := &entity.ServiceRequest{
		ID:                 uuid.New().String()[:32],
		Code:               code,
		Title:              input.Title,
		Type:               input.Type,
		Status:             entity.StatusDraft,
		CreatedBy:          actor.Username,
		Roles:              input.Roles,
		RequiredLanguages:  input.RequiredLanguages,
		MustHaveCriteria:   input.MustHaveCriteria,
		NiceToHaveCriteria: input.NiceToHaveCriteria,
		MaxOffers:          input.MaxOffers,
		MaxAcceptedOffers:  input.MaxAcceptedOffers,
		BiddingCycleDays:   input.BiddingCycleDays,
	}
	if req.MaxAcceptedOffers == 0 {
		req.MaxAcceptedOffers = 1
	}
	if req.BiddingCycleDays == 0 {
		req.BiddingCycleDays = s.cfg.DefaultBiddingCycleDays
	}

	if err := s.stores.Request.Create(ctx, req); err != nil {
		return nil, err
	}
	s.logActivity(ctx, req, "create", "", entity.StatusDraft, actor, "request created")
	s.logger.Info("request created",
		zap.String("id", req.ID), zap.String("code", req.Code), zap.String("by", actor.Username))
	return req, nil
}

// Update 编辑草稿内容。仅所有者、仅draft状态
func (s *RequestService) Update(ctx context.Context, actor Actor, id string, input CreateRequestInput) (*entity.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rbac.Check(actor.Role, rbac.ActionEditRequest, actor.Username, req.CreatedBy); err != nil {
		return nil, err
	}
	if !fsm.CanEdit(req.Status) {
		return nil, &fsm.InvalidTransitionError{
			Action: rbac.ActionEditRequest, Current: req.Status, Attempted: entity.StatusDraft,
		}
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	req.Title = input.Title
	req.Type = input.Type
	req.Roles = input.Roles
	req.RequiredLanguages = input.RequiredLanguages
	req.MustHaveCriteria = input.MustHaveCriteria
	req.NiceToHaveCriteria = input.NiceToHaveCriteria
	req.MaxOffers = input.MaxOffers
	req.MaxAcceptedOffers = input.MaxAcceptedOffers
	if req.MaxAcceptedOffers == 0 {
		req.MaxAcceptedOffers = 1
	}
	req.BiddingCycleDays = input.BiddingCycleDays
	if req.BiddingCycleDays == 0 {
		req.BiddingCycleDays = s.cfg.DefaultBiddingCycleDays
	}

	if err := s.stores.Request.SaveDraft(ctx, req); err != nil {
		return nil, err
	}
	s.logActivity(ctx, req, "update", entity.StatusDraft, entity.StatusDraft, actor, "draft updated")
	return req, nil
}

// Get 读取需求单；惰性判定投标窗口过期
func (s *RequestService) Get(ctx context.Context, id string) (*entity.ServiceRequest, error) {
	return s.load(ctx, id)
}

// List 分页查询
func (s *RequestService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ServiceRequest, int64, error) {
	return s.stores.Request.FindAll(ctx, page, pageSize, filters)
}

// ActivityLogs 需求单操作日志
func (s *RequestService) ActivityLogs(ctx context.Context, id string) ([]entity.ActivityLog, error) {
	if _, err := s.stores.Request.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.stores.ActivityLog.ListByEntity(ctx, "request", id)
}

// load 读取并惰性过期：bidding状态且窗口已过 → expired
func (s *RequestService) load(ctx context.Context, id string) (*entity.ServiceRequest, error) {
	req, err := s.stores.Request.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == entity.StatusBidding && req.BiddingWindowElapsed(s.now()) {
		return s.expire(ctx, req)
	}
	return req, nil
}

// expire 将过期的bidding需求单原子迁入expired。
// 并发下另一写入先行时保留其结果
func (s *RequestService) expire(ctx context.Context, req *entity.ServiceRequest) (*entity.ServiceRequest, error) {
	ts := s.now()
	updated, err := s.stores.Request.CompareAndSetStatus(ctx, req.ID, entity.StatusBidding, func(r *entity.ServiceRequest) {
		r.Status = entity.StatusExpired
		r.ExpiredAt = &ts
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return s.stores.Request.FindByID(ctx, req.ID)
		}
		return nil, err
	}
	system := Actor{Username: "system", Role: entity.RoleSystemAdmin}
	s.logActivity(ctx, updated, "expire", entity.StatusBidding, entity.StatusExpired, system, "bidding window elapsed")
	s.publish(ctx, notify.EventExpired, updated, system, "")
	return updated, nil
}

// sweepPageSize 过期扫描的分页大小
const sweepPageSize = 200

// SweepExpired 扫描全部bidding需求单并过期超窗的。返回过期数量。
// 先收齐候选再逐条过期，避免边过期边翻页漏掉后移的记录
func (s *RequestService) SweepExpired(ctx context.Context) (int, error) {
	var reqs []entity.ServiceRequest
	for page := 1; ; page++ {
		batch, total, err := s.stores.Request.FindAll(ctx, page, sweepPageSize, map[string]string{"status": entity.StatusBidding})
		if err != nil {
			return 0, err
		}
		reqs = append(reqs, batch...)
		if len(batch) == 0 || int64(len(reqs)) >= total {
			break
		}
	}
	expired := 0
	for i := range reqs {
		if !reqs[i].BiddingWindowElapsed(s.now()) {
			continue
		}
		if _, err := s.expire(ctx, &reqs[i]); err != nil {
			s.logger.Warn("expire sweep failed",
				zap.String("id", reqs[i].ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// SubmitForReview draft → in_review
func (s *RequestService) SubmitForReview(ctx context.Context, actor Actor, id string) (*entity.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == entity.StatusDraft && len(req.Roles) == 0 {
		return nil, &ValidationError{Field: "roles", Reason: "at least one role demand is required before review"}
	}
	ts := s.now()
	return s.transition(ctx, actor, req, rbac.ActionSubmitForReview, notify.EventRequestSubmitted, "submitted for review", wasSubmitted, func(r *entity.ServiceRequest) {
		r.SubmittedAt = &ts
		r.SubmittedBy = &actor.Username
	})
}

// Approve in_review → approved_for_submission（RP放行）
func (s *RequestService) Approve(ctx context.Context, actor Actor, id string) (*entity.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ts := s.now()
	return s.transition(ctx, actor, req, rbac.ActionRPApprove, notify.EventRequestApproved, "approved by resource planner", wasApproved, func(r *entity.ServiceRequest) {
		r.RPApprovedAt = &ts
		r.RPApprovedBy = &actor.Username
	})
}

// Reject in_review → rejected，原因必填
func (s *RequestService) Reject(ctx context.Context, actor Actor, id, reason string) (*entity.ServiceRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Field: "reason", Reason: "rejection reason is required"}
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ts := s.now()
	return s.transition(ctx, actor, req, rbac.ActionRPReject, notify.EventRequestRejected, "rejected: "+reason, wasRejected, func(r *entity.ServiceRequest) {
		r.RPRejectedAt = &ts
		r.RPRejectedBy = &actor.Username
		r.RPRejectedReason = &reason
	})
}

// StartBidding approved_for_submission → bidding，开启投标窗口
func (s *RequestService) StartBidding(ctx context.Context, actor Actor, id string) (*entity.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ts := s.now()
	return s.transition(ctx, actor, req, rbac.ActionStartBidding, notify.EventBiddingStarted, "bidding started", wasBiddingStarted, func(r *entity.ServiceRequest) {
		r.BiddingStartedAt = &ts
		r.BiddingStartedBy = &actor.Username
		if r.BiddingCycleDays <= 0 {
			r.BiddingCycleDays = s.cfg.DefaultBiddingCycleDays
		}
	})
}

// Recommend bidding/bid_evaluation → recommended，指定中选报价
func (s *RequestService) Recommend(ctx context.Context, actor Actor, id, offerID string) (*entity.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	offer, err := s.stores.Offer.FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.RequestID != req.ID {
		return nil, &ValidationError{Field: "offer_id", Reason: "offer does not belong to this request"}
	}
	ts := s.now()
	// 幂等重试仅在推荐的是同一报价时成立；并发竞争中的败者拿到冲突错误
	sameOffer := func(r *entity.ServiceRequest) bool {
		return r.RecommendedOfferID != nil && *r.RecommendedOfferID == offerID
	}
	updated, err := s.transition(ctx, actor, req, rbac.ActionRecommendOffer, notify.EventOfferRecommended, "offer recommended", sameOffer, func(r *entity.ServiceRequest) {
		r.RecommendedOfferID = &offerID
		r.RecommendedAt = &ts
		r.RecommendedBy = &actor.Username
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SendToPO recommended → sent_to_po（PM移交采购）
func (s *RequestService) SendToPO(ctx context.Context, actor Actor, id string) (*entity.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == entity.StatusRecommended && req.RecommendedOfferID == nil {
		return nil, &ValidationError{Field: "recommended_offer_id", Reason: "no recommended offer on record"}
	}
	ts := s.now()
	return s.transition(ctx, actor, req, rbac.ActionSendToPo, notify.EventSentToPO, "sent to procurement", wasSentToPo, func(r *entity.ServiceRequest) {
		r.SentToPoAt = &ts
		r.SentToPoBy = &actor.Username
	})
}

// Order sent_to_po → ordered。offerID必须与在案推荐一致
func (s *RequestService) Order(ctx context.Context, actor Actor, id, offerID, orderID string) (*entity.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RecommendedOfferID == nil || *req.RecommendedOfferID != offerID {
		return nil, &ValidationError{Field: "offer_id", Reason: "offer does not match the recommended offer"}
	}
	ts := s.now()
	return s.transition(ctx, actor, req, rbac.ActionOrder, notify.EventOrdered, "order placed", wasOrdered, func(r *entity.ServiceRequest) {
		r.OrderedAt = &ts
		r.OrderedBy = &actor.Username
		if orderID != "" {
			r.OrderID = &orderID
		}
	})
}

// Reactivate expired/rejected → draft。内容保留，流转轨迹与推荐清空
func (s *RequestService) Reactivate(ctx context.Context, actor Actor, id string) (*entity.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ts := s.now()
	return s.transition(ctx, actor, req, rbac.ActionReactivate, notify.EventReactivated, "reactivated as draft", wasReactivated, func(r *entity.ServiceRequest) {
		r.RecommendedOfferID = nil
		r.SubmittedAt, r.SubmittedBy = nil, nil
		r.RPApprovedAt, r.RPApprovedBy = nil, nil
		r.RPRejectedAt, r.RPRejectedBy, r.RPRejectedReason = nil, nil, nil
		r.BiddingStartedAt, r.BiddingStartedBy = nil, nil
		r.BidEvaluationAt = nil
		r.RecommendedAt, r.RecommendedBy = nil, nil
		r.SentToPoAt, r.SentToPoBy = nil, nil
		r.OrderedAt, r.OrderedBy, r.OrderID = nil, nil, nil
		r.ExpiredAt = nil
		r.ReactivatedAt = &ts
		r.ReactivatedBy = &actor.Username
	})
}

// 动作效果判定：仅当动作留下的轨迹字段已在案时，重试才按无操作成功。
// 没有轨迹的目标状态（如从未提交过的draft）不构成合法重试
func wasSubmitted(r *entity.ServiceRequest) bool      { return r.SubmittedAt != nil }
func wasApproved(r *entity.ServiceRequest) bool       { return r.RPApprovedAt != nil }
func wasRejected(r *entity.ServiceRequest) bool       { return r.RPRejectedAt != nil }
func wasBiddingStarted(r *entity.ServiceRequest) bool { return r.BiddingStartedAt != nil }
func wasSentToPo(r *entity.ServiceRequest) bool       { return r.SentToPoAt != nil }
func wasOrdered(r *entity.ServiceRequest) bool        { return r.OrderedAt != nil }
func wasReactivated(r *entity.ServiceRequest) bool    { return r.ReactivatedAt != nil }

// transition 统一迁移编排：权限 → 状态机 → 原子CAS → 日志 → 单条事件。
// 重试幂等：当前状态已是目标状态且动作效果已在案时按无操作成功返回，
// 不重复发事件。applied为nil时状态相等即视为已应用
func (s *RequestService) transition(ctx context.Context, actor Actor, req *entity.ServiceRequest, action rbac.Action, event, content string, applied func(*entity.ServiceRequest) bool, mutate func(*entity.ServiceRequest)) (*entity.ServiceRequest, error) {
	if err := rbac.Check(actor.Role, action, actor.Username, req.CreatedBy); err != nil {
		return nil, err
	}

	next, err := fsm.Next(action, req.Status)
	if err != nil {
		if target, ok := fsm.Target(action); ok && req.Status == target && (applied == nil || applied(req)) {
			return req, nil
		}
		return nil, err
	}

	from := req.Status
	updated, err := s.stores.Request.CompareAndSetStatus(ctx, req.ID, from, func(r *entity.ServiceRequest) {
		r.Status = next
		mutate(r)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// 并发竞争：另一操作先写入。若该动作的效果已在案则按幂等成功
			current, ferr := s.stores.Request.FindByID(ctx, req.ID)
			if ferr == nil && current.Status == next && (applied == nil || applied(current)) {
				return current, nil
			}
			return nil, err
		}
		return nil, err
	}

	s.logActivity(ctx, updated, string(action), from, next, actor, content)
	s.publish(ctx, event, updated, actor, from)
	s.logger.Info("request transitioned",
		zap.String("id", updated.ID),
		zap.String("code", updated.Code),
		zap.String("action", string(action)),
		zap.String("from", from),
		zap.String("to", next),
		zap.String("by", actor.Username))
	return updated, nil
}

func (s *RequestService) logActivity(ctx context.Context, req *entity.ServiceRequest, action, from, to string, actor Actor, content string) {
	log := &entity.ActivityLog{
		ID:               uuid.New().String()[:32],
		EntityType:       "request",
		EntityID:         req.ID,
		EntityCode:       req.Code,
		Action:           action,
		FromStatus:       from,
		ToStatus:         to,
		Content:          content,
		OperatorID:       actor.UserID,
		OperatorUsername: actor.Username,
	}
	if err := s.stores.ActivityLog.Create(ctx, log); err != nil {
		s.logger.Warn("write activity log failed", zap.String("request_id", req.ID), zap.Error(err))
	}
}

func (s *RequestService) publish(ctx context.Context, event string, req *entity.ServiceRequest, actor Actor, from string) {
	offerID := ""
	if req.RecommendedOfferID != nil {
		offerID = *req.RecommendedOfferID
	}
	s.notifier.Publish(ctx, notify.Event{
		Type:       event,
		RequestID:  req.ID,
		Code:       req.Code,
		FromStatus: from,
		ToStatus:   req.Status,
		Actor:      actor.Username,
		OfferID:    offerID,
		OccurredAt: s.now(),
	})
}
