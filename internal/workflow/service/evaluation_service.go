package service

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"github.com/bitfantasy/procurehub/internal/workflow/rbac"
	"github.com/bitfantasy/procurehub/internal/workflow/repository"
	"github.com/bitfantasy/procurehub/internal/workflow/scoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EvaluationService 报价评估与排名
type EvaluationService struct {
	stores   *repository.Stores
	requests *RequestService
	logger   *zap.Logger
	now      func() time.Time
}

// OfferScoreInput 单个报价的原始子分
type OfferScoreInput struct {
	OfferID       string  `json:"offer_id"`
	ScorePrice    float64 `json:"score_price"`
	ScoreDelivery float64 `json:"score_delivery"`
	ScoreQuality  float64 `json:"score_quality"`
}

// SaveEvaluationInput 保存评估文档（整体覆盖）。
// RecommendedOfferID为空时保留文档中已在案的推荐
type SaveEvaluationInput struct {
	PriceWeight        float64           `json:"price_weight"`
	DeliveryWeight     float64           `json:"delivery_weight"`
	QualityWeight      float64           `json:"quality_weight"`
	Comment            string            `json:"comment"`
	RecommendedOfferID string            `json:"recommended_offer_id"`
	Scores             []OfferScoreInput `json:"scores"`
}

func (in *SaveEvaluationInput) validate() error {
	// 权重校验：负数拒绝，超[0,1]的和由归一化吸收，全零合法（总分全为0）
	if in.PriceWeight < 0 {
		return &ValidationError{Field: "price_weight", Reason: "must not be negative"}
	}
	if in.DeliveryWeight < 0 {
		return &ValidationError{Field: "delivery_weight", Reason: "must not be negative"}
	}
	if in.QualityWeight < 0 {
		return &ValidationError{Field: "quality_weight", Reason: "must not be negative"}
	}
	return nil
}

// Save 计算评分与排名并整体覆盖保存评估文档
func (s *EvaluationService) Save(ctx context.Context, actor Actor, requestID string, input SaveEvaluationInput) (*entity.Evaluation, error) {
	if err := rbac.Check(actor.Role, rbac.ActionSaveEvaluation, actor.Username, ""); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	req, err := s.requests.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	rows, err := s.scoreOffers(ctx, req, input)
	if err != nil {
		return nil, err
	}

	eval := &entity.Evaluation{
		ID:                uuid.New().String()[:32],
		RequestID:         req.ID,
		EvaluatorRole:     entity.RoleResourcePlanner,
		EvaluatorUsername: actor.Username,
		PriceWeight:       input.PriceWeight,
		DeliveryWeight:    input.DeliveryWeight,
		QualityWeight:     input.QualityWeight,
		Comment:           input.Comment,
		Offers:            rows,
	}

	if input.RecommendedOfferID != "" {
		found := false
		for _, row := range rows {
			if row.OfferID == input.RecommendedOfferID {
				found = true
				break
			}
		}
		if !found {
			return nil, &ValidationError{Field: "recommended_offer_id", Reason: "offer does not belong to this request"}
		}
		eval.RecommendedOfferID = &input.RecommendedOfferID
	} else if existing, ferr := s.stores.Evaluation.FindByRequest(ctx, req.ID, entity.RoleResourcePlanner); ferr == nil {
		// 整体覆盖保存不得丢弃已在案的推荐
		eval.RecommendedOfferID = existing.RecommendedOfferID
	} else if !errors.Is(ferr, repository.ErrNotFound) {
		return nil, ferr
	}

	if err := s.stores.Evaluation.Upsert(ctx, eval); err != nil {
		return nil, err
	}

	s.logger.Info("evaluation saved",
		zap.String("request_id", req.ID),
		zap.String("by", actor.Username),
		zap.Int("offers", len(rows)))
	return eval, nil
}

// Get 读取评估文档（RP与系统管理员）
func (s *EvaluationService) Get(ctx context.Context, actor Actor, requestID string) (*entity.Evaluation, error) {
	if err := rbac.Check(actor.Role, rbac.ActionViewEvaluation, actor.Username, ""); err != nil {
		return nil, err
	}
	eval, err := s.stores.Evaluation.FindByRequest(ctx, requestID, entity.RoleResourcePlanner)
	if err != nil {
		return nil, err
	}
	return eval, nil
}

// Preview 计算评分与排名但不落库，供评估界面即时反馈
func (s *EvaluationService) Preview(ctx context.Context, actor Actor, requestID string, input SaveEvaluationInput) (entity.EvaluationOffers, error) {
	if err := rbac.Check(actor.Role, rbac.ActionViewEvaluation, actor.Username, ""); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	req, err := s.requests.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.scoreOffers(ctx, req, input)
}

// scoreOffers 按提交顺序构造评分输入并产出带商务快照的评分行。
// 未给分的报价按零分参与排名
func (s *EvaluationService) scoreOffers(ctx context.Context, req *entity.ServiceRequest, input SaveEvaluationInput) (entity.EvaluationOffers, error) {
	offers, err := s.stores.Offer.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entity.Offer, len(offers))
	for i := range offers {
		byID[offers[i].ID] = &offers[i]
	}
	scoresByOffer := make(map[string]OfferScoreInput, len(input.Scores))
	for _, sc := range input.Scores {
		if _, ok := byID[sc.OfferID]; !ok {
			return nil, &ValidationError{Field: "scores", Reason: "offer " + sc.OfferID + " does not belong to this request"}
		}
		scoresByOffer[sc.OfferID] = sc
	}

	inputs := make([]scoring.Input, 0, len(offers))
	for _, o := range offers {
		sc := scoresByOffer[o.ID]
		inputs = append(inputs, scoring.Input{
			OfferID:  o.ID,
			Price:    sc.ScorePrice,
			Delivery: sc.ScoreDelivery,
			Quality:  sc.ScoreQuality,
		})
	}

	weights := scoring.Weights{
		Price:    input.PriceWeight,
		Delivery: input.DeliveryWeight,
		Quality:  input.QualityWeight,
	}
	scored := scoring.Score(weights, inputs)

	rows := make(entity.EvaluationOffers, 0, len(scored))
	for _, sc := range scored {
		offer := byID[sc.OfferID]
		rows = append(rows, entity.EvaluationOffer{
			OfferID:          sc.OfferID,
			ScorePrice:       sc.Price,
			ScoreDelivery:    sc.Delivery,
			ScoreQuality:     sc.Quality,
			TotalScore:       sc.Rounded,
			Rank:             sc.Rank,
			Price:            offer.Price,
			Currency:         offer.Currency,
			DeliveryDays:     offer.DeliveryDays,
			DeliveryRisk:     offer.DeliveryRisk,
			ProviderName:     offer.ProviderName,
			ProviderUsername: offer.ProviderUsername,
			OfferTitle:       offer.OfferTitle,
		})
	}
	return rows, nil
}

// Recommend 评估侧推荐入口：记录推荐人并触发状态迁移
func (s *EvaluationService) Recommend(ctx context.Context, actor Actor, requestID, offerID string) (*entity.ServiceRequest, error) {
	req, err := s.requests.Recommend(ctx, actor, requestID, offerID)
	if err != nil {
		return nil, err
	}
	// 评估文档存在时同步其推荐字段；文档缺失不是错误
	eval, err := s.stores.Evaluation.FindByRequest(ctx, requestID, entity.RoleResourcePlanner)
	if err == nil {
		eval.RecommendedOfferID = &offerID
		if uerr := s.stores.Evaluation.Upsert(ctx, eval); uerr != nil {
			s.logger.Warn("sync evaluation recommendation failed",
				zap.String("request_id", requestID), zap.Error(uerr))
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("load evaluation failed", zap.String("request_id", requestID), zap.Error(err))
	}
	return req, nil
}
