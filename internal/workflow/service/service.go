package service

import (
	"fmt"
	"time"

	"github.com/bitfantasy/procurehub/internal/notify"
	"github.com/bitfantasy/procurehub/internal/workflow/repository"
	"go.uber.org/zap"
)

// Actor 当前操作人，由认证中间件解析
type Actor struct {
	UserID   string
	Username string
	Role     string
}

// ValidationError 输入校验失败
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Config 工作流服务配置
type Config struct {
	// DefaultBiddingCycleDays 未显式指定时的投标窗口天数
	DefaultBiddingCycleDays int
}

// Services 工作流服务集合
type Services struct {
	Request    *RequestService
	Offer      *OfferService
	Evaluation *EvaluationService
}

// NewServices 创建服务集合。now可注入，nil时用time.Now
func NewServices(stores *repository.Stores, notifier notify.Notifier, logger *zap.Logger, cfg Config, now func() time.Time) *Services {
	if now == nil {
		now = time.Now
	}
	if cfg.DefaultBiddingCycleDays <= 0 {
		cfg.DefaultBiddingCycleDays = 14
	}
	request := &RequestService{
		stores:   stores,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      now,
	}
	return &Services{
		Request: request,
		Offer: &OfferService{
			stores:   stores,
			requests: request,
			notifier: notifier,
			logger:   logger,
			now:      now,
		},
		Evaluation: &EvaluationService{
			stores:   stores,
			requests: request,
			logger:   logger,
			now:      now,
		},
	}
}
