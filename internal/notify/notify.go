package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 工作流领域事件类型，每个编排操作恰好发布一条
const (
	EventRequestSubmitted = "request.submitted"
	EventRequestApproved  = "request.approved"
	EventRequestRejected  = "request.rejected"
	EventBiddingStarted   = "bidding.started"
	EventOfferSubmitted   = "offer.submitted"
	EventOfferRecommended = "offer.recommended"
	EventSentToPO         = "request.sent_to_po"
	EventOrdered          = "request.ordered"
	EventReactivated      = "request.reactivated"
	EventExpired          = "request.expired"
)

// Event 工作流领域事件
type Event struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id"`
	Code       string    `json:"code,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	OfferID    string    `json:"offer_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier 事件发布端口。实现失败不得阻断业务流程
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

// LogNotifier 仅记录日志的发布器，开发与测试环境默认
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, event Event) {
	n.logger.Info("workflow event",
		zap.String("type", event.Type),
		zap.String("request_id", event.RequestID),
		zap.String("from", event.FromStatus),
		zap.String("to", event.ToStatus),
		zap.String("actor", event.Actor))
}

// RedisNotifier 通过Redis pub/sub广播事件
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisNotifier(client *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	if channel == "" {
		channel = "workflow.events"
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (n *RedisNotifier) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal workflow event failed", zap.Error(err))
		return
	}
	// 发布失败只记日志，状态迁移本身已提交
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Error("publish workflow event failed",
			zap.String("type", event.Type), zap.Error(err))
	}
}
