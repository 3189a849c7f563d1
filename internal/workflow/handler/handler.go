package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/procurehub/internal/workflow/fsm"
	"github.com/bitfantasy/procurehub/internal/workflow/rbac"
	"github.com/bitfantasy/procurehub/internal/workflow/repository"
	"github.com/bitfantasy/procurehub/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// Handlers 工作流处理器集合
type Handlers struct {
	Request    *RequestHandler
	Offer      *OfferHandler
	Evaluation *EvaluationHandler
}

// NewHandlers 创建工作流处理器集合
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Request:    NewRequestHandler(services.Request),
		Offer:      NewOfferHandler(services.Offer),
		Evaluation: NewEvaluationHandler(services.Evaluation),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// writeError 领域错误到响应码的统一映射
func writeError(c *gin.Context, err error) {
	var invalid *fsm.InvalidTransitionError
	var quota *repository.QuotaExceededError
	var validation *service.ValidationError
	switch {
	case errors.Is(err, rbac.ErrForbidden):
		Forbidden(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.As(err, &validation):
		BadRequest(c, err.Error())
	case errors.As(err, &invalid),
		errors.As(err, &quota),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrRequestNotOpen),
		errors.Is(err, repository.ErrDuplicateOffer):
		Conflict(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetActor 从认证中间件写入的上下文取当前操作人
func GetActor(c *gin.Context) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Get("user_id"); ok {
		actor.UserID, _ = v.(string)
	}
	if v, ok := c.Get("username"); ok {
		actor.Username, _ = v.(string)
	}
	if v, ok := c.Get("role"); ok {
		actor.Role, _ = v.(string)
	}
	return actor
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listResponse(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
