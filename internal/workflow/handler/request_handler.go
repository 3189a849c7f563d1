package handler

import (
	"github.com/bitfantasy/procurehub/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// RequestHandler 需求单处理器
type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// List 需求单列表
// GET /api/v1/workflow/requests?status=xxx&type=xxx&created_by=xxx&search=xxx
func (h *RequestHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":     c.Query("status"),
		"type":       c.Query("type"),
		"created_by": c.Query("created_by"),
		"search":     c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// Get 需求单详情
// GET /api/v1/workflow/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// Create 创建需求单草稿
// POST /api/v1/workflow/requests
func (h *RequestHandler) Create(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	req, err := h.svc.Create(c.Request.Context(), GetActor(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	Created(c, req)
}

// Update 编辑草稿
// PUT /api/v1/workflow/requests/:id
func (h *RequestHandler) Update(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	req, err := h.svc.Update(c.Request.Context(), GetActor(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// SubmitForReview 提交审批
// POST /api/v1/workflow/requests/:id/submit-for-review
func (h *RequestHandler) SubmitForReview(c *gin.Context) {
	req, err := h.svc.SubmitForReview(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// Approve RP审批通过
// POST /api/v1/workflow/requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	req, err := h.svc.Approve(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// Reject RP驳回
// POST /api/v1/workflow/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	req, err := h.svc.Reject(c.Request.Context(), GetActor(c), c.Param("id"), body.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// StartBidding 开启投标
// POST /api/v1/workflow/requests/:id/start-bidding
func (h *RequestHandler) StartBidding(c *gin.Context) {
	req, err := h.svc.StartBidding(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// SendToPO 移交采购
// POST /api/v1/workflow/requests/:id/send-to-po
func (h *RequestHandler) SendToPO(c *gin.Context) {
	req, err := h.svc.SendToPO(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// Order 下单
// POST /api/v1/workflow/requests/:id/order
func (h *RequestHandler) Order(c *gin.Context) {
	var body struct {
		OfferID string `json:"offer_id"`
		OrderID string `json:"order_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	req, err := h.svc.Order(c.Request.Context(), GetActor(c), c.Param("id"), body.OfferID, body.OrderID)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// Reactivate 重新激活为草稿
// POST /api/v1/workflow/requests/:id/reactivate
func (h *RequestHandler) Reactivate(c *gin.Context) {
	req, err := h.svc.Reactivate(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}

// ActivityLogs 操作日志
// GET /api/v1/workflow/requests/:id/activities
func (h *RequestHandler) ActivityLogs(c *gin.Context) {
	logs, err := h.svc.ActivityLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, logs)
}

// SweepExpired 过期扫描，供运维或定时任务触发
// POST /api/v1/workflow/requests/sweep-expired
func (h *RequestHandler) SweepExpired(c *gin.Context) {
	count, err := h.svc.SweepExpired(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"expired": count})
}
