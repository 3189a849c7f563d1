package handler

import (
	"github.com/bitfantasy/procurehub/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// EvaluationHandler 评估处理器
type EvaluationHandler struct {
	svc *service.EvaluationService
}

func NewEvaluationHandler(svc *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{svc: svc}
}

// Save 保存评估文档（整体覆盖）
// PUT /api/v1/workflow/requests/:id/evaluation
func (h *EvaluationHandler) Save(c *gin.Context) {
	var input service.SaveEvaluationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	eval, err := h.svc.Save(c.Request.Context(), GetActor(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, eval)
}

// Get 评估文档详情
// GET /api/v1/workflow/requests/:id/evaluation
func (h *EvaluationHandler) Get(c *gin.Context) {
	eval, err := h.svc.Get(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, eval)
}

// Preview 评分预览，不落库
// POST /api/v1/workflow/requests/:id/evaluation/preview
func (h *EvaluationHandler) Preview(c *gin.Context) {
	var input service.SaveEvaluationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	rows, err := h.svc.Preview(c.Request.Context(), GetActor(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, rows)
}

// Recommend RP推荐报价
// POST /api/v1/workflow/requests/:id/recommend
func (h *EvaluationHandler) Recommend(c *gin.Context) {
	var body struct {
		OfferID string `json:"offer_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	req, err := h.svc.Recommend(c.Request.Context(), GetActor(c), c.Param("id"), body.OfferID)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, req)
}
